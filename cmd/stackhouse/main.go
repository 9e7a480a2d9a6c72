package main

import "stackhouse/internal/cli"

func main() {
	cli.Execute()
}
