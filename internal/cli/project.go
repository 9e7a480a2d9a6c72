package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackhouse/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage pipeline projects",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())

	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project with an empty data directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectCreate,
	}
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	w, err := resolveWorkdir()
	if err != nil {
		return err
	}
	if err := w.EnsureLayout(); err != nil {
		return err
	}

	meta, err := project.Create(w, args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Created project %s\n", meta.Name)
	cmd.Printf("  data dir: %s\n", meta.DataDir)
	return nil
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE:  runProjectList,
	}
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	w, err := resolveWorkdir()
	if err != nil {
		return err
	}

	projects, err := project.List(w)
	if err != nil {
		return err
	}

	if outputJSON {
		if projects == nil {
			projects = []project.Metadata{}
		}
		data, err := json.MarshalIndent(projects, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(projects) == 0 {
		cmd.Println("No projects. Create one with `stackhouse project create <name>`.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "NAME\tCREATED\tDATA DIR")
	for _, meta := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", meta.Name, meta.CreatedAt.Format("2006-01-02 15:04"), meta.DataDir)
	}
	return nil
}
