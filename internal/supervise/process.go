package supervise

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is a process lifecycle phase. Transitions only move forward:
// Starting -> Running -> ReadySignaled -> Exited or Killed.
type State string

const (
	StateStarting      State = "starting"
	StateRunning       State = "running"
	StateReadySignaled State = "ready"
	StateExited        State = "exited"
	StateKilled        State = "killed"
)

// Terminal reports whether the process is gone.
func (s State) Terminal() bool { return s == StateExited || s == StateKilled }

const defaultRingSize = 256

// Process is one supervised child. Output from both streams is drained
// continuously into a bounded line ring, so a chatty child never blocks on
// a full pipe regardless of whether anyone is watching.
type Process struct {
	name string
	cmd  *exec.Cmd

	mu    sync.Mutex
	state State
	ring  []string
	// total counts every line ever appended; the ring holds the last
	// len(ring) of them.
	total   int
	waitErr error
	killed  bool

	// pulse is tickled on every appended line so waiters wake promptly.
	pulse chan struct{}
	done  chan struct{}
}

// Name returns the label the process was spawned under.
func (p *Process) Name() string { return p.name }

// PID returns the operating system process id, or 0 before start.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Snapshot is a point-in-time view of a process, safe to hand across
// goroutines.
type Snapshot struct {
	Name     string `json:"name"`
	PID      int    `json:"pid"`
	State    State  `json:"state"`
	ExitCode int    `json:"exit_code"`
	ExitErr  string `json:"exit_error,omitempty"`
}

// Poll reports the current state without blocking.
func (p *Process) Poll() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{Name: p.name, PID: p.PID(), State: p.state, ExitCode: -1}
	if p.state.Terminal() {
		snap.ExitCode = p.cmd.ProcessState.ExitCode()
		if p.waitErr != nil {
			snap.ExitErr = p.waitErr.Error()
		}
	}
	return snap
}

// Done is closed once the child has been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// RecentOutput returns up to n of the most recent output lines, oldest
// first.
func (p *Process) RecentOutput(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := p.ringLines()
	if n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// ringLines returns the retained lines oldest first. Caller holds mu.
func (p *Process) ringLines() []string {
	if p.total <= len(p.ring) {
		return p.ring[:p.total]
	}
	head := p.total % len(p.ring)
	return append(append([]string(nil), p.ring[head:]...), p.ring[:head]...)
}

func (p *Process) appendLine(line string) {
	p.mu.Lock()
	if p.total < cap(p.ring) {
		p.ring = append(p.ring, line)
	} else {
		p.ring[p.total%len(p.ring)] = line
	}
	p.total++
	p.mu.Unlock()

	select {
	case p.pulse <- struct{}{}:
	default:
	}
}

func (p *Process) drain(r io.Reader, sink func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		p.appendLine(line)
		if sink != nil {
			sink(line)
		}
	}
}

// WaitReady blocks until some output line satisfies ready, the process
// exits, ctx is cancelled, or timeout elapses. Every line is inspected
// exactly once, including lines emitted before the call. On success the
// process is marked ReadySignaled.
func (p *Process) WaitReady(ctx context.Context, ready func(line string) bool, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	cursor := 0
	finalScan := false
	for {
		p.mu.Lock()
		lines := p.ringLines()
		base := p.total - len(lines)
		if cursor < base {
			cursor = base
		}
		for _, line := range lines[cursor-base:] {
			cursor++
			if ready(line) {
				if !p.state.Terminal() {
					p.state = StateReadySignaled
				}
				p.mu.Unlock()
				return nil
			}
		}
		waitErr := p.waitErr
		p.mu.Unlock()

		if finalScan {
			return &EarlyExitError{Name: p.name, Err: waitErr}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: wait for readiness: %w", p.name, ctx.Err())
		case <-timer.C:
			return &TimedOutError{Name: p.name, Waiting: "readiness output", Timeout: timeout}
		case <-p.done:
			// One more pass over lines that raced with the exit.
			finalScan = true
		case <-p.pulse:
		}
	}
}

// Terminate stops the child: SIGTERM first, escalating to SIGKILL once
// grace expires. The child is always reaped before returning, so no
// zombie survives the call. Safe to call on an already dead process.
func (p *Process) Terminate(ctx context.Context, grace time.Duration) error {
	p.mu.Lock()
	if p.state.Terminal() {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.signal(syscall.SIGTERM); err != nil {
		// Raced with exit; reap below.
		grace = 0
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	case <-timer.C:
	}

	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	_ = p.signal(syscall.SIGKILL)
	<-p.done
	return nil
}

// signal delivers sig to the child's process group, falling back to the
// child alone when the group is gone.
func (p *Process) signal(sig syscall.Signal) error {
	pid := p.PID()
	if pid <= 0 {
		return fmt.Errorf("%s: not started", p.name)
	}
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}
