// Package supervise owns the lifecycle of long-running child processes:
// spawning, output scanning for readiness, bounded waits and graceful
// shutdown with escalation.
package supervise

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Spec describes one child process to spawn.
type Spec struct {
	// Name labels the process in errors and snapshots.
	Name    string
	Command string
	Args    []string
	Dir     string
	// Env entries are appended to the parent environment.
	Env []string
	// RingSize caps the retained output lines. Zero means the default.
	RingSize int
	// OutputSink, when set, additionally receives every output line as it
	// arrives. Used to tee child output into a log file.
	OutputSink func(line string)
}

// Supervisor spawns and tracks child processes.
type Supervisor struct {
	Logf func(format string, v ...any)
}

func (s *Supervisor) logf(format string, v ...any) {
	if s != nil && s.Logf != nil {
		s.Logf(format, v...)
	}
}

// Spawn starts the child described by spec. The returned Process is
// already draining both output streams. A nil error means the operating
// system accepted the process; readiness is a separate concern, checked
// with WaitReady.
func (s *Supervisor) Spawn(spec Spec) (*Process, error) {
	ringSize := spec.RingSize
	if ringSize <= 0 {
		ringSize = defaultRingSize
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	// Children get their own process group so termination signals reach
	// their descendants too; otherwise an orphaned grandchild keeps the
	// output pipes open forever.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Command: spec.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Command: spec.Command, Err: err}
	}

	p := &Process{
		name:  spec.Name,
		cmd:   cmd,
		state: StateStarting,
		ring:  make([]string, 0, ringSize),
		pulse: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: spec.Command, Err: err}
	}
	s.logf("%s: started pid %d (%s)", spec.Name, cmd.Process.Pid, spec.Command)

	p.mu.Lock()
	p.state = StateRunning
	p.mu.Unlock()

	var drained sync.WaitGroup
	drained.Add(2)
	go func() {
		defer drained.Done()
		p.drain(stdout, spec.OutputSink)
	}()
	go func() {
		defer drained.Done()
		p.drain(stderr, spec.OutputSink)
	}()

	go func() {
		drained.Wait()
		err := cmd.Wait()

		p.mu.Lock()
		p.waitErr = err
		if p.killed {
			p.state = StateKilled
		} else {
			p.state = StateExited
		}
		p.mu.Unlock()

		s.logf("%s: pid %d exited (%v)", spec.Name, cmd.Process.Pid, err)
		close(p.done)
	}()

	return p, nil
}
