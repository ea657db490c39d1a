package process

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"
)

// runner abstracts OS process control so lifecycle bookkeeping can be
// tested without spawning real children.
type runner interface {
	Start(name string, args []string) (int, error)
	Kill(pid int) error
	Alive(pid int) bool
}

type osRunner struct{}

func (osRunner) Start(name string, args []string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", name, err)
	}
	// Reap the child when it exits so killed helpers don't linger as
	// zombies; nobody consumes the exit status.
	go func() { _ = cmd.Wait() }()
	return cmd.Process.Pid, nil
}

func (osRunner) Kill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}

func (osRunner) Alive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}
