// Package host models the optional desktop host runtime as an injected
// capability. The session and auth core never depends on it; callers that
// run inside a host shell inject a controller, everyone else gets the no-op.
package host

import (
	"fmt"
	"os/exec"
	"strings"
)

// ProcessController starts the host companion process when one is installed.
type ProcessController interface {
	// IsInstalled reports whether the host runtime is present.
	IsInstalled() bool
	// Start launches the companion process. Only called when installed.
	Start() error
}

// Nop is the controller for environments without a host runtime.
type Nop struct{}

func (Nop) IsInstalled() bool { return false }
func (Nop) Start() error      { return nil }

// ExecController launches a configured executable as the companion process.
type ExecController struct {
	// Path is the executable to launch.
	Path string
	// Args are passed to the executable.
	Args []string
}

func (c *ExecController) IsInstalled() bool {
	if strings.TrimSpace(c.Path) == "" {
		return false
	}
	_, err := exec.LookPath(c.Path)
	return err == nil
}

func (c *ExecController) Start() error {
	cmd := exec.Command(c.Path, c.Args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("host: start %s failed: %w", c.Path, err)
	}
	// Detach: the companion process outlives this one.
	return cmd.Process.Release()
}
