package detector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandStrategy runs an arbitrary shell command whose standard output
// is the public IP. Non-zero exit, timeout and empty output are all
// strategy failures; none of them are fatal to the process.
type CommandStrategy struct {
	// Cmd is passed to `sh -c`
	Cmd string

	// Timeout bounds the command run; 0 means no explicit bound
	Timeout time.Duration
}

// Kind returns the strategy kind
func (s *CommandStrategy) Kind() string { return "command" }

// Describe returns the command line
func (s *CommandStrategy) Describe() string { return s.Cmd }

// Detect runs the command and returns its trimmed standard output
func (s *CommandStrategy) Detect(ctx context.Context) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", s.Cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The kill on context expiry only reaches sh itself; a grandchild
	// holding the stdout/stderr pipes would otherwise keep Run blocked
	// for its full runtime. WaitDelay forces the pipes closed shortly
	// after the deadline so the attempt is abandoned, not the process.
	cmd.WaitDelay = 100 * time.Millisecond

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("command failed: %w", err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("command produced no output")
	}
	return out, nil
}
