package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Command is an external command, either a shell line or an argv token list
type Command struct {
	line string
	argv []string
}

// Shell returns a command interpreted by the shell, e.g. "fpm -s python ..."
func Shell(line string) Command {
	return Command{line: line}
}

// Args returns a command executed directly from its argv tokens
func Args(name string, args ...string) Command {
	return Command{argv: append([]string{name}, args...)}
}

// IsShell reports whether the command is a shell line
func (c Command) IsShell() bool {
	return c.argv == nil
}

// String renders the command line for diagnostics
func (c Command) String() string {
	if c.IsShell() {
		return c.line
	}
	return strings.Join(c.argv, " ")
}

// Empty reports whether there is nothing to run
func (c Command) Empty() bool {
	return strings.TrimSpace(c.line) == "" && len(c.argv) == 0
}

func (c Command) build(ctx context.Context, shell, dir string) *exec.Cmd {
	var cmd *exec.Cmd
	if c.IsShell() {
		cmd = exec.CommandContext(ctx, shell, "-c", c.line)
	} else {
		cmd = exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	}
	// nil Env inherits the environment and sets PWD to dir
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(cancelSignal(ctx))
	}
	cmd.WaitDelay = KillDelay
	return cmd
}

// KillDelay is how long a canceled command may take to exit before it is
// killed and its pipes are closed
var KillDelay = 10 * time.Second

// Interrupt is the cancellation cause of a context canceled by a signal.
// The signal is forwarded to running commands.
type Interrupt struct {
	Signal os.Signal
}

func (i *Interrupt) Error() string {
	return "interrupted by " + i.Signal.String()
}

// cancelSignal is the signal sent to a command when ctx is done: the one
// carried by an *Interrupt cause, SIGTERM otherwise
func cancelSignal(ctx context.Context) os.Signal {
	var in *Interrupt
	if errors.As(context.Cause(ctx), &in) && in.Signal != nil {
		return in.Signal
	}
	return syscall.SIGTERM
}

// Quote quotes s for inclusion in a shell line
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isSafeShellRune(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join quotes each token and joins them into a shell line
func Join(tokens ...string) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = Quote(tok)
	}
	return strings.Join(quoted, " ")
}

func isSafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./=:,+@%", r)
}
