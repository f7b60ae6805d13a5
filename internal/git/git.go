// Package git runs git commands.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/logfields"
)

const loggerName = "git"

// Executable is the name or path of the git binary.
var Executable = "git"

// Error is returned when a git command exits unsuccessfully.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s failed: %s", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func run(ctx context.Context, dir string, args []string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, Executable, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zap.L().Named(loggerName).Debug(
		"running git",
		logfields.Event("git_command_started"),
		zap.Strings("args", args),
		zap.String("dir", dir),
	)

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

// Call runs git with args in dir.
// If dir is empty, the command runs in the current working directory.
func Call(ctx context.Context, dir string, args ...string) error {
	_, err := run(ctx, dir, args)
	return err
}

// Output runs git with args in dir and returns its stdout with leading and
// trailing whitespace removed.
func Output(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := run(ctx, dir, args)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}
