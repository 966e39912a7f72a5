package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Output of a command executed inside a container.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output.
	Stderr   string // Captured standard error.
}

// Runs a command inside a container and captures its output.
//
// A non-zero exit code is not treated as an error; the caller decides.
func (rt *Runtime) Exec(ctx context.Context, name string, env []string, args ...string) (*ExecResult, error) {
	cmdArgs := []string{"exec"}
	for _, e := range env {
		cmdArgs = append(cmdArgs, "-e", e)
	}
	cmdArgs = append(cmdArgs, name)
	cmdArgs = append(cmdArgs, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, rt.podman, cmdArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: exec in %s: %w", ErrRuntime, name, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Runs a command inside a container with the caller's terminal attached.
//
// Used by `debox run`: output streams directly, stdin is connected when
// interactive is set, and the command's exit code is returned.
func (rt *Runtime) ExecAttached(ctx context.Context, name string, interactive bool, stdin io.Reader, stdout, stderr io.Writer, args ...string) (int, error) {
	cmdArgs := []string{"exec"}
	if interactive {
		cmdArgs = append(cmdArgs, "-it")
	}
	cmdArgs = append(cmdArgs, name)
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, rt.podman, cmdArgs...)
	if interactive {
		cmd.Stdin = stdin
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("%w: exec in %s: %w", ErrRuntime, name, err)
	}

	return 0, nil
}

// Runs a post-install script inside the container as a lifecycle hook.
//
// A stopped container is started for the duration of the hook and stopped
// again afterwards. Script failure aborts with the script's output in the
// error.
func (rt *Runtime) RunPostInstall(ctx context.Context, name, script string) error {
	if script == "" {
		return nil
	}

	status, err := rt.ContainerStatus(ctx, name)
	if err != nil {
		return err
	}

	wasStopped := status != StatusRunning
	if wasStopped {
		if err := rt.StartContainer(ctx, name); err != nil {
			return err
		}
		defer func() {
			if err := rt.StopContainer(ctx, name); err != nil {
				slog.Warn("failed to stop container after hook", "name", name, "error", err)
			}
		}()
	}

	slog.Debug("running post-install hook", "name", name)

	result, err := rt.Exec(ctx, name,
		[]string{"DEBIAN_FRONTEND=noninteractive"},
		"/bin/bash", "-c", script,
	)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: post-install hook exited %d: %s", ErrRuntime, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return nil
}

// Copies a file out of a container to a host path.
func (rt *Runtime) CopyFrom(ctx context.Context, name, containerPath, hostPath string) error {
	if _, err := rt.podmanRun(ctx, nil, "cp", name+":"+containerPath, hostPath); err != nil {
		return err
	}
	return nil
}

// Runs a podman subcommand, returning its stdout.
//
// Stderr is folded into the returned error on failure.
func (rt *Runtime) podmanRun(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, rt.podman, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("podman", "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: podman %s: %s", ErrRuntime, args[0], msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Runs a podman subcommand for its exit code only.
func (rt *Runtime) podmanCheck(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, rt.podman, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

// Reports whether an error is a command exit error (as opposed to a failure
// to run the command at all).
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
