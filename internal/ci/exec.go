package ci

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// CommandResult is the outcome of one executed command.
type CommandResult struct {
	Command  Command
	Expanded string
	ExitCode int
	Output   string
	Err      error
}

// Executor runs single commands under a leg environment.
type Executor struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
	// DryRun records what would run without spawning processes.
	DryRun bool
}

// Run executes one command with the leg environment applied on top of the
// process environment. The exit code is 0 on success, the command's code
// on failure, -1 when the process could not start.
func (e *Executor) Run(ctx context.Context, c Command, env map[string]string) CommandResult {
	expanded := ExpandVars(c.Line, env)
	res := CommandResult{Command: c, Expanded: expanded}
	if e.DryRun {
		return res
	}

	name, args := shellInvocation(c.Shell, expanded)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	cmd.Env = mergedEnv(env)

	output, err := cmd.CombinedOutput()
	res.Output = string(output)
	if err != nil {
		res.Err = fmt.Errorf("ci: %s: %w", expanded, err)
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	return res
}

// shellInvocation maps a command's declared shell to an interpreter
// invocation for the running OS. cmd and ps fall back to sh when the host
// is not Windows.
func shellInvocation(shell Shell, line string) (string, []string) {
	onWindows := runtime.GOOS == "windows"
	switch shell {
	case ShellCmd:
		if onWindows {
			return "cmd", []string{"/c", line}
		}
	case ShellPS:
		if onWindows {
			return "powershell", []string{"-NoProfile", "-Command", line}
		}
	case ShellSh, ShellDefault:
	}
	if onWindows {
		return "cmd", []string{"/c", line}
	}
	return "/bin/sh", []string{"-c", line}
}

// ExpandVars substitutes ${NAME} and $NAME references against env, leaving
// unknown names as empty, matching os.Expand semantics.
func ExpandVars(line string, env map[string]string) string {
	return os.Expand(line, func(name string) string {
		return env[name]
	})
}

func mergedEnv(env map[string]string) []string {
	merged := os.Environ()
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	return merged
}
