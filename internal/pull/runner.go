package pull

import (
	"os"
	"os/exec"
	"strings"
)

// Runner executes external transport commands. The default
// implementation shells out; tests substitute a recorder.
type Runner interface {
	// Run executes the command, streaming output through to
	// the user's terminal.
	Run(name string, args ...string) error
	// Output executes the command and captures its stdout.
	Output(name string, args ...string) (string, error)
}

// ExecRunner runs commands as real subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (ExecRunner) Output(
	name string, args ...string,
) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

// shellQuote renders one argv element for display in dry-run
// output. Arguments without shell metacharacters pass through
// unchanged.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// renderCommand joins a command and its arguments into a
// copy-pasteable shell line.
func renderCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(name))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}
