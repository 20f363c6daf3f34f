package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lf-lang/lingo/pkg/logger"
)

// Command describes one subprocess invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
	// App tags the invocation; its output is appended to the app's log file
	App string
	// Stdout additionally receives the subprocess output when set
	Stdout io.Writer
	// FailOnStderr makes any stderr output a failure even on exit code 0
	FailOnStderr bool
}

// String renders the command line
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner spawns a subprocess, waits for it and captures its output.
// A non-zero exit is reported as *ExitError carrying that output.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ErrStderr marks a command that exited 0 but wrote diagnostics to stderr
var ErrStderr = errors.New("wrote diagnostics to stderr")

// ExitError is a subprocess failure with the tool's own diagnostics
type ExitError struct {
	Command  string
	ExitCode int
	Output   []byte
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("`%s` failed", e.Command)
	switch {
	case errors.Is(e.Err, ErrStderr):
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	case e.ExitCode >= 0:
		msg = fmt.Sprintf("%s with exit code %d", msg, e.ExitCode)
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if out := strings.TrimRight(string(e.Output), "\n"); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	// LogDir receives one <app>.log per tagged command; empty disables it
	LogDir string
	Logger logger.Logger
}

// NewExecRunner creates a runner logging under <projectRoot>/.lingo/logs
func NewExecRunner(projectRoot string, log logger.Logger) *ExecRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &ExecRunner{
		LogDir: LogDir(projectRoot),
		Logger: log,
	}
}

// LogDir is the per-app log directory of a project
func LogDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".lingo", "logs")
}

// LogPath is the log file of one app
func LogPath(projectRoot, app string) string {
	return filepath.Join(LogDir(projectRoot), app+".log")
}

// Run executes cmd to completion. The context is only checked before the
// process is spawned; a started process is never killed.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}
	if cmd.App != "" {
		log = log.WithApp(cmd.App)
	}

	logFile, err := r.openLog(cmd.App)
	if err != nil {
		log.Warn(fmt.Sprintf("Failed to open log file: %v", err))
	}
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()

	line := cmd.String()
	startTime := time.Now()
	writeLog(logFile, fmt.Sprintf("\n=== %s: %s ===\n", startTime.Format("2006-01-02 15:04:05"), line))
	log.Debug("Executing", logger.WithField("command", line), logger.WithField("dir", cmd.Dir))

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = os.Environ()
		for k, v := range cmd.Env {
			c.Env = append(c.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var output bytes.Buffer
	writers := []io.Writer{&output}
	if logFile != nil {
		writers = append(writers, logFile)
	}
	if cmd.Stdout != nil {
		writers = append(writers, cmd.Stdout)
	}
	var stderr bytes.Buffer
	w := io.MultiWriter(writers...)
	c.Stdout = w
	c.Stderr = io.MultiWriter(w, &stderr)

	err = c.Run()
	duration := time.Since(startTime)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		writeLog(logFile, fmt.Sprintf("=== FAILED after %s: %v ===\n", duration, err))
		return output.Bytes(), &ExitError{
			Command:  line,
			ExitCode: exitCode,
			Output:   output.Bytes(),
			Err:      err,
		}
	}

	if cmd.FailOnStderr && len(bytes.TrimSpace(stderr.Bytes())) > 0 {
		writeLog(logFile, fmt.Sprintf("=== FAILED after %s: %v ===\n", duration, ErrStderr))
		return output.Bytes(), &ExitError{
			Command:  line,
			ExitCode: 0,
			Output:   output.Bytes(),
			Err:      ErrStderr,
		}
	}

	writeLog(logFile, fmt.Sprintf("=== SUCCEEDED after %s ===\n", duration))
	return output.Bytes(), nil
}

func (r *ExecRunner) openLog(app string) (*os.File, error) {
	if r.LogDir == "" || app == "" {
		return nil, nil
	}
	if err := os.MkdirAll(r.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(filepath.Join(r.LogDir, app+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

func writeLog(f *os.File, msg string) {
	if f != nil {
		_, _ = f.WriteString(msg)
	}
}
