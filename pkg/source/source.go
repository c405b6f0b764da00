// Package source obtains the snapshot export from a file, stdin or a collector command.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/runningman84/pve-diag/pkg/parser"
	"k8s.io/klog/v2"
)

// ErrNoSource is returned when neither a snapshot file nor a collector command is configured
var ErrNoSource = errors.New("no snapshot source configured")

// Loader reads snapshot exports
type Loader struct {
	config *config.Config
	stdin  io.Reader
}

// NewLoader creates a new snapshot loader
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{
		config: cfg,
		stdin:  os.Stdin,
	}
}

// logCommand logs the command being executed if debug mode is enabled
func (l *Loader) logCommand(cmdArgs []string) {
	if l.config.IsDebug() {
		klog.V(1).Infof(" Executing command: %v", cmdArgs)
	}
}

// logCommandResult logs the command result if debug mode is enabled
func (l *Loader) logCommandResult(exitCode int, stdout, stderr []byte) {
	if l.config.IsDebug() {
		klog.V(1).Infof(" Exit code: %d", exitCode)
		klog.V(1).Infof(" stdout: %d byte(s)", len(stdout))
		if len(stderr) > 0 {
			klog.V(1).Infof(" stderr: %s", string(stderr))
		}
	}
}

// Read returns the raw snapshot export. A collector command takes precedence
// over the snapshot file; the file "-" reads stdin.
func (l *Loader) Read(ctx context.Context) ([]byte, error) {
	switch {
	case len(l.config.SnapshotCmd) > 0:
		return l.runCommand(ctx, l.config.SnapshotCmd)
	case l.config.SnapshotFile == "-":
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot from stdin: %w", err)
		}
		return data, nil
	case l.config.SnapshotFile != "":
		data, err := os.ReadFile(l.config.SnapshotFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot file: %w", err)
		}
		klog.V(1).Infof("Read %d byte(s) from %s", len(data), l.config.SnapshotFile)
		return data, nil
	}
	return nil, ErrNoSource
}

func (l *Loader) runCommand(ctx context.Context, cmdArgs []string) ([]byte, error) {
	l.logCommand(cmdArgs)

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	output, err := cmd.Output()
	if err != nil {
		exitCode := 0
		var stderr []byte
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
			stderr = exitError.Stderr
		}
		l.logCommandResult(exitCode, output, stderr)
		return nil, fmt.Errorf("collector command failed: %w", err)
	}
	l.logCommandResult(0, output, nil)

	return output, nil
}

// Load reads and parses the snapshot
func (l *Loader) Load(ctx context.Context) (*models.Snapshot, error) {
	data, err := l.Read(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := parser.ParseSnapshotJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return snapshot, nil
}
