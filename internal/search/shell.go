package search

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	//go:embed scripts/grep_tunnel.sh
	grepScript string
	//go:embed scripts/find_tunnel.sh
	findScript string
)

// Shell searches through grep and find, driven by bash
type Shell struct {
	BashPath string
	log      *zap.SugaredLogger
}

func NewShell(bashPath string, log *zap.SugaredLogger) *Shell {
	return &Shell{BashPath: bashPath, log: log}
}

func (s *Shell) Content(ctx context.Context, pattern, root string, exclusions []string, p Platform) ([]string, error) {
	f, err := os.CreateTemp("", "catchit-exclusions-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create exclusion file: %w", err)
	}
	defer os.Remove(f.Name())

	_, err = f.WriteString(strings.Join(exclusions, "\n") + "\n")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write exclusion file: %w", err)
	}

	return s.run(ctx, grepScript, "grep_tunnel", pattern, root, f.Name(), p.Flag)
}

func (s *Shell) Names(ctx context.Context, root, pattern string, p Platform) ([]string, error) {
	return s.run(ctx, findScript, "find_tunnel", root, pattern, p.Flag)
}

func (s *Shell) run(ctx context.Context, script, name string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, s.BashPath, append([]string{"-c", script, name}, args...)...)
	// grep may outlive a killed bash and hold stdout open
	cmd.WaitDelay = 250 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		// grep -r exits 2 on an unreadable file but still prints the hits it found
		if stdout.Len() > 0 {
			s.log.Warnw("search finished with errors, using partial output",
				"script", name, "exit_code", exitErr.ExitCode(), "stderr", strings.TrimSpace(stderr.String()))
			return splitLines(stdout.String()), nil
		}
		msg := fmt.Sprintf("%s exited with %d", name, exitErr.ExitCode())
		if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
			msg += ": " + errOut
		}
		return nil, errors.New(msg)
	}

	if stderr.Len() > 0 {
		s.log.Debugw("search wrote to stderr", "script", name, "stderr", strings.TrimSpace(stderr.String()))
	}
	return splitLines(stdout.String()), nil
}
