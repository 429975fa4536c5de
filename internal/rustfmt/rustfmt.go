// Package rustfmt shells out to the external formatter and applies its
// output as a whole-buffer rewrite. The formatter's exit code is a contract:
// 0 is success, 3 is "formatted with reportable issues", anything else means
// the output must not be applied.
package rustfmt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/textbuf"
)

const exitCodeParseIssues = 3

// Result carries the formatter output for one buffer. Diagnostics is the
// formatter's own report with the stdin placeholder rewritten to the buffer
// name; it is non-empty only on exit code 3.
type Result struct {
	Output      string
	Changed     bool
	Diagnostics string
}

// ExitError reports a formatter run whose output must be discarded.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Cmd, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Format runs the configured formatter with the buffer text on stdin. On
// exit code 3 the formatted output is still applied and the diagnostics are
// surfaced; on any other nonzero exit nothing is applied.
func Format(ctx context.Context, buf *textbuf.Buffer, cfg *config.Config) (*Result, error) {
	cmd := exec.CommandContext(ctx, cfg.RustfmtPath, cfg.RustfmtArgs...)
	cmd.Stdin = strings.NewReader(buf.Text())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		exit, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cfg.RustfmtPath, err)
		}
		code = exit.ExitCode()
	}

	diags := remapStdinName(stderr.String(), buf.Name())
	switch code {
	case 0:
		return &Result{Output: stdout.String(), Changed: stdout.String() != buf.Text()}, nil
	case exitCodeParseIssues:
		return &Result{
			Output:      stdout.String(),
			Changed:     stdout.String() != buf.Text(),
			Diagnostics: diags,
		}, nil
	default:
		return nil, &ExitError{Cmd: cfg.RustfmtPath, Code: code, Stderr: diags}
	}
}

// FormatFile formats path in place. The output lands in a temporary sibling
// first so a formatter failure never truncates the original file.
func FormatFile(ctx context.Context, path string, cfg *config.Config) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := Format(ctx, textbuf.New(path, string(src)), cfg)
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		return res, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rustfmt-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(res.Output); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, err
	}
	return res, nil
}

// remapStdinName rewrites the formatter's stdin placeholder so diagnostics
// point at the buffer the user is editing.
func remapStdinName(diags, name string) string {
	return strings.ReplaceAll(diags, "<stdin>", name)
}

// RemapPosition maps a byte position in the pre-format text onto the
// post-format text, keeping the cursor on the same content across a
// whole-buffer rewrite. Positions inside deleted content land at the start
// of the replacement.
func RemapPosition(oldText, newText string, pos textbuf.Pos) textbuf.Pos {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, true)
	var oldOff, newOff textbuf.Pos
	for _, d := range diffs {
		n := textbuf.Pos(len(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if pos < oldOff+n {
				return newOff + (pos - oldOff)
			}
			oldOff += n
			newOff += n
		case diffmatchpatch.DiffDelete:
			if pos < oldOff+n {
				return newOff
			}
			oldOff += n
		case diffmatchpatch.DiffInsert:
			newOff += n
		}
	}
	return textbuf.Pos(len(newText))
}
