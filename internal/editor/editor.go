// Package editor opens the user's text editor on a scratch file.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command picks the editor: $VISUAL, then $EDITOR, then nano.
func Command() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return "nano"
}

// Edit writes initial to a temp file, runs the editor on it attached to
// the current terminal and returns the saved contents with trailing
// newlines trimmed.
func Edit(ctx context.Context, initial string) (string, error) {
	f, err := os.CreateTemp("", "tusk-notes-*.md")
	if err != nil {
		return "", fmt.Errorf("editor: create temp: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("editor: write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("editor: close temp: %w", err)
	}

	// The editor setting may carry arguments, e.g. "code --wait".
	fields := strings.Fields(Command())
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], name)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor: %s: %w", fields[0], err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("editor: read back: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
