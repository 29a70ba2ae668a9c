// SPDX-License-Identifier: MIT

package review

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

var fallbackEditors = []string{"nano", "vim", "vi"}

// LaunchEditor opens file in a blocking text editor with inherited
// stdio, returning once the editor process exits. Candidates are tried
// in order: the configured editor, $VISUAL, $EDITOR, then common
// fallbacks.
func LaunchEditor(file, editor string, editorOpts []string) error {
	type candidate struct {
		cmd  string
		opts []string
	}
	var candidates []candidate
	if editor != "" {
		candidates = append(candidates, candidate{editor, editorOpts})
	}
	if v := os.Getenv("VISUAL"); v != "" {
		candidates = append(candidates, candidate{cmd: v})
	}
	if v := os.Getenv("EDITOR"); v != "" {
		candidates = append(candidates, candidate{cmd: v})
	}
	for _, fb := range fallbackEditors {
		candidates = append(candidates, candidate{cmd: fb})
	}

	for _, c := range candidates {
		cmd := exec.Command(c.cmd, append(append([]string{}, c.opts...), file)...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		if err == nil {
			return nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			continue
		}
		return fmt.Errorf("review: editor %s: %w", c.cmd, err)
	}
	return fmt.Errorf("review: cannot find an editor to edit %s", file)
}
