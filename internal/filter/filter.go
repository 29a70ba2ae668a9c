// SPDX-License-Identifier: MIT

// Package filter implements the optional path filter consulted before
// drafting download paths: rule files can exclude VODs outright or
// rewrite their suggested paths.
package filter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Filter maps a suggested path to a replacement, or rejects it.
type Filter struct {
	rules []rule
}

type rule struct {
	ignore  bool
	pattern *regexp.Regexp
	repl    string
}

// Identity never rewrites or excludes anything.
var Identity = &Filter{}

// DefaultPath returns the default rule file for a mode inside the
// config directory.
func DefaultPath(configDir, mode string) string {
	return filepath.Join(configDir, "filters", mode+".txt")
}

// Template is dumped next to the config on first run.
const Template = `# Path filter rules, applied to suggested VOD paths in order.
#
#   ignore <regexp>          exclude matching paths (commented out in
#                            the review draft; restorable by hand)
#   sub <regexp> -> <repl>   rewrite matching portions of the path
#
# Example:
#
#ignore 生日会
#sub \s+ ->${SP}
`

// Load reads a rule file. A missing file yields the identity filter;
// malformed rules are errors.
func Load(path string) (*Filter, error) {
	fp, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity, nil
		}
		return nil, fmt.Errorf("filter: %w", err)
	}
	defer fp.Close()

	f := &Filter{}
	sc := bufio.NewScanner(fp)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ignore "):
			re, err := regexp.Compile(strings.TrimSpace(strings.TrimPrefix(line, "ignore ")))
			if err != nil {
				return nil, fmt.Errorf("filter: %s:%d: %v", path, lineno, err)
			}
			f.rules = append(f.rules, rule{ignore: true, pattern: re})
		case strings.HasPrefix(line, "sub "):
			body := strings.TrimPrefix(line, "sub ")
			idx := strings.Index(body, "->")
			if idx < 0 {
				return nil, fmt.Errorf("filter: %s:%d: sub rule needs '->'", path, lineno)
			}
			re, err := regexp.Compile(strings.TrimSpace(body[:idx]))
			if err != nil {
				return nil, fmt.Errorf("filter: %s:%d: %v", path, lineno, err)
			}
			repl := strings.ReplaceAll(body[idx+2:], "${SP}", " ")
			f.rules = append(f.rules, rule{pattern: re, repl: repl})
		default:
			return nil, fmt.Errorf("filter: %s:%d: unknown directive", path, lineno)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("filter: %s: %w", path, err)
	}
	return f, nil
}

// Apply runs the rules over a suggested path. ok is false when the path
// is excluded.
func (f *Filter) Apply(path string) (result string, ok bool) {
	for _, r := range f.rules {
		if r.ignore {
			if r.pattern.MatchString(path) {
				return "", false
			}
			continue
		}
		path = r.pattern.ReplaceAllString(path, r.repl)
	}
	return path, true
}
