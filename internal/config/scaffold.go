package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// gitignoreEntries keep local state and secrets out of version control.
var gitignoreEntries = []string{".quest/", ".env"}

const envTemplate = `# Notion integration token used by quest
NOTION_API_KEY=
`

// ScaffoldProject prepares dir for quest: quest.toml, a .env holding the
// token variable, and .gitignore lines for both. Existing files are never
// overwritten; .gitignore only gains the lines it lacks. It returns the
// paths it created or changed, in that order.
func ScaffoldProject(dir string) ([]string, error) {
	var touched []string

	for _, f := range []struct {
		name    string
		content string
		perm    os.FileMode
	}{
		{FileName, template, 0644},
		{".env", envTemplate, 0600},
	} {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), f.perm); err != nil {
			return touched, fmt.Errorf("scaffold: write %s: %w", path, err)
		}
		touched = append(touched, path)
	}

	path := filepath.Join(dir, ".gitignore")
	changed, err := ensureLines(path, gitignoreEntries)
	if err != nil {
		return touched, err
	}
	if changed {
		touched = append(touched, path)
	}
	return touched, nil
}

// ensureLines appends each missing entry to the file at path, creating it
// if needed. Reports whether the file was written.
func ensureLines(path string, entries []string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("scaffold: read %s: %w", path, err)
	}
	var present []string
	for _, l := range strings.Split(string(data), "\n") {
		present = append(present, strings.TrimSpace(l))
	}

	var b strings.Builder
	b.Write(data)
	for _, e := range entries {
		if slices.Contains(present, e) {
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(e + "\n")
	}
	if b.Len() == len(data) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return false, fmt.Errorf("scaffold: write %s: %w", path, err)
	}
	return true, nil
}
