package env

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Profile is the optional per-user shell configuration file,
// ~/.termsh.toml.
type Profile struct {
	// Aliases defined at startup, name → replacement text.
	Aliases map[string]string `toml:"aliases"`
	// Exports are variables set and exported at startup.
	Exports map[string]string `toml:"exports"`
	// HistoryLimit overrides the history cap when positive.
	HistoryLimit int `toml:"history_limit"`
	// TwoLinePrompt selects the user@host / path prompt layout.
	TwoLinePrompt bool `toml:"two_line_prompt"`
}

// DefaultProfilePath returns ~/.termsh.toml.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".termsh.toml")
}

// LoadProfile reads the profile at path. A missing file yields a zero
// profile; a malformed one is an error the caller reports and ignores.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if path == "" {
		return &p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &p, nil
		}
		return nil, fmt.Errorf("profile read: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}
	return &p, nil
}

// Apply merges the profile into the environment.
func (p *Profile) Apply(e *Environment) {
	for name, value := range p.Exports {
		e.Export(name, value, true)
	}
	for name, text := range p.Aliases {
		e.SetAlias(name, text)
	}
}
