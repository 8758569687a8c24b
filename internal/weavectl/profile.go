package weavectl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile is the CLI configuration stored in config.toml.
type Profile struct {
	Gateway  string `toml:"gateway"`
	Universe string `toml:"universe"`
	Color    bool   `toml:"color"`
	// Store is the local universe database (SQLite).
	Store string `toml:"store"`
	// Segments is the JSON file backing the local clip list.
	Segments string `toml:"segments"`
}

func DefaultProfile() *Profile {
	dir := ConfigDir()
	return &Profile{
		Gateway:  "http://localhost:8081",
		Color:    true,
		Store:    filepath.Join(dir, "universes.db"),
		Segments: filepath.Join(dir, "segments.json"),
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/weavectl, falling back to ~/.config.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "weavectl")
}

func ProfilePath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadProfile reads path over the defaults. A missing file is not an error.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := toml.Decode(string(data), p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func SaveProfile(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}

var profileKeys = map[string]func(p *Profile, v string) error{
	"gateway":  func(p *Profile, v string) error { p.Gateway = v; return nil },
	"universe": func(p *Profile, v string) error { p.Universe = v; return nil },
	"store":    func(p *Profile, v string) error { p.Store = v; return nil },
	"segments": func(p *Profile, v string) error { p.Segments = v; return nil },
	"color": func(p *Profile, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("color: %w", err)
		}
		p.Color = b
		return nil
	},
}

// Set assigns one profile key by name.
func (p *Profile) Set(key, value string) error {
	set, ok := profileKeys[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		keys := make([]string, 0, len(profileKeys))
		for k := range profileKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown key %q (want one of %s)", key, strings.Join(keys, ", "))
	}
	return set(p, strings.TrimSpace(value))
}
