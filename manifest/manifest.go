// Package manifest handles superbasic.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/superbasic/vm"
)

// FileName is the manifest file looked up next to programs.
const FileName = "superbasic.toml"

// Manifest represents a superbasic.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Run     RunConfig   `toml:"run"`
	Log     LogConfig   `toml:"log"`
	Image   ImageConfig `toml:"image"`

	// Dir is the directory containing the superbasic.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// RunConfig configures how programs are run.
type RunConfig struct {
	Desktop bool     `toml:"desktop"`
	Debug   bool     `toml:"debug"`
	Step    bool     `toml:"step"`
	Events  string   `toml:"events"`
	Args    []string `toml:"args"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// ImageConfig configures image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// Load parses a superbasic.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if _, err := vm.ParseEventPolicy(m.Run.Events); err != nil {
		return nil, fmt.Errorf("%s: run.events: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a superbasic.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EventPolicy returns the configured event re-entrancy policy.
func (m *Manifest) EventPolicy() vm.EventPolicy {
	p, _ := vm.ParseEventPolicy(m.Run.Events)
	return p
}

// EntryPath returns the absolute path of the entry program, or "" when
// none is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// ImagePath returns the absolute path for compiled images, or "" when none
// is configured.
func (m *Manifest) ImagePath() string {
	if m.Image.Output == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Image.Output)
}
