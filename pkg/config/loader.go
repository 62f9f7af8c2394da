package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// rawManifest mirrors Manifest for decoding: option booleans are pointers
// so an absent key can fall back to its default rather than to false.
type rawManifest struct {
	Project   string          `yaml:"project"`
	Options   rawOptions      `yaml:"options"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Library   *LibraryConfig  `yaml:"library"`
	Demos     *DemoConfig     `yaml:"demos"`
}

type rawOptions struct {
	AddBuildOutputs    *bool `yaml:"add_build_outputs"`
	OptimizeDebugBuild *bool `yaml:"optimize_debug_build"`
}

// Load reads and validates a project manifest from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return manifest, nil
}

// Parse decodes a manifest. Unknown keys are fatal: a misspelled field must
// never be silently ignored.
func Parse(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var raw rawManifest
	if err := decoder.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	manifest := &Manifest{
		Project:   raw.Project,
		Options:   resolveOptions(raw.Options),
		Toolchain: raw.Toolchain,
		Library:   raw.Library,
		Demos:     raw.Demos,
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func resolveOptions(raw rawOptions) Options {
	opts := DefaultOptions()
	if raw.AddBuildOutputs != nil {
		opts.AddBuildOutputs = *raw.AddBuildOutputs
	}
	if raw.OptimizeDebugBuild != nil {
		opts.OptimizeDebugBuild = *raw.OptimizeDebugBuild
	}
	return opts
}
