package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullManifest = `
project: libhal-stm32f1
options:
  add_build_outputs: false
  optimize_debug_build: false
toolchain:
  prefix: arm-none-eabi-
  package_paths:
    - .packages
library:
  name: libhal-stm32f1
  sources:
    - src/can.cpp
    - src/uart.cpp
  test_sources:
    - tests/can.test.cpp
  includes:
    - include
  packages:
    - libhal
    - libhal-util
  test_packages:
    - boost-ut
demos:
  names:
    - blinker
  packages:
    - libhal-util
`

func TestParse_FullManifest(t *testing.T) {
	manifest, err := Parse([]byte(fullManifest))
	require.NoError(t, err)

	assert.Equal(t, "libhal-stm32f1", manifest.Project)
	assert.False(t, manifest.Options.AddBuildOutputs)
	assert.False(t, manifest.Options.OptimizeDebugBuild)
	assert.Equal(t, "arm-none-eabi-", manifest.Toolchain.Prefix)

	require.NotNil(t, manifest.Library)
	assert.Equal(t, []string{"src/can.cpp", "src/uart.cpp"}, manifest.Library.Sources)
	assert.Equal(t, []string{"libhal", "libhal-util"}, manifest.Library.Packages)

	require.NotNil(t, manifest.Demos)
	assert.Equal(t, []string{"blinker"}, manifest.Demos.Names)
}

func TestParse_OptionDefaults(t *testing.T) {
	manifest, err := Parse([]byte(`
project: demo-lib
library:
  name: demo-lib
  sources: [a.cpp]
`))
	require.NoError(t, err)

	assert.True(t, manifest.Options.AddBuildOutputs, "add_build_outputs defaults to true")
	assert.True(t, manifest.Options.OptimizeDebugBuild, "optimize_debug_build defaults to true")
}

func TestParse_UnknownKeyIsFatal(t *testing.T) {
	_, err := Parse([]byte(`
project: demo-lib
library:
  name: demo-lib
  sourcez: [a.cpp]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sourcez")
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "empty manifest",
			manifest: "",
			wantErr:  "empty",
		},
		{
			name:     "missing project",
			manifest: "library:\n  name: x\n  sources: [a.cpp]\n",
			wantErr:  "project",
		},
		{
			name:     "no targets",
			manifest: "project: p\n",
			wantErr:  "neither a library nor demos",
		},
		{
			name:     "library without name",
			manifest: "project: p\nlibrary:\n  sources: [a.cpp]\n",
			wantErr:  "requires a name",
		},
		{
			name:     "library without sources",
			manifest: "project: p\nlibrary:\n  name: x\n",
			wantErr:  "no sources",
		},
		{
			name:     "demos without names",
			manifest: "project: p\ndemos:\n  packages: [libhal]\n",
			wantErr:  "no demo names",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "halbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullManifest), 0o644))

	manifest, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "libhal-stm32f1", manifest.Project)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
