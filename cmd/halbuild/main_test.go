package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halbuild/pkg/postbuild"
)

func TestParseOp(t *testing.T) {
	full, err := parseOp("full")
	require.NoError(t, err)
	assert.Len(t, full, 5)

	standard, err := parseOp("standard")
	require.NoError(t, err)
	assert.Equal(t, []postbuild.Kind{postbuild.IntelHex, postbuild.Binary, postbuild.PrintSize}, standard)

	single := map[string]postbuild.Kind{
		"hex":        postbuild.IntelHex,
		"bin":        postbuild.Binary,
		"disasm":     postbuild.Disassemble,
		"disasm-src": postbuild.DisassembleWithSource,
		"size":       postbuild.PrintSize,
	}
	for op, want := range single {
		kinds, err := parseOp(op)
		require.NoError(t, err)
		assert.Equal(t, []postbuild.Kind{want}, kinds)
	}

	_, err = parseOp("bogus")
	assert.Error(t, err)
}

func TestRun_UsageAndVersion(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"frobnicate"}))
	assert.Equal(t, 0, run([]string{"version"}))
}

func TestRunConfigure_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"configure", "-manifest", filepath.Join(dir, "absent.yaml"), "-no-probe-cache"})
	assert.Equal(t, 1, code)
}

func TestRunPostBuild_Validation(t *testing.T) {
	assert.Equal(t, 1, run([]string{"postbuild"}), "-binary is required")

	dir := t.TempDir()
	missing := filepath.Join(dir, "app.elf")
	assert.Equal(t, 1, run([]string{"postbuild", "-binary", missing}))

	require.NoError(t, os.WriteFile(missing, []byte{0x7f, 'E', 'L', 'F'}, 0o755))
	code := run([]string{"postbuild", "-binary", missing, "-op", "bogus"})
	assert.Equal(t, 1, code)
}
