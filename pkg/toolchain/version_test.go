package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Version
		ok   bool
	}{
		{
			name: "gcc style",
			text: "arm-none-eabi-g++ (GNU Arm Embedded Toolchain) 12.2.1 20221205",
			want: Version{Major: 12, Minor: 2, Patch: 1},
			ok:   true,
		},
		{
			name: "clang-tidy style",
			text: "LLVM (http://llvm.org/):\n  LLVM version 16.0.6",
			want: Version{Major: 16, Minor: 0, Patch: 6},
			ok:   true,
		},
		{
			name: "two component",
			text: "GNU size (GNU Binutils) 2.40",
			want: Version{Major: 2, Minor: 40},
			ok:   true,
		},
		{
			name: "no version",
			text: "usage: tool [options]",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVersion(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	v14 := Version{Major: 14}

	assert.True(t, Version{Major: 14}.AtLeast(v14))
	assert.True(t, Version{Major: 14, Minor: 0, Patch: 1}.AtLeast(v14))
	assert.True(t, Version{Major: 16, Minor: 0, Patch: 6}.AtLeast(v14))
	assert.False(t, Version{Major: 13, Minor: 9, Patch: 9}.AtLeast(v14))
	assert.False(t, Version{}.AtLeast(v14))
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "12.2.1", Version{Major: 12, Minor: 2, Patch: 1}.String())
	assert.True(t, Version{}.IsZero())
	assert.False(t, Version{Major: 1}.IsZero())
}
