package target

import "halbuild/pkg/config"

// Every compiled target receives the same fixed flag set: warnings as
// errors, the extra warning classes, and the pinned language standard.
// Debug symbols come from the profile pair below.
func baseFlags() []string {
	return []string{
		"-std=c++20",
		"-Werror",
		"-Wall",
		"-Wextra",
		"-Wshadow",
		"-Wconversion",
		"-Wdouble-promotion",
		"-fno-exceptions",
		"-fno-rtti",
	}
}

// debugProfileFlags returns the optimization/debug-info pair for the debug
// profile. OptimizeDebugBuild selects light optimization with full debug
// info over no optimization with full debug info.
func debugProfileFlags(opts config.Options) []string {
	if opts.OptimizeDebugBuild {
		return []string{"-Og", "-g"}
	}
	return []string{"-O0", "-g"}
}

// sizeOptimizedFlags is the profile for the size-optimized library variant.
func sizeOptimizedFlags() []string {
	return []string{"-Os", "-g"}
}

// coverageFlags instrument test binaries. Applied to both compile and link.
func coverageFlags() []string {
	return []string{"--coverage"}
}

// sanitizerFlags enable the memory-safety sanitizer on host test builds
// when the capability probe found support.
func sanitizerFlags() []string {
	return []string{"-fsanitize=address", "-fno-omit-frame-pointer"}
}
