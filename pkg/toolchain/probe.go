package toolchain

import (
	"context"
	"os"
	osexec "os/exec"
	"time"

	"halbuild/pkg/exec"
	"halbuild/pkg/logx"
)

// Prober performs the once-per-pass tool detection. Probe results are
// cached in the optional SQLite cache keyed by the binary's identity.
type Prober struct {
	exec      exec.Executor
	cache     *Cache
	logger    *logx.Logger
	lookPath  func(string) (string, error)
	cacheHits int
}

// NewProber creates a prober. The cache may be nil, in which case every
// probe executes the tool.
func NewProber(executor exec.Executor, cache *Cache) *Prober {
	return &Prober{
		exec:     executor,
		cache:    cache,
		logger:   logx.NewLogger("toolchain"),
		lookPath: osexec.LookPath,
	}
}

// CacheHits returns how many probes were answered from the cache.
func (p *Prober) CacheHits() int {
	return p.cacheHits
}

// Detect probes the full tool set for the given cross prefix and computes
// the capability flags. Missing tools are non-fatal here: rules that need
// a tool fail later, naming it.
func (p *Prober) Detect(ctx context.Context, prefix string) (*Toolchain, error) {
	tc := &Toolchain{Prefix: prefix}

	tc.Compiler = p.probe(ctx, KindCompiler, prefix+"g++")
	tc.Archiver = p.probe(ctx, KindArchiver, prefix+"ar")
	tc.Objcopy = p.probe(ctx, KindObjcopy, prefix+"objcopy")
	tc.Objdump = p.probe(ctx, KindObjdump, prefix+"objdump")
	tc.Size = p.probe(ctx, KindSize, prefix+"size")
	// clang-tidy is a host tool and never carries the cross prefix.
	tc.ClangTidy = p.probe(ctx, KindClangTidy, "clang-tidy")

	tc.Caps = Capabilities{
		CrossCompiling: prefix != "",
		StaticAnalysis: tc.ClangTidy.Found,
	}

	// Sanitizers only apply to host test builds.
	if !tc.Caps.CrossCompiling && tc.Compiler.Found {
		tc.Caps.AddressSanitizer = p.sanitizerSupported(ctx, tc.Compiler)
	}

	return tc, nil
}

// probe locates one tool and determines its version, consulting the cache
// before executing `--version`. A version below the minimum supported one
// is treated identically to "not found".
func (p *Prober) probe(ctx context.Context, kind Kind, binary string) Tool {
	tool := Tool{Kind: kind, Name: binary}

	path, err := p.lookPath(binary)
	if err != nil {
		p.logger.Warn("%s not found in PATH, dependent features disabled", binary)
		return tool
	}
	tool.Path = path
	tool.Found = true

	version, fromCache := p.cachedVersion(path)
	if !fromCache {
		version = p.executeVersionProbe(ctx, path)
		p.storeVersion(binary, path, version)
	} else {
		p.cacheHits++
	}
	tool.Version = version

	if min, ok := MinVersion(kind); ok && !version.AtLeast(min) {
		p.logger.Warn("%s version %s is below minimum supported %s, treating as not found",
			binary, version, min)
		tool.Found = false
		tool.Path = ""
	}

	return tool
}

// cachedVersion consults the probe cache for a previously parsed version.
func (p *Prober) cachedVersion(path string) (Version, bool) {
	if p.cache == nil {
		return Version{}, false
	}

	key, err := ProbeKey(path)
	if err != nil {
		return Version{}, false
	}

	entry, ok, err := p.cache.Lookup(key)
	if err != nil {
		p.logger.Warn("probe cache lookup failed: %v", err)
		return Version{}, false
	}
	if !ok {
		return Version{}, false
	}

	version, parsed := ParseVersion(entry.Version)
	if !parsed {
		return Version{}, false
	}

	p.logger.Debug("probe cache hit for %s (%s)", entry.Name, entry.Version)
	return version, true
}

func (p *Prober) storeVersion(name, path string, version Version) {
	if p.cache == nil {
		return
	}

	key, err := ProbeKey(path)
	if err != nil {
		return
	}

	entry := Entry{
		Key:      key,
		Name:     name,
		Path:     path,
		Version:  version.String(),
		ProbedAt: time.Now().UTC(),
	}
	if err := p.cache.Store(entry); err != nil {
		p.logger.Warn("probe cache store failed: %v", err)
	}
}

// executeVersionProbe runs `<tool> --version` and parses the version out of
// its output. A tool that prints no recognizable version keeps version zero.
func (p *Prober) executeVersionProbe(ctx context.Context, path string) Version {
	opts := exec.DefaultOpts()
	opts.Timeout = 30 * time.Second

	result, err := p.exec.Run(ctx, []string{path, "--version"}, &opts)
	if err != nil || result.ExitCode != 0 {
		p.logger.Debug("version probe failed for %s", path)
		return Version{}
	}

	version, ok := ParseVersion(result.Stdout)
	if !ok {
		version, _ = ParseVersion(result.Stderr)
	}
	return version
}

// sanitizerSupported checks whether the compiler accepts -fsanitize=address
// by running a syntax-only compile of an empty translation unit.
func (p *Prober) sanitizerSupported(ctx context.Context, compiler Tool) bool {
	opts := exec.DefaultOpts()
	opts.Timeout = 30 * time.Second

	cmd := []string{
		compiler.Path,
		"-fsanitize=address",
		"-fsyntax-only",
		"-x", "c++",
		os.DevNull,
	}

	result, err := p.exec.Run(ctx, cmd, &opts)
	if err != nil {
		p.logger.Warn("sanitizer probe could not run %s: %v", compiler.Name, err)
		return false
	}
	if result.ExitCode != 0 {
		p.logger.Warn("%s does not support -fsanitize=address, sanitizer disabled", compiler.Name)
		return false
	}
	return true
}
