package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/oil/compose"
	"github.com/gogpu/oil/ir"
	"github.com/gogpu/oil/preprocess"
)

// project is the YAML project file:
//
//	modules: ["lib/**/*.wgsl"]
//	defs: {LEVEL: 3u, BIG_NUMBER: true}
//	validate: collect
//	entries:
//	  - source: main.wgsl
//	    output: out/main.wgsl
//	    defs: {TONEMAP: 1}
//
// Relative paths are resolved against the directory of the file.
type project struct {
	Modules        []string       `yaml:"modules"`
	Defs           map[string]any `yaml:"defs"`
	Validate       string         `yaml:"validate"`
	Prune          bool           `yaml:"prune"`
	RequireVirtual bool           `yaml:"require_virtual"`
	Entries        []entryConfig  `yaml:"entries"`

	dir string
	// extraGlobs come from -m and are relative to the working directory.
	extraGlobs []string
	// overrides come from -D.
	overrides preprocess.ShaderDefs
}

type entryConfig struct {
	Source string         `yaml:"source"`
	Output string         `yaml:"output"`
	Lang   string         `yaml:"lang"`
	Defs   map[string]any `yaml:"defs"`

	// fromArgs marks entries named on the command line; their paths are
	// relative to the working directory.
	fromArgs bool
}

func loadProject(path string) (*project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	return parseProject(data, filepath.Dir(path))
}

func parseProject(data []byte, dir string) (*project, error) {
	var p project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	for i, e := range p.Entries {
		if e.Source == "" {
			return nil, fmt.Errorf("project entry %d has no source", i+1)
		}
	}
	p.dir = dir
	return &p, nil
}

// path resolves a path written in the project file.
func (p *project) path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.dir, rel)
}

// moduleFiles expands the module globs. Each file appears once, in the
// order its first pattern produced it.
func (p *project) moduleFiles(logger hclog.Logger) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(dir string, patterns []string) error {
		for _, pattern := range patterns {
			matches, err := expandGlob(dir, pattern)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				logger.Warn("module pattern matched no files", "pattern", pattern)
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					files = append(files, m)
				}
			}
		}
		return nil
	}
	if err := add(p.dir, p.Modules); err != nil {
		return nil, err
	}
	if err := add(".", p.extraGlobs); err != nil {
		return nil, err
	}
	return files, nil
}

func expandGlob(dir, pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if !filepath.IsAbs(base) {
		base = filepath.Join(dir, base)
	}
	if !doublestar.ValidatePattern(rest) {
		return nil, fmt.Errorf("bad module pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(base), rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}
	sort.Strings(matches)
	for i, m := range matches {
		matches[i] = filepath.Join(base, filepath.FromSlash(m))
	}
	return matches, nil
}

// modules reads the module files.
func (p *project) modules(logger hclog.Logger) ([]compose.ModuleDescriptor, error) {
	files, err := p.moduleFiles(logger)
	if err != nil {
		return nil, err
	}
	descs := make([]compose.ModuleDescriptor, 0, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read module: %w", err)
		}
		language, _, err := languageOf(f, "")
		if err != nil {
			return nil, err
		}
		descs = append(descs, compose.ModuleDescriptor{Source: string(src), FilePath: f, Language: language})
	}
	return descs, nil
}

// descriptor builds the compose request for one entry. Defs layer as
// project, entry, then -D.
func (p *project) descriptor(e entryConfig) (compose.ComposeDescriptor, error) {
	path := e.Source
	if !e.fromArgs {
		path = p.path(e.Source)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return compose.ComposeDescriptor{}, fmt.Errorf("read entry: %w", err)
	}
	language, stage, err := languageOf(path, e.Lang)
	if err != nil {
		return compose.ComposeDescriptor{}, err
	}
	mode, err := compose.ParseValidateMode(p.validateMode())
	if err != nil {
		return compose.ComposeDescriptor{}, err
	}

	defs := preprocess.ShaderDefs{}
	for _, layer := range []map[string]any{p.Defs, e.Defs} {
		parsed, err := toDefs(layer)
		if err != nil {
			return compose.ComposeDescriptor{}, fmt.Errorf("%s: %w", e.Source, err)
		}
		for k, v := range parsed {
			defs[k] = v
		}
	}
	for k, v := range p.overrides {
		defs[k] = v
	}

	return compose.ComposeDescriptor{
		Source:     string(src),
		FilePath:   path,
		Language:   language,
		ShaderType: stage,
		Defs:       defs,
		Validate:   mode,
		Prune:      p.Prune,
	}, nil
}

func (p *project) validateMode() string {
	if p.Validate == "" {
		return compose.ValidateFatal.String()
	}
	return p.Validate
}

// output resolves where an entry is written; empty means stdout.
func (p *project) output(e entryConfig) string {
	if e.fromArgs {
		return e.Output
	}
	return p.path(e.Output)
}

// languageOf picks the language from an explicit name or the extension.
func languageOf(path, explicit string) (ir.Language, ir.ShaderStage, error) {
	name := explicit
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".wgsl":
			name = "wgsl"
		case ".vert":
			name = "glsl-vertex"
		case ".frag":
			name = "glsl-fragment"
		case ".comp":
			name = "glsl-compute"
		case ".glsl":
			name = "glsl"
		default:
			return 0, 0, fmt.Errorf("%s: cannot tell the language from the extension; use -lang", path)
		}
	}
	switch name {
	case "wgsl":
		return ir.LanguageWGSL, ir.StageNone, nil
	case "glsl":
		return ir.LanguageGLSL, ir.StageNone, nil
	case "glsl-vertex":
		return ir.LanguageGLSL, ir.StageVertex, nil
	case "glsl-fragment":
		return ir.LanguageGLSL, ir.StageFragment, nil
	case "glsl-compute":
		return ir.LanguageGLSL, ir.StageCompute, nil
	}
	return 0, 0, fmt.Errorf("unknown language %q", name)
}

// toDefs converts YAML def values. Booleans stay booleans; numbers and
// strings go through preprocess.ParseTypedValue, so 3u is unsigned.
func toDefs(raw map[string]any) (preprocess.ShaderDefs, error) {
	defs := make(preprocess.ShaderDefs, len(raw))
	for name, v := range raw {
		if b, ok := v.(bool); ok {
			defs[name] = preprocess.Bool(b)
			continue
		}
		val, err := preprocess.ParseTypedValue(fmt.Sprint(v))
		if err != nil {
			return nil, fmt.Errorf("def %s: %w", name, err)
		}
		defs[name] = val
	}
	return defs, nil
}

// defsFlag collects -D NAME[=VALUE] flags.
type defsFlag struct {
	defs preprocess.ShaderDefs
}

func (f *defsFlag) String() string {
	if f == nil || len(f.defs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.defs))
	for _, name := range f.defs.Names() {
		parts = append(parts, name+"="+f.defs[name].String())
	}
	return strings.Join(parts, ",")
}

func (f *defsFlag) Set(s string) error {
	name, value, _ := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty def name in %q", s)
	}
	v, err := preprocess.ParseTypedValue(value)
	if err != nil {
		return err
	}
	if f.defs == nil {
		f.defs = preprocess.ShaderDefs{}
	}
	f.defs[name] = v
	return nil
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
