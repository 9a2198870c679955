// Command oilc is the oil shader composer CLI.
//
// Usage:
//
//	oilc [options] <entry>...
//
// Examples:
//
//	oilc -m 'lib/**/*.wgsl' main.wgsl            # Compose to stdout
//	oilc -D LEVEL=3u -o out.wgsl -m 'lib/*.wgsl' main.wgsl
//	oilc -config oil.yaml                        # Compose every project entry
//	oilc -config oil.yaml -tree                  # Print import trees
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/gogpu/oil"
)

var (
	configPath = flag.String("config", "", "YAML project file")
	output     = flag.String("o", "", "output file for a single entry (default: stdout)")
	lang       = flag.String("lang", "", "entry language: wgsl, glsl-vertex, glsl-fragment, glsl-compute (default: by extension)")
	validate   = flag.String("validate", "", "validation mode: none, fatal, collect (default: fatal)")
	prune      = flag.Bool("prune", false, "drop items no entry point reaches")
	tree       = flag.Bool("tree", false, "print the import tree of each entry instead of composing")
	dump       = flag.Bool("dump", false, "dump the composed IR instead of shader text")
	logLevel   = flag.String("log-level", "warn", "log level: trace, debug, info, warn, error")
	noColor    = flag.Bool("no-color", false, "disable colored output")
	version    = flag.Bool("version", false, "print version")

	defines defsFlag
	globs   listFlag
)

func init() {
	flag.Var(&defines, "D", "shader def `NAME[=VALUE]`; repeatable")
	flag.Var(&globs, "m", "module file `glob`; repeatable, ** matches directories")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("oilc version %s\n", oil.Version)
		return
	}

	ui := newUI(os.Stdout, os.Stderr, *noColor)
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "oilc",
		Level:  hclog.LevelFromString(*logLevel),
		Output: os.Stderr,
		Color:  ui.logColor(),
	})

	proj, err := buildProject(logger)
	if err != nil {
		ui.fail(err)
		os.Exit(1)
	}
	if len(proj.Entries) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no entry specified")
		usage()
		os.Exit(1)
	}

	r := &runner{proj: proj, logger: logger, ui: ui, dump: *dump}
	if *tree {
		err = r.trees()
	} else {
		err = r.run(context.Background())
	}
	if err != nil {
		ui.fail(err)
		os.Exit(1)
	}
}

// buildProject merges the project file with command-line flags. Flags win.
func buildProject(logger hclog.Logger) (*project, error) {
	proj := &project{dir: "."}
	if *configPath != "" {
		p, err := loadProject(*configPath)
		if err != nil {
			return nil, err
		}
		proj = p
	}
	if *validate != "" {
		proj.Validate = *validate
	}
	if *prune {
		proj.Prune = true
	}
	proj.extraGlobs = globs
	proj.overrides = defines.defs

	for _, path := range flag.Args() {
		proj.Entries = append(proj.Entries, entryConfig{Source: path, Lang: *lang, fromArgs: true})
	}
	if *output != "" {
		if len(proj.Entries) != 1 {
			return nil, fmt.Errorf("-o needs exactly one entry, have %d", len(proj.Entries))
		}
		proj.Entries[0].Output = *output
	}
	logger.Debug("project loaded", "config", *configPath, "entries", len(proj.Entries))
	return proj, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: oilc [options] <entry>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  oilc -m 'lib/**/*.wgsl' main.wgsl         Compose to stdout\n")
	fmt.Fprintf(os.Stderr, "  oilc -D LEVEL=3u -o out.wgsl main.wgsl   Compose with a def to a file\n")
	fmt.Fprintf(os.Stderr, "  oilc -config oil.yaml                    Compose a project\n")
	fmt.Fprintf(os.Stderr, "  oilc -config oil.yaml -tree              Print import trees\n")
}
