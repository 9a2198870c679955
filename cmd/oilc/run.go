package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/xlab/treeprint"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/oil"
	"github.com/gogpu/oil/compose"
	"github.com/gogpu/oil/preprocess"
)

type runner struct {
	proj   *project
	logger hclog.Logger
	ui     *ui
	dump   bool
}

// composer registers every project module.
func (r *runner) composer() (*compose.Composer, error) {
	c := oil.NewComposer(
		oil.WithLogger(r.logger),
		oil.WithRequireVirtual(r.proj.RequireVirtual),
	)
	modules, err := r.proj.modules(r.logger)
	if err != nil {
		return nil, err
	}
	if err := oil.AddModules(c, modules); err != nil {
		return nil, err
	}
	r.logger.Info("modules registered", "count", len(modules))
	return c, nil
}

// run composes every entry concurrently and writes the results in entry
// order. Failures of different entries are reported together.
func (r *runner) run(ctx context.Context) error {
	c, err := r.composer()
	if err != nil {
		return err
	}

	entries := r.proj.Entries
	results := make([]*compose.Result, len(entries))
	errs := make([]error, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			desc, err := r.proj.descriptor(e)
			if err == nil {
				results[i], err = c.Compose(desc)
			}
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", e.Source, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var result *multierror.Error
	for i, e := range entries {
		if errs[i] != nil {
			result = multierror.Append(result, errs[i])
			continue
		}
		r.ui.diagnostics(e.Source, results[i].Diagnostics)
		if err := r.write(e, results[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (r *runner) write(e entryConfig, res *compose.Result) error {
	var text string
	if r.dump {
		cfg := &spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		text = cfg.Sdump(res.Module)
	} else {
		var err error
		if text, err = res.Text(); err != nil {
			return fmt.Errorf("%s: %w", e.Source, err)
		}
	}

	out := r.proj.output(e)
	if out == "" {
		if len(r.proj.Entries) > 1 {
			fmt.Fprintf(r.ui.out, "// %s\n", e.Source)
		}
		_, err := fmt.Fprint(r.ui.out, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	r.logger.Info("wrote shader", "entry", e.Source, "output", out, "bytes", len(text))
	return nil
}

// trees prints the imports of each entry, following every conditional
// branch of the registered modules.
func (r *runner) trees() error {
	c, err := r.composer()
	if err != nil {
		return err
	}
	for _, e := range r.proj.Entries {
		desc, err := r.proj.descriptor(e)
		if err != nil {
			return err
		}
		meta, err := preprocess.New(preprocess.Options{AllowDefines: true, Path: desc.FilePath}).Metadata(desc.Source)
		if err != nil {
			return err
		}
		root := treeprint.NewWithRoot(e.Source)
		for _, imp := range meta.Imports {
			node, err := c.ImportTree(imp.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Source, err)
			}
			node.Alias, node.Partial = imp.Alias, imp.Partial()
			addImport(root, node)
		}
		fmt.Fprint(r.ui.out, root.String())
	}
	return nil
}

func addImport(parent treeprint.Tree, node *compose.ImportNode) {
	label := node.Name
	switch {
	case node.Alias != "":
		label += " as " + node.Alias
	case node.Partial:
		label += " (partial)"
	}
	if len(node.Children) == 0 {
		parent.AddNode(label)
		return
	}
	branch := parent.AddBranch(label)
	for _, child := range node.Children {
		addImport(branch, child)
	}
}
