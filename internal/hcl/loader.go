package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/familiar/internal/config"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ supplies the variables exposed as `env`. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// Load orchestrates the entire HCL configuration loading process: it
// resolves every path to .hcl files, decodes them in order on top of
// config.Default, and validates the result.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	var files []string
	for _, p := range paths {
		found, err := resolvePath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}
	evalCtx := evalContext(environ())
	parser := hclparse.NewParser()
	model := config.Default()
	transportFrom := ""

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, b := range root.Scheduler {
			if err := applyScheduler(&model.Scheduler, b, evalCtx); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		for _, b := range root.Formulas {
			if err := applyFormulas(&model.Formulas, b); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		for _, b := range root.Inventory {
			applyInventory(&model.Inventory, b, filepath.Dir(file))
		}
		for _, b := range root.Transport {
			if transportFrom != "" {
				return nil, fmt.Errorf("in %s: transport %q already declared in %s", file, b.Kind, transportFrom)
			}
			transportFrom = file
			if err := applyTransport(&model.Transport, b); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		for _, b := range root.Server {
			if b.Port != nil {
				model.Server.Port = *b.Port
			}
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "files", len(files), "transport", model.Transport.Kind, "inventory", model.Inventory.Path)
	return model, nil
}

// resolvePath returns path itself if it is an .hcl file, or every .hcl file
// beneath it if it is a directory.
func resolvePath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config path %s: %w", path, err)
	}
	if info.IsDir() {
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("error scanning config directory %s: %w", path, err)
		}
		return files, nil
	}
	if filepath.Ext(path) != ".hcl" {
		return nil, fmt.Errorf("specified file is not an .hcl file: %s", path)
	}
	return []string{path}, nil
}
