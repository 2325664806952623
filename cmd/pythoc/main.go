// Command pythoc is the thin CLI shell around the compilation driver:
// it discovers pre-parsed translation-unit bundles (the host-syntax
// parser is an external collaborator, so the compiler accepts an
// already-parsed ast.Program per source file, serialized as JSON with
// the config.SourceFileExt extension), runs them through a
// driver.Session, and reports accumulated diagnostics through a
// terminal-aware Reporter.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/config"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/driver"
	"github.com/pythoc-lang/pythoc/internal/irsink"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: pythoc [-color] <file%s>...\n", config.SourceFileExt)
		os.Exit(2)
	}

	reporter := diagnostics.NewReporter(os.Stderr)
	var paths []string
	for _, arg := range os.Args[1:] {
		if arg == "-color" {
			reporter.ForceColor(true)
			continue
		}
		if arg == "-version" {
			fmt.Println(config.Version)
			return
		}
		paths = append(paths, arg)
	}

	units, err := loadUnits(paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sink := &irsink.NullSink{}
	sess := driver.NewSession(registry.NewPrelude(), sink)
	if err := sess.CompileAll(units); err != nil {
		reporter.Report(sess.Bag)
		os.Exit(1)
	}
	reporter.Report(sess.Bag)
	if sess.Bag.HasErrors() {
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "compiled %d symbol(s)\n", len(sink.Emitted))
}

// loadUnits reads every recognized source bundle in paths (expanding
// directories) and decodes its JSON-serialized ast.Program. JSON is a
// deliberately thin wire format here: ast.Statement/Expression are
// interfaces, so a bundle only round-trips the concrete shapes a real
// host-syntax front end would instead hand over in-memory — this path
// exists for smoke-testing the driver end to end, not as the production
// hookup (a real deployment links a parser package that builds
// ast.Program values directly and calls driver.Session.CompileAll).
func loadUnits(paths []string) ([]driver.Unit, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("pythoc: %w", err)
		}
		if info.IsDir() {
			err := filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !fi.IsDir() && isSourceFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("pythoc: %w", err)
			}
			continue
		}
		files = append(files, p)
	}

	units := make([]driver.Unit, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("pythoc: reading %s: %w", f, err)
		}
		var prog ast.Program
		if err := json.Unmarshal(data, &prog); err != nil {
			return nil, fmt.Errorf("pythoc: decoding %s: %w", f, err)
		}
		prog.File = f
		units = append(units, driver.Unit{Program: &prog})
	}
	return units, nil
}

func isSourceFile(path string) bool {
	return strings.HasSuffix(path, config.SourceFileExt)
}
