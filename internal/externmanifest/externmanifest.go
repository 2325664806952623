// Package externmanifest resolves `extern(lib=...)` / `cimport`
// declarations against a `pythoc.yaml` manifest describing the external
// libraries a driver session may link against, so an unresolvable
// extern declaration fails fast with a diagnostic instead of deferring
// the question to the linker. A manifest entry may name a companion Go
// shim package, introspected via golang.org/x/tools/go/packages, whose
// signatures are checked against the declared extern shape rather than
// trusting a hand-written declaration blindly.
package externmanifest

import (
	"fmt"
	"go/types"
	"os"

	"golang.org/x/tools/go/packages"
	"gopkg.in/yaml.v3"

	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
)

// Library is one `extern(lib=...)` group's manifest entry.
type Library struct {
	Name     string `yaml:"name"`
	CallConv string `yaml:"calling_convention,omitempty"`

	// GoShimPackage optionally names a companion Go package whose exported
	// function signatures are treated as ground truth for validating a
	// declared extern function's parameter count before IR emission is
	// attempted.
	GoShimPackage string `yaml:"go_shim_package,omitempty"`
}

// Manifest is the parsed `pythoc.yaml` document.
type Manifest struct {
	Libraries []Library `yaml:"libraries"`
}

// Load parses a pythoc.yaml manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("externmanifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("externmanifest: parsing %s: %w", path, err)
	}
	return &m, nil
}

// Lookup finds a declared library by tag.
func (m *Manifest) Lookup(name string) (Library, bool) {
	for _, lib := range m.Libraries {
		if lib.Name == name {
			return lib, true
		}
	}
	return Library{}, false
}

// Resolver validates extern/cimport declarations against a Manifest,
// reporting ExternSignatureMismatch for anything it cannot confirm.
type Resolver struct {
	manifest *Manifest
	bag      *diagnostics.Bag
	// loaded memoizes package-introspection results by import path so a
	// shim package referenced by multiple extern declarations is only
	// loaded once per session.
	loaded map[string]*packages.Package
}

// NewResolver returns a Resolver backed by manifest, reporting into bag.
func NewResolver(manifest *Manifest, bag *diagnostics.Bag) *Resolver {
	return &Resolver{manifest: manifest, bag: bag, loaded: make(map[string]*packages.Package)}
}

// ResolveLibrary confirms lib is declared in the manifest, reporting
// ExternSignatureMismatch (reused as the "unknown library" case — there
// is no dedicated diagnostic kind for it) if not.
func (r *Resolver) ResolveLibrary(lib string, at token.Token) (Library, bool) {
	entry, ok := r.manifest.Lookup(lib)
	if !ok {
		r.bag.Add(diagnostics.New(diagnostics.ExternSignatureMismatch, at,
			"extern library %q is not declared in the manifest", lib))
		return Library{}, false
	}
	return entry, true
}

// ValidateSignature confirms that funcName, declared with paramCount
// parameters, exists in entry's companion Go shim package (when one is
// configured) with a matching parameter count. It loads the shim
// package once per session via golang.org/x/tools/go/packages and
// reports ExternSignatureMismatch on any discrepancy.
func (r *Resolver) ValidateSignature(entry Library, funcName string, paramCount int, at token.Token) bool {
	if entry.GoShimPackage == "" {
		return true // no shim configured: nothing to check against
	}

	pkg, err := r.load(entry.GoShimPackage)
	if err != nil {
		r.bag.Add(diagnostics.New(diagnostics.ExternSignatureMismatch, at,
			"extern %q: loading shim package %q: %s", funcName, entry.GoShimPackage, err))
		return false
	}

	obj := pkg.Types.Scope().Lookup(funcName)
	if obj == nil {
		r.bag.Add(diagnostics.New(diagnostics.ExternSignatureMismatch, at,
			"extern %q: no matching symbol in shim package %q", funcName, entry.GoShimPackage))
		return false
	}
	sig, ok := obj.Type().(*types.Signature)
	if !ok {
		r.bag.Add(diagnostics.New(diagnostics.ExternSignatureMismatch, at,
			"extern %q: shim symbol %q is not a function", funcName, funcName))
		return false
	}
	if sig.Params().Len() != paramCount {
		r.bag.Add(diagnostics.New(diagnostics.ExternSignatureMismatch, at,
			"extern %q: declared with %d parameter(s), shim has %d", funcName, paramCount, sig.Params().Len()))
		return false
	}
	return true
}

func (r *Resolver) load(importPath string) (*packages.Package, error) {
	if pkg, ok := r.loaded[importPath]; ok {
		return pkg, nil
	}
	cfg := &packages.Config{Mode: packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName}
	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 || pkgs[0].Types == nil {
		return nil, fmt.Errorf("package %q not found or failed to type-check", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package %q has errors: %v", importPath, pkgs[0].Errors[0])
	}
	r.loaded[importPath] = pkgs[0]
	return pkgs[0], nil
}
