// Package driver wires internal/types.Registry, internal/ilbuilder.Builder
// and internal/compose.Composer together into a single entry point:
// compile a set of unit declarations into one finished *il.Module
// (spec §2's driver wiring note).
package driver

import (
	"fmt"

	"github.com/pilc-lang/pilc/internal/ast"
	"github.com/pilc-lang/pilc/internal/compose"
	"github.com/pilc-lang/pilc/internal/diag"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/ilbuilder"
	"github.com/pilc-lang/pilc/internal/options"
	"github.com/pilc-lang/pilc/internal/types"
)

// Unit is one top-level unit declaration the driver compiles, paired
// with whether its compose function should be exported (spec §4.3.2
// compose_<Unit> vs. compose_<Unit>_internal).
type Unit struct {
	AST      *ast.Unit
	Exported bool
}

// Result is everything a successful compile produced.
type Result struct {
	Module *il.Module
	Diags  *diag.Bag
}

// Compile builds a single IL module containing a compose function for
// every unit in units, in order. Units may reference each other (e.g.
// nested/recursive child grammars) — the driver registers all unit
// types with the shared types.Registry before composing any of them,
// so forward references resolve.
//
// A panic carrying a *diag.InternalError is recovered and returned as
// err, so callers never need their own recover (spec §7 tier 2:
// internal_error/fatal_error become a clean
// process exit, not a crash).
func Compile(moduleName string, path string, units []Unit, opts *options.Options) (res Result, err error) {
	if opts == nil {
		opts = options.Default()
	}
	diags := diag.NewBag()
	res.Diags = diags

	defer diag.Recover(&err)

	byName := make(map[string]*ast.Unit, len(units))
	for _, u := range units {
		byName[u.AST.ID.String()] = u.AST
	}

	reg := types.NewRegistry(func(path string) (types.Type, bool) {
		u, ok := byName[path]
		if !ok {
			return nil, false
		}
		return unitStorageType(u), true
	})

	b := ilbuilder.NewBuilder(ids.New(moduleName), path, opts, diags)
	c := compose.New(b, reg, diags, opts)

	for _, u := range units {
		if u.Exported {
			c.CreateHostFunction(u.AST)
		} else {
			c.CreateInternalFunction(u.AST)
		}
	}

	res.Module = b.Finalize()
	return res, nil
}

// unitStorageType is the Type a unit resolves to for the registry's
// UnknownID-resolution callback: a Struct built from the unit's own
// field list, the same shape composeByType/RTTI already know how to
// walk without internal/types ever importing internal/ast.
func unitStorageType(u *ast.Unit) types.Type {
	fields := make([]types.Field, 0, len(u.Fields))
	for _, f := range u.Fields {
		fields = append(fields, types.Field{Name: f.ID.Name(), Type: f.Type})
	}
	st, err := types.NewStruct(fields)
	if err != nil {
		return types.Struct{}
	}
	return st
}

// MustCompile is Compile, panicking on error — used by callers (tests,
// quick CLI invocations) that would just immediately fatal anyway.
func MustCompile(moduleName, path string, units []Unit, opts *options.Options) Result {
	res, err := Compile(moduleName, path, units, opts)
	if err != nil {
		panic(fmt.Sprintf("driver: compile %s: %v", moduleName, err))
	}
	return res
}
