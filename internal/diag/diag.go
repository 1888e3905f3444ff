// Package diag implements the compiler's three-tier error model
// (spec §7): user diagnostics accumulated on a Bag, compiler-internal
// invariant violations that abort the current compilation immediately,
// and (elsewhere, in internal/compose) IL-level runtime throws that
// never reach this package at all.
package diag

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pilc-lang/pilc/internal/ids"
)

// Severity distinguishes hard errors from informational notices raised
// on the same Bag (e.g. debug-verbose traces when Options.Debug > 0).
type Severity int

const (
	SeverityError Severity = iota
	SeverityNote
)

// Diagnostic is one user-facing entry: a message tied to the node (by
// location) that produced it.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location ids.Location
}

func (d Diagnostic) String() string {
	if d.Location.IsSet() {
		return fmt.Sprintf("%s: %s", d.Location, d.Message)
	}
	return d.Message
}

// Located is satisfied by any AST node error() can be called with.
type Located interface {
	Loc() ids.Location
}

// Bag accumulates tier-1 user errors for one compiler invocation.
// Recording an error never panics (only Internal and Fatal do);
// Finalize() (driven from internal/ilbuilder) checks HasErrors() to
// decide whether to return a module or nil.
type Bag struct {
	SessionID   uuid.UUID
	diagnostics []Diagnostic
	errorCount  int
}

// NewBag starts a fresh diagnostics bag stamped with a session ID, so
// a fatal report or an ilwire.SubmitModule call can be correlated back
// to the compile run that produced it.
func NewBag() *Bag {
	return &Bag{SessionID: uuid.New()}
}

// Error records a tier-1 user error: bad input program, not a
// compiler bug. node may be nil if no location is available.
func (b *Bag) Error(msg string, node Located) {
	d := Diagnostic{Severity: SeverityError, Message: msg}
	if node != nil {
		d.Location = node.Loc()
	}
	b.diagnostics = append(b.diagnostics, d)
	b.errorCount++
}

// Errorf is Error with fmt.Sprintf-style formatting.
func (b *Bag) Errorf(node Located, format string, args ...any) {
	b.Error(fmt.Sprintf(format, args...), node)
}

// Note records an informational diagnostic that doesn't affect
// Finalize()'s success/failure decision.
func (b *Bag) Note(msg string, node Located) {
	d := Diagnostic{Severity: SeverityNote, Message: msg}
	if node != nil {
		d.Location = node.Loc()
	}
	b.diagnostics = append(b.diagnostics, d)
}

// HasErrors reports whether any tier-1 error was recorded.
func (b *Bag) HasErrors() bool { return b.errorCount > 0 }

// Diagnostics returns all recorded diagnostics in emission order.
func (b *Bag) Diagnostics() []Diagnostic { return b.diagnostics }

// InternalError is the tier-2 error: a gap in the compiler itself
// (missing implementation, invariant violation). It is always fatal —
// raising one aborts the current compilation via panic/recover rather
// than returning an error value, matching the original's
// internalError(msg) -> ! / fatal_error(msg) -> ! signature.
type InternalError struct {
	Message   string
	SessionID uuid.UUID
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error [session %s]: %s", e.SessionID, e.Message)
}

// Internal raises an InternalError, panicking with it. Callers at the
// top of the pipeline (internal/driver) recover it into a clean
// process exit; no component below the driver should ever recover
// from this itself.
func (b *Bag) Internal(format string, args ...any) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...), SessionID: b.SessionID})
}

// Fatal is fatal_error(msg) -> !: like Internal, but used for
// conditions that are fatal regardless of whether they reflect a
// compiler bug (e.g. CHECK_UNIQUE name collisions in internal/ilbuilder).
func (b *Bag) Fatal(format string, args ...any) {
	b.Internal(format, args...)
}

// Recover turns a panicking *InternalError into a returned error,
// leaving any other panic value to propagate. Intended to be deferred
// once, at the top of a single compiler invocation.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if ie, ok := r.(*InternalError); ok {
			*errp = ie
			return
		}
		panic(r)
	}
}
