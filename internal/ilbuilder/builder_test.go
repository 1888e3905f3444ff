package ilbuilder

import (
	"testing"

	"github.com/pilc-lang/pilc/internal/diag"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/options"
	"github.com/pilc-lang/pilc/internal/types"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(ids.New("test"), "-", options.Default(), diag.NewBag())
}

func pushTestFunction(t *testing.T, b *Builder, name string) *il.FuncDecl {
	t.Helper()
	decl := &il.FuncDecl{ID: ids.New(name), CC: il.CCHILTI}
	b.PushFunction(decl, false)
	return decl
}

func TestPushPopFunctionRoundTrips(t *testing.T) {
	b := newTestBuilder(t)
	decl := pushTestFunction(t, b, "f")
	if b.CurrentFunction() != decl {
		t.Fatalf("expected current function to be %v", decl)
	}
	popped := b.PopFunction()
	if popped != decl {
		t.Fatalf("expected PopFunction to return the pushed decl")
	}
	if b.CurrentFunction() != nil {
		t.Fatalf("expected no current function after popping the only one")
	}
}

func TestPushNBuildersThenPopByReferenceDropsEverythingAboveIt(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")
	entry := b.CurrentBuilder() // PushFunction already pushed an initial body+builder

	b1 := b.PushBuilder("b1")
	b2 := b.PushBuilder("b2")
	b3 := b.PushBuilder("b3")
	_ = b2
	_ = b3

	b.PopBuilder(b1)

	if got := b.CurrentBuilder(); got != entry {
		t.Fatalf("expected popping b1 to drop b1/b2/b3 and restore the entry builder, got %v", got)
	}
}

func TestPushBuilderMintsUniqueLabels(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")

	first := b.PushBuilder("loop")
	second := b.PushBuilder("loop")
	if first.Block().Label == second.Block().Label {
		t.Fatalf("expected distinct labels, both were %q", first.Block().Label)
	}
}

func TestAddLocalForceUniqueSuffixesName(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")

	first := b.AddLocal(ids.New("x"), types.Integer{Width: 32}, nil, Reuse)
	second := b.AddLocal(ids.New("x"), types.Bytes, nil, MakeUnique)

	if first.ID.Name() != "x" {
		t.Fatalf("expected first local named x, got %s", first.ID.Name())
	}
	if second.ID.Name() == "x" {
		t.Fatalf("expected second local to get a disambiguated name, got %s", second.ID.Name())
	}
}

func TestAddLocalReuseReturnsSameDeclarationForMatchingType(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")

	first := b.AddLocal(ids.New("x"), types.Integer{Width: 32}, nil, Reuse)
	second := b.AddLocal(ids.New("x"), types.Integer{Width: 32}, nil, Reuse)
	if first != second {
		t.Fatalf("expected Reuse with matching type to return the same *il.Declaration")
	}
}

func TestAddLocalCheckUniqueFatalsOnCollision(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")
	b.AddLocal(ids.New("x"), types.Bytes, nil, Reuse)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected CheckUnique collision to panic with an InternalError")
		}
		if _, ok := r.(*diag.InternalError); !ok {
			t.Fatalf("expected *diag.InternalError panic, got %T", r)
		}
	}()
	b.AddLocal(ids.New("x"), types.Bytes, nil, CheckUnique)
}

func TestImportModuleIsIdempotentCaseInsensitive(t *testing.T) {
	b := newTestBuilder(t)
	b.ImportModule(ids.New("Foo"))
	b.ImportModule(ids.New("foo"))
	if len(b.Module().Imports) != 1 {
		t.Fatalf("expected exactly one import after two case-variant ImportModule calls, got %d", len(b.Module().Imports))
	}
	if !b.Imported(ids.New("FOO")) {
		t.Fatalf("expected Imported to match case-insensitively")
	}
}

func TestAddTmpAlwaysMintsFreshNameUnlessReuse(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")

	a := b.AddTmp("x", types.Bytes, nil, false)
	c := b.AddTmp("x", types.Bytes, nil, false)
	if a.ID.Name() == c.ID.Name() {
		t.Fatalf("expected two non-reuse AddTmp calls to mint distinct names")
	}

	d := b.AddTmp("x", types.Bytes, nil, true)
	e := b.AddTmp("x", types.Bytes, nil, true)
	if d.ID.Name() != e.ID.Name() {
		t.Fatalf("expected reuse=true AddTmp calls with the same hint to return the same tmp")
	}
}

func TestCacheNodeRoundTrips(t *testing.T) {
	b := newTestBuilder(t)
	b.CacheNode("compose", "unit::field", 42)
	v, ok := b.LookupNode("compose", "unit::field")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected cached node to round-trip, got %v, %v", v, ok)
	}
	if _, ok := b.LookupNode("compose", "other"); ok {
		t.Fatalf("expected no cached node under an unused key")
	}
}

func TestCacheBlockBuilderOnlyBuildsOnce(t *testing.T) {
	b := newTestBuilder(t)
	pushTestFunction(t, b, "f")

	calls := 0
	build := func(bb *BlockBuilder) {
		calls++
		bb.Emit(il.Instruction{Op: il.OpComment, Comment: "built"})
	}

	first := b.CacheBlockBuilder("shared", build)
	second := b.CacheBlockBuilder("shared", build)
	if first != second {
		t.Fatalf("expected CacheBlockBuilder to return the same builder on the second call")
	}
	if calls != 1 {
		t.Fatalf("expected build callback to run exactly once, ran %d times", calls)
	}
}

func TestPushModuleInitSharesOneUnderlyingFunction(t *testing.T) {
	b := newTestBuilder(t)

	first := b.PushModuleInit()
	first.Emit(il.Instruction{Op: il.OpComment, Comment: "first"})
	b.PopModuleInit()

	second := b.PushModuleInit()
	second.Emit(il.Instruction{Op: il.OpComment, Comment: "second"})
	b.PopModuleInit()

	if first.owner != second.owner {
		t.Fatalf("expected both pushModuleInit sessions to share the same underlying init function")
	}
}
