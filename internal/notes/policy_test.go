package notes

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/kuitang/yanote/internal/auth"
)

func testCanAccess_Properties(t *rapid.T) {
	authorID := rapid.StringMatching(`[a-z0-9]{1,12}`).Draw(t, "author")
	actorID := rapid.StringMatching(`[a-z0-9]{0,12}`).Draw(t, "actor")
	op := Operation(rapid.IntRange(int(OpView), int(OpDelete)).Draw(t, "op"))

	note := &Note{ID: "n1", AuthorID: authorID, Slug: "s"}
	got := CanAccess(auth.Identity{UserID: actorID}, note, op)

	want := NotFound
	if actorID != "" && actorID == authorID {
		want = Allow
	}
	if got != want {
		t.Fatalf("CanAccess(%q on %q, %s) = %v, want %v", actorID, authorID, op, got, want)
	}
}

func TestCanAccess_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCanAccess_Properties)
}

func FuzzCanAccess_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testCanAccess_Properties))
}

func TestCanAccess_NilNoteAndUnknownOperation(t *testing.T) {
	t.Parallel()
	id := auth.Identity{UserID: "u1"}
	if got := CanAccess(id, nil, OpView); got != NotFound {
		t.Fatalf("nil note: got=%v", got)
	}
	if got := CanAccess(id, &Note{AuthorID: "u1"}, Operation(99)); got != NotFound {
		t.Fatalf("unknown op: got=%v", got)
	}
	if got := Operation(99).String(); got != "unknown" {
		t.Fatalf("String mismatch: %q", got)
	}
}
