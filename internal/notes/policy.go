package notes

import "github.com/kuitang/yanote/internal/auth"

// Operation is an action on a single note.
type Operation int

const (
	OpView Operation = iota
	OpEdit
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpView:
		return "view"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an access check.
type Decision int

const (
	// NotFound hides the note. Foreign and missing notes look the same.
	NotFound Decision = iota
	Allow
)

// CanAccess decides whether id may perform op on note. Only the author is
// allowed, for every operation; everyone else gets NotFound rather than a
// forbidden response so note existence does not leak.
func CanAccess(id auth.Identity, note *Note, op Operation) Decision {
	if note == nil || !id.IsAuthenticated() {
		return NotFound
	}
	switch op {
	case OpView, OpEdit, OpDelete:
		if note.AuthorID == id.UserID {
			return Allow
		}
	}
	return NotFound
}
