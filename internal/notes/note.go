package notes

import (
	"errors"
	"time"

	"github.com/kuitang/yanote/internal/errs"
)

// DuplicateSlugWarning is appended to a taken slug in the form error shown to
// the user.
const DuplicateSlugWarning = " - такой slug уже существует, придумайте уникальное значение!"

// Field limits.
const (
	MaxTitleLength = 100
	MaxSlugLength  = 100
)

// Errors
var (
	ErrNotFound        = errs.New(errs.NotFound, "note not found")
	ErrForbidden       = errs.New(errs.PermissionDenied, "only the author may change this note")
	ErrUnauthenticated = errs.New(errs.Unauthenticated, "sign in to write notes")
	ErrEmptySlug       = errs.New(errs.InvalidArgument, "slug cannot be derived from the title")

	// ErrDuplicateSlug matches every *DuplicateSlugError via errors.Is.
	ErrDuplicateSlug = errors.New("duplicate slug")
)

// DuplicateSlugError reports a write rejected because another note already
// uses Slug.
type DuplicateSlugError struct {
	Slug string
}

// Error is the user-facing form message: the slug followed by the warning.
func (e *DuplicateSlugError) Error() string {
	return e.Slug + DuplicateSlugWarning
}

func (e *DuplicateSlugError) Is(target error) bool {
	return target == ErrDuplicateSlug
}

func (e *DuplicateSlugError) ErrCode() errs.Code {
	return errs.FailedPrecondition
}

// Note is a titled text owned by its author and addressed by a unique slug.
type Note struct {
	ID        string
	Title     string
	Text      string
	Slug      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateParams contains parameters for creating a note. An empty Slug is
// derived from Title.
type CreateParams struct {
	Title string
	Text  string
	Slug  string
}

// UpdateParams replaces a note's editable fields. An empty Slug is derived
// from the new Title.
type UpdateParams struct {
	Title string
	Text  string
	Slug  string
}

// noteRow is the notes table layout.
type noteRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Text      string `db:"text"`
	Slug      string `db:"slug"`
	AuthorID  string `db:"author_id"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r noteRow) toNote() Note {
	return Note{
		ID:        r.ID,
		Title:     r.Title,
		Text:      r.Text,
		Slug:      r.Slug,
		AuthorID:  r.AuthorID,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

var noteColumns = []string{"id", "title", "text", "slug", "author_id", "created_at", "updated_at"}
