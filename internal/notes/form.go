package notes

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kuitang/yanote/internal/slug"
)

// Form field names.
const (
	FieldTitle = "title"
	FieldText  = "text"
	FieldSlug  = "slug"
)

const (
	msgRequired      = "Обязательное поле."
	msgTooLong       = "Убедитесь, что это значение содержит не более %d символов (сейчас %d)."
	msgInvalidSlug   = "Значение должно состоять только из латинских букв, цифр, знаков подчеркивания или дефиса."
	msgSlugFromTitle = "Не удалось составить slug из заголовка, укажите его вручную."
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Form is the submitted add/edit form, kept as typed strings so it can be
// re-rendered after a failed submission.
type Form struct {
	Title string
	Text  string
	Slug  string
}

// FormFromValues reads the note fields from a parsed request body.
// Surrounding whitespace is stripped.
func FormFromValues(v url.Values) *Form {
	return &Form{
		Title: strings.TrimSpace(v.Get(FieldTitle)),
		Text:  strings.TrimSpace(v.Get(FieldText)),
		Slug:  strings.TrimSpace(v.Get(FieldSlug)),
	}
}

// FormFromNote prefills a form with a note's current values.
func FormFromNote(n *Note) *Form {
	return &Form{Title: n.Title, Text: n.Text, Slug: n.Slug}
}

// FieldErrors maps a field name to its messages. A nil or empty map means the
// form is valid.
type FieldErrors map[string][]string

// Add appends msg to field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Has reports whether field has at least one error.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Get returns the first error for field, or "".
func (fe FieldErrors) Get(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Empty reports whether there are no errors at all.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Validate checks the form without touching storage. On success it returns
// the parameters for Store.Create (convert to UpdateParams for edits) and
// nil errors. Slug uniqueness is enforced by the store.
func (f *Form) Validate() (CreateParams, FieldErrors) {
	fe := FieldErrors{}

	switch n := utf8.RuneCountInString(f.Title); {
	case n == 0:
		fe.Add(FieldTitle, msgRequired)
	case n > MaxTitleLength:
		fe.Add(FieldTitle, fmt.Sprintf(msgTooLong, MaxTitleLength, n))
	}

	if f.Text == "" {
		fe.Add(FieldText, msgRequired)
	}

	if f.Slug != "" {
		if !slugPattern.MatchString(f.Slug) {
			fe.Add(FieldSlug, msgInvalidSlug)
		} else if n := len(f.Slug); n > MaxSlugLength {
			fe.Add(FieldSlug, fmt.Sprintf(msgTooLong, MaxSlugLength, n))
		}
	} else if f.Title != "" && DeriveSlug(f.Title) == "" {
		fe.Add(FieldSlug, msgSlugFromTitle)
	}

	if !fe.Empty() {
		return CreateParams{}, fe
	}
	return CreateParams{Title: f.Title, Text: f.Text, Slug: f.Slug}, nil
}

// AddStoreError attributes a store error to a form field. It returns false
// when err is not a field-level problem.
func (fe FieldErrors) AddStoreError(err error) bool {
	var dup *DuplicateSlugError
	switch {
	case errors.As(err, &dup):
		fe.Add(FieldSlug, dup.Error())
		return true
	case errors.Is(err, ErrEmptySlug):
		fe.Add(FieldSlug, msgSlugFromTitle)
		return true
	}
	return false
}

// DeriveSlug is the slug a note gets when none is supplied.
func DeriveSlug(title string) string {
	return slug.Truncate(slug.Make(title), MaxSlugLength)
}
