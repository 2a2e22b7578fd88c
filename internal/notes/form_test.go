package notes

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFormFromValues_TrimsFields(t *testing.T) {
	t.Parallel()
	f := FormFromValues(url.Values{
		"title": {"  Заголовок \n"},
		"text":  {"\tТекст "},
		"slug":  {" my-slug "},
	})
	require.Equal(t, &Form{Title: "Заголовок", Text: "Текст", Slug: "my-slug"}, f)
}

func TestFormFromNote(t *testing.T) {
	t.Parallel()
	f := FormFromNote(&Note{Title: "T", Text: "X", Slug: "s", AuthorID: "u"})
	require.Equal(t, &Form{Title: "T", Text: "X", Slug: "s"}, f)
}

func TestForm_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		form  Form
		field string
		msg   string
	}{
		{"missing title", Form{Text: "x"}, FieldTitle, msgRequired},
		{"missing text", Form{Title: "t"}, FieldText, msgRequired},
		{"long title", Form{Title: strings.Repeat("я", 101), Text: "x"}, FieldTitle, fmt.Sprintf(msgTooLong, 100, 101)},
		{"bad slug", Form{Title: "t", Text: "x", Slug: "not a slug"}, FieldSlug, msgInvalidSlug},
		{"cyrillic slug", Form{Title: "t", Text: "x", Slug: "слаг"}, FieldSlug, msgInvalidSlug},
		{"long slug", Form{Title: "t", Text: "x", Slug: strings.Repeat("a", 101)}, FieldSlug, fmt.Sprintf(msgTooLong, 100, 101)},
		{"underivable slug", Form{Title: "!!!", Text: "x"}, FieldSlug, msgSlugFromTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params, fe := tc.form.Validate()
			require.Equal(t, CreateParams{}, params)
			require.True(t, fe.Has(tc.field), "errors: %v", fe)
			require.Equal(t, tc.msg, fe.Get(tc.field))
		})
	}
}

func TestForm_Validate_OK(t *testing.T) {
	t.Parallel()

	f := &Form{Title: "Заголовок", Text: "Текст"}
	params, fe := f.Validate()
	require.Nil(t, fe)
	require.True(t, fe.Empty())
	require.Equal(t, CreateParams{Title: "Заголовок", Text: "Текст"}, params)

	f.Slug = "custom_slug-1"
	params, fe = f.Validate()
	require.Nil(t, fe)
	require.Equal(t, "custom_slug-1", params.Slug)
}

func testForm_Validate_Properties(t *rapid.T) {
	f := &Form{
		Title: rapid.StringMatching(`[A-Za-zА-Яа-я0-9 !?.]{0,120}`).Draw(t, "title"),
		Text:  rapid.StringMatching(`[a-z ]{0,20}`).Draw(t, "text"),
		Slug:  rapid.StringMatching(`[-a-z0-9_ ]{0,110}`).Draw(t, "slug"),
	}

	params, fe := f.Validate()

	titleOK := f.Title != "" && utf8.RuneCountInString(f.Title) <= MaxTitleLength
	textOK := f.Text != ""
	slugOK := (f.Slug == "" && (f.Title == "" || DeriveSlug(f.Title) != "")) ||
		(f.Slug != "" && !strings.Contains(f.Slug, " ") && len(f.Slug) <= MaxSlugLength)

	if titleOK != !fe.Has(FieldTitle) {
		t.Fatalf("title verdict mismatch for %q: errors=%v", f.Title, fe)
	}
	if textOK != !fe.Has(FieldText) {
		t.Fatalf("text verdict mismatch for %q: errors=%v", f.Text, fe)
	}
	if slugOK != !fe.Has(FieldSlug) {
		t.Fatalf("slug verdict mismatch for %q (title %q): errors=%v", f.Slug, f.Title, fe)
	}
	if fe.Empty() != (params != CreateParams{}) {
		t.Fatalf("params returned with errors: params=%+v errors=%v", params, fe)
	}
}

func TestForm_Validate_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testForm_Validate_Properties)
}

func FuzzForm_Validate_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testForm_Validate_Properties))
}

func TestFieldErrors_AddStoreError(t *testing.T) {
	t.Parallel()

	fe := FieldErrors{}
	require.True(t, fe.AddStoreError(fmt.Errorf("wrapped: %w", &DuplicateSlugError{Slug: "taken"})))
	require.Equal(t, "taken"+DuplicateSlugWarning, fe.Get(FieldSlug))

	fe = FieldErrors{}
	require.True(t, fe.AddStoreError(ErrEmptySlug))
	require.Equal(t, msgSlugFromTitle, fe.Get(FieldSlug))

	fe = FieldErrors{}
	require.False(t, fe.AddStoreError(ErrNotFound))
	require.True(t, fe.Empty())
}
