package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testTruncate_Properties(t *rapid.T) {
	s := rapid.String().Draw(t, "s")
	n := rapid.IntRange(0, 50).Draw(t, "n")

	got := truncate(s, n)
	if utf8.RuneCountInString(got) > n && utf8.RuneCountInString(s) > n {
		t.Fatalf("truncate(%q, %d) too long: %q", s, n, got)
	}
	if utf8.RuneCountInString(s) <= n && got != s {
		t.Fatalf("short input changed: %q -> %q", s, got)
	}
}

func TestTruncate_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncate_Properties)
}

func testRenderMarkdown_Properties(t *rapid.T) {
	text := rapid.StringMatching(`[а-я *_#\n]{0,40}`).Draw(t, "text")
	payload := rapid.SampledFrom([]string{
		`<script>alert(1)</script>`,
		`<img src=x onerror=alert(1)>`,
		`<a href="javascript:alert(1)">x</a>`,
		`<iframe src="https://evil.example"></iframe>`,
	}).Draw(t, "payload")

	out := strings.ToLower(string(renderMarkdown(text + "\n\n" + payload)))
	for _, bad := range []string{"<script", "onerror", "javascript:", "<iframe"} {
		if strings.Contains(out, bad) {
			t.Fatalf("unsanitized %q in %q", bad, out)
		}
	}
}

func TestRenderMarkdown_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRenderMarkdown_Properties)
}

func FuzzRenderMarkdown_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testRenderMarkdown_Properties))
}

func TestFormatTime(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", formatTime(time.Time{}))
	require.Equal(t, "07.03.2026 09:05", formatTime(time.Date(2026, 3, 7, 9, 5, 0, 0, time.UTC)))
}

func TestReverse(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", MustReverse(RouteHome))
	require.Equal(t, "/auth/login/", MustReverse(RouteLogin))
	require.Equal(t, "/note/my-note/", MustReverse(RouteDetail, "my-note"))
	require.Equal(t, "/edit/a%2Fb/", MustReverse(RouteEdit, "a/b"))

	_, err := Reverse("nope")
	require.Error(t, err)
	_, err = Reverse(RouteDetail)
	require.Error(t, err)
	_, err = Reverse(RouteList, "extra")
	require.Error(t, err)
	require.Panics(t, func() { MustReverse(RouteDelete) })
}

func TestNewRenderer_EmbeddedTemplates(t *testing.T) {
	t.Parallel()
	r, err := NewRenderer(Templates())
	require.NoError(t, err)
	for _, name := range []string{
		"home.html", "error.html",
		"auth/login.html", "auth/logout.html", "auth/signup.html",
		"notes/list.html", "notes/form.html", "notes/detail.html", "notes/delete.html", "notes/success.html",
	} {
		require.Contains(t, r.templates, name)
	}
	require.NotContains(t, r.templates, "base.html")

	rec := httptest.NewRecorder()
	r.RenderError(rec, http.StatusNotFound, "Страница не найдена")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Страница не найдена")

	rec = httptest.NewRecorder()
	require.Error(t, r.Render(rec, "missing.html", nil))
	require.Zero(t, rec.Body.Len())
}

func TestNewRenderer_Failures(t *testing.T) {
	t.Parallel()

	_, err := NewRenderer(fstest.MapFS{"page.html": {Data: []byte(`{{define "content"}}x{{end}}`)}})
	require.ErrorContains(t, err, "base template")

	_, err = NewRenderer(fstest.MapFS{"base.html": {Data: []byte(`{{define "base"}}{{end}}`)}})
	require.ErrorContains(t, err, "no templates")

	_, err = NewRenderer(fstest.MapFS{
		"base.html": {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"bad.html":  {Data: []byte(`{{define "content"}}{{.Oops}`)},
	})
	require.ErrorContains(t, err, "bad.html")
}
