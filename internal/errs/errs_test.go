package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	NotFound,
	FailedPrecondition,
	PermissionDenied,
	Unauthenticated,
	Internal,
}

func testCodeOf_WrappedTypedError(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "cause"))
	depth := rapid.IntRange(0, 3).Draw(t, "depth")

	err := Wrap(code, message, cause)
	for i := 0; i < depth; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}

	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf mismatch: got=%q want=%q", got, message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost from chain: %v", err)
	}
	if PageText(code) == "" {
		t.Fatalf("PageText(%q) is empty", code)
	}
}

func TestCodeOf_WrappedTypedError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_WrappedTypedError)
}

func FuzzCodeOf_WrappedTypedError(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testCodeOf_WrappedTypedError))
}

func testUntypedAndNilFallbacks(t *rapid.T) {
	raw := rapid.StringMatching(`[a-zA-Z0-9 _:\-./]{1,80}`).Draw(t, "raw")
	untyped := errors.New(raw)

	if got := CodeOf(untyped); got != Internal {
		t.Fatalf("CodeOf(untyped) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(untyped); got != "internal error" {
		t.Fatalf("MessageOf(untyped) leaked raw text: %q", got)
	}
	if got := CodeOf(nil); got != Internal {
		t.Fatalf("CodeOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(nil); got != string(Internal) {
		t.Fatalf("MessageOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
}

func TestUntypedAndNilFallbacks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testUntypedAndNilFallbacks)
}

func TestHTTPStatusAndPageText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code   Code
		status int
		text   string
	}{
		{InvalidArgument, http.StatusBadRequest, "Некорректный запрос"},
		{Unauthenticated, http.StatusUnauthorized, "Войдите, чтобы продолжить"},
		{PermissionDenied, http.StatusForbidden, "Недостаточно прав"},
		{NotFound, http.StatusNotFound, "Страница не найдена"},
		{FailedPrecondition, http.StatusConflict, "Запрос конфликтует с текущими данными"},
		{Internal, http.StatusInternalServerError, "Внутренняя ошибка сервера"},
		{Code("unknown_code"), http.StatusInternalServerError, "Внутренняя ошибка сервера"},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.status {
			t.Fatalf("HTTPStatus(%q) mismatch: got=%d want=%d", tc.code, got, tc.status)
		}
		if got := PageText(tc.code); got != tc.text {
			t.Fatalf("PageText(%q) mismatch: got=%q want=%q", tc.code, got, tc.text)
		}
	}
}

func TestError_Text(t *testing.T) {
	t.Parallel()
	cause := errors.New("disk I/O error")
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: NotFound, Message: "note not found"}, "note not found"},
		{&Error{Code: Internal, Message: "read note", Err: cause}, "read note: disk I/O error"},
		{&Error{Code: Internal, Err: cause}, "disk I/O error"},
		{&Error{Code: PermissionDenied}, "permission_denied"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() mismatch: got=%q want=%q", got, tc.want)
		}
	}
}

type slugConflict struct{}

func (slugConflict) Error() string { return "conflict" }
func (slugConflict) ErrCode() Code { return FailedPrecondition }

func TestCodeOf_UsesErrCodeMethod(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("save note: %w", slugConflict{})
	if got := CodeOf(err); got != FailedPrecondition {
		t.Fatalf("CodeOf(ErrCode) mismatch: got=%q want=%q", got, FailedPrecondition)
	}
	if got := MessageOf(err); got != "internal error" {
		t.Fatalf("MessageOf(ErrCode) mismatch: got=%q want=%q", got, "internal error")
	}

	outer := Wrap(Internal, "render", err)
	if got := CodeOf(outer); got != Internal {
		t.Fatalf("outermost code should win: got=%q", got)
	}
}
