// Package web serves the HTML pages: sign-in, sign-up, and note CRUD.
package web

import (
	"errors"
	"net/http"

	"github.com/kuitang/yanote/internal/auth"
	"github.com/kuitang/yanote/internal/errs"
	"github.com/kuitang/yanote/internal/logutil"
	"github.com/kuitang/yanote/internal/notes"
	"github.com/kuitang/yanote/internal/obs"
	"github.com/kuitang/yanote/internal/urlutil"
)

const maxFormLogChars = 80

// Handler serves every page of the site.
type Handler struct {
	renderer PageRenderer
	notes    *notes.Store
	users    *auth.UserService
	sessions *auth.SessionService
	authMW   *auth.Middleware
}

// NewHandler creates the page handler.
func NewHandler(renderer PageRenderer, store *notes.Store, users *auth.UserService, sessions *auth.SessionService, authMW *auth.Middleware) *Handler {
	return &Handler{
		renderer: renderer,
		notes:    store,
		users:    users,
		sessions: sessions,
		authMW:   authMW,
	}
}

func pageData(r *http.Request, title string) PageData {
	return PageData{Title: title, User: auth.IdentityFrom(r.Context())}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := h.renderer.Render(w, name, data); err != nil {
		obs.From(r.Context()).Error("render_failed", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// fail logs err and renders the error page for its code. The page shows only
// the code's fixed text, never the error itself.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	log := obs.From(r.Context()).With("error", err, "code", string(code))
	if status >= http.StatusInternalServerError {
		log.Error(event)
	} else {
		log.Warn(event, "reason", errs.MessageOf(err))
	}
	h.renderer.RenderError(w, status, errs.PageText(code))
}

func (h *Handler) notFound(w http.ResponseWriter) {
	h.renderer.RenderError(w, http.StatusNotFound, errs.PageText(errs.NotFound))
}

// HandleHome handles GET / - the landing page, open to everyone.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home.html", pageData(r, "YaNote"))
}

// ============================================================================
// Notes
// ============================================================================

// HandleList handles GET /notes/ - the signed-in user's notes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	list, err := h.notes.ListByAuthor(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, "notes_list_failed", err)
		return
	}
	h.render(w, r, "notes/list.html", NotesListData{
		PageData: pageData(r, "Ваши заметки"),
		Notes:    list,
	})
}

// HandleAdd handles GET and POST /add/.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	data := NoteFormData{
		PageData: pageData(r, "Добавление заметки"),
		Form:     &notes.Form{},
	}
	if r.Method != http.MethodPost {
		h.render(w, r, "notes/form.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Некорректные данные формы")
		return
	}
	data.Form = notes.FormFromValues(r.PostForm)

	params, fieldErrs := data.Form.Validate()
	if fieldErrs != nil {
		h.formInvalid(w, r, data, fieldErrs)
		return
	}

	note, err := h.notes.Create(r.Context(), auth.IdentityFrom(r.Context()), params)
	if err != nil {
		fieldErrs = notes.FieldErrors{}
		if fieldErrs.AddStoreError(err) {
			h.formInvalid(w, r, data, fieldErrs)
			return
		}
		h.fail(w, r, "note_create_failed", err)
		return
	}

	obs.From(r.Context()).Info("note_added", "slug", note.Slug)
	http.Redirect(w, r, MustReverse(RouteSuccess), http.StatusFound)
}

// HandleSuccess handles GET /done/ - shown after every successful write.
func (h *Handler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "notes/success.html", pageData(r, "Успешно"))
}

// HandleDetail handles GET /note/{slug}/.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r, notes.OpView)
	if !ok {
		return
	}
	h.render(w, r, "notes/detail.html", NoteData{
		PageData: pageData(r, note.Title),
		Note:     note,
	})
}

// HandleEdit handles GET and POST /edit/{slug}/.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r, notes.OpEdit)
	if !ok {
		return
	}

	data := NoteFormData{
		PageData: pageData(r, "Редактирование заметки"),
		Form:     notes.FormFromNote(note),
		Note:     note,
	}
	if r.Method != http.MethodPost {
		h.render(w, r, "notes/form.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Некорректные данные формы")
		return
	}
	data.Form = notes.FormFromValues(r.PostForm)

	params, fieldErrs := data.Form.Validate()
	if fieldErrs != nil {
		h.formInvalid(w, r, data, fieldErrs)
		return
	}

	_, err := h.notes.Update(r.Context(), auth.IdentityFrom(r.Context()), note, notes.UpdateParams(params))
	if err != nil {
		if errors.Is(err, notes.ErrForbidden) || errors.Is(err, notes.ErrNotFound) {
			h.notFound(w)
			return
		}
		fieldErrs = notes.FieldErrors{}
		if fieldErrs.AddStoreError(err) {
			h.formInvalid(w, r, data, fieldErrs)
			return
		}
		h.fail(w, r, "note_update_failed", err)
		return
	}
	http.Redirect(w, r, MustReverse(RouteSuccess), http.StatusFound)
}

// HandleDelete handles GET /delete/{slug}/ (confirmation) and POST (delete).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r, notes.OpDelete)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		h.render(w, r, "notes/delete.html", NoteData{
			PageData: pageData(r, "Удаление заметки"),
			Note:     note,
		})
		return
	}

	if err := h.notes.Delete(r.Context(), auth.IdentityFrom(r.Context()), note); err != nil {
		if errors.Is(err, notes.ErrForbidden) || errors.Is(err, notes.ErrNotFound) {
			h.notFound(w)
			return
		}
		h.fail(w, r, "note_delete_failed", err)
		return
	}
	http.Redirect(w, r, MustReverse(RouteSuccess), http.StatusFound)
}

// loadNote fetches the note named by the {slug} path value and checks that
// the requester may perform op. Missing and foreign notes both render 404.
func (h *Handler) loadNote(w http.ResponseWriter, r *http.Request, op notes.Operation) (*notes.Note, bool) {
	note, err := h.notes.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			h.notFound(w)
			return nil, false
		}
		h.fail(w, r, "note_load_failed", err)
		return nil, false
	}
	if notes.CanAccess(auth.IdentityFrom(r.Context()), note, op) != notes.Allow {
		obs.From(r.Context()).Info("note_access_denied", "slug", note.Slug, "op", op.String())
		h.notFound(w)
		return nil, false
	}
	return note, true
}

func (h *Handler) formInvalid(w http.ResponseWriter, r *http.Request, data NoteFormData, fieldErrs notes.FieldErrors) {
	obs.From(r.Context()).Info("note_form_invalid",
		"fields", len(fieldErrs),
		"form", logutil.FormatFormForLog(r.PostForm, maxFormLogChars),
	)
	data.Errors = fieldErrs
	h.render(w, r, "notes/form.html", data)
}

// ============================================================================
// Accounts
// ============================================================================

// HandleLogin handles GET and POST /auth/login/.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	data := LoginPageData{
		PageData: pageData(r, "Вход"),
		Next:     r.URL.Query().Get(urlutil.NextParam),
	}
	if r.Method != http.MethodPost {
		h.render(w, r, "auth/login.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Некорректные данные формы")
		return
	}
	data.Username = r.PostForm.Get("username")
	if next := r.PostForm.Get(urlutil.NextParam); next != "" {
		data.Next = next
	}

	user, err := h.users.Authenticate(r.Context(), data.Username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.fail(w, r, "login_failed", err)
			return
		}
		obs.From(r.Context()).Info("login_rejected", "form", logutil.FormatFormForLog(r.PostForm, maxFormLogChars))
		data.Error = "Пожалуйста, введите правильные имя пользователя и пароль."
		h.render(w, r, "auth/login.html", data)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "session_create_failed", err)
		return
	}
	auth.SetCookie(w, sessionID, h.sessions.Duration(), h.authMW.SecureCookies())
	ctx := obs.AnnotateUser(r.Context(), user.ID)
	obs.From(ctx).Info("login_succeeded")

	http.Redirect(w, r, urlutil.SafeNext(r, data.Next, MustReverse(RouteHome)), http.StatusFound)
}

// HandleLogout handles GET and POST /auth/logout/. It always renders the
// logged-out page, signed in or not.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			obs.From(r.Context()).Warn("session_delete_failed", "error", err)
		}
		auth.ClearCookie(w, h.authMW.SecureCookies())
	}
	h.render(w, r, "auth/logout.html", PageData{Title: "Выход"})
}

// HandleSignup handles GET and POST /auth/signup/.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	data := SignupPageData{PageData: pageData(r, "Регистрация")}
	if r.Method != http.MethodPost {
		h.render(w, r, "auth/signup.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Некорректные данные формы")
		return
	}
	data.Username = r.PostForm.Get("username")

	_, err := h.users.Register(r.Context(), auth.RegisterParams{
		Username:        data.Username,
		Password:        r.PostForm.Get("password1"),
		PasswordConfirm: r.PostForm.Get("password2"),
	})
	if err != nil {
		field, msg, ok := signupFieldError(err)
		if !ok {
			h.fail(w, r, "signup_failed", err)
			return
		}
		obs.From(r.Context()).Info("signup_rejected", "field", field, "form", logutil.FormatFormForLog(r.PostForm, maxFormLogChars))
		data.Errors = map[string]string{field: msg}
		h.render(w, r, "auth/signup.html", data)
		return
	}

	http.Redirect(w, r, MustReverse(RouteLogin), http.StatusFound)
}

func signupFieldError(err error) (field, msg string, ok bool) {
	switch {
	case errors.Is(err, auth.ErrInvalidUsername):
		return "username", "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_.", true
	case errors.Is(err, auth.ErrUsernameTaken):
		return "username", "Пользователь с таким именем уже существует.", true
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "password2", "Введенные пароли не совпадают.", true
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "password2", "Введённый пароль слишком короткий. Он должен содержать как минимум 8 символов.", true
	case errors.Is(err, auth.ErrPasswordNumeric):
		return "password2", "Введённый пароль состоит только из цифр.", true
	}
	return "", "", false
}
