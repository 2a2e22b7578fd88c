package web

import (
	"github.com/kuitang/yanote/internal/auth"
	"github.com/kuitang/yanote/internal/notes"
)

// PageData contains common data passed to all templates.
type PageData struct {
	Title string
	User  auth.Identity
}

// ErrorPageData is rendered by error.html.
type ErrorPageData struct {
	PageData
	Code      int
	ErrorText string
}

// NotesListData contains data for the notes list page. Notes holds exactly
// the requesting user's notes.
type NotesListData struct {
	PageData
	Notes []notes.Note
}

// NoteFormData contains data for the add and edit pages. Form is never nil.
type NoteFormData struct {
	PageData
	Form   *notes.Form
	Errors notes.FieldErrors
	// Note is the note being edited; nil on the add page.
	Note *notes.Note
}

// NoteData contains data for the detail and delete confirmation pages.
type NoteData struct {
	PageData
	Note *notes.Note
}

// LoginPageData contains data for the login page.
type LoginPageData struct {
	PageData
	Username string
	Next     string
	Error    string
}

// SignupPageData contains data for the signup page.
type SignupPageData struct {
	PageData
	Username string
	Errors   map[string]string
}
