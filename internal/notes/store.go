// Package notes stores notes, derives their slugs, and decides who may see or
// change them.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kuitang/yanote/internal/auth"
	"github.com/kuitang/yanote/internal/db"
	"github.com/kuitang/yanote/internal/obs"
)

const tracerName = "github.com/kuitang/yanote/internal/notes"

// Store handles note persistence. Every write runs in one transaction that
// checks slug uniqueness before mutating; the UNIQUE index on notes.slug
// backs the check against concurrent writers.
type Store struct {
	db     *db.DB
	now    func() time.Time
	tracer trace.Tracer
}

// NewStore creates a note store on database.
func NewStore(database *db.DB) *Store {
	return &Store{
		db:     database,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
}

// SetClock replaces the clock used for timestamps. Intended for testing.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create stores a new note authored by author.
func (s *Store) Create(ctx context.Context, author auth.Identity, params CreateParams) (note *Note, err error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer func() { endSpan(span, err) }()

	if !author.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	noteSlug := params.Slug
	if noteSlug == "" {
		noteSlug = DeriveSlug(params.Title)
	}
	if noteSlug == "" {
		return nil, ErrEmptySlug
	}
	span.SetAttributes(attribute.String("note.slug", noteSlug))

	now := s.now().UTC()
	row := noteRow{
		ID:        uuid.New().String(),
		Title:     params.Title,
		Text:      params.Text,
		Slug:      noteSlug,
		AuthorID:  author.UserID,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := slugTaken(ctx, tx, noteSlug, "")
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateSlugError{Slug: noteSlug}
		}

		query, args, err := db.Builder.
			Insert("notes").
			Columns(noteColumns...).
			Values(row.ID, row.Title, row.Text, row.Slug, row.AuthorID, row.CreatedAt, row.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if db.IsUniqueViolation(err) {
				return &DuplicateSlugError{Slug: noteSlug}
			}
			return fmt.Errorf("failed to create note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	obs.From(ctx).Info("note_created", "note_id", row.ID, "slug", row.Slug)
	created := row.toNote()
	return &created, nil
}

// GetBySlug returns the note with the given slug or ErrNotFound.
func (s *Store) GetBySlug(ctx context.Context, noteSlug string) (note *Note, err error) {
	ctx, span := s.startSpan(ctx, "GetBySlug")
	defer func() { endSpan(span, err) }()

	query, args, err := db.Builder.
		Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"slug": noteSlug}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row noteRow
	if err := s.db.X().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	found := row.toNote()
	return &found, nil
}

// ListByAuthor returns exactly the notes written by authorID, oldest first.
func (s *Store) ListByAuthor(ctx context.Context, authorID string) (list []Note, err error) {
	ctx, span := s.startSpan(ctx, "ListByAuthor")
	defer func() { endSpan(span, err) }()

	query, args, err := db.Builder.
		Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"author_id": authorID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []noteRow
	if err := s.db.X().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	list = make([]Note, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toNote())
	}
	span.SetAttributes(attribute.Int("notes.count", len(list)))
	return list, nil
}

// Update replaces the editable fields of note. Only the author may update;
// a slug used by a different note is rejected with *DuplicateSlugError and
// nothing changes.
func (s *Store) Update(ctx context.Context, actor auth.Identity, note *Note, params UpdateParams) (updated *Note, err error) {
	ctx, span := s.startSpan(ctx, "Update")
	defer func() { endSpan(span, err) }()

	if CanAccess(actor, note, OpEdit) != Allow {
		return nil, ErrForbidden
	}

	noteSlug := params.Slug
	if noteSlug == "" {
		noteSlug = DeriveSlug(params.Title)
	}
	if noteSlug == "" {
		return nil, ErrEmptySlug
	}
	span.SetAttributes(attribute.String("note.slug", noteSlug))

	now := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkAuthor(ctx, tx, note.ID, actor.UserID); err != nil {
			return err
		}

		taken, err := slugTaken(ctx, tx, noteSlug, note.ID)
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateSlugError{Slug: noteSlug}
		}

		query, args, err := db.Builder.
			Update("notes").
			Set("title", params.Title).
			Set("text", params.Text).
			Set("slug", noteSlug).
			Set("updated_at", now.UnixMilli()).
			Where(sq.Eq{"id": note.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if db.IsUniqueViolation(err) {
				return &DuplicateSlugError{Slug: noteSlug}
			}
			return fmt.Errorf("failed to update note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := *note
	result.Title = params.Title
	result.Text = params.Text
	result.Slug = noteSlug
	result.UpdatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	obs.From(ctx).Info("note_updated", "note_id", note.ID, "slug", noteSlug)
	return &result, nil
}

// Delete removes note. Only the author may delete.
func (s *Store) Delete(ctx context.Context, actor auth.Identity, note *Note) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { endSpan(span, err) }()

	if CanAccess(actor, note, OpDelete) != Allow {
		return ErrForbidden
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkAuthor(ctx, tx, note.ID, actor.UserID); err != nil {
			return err
		}
		query, args, err := db.Builder.
			Delete("notes").
			Where(sq.Eq{"id": note.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	obs.From(ctx).Info("note_deleted", "note_id", note.ID, "slug", note.Slug)
	return nil
}

// Count returns the number of stored notes.
func (s *Store) Count(ctx context.Context) (n int, err error) {
	ctx, span := s.startSpan(ctx, "Count")
	defer func() { endSpan(span, err) }()

	query, args, err := db.Builder.Select("COUNT(*)").From("notes").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	if err := s.db.X().GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

// SlugTaken reports whether a note other than exceptID uses noteSlug.
// An empty exceptID checks every note.
func (s *Store) SlugTaken(ctx context.Context, noteSlug, exceptID string) (taken bool, err error) {
	ctx, span := s.startSpan(ctx, "SlugTaken")
	defer func() { endSpan(span, err) }()

	return slugTaken(ctx, s.db.X(), noteSlug, exceptID)
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "notes.Store/"+op)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func slugTaken(ctx context.Context, q sqlx.QueryerContext, noteSlug, exceptID string) (bool, error) {
	where := sq.And{sq.Eq{"slug": noteSlug}}
	if exceptID != "" {
		where = append(where, sq.NotEq{"id": exceptID})
	}
	query, args, err := db.Builder.
		Select("1").
		From("notes").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build slug check: %w", err)
	}

	var found int
	if err := sqlx.GetContext(ctx, q, &found, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return true, nil
}

// checkAuthor re-reads the stored author inside the write transaction so a
// stale *Note cannot be used to touch a row that changed hands or vanished.
func checkAuthor(ctx context.Context, tx *sqlx.Tx, noteID, userID string) error {
	query, args, err := db.Builder.
		Select("author_id").
		From("notes").
		Where(sq.Eq{"id": noteID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build author check: %w", err)
	}

	var authorID string
	if err := tx.GetContext(ctx, &authorID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read note author: %w", err)
	}
	if authorID != userID {
		return ErrForbidden
	}
	return nil
}
