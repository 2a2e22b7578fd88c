package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/yanote/internal/testdb"
)

func setupUserService(t *testing.T) *UserService {
	t.Helper()
	database := testdb.MustInMemory(t)
	t.Cleanup(func() { database.Close() })
	svc := NewUserService(database, FakeInsecureHasher{})
	svc.SetClock(NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	return svc
}

func TestUserService_RegisterThenAuthenticate(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{Username: " alice ", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.NotEmpty(t, user.ID)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), user.CreatedAt)

	got, err := svc.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, Identity{UserID: user.ID, Username: "alice"}, got.Identity())

	byID, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, *user, *byID)

	byName, err := svc.GetByUsername(ctx, " alice ")
	require.NoError(t, err)
	require.Equal(t, *user, *byName)

	_, err = svc.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_AuthenticateFailures(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_RegisterRejections(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"taken", RegisterParams{"alice", "other-pass", "other-pass"}, ErrUsernameTaken},
		{"empty username", RegisterParams{"  ", "s3cret-pass", "s3cret-pass"}, ErrInvalidUsername},
		{"bad username", RegisterParams{"a b", "s3cret-pass", "s3cret-pass"}, ErrInvalidUsername},
		{"mismatch", RegisterParams{"bob", "s3cret-pass", "s3cret-pasz"}, ErrPasswordMismatch},
		{"short", RegisterParams{"bob", "short", "short"}, ErrPasswordTooShort},
		{"numeric", RegisterParams{"bob", "1234567890", "1234567890"}, ErrPasswordNumeric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.params)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUserService_ConcurrentRegisterSameUsername(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pass := fmt.Sprintf("password-%d", i)
			_, err := svc.Register(ctx, RegisterParams{Username: "race", Password: pass, PasswordConfirm: pass})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrUsernameTaken)
	}
	require.Equal(t, 1, ok)
}
