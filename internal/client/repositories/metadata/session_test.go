package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_SaveLoadClear(t *testing.T) {
	db := setupDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	token, email, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Empty(t, email)

	require.NoError(t, s.Save(ctx, "tok-1", "ann@example.com"))
	token, email, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
	require.Equal(t, "ann@example.com", email)

	require.NoError(t, s.Save(ctx, "tok-2", "bob@example.com"))
	token, email, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)
	require.Equal(t, "bob@example.com", email)

	require.NoError(t, s.Clear(ctx))
	token, email, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Empty(t, email)
}

func TestSessionStore_ClearKeepsLanguage(t *testing.T) {
	s := NewSessionStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.SetLanguage(ctx, "tr"))
	require.NoError(t, s.Save(ctx, "tok", "a@b.c"))
	require.NoError(t, s.Clear(ctx))

	lang, err := s.Language(ctx)
	require.NoError(t, err)
	require.Equal(t, "tr", lang)
}

func TestSessionStore_SaveRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO metadata`).WithArgs("token", []byte("tok"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO metadata`).WithArgs("email", []byte("a@b.c"), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err = NewSessionStore(db).Save(context.Background(), "tok", "a@b.c")
	require.ErrorContains(t, err, `put metadata key "email"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
