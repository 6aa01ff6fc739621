package metadata

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dome/internal/common"
	"github.com/dmitrijs2005/dome/internal/dbx"
)

// SessionStore persists the single signed-in session. There is one token
// slot; saving a new session replaces the previous one.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Load returns the stored token and email. Both are empty when nothing is
// stored.
func (s *SessionStore) Load(ctx context.Context) (token, email string, err error) {
	repo := NewStore(s.db)

	t, _, err := repo.Lookup(ctx, common.MetadataKeyToken)
	if err != nil {
		return "", "", err
	}
	e, _, err := repo.Lookup(ctx, common.MetadataKeyEmail)
	if err != nil {
		return "", "", err
	}
	return string(t.Value), string(e.Value), nil
}

// Save writes token and email atomically.
func (s *SessionStore) Save(ctx context.Context, token, email string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewStore(tx)
		if err := repo.Put(ctx, common.MetadataKeyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Put(ctx, common.MetadataKeyEmail, []byte(email))
	})
}

// Clear removes the stored session. Other keys, such as the language, stay.
func (s *SessionStore) Clear(ctx context.Context) error {
	return NewStore(s.db).Remove(ctx, common.MetadataKeyToken, common.MetadataKeyEmail)
}

// Language returns the stored language tag, or "".
func (s *SessionStore) Language(ctx context.Context) (string, error) {
	e, _, err := NewStore(s.db).Lookup(ctx, common.MetadataKeyLanguage)
	return string(e.Value), err
}

func (s *SessionStore) SetLanguage(ctx context.Context, lang string) error {
	return NewStore(s.db).Put(ctx, common.MetadataKeyLanguage, []byte(lang))
}
