package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func refreshCols() []string {
	return []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}
}

func TestValidateRefreshLiveSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshCols()).
			AddRow(1, 77, "abc123", now.Add(time.Hour), nil, now))

	repo := NewTokenRepo(db)
	uid, err := repo.ValidateRefresh(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if uid != 77 {
		t.Fatalf("user id = %d, want 77", uid)
	}
}

func TestValidateRefreshExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshCols()).
			AddRow(1, 77, "abc123", now.Add(-time.Minute), nil, now.Add(-time.Hour)))

	repo := NewTokenRepo(db)
	if _, err := repo.ValidateRefresh(context.Background(), "abc123"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired session, got %v", err)
	}
}

func TestValidateRefreshRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshCols()).
			AddRow(1, 77, "abc123", now.Add(time.Hour), now.Add(-time.Minute), now.Add(-time.Hour)))

	repo := NewTokenRepo(db)
	if _, err := repo.ValidateRefresh(context.Background(), "abc123"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for revoked session, got %v", err)
	}
}

func TestValidateRefreshUnknownHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(refreshCols()))

	repo := NewTokenRepo(db)
	if _, err := repo.ValidateRefresh(context.Background(), "missing"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unknown hash, got %v", err)
	}
}
