package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreateUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`)).
		WithArgs("ada@example.com", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO profiles (user_id, display_name, email)
		VALUES ($1, $2, $3)
	`)).
		WithArgs(int64(11), "Ada", "ada@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateUser(context.Background(), "  Ada@Example.com ", []byte("hash"), "Ada")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id != 11 {
		t.Fatalf("expected user id 11, got %d", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserEmailTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`)).
		WithArgs("ada@example.com", []byte("hash")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), "ada@example.com", []byte("hash"), "Ada")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserByEmailNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	if _, err := s.UserByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePasswordMissingUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE users
		SET password_hash = $1
		WHERE id = $2
	`)).
		WithArgs([]byte("newhash"), int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.UpdatePassword(context.Background(), 404, []byte("newhash")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.DeleteUser(context.Background(), 11); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}
