package sink

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var errExec = errors.New("exec failed")

func TestPostgresSinkWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresSink(db, "events")
	payload := []byte(`{"type":"metrics","agent_id":"web-1"}`)

	expectedQuery := regexp.QuoteMeta("INSERT INTO events (received_at, payload) VALUES (now(), $1)")
	mock.ExpectExec(expectedQuery).
		WithArgs(payload).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSinkWriteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresSink(db, "events")

	expectedQuery := regexp.QuoteMeta("INSERT INTO events (received_at, payload) VALUES (now(), $1)")
	mock.ExpectExec(expectedQuery).
		WithArgs([]byte("x")).
		WillReturnError(errExec)

	if err := s.Write([]byte("x")); err == nil {
		t.Fatalf("expected write error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	if s := NewPostgresSink(db, "events"); s.Name() != "postgres" {
		t.Fatalf("expected sink name postgres, got %s", s.Name())
	}
}
