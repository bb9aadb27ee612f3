package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"throp/pkg/logging"
)

func TestRecordPost(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, logging.NewTestLogger())
	postedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO posts").
		WithArgs("p1", "reply", "the answer", "m1", 0.85, postedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store.RecordPost(context.Background(), Post{
		ID:         "p1",
		Kind:       "reply",
		Text:       "the answer",
		ParentID:   "m1",
		Confidence: 0.85,
		PostedAt:   postedAt,
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRecordPostSwallowsDBErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, logging.NewTestLogger())
	mock.ExpectExec("INSERT INTO posts").WillReturnError(context.DeadlineExceeded)

	// Must not panic or propagate: the post already went out.
	store.RecordPost(context.Background(), Post{ID: "p1", Kind: "reply", PostedAt: time.Now()})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, logging.NewTestLogger())
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "kind", "text", "parent_id", "confidence", "posted_at"}).
		AddRow("p2", "thread", "part one", "m2", 0.5, now).
		AddRow("p1", "reply", "answer", "m1", 0.85, now.Add(-time.Hour))
	mock.ExpectQuery("SELECT id, kind, text, parent_id, confidence, posted_at").
		WithArgs(10).
		WillReturnRows(rows)

	posts, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "p2" || posts[1].Kind != "reply" {
		t.Errorf("posts = %+v", posts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store

	store.RecordPost(context.Background(), Post{ID: "p1"})
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Errorf("EnsureSchema on nil store: %v", err)
	}
	posts, err := store.ListRecent(context.Background(), 5)
	if err != nil || posts != nil {
		t.Errorf("ListRecent on nil store = %v, %v", posts, err)
	}
}
