package photos

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "photos.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return s
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteStore_ListEmptyTable(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil {
		t.Fatal("List should return an empty slice, not nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

func TestSQLiteStore_InsertThenList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, NewPhoto{PhotoURL: "https://cdn/a.jpg", UploaderName: "Alice", Timestamp: 1000})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	second, err := s.Insert(ctx, NewPhoto{PhotoURL: "https://cdn/b.jpg", UploaderName: "Bob", Timestamp: 2000})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("ids should increase: first=%d second=%d", first.ID, second.ID)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].UploaderName != "Bob" || got[0].PhotoURL != "https://cdn/b.jpg" {
		t.Errorf("newest first: got %+v", got[0])
	}
	if got[1] != first {
		t.Errorf("got %+v, want %+v", got[1], first)
	}
}

func TestSQLiteStore_ListOrderedByTimestamp(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 25; i++ {
		_, err := s.Insert(ctx, NewPhoto{
			PhotoURL:     "https://cdn/photo.jpg",
			UploaderName: "guest",
			Timestamp:    rng.Int63n(10_000),
		})
		if err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 rows, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp > got[i-1].Timestamp {
			t.Fatalf("row %d timestamp %d is newer than row %d timestamp %d",
				i, got[i].Timestamp, i-1, got[i-1].Timestamp)
		}
	}
}

func TestSQLiteStore_InsertRejectsEmptyURL(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.Insert(context.Background(), NewPhoto{UploaderName: "nobody", Timestamp: 1})
	if !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
}

func TestSQLiteStore_KeepsNameUnsanitized(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	name := `<b>圣诞老人</b> & "friends"`

	if _, err := s.Insert(ctx, NewPhoto{PhotoURL: "https://cdn/x.jpg", UploaderName: name, Timestamp: 5}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got[0].UploaderName != name {
		t.Errorf("name = %q, want %q", got[0].UploaderName, name)
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
