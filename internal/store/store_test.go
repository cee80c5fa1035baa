package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "a", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "1" {
		t.Errorf("Get(a) = %q, want %q", got, "1")
	}
}

func TestGetMissingReturnsDefault(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	got, err := s.Get(ctx, "missing", []byte("default"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "default" {
		t.Errorf("Get(missing) = %q, want default", got)
	}
}

func TestExists(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a")
	if err != nil || ok {
		t.Fatalf("Exists before set = %v, %v, want false, nil", ok, err)
	}

	if err := s.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ok, err = s.Exists(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Exists after set = %v, %v, want true, nil", ok, err)
	}
}

func TestRemove(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ok, err := s.Exists(ctx, "a")
	if err != nil || ok {
		t.Fatalf("Exists after remove = %v, %v, want false, nil", ok, err)
	}

	// Removing an absent key is a no-op, not an error.
	if err := s.Remove(ctx, "a"); err != nil {
		t.Errorf("Remove absent key: %v", err)
	}
}

func TestSetBulkAndGetAll(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SetBulk(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}); err != nil {
		t.Fatalf("SetBulk: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	if len(all) != len(want) {
		t.Fatalf("GetAll returned %d entries, want %d", len(all), len(want))
	}
	for k, v := range want {
		if string(all[k]) != v {
			t.Errorf("GetAll()[%q] = %q, want %q", k, all[k], v)
		}
	}
}

func TestCount(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count empty = %d, %v, want 0, nil", n, err)
	}

	if err := s.SetBulk(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("SetBulk: %v", err)
	}

	n, err = s.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count after bulk = %d, %v, want 2, nil", n, err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv_store(key, value) VALUES (?, ?)`, "a", "1"); err != nil {
			return err
		}
		return errBoom
	})
	if err == nil {
		t.Fatal("expected error from Transaction")
	}

	n, cerr := s.Count(ctx)
	if cerr != nil || n != 0 {
		t.Fatalf("store mutated despite rollback: count=%d err=%v", n, cerr)
	}
}
