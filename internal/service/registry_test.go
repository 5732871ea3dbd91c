package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/chathive/chathive/internal/chiveerr"
)

func TestLoadGetClose(t *testing.T) {
	r := New()

	h, db, err := r.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if db == nil {
		t.Fatal("load returned nil db")
	}

	got, err := r.GetLoaded(h)
	if err != nil {
		t.Fatalf("get loaded: %v", err)
	}
	if got != db {
		t.Fatal("get loaded returned a different db")
	}

	if err := r.Close(h); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := r.GetLoaded(h); !errors.Is(err, chiveerr.ErrNotFound) {
		t.Fatalf("get loaded after close: err = %v, want ErrNotFound", err)
	}
}

func TestCloseUnknownHandle(t *testing.T) {
	r := New()
	if err := r.Close(Handle("nope")); !errors.Is(err, chiveerr.ErrNotFound) {
		t.Fatalf("close unknown: err = %v, want ErrNotFound", err)
	}
}

func TestMultipleHandlesAreIndependent(t *testing.T) {
	r := New()

	h1, _, err := r.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load 1: %v", err)
	}
	h2, _, err := r.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two loads produced the same handle")
	}

	if err := r.Close(h1); err != nil {
		t.Fatalf("close 1: %v", err)
	}
	if _, err := r.GetLoaded(h2); err != nil {
		t.Fatalf("h2 should still be loaded: %v", err)
	}
	if err := r.CloseAll(); err != nil {
		t.Fatalf("close all: %v", err)
	}
	if len(r.Handles()) != 0 {
		t.Fatalf("handles after CloseAll = %v, want none", r.Handles())
	}
}

// TestConcurrentLoadAndGet exercises the "short-lived mutex guards only the
// map" contract: many goroutines loading and reading concurrently must
// never race or deadlock.
func TestConcurrentLoadAndGet(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	handles := make(chan Handle, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, _, err := r.Load(t.TempDir())
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			handles <- h
		}()
	}
	wg.Wait()
	close(handles)

	for h := range handles {
		if _, err := r.GetLoaded(h); err != nil {
			t.Errorf("get loaded %v: %v", h, err)
		}
	}
	if err := r.CloseAll(); err != nil {
		t.Fatalf("close all: %v", err)
	}
}
