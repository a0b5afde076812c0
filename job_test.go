package gophone

import (
	"context"
	"testing"

	"github.com/ghettovoice/gophone/log"
)

func newTestRegistry() *Registry {
	return NewRegistry(log.Noop)
}

func TestRegistryAddGet(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ctx := context.Background()

	j, err := r.Add(ctx, &Job{id: "1", typ: JobMessage})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := r.Get("1"); got != j {
		t.Errorf("Get(1) = %v, want the added job", got)
	}
	if got := r.Get("2"); got != nil {
		t.Errorf("Get(2) = %v, want nil", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ctx := context.Background()

	if _, err := r.Add(ctx, &Job{id: "1", typ: JobMessage}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := r.Add(ctx, &Job{id: "1", typ: JobMessage}); err == nil {
		t.Fatal("Add() with duplicate id succeeded, want error")
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ctx := context.Background()

	if _, err := r.Add(ctx, &Job{id: "1", typ: JobMessage}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	r.Remove("1")
	if got := r.Get("1"); got != nil {
		t.Errorf("Get(1) after remove = %v, want nil", got)
	}
	// Removing twice is a no-op, not an error.
	r.Remove("1")
	r.Remove("never-existed")
}

func TestRegistryGetByCallID(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ctx := context.Background()

	withTx := &Job{id: "1", typ: JobMessage, tx: &stubTx{id: "dialog-1"}}
	between := &Job{id: "2", typ: JobMessage}
	if _, err := r.Add(ctx, withTx); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := r.Add(ctx, between); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got := r.GetByCallID("dialog-1"); got != withTx {
		t.Errorf("GetByCallID(dialog-1) = %v, want the job with the transaction", got)
	}
	// A job between transactions is not discoverable by call id.
	if got := r.GetByCallID("2"); got != nil {
		t.Errorf("GetByCallID(2) = %v, want nil", got)
	}
	if got := r.GetByCallID("unknown"); got != nil {
		t.Errorf("GetByCallID(unknown) = %v, want nil", got)
	}
}

func TestRegistryRemoveAll(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if _, err := r.Add(ctx, &Job{id: id, typ: JobMessage}); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	r.RemoveAll()
	if r.Len() != 0 {
		t.Errorf("Len() after RemoveAll = %d, want 0", r.Len())
	}
}

func TestJobAuthBudget(t *testing.T) {
	t.Parallel()

	j := &Job{id: "1", typ: JobOpen}
	for i := 1; i <= MaxAuthAttempts; i++ {
		if !j.bumpAuth() {
			t.Fatalf("bumpAuth() attempt %d = false, want true", i)
		}
	}
	if j.bumpAuth() {
		t.Fatalf("bumpAuth() attempt %d = true, want false", MaxAuthAttempts+1)
	}

	j.resetAuth()
	if !j.bumpAuth() {
		t.Error("bumpAuth() after reset = false, want true")
	}
}
