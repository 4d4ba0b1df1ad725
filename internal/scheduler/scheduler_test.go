package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLocker struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	return !f.held, nil
}

func (f *fakeLocker) Release(_ context.Context, _ string) error {
	f.releases++
	return nil
}

func TestRunLockedRunsAndReleases(t *testing.T) {
	locker := &fakeLocker{}
	s := New(locker, zap.NewNop())

	ran := 0
	s.runLocked(context.Background(), "pool", func(context.Context) error {
		ran++
		return nil
	})

	if ran != 1 {
		t.Fatalf("task ran %d times", ran)
	}
	if locker.acquires != 1 || locker.releases != 1 {
		t.Fatalf("lease not balanced: %d acquires, %d releases",
			locker.acquires, locker.releases)
	}
}

func TestRunLockedSkipsWhenHeld(t *testing.T) {
	locker := &fakeLocker{held: true}
	s := New(locker, zap.NewNop())

	ran := 0
	s.runLocked(context.Background(), "pool", func(context.Context) error {
		ran++
		return nil
	})

	if ran != 0 {
		t.Fatal("task must not run while the lease is held elsewhere")
	}
	if locker.releases != 0 {
		t.Fatal("no release without acquire")
	}
}

func TestRunLockedReleasesOnTaskError(t *testing.T) {
	locker := &fakeLocker{}
	s := New(locker, zap.NewNop())

	s.runLocked(context.Background(), "pool", func(context.Context) error {
		return errors.New("boom")
	})

	if locker.releases != 1 {
		t.Fatal("lease must be released after a failed run")
	}
}

func TestRunLockedNoLocker(t *testing.T) {
	s := New(nil, zap.NewNop())

	ran := 0
	s.runLocked(context.Background(), "pool", func(context.Context) error {
		ran++
		return nil
	})
	if ran != 1 {
		t.Fatal("task must run without a locker")
	}
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(nil, zap.NewNop())
	if err := s.Add("not a spec", "pool", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected spec parse error")
	}
}
