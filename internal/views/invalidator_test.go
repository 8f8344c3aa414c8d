package views

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type stubStore struct {
	deleted  []string
	patterns []string
	failOn   string
}

func (s *stubStore) Del(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	for _, key := range keys {
		if s.failOn != "" && strings.Contains(key, s.failOn) {
			return errors.New("redis unavailable")
		}
	}
	return nil
}

func (s *stubStore) DeletePattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func (s *stubStore) ViewKey(parts ...string) string {
	return "ms:view:" + strings.Join(parts, ":")
}

func containsKey(keys []string, want string) bool {
	for _, key := range keys {
		if key == want {
			return true
		}
	}
	return false
}

func TestAfterJoinEvictsDealAndVendorViews(t *testing.T) {
	store := &stubStore{}
	inv := NewInvalidator(store, nil)

	groupBuyID := uuid.New()
	userID := uuid.New()
	if err := inv.AfterJoin(context.Background(), groupBuyID, userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Deal views cache per page, so the whole prefix is evicted by pattern.
	if !containsKey(store.patterns, "ms:view:deals*") {
		t.Fatalf("expected deals pattern eviction, got %v", store.patterns)
	}
	for _, want := range []string{
		"ms:view:orders:" + userID.String(),
		"ms:view:notifications:" + userID.String(),
	} {
		if !containsKey(store.deleted, want) {
			t.Fatalf("expected eviction of %q, got %v", want, store.deleted)
		}
	}
}

func TestAfterAcceptEvictsDealPattern(t *testing.T) {
	store := &stubStore{}
	inv := NewInvalidator(store, nil)

	supplierID := uuid.New()
	if err := inv.AfterAccept(context.Background(), uuid.New(), supplierID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !containsKey(store.patterns, "ms:view:deals*") {
		t.Fatalf("expected deals pattern eviction, got %v", store.patterns)
	}
	if !containsKey(store.deleted, "ms:view:supplier:"+supplierID.String()) {
		t.Fatalf("expected supplier view eviction, got %v", store.deleted)
	}
}

func TestAfterStatusChangeEvictsEveryParticipant(t *testing.T) {
	store := &stubStore{}
	inv := NewInvalidator(store, nil)

	groupBuyID := uuid.New()
	participants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	if err := inv.AfterStatusChange(context.Background(), groupBuyID, participants); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, userID := range participants {
		if !containsKey(store.deleted, "ms:view:orders:"+userID.String()) {
			t.Fatalf("expected order view eviction for %s", userID)
		}
	}
}

func TestAfterStatusChangeContinuesPastFailures(t *testing.T) {
	participants := []uuid.UUID{uuid.New(), uuid.New()}
	store := &stubStore{failOn: participants[0].String()}
	inv := NewInvalidator(store, nil)

	err := inv.AfterStatusChange(context.Background(), uuid.New(), participants)
	if err == nil {
		t.Fatal("expected combined error")
	}
	// The second participant's views are still evicted.
	if !containsKey(store.deleted, "ms:view:orders:"+participants[1].String()) {
		t.Fatalf("expected eviction to continue, got %v", store.deleted)
	}
}

func TestInvalidatorNilSafe(t *testing.T) {
	var inv *Invalidator
	if err := inv.AfterJoin(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewInvalidator(nil, nil).AfterAccept(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
