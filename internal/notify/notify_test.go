package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSendAndInbox(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "u1", "Trip activated", "Douz desert weekend reached its votes"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Send(ctx, "u2", "Trip activated", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	inbox, err := svc.Inbox(ctx, "u1")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].UserID != "u1" || inbox[0].Read {
		t.Fatalf("unexpected inbox: %+v", inbox)
	}
}

func TestSendValidation(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Send(context.Background(), "", "title", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing user: want ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Send(context.Background(), "u1", "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title: want ErrInvalidInput, got %v", err)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, "u1", "one", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Send(ctx, "u1", "two", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	count, err := svc.UnreadCount(ctx, "u1")
	if err != nil || count != 2 {
		t.Fatalf("unread: count=%d err=%v", count, err)
	}

	if err := svc.MarkRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	count, err = svc.UnreadCount(ctx, "u1")
	if err != nil || count != 1 {
		t.Fatalf("after one read: count=%d err=%v", count, err)
	}

	if err := svc.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	count, err = svc.UnreadCount(ctx, "u1")
	if err != nil || count != 0 {
		t.Fatalf("after all read: count=%d err=%v", count, err)
	}

	if err := svc.MarkRead(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing notification: want ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.Send(ctx, "u1", "gone soon", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := svc.Delete(ctx, n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: want ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestBroadcast(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Broadcast(ctx, []string{"u1", "u2", "u3"}, "Trip activated", "pack your bags"); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		inbox, err := svc.Inbox(ctx, id)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("inbox %s: len=%d err=%v", id, len(inbox), err)
		}
	}
}

func TestInboxOrderNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	now := base
	svc, err := NewService(store, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Send(ctx, "u1", "old", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	now = base.Add(time.Hour)
	if _, err := svc.Send(ctx, "u1", "new", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	inbox, err := svc.Inbox(ctx, "u1")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 2 || inbox[0].Title != "new" {
		t.Fatalf("unexpected order: %+v", inbox)
	}
}
