package tenancy

import (
	"context"
	"testing"
)

func TestWorkspaceIDRoundTrip(t *testing.T) {
	ctx := WithWorkspaceID(context.Background(), "ws_123")
	id, ok := WorkspaceIDFromContext(ctx)
	if !ok {
		t.Fatal("expected workspace id present")
	}
	if id != "ws_123" {
		t.Fatalf("expected ws_123, got %s", id)
	}
}

func TestWorkspaceIDMissing(t *testing.T) {
	if _, ok := WorkspaceIDFromContext(context.Background()); ok {
		t.Fatal("expected workspace id absent")
	}
}

func TestWorkspaceIDEmptyTreatedAsAbsent(t *testing.T) {
	ctx := WithWorkspaceID(context.Background(), "")
	if _, ok := WorkspaceIDFromContext(ctx); ok {
		t.Fatal("expected empty workspace id to read as absent")
	}
}

func TestUserRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), "user_1", "owner")
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID != "user_1" {
		t.Fatalf("expected user_1, got %q ok=%v", userID, ok)
	}
	role, ok := RoleFromContext(ctx)
	if !ok || role != "owner" {
		t.Fatalf("expected owner, got %q ok=%v", role, ok)
	}
}
