package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/shopmind/shopmind-backend/internal/types"
)

func TestIsConfirmation(t *testing.T) {
	yes := []string{"yes", "Yes", "YES", "yes!", " yeah ", "yep", "ok", "okay", "sure", "do it", "go ahead", "proceed", "create it", "confirm", "y", "sure."}
	for _, msg := range yes {
		if !IsConfirmation(msg) {
			t.Errorf("IsConfirmation(%q) = false, want true", msg)
		}
	}
	no := []string{"", "yes please do that and also move the price", "no", "yesterday", "ok so what about the title", "maybe"}
	for _, msg := range no {
		if IsConfirmation(msg) {
			t.Errorf("IsConfirmation(%q) = true, want false", msg)
		}
	}
}

type memSessions struct {
	actions map[string]*types.PendingAction
}

func newMemSessions() *memSessions {
	return &memSessions{actions: map[string]*types.PendingAction{}}
}

func (m *memSessions) Put(ctx context.Context, sessionID string, action types.PendingAction) error {
	m.actions[sessionID] = &action
	return nil
}

func (m *memSessions) Get(ctx context.Context, sessionID string) (*types.PendingAction, error) {
	return m.actions[sessionID], nil
}

func (m *memSessions) Clear(ctx context.Context, sessionID string) error {
	delete(m.actions, sessionID)
	return nil
}

func TestFindPending_StoreWins(t *testing.T) {
	store := newMemSessions()
	fromStore := types.PendingAction{Tool: ToolCreateAndAdd, Question: "from store"}
	store.Put(context.Background(), "s1", fromStore)

	history := []HistoryTurn{
		{Role: types.ChatRoleAssistant, Content: "?", PendingAction: &types.PendingAction{Tool: ToolCreateAndAdd, Question: "from history"}},
	}
	got := FindPending(context.Background(), store, "s1", history)
	if got == nil || got.Question != "from store" {
		t.Fatalf("FindPending = %+v, want store action", got)
	}
}

func TestFindPending_HistoryFallback(t *testing.T) {
	history := []HistoryTurn{
		{Role: types.ChatRoleUser, Content: "add mug to gifts"},
		{Role: types.ChatRoleAssistant, Content: "create gifts?", PendingAction: &types.PendingAction{Tool: ToolCreateAndAdd, Question: "older"}},
		{Role: types.ChatRoleUser, Content: "also add the hat"},
		{Role: types.ChatRoleAssistant, Content: "create hats?", PendingAction: &types.PendingAction{Tool: ToolCreateAndAdd, Question: "newer"}},
	}
	got := FindPending(context.Background(), nil, "", history)
	if got == nil || got.Question != "newer" {
		t.Fatalf("FindPending = %+v, want newest pending action", got)
	}
}

func TestFindPending_ExpiredIsIgnored(t *testing.T) {
	history := []HistoryTurn{
		{Role: types.ChatRoleAssistant, Content: "?", PendingAction: &types.PendingAction{
			Tool:      ToolCreateAndAdd,
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		}},
	}
	if got := FindPending(context.Background(), nil, "", history); got != nil {
		t.Fatalf("expired pending action returned: %+v", got)
	}
}

func TestFindPending_NoAssistantTurns(t *testing.T) {
	history := []HistoryTurn{
		{Role: types.ChatRoleUser, Content: "hello"},
	}
	if got := FindPending(context.Background(), nil, "", history); got != nil {
		t.Fatalf("FindPending = %+v, want nil", got)
	}
}

func TestPendingActionExpired(t *testing.T) {
	now := time.Now().UTC()
	fresh := &types.PendingAction{ExpiresAt: now.Add(time.Minute)}
	if fresh.Expired(now) {
		t.Error("fresh action reported expired")
	}
	stale := &types.PendingAction{ExpiresAt: now.Add(-time.Minute)}
	if !stale.Expired(now) {
		t.Error("stale action reported fresh")
	}
	// Zero expiry means no expiry.
	forever := &types.PendingAction{}
	if forever.Expired(now) {
		t.Error("zero expiry reported expired")
	}
}
