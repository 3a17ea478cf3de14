package assistant

import (
	"context"
	"regexp"
	"time"

	"github.com/shopmind/shopmind-backend/internal/types"
)

// confirmationRe is the fixed grammar that counts as a bare "yes". Anything
// longer is treated as a new request, which implicitly cancels the pending
// action by superseding it.
var confirmationRe = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|ok|okay|sure|do it|go ahead|proceed|create it|confirm|please|y)\s*[.!]?\s*$`)

func IsConfirmation(message string) bool {
	return confirmationRe.MatchString(message)
}

// SessionStore is the server-side home of pending actions. The redis-backed
// implementation satisfies it; a nil store means the engine falls back to
// scanning client-supplied history.
type SessionStore interface {
	Put(ctx context.Context, sessionID string, action types.PendingAction) error
	Get(ctx context.Context, sessionID string) (*types.PendingAction, error)
	Clear(ctx context.Context, sessionID string) error
}

// FindPending locates the action a confirmation would replay: the session
// store first, then the most recent assistant history turn carrying one.
func FindPending(ctx context.Context, store SessionStore, sessionID string, history []HistoryTurn) *types.PendingAction {
	if store != nil && sessionID != "" {
		if action, err := store.Get(ctx, sessionID); err == nil && action != nil {
			return action
		}
	}
	return pendingFromHistory(history)
}

// pendingFromHistory scans backward for the newest assistant turn with a
// pending action attached. Newer pending actions always shadow older ones.
func pendingFromHistory(history []HistoryTurn) *types.PendingAction {
	now := time.Now().UTC()
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != types.ChatRoleAssistant || turn.PendingAction == nil {
			continue
		}
		if turn.PendingAction.Expired(now) {
			return nil
		}
		return turn.PendingAction
	}
	return nil
}
