package types

import "time"

// PendingAction is a deferred tool invocation awaiting explicit user
// confirmation. It is held server-side per session with an expiry; assistant
// chat turns also embed it in message metadata so a client that resends
// history can recover it statelessly.
type PendingAction struct {
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	Question      string         `json:"question"`
	SourceMessage string         `json:"source_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

func (p *PendingAction) Expired(now time.Time) bool {
	return p != nil && !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
