package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/shopmind/shopmind-backend/internal/assistant"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// historyWindow bounds how many persisted turns feed the classifier.
const historyWindow = 20

// messageMetadata is the shape stored in chat_message.metadata.
type messageMetadata struct {
	PendingAction *types.PendingAction  `json:"pending_action,omitempty"`
	Results       []assistant.ExecResult `json:"results,omitempty"`
}

// ChatInput is one inbound assistant message from the transport layer.
// SessionID overrides the pending-action session key (a client that keeps its
// own session); History is the stateless fallback for fresh threads whose
// client resends the conversation itself.
type ChatInput struct {
	StoreID   uuid.UUID
	ThreadID  *uuid.UUID
	SessionID string
	Message   string
	PageType  string
	History   []assistant.HistoryTurn
}

// ChatOutput pairs the engine response with the thread it landed in.
type ChatOutput struct {
	ThreadID uuid.UUID            `json:"thread_id"`
	Message  string               `json:"message"`
	Results  []assistant.ExecResult `json:"results,omitempty"`
	Pending  *types.PendingAction `json:"pending_action,omitempty"`
}

// AssistantService persists conversations around the engine: it loads history,
// runs the message, and writes both turns back.
type AssistantService struct {
	engine *assistant.Engine
	chat   repos.ChatRepo
	log    *logger.Logger
}

func NewAssistantService(engine *assistant.Engine, chat repos.ChatRepo, baseLog *logger.Logger) *AssistantService {
	return &AssistantService{
		engine: engine,
		chat:   chat,
		log:    baseLog.With("service", "AssistantService"),
	}
}

func (s *AssistantService) HandleChat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	thread, err := s.resolveThread(ctx, in)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 && len(in.History) > 0 {
		history = in.History
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = thread.ID.String()
	}

	if _, err := s.chat.AppendMessage(ctx, nil, &types.ChatMessage{
		ThreadID: thread.ID,
		Role:     types.ChatRoleUser,
		Content:  in.Message,
	}); err != nil {
		return nil, err
	}

	resp, err := s.engine.HandleMessage(ctx, assistant.Request{
		StoreID:   in.StoreID,
		SessionID: sessionID,
		Message:   in.Message,
		PageType:  in.PageType,
		History:   history,
	})
	if err != nil {
		return nil, err
	}

	meta := messageMetadata{PendingAction: resp.PendingAction, Results: resp.Results}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if _, err := s.chat.AppendMessage(ctx, nil, &types.ChatMessage{
		ThreadID: thread.ID,
		Role:     types.ChatRoleAssistant,
		Content:  resp.Message,
		Metadata: datatypes.JSON(raw),
	}); err != nil {
		return nil, err
	}

	return &ChatOutput{
		ThreadID: thread.ID,
		Message:  resp.Message,
		Results:  resp.Results,
		Pending:  resp.PendingAction,
	}, nil
}

// Transcript returns a thread's messages oldest first.
func (s *AssistantService) Transcript(ctx context.Context, storeID, threadID uuid.UUID) ([]*types.ChatMessage, error) {
	thread, err := s.chat.GetThread(ctx, nil, threadID)
	if err != nil {
		return nil, err
	}
	if thread.StoreID != storeID {
		return nil, fmt.Errorf("thread %s does not belong to this store", threadID)
	}
	return s.chat.ListMessages(ctx, nil, threadID, 0)
}

func (s *AssistantService) resolveThread(ctx context.Context, in ChatInput) (*types.ChatThread, error) {
	if in.ThreadID != nil {
		thread, err := s.chat.GetThread(ctx, nil, *in.ThreadID)
		if err != nil {
			return nil, err
		}
		if thread.StoreID != in.StoreID {
			return nil, fmt.Errorf("thread %s does not belong to this store", in.ThreadID)
		}
		return thread, nil
	}
	return s.chat.CreateThread(ctx, nil, &types.ChatThread{
		StoreID: in.StoreID,
		Title:   threadTitle(in.Message),
	})
}

func (s *AssistantService) loadHistory(ctx context.Context, threadID uuid.UUID) ([]assistant.HistoryTurn, error) {
	msgs, err := s.chat.ListMessages(ctx, nil, threadID, historyWindow)
	if err != nil {
		return nil, err
	}
	turns := make([]assistant.HistoryTurn, 0, len(msgs))
	for _, m := range msgs {
		turn := assistant.HistoryTurn{Role: m.Role, Content: m.Content}
		if len(m.Metadata) > 0 {
			var meta messageMetadata
			if err := json.Unmarshal(m.Metadata, &meta); err == nil {
				turn.PendingAction = meta.PendingAction
			}
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func threadTitle(message string) string {
	title := strings.TrimSpace(message)
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}
