package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// maxBatchIntents caps how many tool calls a single message may fan out into.
const maxBatchIntents = 5

// defaultPendingTTL bounds how long a confirmation question stays answerable.
const defaultPendingTTL = 10 * time.Minute

// Request is one inbound chat message with its conversational context.
type Request struct {
	StoreID   uuid.UUID
	SessionID string
	Message   string
	PageType  string
	History   []HistoryTurn
}

// Response is what the engine hands back to the transport layer.
type Response struct {
	Message       string               `json:"message"`
	Results       []ExecResult         `json:"results,omitempty"`
	PendingAction *types.PendingAction `json:"pending_action,omitempty"`
}

// Engine runs the full pipeline for one message: confirmation short-circuit,
// intent classification, execution, training feedback, response assembly.
type Engine struct {
	log        *logger.Logger
	ai         openai.Client
	classifier *IntentClassifier
	executor   *Executor
	sessions   SessionStore
	recorder   Recorder
	layout     LayoutStore
	catalog    Catalog
}

func NewEngine(log *logger.Logger, ai openai.Client, executor *Executor, sessions SessionStore, recorder Recorder, layout LayoutStore, catalog Catalog) *Engine {
	return &Engine{
		log:        log.With("component", "Engine"),
		ai:         ai,
		classifier: NewIntentClassifier(log, ai),
		executor:   executor,
		sessions:   sessions,
		recorder:   recorder,
		layout:     layout,
		catalog:    catalog,
	}
}

// HandleMessage processes one user message end to end.
func (e *Engine) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return &Response{Message: "Tell me what you'd like to change."}, nil
	}
	pageType := pageOrDefault(req.PageType, "product")

	// A bare "yes" replays the pending action, if there is one. Anything
	// longer is a fresh request and supersedes it.
	if IsConfirmation(req.Message) {
		return e.handleConfirmation(ctx, req, pageType)
	}
	e.clearPending(ctx, req.SessionID)

	available, categories := e.gatherContext(ctx, req.StoreID, pageType)
	intents := e.classifier.Classify(ctx, req.Message, ClassifyContext{
		PageType:       pageType,
		History:        req.History,
		AvailableSlots: available,
		CategoryNames:  categories,
	})
	if len(intents) > maxBatchIntents {
		intents = intents[:maxBatchIntents]
	}

	if len(intents) == 1 && intents[0].Tool == ToolChat {
		return &Response{Message: e.chatReply(ctx, req)}, nil
	}

	candidateID := e.recordCandidate(ctx, req, pageType, intents)

	ec := ExecContext{
		StoreID:  req.StoreID,
		PageType: pageType,
		Message:  req.Message,
		Slots:    NewSlotResolver(e.log, e.ai),
		Styles:   NewStyleResolver(e.log, e.ai),
	}

	results := make([]ExecResult, 0, len(intents))
	var pending *types.PendingAction
	allOK := true
	for _, in := range intents {
		if in.Tool == ToolChat {
			results = append(results, ExecResult{Success: true, Message: e.chatReply(ctx, req)})
			continue
		}
		res := e.executor.Execute(ctx, ec, in)
		results = append(results, res)
		if !res.Success {
			allOK = false
		}
		if res.PendingAction != nil {
			pending = res.PendingAction
		}
	}

	if pending != nil {
		if pending.ExpiresAt.IsZero() {
			pending.ExpiresAt = time.Now().UTC().Add(defaultPendingTTL)
		}
		e.storePending(ctx, req.SessionID, pending)
	}
	e.recordOutcome(ctx, candidateID, allOK, results)

	return &Response{
		Message:       joinMessages(results),
		Results:       results,
		PendingAction: pending,
	}, nil
}

func (e *Engine) handleConfirmation(ctx context.Context, req Request, pageType string) (*Response, error) {
	pending := FindPending(ctx, e.sessions, req.SessionID, req.History)
	if pending == nil || pending.Expired(time.Now().UTC()) {
		e.clearPending(ctx, req.SessionID)
		return &Response{Message: "There's nothing pending to confirm right now."}, nil
	}
	e.clearPending(ctx, req.SessionID)

	ec := ExecContext{
		StoreID:  req.StoreID,
		PageType: pageType,
		Message:  pending.SourceMessage,
		Slots:    NewSlotResolver(e.log, e.ai),
		Styles:   NewStyleResolver(e.log, e.ai),
	}
	intent := Intent{Tool: pending.Tool, Args: pending.Args}
	candidateID := e.recordCandidate(ctx, req, pageType, []Intent{intent})
	res := e.executor.Execute(ctx, ec, intent)
	e.recordOutcome(ctx, candidateID, res.Success, []ExecResult{res})
	return &Response{Message: res.Message, Results: []ExecResult{res}}, nil
}

// gatherContext is best-effort: classification still works with empty slot and
// category lists, just with worse grounding.
func (e *Engine) gatherContext(ctx context.Context, storeID uuid.UUID, pageType string) ([]string, []string) {
	var available, categories []string
	if e.layout != nil {
		slots, err := e.layout.AvailableSlots(ctx, storeID, pageType)
		if err != nil {
			e.log.Warn("could not load available slots", "page_type", pageType, "error", err)
		} else {
			available = slots
		}
	}
	if e.catalog != nil {
		names, err := e.catalog.CategoryNames(ctx, storeID)
		if err != nil {
			e.log.Warn("could not load category names", "error", err)
		} else {
			categories = names
		}
	}
	return available, categories
}

func (e *Engine) chatReply(ctx context.Context, req Request) string {
	if e.ai == nil {
		return "I can restyle and rearrange your pages, manage categories, and look up products. What would you like to do?"
	}
	system := "You are a concise assistant for a store owner managing their shop. " +
		"Answer in at most three sentences. You can also restyle page elements, move them, manage categories, and list products when asked."
	user := req.Message
	if h := formatHistory(req.History, 6); h != "" {
		user = "Conversation so far:\n" + h + "\n\nUser: " + req.Message
	}
	reply, err := e.ai.GenerateText(ctx, system, user)
	if err != nil {
		e.log.Warn("chat reply call failed", "error", err)
		return "Sorry, I couldn't come up with an answer just now. Please try again."
	}
	return strings.TrimSpace(reply)
}

func (e *Engine) recordCandidate(ctx context.Context, req Request, pageType string, intents []Intent) uuid.UUID {
	if e.recorder == nil {
		return uuid.Nil
	}
	id, err := e.recorder.Record(ctx, TrainingRecord{
		StoreID:     req.StoreID,
		SessionID:   req.SessionID,
		UserMessage: req.Message,
		Intents:     intents,
		PageType:    pageType,
	})
	if err != nil {
		e.log.Warn("could not record training candidate", "error", err)
		return uuid.Nil
	}
	return id
}

func (e *Engine) recordOutcome(ctx context.Context, id uuid.UUID, success bool, results []ExecResult) {
	if e.recorder == nil || id == uuid.Nil {
		return
	}
	if err := e.recorder.Outcome(ctx, id, success, joinMessages(results)); err != nil {
		e.log.Warn("could not record training outcome", "error", err)
	}
}

func (e *Engine) storePending(ctx context.Context, sessionID string, action *types.PendingAction) {
	if e.sessions == nil || sessionID == "" || action == nil {
		return
	}
	if err := e.sessions.Put(ctx, sessionID, *action); err != nil {
		e.log.Warn("could not store pending action", "error", err)
	}
}

func (e *Engine) clearPending(ctx context.Context, sessionID string) {
	if e.sessions == nil || sessionID == "" {
		return
	}
	if err := e.sessions.Clear(ctx, sessionID); err != nil {
		e.log.Warn("could not clear pending action", "error", err)
	}
}

func joinMessages(results []ExecResult) string {
	if len(results) == 0 {
		return "Nothing to do."
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Message) != "" {
			parts = append(parts, r.Message)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Done (%d actions).", len(results))
	}
	return strings.Join(parts, "\n")
}
