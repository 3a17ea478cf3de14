package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/types"
)

type memRecorder struct {
	records  []TrainingRecord
	outcomes map[uuid.UUID]bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{outcomes: map[uuid.UUID]bool{}}
}

func (m *memRecorder) Record(ctx context.Context, rec TrainingRecord) (uuid.UUID, error) {
	m.records = append(m.records, rec)
	return uuid.New(), nil
}

func (m *memRecorder) Outcome(ctx context.Context, id uuid.UUID, success bool, actionTaken string) error {
	m.outcomes[id] = success
	return nil
}

func testEngine(ai *fakeAI, layout *fakeLayout, catalog *fakeCatalog, sessions SessionStore, rec Recorder) *Engine {
	var client openai.Client
	if ai != nil {
		client = ai
	}
	executor := NewExecutor(testLogger(), layout, catalog)
	return NewEngine(testLogger(), client, executor, sessions, rec, layout, catalog)
}

func TestHandleMessage_StylingEndToEnd(t *testing.T) {
	ai := &fakeAI{textReply: `{"tool":"update_styling","args":{"element":"title","property":"color","value":"red"},"confidence":0.95}`}
	layout := newFakeLayout()
	rec := newMemRecorder()
	engine := testEngine(ai, layout, newFakeCatalog(), nil, rec)

	resp, err := engine.HandleMessage(context.Background(), Request{
		StoreID:  uuid.New(),
		Message:  "make the title red",
		PageType: "product",
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].Success {
		t.Fatalf("results = %+v", resp.Results)
	}
	if got := layout.configs["product"].Slots["product_title"].Styles["color"]; got != "#ef4444" {
		t.Errorf("style applied = %q, want #ef4444", got)
	}
	if len(rec.records) != 1 {
		t.Fatalf("training records = %d, want 1", len(rec.records))
	}
	if len(rec.outcomes) != 1 {
		t.Fatalf("training outcomes = %d, want 1", len(rec.outcomes))
	}
	for _, ok := range rec.outcomes {
		if !ok {
			t.Error("outcome = failure, want success")
		}
	}
}

func TestHandleMessage_BatchKeepsGoingAfterFailure(t *testing.T) {
	ai := &fakeAI{textReply: `[
		{"tool":"update_styling","args":{"element":"hero banner","property":"color","value":"red"}},
		{"tool":"update_styling","args":{"element":"title","property":"color","value":"blue"}}
	]`}
	layout := newFakeLayout()
	engine := testEngine(ai, layout, newFakeCatalog(), nil, nil)

	resp, err := engine.HandleMessage(context.Background(), Request{StoreID: uuid.New(), Message: "restyle things", PageType: "product"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Success {
		t.Error("first result should fail (unknown element)")
	}
	if !resp.Results[1].Success {
		t.Errorf("second result failed: %s", resp.Results[1].Message)
	}
	if got := layout.configs["product"].Slots["product_title"].Styles["color"]; got != "#3b82f6" {
		t.Errorf("second tool did not run: color = %q", got)
	}
}

func TestHandleMessage_ConfirmationReplaysPending(t *testing.T) {
	layout := newFakeLayout()
	catalog := newFakeCatalog()
	sessions := newMemSessions()
	engine := testEngine(nil, layout, catalog, sessions, nil)

	pending := types.PendingAction{
		Tool:      ToolCreateAndAdd,
		Args:      map[string]any{"product": "Beanie", "category": "Winter"},
		Question:  "Create Winter and add Beanie?",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	sessions.Put(context.Background(), "sess-1", pending)

	resp, err := engine.HandleMessage(context.Background(), Request{
		StoreID:   uuid.New(),
		SessionID: "sess-1",
		Message:   "yes",
		PageType:  "product",
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].Success {
		t.Fatalf("replay results = %+v", resp.Results)
	}
	if catalog.categories["winter"] == nil {
		t.Fatal("pending create_and_add did not run")
	}
	if got, _ := sessions.Get(context.Background(), "sess-1"); got != nil {
		t.Errorf("pending action not cleared: %+v", got)
	}
}

func TestHandleMessage_ConfirmationRecordsTraining(t *testing.T) {
	layout := newFakeLayout()
	catalog := newFakeCatalog()
	sessions := newMemSessions()
	rec := newMemRecorder()
	engine := testEngine(nil, layout, catalog, sessions, rec)

	pending := types.PendingAction{
		Tool:      ToolCreateAndAdd,
		Args:      map[string]any{"product": "Beanie", "category": "Winter"},
		Question:  "Create Winter and add Beanie?",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	sessions.Put(context.Background(), "sess-1", pending)

	if _, err := engine.HandleMessage(context.Background(), Request{
		StoreID:   uuid.New(),
		SessionID: "sess-1",
		Message:   "yes",
		PageType:  "product",
	}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("training records = %d, want 1", len(rec.records))
	}
	if got := rec.records[0].Intents[0].Tool; got != ToolCreateAndAdd {
		t.Errorf("recorded tool = %q, want %q", got, ToolCreateAndAdd)
	}
	if len(rec.outcomes) != 1 {
		t.Fatalf("training outcomes = %d, want 1", len(rec.outcomes))
	}
	for _, ok := range rec.outcomes {
		if !ok {
			t.Error("replayed action recorded as failure")
		}
	}
}

func TestHandleMessage_ConfirmationWithNothingPending(t *testing.T) {
	engine := testEngine(nil, newFakeLayout(), newFakeCatalog(), newMemSessions(), nil)
	resp, err := engine.HandleMessage(context.Background(), Request{StoreID: uuid.New(), SessionID: "s", Message: "yes"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want none", resp.Results)
	}
	if !strings.Contains(resp.Message, "nothing pending") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestHandleMessage_NewRequestSupersedesPending(t *testing.T) {
	ai := &fakeAI{textReply: `{"tool":"update_styling","args":{"element":"title","property":"color","value":"red"}}`}
	sessions := newMemSessions()
	sessions.Put(context.Background(), "sess-1", types.PendingAction{Tool: ToolCreateAndAdd})
	engine := testEngine(ai, newFakeLayout(), newFakeCatalog(), sessions, nil)

	if _, err := engine.HandleMessage(context.Background(), Request{
		StoreID:   uuid.New(),
		SessionID: "sess-1",
		Message:   "actually make the title red instead",
		PageType:  "product",
	}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got, _ := sessions.Get(context.Background(), "sess-1"); got != nil {
		t.Errorf("superseded pending action survived: %+v", got)
	}
}

func TestHandleMessage_PendingActionStoredInSession(t *testing.T) {
	ai := &fakeAI{textReply: `{"tool":"add_to_category","args":{"product":"Beanie","category":"Winter"}}`}
	sessions := newMemSessions()
	engine := testEngine(ai, newFakeLayout(), newFakeCatalog(), sessions, nil)

	resp, err := engine.HandleMessage(context.Background(), Request{
		StoreID:   uuid.New(),
		SessionID: "sess-2",
		Message:   "add the beanie to winter",
		PageType:  "product",
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.PendingAction == nil || resp.PendingAction.Tool != ToolCreateAndAdd {
		t.Fatalf("pending action = %+v", resp.PendingAction)
	}
	stored, _ := sessions.Get(context.Background(), "sess-2")
	if stored == nil || stored.Tool != ToolCreateAndAdd {
		t.Fatalf("session store = %+v", stored)
	}
}

func TestHandleMessage_ChatFallback(t *testing.T) {
	ai := &fakeAI{textReply: "not json at all"}
	engine := testEngine(ai, newFakeLayout(), newFakeCatalog(), nil, nil)
	resp, err := engine.HandleMessage(context.Background(), Request{StoreID: uuid.New(), Message: "how are you", PageType: "product"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("chat fallback produced results: %+v", resp.Results)
	}
	if resp.Message == "" {
		t.Error("chat fallback produced no message")
	}
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	engine := testEngine(nil, newFakeLayout(), newFakeCatalog(), nil, nil)
	resp, err := engine.HandleMessage(context.Background(), Request{StoreID: uuid.New(), Message: "   "})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.Message == "" {
		t.Error("empty message got empty reply")
	}
}
