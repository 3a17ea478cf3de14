package assistant

import (
	"context"
	"strings"
	"testing"
)

func TestExtractJSONSpan(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"tool":"chat"}`, `{"tool":"chat"}`},
		{"fenced", "```json\n{\"tool\":\"chat\"}\n```", `{"tool":"chat"}`},
		{"prose around", `Sure! Here you go: {"tool":"chat"} Hope that helps.`, `{"tool":"chat"}`},
		{"array", `[{"tool":"chat"}]`, `[{"tool":"chat"}]`},
		{"braces in strings", `{"tool":"chat","args":{"q":"use { and } freely"}}`, `{"tool":"chat","args":{"q":"use { and } freely"}}`},
		{"no json", "I could not decide.", ""},
	}
	for _, tc := range cases {
		if got := ExtractJSONSpan(tc.in); got != tc.want {
			t.Errorf("%s: ExtractJSONSpan = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseIntents(t *testing.T) {
	intents, err := ParseIntents(`{"tool":"update_styling","args":{"element":"title","property":"color","value":"red"},"confidence":0.9}`)
	if err != nil {
		t.Fatalf("single object: %v", err)
	}
	if len(intents) != 1 || intents[0].Tool != ToolUpdateStyling {
		t.Fatalf("single object parsed as %+v", intents)
	}

	intents, err = ParseIntents("```json\n[{\"tool\":\"move_element\",\"args\":{\"element\":\"sku\",\"position\":\"above\",\"target\":\"price\"}},{\"tool\":\"publish_layout\",\"args\":{}}]\n```")
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(intents) != 2 || intents[0].Tool != ToolMoveElement || intents[1].Tool != ToolPublishLayout {
		t.Fatalf("array parsed as %+v", intents)
	}
}

func TestParseIntents_Garbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"tool": }`} {
		if _, err := ParseIntents(raw); err == nil {
			t.Errorf("ParseIntents(%q) succeeded, want error", raw)
		}
	}
}

func TestClassify_DegradesToChat(t *testing.T) {
	ai := &fakeAI{textReply: "I think you want to change something?"}
	c := NewIntentClassifier(testLogger(), ai)
	intents := c.Classify(context.Background(), "make it nicer", ClassifyContext{PageType: "product"})
	if len(intents) != 1 || intents[0].Tool != ToolChat {
		t.Fatalf("garbage classification = %+v, want chat", intents)
	}

	ai = &fakeAI{textErr: errFakeDown}
	c = NewIntentClassifier(testLogger(), ai)
	intents = c.Classify(context.Background(), "make it nicer", ClassifyContext{PageType: "product"})
	if len(intents) != 1 || intents[0].Tool != ToolChat {
		t.Fatalf("failed call = %+v, want chat", intents)
	}
}

func TestClassify_PassesContext(t *testing.T) {
	ai := &fakeAI{textReply: `{"tool":"chat"}`}
	c := NewIntentClassifier(testLogger(), ai)
	c.Classify(context.Background(), "hello", ClassifyContext{
		PageType:       "product",
		AvailableSlots: []string{"product_sku"},
		CategoryNames:  []string{"Sale"},
	})
	if !strings.Contains(ai.lastUser, "product_sku") || !strings.Contains(ai.lastUser, "Sale") {
		t.Errorf("prompt missing context: %q", ai.lastUser)
	}
}

func TestDecodeArgs_RejectsUnknownFields(t *testing.T) {
	var args MoveElementArgs
	err := decodeArgs(map[string]any{
		"element": "sku", "position": "above", "target": "price", "speed": "fast",
	}, &args)
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidateIntent(t *testing.T) {
	ok := Intent{Tool: ToolUpdateStyling, Args: map[string]any{"element": "title", "property": "color", "value": "red"}}
	if err := ValidateIntent(ok); err != nil {
		t.Errorf("valid intent rejected: %v", err)
	}

	missing := Intent{Tool: ToolUpdateStyling, Args: map[string]any{"element": "title"}}
	err := ValidateIntent(missing)
	if err == nil {
		t.Fatal("missing args accepted")
	}
	if !strings.Contains(err.Error(), "property") || !strings.Contains(err.Error(), "value") {
		t.Errorf("error does not name missing args: %v", err)
	}

	blank := Intent{Tool: ToolCreateCategory, Args: map[string]any{"name": "  "}}
	if ValidateIntent(blank) == nil {
		t.Error("blank required arg accepted")
	}

	// Tools without declared requirements pass through.
	if err := ValidateIntent(Intent{Tool: ToolChat}); err != nil {
		t.Errorf("chat intent rejected: %v", err)
	}
}
