package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// Intent is one classified tool call. A compound user message classifies into
// several intents executed in order.
type Intent struct {
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// HistoryTurn is one client-supplied conversation turn. Assistant turns may
// carry the pending action they asked confirmation for.
type HistoryTurn struct {
	Role          string               `json:"role"`
	Content       string               `json:"content"`
	PendingAction *types.PendingAction `json:"pending_action,omitempty"`
}

// ClassifyContext is what the classifier sees besides the message itself.
type ClassifyContext struct {
	PageType       string
	History        []HistoryTurn
	AvailableSlots []string
	CategoryNames  []string
}

// intentCategories is the fixed taxonomy shown to the collaborator.
var intentCategories = []string{
	"styling", "layout_modify", "product_query", "analytics_query",
	"category_management", "attribute_management", "customer_management",
	"cms_management", "settings_update", "job_trigger", "translation",
	"plugin", "marketing", "publish", "chat",
}

type IntentClassifier struct {
	log *logger.Logger
	ai  openai.Client
}

func NewIntentClassifier(log *logger.Logger, ai openai.Client) *IntentClassifier {
	return &IntentClassifier{log: log.With("component", "IntentClassifier"), ai: ai}
}

// Classify issues exactly one completion call for the message and parses the
// answer tolerantly: code fences, a single object, or an array of objects all
// work. Malformed output degrades to the chat tool; it never fails the
// request.
func (c *IntentClassifier) Classify(ctx context.Context, message string, cctx ClassifyContext) []Intent {
	if c.ai == nil {
		return []Intent{{Tool: ToolChat}}
	}

	raw, err := c.ai.GenerateText(ctx, classifySystemPrompt(), classifyUserPrompt(message, cctx))
	if err != nil {
		c.log.Warn("intent classification call failed", "error", err)
		return []Intent{{Tool: ToolChat}}
	}

	intents, err := ParseIntents(raw)
	if err != nil {
		c.log.Warn("intent classification degraded to chat", "error", err)
		return []Intent{{Tool: ToolChat}}
	}
	return intents
}

func classifySystemPrompt() string {
	return strings.Join([]string{
		"You classify store-owner messages for an e-commerce admin assistant.",
		"Intent categories: " + strings.Join(intentCategories, ", ") + ".",
		"Emit a tool call as JSON: {\"tool\": <name>, ...args} or a JSON array for compound requests.",
		"Tools:",
		`- update_styling {element, property, value, page?} for styling requests`,
		`- move_element {element, position: above|below, target, page?} for layout requests`,
		`- list_products {filters?: {in_stock, out_of_stock, low_stock, featured, on_sale, category, price_min, price_max, sort_by, limit}}`,
		`- add_to_category {product, category}`,
		`- remove_from_category {product, category}`,
		`- create_category {name}`,
		`- publish_layout {page?}`,
		`- chat {} for greetings, questions, anything with no store mutation`,
		"Return ONLY the JSON.",
	}, "\n")
}

func classifyUserPrompt(message string, cctx ClassifyContext) string {
	var b strings.Builder
	if cctx.PageType != "" {
		b.WriteString("PAGE_TYPE: " + cctx.PageType + "\n")
	}
	if len(cctx.AvailableSlots) > 0 {
		b.WriteString("AVAILABLE_SLOTS: " + strings.Join(cctx.AvailableSlots, ", ") + "\n")
	}
	if len(cctx.CategoryNames) > 0 {
		b.WriteString("CATEGORIES: " + strings.Join(cctx.CategoryNames, ", ") + "\n")
	}
	if recent := formatHistory(cctx.History, 6); recent != "" {
		b.WriteString("RECENT_MESSAGES:\n" + recent + "\n")
	}
	b.WriteString("USER_MESSAGE:\n" + strings.TrimSpace(message))
	return b.String()
}

func formatHistory(turns []HistoryTurn, max int) string {
	if len(turns) == 0 {
		return ""
	}
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	var b strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if len(content) > 400 {
			content = content[:400]
		}
		b.WriteString(strings.TrimSpace(t.Role) + ": " + content + "\n")
	}
	return strings.TrimSpace(b.String())
}

// ParseIntents extracts the first balanced JSON object or array from raw text
// and decodes it into one or more intents.
func ParseIntents(raw string) ([]Intent, error) {
	span := ExtractJSONSpan(raw)
	if span == "" {
		return nil, fmt.Errorf("no JSON found in classifier output: %w", apierr.ClassifierParseFailure)
	}

	var intents []Intent
	if strings.HasPrefix(span, "[") {
		var calls []map[string]any
		if err := json.Unmarshal([]byte(span), &calls); err != nil {
			return nil, fmt.Errorf("decode intent array: %w", apierr.ClassifierParseFailure)
		}
		for _, call := range calls {
			if in, ok := intentFromMap(call); ok {
				intents = append(intents, in)
			}
		}
	} else {
		var call map[string]any
		if err := json.Unmarshal([]byte(span), &call); err != nil {
			return nil, fmt.Errorf("decode intent object: %w", apierr.ClassifierParseFailure)
		}
		if in, ok := intentFromMap(call); ok {
			intents = append(intents, in)
		}
	}
	if len(intents) == 0 {
		return nil, fmt.Errorf("classifier output carried no tool call: %w", apierr.ClassifierParseFailure)
	}
	return intents, nil
}

func intentFromMap(call map[string]any) (Intent, bool) {
	tool, _ := call["tool"].(string)
	tool = strings.ToLower(strings.TrimSpace(tool))
	if tool == "" {
		return Intent{}, false
	}
	args := map[string]any{}
	for k, v := range call {
		switch k {
		case "tool", "confidence":
		default:
			args[k] = v
		}
	}
	conf := 0.0
	if f, ok := call["confidence"].(float64); ok {
		conf = f
	}
	return Intent{Tool: tool, Args: args, Confidence: conf}, true
}

// ExtractJSONSpan returns the first balanced {...} or [...] span in the text,
// tolerant of markdown code fences and surrounding prose. String literals and
// escapes are respected while balancing.
func ExtractJSONSpan(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		} else {
			s = rest
		}
		s = strings.TrimSpace(s)
	}

	start := -1
	for i, ch := range s {
		if ch == '{' || ch == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// Typed argument structs validated at the trust boundary. Unknown fields are
// rejected rather than passed through.

type UpdateStylingArgs struct {
	Element  string `json:"element"`
	Property string `json:"property"`
	Value    string `json:"value"`
	Page     string `json:"page,omitempty"`
}

type MoveElementArgs struct {
	Element  string `json:"element"`
	Position string `json:"position"`
	Target   string `json:"target"`
	Page     string `json:"page,omitempty"`
}

type ListProductsArgs struct {
	Filters *ListProductFilters `json:"filters,omitempty"`
}

type ListProductFilters struct {
	InStock    bool    `json:"in_stock,omitempty"`
	OutOfStock bool    `json:"out_of_stock,omitempty"`
	LowStock   bool    `json:"low_stock,omitempty"`
	Featured   bool    `json:"featured,omitempty"`
	OnSale     bool    `json:"on_sale,omitempty"`
	Category   string  `json:"category,omitempty"`
	PriceMin   *int64  `json:"price_min,omitempty"`
	PriceMax   *int64  `json:"price_max,omitempty"`
	SortBy     string  `json:"sort_by,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

type CategoryMembershipArgs struct {
	Product  string `json:"product"`
	Category string `json:"category"`
}

type CreateCategoryArgs struct {
	Name string `json:"name"`
}

type PublishLayoutArgs struct {
	Page string `json:"page,omitempty"`
}

// decodeArgs round-trips the loose argument map into a typed struct with
// unknown fields rejected.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

var requiredArgs = map[string][]string{
	ToolUpdateStyling:      {"element", "property", "value"},
	ToolMoveElement:        {"element", "position", "target"},
	ToolAddToCategory:      {"product", "category"},
	ToolRemoveFromCategory: {"product", "category"},
	ToolCreateCategory:     {"name"},
	ToolCreateAndAdd:       {"product", "category"},
}

// ValidateIntent checks required arguments for the intent's tool before it
// reaches the executor.
func ValidateIntent(in Intent) error {
	req, ok := requiredArgs[in.Tool]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range req {
		v, present := in.Args[key]
		s, isStr := v.(string)
		if !present || (isStr && strings.TrimSpace(s) == "") {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tool %s is missing arguments: %s", in.Tool, strings.Join(missing, ", "))
	}
	return nil
}
