package assistant

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/logger"
)

// StyleResolution is the outcome of mapping free text to a concrete CSS
// property and value. Applied=false means the request could not be made
// concrete; the caller reports "not applied" instead of failing.
type StyleResolution struct {
	Property string
	Value    string
	Applied  bool
}

type StyleResolver struct {
	log *logger.Logger
	ai  openai.Client
}

func NewStyleResolver(log *logger.Logger, ai openai.Client) *StyleResolver {
	return &StyleResolver{log: log.With("component", "StyleResolver"), ai: ai}
}

var (
	hexColorRe  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	rgbColorRe  = regexp.MustCompile(`^rgba?\([^)]*\)$`)
	cssLengthRe = regexp.MustCompile(`^-?\d+(\.\d+)?(px|em|rem|%|vh|vw|pt)$`)
	bareIntRe   = regexp.MustCompile(`^\d+$`)
	relativeRe  = regexp.MustCompile(`(?i)^(slightly |a bit |a little |much |way |a lot )?(bigger|larger|smaller|tinier|wider|narrower|taller|shorter)$`)
)

// ResolveStyle normalizes a raw property/value pair against the current value
// of that property on the target slot. The result is stable: feeding a
// resolved pair back through yields the same pair.
func (r *StyleResolver) ResolveStyle(ctx context.Context, rawProp, rawValue, elementKind, current string) StyleResolution {
	prop := normalizeProperty(rawProp)
	value := strings.TrimSpace(rawValue)
	if prop == "" || value == "" {
		return StyleResolution{}
	}

	if isColorProperty(prop) {
		return StyleResolution{Property: prop, Value: r.resolveColor(ctx, value), Applied: true}
	}

	if isLengthProperty(prop) {
		if v, ok := r.resolveLength(ctx, prop, value, current); ok {
			return StyleResolution{Property: prop, Value: v, Applied: true}
		}
	}

	if prop == "fontWeight" {
		if v, ok := resolveFontWeight(value); ok {
			return StyleResolution{Property: prop, Value: v, Applied: true}
		}
	}

	// Anything not understood yet gets one generic classifier-backed pass
	// before rejection.
	if res, ok := r.resolveGeneric(ctx, rawProp, rawValue, elementKind); ok {
		return res
	}
	return StyleResolution{Property: prop, Value: value, Applied: false}
}

// normalizeProperty maps free text ("font weight", "rounded") to a canonical
// camelCase CSS property name.
func normalizeProperty(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", " ")
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.Join(strings.Fields(key), " ")
	if canonical, ok := cssPropertyAliases()[key]; ok {
		return canonical
	}
	// Already a camelCase property name; pass it through as-is.
	if regexp.MustCompile(`^[a-z]+([A-Z][a-z]*)*$`).MatchString(strings.TrimSpace(raw)) {
		return strings.TrimSpace(raw)
	}
	return camelCase(key)
}

func camelCase(spaced string) string {
	fields := strings.Fields(spaced)
	if len(fields) == 0 {
		return ""
	}
	out := fields[0]
	for _, f := range fields[1:] {
		out += strings.ToUpper(f[:1]) + f[1:]
	}
	return out
}

func isColorProperty(prop string) bool {
	switch prop {
	case "color", "backgroundColor", "borderColor":
		return true
	}
	return false
}

func isLengthProperty(prop string) bool {
	switch prop {
	case "fontSize", "borderRadius", "width", "height", "margin", "padding", "letterSpacing", "lineHeight":
		return true
	}
	return false
}

// resolveColor: hex and rgb() pass through, named colors hit the table, and
// natural-language descriptions go to the classifier with a constrained
// prompt. An invalid classifier hex falls back to the raw input unchanged.
func (r *StyleResolver) resolveColor(ctx context.Context, value string) string {
	v := strings.TrimSpace(value)
	if hexColorRe.MatchString(v) || rgbColorRe.MatchString(strings.ToLower(v)) {
		return v
	}
	if hex, ok := namedColors()[strings.ToLower(v)]; ok {
		return hex
	}
	if r.ai == nil {
		return v
	}
	system := strings.Join([]string{
		"You convert a color description into a single CSS hex color.",
		`Return ONLY JSON like {"hex": "#aabbcc", "name": "short name"}.`,
	}, "\n")
	obj, err := r.ai.GenerateJSON(ctx, system, "COLOR DESCRIPTION: "+v, "color_pick_v1", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"hex":  map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
		},
		"required": []any{"hex", "name"},
	})
	if err != nil {
		r.log.Warn("color classification failed", "value", v, "error", err)
		return v
	}
	hex, _ := obj["hex"].(string)
	hex = strings.TrimSpace(hex)
	if hexColorRe.MatchString(hex) {
		return hex
	}
	return v
}

// resolveLength handles bare integers, valid CSS lengths, and relative terms
// ("bigger", "much bigger") against the current value.
func (r *StyleResolver) resolveLength(ctx context.Context, prop, value, current string) (string, bool) {
	v := strings.TrimSpace(value)
	if bareIntRe.MatchString(v) {
		return v + "px", true
	}
	if cssLengthRe.MatchString(v) {
		return v, true
	}
	m := relativeRe.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}

	if r.ai != nil {
		if resolved, ok := r.relativeViaClassifier(ctx, prop, v, current); ok {
			return resolved, true
		}
	}
	return relativeFromTable(m, current)
}

func (r *StyleResolver) relativeViaClassifier(ctx context.Context, prop, term, current string) (string, bool) {
	system := strings.Join([]string{
		"You resolve a relative size request against the current CSS value.",
		"Answer with a single valid CSS length (for example 20px) and nothing else.",
	}, "\n")
	user := fmt.Sprintf("PROPERTY: %s\nCURRENT: %s\nREQUEST: %s", prop, current, term)
	answer, err := r.ai.GenerateText(ctx, system, user)
	if err != nil {
		r.log.Warn("relative size classification failed", "term", term, "error", err)
		return "", false
	}
	answer = strings.Trim(strings.TrimSpace(answer), "`\"'")
	if cssLengthRe.MatchString(answer) {
		return answer, true
	}
	return "", false
}

// relativeFromTable applies the fixed percentage fallback: slightly=10%,
// plain=25%, much=50%.
func relativeFromTable(m []string, current string) (string, bool) {
	base, unit, ok := parseLength(current)
	if !ok {
		base, unit = 16, "px"
	}
	pct := 0.25
	switch strings.TrimSpace(strings.ToLower(m[1])) {
	case "slightly", "a bit", "a little":
		pct = 0.10
	case "much", "way", "a lot":
		pct = 0.50
	}
	grow := true
	switch strings.ToLower(m[2]) {
	case "smaller", "tinier", "narrower", "shorter":
		grow = false
	}
	if !grow {
		pct = -pct
	}
	next := math.Round(base * (1 + pct))
	if next < 1 {
		next = 1
	}
	return strconv.FormatFloat(next, 'f', -1, 64) + unit, true
}

func parseLength(v string) (float64, string, bool) {
	v = strings.TrimSpace(v)
	m := regexp.MustCompile(`^(-?\d+(?:\.\d+)?)(px|em|rem|%|vh|vw|pt)?$`).FindStringSubmatch(v)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	unit := m[2]
	if unit == "" {
		unit = "px"
	}
	return n, unit, true
}

func resolveFontWeight(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bold", "bolder", "heavy", "strong":
		return "700", true
	case "normal", "regular":
		return "400", true
	case "light", "thin", "lighter":
		return "300", true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 100 && n <= 900 {
		return strconv.Itoa(n), true
	}
	return "", false
}

// resolveGeneric is the last classifier-backed attempt at an arbitrary
// property/value combination.
func (r *StyleResolver) resolveGeneric(ctx context.Context, rawProp, rawValue, elementKind string) (StyleResolution, bool) {
	if r.ai == nil {
		return StyleResolution{}, false
	}
	system := strings.Join([]string{
		"You convert a styling request for a store page element into one CSS declaration.",
		`Return ONLY JSON like {"property": "fontSize", "value": "20px"}. Property is camelCase.`,
	}, "\n")
	user := fmt.Sprintf("ELEMENT KIND: %s\nPROPERTY: %s\nVALUE: %s", elementKind, rawProp, rawValue)
	obj, err := r.ai.GenerateJSON(ctx, system, user, "css_resolve_v1", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"property": map[string]any{"type": "string"},
			"value":    map[string]any{"type": "string"},
		},
		"required": []any{"property", "value"},
	})
	if err != nil {
		r.log.Warn("generic css classification failed", "property", rawProp, "error", err)
		return StyleResolution{}, false
	}
	prop, _ := obj["property"].(string)
	value, _ := obj["value"].(string)
	prop = strings.TrimSpace(prop)
	value = strings.TrimSpace(value)
	if prop == "" || value == "" {
		return StyleResolution{}, false
	}
	return StyleResolution{Property: prop, Value: value, Applied: true}, true
}
