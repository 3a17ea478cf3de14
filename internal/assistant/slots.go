package assistant

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/logger"
)

// SlotResolver maps a user-supplied phrase to a canonical slot id. The cascade
// of pure stages short-circuits on first match; only the final stage talks to
// the completion collaborator. One resolver is built per request so results
// are memoized for the duration of a message.
type SlotResolver struct {
	log *logger.Logger
	ai  openai.Client

	mu    sync.Mutex
	memo  map[string]memoEntry
	group singleflight.Group
}

type memoEntry struct {
	id string
	ok bool
}

func NewSlotResolver(log *logger.Logger, ai openai.Client) *SlotResolver {
	return &SlotResolver{
		log:  log.With("component", "SlotResolver"),
		ai:   ai,
		memo: map[string]memoEntry{},
	}
}

// Resolve is idempotent and side-effect-free with respect to documents.
// Repeated calls for the same term within one request hit the memo instead of
// the classifier.
func (r *SlotResolver) Resolve(ctx context.Context, term, pageType string, available []string) (string, bool) {
	term = strings.TrimSpace(term)
	if term == "" || len(available) == 0 {
		return "", false
	}
	key := strings.ToLower(term) + "|" + pageType

	r.mu.Lock()
	if hit, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return hit.id, hit.ok
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do(key, func() (any, error) {
		id, ok := r.resolveUncached(ctx, term, pageType, available)
		return memoEntry{id: id, ok: ok}, nil
	})
	entry := v.(memoEntry)

	r.mu.Lock()
	r.memo[key] = entry
	r.mu.Unlock()
	return entry.id, entry.ok
}

func (r *SlotResolver) resolveUncached(ctx context.Context, term, pageType string, available []string) (string, bool) {
	if id, ok := resolveExact(term, available); ok {
		return id, true
	}
	if id, ok := resolveNormalized(term, pageType, available); ok {
		return id, true
	}
	if id, ok := resolveAlias(term, available); ok {
		return id, true
	}
	if id, ok := resolveSubstring(term, available); ok {
		return id, true
	}
	if id, ok := r.resolveViaClassifier(ctx, term, available); ok {
		return id, true
	}
	return "", false
}

// resolveExact: case-sensitive first, then case-insensitive.
func resolveExact(term string, available []string) (string, bool) {
	for _, id := range available {
		if id == term {
			return id, true
		}
	}
	lower := strings.ToLower(term)
	for _, id := range available {
		if strings.ToLower(id) == lower {
			return id, true
		}
	}
	return "", false
}

// resolveNormalized strips leading articles, snake-cases whitespace, and tries
// with and without the page-scoped prefix.
func resolveNormalized(term, pageType string, available []string) (string, bool) {
	norm := normalizeTerm(term)
	if norm == "" {
		return "", false
	}
	candidates := []string{norm}
	prefix := strings.ToLower(strings.TrimSpace(pageType)) + "_"
	if prefix != "_" {
		if strings.HasPrefix(norm, prefix) {
			candidates = append(candidates, strings.TrimPrefix(norm, prefix))
		} else {
			candidates = append(candidates, prefix+norm)
		}
	}
	for _, cand := range candidates {
		if id, ok := resolveExact(cand, available); ok {
			return id, true
		}
	}
	return "", false
}

func resolveAlias(term string, available []string) (string, bool) {
	aliased, ok := slotAliases()[strings.ToLower(strings.TrimSpace(stripArticles(term)))]
	if !ok {
		return "", false
	}
	// The alias target must actually exist on this page.
	return resolveExact(aliased, available)
}

// resolveSubstring matches containment in either direction between the
// normalized term and each known id. A unique hit wins; multiple hits are
// treated as a miss so the caller can ask for clarification downstream.
func resolveSubstring(term string, available []string) (string, bool) {
	norm := normalizeTerm(term)
	if len(norm) < 3 {
		return "", false
	}
	var hits []string
	for _, id := range available {
		lower := strings.ToLower(id)
		if strings.Contains(lower, norm) || strings.Contains(norm, lower) {
			hits = append(hits, id)
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}
	return "", false
}

// resolveViaClassifier hands the literal slot list to the collaborator and
// accepts only an answer present verbatim in that list, which guards against
// hallucinated ids.
func (r *SlotResolver) resolveViaClassifier(ctx context.Context, term string, available []string) (string, bool) {
	if r.ai == nil {
		return "", false
	}
	system := strings.Join([]string{
		"You map a shopper-facing element name to one slot id of a store page layout.",
		"Answer with exactly one id from AVAILABLE_SLOTS, verbatim, and nothing else.",
		"If none fits, answer NONE.",
	}, "\n")
	user := "ELEMENT: " + term + "\nAVAILABLE_SLOTS:\n" + strings.Join(available, "\n")

	answer, err := r.ai.GenerateText(ctx, system, user)
	if err != nil {
		r.log.Warn("classifier slot lookup failed", "term", term, "error", err)
		return "", false
	}
	answer = strings.Trim(strings.TrimSpace(answer), "`\"'")
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", false
	}
	return resolveExact(answer, available)
}

func normalizeTerm(term string) string {
	t := strings.ToLower(strings.TrimSpace(stripArticles(term)))
	return strings.Join(strings.Fields(t), "_")
}

func stripArticles(term string) string {
	fields := strings.Fields(term)
	for len(fields) > 0 {
		switch strings.ToLower(fields[0]) {
		case "the", "a", "an", "my":
			fields = fields[1:]
		default:
			return strings.Join(fields, " ")
		}
	}
	return ""
}

// nearestSlots ranks known ids (and alias keys mapped to their targets) by
// edit distance to the term and returns the top k.
func nearestSlots(term string, available []string, k int) []string {
	norm := normalizeTerm(term)
	type scored struct {
		id   string
		dist int
	}
	seen := map[string]bool{}
	var all []scored
	consider := func(name, target string) {
		if seen[target] {
			return
		}
		seen[target] = true
		all = append(all, scored{id: target, dist: levenshtein(norm, strings.ToLower(name))})
	}
	for _, id := range available {
		consider(id, id)
	}
	for alias, target := range slotAliases() {
		for _, id := range available {
			if id == target {
				consider(alias, target)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].id < all[j].id
	})
	if k > len(all) {
		k = len(all)
	}
	out := make([]string, 0, k)
	for _, s := range all[:k] {
		out = append(out, s.id)
	}
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
