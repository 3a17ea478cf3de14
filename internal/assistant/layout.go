package assistant

import (
	"sort"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// Move repositions source relative to target inside cfg. It never creates or
// deletes slots; after it returns, siblings of every touched parent carry
// consecutive 1-based integer rows.
func Move(cfg *types.SlotConfig, source, target string, pos RelPos) error {
	if cfg == nil || cfg.Slots == nil {
		return &apierr.UnresolvedReference{Kind: "slot", Term: source}
	}
	if source == target {
		return nil
	}
	srcNode, ok := cfg.Slots[source]
	if !ok {
		return &apierr.UnresolvedReference{Kind: "slot", Term: source, Suggestions: nearestSlots(source, slotIDs(cfg), 3)}
	}
	tgtNode, ok := cfg.Slots[target]
	if !ok {
		return &apierr.UnresolvedReference{Kind: "slot", Term: target, Suggestions: nearestSlots(target, slotIDs(cfg), 3)}
	}

	effTarget, effNode, viaContainer := resolveEffectiveTarget(cfg, srcNode, target, tgtNode)

	srcParent := parentKey(srcNode.ParentID)
	newParent := parentKey(effNode.ParentID)

	if srcParent == newParent {
		reorderSiblings(cfg, newParent, source, effTarget, pos)
	} else {
		oldParent := srcParent
		srcNode.ParentID = cloneParent(effNode.ParentID)
		reorderSiblings(cfg, newParent, source, effTarget, pos)
		// Close the gap the departure left behind.
		renumber(cfg, oldParent)
	}

	if viaContainer {
		srcNode.Position.Col = effNode.Position.Col
	}
	return nil
}

// resolveEffectiveTarget applies the nested-container rule: when the target
// sits inside a container that is itself a direct sibling of source, the move
// is expressed relative to that container rather than injected inside it. For
// deeper nesting we walk the target's ancestor chain until an ancestor is a
// sibling of source; with no such ancestor the target stands as given.
func resolveEffectiveTarget(cfg *types.SlotConfig, srcNode *types.SlotNode, target string, tgtNode *types.SlotNode) (string, *types.SlotNode, bool) {
	srcParent := parentKey(srcNode.ParentID)
	if parentKey(tgtNode.ParentID) == srcParent {
		return target, tgtNode, false
	}
	seen := map[string]bool{target: true}
	cur := tgtNode
	for cur.ParentID != nil {
		ancestorID := *cur.ParentID
		if seen[ancestorID] {
			break
		}
		seen[ancestorID] = true
		ancestor, ok := cfg.Slots[ancestorID]
		if !ok {
			// Implicit ancestors come from the builtin table; they have no
			// position of their own, so the walk stops here.
			break
		}
		if parentKey(ancestor.ParentID) == srcParent {
			return ancestorID, ancestor, true
		}
		cur = ancestor
	}
	return target, tgtNode, false
}

// reorderSiblings splices source into the sibling list of parent relative to
// target, then renumbers every sibling to its 1-based index.
func reorderSiblings(cfg *types.SlotConfig, parent string, source, target string, pos RelPos) {
	ids := siblingsOf(cfg, parent)

	without := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != source {
			without = append(without, id)
		}
	}

	insertAt := len(without)
	for i, id := range without {
		if id == target {
			insertAt = i
			if pos == PosAfter {
				insertAt = i + 1
			}
			break
		}
	}

	ordered := make([]string, 0, len(without)+1)
	ordered = append(ordered, without[:insertAt]...)
	ordered = append(ordered, source)
	ordered = append(ordered, without[insertAt:]...)

	for i, id := range ordered {
		cfg.Slots[id].Position.Row = float64(i + 1)
	}
}

// renumber restores consecutive 1-based rows for one parent's siblings.
func renumber(cfg *types.SlotConfig, parent string) {
	for i, id := range siblingsOf(cfg, parent) {
		cfg.Slots[id].Position.Row = float64(i + 1)
	}
}

// siblingsOf returns the slot ids under parent sorted by row ascending, ties
// broken by id so the order is deterministic.
func siblingsOf(cfg *types.SlotConfig, parent string) []string {
	ids := make([]string, 0, 8)
	for id, node := range cfg.Slots {
		if node == nil {
			continue
		}
		if parentKey(node.ParentID) == parent {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := cfg.Slots[ids[i]], cfg.Slots[ids[j]]
		if a.Position.Row != b.Position.Row {
			return a.Position.Row < b.Position.Row
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ValidateParents checks that every parentId references a node in the document
// or a well-known builtin container.
func ValidateParents(cfg *types.SlotConfig) []string {
	var dangling []string
	for id, node := range cfg.Slots {
		if node == nil || node.ParentID == nil {
			continue
		}
		pid := *node.ParentID
		if _, ok := cfg.Slots[pid]; ok {
			continue
		}
		if _, ok := builtinContainer(pid); ok {
			continue
		}
		dangling = append(dangling, id)
	}
	sort.Strings(dangling)
	return dangling
}

func parentKey(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneParent(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func slotIDs(cfg *types.SlotConfig) []string {
	ids := make([]string, 0, len(cfg.Slots))
	for id := range cfg.Slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
