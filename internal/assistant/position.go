package assistant

import "strings"

// RelPos is the normalized relative position used by the layout mutator.
type RelPos string

const (
	PosBefore RelPos = "before"
	PosAfter  RelPos = "after"
)

// NormalizePosition folds the position vocabulary users (and the classifier)
// produce into the two canonical values. Unknown words default to after.
func NormalizePosition(raw string) RelPos {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "above", "before", "over", "top", "up":
		return PosBefore
	case "below", "after", "under", "beneath", "bottom", "down":
		return PosAfter
	default:
		return PosAfter
	}
}
