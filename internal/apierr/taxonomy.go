package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// UnresolvedReference means a user-supplied name (slot, product, category) could
// not be matched to anything that exists. Suggestions carry the nearest known
// names so the caller can offer them instead of a bare failure.
type UnresolvedReference struct {
	Kind        string
	Term        string
	Suggestions []string
}

func (e *UnresolvedReference) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("could not find %s %q", e.Kind, e.Term)
	}
	return fmt.Sprintf("could not find %s %q (did you mean: %s)", e.Kind, e.Term, strings.Join(e.Suggestions, ", "))
}

// AmbiguousMatch means more than one entity matched a search term. Callers must
// surface the candidates as a clarification, never pick one silently.
type AmbiguousMatch struct {
	Kind       string
	Term       string
	Candidates []string
}

func (e *AmbiguousMatch) Error() string {
	return fmt.Sprintf("multiple %ss match %q: %s", e.Kind, e.Term, strings.Join(e.Candidates, ", "))
}

// ClassifierParseFailure means the completion collaborator did not return
// usable JSON. The engine degrades to plain chat on this; it is never a 500.
var ClassifierParseFailure = errors.New("classifier output was not valid JSON")

// ConfirmationRequired is returned by executor entries that refuse to create a
// new top-level entity without explicit user consent.
type ConfirmationRequired struct {
	Question string
}

func (e *ConfirmationRequired) Error() string { return e.Question }

// PersistenceConflict means a guarded document write lost an optimistic
// concurrency check after the single in-process retry.
var PersistenceConflict = errors.New("document was modified concurrently, please retry")

func IsUnresolved(err error) bool {
	var ur *UnresolvedReference
	return errors.As(err, &ur)
}

func IsAmbiguous(err error) bool {
	var am *AmbiguousMatch
	return errors.As(err, &am)
}
