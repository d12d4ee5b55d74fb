package hydrator

import (
	"context"
	"strings"
)

// negationMarkers flag a directive as prohibitive; only prohibitive
// directives participate in the deterministic prefilter below. An
// affirmative directive ("Always log tool calls") cannot be violated by mere
// keyword overlap with a proposed action the way a prohibition can.
var negationMarkers = []string{"no ", "not ", "never", "must not", "cannot", "shall not", "prohibited", "forbidden", "disallowed"}

// stopWords carry no discriminating signal for the keyword-overlap prefilter.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "to": {}, "of": {}, "and": {},
	"or": {}, "for": {}, "with": {}, "any": {}, "this": {}, "that": {}, "on": {},
	"no": {}, "not": {}, "never": {}, "must": {}, "cannot": {}, "shall": {}, "can": {},
}

// Adjudicator escalates an ambiguous compliance check (no deterministic
// keyword overlap, but the directive might still forbid the action) to an
// LLM or other external judge. Returning violated=false means "not violated".
type Adjudicator interface {
	Adjudicate(ctx context.Context, directiveText, proposedAction string) (violated bool, err error)
}

// ValidateDirectiveCompliance checks proposedAction against agentID's
// CRITICAL directives (spec §4.9). A deterministic keyword-overlap prefilter
// catches obvious violations; when adjudicator is non-nil, prohibitive
// directives that the prefilter does not flag are escalated to it before
// being cleared.
func (h *Hydrator) ValidateDirectiveCompliance(ctx context.Context, agentID, proposedAction string, adjudicator Adjudicator) (bool, []string, error) {
	hc, err := h.Hydrate(ctx, agentID)
	if err != nil {
		return false, nil, err
	}

	var violated []string
	for _, directive := range hc.CriticalDirectives {
		if !isProhibitive(directive) {
			continue
		}

		if keywordOverlap(directive, proposedAction) {
			violated = append(violated, directive)
			continue
		}

		if adjudicator != nil {
			escalated, err := adjudicator.Adjudicate(ctx, directive, proposedAction)
			if err != nil {
				return false, violated, err
			}
			if escalated {
				violated = append(violated, directive)
			}
		}
	}

	return len(violated) == 0, violated, nil
}

func isProhibitive(directiveText string) bool {
	lower := strings.ToLower(directiveText)
	for _, marker := range negationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// keywordOverlap reports whether directiveText and proposedAction share a
// significant word stem, e.g. "deletion" in a directive overlapping "delete"
// in an action. Matching is by shared prefix rather than exact equality so
// common inflections (delete/deletion/deleted) are caught without a full
// stemmer.
func keywordOverlap(directiveText, proposedAction string) bool {
	directiveWords := significantWords(directiveText)
	actionWords := significantWords(proposedAction)

	for _, dw := range directiveWords {
		for _, aw := range actionWords {
			if sharesPrefix(dw, aw) {
				return true
			}
		}
	}
	return false
}

func significantWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

const minSharedPrefixLen = 5

func sharesPrefix(a, b string) bool {
	limit := minSharedPrefixLen
	if len(a) < limit || len(b) < limit {
		limit = len(a)
		if len(b) < limit {
			limit = len(b)
		}
	}
	if limit < minSharedPrefixLen-1 {
		return false
	}
	return a[:limit] == b[:limit]
}
