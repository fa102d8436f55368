package extract

import (
	"sort"
	"strings"

	"github.com/sells-group/bill-tracker/internal/model"
	"github.com/sells-group/bill-tracker/pkg/openstates"
)

const (
	// minFieldLen is the meaningful-length floor for curated text fields.
	minFieldLen = 10
	// minVerbActionLen is the floor for deriving a synopsis from a
	// substantive action description.
	minVerbActionLen = 50
	// minIntroActionLen is the floor for falling back to an
	// "introduced" action.
	minIntroActionLen = 30
	// minTitleLen gates the title-fallback strategy.
	minTitleLen = 20

	abstractSeparator = " | Abstract: "
)

// summaryFields are the direct payload fields tried first, in priority
// order. The same list is retried inside the nested extras mapping.
var summaryFields = []string{
	"summary",
	"description",
	"synopsis",
	"digest",
	"abstract_text",
}

// actionVerbs mark an action description as substantive enough to stand
// in for a missing synopsis.
var actionVerbs = []string{
	"amend",
	"create",
	"establish",
	"require",
	"provide",
	"authorize",
	"prohibit",
	"regulate",
}

// titlePrefixes are stripped from the title-fallback path. Matching is
// deliberately case-sensitive: "An Act To ..." under-strips, which is a
// known-weak heuristic kept as-is rather than silently corrected.
var titlePrefixes = []string{
	"An act to ",
	"AN ACT TO ",
	"A bill to ",
	"A BILL TO ",
	"An Act ",
	"An act ",
}

// summaryStrategy is one step of the resolution cascade. An empty return
// means "no answer, try the next one"; order is the priority order.
type summaryStrategy struct {
	name string
	fn   func(openstates.Bill) string
}

var summaryStrategies = []summaryStrategy{
	{"direct-field", fromDirectFields},
	{"extras-field", fromExtras},
	{"action-verb", fromSubstantiveAction},
	{"action-introduced", fromIntroducedAction},
	{"title-fallback", fromTitle},
}

// ResolveSummary produces a best-effort human-readable synopsis for a
// raw bill payload. It is total: when every strategy comes up empty it
// returns the sentinel. A usable abstract entry, when present, is
// appended to whatever was resolved, never substituted for it.
func ResolveSummary(bill openstates.Bill) string {
	resolved := model.SentinelNoSummary
	for _, s := range summaryStrategies {
		if text := s.fn(bill); text != "" {
			resolved = text
			break
		}
	}

	if abstract := firstAbstract(bill); abstract != "" {
		resolved += abstractSeparator + abstract
	}

	return resolved
}

func fromDirectFields(bill openstates.Bill) string {
	for _, field := range summaryFields {
		if text := strings.TrimSpace(bill.Str(field)); len(text) > minFieldLen {
			return text
		}
	}
	return ""
}

func fromExtras(bill openstates.Bill) string {
	extras, ok := bill.Map("extras")
	if !ok {
		return ""
	}
	for _, field := range summaryFields {
		text, _ := extras[field].(string)
		if text = strings.TrimSpace(text); len(text) > minFieldLen {
			return text
		}
	}
	return ""
}

// fromSubstantiveAction scans the action history in upstream order and
// returns the first long description containing a legislative verb.
func fromSubstantiveAction(bill openstates.Bill) string {
	for _, action := range bill.Actions() {
		desc := strings.TrimSpace(action.Description)
		if len(desc) <= minVerbActionLen {
			continue
		}
		lower := strings.ToLower(desc)
		for _, verb := range actionVerbs {
			if strings.Contains(lower, verb) {
				return desc
			}
		}
	}
	return ""
}

func fromIntroducedAction(bill openstates.Bill) string {
	for _, action := range bill.Actions() {
		desc := strings.TrimSpace(action.Description)
		if len(desc) > minIntroActionLen && strings.Contains(strings.ToLower(desc), "introduced") {
			return desc
		}
	}
	return ""
}

// fromTitle strips one exact leading boilerplate phrase from the title.
// When stripping leaves nothing, the untouched title is returned instead.
func fromTitle(bill openstates.Bill) string {
	title := strings.TrimSpace(bill.Str("title"))
	if len(title) <= minTitleLen {
		return ""
	}
	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(title, prefix) {
			if stripped := strings.TrimSpace(strings.TrimPrefix(title, prefix)); stripped != "" {
				return stripped
			}
			return title
		}
	}
	return title
}

func firstAbstract(bill openstates.Bill) string {
	for _, text := range bill.Abstracts() {
		if text = strings.TrimSpace(text); len(text) > minFieldLen {
			return text
		}
	}
	return ""
}

// ResolveCurrentStatus prefers the upstream latest-action field, then
// the description of the newest action after sorting a copy of the
// history by date descending. Dates are compared as strings; ties keep
// upstream order via the stable sort.
func ResolveCurrentStatus(bill openstates.Bill) string {
	if desc := strings.TrimSpace(bill.Str("latest_action_description")); desc != "" {
		return desc
	}

	actions := bill.Actions()
	if len(actions) == 0 {
		return model.SentinelUnknown
	}
	sorted := make([]openstates.Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	if desc := strings.TrimSpace(sorted[0].Description); desc != "" {
		return desc
	}
	return model.SentinelUnknown
}

// ResolveLastAction returns the description of the action with the
// maximum date string. The strictly-greater comparison keeps the first
// list entry on date ties, which can legitimately diverge from
// ResolveCurrentStatus on tied dates; both orders are kept as-is.
func ResolveLastAction(bill openstates.Bill) string {
	actions := bill.Actions()
	if len(actions) == 0 {
		return model.SentinelNoAction
	}

	best := actions[0]
	for _, action := range actions[1:] {
		if action.Date > best.Date {
			best = action
		}
	}

	if desc := strings.TrimSpace(best.Description); desc != "" {
		return desc
	}
	return model.SentinelNoAction
}
