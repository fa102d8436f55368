package extract

import (
	"strings"
	"time"

	"github.com/sells-group/bill-tracker/internal/model"
	"github.com/sells-group/bill-tracker/pkg/openstates"
)

// yearTokens are the session-year substrings recognized when inferring
// the record year, newest first.
var yearTokens = []string{"2027", "2026", "2025", "2024"}

// Builder maps raw bill payloads into normalized records.
type Builder struct {
	defaultYear string
	now         func() time.Time
}

// NewBuilder creates a record builder. defaultYear fills the year field
// when no session token is recognizable.
func NewBuilder(defaultYear string) *Builder {
	return &Builder{
		defaultYear: defaultYear,
		now:         time.Now,
	}
}

// Build produces the normalized record for one bill in the given
// jurisdiction. It never fails: every field has an explicit fallback.
func (b *Builder) Build(bill openstates.Bill, code string) model.BillRecord {
	session := sessionIdentifier(bill)

	return model.BillRecord{
		Year:          b.inferYear(session),
		State:         model.JurisdictionName(code),
		BillNumber:    strings.TrimSpace(bill.Str("identifier")),
		Title:         bill.Str("title"),
		Summary:       ResolveSummary(bill),
		Sponsors:      sponsors(bill),
		LastAction:    ResolveLastAction(bill),
		BillLink:      billLink(bill),
		CurrentStatus: ResolveCurrentStatus(bill),
		ExtractedAt:   b.now().UTC(),
	}
}

// sessionIdentifier handles the three observed shapes of the session
// field: a mapping with identifier/name, a bare string, or absent.
func sessionIdentifier(bill openstates.Bill) string {
	if m, ok := bill.Map("session"); ok {
		identifier, _ := m["identifier"].(string)
		name, _ := m["name"].(string)
		if joined := strings.TrimSpace(identifier + " " + name); joined != "" {
			return joined
		}
		return model.SentinelUnknown
	}
	if s := strings.TrimSpace(bill.Str("session")); s != "" {
		return s
	}
	return model.SentinelUnknown
}

func (b *Builder) inferYear(session string) string {
	for _, token := range yearTokens {
		if strings.Contains(session, token) {
			return token
		}
	}
	return b.defaultYear
}

func sponsors(bill openstates.Bill) string {
	names := bill.SponsorNames()
	if len(names) == 0 {
		return model.SentinelNoSponsors
	}
	return strings.Join(names, ", ")
}

// billLink prefers a document URL, then the upstream portal page. An
// empty link is possible and tolerated; merge dedup ignores empties.
func billLink(bill openstates.Bill) string {
	if u := bill.FirstDocumentURL(); u != "" {
		return u
	}
	return bill.Str("openstates_url")
}
