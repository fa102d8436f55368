package model

import "time"

// Sentinel values substituted when a field cannot be resolved from the
// upstream payload. Emitted records never carry empty text in these fields.
const (
	SentinelNoSummary  = "No summary available"
	SentinelNoSponsors = "No sponsors listed"
	SentinelNoAction   = "No action recorded"
	SentinelUnknown    = "Unknown"
)

// BillRecord is the normalized output unit produced for one matching bill.
// Records are immutable after creation; BillNumber is the dedup key within
// a jurisdiction run, BillLink the dedup key across merged runs.
type BillRecord struct {
	Year          string    `json:"year"`
	State         string    `json:"state"`
	BillNumber    string    `json:"bill_number"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Sponsors      string    `json:"sponsors"`
	LastAction    string    `json:"last_action"`
	BillLink      string    `json:"bill_link"`
	CurrentStatus string    `json:"current_status"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

// Columns is the header row shared by per-jurisdiction and consolidated
// artifacts, in output order.
var Columns = []string{
	"Year",
	"State",
	"Bill Number",
	"Bill Title/Topic",
	"Summary",
	"Sponsors",
	"Last Action",
	"Bill Link",
	"Current Status",
	"Extracted Date",
}

// Row renders the record as a spreadsheet row matching Columns.
func (r BillRecord) Row() []string {
	return []string{
		r.Year,
		r.State,
		r.BillNumber,
		r.Title,
		r.Summary,
		r.Sponsors,
		r.LastAction,
		r.BillLink,
		r.CurrentStatus,
		r.ExtractedAt.Format("2006-01-02 15:04:05"),
	}
}
