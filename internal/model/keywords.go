package model

// DefaultKeywords is the healthcare/insurance regulatory search list.
// The upstream search is advisory; the crawler re-verifies each hit
// locally against this list before keeping a record.
var DefaultKeywords = []string{
	"Prior authorization",
	"Utilization review",
	"Utilization management",
	"Medical necessity review",
	"Prompt pay",
	"Prompt payment",
	"Clean claims",
	"Clean claim",
	"Coordination of benefits",
	"Artificial intelligence",
	"Clinical decision support",
	"Automated decision making",
	"Automate decision support",
}
