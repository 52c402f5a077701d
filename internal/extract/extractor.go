// Package extract pulls structured entities out of free-form customer text.
package extract

import "regexp"

var (
	// Order numbers are written as "#" followed by an alphanumeric code,
	// e.g. "#NP2001002" or "#1042".
	orderNumberPattern = regexp.MustCompile(`#[A-Za-z0-9]+`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Entities holds the structured tokens found in one message. Duplicate
// occurrences within a message are all reported; de-duplication happens
// when merging into session context.
type Entities struct {
	OrderNumbers []string `json:"orderNumbers,omitempty"`
	Emails       []string `json:"emails,omitempty"`
}

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return len(e.OrderNumbers) == 0 && len(e.Emails) == 0
}

// FromText extracts order numbers and email addresses from a message.
// Pure and deterministic; occurrence order follows text position.
func FromText(text string) Entities {
	return Entities{
		OrderNumbers: orderNumberPattern.FindAllString(text, -1),
		Emails:       emailPattern.FindAllString(text, -1),
	}
}
