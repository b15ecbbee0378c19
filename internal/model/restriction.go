// Package model defines the records that flow between the catalog, the
// arbitration engine and the batch reports.
package model

import "github.com/sells-group/tradecheck/internal/hscode"

// Item is one row of classifier input: an imported good and its code.
type Item struct {
	Code        hscode.Code `json:"hs_code"`
	Description string      `json:"description"`
	Line        int         `json:"line,omitempty"` // 1-based source row, 0 when not read from a file
}

// Restriction is one rule in the restriction catalog.
type Restriction struct {
	Code hscode.Code `json:"hs_code"`
	Item string      `json:"item"`
	Text string      `json:"restriction"`
}

// Candidate is a restriction surfaced by semantic search for an item.
// Distance is the search collaborator's distance; lower is more similar.
type Candidate struct {
	Restriction
	Distance float64 `json:"distance"`
}

// ConfirmedRestriction is a candidate the arbitration step judged to apply.
// Choice is the 1-based position of the candidate in the ranked list.
type ConfirmedRestriction struct {
	Restriction
	Distance float64 `json:"distance"`
	Choice   int     `json:"choice"`
}

// Outcome is the verdict for one item. An Outcome with no confirmed
// restrictions is the NoRestriction verdict.
type Outcome struct {
	Confirmed []ConfirmedRestriction `json:"confirmed,omitempty"`
}

// NoRestriction reports whether nothing applies to the item.
func (o Outcome) NoRestriction() bool { return len(o.Confirmed) == 0 }
