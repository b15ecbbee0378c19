package model

// Row is one line of the classification report. An item with no applicable
// restriction produces exactly one Row with empty restriction fields and a
// zero distance; an item with k confirmed restrictions produces k Rows.
type Row struct {
	RunID           string  `json:"run_id,omitempty"`
	HSCode          string  `json:"hs_code"`
	Description     string  `json:"description"`
	RestrictedCodes string  `json:"restricted_codes"`
	RestrictedItem  string  `json:"restricted_item"`
	Restriction     string  `json:"restriction"`
	Distance        float64 `json:"distance"`
	Usage           Usage   `json:"usage"`
	Error           string  `json:"error,omitempty"`
}

// RowsFor flattens an item's outcome into report rows.
func RowsFor(item Item, outcome Outcome, usage Usage) []Row {
	base := Row{
		HSCode:      string(item.Code),
		Description: item.Description,
		Usage:       usage,
	}
	if outcome.NoRestriction() {
		return []Row{base}
	}
	rows := make([]Row, 0, len(outcome.Confirmed))
	for _, c := range outcome.Confirmed {
		r := base
		r.RestrictedCodes = string(c.Code)
		r.RestrictedItem = c.Item
		r.Restriction = c.Text
		r.Distance = c.Distance
		rows = append(rows, r)
	}
	return rows
}

// ErrorRow is the report line for an item that failed and was skipped.
func ErrorRow(item Item, usage Usage, err error) Row {
	return Row{
		HSCode:      string(item.Code),
		Description: item.Description,
		Usage:       usage,
		Error:       err.Error(),
	}
}
