package arbitrate

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradecheck/internal/model"
)

// SystemPrompt is the fixed arbitration instruction.
const SystemPrompt = `You determine which restricted categories include an imported item.
You receive input that looks like the following. All caps words are placeholders for the actual input:
Item: ITEM_DESCRIPTION
Restricted:
1. CATEGORY_1
2. CATEGORY_2
(and so on.)

Reply with the line numbers of every category that applies to the item.
If more than one applies, separate the line numbers by commas. If none apply, reply with 0.
If a category is very general, such as 'Dangerous goods', make your best guess.
Your response must only include integers and commas, no other characters and no new lines.

Example input:
Item: Steel spectacle frames
Restricted:
1. Spectacle frames.
2. Face protectors for ice hockey and box lacrosse players.
3. Ice hockey helmets.
4. Jewellery.

Example response:
1`

// Label selects which candidate field is shown to the model.
type Label string

const (
	// LabelItem lists each candidate's item description.
	LabelItem Label = "item"
	// LabelRestriction lists each candidate's restriction text.
	LabelRestriction Label = "restriction"
)

// ParseLabel validates a configured label name. Empty means LabelItem.
func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case "", LabelItem:
		return LabelItem, nil
	case LabelRestriction:
		return LabelRestriction, nil
	default:
		return "", eris.Errorf("arbitrate: unknown label %q", s)
	}
}

func (l Label) of(c model.Candidate) string {
	if l == LabelRestriction {
		return c.Text
	}
	return c.Item
}

// FormatRequest renders the user message: the item line, then the
// candidates numbered from 1 in rank order.
func FormatRequest(description string, candidates []model.Candidate, label Label) string {
	var b strings.Builder
	b.WriteString("Item: ")
	b.WriteString(oneLine(description))
	b.WriteString("\nRestricted:\n")
	for i, c := range candidates {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(oneLine(label.of(c)))
		b.WriteByte('\n')
	}
	return b.String()
}

// oneLine keeps multi-line labels from breaking the numbering.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
