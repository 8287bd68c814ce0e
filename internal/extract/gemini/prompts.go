package gemini

import (
	"strings"

	"fintrack/internal/extract"
)

func buildPrompt(req extract.Request) string {
	var b strings.Builder
	b.WriteString("You extract a single personal finance transaction from a short description.\n")
	b.WriteString("Today's date is ")
	b.WriteString(req.CurrentDate.String())
	b.WriteString(". Resolve relative dates against it.\n\n")

	b.WriteString("Return one JSON object with these keys, omitting any you cannot determine:\n")
	b.WriteString("- \"type\": one of \"Expense\", \"Income\", \"ToPay\", \"ToReceive\"\n")
	b.WriteString("- \"amount\": positive number without currency symbol\n")
	b.WriteString("- \"date\": YYYY-MM-DD; for ToPay/ToReceive the due date\n")
	b.WriteString("- \"category\": the best match from the list below\n")
	b.WriteString("- \"subcategory\": optional finer label\n")
	b.WriteString("- \"note\": short free text description\n\n")

	if len(req.KnownCategories) > 0 {
		b.WriteString("Known categories:\n")
		for _, c := range req.KnownCategories {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n\n")
	b.WriteString("Description:\n")
	b.WriteString(req.Text)
	b.WriteString("\n")
	return b.String()
}
