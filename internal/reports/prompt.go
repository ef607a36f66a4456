package reports

import "strings"

const summaryPromptHeader = `You are a medical report summarizer. Read the medical report below and answer with a single JSON object with exactly these keys:
1. "summary": a short plain-language overview of the report.
2. "risk_level": one of "low", "medium" or "high".
3. "parameters": an array of objects, one per measured value, each with:
   "name", "value" (a number when the report gives one), "unit", "reference_range",
   "status" (one of "low", "normal" or "high") and "explanation" (one plain-language sentence).
4. "recommendations": an object with three arrays of short strings: "diet", "exercise" and "lifestyle".

Return ONLY the JSON object. Do not add explanations, greetings or markdown.

Here is the report:
"""
`

const summaryPromptFooter = `
"""`

// BuildSummaryPrompt renders the instruction sent with the extracted report text.
func BuildSummaryPrompt(extractedText string) string {
	var b strings.Builder
	b.Grow(len(summaryPromptHeader) + len(extractedText) + len(summaryPromptFooter))
	b.WriteString(summaryPromptHeader)
	b.WriteString(extractedText)
	b.WriteString(summaryPromptFooter)
	return b.String()
}
