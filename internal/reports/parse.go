package reports

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	reasoningBlock = regexp.MustCompile(`(?s)^<think>.*?</think>`)
	fenceOpen      = regexp.MustCompile("^```[A-Za-z0-9_+-]*")
)

// StripFences removes a leading reasoning block and a surrounding markdown
// code fence, with or without a language tag.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(reasoningBlock.ReplaceAllString(s, ""))
	if loc := fenceOpen.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ParseSummary turns raw model output into a validated AIReportSummary.
// It is pure: the same input always yields the same summary or error.
func ParseSummary(raw string) (AIReportSummary, error) {
	cleaned := StripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return AIReportSummary{}, &ResponseParseError{Raw: raw, Err: err}
	}
	if err := validateSummaryDocument(doc); err != nil {
		return AIReportSummary{}, err
	}

	var out AIReportSummary
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return AIReportSummary{}, &SchemaValidationError{Field: "/", Reason: err.Error()}
	}
	if strings.TrimSpace(out.Summary) == "" {
		return AIReportSummary{}, &SchemaValidationError{Field: "/summary", Reason: "summary must not be blank"}
	}
	for i, p := range out.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return AIReportSummary{}, &SchemaValidationError{Field: "/parameters/" + strconv.Itoa(i) + "/name", Reason: "name must not be blank"}
		}
	}
	if out.Parameters == nil {
		out.Parameters = []ReportParameter{}
	}
	return out, nil
}
