package reports

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

type TrendPoint struct {
	ReportID string    `json:"report_id"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Status   string    `json:"status"`
}

// ParameterTrend is the history of one parameter across a session's reports.
type ParameterTrend struct {
	Name      string       `json:"name"`
	Unit      string       `json:"unit"`
	Points    []TrendPoint `json:"points"`
	Current   *float64     `json:"current"`
	Previous  *float64     `json:"previous"`
	ChangePct *float64     `json:"change_pct"`
	Direction string       `json:"direction,omitempty"`
}

// BuildTrends groups numeric parameter values by name, oldest point first.
// reports is expected newest first, as the store returns it. Values stored as
// the non-numeric sentinel are skipped.
func BuildTrends(reports []MedicalReport) []ParameterTrend {
	byKey := map[string]*ParameterTrend{}
	for i := len(reports) - 1; i >= 0; i-- {
		r := reports[i]
		for _, p := range r.Parameters {
			if p.Value == nil {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(p.Name))
			if key == "" {
				continue
			}
			trend, ok := byKey[key]
			if !ok {
				trend = &ParameterTrend{Name: strings.TrimSpace(p.Name)}
				byKey[key] = trend
			}
			if p.Unit != "" {
				trend.Unit = p.Unit
			}
			trend.Points = append(trend.Points, TrendPoint{
				ReportID: r.ID,
				Date:     r.Date,
				Value:    *p.Value,
				Status:   p.Status,
			})
		}
	}

	out := make([]ParameterTrend, 0, len(byKey))
	for _, trend := range byKey {
		summarizeTrend(trend)
		out = append(out, *trend)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func summarizeTrend(trend *ParameterTrend) {
	n := len(trend.Points)
	if n == 0 {
		return
	}
	current := trend.Points[n-1].Value
	trend.Current = &current
	if n < 2 {
		return
	}
	previous := trend.Points[n-2].Value
	trend.Previous = &previous
	switch {
	case current > previous:
		trend.Direction = TrendUp
	case current < previous:
		trend.Direction = TrendDown
	default:
		trend.Direction = TrendFlat
	}
	if previous != 0 {
		pct := math.Round((current-previous)/math.Abs(previous)*1000) / 10
		trend.ChangePct = &pct
	}
}
