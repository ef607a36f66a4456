package reports

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SummaryCache keeps recent validated summaries keyed by model and report text.
// A nil *SummaryCache is a valid, always-missing cache.
type SummaryCache struct {
	entries *lru.Cache[string, AIReportSummary]
}

// NewSummaryCache returns nil when size is not positive.
func NewSummaryCache(size int) (*SummaryCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, AIReportSummary](size)
	if err != nil {
		return nil, err
	}
	return &SummaryCache{entries: entries}, nil
}

func (c *SummaryCache) Get(key string) (AIReportSummary, bool) {
	if c == nil {
		return AIReportSummary{}, false
	}
	return c.entries.Get(key)
}

func (c *SummaryCache) Add(key string, summary AIReportSummary) {
	if c == nil {
		return
	}
	c.entries.Add(key, summary)
}

func (c *SummaryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func summaryCacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
