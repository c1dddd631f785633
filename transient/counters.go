package transient

import (
	"time"
)

// Counters is the per-request tally of cache and store traffic. It belongs to
// exactly one request and is not safe for concurrent use.
type Counters struct {
	ReadQueryCount       int     `json:"read_query_count"`
	WriteQueryCount      int     `json:"write_query_count"`
	CacheCount           int     `json:"cache_count"`
	ReadEmptyTransients  int     `json:"read_empty_transients"`
	WriteEmptyTransients int     `json:"write_empty_transients"`
	WriteReadQueryCount  int     `json:"write_read_query_count"`
	StartTime            float64 `json:"start_time"`
	EndTime              float64 `json:"end_time"`
	Duration             float64 `json:"duration"`
}

func NewCounters(now time.Time) *Counters {
	c := &Counters{}
	c.Start(now)
	return c
}

// Start resets every counter and stamps the start time in fractional unix seconds.
func (c *Counters) Start(now time.Time) {
	*c = Counters{StartTime: unixSeconds(now)}
}

func (c *Counters) Finish(now time.Time) {
	c.EndTime = unixSeconds(now)
	c.Duration = c.EndTime - c.StartTime
}

func (c *Counters) Snapshot() Counters {
	return *c
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
