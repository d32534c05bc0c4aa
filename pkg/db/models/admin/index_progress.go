package admin

import "time"

const IndexProgressTableName = "index_progress"

// Gap is an inclusive range of heights missing from index_progress.
type Gap struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Size returns the number of heights in the gap.
func (g Gap) Size() uint64 {
	if g.To < g.From {
		return 0
	}
	return g.To - g.From + 1
}

// ProgressPoint aggregates indexing activity over one time bucket.
type ProgressPoint struct {
	TimeBucket        time.Time `json:"time_bucket"`
	MaxHeight         uint64    `json:"max_height"`
	AvgProcessingTime float64   `json:"avg_processing_time_ms"`
	BlocksIndexed     uint64    `json:"blocks_indexed"`
	EventsIndexed     uint64    `json:"events_indexed"`
}
