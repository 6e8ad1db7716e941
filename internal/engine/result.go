package engine

import (
	"time"

	"github.com/ahrav/go-synth/internal/domain"
)

// RecordError is one recovered or fatal error from a generation run. Field is
// empty for record-level errors.
type RecordError struct {
	Index   int       `json:"index"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Stats summarizes a generation run.
type Stats struct {
	// Requested is the record count asked for; TotalRecords is the count
	// actually delivered after filtering and record-level failures.
	Requested    int `json:"requested"`
	TotalRecords int `json:"total_records"`

	// Filtered counts records dropped by record validation or the filter gate.
	Filtered int `json:"filtered"`

	// LLMCalls counts cache misses that reached the backend; CacheHits counts
	// lookups served from the value cache. CacheHitRate is hits over backend
	// calls, zero when no call was made.
	LLMCalls     int64   `json:"llm_calls"`
	CacheHits    int64   `json:"cache_hits"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	Duration time.Duration `json:"duration"`
}

// Metadata identifies a run for reproducibility: a unique run ID, the field
// order of the schema, and the option values that shape output.
type Metadata struct {
	RunID      string       `json:"run_id"`
	FieldNames []string     `json:"field_names"`
	Provider   ProviderSpec `json:"provider"`
	Count      int          `json:"count"`
	Seed       *uint64      `json:"seed,omitempty"`
	BatchSize  int          `json:"batch_size,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
}

// Result is the outcome of one generation run.
type Result struct {
	Records  []domain.Record `json:"records"`
	Stats    Stats           `json:"stats"`
	Errors   []RecordError   `json:"errors,omitempty"`
	Metadata Metadata        `json:"metadata"`
}
