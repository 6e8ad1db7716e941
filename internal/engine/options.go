package engine

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-synth/internal/domain"
)

// validate is the package-level validator instance used for option structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ProviderSpec selects the backend used by the convenience entry points.
type ProviderSpec struct {
	// Name is the canonical provider identifier ("openai", "anthropic", "google").
	Name string `json:"name"`
	// Model is the provider-specific model identifier.
	Model string `json:"model"`
	// Endpoint overrides the provider's default API endpoint when non-empty.
	Endpoint string `json:"endpoint,omitempty"`
}

// RecordContext is the per-record generation context: the schema under
// generation, the record's zero-based index, and the accumulating map of
// resolved values. It lives for one record's resolution and is discarded
// after.
type RecordContext struct {
	Schema *domain.Schema
	Index  int
	Values domain.Record
}

// Hooks are optional callbacks observing and adjusting the generation
// lifecycle. Absent slots are skipped. The replacement hooks share one
// contract: a non-nil return replaces the value or record, a nil return
// keeps the current one.
type Hooks struct {
	BeforeRecord func(ctx context.Context, rc *RecordContext) error

	// AfterRecord may replace the assembled record; nil keeps it.
	AfterRecord func(ctx context.Context, rc *RecordContext, rec domain.Record) (domain.Record, error)

	BeforeField func(ctx context.Context, rc *RecordContext, field string) error

	// AfterField may replace the field value; nil keeps it.
	AfterField func(ctx context.Context, rc *RecordContext, field string, value any) (any, error)

	// OnError observes every recovered or fatal error; field is empty for
	// record-level errors.
	OnError func(err error, index int, field string)

	// OnComplete observes the final result after statistics are computed.
	OnComplete func(result *Result)
}

// Transforms are optional pure rewrites applied after hooks and before
// validation.
type Transforms struct {
	Field  func(field string, value any, rec domain.Record) any
	Record func(rec domain.Record) domain.Record
}

// Validations gate fields and records. A false return or an error rejects
// the subject: rejected fields follow the ContinueOnFieldError policy,
// rejected records increment the filtered counter and are dropped. Filter is
// an explicit boolean gate with the same record-drop semantics.
type Validations struct {
	Field  func(field string, value any, rec domain.Record) (bool, error)
	Record func(rec domain.Record) (bool, error)
	Filter func(rec domain.Record) bool
}

// Advanced holds failure-policy controls.
type Advanced struct {
	// MaxRetries caps backend attempts per generated field; zero uses the
	// engine's retry configuration.
	MaxRetries int `validate:"gte=0"`

	// Timeout bounds each backend attempt; zero means no per-attempt bound.
	Timeout time.Duration `validate:"gte=0"`

	// StopOnError aborts the whole run on the first record-level error.
	StopOnError bool

	// ContinueOnFieldError skips a failing field instead of aborting its
	// record. Nil defaults to true.
	ContinueOnFieldError *bool

	// ErrorHandler, when set, is offered every field-level exception; a true
	// second return uses the returned value as the field's value and
	// suppresses the error.
	ErrorHandler func(field string, err error, rec domain.Record) (any, bool)
}

// Options configures one generation run.
type Options struct {
	// Count is the number of records to generate. Zero yields an empty
	// result with zeroed statistics.
	Count int `validate:"gte=0"`

	// Provider selects the backend for the convenience entry points; engines
	// constructed with an explicit backend ignore Name/Endpoint and use
	// Model only for cache keys.
	Provider ProviderSpec

	// Seed, when set, makes all Number/Enum draws and cache bag selection
	// derive from a single seeded stream.
	Seed *uint64

	// BatchSize enables request coalescing when positive.
	BatchSize int `validate:"gte=0"`

	// DisableCache bypasses the value cache for this run.
	DisableCache bool

	// OnProgress fires after each record index completes, in non-decreasing
	// order.
	OnProgress func(done, total int)

	Hooks       Hooks
	Transforms  Transforms
	Validations Validations
	Advanced    Advanced
}

// continueOnFieldError resolves the policy default (true).
func (o *Options) continueOnFieldError() bool {
	if o.Advanced.ContinueOnFieldError == nil {
		return true
	}
	return *o.Advanced.ContinueOnFieldError
}
