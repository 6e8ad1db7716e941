// Package engine drives synthetic record generation: it validates the schema,
// builds the field execution plan, resolves each record field-by-field through
// the hook/transform/validation pipeline, and routes generated fields through
// the value cache, the batch coalescer, and the retry combinator.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-synth/internal/cache"
	"github.com/ahrav/go-synth/internal/coalesce"
	"github.com/ahrav/go-synth/internal/domain"
	"github.com/ahrav/go-synth/internal/llm"
	"github.com/ahrav/go-synth/internal/llm/configuration"
	"github.com/ahrav/go-synth/internal/llm/retry"
	"github.com/ahrav/go-synth/internal/plan"
)

// recordIndexKey is folded into every generation context as a hidden
// discriminator so two records never share a cache key by accident. The
// leading underscore keeps provider adapters from rendering it into prompts.
const recordIndexKey = "_record"

// errRecordFiltered marks a record dropped by validation or the filter gate.
// It is counted, never surfaced.
var errRecordFiltered = errors.New("record filtered")

// Engine generates records against a fixed backend. Construct once and reuse;
// the cache and coalescer are injected so multiple engines (or runs) can share
// them.
type Engine struct {
	backend   llm.Backend
	cache     *cache.Cache
	coalescer *coalesce.Coalescer
	retryCfg  configuration.RetryConfig
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache installs a shared value cache for generated fields.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithCoalescer installs a shared request coalescer, used when a run enables
// batching.
func WithCoalescer(co *coalesce.Coalescer) Option {
	return func(e *Engine) { e.coalescer = co }
}

// WithRetryConfig overrides the default retry policy for backend calls.
func WithRetryConfig(cfg configuration.RetryConfig) Option {
	return func(e *Engine) { e.retryCfg = cfg }
}

// WithLogger sets the engine logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine over the given backend.
func New(backend llm.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		retryCfg: configuration.RetryConfig{
			MaxAttempts:     configuration.DefaultMaxAttempts,
			InitialInterval: configuration.DefaultInitialInterval,
			MaxInterval:     configuration.DefaultMaxInterval,
			Multiplier:      configuration.DefaultMultiplier,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// runState accumulates counters and errors across one run.
type runState struct {
	llmCalls  int64
	cacheHits int64
	filtered  int
	errors    []RecordError
}

// Generate runs one generation pass: validate options and schema, build the
// execution plan, resolve Count records in order, flush any coalesced
// requests, and assemble statistics. Record-level failures are recorded and
// skipped unless Advanced.StopOnError is set.
func (e *Engine) Generate(ctx context.Context, schema *domain.Schema, opts Options) (*Result, error) {
	if schema == nil {
		return nil, errors.New("nil schema")
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := domain.Validate(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	p, err := plan.Build(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	rng := newRNG(opts.Seed)
	run := &runState{}
	start := time.Now()

	result := &Result{
		Metadata: Metadata{
			RunID:      uuid.New().String(),
			FieldNames: schema.Names(),
			Provider:   opts.Provider,
			Count:      opts.Count,
			Seed:       opts.Seed,
			BatchSize:  opts.BatchSize,
			StartedAt:  start,
		},
	}

	for i := 0; i < opts.Count; i++ {
		rec, err := e.generateRecord(ctx, schema, p, i, &opts, run, rng)
		switch {
		case err == nil:
			result.Records = append(result.Records, rec)
		case errors.Is(err, errRecordFiltered):
			run.filtered++
		default:
			run.errors = append(run.errors, RecordError{Index: i, Message: err.Error(), At: time.Now()})
			if opts.Hooks.OnError != nil {
				opts.Hooks.OnError(err, i, "")
			}
			if opts.Advanced.StopOnError {
				e.flush()
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			e.logger.Warn("record failed", "index", i, "error", err)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, opts.Count)
		}
	}

	// Drain any coalesced requests still waiting on the flush timer.
	e.flush()

	result.Errors = run.errors
	result.Stats = Stats{
		Requested:    opts.Count,
		TotalRecords: len(result.Records),
		Filtered:     run.filtered,
		LLMCalls:     run.llmCalls,
		CacheHits:    run.cacheHits,
		Duration:     time.Since(start),
	}
	if run.llmCalls > 0 {
		result.Stats.CacheHitRate = float64(run.cacheHits) / float64(run.llmCalls)
	}

	if opts.Hooks.OnComplete != nil {
		opts.Hooks.OnComplete(result)
	}
	return result, nil
}

func (e *Engine) flush() {
	if e.coalescer != nil {
		e.coalescer.FlushAll()
	}
}

// generateRecord resolves every field of one record in plan order, then runs
// the record-level transform, validation, filter, and after-record hook.
// Returns errRecordFiltered for dropped records.
func (e *Engine) generateRecord(ctx context.Context, schema *domain.Schema, p plan.Plan, idx int, opts *Options, run *runState, rng *rand.Rand) (domain.Record, error) {
	rc := &RecordContext{Schema: schema, Index: idx, Values: make(domain.Record, schema.Len())}

	if opts.Hooks.BeforeRecord != nil {
		if err := opts.Hooks.BeforeRecord(ctx, rc); err != nil {
			return nil, fmt.Errorf("before-record hook: %w", err)
		}
	}

	for _, name := range p {
		if err := e.resolveField(ctx, rc, name, opts, run, rng); err != nil {
			return nil, err
		}
	}

	rec := rc.Values
	if opts.Transforms.Record != nil {
		rec = opts.Transforms.Record(rec)
	}
	if opts.Validations.Record != nil {
		ok, err := opts.Validations.Record(rec)
		if err != nil || !ok {
			return nil, errRecordFiltered
		}
	}
	if opts.Validations.Filter != nil && !opts.Validations.Filter(rec) {
		return nil, errRecordFiltered
	}
	if opts.Hooks.AfterRecord != nil {
		replaced, err := opts.Hooks.AfterRecord(ctx, rc, rec)
		if err != nil {
			return nil, fmt.Errorf("after-record hook: %w", err)
		}
		if replaced != nil {
			rec = replaced
		}
	}
	return rec, nil
}

// resolveField produces one field value and runs it through the field-level
// pipeline: before hook, production, after hook, transform, validation.
// Failures follow the field error policy; a nil return means the record may
// proceed whether or not the field was actually set.
func (e *Engine) resolveField(ctx context.Context, rc *RecordContext, name string, opts *Options, run *runState, rng *rand.Rand) error {
	field, ok := rc.Schema.Field(name)
	if !ok {
		// Plan entries come from the schema; a miss here is a bug.
		return fmt.Errorf("plan references unknown field %q", name)
	}

	if opts.Hooks.BeforeField != nil {
		if err := opts.Hooks.BeforeField(ctx, rc, name); err != nil {
			return e.fieldFailure(name, fmt.Errorf("before-field hook: %w", err), rc, opts, run)
		}
	}

	value, err := e.produceValue(ctx, rc, name, field, opts, run, rng)
	if err != nil {
		return e.fieldFailure(name, err, rc, opts, run)
	}

	if opts.Hooks.AfterField != nil {
		replaced, err := opts.Hooks.AfterField(ctx, rc, name, value)
		if err != nil {
			return e.fieldFailure(name, fmt.Errorf("after-field hook: %w", err), rc, opts, run)
		}
		if replaced != nil {
			value = replaced
		}
	}
	if opts.Transforms.Field != nil {
		value = opts.Transforms.Field(name, value, rc.Values)
	}
	if opts.Validations.Field != nil {
		ok, err := opts.Validations.Field(name, value, rc.Values)
		if err != nil {
			return e.fieldRejected(name, fmt.Errorf("field validation: %w", err), rc, opts, run)
		}
		if !ok {
			return e.fieldRejected(name, fmt.Errorf("field %q rejected by validation", name), rc, opts, run)
		}
	}

	rc.Values[name] = value
	return nil
}

// fieldFailure applies the field exception policy: offer the error handler a
// chance to substitute a value, otherwise record the error and either skip the
// field or abort the record.
func (e *Engine) fieldFailure(name string, err error, rc *RecordContext, opts *Options, run *runState) error {
	if opts.Advanced.ErrorHandler != nil {
		if v, handled := opts.Advanced.ErrorHandler(name, err, rc.Values); handled {
			rc.Values[name] = v
			return nil
		}
	}
	return e.fieldRejected(name, err, rc, opts, run)
}

// fieldRejected records a field-level error and resolves it per the
// ContinueOnFieldError policy. Validation rejections land here directly; the
// error handler is not offered rejected values.
func (e *Engine) fieldRejected(name string, err error, rc *RecordContext, opts *Options, run *runState) error {
	if opts.Hooks.OnError != nil {
		opts.Hooks.OnError(err, rc.Index, name)
	}
	if !opts.continueOnFieldError() {
		return fmt.Errorf("field %q: %w", name, err)
	}
	run.errors = append(run.errors, RecordError{Index: rc.Index, Field: name, Message: err.Error(), At: time.Now()})
	e.logger.Debug("field skipped", "index", rc.Index, "field", name, "error", err)
	return nil
}

// produceValue dispatches on the field kind. Local kinds resolve without I/O;
// generated fields go through cache, coalescer, and retry.
func (e *Engine) produceValue(ctx context.Context, rc *RecordContext, name string, field domain.Field, opts *Options, run *runState, rng *rand.Rand) (any, error) {
	switch f := field.(type) {
	case domain.StaticField:
		return f.Value, nil

	case domain.NumberField:
		if f.Decimals > 0 {
			v := f.Min + rng.Float64()*(f.Max-f.Min)
			scale := math.Pow10(f.Decimals)
			return math.Round(v*scale) / scale, nil
		}
		// Integer fields draw directly over the integers of [Min, Max) so a
		// fractional lower bound can never be undercut by flooring.
		lo := int64(math.Ceil(f.Min))
		hi := int64(math.Ceil(f.Max))
		if hi <= lo {
			// No integer lies in the range; use the smallest one at or
			// above Min.
			return lo, nil
		}
		return lo + rng.Int64N(hi-lo), nil

	case domain.EnumField:
		return drawEnum(f, rng), nil

	case domain.DerivedField:
		v, err := f.Compute(rc.Values)
		if err != nil {
			return nil, fmt.Errorf("compute %q: %w", name, err)
		}
		return v, nil

	case domain.GeneratedField:
		return e.generateExternal(ctx, rc, name, f, opts, run, rng)

	default:
		return nil, fmt.Errorf("field %q: unsupported kind %s", name, field.Kind())
	}
}

// drawEnum selects an option with probability proportional to weight.
// Non-positive weights count as 1, matching the unweighted constructor.
func drawEnum(f domain.EnumField, rng *rand.Rand) any {
	total := 0.0
	for _, opt := range f.Options {
		total += effectiveWeight(opt.Weight)
	}

	draw := rng.Float64() * total
	cum := 0.0
	for _, opt := range f.Options {
		cum += effectiveWeight(opt.Weight)
		if draw < cum {
			return opt.Value
		}
	}
	// Floating point accumulation can leave draw == total.
	return f.Options[len(f.Options)-1].Value
}

func effectiveWeight(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

// generateExternal resolves a generated field: fold coherence values and the
// record discriminator into the context, consult the cache, and on a miss call
// the backend (directly or through the coalescer) under the retry policy.
func (e *Engine) generateExternal(ctx context.Context, rc *RecordContext, name string, f domain.GeneratedField, opts *Options, run *runState, rng *rand.Rand) (any, error) {
	genCtx := map[string]any(rc.Values.Project(f.CoherentWith))
	genCtx[recordIndexKey] = rc.Index

	prompt := buildPrompt(f)
	model := e.modelTag(opts)

	useCache := e.cache != nil && !opts.DisableCache
	if useCache {
		if v, ok := e.cache.Get(e.backend.Name(), model, prompt, genCtx, rng.IntN); ok {
			run.cacheHits++
			return v, nil
		}
	}

	run.llmCalls++
	var out string
	err := retry.Do(ctx, e.runRetryCfg(opts), opts.Advanced.Timeout, func(ctx context.Context) error {
		var v string
		var err error
		if opts.BatchSize > 0 && e.coalescer != nil {
			v, err = e.coalescer.Add(e.backend, prompt, genCtx, name).Wait(ctx)
		} else {
			v, err = e.backend.Generate(ctx, prompt, genCtx)
		}
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", name, err)
	}

	if useCache {
		e.cache.Set(e.backend.Name(), model, prompt, out, genCtx)
	}
	return out, nil
}

// runRetryCfg applies per-run overrides to the engine retry policy.
func (e *Engine) runRetryCfg(opts *Options) configuration.RetryConfig {
	cfg := e.retryCfg
	if opts.Advanced.MaxRetries > 0 {
		cfg.MaxAttempts = opts.Advanced.MaxRetries
	}
	return cfg
}

// modelTag resolves the model identifier used in cache keys.
func (e *Engine) modelTag(opts *Options) string {
	if opts.Provider.Model != "" {
		return opts.Provider.Model
	}
	if m, ok := e.backend.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// buildPrompt renders the prompt sent to the backend, appending style
// examples when present.
func buildPrompt(f domain.GeneratedField) string {
	if len(f.Examples) == 0 {
		return f.Prompt
	}
	return f.Prompt + "\nExamples: " + strings.Join(f.Examples, ", ")
}

// newRNG returns the run's random stream: seeded and reproducible when a seed
// is given, otherwise seeded from the process generator.
func newRNG(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
