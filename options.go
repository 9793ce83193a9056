package umlsm

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultActivityGracePeriod bounds the wait for a cancelled do-activity
	DefaultActivityGracePeriod = 2 * time.Second
	// DefaultMaxCompletionSteps bounds a single completion drain
	DefaultMaxCompletionSteps = 10000
)

// Config holds the tunables of an executor
type Config struct {
	// ActivityGracePeriod is how long exiting a state waits for its
	// do-activity to acknowledge cancellation.
	ActivityGracePeriod time.Duration `yaml:"activityGracePeriod" json:"activityGracePeriod"`
	// MaxCompletionSteps bounds the completion events processed by one call.
	// Exceeding it means a cycle of completion transitions.
	MaxCompletionSteps int `yaml:"maxCompletionSteps" json:"maxCompletionSteps"`
}

// DefaultConfig returns the configuration used when no option overrides it
func DefaultConfig() Config {
	return Config{
		ActivityGracePeriod: DefaultActivityGracePeriod,
		MaxCompletionSteps:  DefaultMaxCompletionSteps,
	}
}

// normalized fills zero fields with defaults
func (c Config) normalized() Config {
	if c.ActivityGracePeriod <= 0 {
		c.ActivityGracePeriod = DefaultActivityGracePeriod
	}
	if c.MaxCompletionSteps <= 0 {
		c.MaxCompletionSteps = DefaultMaxCompletionSteps
	}
	return c
}

type options struct {
	id        string
	config    Config
	logger    *slog.Logger
	tracer    trace.TracerProvider
	observers []Observer
}

// Option configures an executor
type Option func(*options)

// WithID overrides the generated executor id
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithConfig sets the executor configuration
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithActivityGracePeriod sets Config.ActivityGracePeriod
func WithActivityGracePeriod(d time.Duration) Option {
	return func(o *options) {
		o.config.ActivityGracePeriod = d
	}
}

// WithLogger sets the logger used for engine diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider enables tracing of executor operations
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

// WithObserver registers an observer at construction time
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observer)
	}
}

func newOptions(opts []Option) options {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	o.config = o.config.normalized()
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider()
	}
	return o
}
