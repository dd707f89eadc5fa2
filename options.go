package lightcache

import (
	"io"
	"log/slog"
)

// Option configures an Extractor during creation.
//
// Example:
//
//	ex := lightcache.New(store,
//	    lightcache.WithDiagnostics(os.Stdout),
//	    lightcache.WithLogger(logger),
//	)
type Option func(*options)

// options holds optional configuration for an Extractor.
type options struct {
	logger      *slog.Logger
	diagnostics io.Writer
	writer      ContainerWriter
	normalize   bool
	stripCode   bool
	runID       string
}

// defaultOptions returns the default extractor options.
func defaultOptions() options {
	return options{
		logger:      nil, // package logger at call time
		diagnostics: io.Discard,
		writer:      DDSWriter{},
		normalize:   true,
	}
}

// WithLogger sets the logger for one Extractor instead of the package
// logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiagnostics sets where probe, scene and texture summaries are
// printed. The default discards them.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.diagnostics = w
		}
	}
}

// WithWriter replaces the container writer. The default writes DDS files.
func WithWriter(w ContainerWriter) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithNameNormalization toggles Unicode NFC normalization of scene names
// before they are used as directory names. Enabled by default.
func WithNameNormalization(enabled bool) Option {
	return func(o *options) {
		o.normalize = enabled
	}
}

// WithIDCodeStripping drops the two-letter ID code ("SC", "OB") from
// scene and object names in directory names, reports and diagnostics.
// Disabled by default, so a scene named "Scene" is written to "SCScene".
func WithIDCodeStripping(enabled bool) Option {
	return func(o *options) {
		o.stripCode = enabled
	}
}

// WithRunID tags the report and log records with an identifier.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
