package pipeline

import "errors"

// Common errors returned by the pipeline
var (
	// ErrSchema is returned when generation output failed strict decoding
	// against the expected shape. It triggers the manual-extraction fallback
	// before surfacing.
	ErrSchema = errors.New("generation output failed schema validation")

	// ErrParse is returned when the manual-extraction fallback also failed.
	// It is terminal: the owning job is marked failed with the captured
	// error text.
	ErrParse = errors.New("could not extract structured data from generation output")

	// ErrNoJSONFound is returned when the raw output contains no JSON object
	// at all.
	ErrNoJSONFound = errors.New("no JSON object found in generation output")
)

// Handler dependency validation errors
var (
	ErrNilCache     = errors.New("cache cannot be nil")
	ErrNilClient    = errors.New("generation client cannot be nil")
	ErrNilContent   = errors.New("content store cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrNilAssets    = errors.New("assets generator cannot be nil")
	ErrNilSubmitter = errors.New("submitter cannot be nil when durable lesson assets are enabled")
)
