// Package generation defines the boundary to the external text-generation
// service. The pipeline depends only on the Client interface here; the
// Gemini-backed implementation lives in internal/platform/gemini. Generation
// output is free text that the pipeline parses and validates itself.
package generation
