// Package stories implements the story pipeline: crawling Reddit posts into
// the store and advancing each story through scripting, narration,
// transcription, and readiness validation.
//
// Stage handlers mutate the in-memory story (artifact paths) and the
// Processor persists each completed stage through the store's guarded status
// transitions. Failures are recorded with the stage they occurred in so a
// retry re-enters the pipeline exactly where it left off.
package stories
