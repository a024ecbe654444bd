// Package pipeline drives the five-stage job pipeline (INGEST, SCRIBE,
// REFINE, GENERATE, SHELVE): prerequisite validation, ordered stage
// execution, state persistence, and the run/continue/retry operations
// exposed to the CLI and watcher. Grounded on the teacher's
// internal/workflow manager stage-execution loop, generalized from a
// background multi-lane queue processor to a single-job sequential driver.
package pipeline
