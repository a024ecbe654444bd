// Package jobstore persists jobs on the filesystem and provides a
// non-authoritative SQLite accelerator for usage reporting.
//
// A job owns a directory under the working root named by its job_id:
// state.json and meta.json are the authoritative record of its lifecycle and
// configuration, written atomically on every mutation; media/, transcripts/,
// artifacts/, and _stages/ hold the files stage executors produce along the
// way. Nothing outside this package should read or write those files
// directly — stage executors call through the Job and Store methods here so
// the on-disk layout stays centralized in one place.
package jobstore
