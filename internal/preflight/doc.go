// Package preflight provides readiness checks for the external binaries
// and provider credentials inkreel depends on.
//
// RunAll backs the "inkreel status" command, which prints one row per check
// and returns an error if any check fails; the "run" and "watch" commands do
// not call it. CheckOpenRelayReachable, a single-attempt health ping, is not
// part of RunAll and has no caller in the CLI.
package preflight
