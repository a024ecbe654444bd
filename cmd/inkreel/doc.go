// Package main hosts the inkreel CLI entrypoint and command graph.
//
// Unlike a daemon-fronted CLI, every inkreel subcommand executes the
// pipeline driver directly and synchronously: there is no background
// process and no socket to dial. commandContext centralizes configuration
// resolution and the lazy construction of the job store, provider
// registry, template registry, and driver so subcommands can focus on
// argument parsing and output formatting.
package main
