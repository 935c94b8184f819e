// Package main hosts the storyreel CLI entrypoint and command graph.
//
// The Cobra-based command tree covers crawling reddit for new stories,
// inspecting and maintaining the story store, running either pipeline on
// demand, the continuous runner, and configuration scaffolding. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
