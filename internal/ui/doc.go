// Package ui renders the styled, run-once output of the xpdeck CLI.
//
// Components:
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure and warning boxes
//   - RenderProfile: the page grid of a profile with its load warnings
//   - RenderEndpoints: panels found by a discovery scan
//
// Output goes to an io.Writer so commands can pass cmd.OutOrStdout().
//
// Logging is silent unless XPDECK_LOG_LEVEL or --log-level is set, which
// keeps the curated output clean.
package ui
