// Package ui holds the terminal presentation of the CLI: ANSI print
// helpers, a progress tracker fed by workflow events and lipgloss boxes for
// run summaries.
package ui
