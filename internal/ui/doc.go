// Package ui renders progress for the GitHub Actions log viewer.
//
// Commands run through execshell are folded into collapsible groups, failures become
// annotations on the run summary and secrets are masked before they can be echoed.
package ui
