// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions blogatissue uses to
// run git, gh, and the content formatter and linter in a testable manner.
package execshell
