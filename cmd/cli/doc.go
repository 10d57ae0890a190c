// Package cli builds the blogatissue command tree: the root command with
// configuration and logging setup, plus the sync and resolve subcommands.
package cli
