// Package githubcli performs the blogatissue pull request operations through
// `gh api`.
//
// Every call goes through execshell so the commands are logged like any other
// subprocess and can be replaced by a stub executor in tests.
package githubcli
