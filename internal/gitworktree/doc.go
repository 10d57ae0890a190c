// Package gitworktree clones the blog repository and performs the branch,
// staging, commit and push steps of a sync run.
//
// ShellRepository drives the git executable through execshell; GoGitRepository
// performs the same operations in-process with go-git.
package gitworktree
