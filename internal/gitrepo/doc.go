// Package gitrepo parses repository identifiers and builds the remote URLs used
// to clone and push the blog repository.
package gitrepo
