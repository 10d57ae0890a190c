// Package blogsync turns a labeled issue into a blog post pull request.
//
// A run gates the incoming event, resolves the post path and sync branch from the
// issue title, reconciles any stale branch left by a closed pull request, writes and
// processes the post, and publishes the result. Running it twice for the same issue
// state produces no new commits.
package blogsync
