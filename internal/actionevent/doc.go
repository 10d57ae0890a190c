// Package actionevent reads the GitHub Actions runtime: the action inputs, the
// GITHUB_* environment and the webhook payload of the triggering event.
package actionevent
