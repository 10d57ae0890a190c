// Package contentprocessor runs the external formatter and linter over a blog post
// and installs the repository's Node.js tooling they depend on.
package contentprocessor
