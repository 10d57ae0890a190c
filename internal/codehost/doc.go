// Package codehost declares the pull request operations the sync procedure needs
// from a code hosting service, independent of the client that performs them.
package codehost
