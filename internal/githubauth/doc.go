// Package githubauth locates the GitHub token used for API calls and authenticated pushes.
package githubauth
