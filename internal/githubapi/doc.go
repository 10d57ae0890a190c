// Package githubapi performs the blogatissue pull request operations against
// the GitHub REST API using go-github, authenticated with an oauth2 static token.
package githubapi
