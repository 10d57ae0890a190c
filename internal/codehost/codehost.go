package codehost

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	repositorySlugTemplateConstant     = "%s/%s"
	searchRepositoryQualifierConstant  = "repo:"
	searchPullRequestQualifierConstant = "is:pr"
	searchAuthorQualifierConstant      = "author:"
	searchOpenQualifierConstant        = "is:open"
	searchTermSeparatorConstant        = " "
	referenceNotFoundMessageConstant   = "reference not found"
	// DefaultAutomationAuthor is the search author for pull requests opened with the Actions token.
	DefaultAutomationAuthor = "app/github-actions"
)

// ErrReferenceNotFound reports that a branch reference did not exist on the code host.
var ErrReferenceNotFound = errors.New(referenceNotFoundMessageConstant)

// Repository identifies a hosted repository.
type Repository struct {
	Owner string
	Name  string
}

// Slug returns owner/name.
func (repository Repository) Slug() string {
	return fmt.Sprintf(repositorySlugTemplateConstant, repository.Owner, repository.Name)
}

// PullRequest describes an open pull request.
type PullRequest struct {
	Number     int
	Title      string
	URL        string
	HeadBranch string
}

// PullRequestQuery selects open pull requests created by the automation author that mention Terms.
type PullRequestQuery struct {
	Repository Repository
	Author     string
	Terms      string
}

// String renders the query in the code host search syntax.
func (query PullRequestQuery) String() string {
	author := strings.TrimSpace(query.Author)
	if len(author) == 0 {
		author = DefaultAutomationAuthor
	}
	qualifiers := []string{
		searchRepositoryQualifierConstant + query.Repository.Slug(),
		searchPullRequestQualifierConstant,
		searchAuthorQualifierConstant + author,
		searchOpenQualifierConstant,
	}
	if trimmedTerms := strings.TrimSpace(query.Terms); len(trimmedTerms) > 0 {
		qualifiers = append(qualifiers, trimmedTerms)
	}
	return strings.Join(qualifiers, searchTermSeparatorConstant)
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Repository Repository
	Title      string
	HeadBranch string
	BaseBranch string
	Body       string
}

// Client performs the pull request operations of a sync run.
type Client interface {
	SearchOpenPullRequests(executionContext context.Context, query PullRequestQuery) ([]PullRequest, error)
	// DeleteBranchReference removes refs/heads/<branch>; a missing reference yields an error wrapping ErrReferenceNotFound.
	DeleteBranchReference(executionContext context.Context, repository Repository, branchName string) error
	CreatePullRequest(executionContext context.Context, request NewPullRequest) (PullRequest, error)
	CreateIssueComment(executionContext context.Context, repository Repository, issueNumber int, body string) error
}
