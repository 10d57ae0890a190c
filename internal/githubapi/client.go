package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v84/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/temirov/blogatissue/internal/codehost"
)

const (
	publicAPIHostConstant                   = "api.github.com"
	branchReferenceTemplateConstant         = "heads/%s"
	missingReferenceMessageConstant         = "Reference does not exist"
	tokenNotConfiguredMessageConstant       = "github api token not configured"
	operationErrorTemplateConstant          = "%s operation failed: %s"
	invalidAPIURLTemplateConstant           = "invalid github api url %q: %w"
	searchResultsPerPageConstant            = 100
	searchPullRequestsOperationNameConstant = OperationName("SearchOpenPullRequests")
	getPullRequestOperationNameConstant     = OperationName("GetPullRequest")
	deleteReferenceOperationNameConstant    = OperationName("DeleteBranchReference")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	createCommentOperationNameConstant      = OperationName("CreateIssueComment")
	logFieldQueryConstant                   = "query"
	logFieldRepositoryConstant              = "repository"
	logFieldReferenceConstant               = "reference"
	logFieldPullRequestNumberConstant       = "pull_request_number"
	logFieldIssueNumberConstant             = "issue_number"
	logFieldResultCountConstant             = "result_count"
	searchCompletedMessageConstant          = "searched open pull requests"
	referenceDeletedMessageConstant         = "deleted remote branch reference"
	pullRequestCreatedMessageConstant       = "opened pull request"
	commentCreatedMessageConstant           = "commented on issue"
)

// ErrTokenNotConfigured indicates the client was constructed without a token.
var ErrTokenNotConfigured = errors.New(tokenNotConfiguredMessageConstant)

// OperationName describes a named REST workflow supported by the client.
type OperationName string

// OperationError wraps REST failures.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// Options configure authentication and the API endpoint.
// An empty APIURL, or https://api.github.com, targets github.com.
type Options struct {
	Token      string
	APIURL     string
	HTTPClient *http.Client
}

// Client implements codehost.Client on top of go-github.
type Client struct {
	client *github.Client
	logger *zap.Logger
}

var _ codehost.Client = (*Client)(nil)

// NewClient constructs a REST client authenticated with the provided token.
func NewClient(executionContext context.Context, logger *zap.Logger, options Options) (*Client, error) {
	token := strings.TrimSpace(options.Token)
	if len(token) == 0 {
		return nil, ErrTokenNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if options.HTTPClient != nil {
		executionContext = context.WithValue(executionContext, oauth2.HTTPClient, options.HTTPClient)
	}
	httpClient := oauth2.NewClient(executionContext, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	restClient := github.NewClient(httpClient)

	apiURL := strings.TrimSpace(options.APIURL)
	if len(apiURL) > 0 && !strings.Contains(apiURL, publicAPIHostConstant) {
		enterpriseClient, enterpriseError := restClient.WithEnterpriseURLs(apiURL, apiURL)
		if enterpriseError != nil {
			return nil, fmt.Errorf(invalidAPIURLTemplateConstant, apiURL, enterpriseError)
		}
		restClient = enterpriseClient
	}

	return &Client{client: restClient, logger: logger}, nil
}

// SearchOpenPullRequests runs the issue search API with the pull request query and loads
// each hit to learn its head branch.
func (client *Client) SearchOpenPullRequests(executionContext context.Context, query codehost.PullRequestQuery) ([]codehost.PullRequest, error) {
	queryText := query.String()
	searchResult, _, searchError := client.client.Search.Issues(executionContext, queryText, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchResultsPerPageConstant},
	})
	if searchError != nil {
		return nil, OperationError{Operation: searchPullRequestsOperationNameConstant, Cause: searchError}
	}

	pullRequests := make([]codehost.PullRequest, 0, len(searchResult.Issues))
	for _, issue := range searchResult.Issues {
		if !issue.IsPullRequest() {
			continue
		}
		pullRequest, _, getError := client.client.PullRequests.Get(executionContext, query.Repository.Owner, query.Repository.Name, issue.GetNumber())
		if getError != nil {
			return nil, OperationError{Operation: getPullRequestOperationNameConstant, Cause: getError}
		}
		pullRequests = append(pullRequests, codehost.PullRequest{
			Number:     issue.GetNumber(),
			Title:      issue.GetTitle(),
			URL:        issue.GetHTMLURL(),
			HeadBranch: pullRequest.GetHead().GetRef(),
		})
	}

	client.logger.Debug(searchCompletedMessageConstant,
		zap.String(logFieldQueryConstant, queryText),
		zap.Int(logFieldResultCountConstant, len(pullRequests)),
	)
	return pullRequests, nil
}

// DeleteBranchReference deletes refs/heads/<branch>. A 422 "Reference does not exist" reply is reported as codehost.ErrReferenceNotFound.
func (client *Client) DeleteBranchReference(executionContext context.Context, repository codehost.Repository, branchName string) error {
	reference := fmt.Sprintf(branchReferenceTemplateConstant, branchName)
	_, deletionError := client.client.Git.DeleteRef(executionContext, repository.Owner, repository.Name, reference)
	if deletionError != nil {
		if isMissingReference(deletionError) {
			return OperationError{Operation: deleteReferenceOperationNameConstant, Cause: fmt.Errorf("%w: %s", codehost.ErrReferenceNotFound, reference)}
		}
		return OperationError{Operation: deleteReferenceOperationNameConstant, Cause: deletionError}
	}

	client.logger.Info(referenceDeletedMessageConstant,
		zap.String(logFieldRepositoryConstant, repository.Slug()),
		zap.String(logFieldReferenceConstant, reference),
	)
	return nil
}

// CreatePullRequest opens a pull request from HeadBranch into BaseBranch.
func (client *Client) CreatePullRequest(executionContext context.Context, request codehost.NewPullRequest) (codehost.PullRequest, error) {
	newPullRequest := &github.NewPullRequest{
		Title: github.Ptr(request.Title),
		Head:  github.Ptr(request.HeadBranch),
		Base:  github.Ptr(request.BaseBranch),
	}
	if len(request.Body) > 0 {
		newPullRequest.Body = github.Ptr(request.Body)
	}

	pullRequest, _, creationError := client.client.PullRequests.Create(executionContext, request.Repository.Owner, request.Repository.Name, newPullRequest)
	if creationError != nil {
		return codehost.PullRequest{}, OperationError{Operation: createPullRequestOperationNameConstant, Cause: creationError}
	}

	client.logger.Info(pullRequestCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, request.Repository.Slug()),
		zap.Int(logFieldPullRequestNumberConstant, pullRequest.GetNumber()),
	)
	return codehost.PullRequest{
		Number:     pullRequest.GetNumber(),
		Title:      pullRequest.GetTitle(),
		URL:        pullRequest.GetHTMLURL(),
		HeadBranch: pullRequest.GetHead().GetRef(),
	}, nil
}

// CreateIssueComment posts a comment on the issue.
func (client *Client) CreateIssueComment(executionContext context.Context, repository codehost.Repository, issueNumber int, body string) error {
	_, _, commentError := client.client.Issues.CreateComment(executionContext, repository.Owner, repository.Name, issueNumber, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if commentError != nil {
		return OperationError{Operation: createCommentOperationNameConstant, Cause: commentError}
	}

	client.logger.Info(commentCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, repository.Slug()),
		zap.Int(logFieldIssueNumberConstant, issueNumber),
	)
	return nil
}

// isMissingReference matches the 422 "Reference does not exist" reply. A 404 also means a missing
// repository or a token without access, so it is not treated as a missing branch.
func isMissingReference(err error) bool {
	var errorResponse *github.ErrorResponse
	if !errors.As(err, &errorResponse) || errorResponse.Response == nil {
		return false
	}
	return errorResponse.Response.StatusCode == http.StatusUnprocessableEntity &&
		strings.EqualFold(strings.TrimSpace(errorResponse.Message), missingReferenceMessageConstant)
}
