package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/temirov/blogatissue/internal/codehost"
	"github.com/temirov/blogatissue/internal/execshell"
)

const (
	apiSubcommandConstant                   = "api"
	methodFlagConstant                      = "-X"
	fieldFlagConstant                       = "-f"
	inputFlagConstant                       = "--input"
	hostnameFlagConstant                    = "--hostname"
	stdinReferenceConstant                  = "-"
	acceptHeaderFlagConstant                = "-H"
	acceptHeaderValueConstant               = "Accept: application/vnd.github+json"
	httpMethodGetConstant                   = "GET"
	httpMethodPostConstant                  = "POST"
	httpMethodDeleteConstant                = "DELETE"
	searchEndpointConstant                  = "search/issues"
	searchQueryFieldTemplateConstant        = "q=%s"
	referenceEndpointTemplateConstant       = "repos/%s/git/refs/heads/%s"
	pullRequestsEndpointTemplateConstant    = "repos/%s/pulls"
	pullRequestEndpointTemplateConstant     = "repos/%s/pulls/%d"
	referenceSeparatorConstant              = "/"
	issueCommentsEndpointTemplateConstant   = "repos/%s/issues/%d/comments"
	tokenEnvironmentVariableConstant        = "GH_TOKEN"
	promptEnvironmentVariableConstant       = "GH_PROMPT_DISABLED"
	promptDisabledValueConstant             = "1"
	defaultHostnameConstant                 = "github.com"
	repositoryFieldNameConstant             = "repository"
	branchFieldNameConstant                 = "branch"
	headBranchFieldNameConstant             = "head_branch"
	baseBranchFieldNameConstant             = "base_branch"
	titleFieldNameConstant                  = "title"
	issueNumberFieldNameConstant            = "issue_number"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "must be positive"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	searchPullRequestsOperationNameConstant = OperationName("SearchOpenPullRequests")
	getPullRequestOperationNameConstant     = OperationName("GetPullRequest")
	deleteReferenceOperationNameConstant    = OperationName("DeleteBranchReference")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	createCommentOperationNameConstant      = OperationName("CreateIssueComment")
)

// gh prints "<message> (HTTP <status>)" for API failures; a missing ref is 422 "Reference does not exist".
var referenceNotFoundMarkers = []string{"Reference does not exist (HTTP 422)"}

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Options configure authentication and the target host.
type Options struct {
	Token    string
	Hostname string
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
	options  Options
}

var _ codehost.Client = (*Client)(nil)

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}

type pullRequestResponse struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	Head    struct {
		Ref string `json:"ref"`
	} `json:"head"`
	// PullRequest is set on search results that are pull requests rather than issues.
	PullRequest *json.RawMessage `json:"pull_request"`
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor, options Options) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, options: options}, nil
}

// SearchOpenPullRequests runs the issue search API restricted to open pull requests.
func (client *Client) SearchOpenPullRequests(executionContext context.Context, query codehost.PullRequestQuery) ([]codehost.PullRequest, error) {
	if validationError := validateRepository(query.Repository); validationError != nil {
		return nil, validationError
	}

	commandDetails := client.commandDetails(nil,
		searchEndpointConstant,
		methodFlagConstant,
		httpMethodGetConstant,
		fieldFlagConstant,
		fmt.Sprintf(searchQueryFieldTemplateConstant, query.String()),
	)

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: searchPullRequestsOperationNameConstant, Cause: executionError}
	}

	var response struct {
		Items []pullRequestResponse `json:"items"`
	}
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response); decodingError != nil {
		return nil, ResponseDecodingError{Operation: searchPullRequestsOperationNameConstant, Cause: decodingError}
	}

	pullRequests := make([]codehost.PullRequest, 0, len(response.Items))
	for _, item := range response.Items {
		if item.PullRequest == nil {
			continue
		}
		pullRequest, detailError := client.pullRequest(executionContext, query.Repository, item.Number)
		if detailError != nil {
			return nil, detailError
		}
		pullRequests = append(pullRequests, pullRequest)
	}
	return pullRequests, nil
}

// pullRequest loads a single pull request; search results omit the head branch.
func (client *Client) pullRequest(executionContext context.Context, repository codehost.Repository, number int) (codehost.PullRequest, error) {
	commandDetails := client.commandDetails(nil,
		fmt.Sprintf(pullRequestEndpointTemplateConstant, repository.Slug(), number),
		methodFlagConstant,
		httpMethodGetConstant,
	)

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return codehost.PullRequest{}, OperationError{Operation: getPullRequestOperationNameConstant, Cause: executionError}
	}

	var response pullRequestResponse
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response); decodingError != nil {
		return codehost.PullRequest{}, ResponseDecodingError{Operation: getPullRequestOperationNameConstant, Cause: decodingError}
	}
	return response.toPullRequest(), nil
}

// DeleteBranchReference deletes refs/heads/<branch> through the git references API.
func (client *Client) DeleteBranchReference(executionContext context.Context, repository codehost.Repository, branchName string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := client.commandDetails(nil,
		methodFlagConstant,
		httpMethodDeleteConstant,
		fmt.Sprintf(referenceEndpointTemplateConstant, repository.Slug(), escapeReferencePath(trimmedBranch)),
	)

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && reportsMissingReference(failedError.Result) {
		return OperationError{Operation: deleteReferenceOperationNameConstant, Cause: fmt.Errorf("%w: %s", codehost.ErrReferenceNotFound, trimmedBranch)}
	}
	return OperationError{Operation: deleteReferenceOperationNameConstant, Cause: executionError}
}

// CreatePullRequest opens a pull request from HeadBranch into BaseBranch.
func (client *Client) CreatePullRequest(executionContext context.Context, request codehost.NewPullRequest) (codehost.PullRequest, error) {
	if validationError := validateRepository(request.Repository); validationError != nil {
		return codehost.PullRequest{}, validationError
	}
	if len(strings.TrimSpace(request.Title)) == 0 {
		return codehost.PullRequest{}, InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(request.HeadBranch)) == 0 {
		return codehost.PullRequest{}, InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(request.BaseBranch)) == 0 {
		return codehost.PullRequest{}, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payload := struct {
		Title string `json:"title"`
		Head  string `json:"head"`
		Base  string `json:"base"`
		Body  string `json:"body,omitempty"`
	}{
		Title: request.Title,
		Head:  request.HeadBranch,
		Base:  request.BaseBranch,
		Body:  request.Body,
	}
	payloadBytes, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return codehost.PullRequest{}, PayloadEncodingError{Operation: createPullRequestOperationNameConstant, Cause: encodingError}
	}

	commandDetails := client.commandDetails(payloadBytes,
		fmt.Sprintf(pullRequestsEndpointTemplateConstant, request.Repository.Slug()),
		methodFlagConstant,
		httpMethodPostConstant,
		inputFlagConstant,
		stdinReferenceConstant,
	)

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return codehost.PullRequest{}, OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	var response pullRequestResponse
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response); decodingError != nil {
		return codehost.PullRequest{}, ResponseDecodingError{Operation: createPullRequestOperationNameConstant, Cause: decodingError}
	}
	return response.toPullRequest(), nil
}

// CreateIssueComment posts a comment on the issue.
func (client *Client) CreateIssueComment(executionContext context.Context, repository codehost.Repository, issueNumber int, body string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if issueNumber <= 0 {
		return InvalidInputError{FieldName: issueNumberFieldNameConstant, Message: positiveValueMessageConstant}
	}

	payloadBytes, encodingError := json.Marshal(struct {
		Body string `json:"body"`
	}{Body: body})
	if encodingError != nil {
		return PayloadEncodingError{Operation: createCommentOperationNameConstant, Cause: encodingError}
	}

	commandDetails := client.commandDetails(payloadBytes,
		fmt.Sprintf(issueCommentsEndpointTemplateConstant, repository.Slug(), issueNumber),
		methodFlagConstant,
		httpMethodPostConstant,
		inputFlagConstant,
		stdinReferenceConstant,
	)

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: createCommentOperationNameConstant, Cause: executionError}
	}
	return nil
}

func (client *Client) commandDetails(standardInput []byte, endpointArguments ...string) execshell.CommandDetails {
	arguments := []string{apiSubcommandConstant}
	arguments = append(arguments, endpointArguments...)
	arguments = append(arguments, acceptHeaderFlagConstant, acceptHeaderValueConstant)

	hostname := strings.TrimSpace(client.options.Hostname)
	if len(hostname) > 0 && hostname != defaultHostnameConstant {
		arguments = append(arguments, hostnameFlagConstant, hostname)
	}

	environment := map[string]string{promptEnvironmentVariableConstant: promptDisabledValueConstant}
	if token := strings.TrimSpace(client.options.Token); len(token) > 0 {
		environment[tokenEnvironmentVariableConstant] = token
	}

	return execshell.CommandDetails{
		Arguments:            arguments,
		EnvironmentVariables: environment,
		StandardInput:        standardInput,
	}
}

func (response pullRequestResponse) toPullRequest() codehost.PullRequest {
	return codehost.PullRequest{
		Number:     response.Number,
		Title:      response.Title,
		URL:        response.HTMLURL,
		HeadBranch: response.Head.Ref,
	}
}

// escapeReferencePath escapes each ref segment so a literal '%' in a branch name survives the URL.
func escapeReferencePath(reference string) string {
	segments := strings.Split(reference, referenceSeparatorConstant)
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return strings.Join(segments, referenceSeparatorConstant)
}

func validateRepository(repository codehost.Repository) error {
	if len(strings.TrimSpace(repository.Owner)) == 0 || len(strings.TrimSpace(repository.Name)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

func reportsMissingReference(result execshell.ExecutionResult) bool {
	combinedOutput := result.StandardError + result.StandardOutput
	for _, marker := range referenceNotFoundMarkers {
		if strings.Contains(combinedOutput, marker) {
			return true
		}
	}
	return false
}
