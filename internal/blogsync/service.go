package blogsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/blogatissue/internal/codehost"
	"github.com/temirov/blogatissue/internal/gitworktree"
)

const (
	// DefaultAttribution is appended to pull request titles.
	DefaultAttribution = " by Blog@Issue"
	// DefaultBaseBranch is used when the event does not name the repository default branch.
	DefaultBaseBranch = "master"

	createVerbConstant                = "Create"
	updateVerbConstant                = "Update"
	commitMessageTemplateConstant     = "%s %s"
	congratulationsTemplateConstant   = "Congrats!✨ A pull request: #%d has been created!"
	pullRequestBodyTemplateConstant   = "Generated from #%d."
	postDirectoryPermissionsConstant  = 0o755
	postFilePermissionsConstant       = 0o644
	codeHostNotConfiguredMessage      = "code host client not configured"
	repositoryNotConfiguredMessage    = "version control repository not configured"
	processorNotConfiguredMessage     = "content processor not configured"
	remoteURLRequiredMessage          = "remote repository url required"
	targetErrorTemplate               = "resolve target: %w"
	cloneErrorTemplate                = "clone repository: %w"
	searchErrorTemplate               = "search open pull requests: %w"
	listBranchesErrorTemplate         = "list local branches: %w"
	deleteLocalBranchErrorTemplate    = "delete local branch %s: %w"
	deleteRemoteBranchErrorTemplate   = "delete remote branch %s: %w"
	createBranchErrorTemplate         = "create branch %s: %w"
	checkoutRemoteBranchErrorTemplate = "check out branch %s: %w"
	installDependenciesErrorTemplate  = "install content tooling: %w"
	readPostErrorTemplate             = "read %s: %w"
	writePostErrorTemplate            = "write %s: %w"
	formatErrorTemplate               = "format %s: %w"
	lintErrorTemplate                 = "lint %s: %w"
	stageErrorTemplate                = "stage %s: %w"
	statusErrorTemplate               = "inspect working tree status: %w"
	commitErrorTemplate               = "commit %s: %w"
	pushErrorTemplate                 = "push %s: %w"
	createPullRequestErrorTemplate    = "create pull request for %s: %w"
	commentErrorTemplate              = "comment on issue #%d: %w"
	eventRejectedMessage              = "event skipped"
	targetResolvedMessage             = "target resolved"
	pullRequestFoundMessage           = "open pull request found, updating its branch"
	pullRequestMissingMessage         = "no open pull request, starting from the default branch"
	foreignPullRequestMessage         = "search hit targets another branch, ignored"
	logFieldHeadBranchConstant        = "head_branch"
	staleLocalBranchDeletedMessage    = "stale local branch deleted"
	remoteBranchMissingMessage        = "remote branch already absent"
	remoteBranchDeletedMessage        = "stale remote branch deleted"
	noChangesMessage                  = "post unchanged, nothing to publish"
	contentDiffMessage                = "post content changed"
	branchPushedMessage               = "branch pushed"
	pullRequestCreatedMessage         = "pull request created"
	issueCommentedMessage             = "issue commented"
	logFieldReasonConstant            = "reason"
	logFieldCheckConstant             = "check"
	logFieldIssueConstant             = "issue"
	logFieldActionConstant            = "action"
	logFieldPathConstant              = "path"
	logFieldBranchConstant            = "branch"
	logFieldPullRequestConstant       = "pull_request"
	logFieldCommitMessageConstant     = "commit_message"
	logFieldInsertedLinesConstant     = "inserted_lines"
	logFieldDeletedLinesConstant      = "deleted_lines"
	logFieldExistedBeforeConstant     = "existed_before"
	noChangesReasonConstant           = "no staged content change"
	existingPullRequestReasonConstant = "pushed to the open pull request"
	createdPullRequestReasonTemplate  = "opened pull request #%d"
	lineSeparatorConstant             = "\n"
)

var (
	// ErrCodeHostNotConfigured indicates a service without a code host client.
	ErrCodeHostNotConfigured = errors.New(codeHostNotConfiguredMessage)
	// ErrRepositoryNotConfigured indicates a service without a working tree backend.
	ErrRepositoryNotConfigured = errors.New(repositoryNotConfiguredMessage)
	// ErrProcessorNotConfigured indicates a service without a content processor.
	ErrProcessorNotConfigured = errors.New(processorNotConfiguredMessage)
	// ErrRemoteURLRequired indicates options without a clone URL.
	ErrRemoteURLRequired = errors.New(remoteURLRequiredMessage)
)

// ContentProcessor formats and lints a post in place. Paths are relative to the working tree.
type ContentProcessor interface {
	Format(executionContext context.Context, path string) error
	Lint(executionContext context.Context, path string) error
}

// DependencyInstaller prepares the tooling ContentProcessor relies on.
type DependencyInstaller interface {
	InstallDependencies(executionContext context.Context) error
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Logger     *zap.Logger
	CodeHost   codehost.Client
	Repository gitworktree.Repository
	Processor  ContentProcessor
	Installer  DependencyInstaller
	FileSystem afero.Fs
}

// Options tune a Service run.
type Options struct {
	FilePathTemplate string
	TriggerLabels    []string
	RemoteURL        string
	RemoteName       string
	BranchPrefix     string
	AutomationAuthor string
	Attribution      string
	Timeout          time.Duration
}

// Service runs the sync procedure for one event.
type Service struct {
	dependencies Dependencies
	options      Options
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies, options Options) (*Service, error) {
	if dependencies.CodeHost == nil {
		return nil, ErrCodeHostNotConfigured
	}
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Processor == nil {
		return nil, ErrProcessorNotConfigured
	}
	if len(strings.TrimSpace(options.FilePathTemplate)) == 0 {
		return nil, ErrFilePathTemplateRequired
	}
	if len(strings.TrimSpace(options.RemoteURL)) == 0 {
		return nil, ErrRemoteURLRequired
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if len(options.TriggerLabels) == 0 {
		options.TriggerLabels = DefaultTriggerLabels()
	}
	if len(strings.TrimSpace(options.BranchPrefix)) == 0 {
		options.BranchPrefix = DefaultBranchPrefix
	}
	if len(strings.TrimSpace(options.AutomationAuthor)) == 0 {
		options.AutomationAuthor = codehost.DefaultAutomationAuthor
	}
	if len(options.Attribution) == 0 {
		options.Attribution = DefaultAttribution
	}
	return &Service{dependencies: dependencies, options: options}, nil
}

// Run gates the event and, when accepted, publishes the issue body as a post.
func (service *Service) Run(executionContext context.Context, event Event) (Result, error) {
	logger := service.dependencies.Logger

	decision := EvaluateGate(event, service.options.TriggerLabels)
	if !decision.Accepted {
		logger.Info(eventRejectedMessage,
			zap.String(logFieldReasonConstant, decision.Reason()),
			zap.String(logFieldCheckConstant, string(decision.FailedCheck)),
			zap.String(logFieldActionConstant, string(event.Action)),
		)
		return Result{Outcome: OutcomeSkipped, Reason: decision.Reason()}, nil
	}

	if service.options.Timeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, service.options.Timeout)
		defer cancel()
	}

	target, targetError := NewTarget(service.options.FilePathTemplate, event.Title, service.options.BranchPrefix)
	if targetError != nil {
		return Result{}, fmt.Errorf(targetErrorTemplate, targetError)
	}
	logger.Info(targetResolvedMessage,
		zap.Int(logFieldIssueConstant, event.IssueNumber),
		zap.String(logFieldPathConstant, target.Path),
		zap.String(logFieldBranchConstant, target.BranchName),
	)

	result := Result{TargetPath: target.Path, BranchName: target.BranchName}

	if cloneError := service.dependencies.Repository.Clone(executionContext, service.options.RemoteURL); cloneError != nil {
		return result, fmt.Errorf(cloneErrorTemplate, cloneError)
	}

	existingPullRequest, reconcileError := service.reconcile(executionContext, event, target)
	if reconcileError != nil {
		return result, reconcileError
	}

	commitMessage, changed, mutateError := service.mutate(executionContext, event, target)
	if mutateError != nil {
		return result, mutateError
	}
	if !changed {
		logger.Info(noChangesMessage, zap.String(logFieldPathConstant, target.Path))
		result.Outcome = OutcomeUnchanged
		result.Reason = noChangesReasonConstant
		if existingPullRequest != nil {
			result.PullRequestNumber = existingPullRequest.Number
		}
		return result, nil
	}

	result.CommitMessage = commitMessage
	return service.publish(executionContext, event, target, existingPullRequest, result)
}

// reconcile finds the open pull request for the target and, when there is none,
// removes branches left behind by a closed one.
func (service *Service) reconcile(executionContext context.Context, event Event, target Target) (*codehost.PullRequest, error) {
	logger := service.dependencies.Logger
	repository := service.dependencies.Repository

	pullRequests, searchError := service.dependencies.CodeHost.SearchOpenPullRequests(executionContext, codehost.PullRequestQuery{
		Repository: event.Repository(),
		Author:     service.options.AutomationAuthor,
		Terms:      target.Path,
	})
	if searchError != nil {
		return nil, fmt.Errorf(searchErrorTemplate, searchError)
	}

	existing, found := service.matchingPullRequest(pullRequests, target.BranchName)
	if found {
		logger.Info(pullRequestFoundMessage,
			zap.Int(logFieldPullRequestConstant, existing.Number),
			zap.String(logFieldBranchConstant, target.BranchName),
		)
		if checkoutError := repository.CheckoutRemoteBranch(executionContext, service.options.RemoteName, target.BranchName); checkoutError != nil {
			return nil, fmt.Errorf(checkoutRemoteBranchErrorTemplate, target.BranchName, checkoutError)
		}
		return &existing, nil
	}

	logger.Info(pullRequestMissingMessage, zap.String(logFieldBranchConstant, target.BranchName))

	branches, listError := repository.ListBranches(executionContext)
	if listError != nil {
		return nil, fmt.Errorf(listBranchesErrorTemplate, listError)
	}
	if slices.Contains(branches, target.BranchName) {
		if deleteError := repository.DeleteBranch(executionContext, target.BranchName); deleteError != nil {
			return nil, fmt.Errorf(deleteLocalBranchErrorTemplate, target.BranchName, deleteError)
		}
		logger.Info(staleLocalBranchDeletedMessage, zap.String(logFieldBranchConstant, target.BranchName))
	}

	deleteError := service.dependencies.CodeHost.DeleteBranchReference(executionContext, event.Repository(), target.BranchName)
	switch {
	case errors.Is(deleteError, codehost.ErrReferenceNotFound):
		logger.Debug(remoteBranchMissingMessage, zap.String(logFieldBranchConstant, target.BranchName))
	case deleteError != nil:
		return nil, fmt.Errorf(deleteRemoteBranchErrorTemplate, target.BranchName, deleteError)
	default:
		logger.Info(remoteBranchDeletedMessage, zap.String(logFieldBranchConstant, target.BranchName))
	}

	if createError := repository.CreateBranch(executionContext, target.BranchName); createError != nil {
		return nil, fmt.Errorf(createBranchErrorTemplate, target.BranchName, createError)
	}
	return nil, nil
}

// matchingPullRequest picks the search hit whose head branch is the target branch. The search is
// full text, so hits for other posts whose paths share the terms are expected.
func (service *Service) matchingPullRequest(pullRequests []codehost.PullRequest, branchName string) (codehost.PullRequest, bool) {
	for _, pullRequest := range pullRequests {
		if pullRequest.HeadBranch == branchName {
			return pullRequest, true
		}
		service.dependencies.Logger.Debug(foreignPullRequestMessage,
			zap.Int(logFieldPullRequestConstant, pullRequest.Number),
			zap.String(logFieldHeadBranchConstant, pullRequest.HeadBranch),
		)
	}
	return codehost.PullRequest{}, false
}

// mutate writes and processes the post, stages it and reports whether the index changed.
func (service *Service) mutate(executionContext context.Context, event Event, target Target) (string, bool, error) {
	fileSystem := service.dependencies.FileSystem
	processor := service.dependencies.Processor
	repository := service.dependencies.Repository
	absolutePath := filepath.Join(repository.Directory(), filepath.FromSlash(target.Path))

	previousContent, existedBefore, readError := readExisting(fileSystem, absolutePath)
	if readError != nil {
		return "", false, fmt.Errorf(readPostErrorTemplate, target.Path, readError)
	}

	if service.dependencies.Installer != nil {
		if installError := service.dependencies.Installer.InstallDependencies(executionContext); installError != nil {
			return "", false, fmt.Errorf(installDependenciesErrorTemplate, installError)
		}
	}

	if mkdirError := fileSystem.MkdirAll(filepath.Dir(absolutePath), postDirectoryPermissionsConstant); mkdirError != nil {
		return "", false, fmt.Errorf(writePostErrorTemplate, target.Path, mkdirError)
	}
	if writeError := afero.WriteFile(fileSystem, absolutePath, []byte(event.BodyText()), postFilePermissionsConstant); writeError != nil {
		return "", false, fmt.Errorf(writePostErrorTemplate, target.Path, writeError)
	}

	if formatError := processor.Format(executionContext, target.Path); formatError != nil {
		return "", false, fmt.Errorf(formatErrorTemplate, target.Path, formatError)
	}
	if lintError := processor.Lint(executionContext, target.Path); lintError != nil {
		return "", false, fmt.Errorf(lintErrorTemplate, target.Path, lintError)
	}

	if addError := repository.Add(executionContext, target.Path); addError != nil {
		return "", false, fmt.Errorf(stageErrorTemplate, target.Path, addError)
	}
	statuses, statusError := repository.Status(executionContext)
	if statusError != nil {
		return "", false, fmt.Errorf(statusErrorTemplate, statusError)
	}
	if !gitworktree.HasStagedContentChange(statuses) {
		return "", false, nil
	}

	if processedContent, processedError := afero.ReadFile(fileSystem, absolutePath); processedError == nil {
		service.logContentDiff(target.Path, previousContent, string(processedContent), existedBefore)
	}

	verb := createVerbConstant
	if existedBefore {
		verb = updateVerbConstant
	}
	return fmt.Sprintf(commitMessageTemplateConstant, verb, target.Path), true, nil
}

// publish commits and pushes the branch, opening a pull request when none is open.
func (service *Service) publish(executionContext context.Context, event Event, target Target, existingPullRequest *codehost.PullRequest, result Result) (Result, error) {
	logger := service.dependencies.Logger
	repository := service.dependencies.Repository

	if commitError := repository.Commit(executionContext, result.CommitMessage); commitError != nil {
		return result, fmt.Errorf(commitErrorTemplate, target.Path, commitError)
	}
	if pushError := repository.Push(executionContext, service.options.RemoteName, target.BranchName); pushError != nil {
		return result, fmt.Errorf(pushErrorTemplate, target.BranchName, pushError)
	}
	logger.Info(branchPushedMessage,
		zap.String(logFieldBranchConstant, target.BranchName),
		zap.String(logFieldCommitMessageConstant, result.CommitMessage),
	)

	if existingPullRequest != nil {
		result.Outcome = OutcomeUpdated
		result.Reason = existingPullRequestReasonConstant
		result.PullRequestNumber = existingPullRequest.Number
		return result, nil
	}

	baseBranch := strings.TrimSpace(event.DefaultBranch)
	if len(baseBranch) == 0 {
		baseBranch = DefaultBaseBranch
	}
	pullRequest, createError := service.dependencies.CodeHost.CreatePullRequest(executionContext, codehost.NewPullRequest{
		Repository: event.Repository(),
		Title:      result.CommitMessage + service.options.Attribution,
		HeadBranch: target.BranchName,
		BaseBranch: baseBranch,
		Body:       fmt.Sprintf(pullRequestBodyTemplateConstant, event.IssueNumber),
	})
	if createError != nil {
		return result, fmt.Errorf(createPullRequestErrorTemplate, target.BranchName, createError)
	}
	logger.Info(pullRequestCreatedMessage, zap.Int(logFieldPullRequestConstant, pullRequest.Number))

	result.Outcome = OutcomeCreated
	result.PullRequestNumber = pullRequest.Number
	result.Reason = fmt.Sprintf(createdPullRequestReasonTemplate, pullRequest.Number)

	comment := fmt.Sprintf(congratulationsTemplateConstant, pullRequest.Number)
	if commentError := service.dependencies.CodeHost.CreateIssueComment(executionContext, event.Repository(), event.IssueNumber, comment); commentError != nil {
		return result, fmt.Errorf(commentErrorTemplate, event.IssueNumber, commentError)
	}
	logger.Info(issueCommentedMessage, zap.Int(logFieldIssueConstant, event.IssueNumber))
	return result, nil
}

func (service *Service) logContentDiff(path string, previousContent string, processedContent string, existedBefore bool) {
	logger := service.dependencies.Logger
	if !logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	inserted, deleted := countChangedLines(previousContent, processedContent)
	logger.Debug(contentDiffMessage,
		zap.String(logFieldPathConstant, path),
		zap.Bool(logFieldExistedBeforeConstant, existedBefore),
		zap.Int(logFieldInsertedLinesConstant, inserted),
		zap.Int(logFieldDeletedLinesConstant, deleted),
	)
}

func countChangedLines(previousContent string, processedContent string) (int, int) {
	differ := diffmatchpatch.New()
	previousRunes, processedRunes, lines := differ.DiffLinesToRunes(previousContent, processedContent)
	diffs := differ.DiffCharsToLines(differ.DiffMainRunes(previousRunes, processedRunes, false), lines)

	inserted := 0
	deleted := 0
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			inserted += lineCount(diff.Text)
		case diffmatchpatch.DiffDelete:
			deleted += lineCount(diff.Text)
		}
	}
	return inserted, deleted
}

func lineCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	count := strings.Count(text, lineSeparatorConstant)
	if !strings.HasSuffix(text, lineSeparatorConstant) {
		count++
	}
	return count
}

func readExisting(fileSystem afero.Fs, absolutePath string) (string, bool, error) {
	content, readError := afero.ReadFile(fileSystem, absolutePath)
	if errors.Is(readError, os.ErrNotExist) {
		return "", false, nil
	}
	if readError != nil {
		return "", false, readError
	}
	return string(content), true, nil
}
