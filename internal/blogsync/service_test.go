package blogsync_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/blogatissue/internal/blogsync"
	"github.com/temirov/blogatissue/internal/codehost"
	"github.com/temirov/blogatissue/internal/gitworktree"
)

const (
	testDirectoryConstant = "/workspace/blog"
	testTemplateConstant  = "posts/{title}.md"
	testRemoteConstant    = "https://github.com/octo/blog.git"
	testPostPathConstant  = "posts/Hello World.md"
	testBranchConstant    = "blog-at-issue/posts/Hello%20World.md"
)

type callLog struct {
	entries []string
}

func (log *callLog) record(format string, arguments ...any) {
	log.entries = append(log.entries, fmt.Sprintf(format, arguments...))
}

type fakeCodeHost struct {
	log                 *callLog
	openPullRequests    []codehost.PullRequest
	deleteError         error
	createdPullRequest  codehost.PullRequest
	recordedQueries     []codehost.PullRequestQuery
	recordedPullRequest codehost.NewPullRequest
}

func (host *fakeCodeHost) SearchOpenPullRequests(_ context.Context, query codehost.PullRequestQuery) ([]codehost.PullRequest, error) {
	host.log.record("search %s", query.String())
	host.recordedQueries = append(host.recordedQueries, query)
	return host.openPullRequests, nil
}

func (host *fakeCodeHost) DeleteBranchReference(_ context.Context, repository codehost.Repository, branchName string) error {
	host.log.record("delete-ref %s heads/%s", repository.Slug(), branchName)
	return host.deleteError
}

func (host *fakeCodeHost) CreatePullRequest(_ context.Context, request codehost.NewPullRequest) (codehost.PullRequest, error) {
	host.log.record("create-pr %s %s <- %s: %s", request.Repository.Slug(), request.BaseBranch, request.HeadBranch, request.Title)
	host.recordedPullRequest = request
	return host.createdPullRequest, nil
}

func (host *fakeCodeHost) CreateIssueComment(_ context.Context, repository codehost.Repository, issueNumber int, body string) error {
	host.log.record("comment %s#%d: %s", repository.Slug(), issueNumber, body)
	return nil
}

// fakeRepository tracks committed content per path on top of a shared afero filesystem.
type fakeRepository struct {
	log        *callLog
	fileSystem afero.Fs
	branches   []string
	committed  map[string]string
	staged     map[string]string
}

func newFakeRepository(log *callLog, fileSystem afero.Fs) *fakeRepository {
	return &fakeRepository{
		log:        log,
		fileSystem: fileSystem,
		branches:   []string{"main"},
		committed:  map[string]string{},
		staged:     map[string]string{},
	}
}

func (repository *fakeRepository) seedCommitted(relativePath string, content string) {
	repository.committed[relativePath] = content
	absolutePath := filepath.Join(testDirectoryConstant, relativePath)
	_ = repository.fileSystem.MkdirAll(filepath.Dir(absolutePath), 0o755)
	_ = afero.WriteFile(repository.fileSystem, absolutePath, []byte(content), 0o644)
}

func (repository *fakeRepository) Directory() string {
	return testDirectoryConstant
}

func (repository *fakeRepository) Clone(_ context.Context, remoteURL string) error {
	repository.log.record("clone %s", remoteURL)
	return nil
}

func (repository *fakeRepository) ListBranches(context.Context) ([]string, error) {
	repository.log.record("list-branches")
	return repository.branches, nil
}

func (repository *fakeRepository) DeleteBranch(_ context.Context, branchName string) error {
	repository.log.record("delete-branch %s", branchName)
	repository.branches = slices.DeleteFunc(repository.branches, func(candidate string) bool { return candidate == branchName })
	return nil
}

func (repository *fakeRepository) CreateBranch(_ context.Context, branchName string) error {
	repository.log.record("create-branch %s", branchName)
	repository.branches = append(repository.branches, branchName)
	return nil
}

func (repository *fakeRepository) CheckoutRemoteBranch(_ context.Context, remoteName string, branchName string) error {
	repository.log.record("checkout-remote %s %s", remoteName, branchName)
	return nil
}

func (repository *fakeRepository) Add(_ context.Context, relativePath string) error {
	repository.log.record("add %s", relativePath)
	content, readError := afero.ReadFile(repository.fileSystem, filepath.Join(testDirectoryConstant, relativePath))
	if readError != nil {
		return readError
	}
	repository.staged[relativePath] = string(content)
	return nil
}

func (repository *fakeRepository) Status(context.Context) ([]gitworktree.FileStatus, error) {
	repository.log.record("status")
	statuses := make([]gitworktree.FileStatus, 0)
	for relativePath, content := range repository.staged {
		previous, tracked := repository.committed[relativePath]
		switch {
		case !tracked:
			statuses = append(statuses, gitworktree.FileStatus{Path: relativePath, Staged: gitworktree.FileStateAdded})
		case previous != content:
			statuses = append(statuses, gitworktree.FileStatus{Path: relativePath, Staged: gitworktree.FileStateModified})
		}
	}
	return statuses, nil
}

func (repository *fakeRepository) Commit(_ context.Context, message string) error {
	repository.log.record("commit %s", message)
	for relativePath, content := range repository.staged {
		repository.committed[relativePath] = content
	}
	return nil
}

func (repository *fakeRepository) Push(_ context.Context, remoteName string, branchName string) error {
	repository.log.record("push %s %s", remoteName, branchName)
	return nil
}

// fakeProcessor appends a trailing newline the way prettier does.
type fakeProcessor struct {
	log         *callLog
	fileSystem  afero.Fs
	formatError error
}

func (processor *fakeProcessor) Format(_ context.Context, path string) error {
	processor.log.record("format %s", path)
	if processor.formatError != nil {
		return processor.formatError
	}
	absolutePath := filepath.Join(testDirectoryConstant, path)
	content, readError := afero.ReadFile(processor.fileSystem, absolutePath)
	if readError != nil {
		return readError
	}
	if len(content) > 0 && content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	return afero.WriteFile(processor.fileSystem, absolutePath, content, 0o644)
}

func (processor *fakeProcessor) Lint(_ context.Context, path string) error {
	processor.log.record("lint %s", path)
	return nil
}

type fakeInstaller struct {
	log *callLog
}

func (installer *fakeInstaller) InstallDependencies(context.Context) error {
	installer.log.record("install-dependencies")
	return nil
}

type serviceFixture struct {
	log        *callLog
	fileSystem afero.Fs
	codeHost   *fakeCodeHost
	repository *fakeRepository
	processor  *fakeProcessor
	logs       *observer.ObservedLogs
	service    *blogsync.Service
}

func newServiceFixture(testInstance *testing.T, installer bool) *serviceFixture {
	testInstance.Helper()

	log := &callLog{}
	fileSystem := afero.NewMemMapFs()
	core, observedLogs := observer.New(zapcore.DebugLevel)
	fixture := &serviceFixture{
		log:        log,
		fileSystem: fileSystem,
		codeHost:   &fakeCodeHost{log: log, deleteError: codehost.ErrReferenceNotFound, createdPullRequest: codehost.PullRequest{Number: 7}},
		repository: newFakeRepository(log, fileSystem),
		processor:  &fakeProcessor{log: log, fileSystem: fileSystem},
		logs:       observedLogs,
	}

	dependencies := blogsync.Dependencies{
		Logger:     zap.New(core),
		CodeHost:   fixture.codeHost,
		Repository: fixture.repository,
		Processor:  fixture.processor,
		FileSystem: fileSystem,
	}
	if installer {
		dependencies.Installer = &fakeInstaller{log: log}
	}
	service, creationError := blogsync.NewService(dependencies, blogsync.Options{
		FilePathTemplate: testTemplateConstant,
		RemoteURL:        testRemoteConstant,
		RemoteName:       "origin",
	})
	require.NoError(testInstance, creationError)
	fixture.service = service
	return fixture
}

func (fixture *serviceFixture) requireCalls(testInstance *testing.T, expected []string) {
	testInstance.Helper()
	if difference := cmp.Diff(expected, fixture.log.entries); difference != "" {
		testInstance.Fatalf("unexpected collaborator calls (-want +got):\n%s", difference)
	}
}

func (fixture *serviceFixture) postContent(testInstance *testing.T) string {
	testInstance.Helper()
	content, readError := afero.ReadFile(fixture.fileSystem, filepath.Join(testDirectoryConstant, testPostPathConstant))
	require.NoError(testInstance, readError)
	return string(content)
}

func TestServiceCreatesPullRequestForNewPost(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, true)

	result, runError := fixture.service.Run(context.Background(), acceptedEvent())
	require.NoError(testInstance, runError)

	require.Equal(testInstance, blogsync.Result{
		Outcome:           blogsync.OutcomeCreated,
		Reason:            "opened pull request #7",
		TargetPath:        testPostPathConstant,
		BranchName:        testBranchConstant,
		CommitMessage:     "Create posts/Hello World.md",
		PullRequestNumber: 7,
	}, result)

	fixture.requireCalls(testInstance, []string{
		"clone " + testRemoteConstant,
		"search repo:octo/blog is:pr author:app/github-actions is:open posts/Hello World.md",
		"list-branches",
		"delete-ref octo/blog heads/" + testBranchConstant,
		"create-branch " + testBranchConstant,
		"install-dependencies",
		"format " + testPostPathConstant,
		"lint " + testPostPathConstant,
		"add " + testPostPathConstant,
		"status",
		"commit Create posts/Hello World.md",
		"push origin " + testBranchConstant,
		"create-pr octo/blog main <- " + testBranchConstant + ": Create posts/Hello World.md by Blog@Issue",
		"comment octo/blog#3: Congrats!✨ A pull request: #7 has been created!",
	})
	require.Equal(testInstance, "# Hi\n", fixture.postContent(testInstance))
	require.Equal(testInstance, "Generated from #3.", fixture.codeHost.recordedPullRequest.Body)
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("post content changed").Len())
}

func TestServiceFallsBackToMasterBase(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	event := acceptedEvent()
	event.DefaultBranch = ""

	_, runError := fixture.service.Run(context.Background(), event)
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "master", fixture.codeHost.recordedPullRequest.BaseBranch)
}

func TestServiceIgnoresPullRequestForAnotherPost(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	fixture.codeHost.openPullRequests = []codehost.PullRequest{{
		Number:     9,
		Title:      "Create posts/Hello World again.md by Blog@Issue",
		HeadBranch: "blog-at-issue/posts/Hello%20World%20again.md",
	}}

	result, runError := fixture.service.Run(context.Background(), acceptedEvent())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, blogsync.OutcomeCreated, result.Outcome)
	require.Equal(testInstance, 7, result.PullRequestNumber)

	fixture.requireCalls(testInstance, []string{
		"clone " + testRemoteConstant,
		"search repo:octo/blog is:pr author:app/github-actions is:open posts/Hello World.md",
		"list-branches",
		"delete-ref octo/blog heads/" + testBranchConstant,
		"create-branch " + testBranchConstant,
		"format " + testPostPathConstant,
		"lint " + testPostPathConstant,
		"add " + testPostPathConstant,
		"status",
		"commit Create posts/Hello World.md",
		"push origin " + testBranchConstant,
		"create-pr octo/blog main <- " + testBranchConstant + ": Create posts/Hello World.md by Blog@Issue",
		"comment octo/blog#3: Congrats!✨ A pull request: #7 has been created!",
	})
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("search hit targets another branch, ignored").Len())
}

func TestServiceKeepsBranchOfSimilarlyNamedPost(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	fixture.repository.branches = append(fixture.repository.branches, testBranchConstant)

	event := acceptedEvent()
	event.Title = "Hello-World"

	result, runError := fixture.service.Run(context.Background(), event)
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "blog-at-issue/posts/Hello-World.md", result.BranchName)

	require.Contains(testInstance, fixture.repository.branches, testBranchConstant)
	require.NotContains(testInstance, fixture.log.entries, "delete-branch "+testBranchConstant)
	require.NotContains(testInstance, fixture.log.entries, "delete-ref octo/blog heads/"+testBranchConstant)
	require.Contains(testInstance, fixture.log.entries, "delete-ref octo/blog heads/blog-at-issue/posts/Hello-World.md")
}

func TestServiceSkipsUnchangedPostOnOpenPullRequest(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	fixture.codeHost.openPullRequests = []codehost.PullRequest{{Number: 7, HeadBranch: testBranchConstant}}
	fixture.repository.seedCommitted(testPostPathConstant, "# Hi\n")

	event := acceptedEvent()
	event.Action = blogsync.IssueActionEdited

	result, runError := fixture.service.Run(context.Background(), event)
	require.NoError(testInstance, runError)
	require.Equal(testInstance, blogsync.OutcomeUnchanged, result.Outcome)
	require.Equal(testInstance, 7, result.PullRequestNumber)
	require.Empty(testInstance, result.CommitMessage)

	fixture.requireCalls(testInstance, []string{
		"clone " + testRemoteConstant,
		"search repo:octo/blog is:pr author:app/github-actions is:open posts/Hello World.md",
		"checkout-remote origin " + testBranchConstant,
		"format " + testPostPathConstant,
		"lint " + testPostPathConstant,
		"add " + testPostPathConstant,
		"status",
	})
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("post unchanged, nothing to publish").Len())
}

func TestServiceUpdatesOpenPullRequest(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	fixture.codeHost.openPullRequests = []codehost.PullRequest{{Number: 7, HeadBranch: testBranchConstant}}
	fixture.repository.seedCommitted(testPostPathConstant, "# Hi\n")

	event := acceptedEvent()
	event.Action = blogsync.IssueActionEdited
	event.Body = stringPointer("# Hi\n\nMore words")

	result, runError := fixture.service.Run(context.Background(), event)
	require.NoError(testInstance, runError)
	require.Equal(testInstance, blogsync.OutcomeUpdated, result.Outcome)
	require.Equal(testInstance, "Update posts/Hello World.md", result.CommitMessage)
	require.Equal(testInstance, 7, result.PullRequestNumber)

	require.Equal(testInstance, []string{
		"commit Update posts/Hello World.md",
		"push origin " + testBranchConstant,
	}, fixture.log.entries[len(fixture.log.entries)-2:])
	for _, entry := range fixture.log.entries {
		require.NotContains(testInstance, entry, "create-pr")
		require.NotContains(testInstance, entry, "comment")
		require.NotContains(testInstance, entry, "delete-ref")
	}

	diffEntries := fixture.logs.FilterMessage("post content changed").All()
	require.Len(testInstance, diffEntries, 1)
	require.Equal(testInstance, int64(2), diffEntries[0].ContextMap()["inserted_lines"])
}

func TestServiceIsIdempotentAcrossRuns(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)

	firstResult, firstError := fixture.service.Run(context.Background(), acceptedEvent())
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, blogsync.OutcomeCreated, firstResult.Outcome)

	fixture.codeHost.openPullRequests = []codehost.PullRequest{{Number: firstResult.PullRequestNumber, HeadBranch: testBranchConstant}}
	fixture.log.entries = nil

	secondEvent := acceptedEvent()
	secondEvent.Action = blogsync.IssueActionEdited
	secondResult, secondError := fixture.service.Run(context.Background(), secondEvent)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, blogsync.OutcomeUnchanged, secondResult.Outcome)
	require.NotContains(testInstance, fixture.log.entries, "commit Create posts/Hello World.md")
	require.NotContains(testInstance, fixture.log.entries, "push origin "+testBranchConstant)
}

func TestServiceDeletesStaleBranchesWithoutOpenPullRequest(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	fixture.repository.branches = []string{"main", testBranchConstant}
	fixture.codeHost.deleteError = nil

	_, runError := fixture.service.Run(context.Background(), acceptedEvent())
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{
		"clone " + testRemoteConstant,
		"search repo:octo/blog is:pr author:app/github-actions is:open posts/Hello World.md",
		"list-branches",
		"delete-branch " + testBranchConstant,
		"delete-ref octo/blog heads/" + testBranchConstant,
		"create-branch " + testBranchConstant,
	}, fixture.log.entries[:6])
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("stale local branch deleted").Len())
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("stale remote branch deleted").Len())
}

func TestServiceSurfacesRemoteDeletionFailure(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	deletionFailure := errors.New("HTTP 403: Resource not accessible by integration")
	fixture.codeHost.deleteError = deletionFailure

	_, runError := fixture.service.Run(context.Background(), acceptedEvent())
	require.ErrorIs(testInstance, runError, deletionFailure)
	require.NotContains(testInstance, fixture.log.entries, "create-branch "+testBranchConstant)
}

func TestServiceAbortsOnProcessorFailure(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	formatFailure := errors.New("prettier exited with code 2")
	fixture.processor.formatError = formatFailure

	_, runError := fixture.service.Run(context.Background(), acceptedEvent())
	require.ErrorIs(testInstance, runError, formatFailure)
	require.Equal(testInstance, "format "+testPostPathConstant, fixture.log.entries[len(fixture.log.entries)-1])
}

func TestServiceRejectedEventsHaveNoSideEffects(testInstance *testing.T) {
	testCases := []struct {
		name           string
		mutate         func(event *blogsync.Event)
		expectedReason string
	}{
		{name: "label mismatch", mutate: func(event *blogsync.Event) { event.Labels = []string{"bug"} }, expectedReason: "issue has no trigger label"},
		{name: "locked", mutate: func(event *blogsync.Event) { event.Locked = true }, expectedReason: "issue is locked"},
		{name: "deleted action", mutate: func(event *blogsync.Event) { event.Action = "deleted" }, expectedReason: "unsupported issue action"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newServiceFixture(subTest, true)
			event := acceptedEvent()
			testCase.mutate(&event)

			result, runError := fixture.service.Run(context.Background(), event)
			require.NoError(subTest, runError)
			require.Equal(subTest, blogsync.Result{Outcome: blogsync.OutcomeSkipped, Reason: testCase.expectedReason}, result)
			require.Empty(subTest, fixture.log.entries)

			skipped := fixture.logs.FilterMessage("event skipped").All()
			require.Len(subTest, skipped, 1)
			require.Equal(subTest, zapcore.InfoLevel, skipped[0].Level)
			require.Equal(subTest, testCase.expectedReason, skipped[0].ContextMap()["reason"])
		})
	}
}

func TestServiceRejectsInvalidTarget(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, false)
	event := acceptedEvent()
	event.Title = "../../outside"

	_, runError := fixture.service.Run(context.Background(), event)
	require.ErrorIs(testInstance, runError, blogsync.ErrEscapingTarget)
	require.Empty(testInstance, fixture.log.entries)
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	log := &callLog{}
	fileSystem := afero.NewMemMapFs()
	complete := blogsync.Dependencies{
		CodeHost:   &fakeCodeHost{log: log},
		Repository: newFakeRepository(log, fileSystem),
		Processor:  &fakeProcessor{log: log, fileSystem: fileSystem},
	}
	validOptions := blogsync.Options{FilePathTemplate: testTemplateConstant, RemoteURL: testRemoteConstant}

	testCases := []struct {
		name          string
		mutate        func(dependencies *blogsync.Dependencies, options *blogsync.Options)
		expectedError error
	}{
		{name: "code host", mutate: func(dependencies *blogsync.Dependencies, _ *blogsync.Options) { dependencies.CodeHost = nil }, expectedError: blogsync.ErrCodeHostNotConfigured},
		{name: "repository", mutate: func(dependencies *blogsync.Dependencies, _ *blogsync.Options) { dependencies.Repository = nil }, expectedError: blogsync.ErrRepositoryNotConfigured},
		{name: "processor", mutate: func(dependencies *blogsync.Dependencies, _ *blogsync.Options) { dependencies.Processor = nil }, expectedError: blogsync.ErrProcessorNotConfigured},
		{name: "template", mutate: func(_ *blogsync.Dependencies, options *blogsync.Options) { options.FilePathTemplate = "" }, expectedError: blogsync.ErrFilePathTemplateRequired},
		{name: "remote", mutate: func(_ *blogsync.Dependencies, options *blogsync.Options) { options.RemoteURL = " " }, expectedError: blogsync.ErrRemoteURLRequired},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			dependencies := complete
			options := validOptions
			testCase.mutate(&dependencies, &options)
			_, creationError := blogsync.NewService(dependencies, options)
			require.ErrorIs(subTest, creationError, testCase.expectedError)
		})
	}
}
