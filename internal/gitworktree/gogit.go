package gitworktree

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/temirov/blogatissue/internal/gitrepo"
)

const (
	pushRefSpecTemplateConstant           = "refs/heads/%s:refs/heads/%s"
	goGitOpenErrorTemplateConstant        = "open repository %s: %w"
	goGitWorktreeErrorTemplateConstant    = "open worktree %s: %w"
	goGitOperationErrorTemplateConstant   = "%s %s: %w"
	goGitCloneOperationConstant           = "clone"
	goGitListBranchesOperationConstant    = "list branches"
	goGitDeleteBranchOperationConstant    = "delete branch"
	goGitCreateBranchOperationConstant    = "create branch"
	goGitFetchOperationConstant           = "fetch"
	goGitCheckoutOperationConstant        = "checkout"
	goGitAddOperationConstant             = "add"
	goGitStatusOperationConstant          = "status"
	goGitCommitOperationConstant          = "commit"
	goGitPushOperationConstant            = "push"
	logFieldDirectoryConstant             = "directory"
	logFieldRemoteConstant                = "remote"
	logFieldBranchConstant                = "branch"
	logFieldPathConstant                  = "path"
	logFieldCommitConstant                = "commit"
	cloneReusedMessageConstant            = "reusing existing clone"
	clonedMessageConstant                 = "cloned repository"
	branchDeletedMessageConstant          = "deleted local branch"
	branchCreatedMessageConstant          = "created branch"
	remoteBranchCheckedOutMessageConstant = "checked out remote branch"
	pathStagedMessageConstant             = "staged path"
	committedMessageConstant              = "created commit"
	pushedMessageConstant                 = "pushed branch"
	alreadyUpToDateMessageConstant        = "remote already up to date"
)

// GoGitRepository performs git operations in-process with go-git.
type GoGitRepository struct {
	logger     *zap.Logger
	options    Options
	repository *git.Repository
	now        func() time.Time
}

var _ Repository = (*GoGitRepository)(nil)

// NewGoGitRepository constructs a GoGitRepository rooted at options.Directory.
func NewGoGitRepository(logger *zap.Logger, options Options) (*GoGitRepository, error) {
	if len(strings.TrimSpace(options.Directory)) == 0 {
		return nil, ErrDirectoryNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	options.Author = normalizeAuthor(options.Author)
	return &GoGitRepository{logger: logger, options: options, now: time.Now}, nil
}

// Directory returns the working tree root.
func (repository *GoGitRepository) Directory() string {
	return repository.options.Directory
}

// Clone clones the remote with HTTP basic auth, or opens an existing clone.
func (repository *GoGitRepository) Clone(executionContext context.Context, remoteURL string) error {
	if opened, openError := git.PlainOpen(repository.options.Directory); openError == nil {
		repository.repository = opened
		repository.logger.Info(cloneReusedMessageConstant, zap.String(logFieldDirectoryConstant, repository.options.Directory))
		return nil
	}

	cloneURL := gitrepo.Redact(strings.TrimSpace(remoteURL))
	cloned, cloneError := git.PlainCloneContext(executionContext, repository.options.Directory, false, &git.CloneOptions{
		URL:        strings.TrimSpace(remoteURL),
		RemoteName: DefaultRemoteName,
		Auth:       repository.auth(),
	})
	if cloneError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCloneOperationConstant, cloneURL, cloneError)
	}

	repository.repository = cloned
	repository.logger.Info(clonedMessageConstant,
		zap.String(logFieldRemoteConstant, cloneURL),
		zap.String(logFieldDirectoryConstant, repository.options.Directory),
	)
	return nil
}

// ListBranches returns local branch short names in sorted order.
func (repository *GoGitRepository) ListBranches(executionContext context.Context) ([]string, error) {
	opened, openError := repository.open()
	if openError != nil {
		return nil, openError
	}

	iterator, branchesError := opened.Branches()
	if branchesError != nil {
		return nil, fmt.Errorf(goGitOperationErrorTemplateConstant, goGitListBranchesOperationConstant, repository.options.Directory, branchesError)
	}
	defer iterator.Close()

	branches := make([]string, 0)
	iterationError := iterator.ForEach(func(reference *plumbing.Reference) error {
		branches = append(branches, reference.Name().Short())
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(goGitOperationErrorTemplateConstant, goGitListBranchesOperationConstant, repository.options.Directory, iterationError)
	}
	sort.Strings(branches)
	return branches, nil
}

// DeleteBranch removes the branch reference and its configuration section.
func (repository *GoGitRepository) DeleteBranch(executionContext context.Context, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	opened, openError := repository.open()
	if openError != nil {
		return openError
	}

	if removeError := opened.Storer.RemoveReference(plumbing.NewBranchReferenceName(trimmedBranch)); removeError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitDeleteBranchOperationConstant, trimmedBranch, removeError)
	}
	if configurationError := opened.DeleteBranch(trimmedBranch); configurationError != nil && !errors.Is(configurationError, git.ErrBranchNotFound) {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitDeleteBranchOperationConstant, trimmedBranch, configurationError)
	}

	repository.logger.Info(branchDeletedMessageConstant, zap.String(logFieldBranchConstant, trimmedBranch))
	return nil
}

// CreateBranch creates the branch at HEAD and checks it out.
func (repository *GoGitRepository) CreateBranch(executionContext context.Context, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	worktree, worktreeError := repository.worktree()
	if worktreeError != nil {
		return worktreeError
	}

	checkoutError := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(trimmedBranch),
		Create: true,
	})
	if checkoutError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCreateBranchOperationConstant, trimmedBranch, checkoutError)
	}

	repository.logger.Info(branchCreatedMessageConstant, zap.String(logFieldBranchConstant, trimmedBranch))
	return nil
}

// CheckoutRemoteBranch fetches the branch and points a tracking local branch at the fetched commit.
func (repository *GoGitRepository) CheckoutRemoteBranch(executionContext context.Context, remoteName string, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	remote := remoteOrDefault(remoteName)
	opened, openError := repository.open()
	if openError != nil {
		return openError
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf(fetchRefSpecTemplateConstant, trimmedBranch, remote, trimmedBranch))
	fetchError := opened.FetchContext(executionContext, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       repository.auth(),
	})
	if fetchError != nil && !errors.Is(fetchError, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitFetchOperationConstant, trimmedBranch, fetchError)
	}

	remoteReference, referenceError := opened.Reference(plumbing.NewRemoteReferenceName(remote, trimmedBranch), true)
	if referenceError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitFetchOperationConstant, trimmedBranch, referenceError)
	}

	branchReferenceName := plumbing.NewBranchReferenceName(trimmedBranch)
	if setError := opened.Storer.SetReference(plumbing.NewHashReference(branchReferenceName, remoteReference.Hash())); setError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCheckoutOperationConstant, trimmedBranch, setError)
	}

	trackingError := opened.CreateBranch(&gitconfig.Branch{Name: trimmedBranch, Remote: remote, Merge: branchReferenceName})
	if trackingError != nil && !errors.Is(trackingError, git.ErrBranchExists) {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCheckoutOperationConstant, trimmedBranch, trackingError)
	}

	worktree, worktreeError := repository.worktree()
	if worktreeError != nil {
		return worktreeError
	}
	if checkoutError := worktree.Checkout(&git.CheckoutOptions{Branch: branchReferenceName, Force: true}); checkoutError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCheckoutOperationConstant, trimmedBranch, checkoutError)
	}

	repository.logger.Info(remoteBranchCheckedOutMessageConstant,
		zap.String(logFieldRemoteConstant, remote),
		zap.String(logFieldBranchConstant, trimmedBranch),
		zap.String(logFieldCommitConstant, remoteReference.Hash().String()),
	)
	return nil
}

// Add stages a path relative to the working tree root.
func (repository *GoGitRepository) Add(executionContext context.Context, relativePath string) error {
	trimmedPath := strings.TrimSpace(relativePath)
	if len(trimmedPath) == 0 {
		return ErrPathRequired
	}
	worktree, worktreeError := repository.worktree()
	if worktreeError != nil {
		return worktreeError
	}
	if _, addError := worktree.Add(filepath.ToSlash(trimmedPath)); addError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitAddOperationConstant, trimmedPath, addError)
	}
	repository.logger.Debug(pathStagedMessageConstant, zap.String(logFieldPathConstant, trimmedPath))
	return nil
}

// Status reports the staged state of every changed path, sorted by path.
func (repository *GoGitRepository) Status(executionContext context.Context) ([]FileStatus, error) {
	worktree, worktreeError := repository.worktree()
	if worktreeError != nil {
		return nil, worktreeError
	}
	status, statusError := worktree.Status()
	if statusError != nil {
		return nil, fmt.Errorf(goGitOperationErrorTemplateConstant, goGitStatusOperationConstant, repository.options.Directory, statusError)
	}

	statuses := make([]FileStatus, 0, len(status))
	for path, fileStatus := range status {
		statuses = append(statuses, FileStatus{Path: path, Staged: goGitState(fileStatus.Staging, fileStatus.Worktree)})
	}
	sort.Slice(statuses, func(left int, right int) bool {
		return statuses[left].Path < statuses[right].Path
	})
	return statuses, nil
}

// Commit records staged changes with the configured author.
func (repository *GoGitRepository) Commit(executionContext context.Context, message string) error {
	if len(strings.TrimSpace(message)) == 0 {
		return ErrCommitMessageRequired
	}
	worktree, worktreeError := repository.worktree()
	if worktreeError != nil {
		return worktreeError
	}

	commitHash, commitError := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  repository.options.Author.Name,
			Email: repository.options.Author.Email,
			When:  repository.now(),
		},
	})
	if commitError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitCommitOperationConstant, repository.options.Directory, commitError)
	}

	repository.logger.Info(committedMessageConstant, zap.String(logFieldCommitConstant, commitHash.String()))
	return nil
}

// Push pushes refs/heads/<branch> to the remote.
func (repository *GoGitRepository) Push(executionContext context.Context, remoteName string, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	remote := remoteOrDefault(remoteName)
	opened, openError := repository.open()
	if openError != nil {
		return openError
	}

	pushError := opened.PushContext(executionContext, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf(pushRefSpecTemplateConstant, trimmedBranch, trimmedBranch))},
		Auth:       repository.auth(),
	})
	if errors.Is(pushError, git.NoErrAlreadyUpToDate) {
		repository.logger.Info(alreadyUpToDateMessageConstant, zap.String(logFieldBranchConstant, trimmedBranch))
		return nil
	}
	if pushError != nil {
		return fmt.Errorf(goGitOperationErrorTemplateConstant, goGitPushOperationConstant, trimmedBranch, pushError)
	}

	repository.logger.Info(pushedMessageConstant,
		zap.String(logFieldRemoteConstant, remote),
		zap.String(logFieldBranchConstant, trimmedBranch),
	)
	return nil
}

func (repository *GoGitRepository) open() (*git.Repository, error) {
	if repository.repository != nil {
		return repository.repository, nil
	}
	opened, openError := git.PlainOpen(repository.options.Directory)
	if openError != nil {
		return nil, fmt.Errorf(goGitOpenErrorTemplateConstant, repository.options.Directory, openError)
	}
	repository.repository = opened
	return opened, nil
}

func (repository *GoGitRepository) worktree() (*git.Worktree, error) {
	opened, openError := repository.open()
	if openError != nil {
		return nil, openError
	}
	worktree, worktreeError := opened.Worktree()
	if worktreeError != nil {
		return nil, fmt.Errorf(goGitWorktreeErrorTemplateConstant, repository.options.Directory, worktreeError)
	}
	return worktree, nil
}

func (repository *GoGitRepository) auth() transport.AuthMethod {
	token := strings.TrimSpace(repository.options.Credentials.Token)
	if len(token) == 0 {
		return nil
	}
	username := strings.TrimSpace(repository.options.Credentials.Username)
	if len(username) == 0 {
		username = "x-access-token"
	}
	return &githttp.BasicAuth{Username: username, Password: token}
}

func goGitState(stagingCode git.StatusCode, worktreeCode git.StatusCode) FileState {
	if stagingCode == git.Untracked && worktreeCode == git.Untracked {
		return FileStateUntracked
	}
	switch stagingCode {
	case git.Added:
		return FileStateAdded
	case git.Modified:
		return FileStateModified
	case git.Deleted:
		return FileStateDeleted
	case git.Renamed:
		return FileStateRenamed
	case git.Copied:
		return FileStateCopied
	default:
		return FileStateUnmodified
	}
}
