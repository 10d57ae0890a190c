package gitworktree

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/blogatissue/internal/execshell"
	"github.com/temirov/blogatissue/internal/gitrepo"
)

const (
	gitCloneSubcommandConstant         = "clone"
	gitBranchSubcommandConstant        = "branch"
	gitCheckoutSubcommandConstant      = "checkout"
	gitFetchSubcommandConstant         = "fetch"
	gitAddSubcommandConstant           = "add"
	gitStatusSubcommandConstant        = "status"
	gitCommitSubcommandConstant        = "commit"
	gitPushSubcommandConstant          = "push"
	gitConfigurationFlagConstant       = "-c"
	gitListFlagConstant                = "--list"
	gitShortFormatFlagConstant         = "--format=%(refname:short)"
	gitForceDeleteFlagConstant         = "-D"
	gitCreateBranchFlagConstant        = "-b"
	gitResetBranchFlagConstant         = "-B"
	gitTrackFlagConstant               = "--track"
	gitPorcelainFlagConstant           = "--porcelain"
	gitMessageFlagConstant             = "-m"
	gitPathSeparatorArgumentConstant   = "--"
	gitUserNameTemplateConstant        = "user.name=%s"
	gitUserEmailTemplateConstant       = "user.email=%s"
	fetchRefSpecTemplateConstant       = "+refs/heads/%s:refs/remotes/%s/%s"
	remoteBranchTemplateConstant       = "%s/%s"
	gitTerminalPromptVariableConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant  = "0"
	gitMetadataDirectoryNameConstant   = ".git"
	porcelainMinimumLineLengthConstant = 4
	porcelainRenameSeparatorConstant   = " -> "
	cloneDirectoryPermissionsConstant  = 0o755
	cloneErrorTemplateConstant         = "clone %s: %w"
	prepareCloneErrorTemplateConstant  = "prepare clone directory %s: %w"
	credentialsErrorTemplateConstant   = "build clone url: %w"
)

// GitExecutor is the subset of execshell.ShellExecutor used by ShellRepository.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ShellRepository runs the git executable for every operation.
type ShellRepository struct {
	executor GitExecutor
	options  Options
}

var _ Repository = (*ShellRepository)(nil)

// NewShellRepository constructs a ShellRepository rooted at options.Directory.
func NewShellRepository(executor GitExecutor, options Options) (*ShellRepository, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if len(strings.TrimSpace(options.Directory)) == 0 {
		return nil, ErrDirectoryNotConfigured
	}
	options.Author = normalizeAuthor(options.Author)
	return &ShellRepository{executor: executor, options: options}, nil
}

// Directory returns the working tree root.
func (repository *ShellRepository) Directory() string {
	return repository.options.Directory
}

// Clone runs git clone with credentials embedded in the remote URL.
func (repository *ShellRepository) Clone(executionContext context.Context, remoteURL string) error {
	if isGitWorkingTree(repository.options.Directory) {
		return nil
	}

	cloneURL, urlError := authenticatedURL(remoteURL, repository.options.Credentials)
	if urlError != nil {
		return fmt.Errorf(credentialsErrorTemplateConstant, urlError)
	}

	parentDirectory := filepath.Dir(repository.options.Directory)
	if mkdirError := os.MkdirAll(parentDirectory, cloneDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(prepareCloneErrorTemplateConstant, parentDirectory, mkdirError)
	}

	_, cloneError := repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, cloneURL, repository.options.Directory},
		WorkingDirectory:     parentDirectory,
		EnvironmentVariables: gitEnvironment(),
	})
	if cloneError != nil {
		return fmt.Errorf(cloneErrorTemplateConstant, gitrepo.Redact(remoteURL), cloneError)
	}
	return nil
}

// ListBranches returns the short names of local branches.
func (repository *ShellRepository) ListBranches(executionContext context.Context) ([]string, error) {
	result, listError := repository.executeGit(executionContext, gitBranchSubcommandConstant, gitListFlagConstant, gitShortFormatFlagConstant)
	if listError != nil {
		return nil, listError
	}

	branches := make([]string, 0)
	scanner := bufio.NewScanner(strings.NewReader(result.StandardOutput))
	for scanner.Scan() {
		branchName := strings.TrimSpace(scanner.Text())
		if len(branchName) == 0 {
			continue
		}
		branches = append(branches, branchName)
	}
	return branches, nil
}

// DeleteBranch force-deletes a local branch.
func (repository *ShellRepository) DeleteBranch(executionContext context.Context, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	_, deleteError := repository.executeGit(executionContext, gitBranchSubcommandConstant, gitForceDeleteFlagConstant, trimmedBranch)
	return deleteError
}

// CreateBranch runs checkout -b.
func (repository *ShellRepository) CreateBranch(executionContext context.Context, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	_, checkoutError := repository.executeGit(executionContext, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, trimmedBranch)
	return checkoutError
}

// CheckoutRemoteBranch fetches the branch into its remote-tracking ref and resets the local branch onto it.
func (repository *ShellRepository) CheckoutRemoteBranch(executionContext context.Context, remoteName string, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	remote := remoteOrDefault(remoteName)

	refSpec := fmt.Sprintf(fetchRefSpecTemplateConstant, trimmedBranch, remote, trimmedBranch)
	if _, fetchError := repository.executeGit(executionContext, gitFetchSubcommandConstant, remote, refSpec); fetchError != nil {
		return fetchError
	}

	remoteBranch := fmt.Sprintf(remoteBranchTemplateConstant, remote, trimmedBranch)
	_, checkoutError := repository.executeGit(executionContext, gitCheckoutSubcommandConstant, gitResetBranchFlagConstant, trimmedBranch, gitTrackFlagConstant, remoteBranch)
	return checkoutError
}

// Add stages a path relative to the working tree root.
func (repository *ShellRepository) Add(executionContext context.Context, relativePath string) error {
	trimmedPath := strings.TrimSpace(relativePath)
	if len(trimmedPath) == 0 {
		return ErrPathRequired
	}
	_, addError := repository.executeGit(executionContext, gitAddSubcommandConstant, gitPathSeparatorArgumentConstant, trimmedPath)
	return addError
}

// Status parses `git status --porcelain` into staged states.
func (repository *ShellRepository) Status(executionContext context.Context) ([]FileStatus, error) {
	result, statusError := repository.executeGit(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if statusError != nil {
		return nil, statusError
	}
	return parsePorcelainStatus(result.StandardOutput), nil
}

// Commit records staged changes with the configured author.
func (repository *ShellRepository) Commit(executionContext context.Context, message string) error {
	if len(strings.TrimSpace(message)) == 0 {
		return ErrCommitMessageRequired
	}
	_, commitError := repository.executeGit(executionContext,
		gitConfigurationFlagConstant, fmt.Sprintf(gitUserNameTemplateConstant, repository.options.Author.Name),
		gitConfigurationFlagConstant, fmt.Sprintf(gitUserEmailTemplateConstant, repository.options.Author.Email),
		gitCommitSubcommandConstant, gitMessageFlagConstant, message,
	)
	return commitError
}

// Push pushes the branch to the remote.
func (repository *ShellRepository) Push(executionContext context.Context, remoteName string, branchName string) error {
	trimmedBranch, validationError := requireBranchName(branchName)
	if validationError != nil {
		return validationError
	}
	_, pushError := repository.executeGit(executionContext, gitPushSubcommandConstant, remoteOrDefault(remoteName), trimmedBranch)
	return pushError
}

func (repository *ShellRepository) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repository.options.Directory,
		EnvironmentVariables: gitEnvironment(),
	})
}

func gitEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant}
}

func isGitWorkingTree(directory string) bool {
	_, statError := os.Stat(filepath.Join(directory, gitMetadataDirectoryNameConstant))
	return statError == nil
}

func parsePorcelainStatus(output string) []FileStatus {
	statuses := make([]FileStatus, 0)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < porcelainMinimumLineLengthConstant {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if separatorIndex := strings.Index(path, porcelainRenameSeparatorConstant); separatorIndex >= 0 {
			path = path[separatorIndex+len(porcelainRenameSeparatorConstant):]
		}
		statuses = append(statuses, FileStatus{Path: strings.Trim(path, `"`), Staged: porcelainState(line[0], line[1])})
	}
	return statuses
}

func porcelainState(indexCode byte, worktreeCode byte) FileState {
	if indexCode == '?' && worktreeCode == '?' {
		return FileStateUntracked
	}
	switch indexCode {
	case 'A':
		return FileStateAdded
	case 'M':
		return FileStateModified
	case 'D':
		return FileStateDeleted
	case 'R':
		return FileStateRenamed
	case 'C':
		return FileStateCopied
	default:
		return FileStateUnmodified
	}
}
