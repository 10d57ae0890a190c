package gitworktree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/blogatissue/internal/gitrepo"
)

const (
	// DefaultRemoteName names the remote created by Clone.
	DefaultRemoteName = "origin"
	// DefaultAuthorName is the identity GitHub uses for commits made with the Actions token.
	DefaultAuthorName = "github-actions[bot]"
	// DefaultAuthorEmail pairs with DefaultAuthorName.
	DefaultAuthorEmail = "41898282+github-actions[bot]@users.noreply.github.com"

	directoryNotConfiguredMessageConstant = "repository directory not configured"
	executorNotConfiguredMessageConstant  = "git executor not configured"
	branchNameRequiredMessageConstant     = "branch name required"
	pathRequiredMessageConstant           = "path required"
	commitMessageRequiredMessageConstant  = "commit message required"
	unsupportedBackendTemplateConstant    = "unsupported version control backend %q"
)

var (
	// ErrDirectoryNotConfigured indicates a repository was constructed without a directory.
	ErrDirectoryNotConfigured = errors.New(directoryNotConfiguredMessageConstant)
	// ErrExecutorNotConfigured indicates a shell repository was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrBranchNameRequired indicates an empty branch name.
	ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)
	// ErrPathRequired indicates an empty path.
	ErrPathRequired = errors.New(pathRequiredMessageConstant)
	// ErrCommitMessageRequired indicates an empty commit message.
	ErrCommitMessageRequired = errors.New(commitMessageRequiredMessageConstant)
)

// BackendName selects a Repository implementation.
type BackendName string

// Supported backends.
const (
	BackendShell BackendName = BackendName("shell")
	BackendGoGit BackendName = BackendName("go-git")
)

// ParseBackendName validates a configured backend name.
func ParseBackendName(value string) (BackendName, error) {
	switch BackendName(strings.ToLower(strings.TrimSpace(value))) {
	case BackendShell, "":
		return BackendShell, nil
	case BackendGoGit, "gogit":
		return BackendGoGit, nil
	default:
		return "", fmt.Errorf(unsupportedBackendTemplateConstant, value)
	}
}

// Signature is the commit author identity.
type Signature struct {
	Name  string
	Email string
}

// Options configure a Repository.
type Options struct {
	Directory   string
	Author      Signature
	Credentials gitrepo.Credentials
}

// FileState describes the staged state of a path.
type FileState string

// Staged states reported by Status.
const (
	FileStateUnmodified FileState = FileState("unmodified")
	FileStateAdded      FileState = FileState("added")
	FileStateModified   FileState = FileState("modified")
	FileStateDeleted    FileState = FileState("deleted")
	FileStateRenamed    FileState = FileState("renamed")
	FileStateCopied     FileState = FileState("copied")
	FileStateUntracked  FileState = FileState("untracked")
)

// FileStatus pairs a path with its staged state.
type FileStatus struct {
	Path   string
	Staged FileState
}

// HasStagedContentChange reports whether any entry is a staged modification or addition.
func HasStagedContentChange(statuses []FileStatus) bool {
	for _, status := range statuses {
		if status.Staged == FileStateModified || status.Staged == FileStateAdded {
			return true
		}
	}
	return false
}

// Repository is the working tree mutated by a sync run.
type Repository interface {
	Directory() string
	// Clone clones remoteURL into Directory; an existing clone in Directory is reused.
	// Credentials from Options authenticate HTTP(S) remotes.
	Clone(executionContext context.Context, remoteURL string) error
	ListBranches(executionContext context.Context) ([]string, error)
	DeleteBranch(executionContext context.Context, branchName string) error
	// CreateBranch creates branchName at HEAD and checks it out.
	CreateBranch(executionContext context.Context, branchName string) error
	// CheckoutRemoteBranch fetches branchName from remoteName and checks it out at the fetched commit.
	CheckoutRemoteBranch(executionContext context.Context, remoteName string, branchName string) error
	Add(executionContext context.Context, relativePath string) error
	Status(executionContext context.Context) ([]FileStatus, error)
	Commit(executionContext context.Context, message string) error
	Push(executionContext context.Context, remoteName string, branchName string) error
}

func normalizeAuthor(author Signature) Signature {
	if len(strings.TrimSpace(author.Name)) == 0 {
		author.Name = DefaultAuthorName
	}
	if len(strings.TrimSpace(author.Email)) == 0 {
		author.Email = DefaultAuthorEmail
	}
	return author
}

// authenticatedURL embeds credentials into HTTP(S) remote URLs and returns other URLs unchanged.
func authenticatedURL(remoteURL string, credentials gitrepo.Credentials) (string, error) {
	trimmedURL := strings.TrimSpace(remoteURL)
	if len(strings.TrimSpace(credentials.Token)) == 0 || !strings.HasPrefix(trimmedURL, "http") {
		return trimmedURL, nil
	}
	remote, parseError := gitrepo.ParseRemoteURL(trimmedURL)
	if parseError != nil {
		return "", parseError
	}
	return gitrepo.FormatAuthenticatedRemoteURL(remote, credentials)
}

func requireBranchName(branchName string) (string, error) {
	trimmed := strings.TrimSpace(branchName)
	if len(trimmed) == 0 {
		return "", ErrBranchNameRequired
	}
	return trimmed, nil
}

func remoteOrDefault(remoteName string) string {
	trimmed := strings.TrimSpace(remoteName)
	if len(trimmed) == 0 {
		return DefaultRemoteName
	}
	return trimmed
}
