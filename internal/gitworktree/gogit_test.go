package gitworktree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/blogatissue/internal/gitworktree"
)

const testSyncBranchConstant = "blog-at-issue/hello-world.md"

func initOriginRepository(testInstance *testing.T) string {
	testInstance.Helper()

	directory := testInstance.TempDir()
	repository, initError := git.PlainInit(directory, false)
	require.NoError(testInstance, initError)

	worktree, worktreeError := repository.Worktree()
	require.NoError(testInstance, worktreeError)

	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, "README.md"), []byte("# blog\n"), 0o644))
	_, addError := worktree.Add("README.md")
	require.NoError(testInstance, addError)

	_, commitError := worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(testInstance, commitError)
	return directory
}

func cloneRepository(testInstance *testing.T, originDirectory string) *gitworktree.GoGitRepository {
	testInstance.Helper()
	repository, creationError := gitworktree.NewGoGitRepository(zap.NewNop(), gitworktree.Options{
		Directory: filepath.Join(testInstance.TempDir(), "blog"),
	})
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, repository.Clone(context.Background(), originDirectory))
	return repository
}

func TestGoGitRepositoryPublishesNewBranch(testInstance *testing.T) {
	executionContext := context.Background()
	originDirectory := initOriginRepository(testInstance)
	repository := cloneRepository(testInstance, originDirectory)

	branches, listError := repository.ListBranches(executionContext)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"master"}, branches)

	require.NoError(testInstance, repository.CreateBranch(executionContext, testSyncBranchConstant))

	postPath := filepath.Join(repository.Directory(), "posts", "hello-world.md")
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(postPath), 0o755))
	require.NoError(testInstance, os.WriteFile(postPath, []byte("# Hi\n"), 0o644))
	require.NoError(testInstance, repository.Add(executionContext, "posts/hello-world.md"))

	statuses, statusError := repository.Status(executionContext)
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, []gitworktree.FileStatus{{Path: "posts/hello-world.md", Staged: gitworktree.FileStateAdded}}, statuses)

	require.NoError(testInstance, repository.Commit(executionContext, "Create hello-world.md"))
	require.NoError(testInstance, repository.Push(executionContext, gitworktree.DefaultRemoteName, testSyncBranchConstant))

	origin, openError := git.PlainOpen(originDirectory)
	require.NoError(testInstance, openError)
	pushedReference, referenceError := origin.Reference(plumbing.NewBranchReferenceName(testSyncBranchConstant), true)
	require.NoError(testInstance, referenceError)

	pushedCommit, commitError := origin.CommitObject(pushedReference.Hash())
	require.NoError(testInstance, commitError)
	require.Equal(testInstance, "Create hello-world.md", pushedCommit.Message)
	require.Equal(testInstance, gitworktree.DefaultAuthorName, pushedCommit.Author.Name)

	cleanStatuses, cleanStatusError := repository.Status(executionContext)
	require.NoError(testInstance, cleanStatusError)
	require.False(testInstance, gitworktree.HasStagedContentChange(cleanStatuses))

	require.NoError(testInstance, repository.CreateBranch(executionContext, "scratch"))
	require.NoError(testInstance, repository.DeleteBranch(executionContext, testSyncBranchConstant))
	remainingBranches, remainingError := repository.ListBranches(executionContext)
	require.NoError(testInstance, remainingError)
	require.Equal(testInstance, []string{"master", "scratch"}, remainingBranches)
}

func TestGoGitRepositoryChecksOutExistingRemoteBranch(testInstance *testing.T) {
	executionContext := context.Background()
	originDirectory := initOriginRepository(testInstance)

	firstClone := cloneRepository(testInstance, originDirectory)
	require.NoError(testInstance, firstClone.CreateBranch(executionContext, testSyncBranchConstant))
	require.NoError(testInstance, os.WriteFile(filepath.Join(firstClone.Directory(), "hello-world.md"), []byte("first\n"), 0o644))
	require.NoError(testInstance, firstClone.Add(executionContext, "hello-world.md"))
	require.NoError(testInstance, firstClone.Commit(executionContext, "Create hello-world.md"))
	require.NoError(testInstance, firstClone.Push(executionContext, "", testSyncBranchConstant))

	secondClone := cloneRepository(testInstance, originDirectory)
	require.NoError(testInstance, secondClone.CheckoutRemoteBranch(executionContext, "", testSyncBranchConstant))

	content, readError := os.ReadFile(filepath.Join(secondClone.Directory(), "hello-world.md"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "first\n", string(content))

	require.NoError(testInstance, os.WriteFile(filepath.Join(secondClone.Directory(), "hello-world.md"), []byte("second\n"), 0o644))
	require.NoError(testInstance, secondClone.Add(executionContext, "hello-world.md"))
	statuses, statusError := secondClone.Status(executionContext)
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, []gitworktree.FileStatus{{Path: "hello-world.md", Staged: gitworktree.FileStateModified}}, statuses)

	require.NoError(testInstance, secondClone.Commit(executionContext, "Update hello-world.md"))
	require.NoError(testInstance, secondClone.Push(executionContext, "", testSyncBranchConstant))
}
