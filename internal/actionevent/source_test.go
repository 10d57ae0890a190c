package actionevent_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/blogatissue/internal/actionevent"
	"github.com/temirov/blogatissue/internal/blogsync"
)

const (
	testEventPathConstant = "/github/workflow/event.json"

	openedIssuePayloadConstant = `{
  "action": "opened",
  "issue": {
    "number": 3,
    "title": "Hello World",
    "body": "# Hi",
    "locked": false,
    "labels": [{"name": "blog"}, {"name": "draft"}]
  },
  "repository": {
    "name": "blog",
    "default_branch": "main",
    "owner": {"login": "octo"}
  },
  "sender": {"login": "octocat"}
}`

	issueCommentPayloadConstant = `{
  "action": "edited",
  "issue": {
    "number": 5,
    "title": "Comment driven",
    "body": "# Still here",
    "labels": [{"name": "blog"}]
  },
  "comment": {"id": 11, "body": "typo fixed"},
  "repository": {"name": "blog", "default_branch": "main", "owner": {"login": "octo"}},
  "sender": {"login": "octocat"}
}`

	bodylessIssuePayloadConstant = `{
  "action": "edited",
  "issue": {"number": 4, "title": "Draft", "body": null, "locked": true, "labels": []}
}`
)

func newSource(testInstance *testing.T, environment actionevent.Environment, payload string) *actionevent.Source {
	testInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	if len(payload) > 0 {
		require.NoError(testInstance, afero.WriteFile(fileSystem, testEventPathConstant, []byte(payload), 0o644))
	}
	return actionevent.NewSource(fileSystem, environment)
}

func TestSourceDecodesIssuesEvent(testInstance *testing.T) {
	source := newSource(testInstance, actionevent.Environment{
		EventName:  "issues",
		EventPath:  testEventPathConstant,
		Repository: "fallback/repository",
	}, openedIssuePayloadConstant)

	event, eventError := source.Event()
	require.NoError(testInstance, eventError)

	body := "# Hi"
	require.Equal(testInstance, blogsync.Event{
		IsIssueEvent:    true,
		Action:          blogsync.IssueActionOpened,
		Title:           "Hello World",
		Body:            &body,
		Labels:          []string{"blog", "draft"},
		IssueNumber:     3,
		RepositoryOwner: "octo",
		RepositoryName:  "blog",
		DefaultBranch:   "main",
		Actor:           "octocat",
	}, event)
}

func TestSourceDecodesIssueCommentEvent(testInstance *testing.T) {
	source := newSource(testInstance, actionevent.Environment{
		EventName: actionevent.IssueCommentEventName,
		EventPath: testEventPathConstant,
	}, issueCommentPayloadConstant)

	event, eventError := source.Event()
	require.NoError(testInstance, eventError)

	body := "# Still here"
	require.Equal(testInstance, blogsync.Event{
		IsIssueEvent:    true,
		Action:          blogsync.IssueActionEdited,
		Title:           "Comment driven",
		Body:            &body,
		Labels:          []string{"blog"},
		IssueNumber:     5,
		RepositoryOwner: "octo",
		RepositoryName:  "blog",
		DefaultBranch:   "main",
		Actor:           "octocat",
	}, event)

	decision := blogsync.EvaluateGate(event, []string{"blog"})
	require.True(testInstance, decision.Accepted)
}

func TestSourceKeepsAbsentBodyAndRuntimeRepository(testInstance *testing.T) {
	source := newSource(testInstance, actionevent.Environment{
		EventName:  "issues",
		EventPath:  testEventPathConstant,
		Repository: "octo/blog",
		Actor:      "octocat",
	}, bodylessIssuePayloadConstant)

	event, eventError := source.Event()
	require.NoError(testInstance, eventError)
	require.True(testInstance, event.IsIssueEvent)
	require.True(testInstance, event.Locked)
	require.Nil(testInstance, event.Body)
	require.Equal(testInstance, "octo", event.RepositoryOwner)
	require.Equal(testInstance, "blog", event.RepositoryName)
	require.Empty(testInstance, event.DefaultBranch)

	decision := blogsync.EvaluateGate(event, nil)
	require.Equal(testInstance, blogsync.GateCheckLocked, decision.FailedCheck)
}

func TestSourceMarksOtherEventsAsNonIssue(testInstance *testing.T) {
	testCases := []struct {
		name        string
		environment actionevent.Environment
		payload     string
	}{
		{
			name:        "push event",
			environment: actionevent.Environment{EventName: "push", Repository: "octo/blog"},
		},
		{
			name:        "issue comment payload without issue",
			environment: actionevent.Environment{EventName: "issue_comment", EventPath: testEventPathConstant, Repository: "octo/blog"},
			payload:     `{"action": "created", "comment": {"id": 1}}`,
		},
		{
			name:        "issues payload without issue",
			environment: actionevent.Environment{EventName: "issues", EventPath: testEventPathConstant, Repository: "octo/blog"},
			payload:     `{"action": "opened"}`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			event, eventError := newSource(subTest, testCase.environment, testCase.payload).Event()
			require.NoError(subTest, eventError)
			require.False(subTest, event.IsIssueEvent)
			require.Equal(subTest, "octo", event.RepositoryOwner)

			decision := blogsync.EvaluateGate(event, nil)
			require.Equal(subTest, blogsync.GateCheckIssueEvent, decision.FailedCheck)
		})
	}
}

func TestSourceReportsPayloadProblems(testInstance *testing.T) {
	_, missingPathError := newSource(testInstance, actionevent.Environment{EventName: "issues"}, "").Event()
	require.ErrorIs(testInstance, missingPathError, actionevent.ErrEventPathRequired)

	_, missingFileError := newSource(testInstance, actionevent.Environment{EventName: "issues", EventPath: "/missing.json"}, "").Event()
	require.Error(testInstance, missingFileError)

	_, malformedError := newSource(testInstance, actionevent.Environment{EventName: "issues", EventPath: testEventPathConstant}, "{").Event()
	require.Error(testInstance, malformedError)
}
