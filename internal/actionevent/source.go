package actionevent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/spf13/afero"

	"github.com/temirov/blogatissue/internal/blogsync"
)

const (
	// IssuesEventName is the GITHUB_EVENT_NAME of issue activity.
	IssuesEventName = "issues"
	// IssueCommentEventName is the GITHUB_EVENT_NAME of comments on issues and pull requests.
	IssueCommentEventName = "issue_comment"

	eventPathRequiredMessageConstant  = "GITHUB_EVENT_PATH not set"
	readPayloadErrorTemplateConstant  = "read event payload %s: %w"
	parsePayloadErrorTemplateConstant = "parse %s event payload: %w"
	repositorySeparatorConstant       = "/"
)

// ErrEventPathRequired indicates an issue-carrying event without a payload file.
var ErrEventPathRequired = errors.New(eventPathRequiredMessageConstant)

// Source builds blogsync events from the Actions runtime.
type Source struct {
	fileSystem  afero.Fs
	environment Environment
}

// NewSource constructs a Source. A nil fileSystem falls back to the OS filesystem.
func NewSource(fileSystem afero.Fs, environment Environment) *Source {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Source{fileSystem: fileSystem, environment: environment}
}

// Event decodes the triggering payload. Only issues and issue_comment events carry an
// issue; any other event, or a payload without an issue, yields an Event with IsIssueEvent unset.
func (source *Source) Event() (blogsync.Event, error) {
	event := blogsync.Event{Actor: source.environment.Actor}
	event.RepositoryOwner, event.RepositoryName = splitRepository(source.environment.Repository)

	eventName := strings.TrimSpace(source.environment.EventName)
	if eventName != IssuesEventName && eventName != IssueCommentEventName {
		return event, nil
	}

	eventPath := strings.TrimSpace(source.environment.EventPath)
	if len(eventPath) == 0 {
		return blogsync.Event{}, ErrEventPathRequired
	}
	payload, readError := afero.ReadFile(source.fileSystem, eventPath)
	if readError != nil {
		return blogsync.Event{}, fmt.Errorf(readPayloadErrorTemplateConstant, eventPath, readError)
	}

	parsed, parseError := github.ParseWebHook(eventName, payload)
	if parseError != nil {
		return blogsync.Event{}, fmt.Errorf(parsePayloadErrorTemplateConstant, eventName, parseError)
	}

	switch typedEvent := parsed.(type) {
	case *github.IssuesEvent:
		applyIssue(&event, typedEvent.GetAction(), typedEvent.Issue, typedEvent.GetRepo(), typedEvent.GetSender())
	case *github.IssueCommentEvent:
		applyIssue(&event, typedEvent.GetAction(), typedEvent.Issue, typedEvent.GetRepo(), typedEvent.GetSender())
	}
	return event, nil
}

func applyIssue(event *blogsync.Event, action string, issue *github.Issue, repository *github.Repository, sender *github.User) {
	if issue == nil {
		return
	}
	event.IsIssueEvent = true
	event.Action = blogsync.IssueAction(action)
	event.Locked = issue.GetLocked()
	event.Title = issue.GetTitle()
	event.Body = issue.Body
	event.IssueNumber = issue.GetNumber()
	for _, label := range issue.Labels {
		event.Labels = append(event.Labels, label.GetName())
	}

	if repository != nil {
		if owner := repository.GetOwner().GetLogin(); len(owner) > 0 {
			event.RepositoryOwner = owner
		}
		if name := repository.GetName(); len(name) > 0 {
			event.RepositoryName = name
		}
		event.DefaultBranch = repository.GetDefaultBranch()
	}
	if sender != nil && len(event.Actor) == 0 {
		event.Actor = sender.GetLogin()
	}
}

func splitRepository(slug string) (string, string) {
	owner, name, found := strings.Cut(strings.TrimSpace(slug), repositorySeparatorConstant)
	if !found {
		return "", ""
	}
	return owner, name
}
