package blogsync

import (
	"strings"

	"github.com/temirov/blogatissue/internal/codehost"
)

const defaultTriggerLabelConstant = "blog"

// IssueAction is the activity type of an issues event.
type IssueAction string

// Issue actions that trigger a sync.
const (
	IssueActionOpened   IssueAction = IssueAction("opened")
	IssueActionEdited   IssueAction = IssueAction("edited")
	IssueActionReopened IssueAction = IssueAction("reopened")
	IssueActionLabeled  IssueAction = IssueAction("labeled")
)

// Event is the issue state delivered to a single run.
type Event struct {
	IsIssueEvent    bool
	Action          IssueAction
	Locked          bool
	Title           string
	Body            *string
	Labels          []string
	IssueNumber     int
	RepositoryOwner string
	RepositoryName  string
	DefaultBranch   string
	Actor           string
}

// BodyText returns the issue body, or an empty string when the payload carried none.
func (event Event) BodyText() string {
	if event.Body == nil {
		return ""
	}
	return *event.Body
}

// Repository identifies the repository the issue belongs to.
func (event Event) Repository() codehost.Repository {
	return codehost.Repository{Owner: event.RepositoryOwner, Name: event.RepositoryName}
}

// DefaultTriggerLabels returns the labels used when none are configured.
func DefaultTriggerLabels() []string {
	return []string{defaultTriggerLabelConstant}
}

// GateCheck names one of the checks an event must pass.
type GateCheck string

// Gate checks in evaluation order.
const (
	GateCheckNone       GateCheck = GateCheck("")
	GateCheckIssueEvent GateCheck = GateCheck("issue_event")
	GateCheckLocked     GateCheck = GateCheck("locked")
	GateCheckAction     GateCheck = GateCheck("action")
	GateCheckBody       GateCheck = GateCheck("body")
	GateCheckLabel      GateCheck = GateCheck("label")
)

var gateReasons = map[GateCheck]string{
	GateCheckIssueEvent: "not an issue event",
	GateCheckLocked:     "issue is locked",
	GateCheckAction:     "unsupported issue action",
	GateCheckBody:       "issue body is empty",
	GateCheckLabel:      "issue has no trigger label",
}

// GateDecision reports whether an event may proceed and, if not, which check rejected it.
type GateDecision struct {
	Accepted    bool
	FailedCheck GateCheck
}

// Reason describes the rejection for logs.
func (decision GateDecision) Reason() string {
	return gateReasons[decision.FailedCheck]
}

// EvaluateGate applies the checks in order and stops at the first failure.
// An empty triggerLabels falls back to DefaultTriggerLabels.
func EvaluateGate(event Event, triggerLabels []string) GateDecision {
	switch {
	case !event.IsIssueEvent:
		return rejected(GateCheckIssueEvent)
	case event.Locked:
		return rejected(GateCheckLocked)
	case !supportedAction(event.Action):
		return rejected(GateCheckAction)
	case len(event.BodyText()) == 0:
		return rejected(GateCheckBody)
	case !hasTriggerLabel(event.Labels, triggerLabels):
		return rejected(GateCheckLabel)
	default:
		return GateDecision{Accepted: true}
	}
}

func rejected(check GateCheck) GateDecision {
	return GateDecision{Accepted: false, FailedCheck: check}
}

func supportedAction(action IssueAction) bool {
	switch action {
	case IssueActionOpened, IssueActionEdited, IssueActionReopened, IssueActionLabeled:
		return true
	default:
		return false
	}
}

func hasTriggerLabel(issueLabels []string, triggerLabels []string) bool {
	triggers := make(map[string]struct{}, len(triggerLabels))
	for _, label := range triggerLabels {
		trimmed := strings.TrimSpace(label)
		if len(trimmed) == 0 {
			continue
		}
		triggers[trimmed] = struct{}{}
	}
	if len(triggers) == 0 {
		for _, label := range DefaultTriggerLabels() {
			triggers[label] = struct{}{}
		}
	}

	for _, label := range issueLabels {
		if _, matched := triggers[label]; matched {
			return true
		}
	}
	return false
}
