package blogsync

// Outcome classifies how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeSkipped   Outcome = Outcome("skipped")
	OutcomeUnchanged Outcome = Outcome("unchanged")
	OutcomeCreated   Outcome = Outcome("created")
	OutcomeUpdated   Outcome = Outcome("updated")
)

// Result summarizes a completed run. No-op runs are results, not errors.
type Result struct {
	Outcome           Outcome
	Reason            string
	TargetPath        string
	BranchName        string
	CommitMessage     string
	PullRequestNumber int
}
