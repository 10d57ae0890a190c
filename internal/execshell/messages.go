package execshell

import (
	"fmt"
	"regexp"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	redactedCredentialsReplacementConstant  = "://***@"
	flagPrefixConstant                      = "-"
)

const (
	gitConfigurationFlagConstant       = "-c"
	gitCloneSubcommandNameConstant     = "clone"
	gitStatusSubcommandNameConstant    = "status"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitCreateBranchFlagConstant        = "-b"
	gitResetBranchFlagConstant         = "-B"
	gitBranchSubcommandNameConstant    = "branch"
	gitListFlagConstant                = "--list"
	gitForceDeleteFlagConstant         = "-D"
	gitDeleteFlagConstant              = "--delete"
	gitFetchSubcommandNameConstant     = "fetch"
	gitPushSubcommandNameConstant      = "push"
	gitAddSubcommandNameConstant       = "add"
	gitCommitSubcommandNameConstant    = "commit"
	gitMessageFlagConstant             = "-m"
	gitDoubleDashSeparatorConstant     = "--"
	gitFetchAllRemotesLabelConstant    = "all remotes"
	gitConfigurationArgumentSpanLength = 2
)

const (
	gitCloneStartTemplateConstant                       = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                     = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                     = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant            = "Unable to clone %s into %s: %s"
	gitStatusStartTemplateConstant                      = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                    = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                    = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant           = "Unable to review working tree status in %s: %s"
	gitCheckoutStartTemplateConstant                    = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant                  = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant                  = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant         = "Unable to switch %s to branch %s: %s"
	gitBranchListStartTemplateConstant                  = "Listing local branches in %s"
	gitBranchListSuccessTemplateConstant                = "Listed local branches in %s"
	gitBranchListFailureTemplateConstant                = "Failed to list local branches in %s (exit code %d%s)"
	gitBranchListExecutionFailureTemplateConstant       = "Unable to list local branches in %s: %s"
	gitBranchDeletionStartTemplateConstant              = "Removing local branch %s in %s"
	gitBranchDeletionSuccessTemplateConstant            = "Removed local branch %s in %s"
	gitBranchDeletionFailureTemplateConstant            = "Failed to remove local branch %s in %s (exit code %d%s)"
	gitBranchDeletionExecutionFailureTemplateConstant   = "Unable to remove local branch %s in %s: %s"
	gitFetchStartTemplateConstant                       = "Fetching %s from %s in %s"
	gitFetchWithoutRefsStartTemplateConstant            = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant                     = "Fetched %s from %s in %s"
	gitFetchWithoutRefsSuccessTemplateConstant          = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                     = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchWithoutRefsFailureTemplateConstant          = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant            = "Unable to fetch %s from %s in %s: %s"
	gitFetchWithoutRefsExecutionFailureTemplateConstant = "Unable to fetch from %s in %s: %s"
	gitPushStartTemplateConstant                        = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant                      = "Pushed %s to %s from %s"
	gitPushFailureTemplateConstant                      = "Failed to push %s to %s from %s (exit code %d%s)"
	gitPushExecutionFailureTemplateConstant             = "Unable to push %s to %s from %s: %s"
	gitAddStartTemplateConstant                         = "Staging %s in %s"
	gitAddSuccessTemplateConstant                       = "Staged %s in %s"
	gitAddFailureTemplateConstant                       = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant              = "Unable to stage %s in %s: %s"
	gitCommitStartTemplateConstant                      = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant                    = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant                    = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant           = "Unable to create commit in %s with message %q: %s"
)

const (
	githubAPICommandNameConstant           = "api"
	githubMethodFlagConstant               = "-X"
	githubSearchEndpointPrefixConstant     = "search/issues"
	githubReferencesEndpointMarkerConstant = "/git/refs/"
	githubPullsEndpointSuffixConstant      = "/pulls"
	githubCommentsEndpointSuffixConstant   = "/comments"
	githubRepositoryEndpointPrefixConstant = "repos/"
	githubDeleteMethodConstant             = "DELETE"
	githubPostMethodConstant               = "POST"
)

const (
	githubSearchStartTemplateConstant                         = "Searching open pull requests"
	githubSearchSuccessTemplateConstant                       = "Searched open pull requests"
	githubSearchFailureTemplateConstant                       = "Failed to search open pull requests (exit code %d%s)"
	githubSearchExecutionFailureTemplateConstant              = "Unable to search open pull requests: %s"
	githubReferenceDeletionStartTemplateConstant              = "Deleting reference %s in %s"
	githubReferenceDeletionSuccessTemplateConstant            = "Deleted reference %s in %s"
	githubReferenceDeletionFailureTemplateConstant            = "Failed to delete reference %s in %s (exit code %d%s)"
	githubReferenceDeletionExecutionFailureTemplateConstant   = "Unable to delete reference %s in %s: %s"
	githubPullRequestCreationStartTemplateConstant            = "Opening pull request in %s"
	githubPullRequestCreationSuccessTemplateConstant          = "Opened pull request in %s"
	githubPullRequestCreationFailureTemplateConstant          = "Failed to open pull request in %s (exit code %d%s)"
	githubPullRequestCreationExecutionFailureTemplateConstant = "Unable to open pull request in %s: %s"
	githubCommentCreationStartTemplateConstant                = "Commenting on %s"
	githubCommentCreationSuccessTemplateConstant              = "Commented on %s"
	githubCommentCreationFailureTemplateConstant              = "Failed to comment on %s (exit code %d%s)"
	githubCommentCreationExecutionFailureTemplateConstant     = "Unable to comment on %s: %s"
)

var credentialsPattern = regexp.MustCompile(`://[^/@\s]+@`)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// FormatCommandLabel renders the command line with credentials removed.
func (formatter CommandMessageFormatter) FormatCommandLabel(command ShellCommand) string {
	return formatter.formatCommandLabel(command)
}

// git status runs before and after every mutation; its start message adds nothing.
func (formatter CommandMessageFormatter) shouldLogStartMessage(command ShellCommand) bool {
	if command.Name != CommandGit {
		return true
	}
	subcommand, _ := splitGitArguments(command.Details.Arguments)
	return subcommand != gitStatusSubcommandNameConstant
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandGitHub:
		return formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	subcommand, subcommandArguments := splitGitArguments(command.Details.Arguments)
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, subcommandArguments, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeGitStatusMessage(command, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeGitCheckoutMessage(command, subcommandArguments, result, failure, stage)
	case gitBranchSubcommandNameConstant:
		return formatter.describeGitBranchMessage(command, subcommandArguments, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, subcommandArguments, result, failure, stage)
	case gitPushSubcommandNameConstant:
		return formatter.describeGitPushMessage(command, subcommandArguments, result, failure, stage)
	case gitAddSubcommandNameConstant:
		return formatter.describeGitAddMessage(command, subcommandArguments, result, failure, stage)
	case gitCommitSubcommandNameConstant:
		return formatter.describeGitCommitMessage(command, subcommandArguments, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	positionalArguments := extractPositionalArguments(arguments)
	source := formatter.ensureValue(redactCredentials(formatter.argumentAtIndex(positionalArguments, 0)))
	destination := formatter.argumentAtIndex(positionalArguments, 1)
	if len(strings.TrimSpace(destination)) == 0 {
		destination = formatter.describeWorkingDirectory(command)
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, source, destination)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, source, destination)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, source, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, source, destination, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitStatusMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCheckoutMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	branchName := findFlagValue(arguments, gitCreateBranchFlagConstant)
	if len(branchName) == 0 {
		branchName = findFlagValue(arguments, gitResetBranchFlagConstant)
	}
	if len(branchName) == 0 {
		branchName = formatter.argumentAtIndex(extractPositionalArguments(arguments), 0)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)
	trimmedBranch := formatter.ensureValue(branchName)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, trimmedBranch)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, trimmedBranch)
	case messageStageFailure:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, trimmedBranch, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCheckoutExecutionFailureTemplateConstant, workingDirectory, trimmedBranch, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitBranchMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)

	if containsArgument(arguments, gitListFlagConstant) || len(extractPositionalArguments(arguments)) == 0 {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitBranchListStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitBranchListSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitBranchListFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitBranchListExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	if containsArgument(arguments, gitForceDeleteFlagConstant) || containsArgument(arguments, gitDeleteFlagConstant) {
		trimmedBranch := formatter.ensureValue(formatter.argumentAtIndex(extractPositionalArguments(arguments), 0))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitBranchDeletionStartTemplateConstant, trimmedBranch, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitBranchDeletionSuccessTemplateConstant, trimmedBranch, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitBranchDeletionFailureTemplateConstant, trimmedBranch, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitBranchDeletionExecutionFailureTemplateConstant, trimmedBranch, workingDirectory, formatter.describeFailure(failure))
		}
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := extractPositionalArguments(arguments)
	remoteName := strings.TrimSpace(formatter.argumentAtIndex(positionalArguments, 0))
	if len(remoteName) == 0 {
		remoteName = gitFetchAllRemotesLabelConstant
	}
	joinedReferences := emptyStringConstant
	if len(positionalArguments) > 1 {
		joinedReferences = strings.Join(positionalArguments[1:], ", ")
	}

	switch stage {
	case messageStageStart:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchStartTemplateConstant, joinedReferences, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchSuccessTemplateConstant, joinedReferences, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsSuccessTemplateConstant, remoteName, workingDirectory)
	case messageStageFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchFailureTemplateConstant, joinedReferences, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitFetchWithoutRefsFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, joinedReferences, remoteName, workingDirectory, formatter.describeFailure(failure))
		}
		return fmt.Sprintf(gitFetchWithoutRefsExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitPushMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := extractPositionalArguments(arguments)
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 0))
	branchReference := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 1))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitPushStartTemplateConstant, branchReference, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitPushSuccessTemplateConstant, branchReference, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitPushFailureTemplateConstant, branchReference, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitPushExecutionFailureTemplateConstant, branchReference, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitAddMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	targetPath := formatter.ensureValue(formatter.argumentAtIndex(extractPositionalArguments(arguments), 0))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAddStartTemplateConstant, targetPath, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAddSuccessTemplateConstant, targetPath, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitAddFailureTemplateConstant, targetPath, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitAddExecutionFailureTemplateConstant, targetPath, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCommitMessage(command ShellCommand, arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	commitMessage := formatter.ensureValue(findFlagValue(arguments, gitMessageFlagConstant))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitMessage)
	case messageStageSuccess:
		return fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitMessage)
	case messageStageFailure:
		return fmt.Sprintf(gitCommitFailureTemplateConstant, workingDirectory, commitMessage, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCommitExecutionFailureTemplateConstant, workingDirectory, commitMessage, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || strings.TrimSpace(arguments[0]) != githubAPICommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	endpoint := strings.TrimSpace(formatter.argumentAtIndex(extractPositionalArguments(arguments[1:]), 0))
	method := strings.ToUpper(findFlagValue(arguments, githubMethodFlagConstant))

	switch {
	case strings.HasPrefix(endpoint, githubSearchEndpointPrefixConstant):
		switch stage {
		case messageStageStart:
			return githubSearchStartTemplateConstant
		case messageStageSuccess:
			return githubSearchSuccessTemplateConstant
		case messageStageFailure:
			return fmt.Sprintf(githubSearchFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(githubSearchExecutionFailureTemplateConstant, formatter.describeFailure(failure))
		}
	case method == githubDeleteMethodConstant && strings.Contains(endpoint, githubReferencesEndpointMarkerConstant):
		markerIndex := strings.Index(endpoint, githubReferencesEndpointMarkerConstant)
		repository := formatter.extractRepositoryFromEndpoint(endpoint[:markerIndex])
		reference := endpoint[markerIndex+len(githubReferencesEndpointMarkerConstant):]
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubReferenceDeletionStartTemplateConstant, reference, repository)
		case messageStageSuccess:
			return fmt.Sprintf(githubReferenceDeletionSuccessTemplateConstant, reference, repository)
		case messageStageFailure:
			return fmt.Sprintf(githubReferenceDeletionFailureTemplateConstant, reference, repository, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(githubReferenceDeletionExecutionFailureTemplateConstant, reference, repository, formatter.describeFailure(failure))
		}
	case method == githubPostMethodConstant && strings.HasSuffix(endpoint, githubPullsEndpointSuffixConstant):
		repository := formatter.extractRepositoryFromEndpoint(strings.TrimSuffix(endpoint, githubPullsEndpointSuffixConstant))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubPullRequestCreationStartTemplateConstant, repository)
		case messageStageSuccess:
			return fmt.Sprintf(githubPullRequestCreationSuccessTemplateConstant, repository)
		case messageStageFailure:
			return fmt.Sprintf(githubPullRequestCreationFailureTemplateConstant, repository, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(githubPullRequestCreationExecutionFailureTemplateConstant, repository, formatter.describeFailure(failure))
		}
	case method == githubPostMethodConstant && strings.HasSuffix(endpoint, githubCommentsEndpointSuffixConstant):
		issueEndpoint := formatter.extractRepositoryFromEndpoint(strings.TrimSuffix(endpoint, githubCommentsEndpointSuffixConstant))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubCommentCreationStartTemplateConstant, issueEndpoint)
		case messageStageSuccess:
			return fmt.Sprintf(githubCommentCreationSuccessTemplateConstant, issueEndpoint)
		case messageStageFailure:
			return fmt.Sprintf(githubCommentCreationFailureTemplateConstant, issueEndpoint, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(githubCommentCreationExecutionFailureTemplateConstant, issueEndpoint, formatter.describeFailure(failure))
		}
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(redactArguments(command.Details.Arguments), commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(redactCredentials(standardError))
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return redactCredentials(failure.Error())
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) extractRepositoryFromEndpoint(endpoint string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(endpoint), githubRepositoryEndpointPrefixConstant), "/")
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// splitGitArguments skips leading "-c key=value" pairs and returns the subcommand with its arguments.
func splitGitArguments(arguments []string) (string, []string) {
	index := 0
	for index < len(arguments) && strings.TrimSpace(arguments[index]) == gitConfigurationFlagConstant {
		index += gitConfigurationArgumentSpanLength
	}
	if index >= len(arguments) {
		return emptyStringConstant, nil
	}
	return strings.TrimSpace(arguments[index]), arguments[index+1:]
}

// extractPositionalArguments drops flags, flag values for -b/-B/-m/-X/-f, and the "--" separator.
func extractPositionalArguments(arguments []string) []string {
	positionalArguments := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 || trimmed == gitDoubleDashSeparatorConstant {
			continue
		}
		if strings.HasPrefix(trimmed, flagPrefixConstant) {
			if flagTakesValue(trimmed) {
				index++
			}
			continue
		}
		positionalArguments = append(positionalArguments, trimmed)
	}
	return positionalArguments
}

func flagTakesValue(flag string) bool {
	switch flag {
	case gitCreateBranchFlagConstant, gitResetBranchFlagConstant, gitMessageFlagConstant, githubMethodFlagConstant, "-f", "--input", "-H", "--jq", "--hostname":
		return true
	default:
		return false
	}
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

func redactCredentials(value string) string {
	return credentialsPattern.ReplaceAllString(value, redactedCredentialsReplacementConstant)
}

func redactArguments(arguments []string) []string {
	redacted := make([]string, len(arguments))
	for index, argument := range arguments {
		redacted[index] = redactCredentials(argument)
	}
	return redacted
}
