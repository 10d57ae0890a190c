package blog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/blogatissue/internal/actionevent"
	"github.com/temirov/blogatissue/internal/blogsync"
	"github.com/temirov/blogatissue/internal/codehost"
	"github.com/temirov/blogatissue/internal/contentprocessor"
	"github.com/temirov/blogatissue/internal/execshell"
	"github.com/temirov/blogatissue/internal/githubapi"
	"github.com/temirov/blogatissue/internal/githubauth"
	"github.com/temirov/blogatissue/internal/githubcli"
	"github.com/temirov/blogatissue/internal/gitrepo"
	"github.com/temirov/blogatissue/internal/gitworktree"
	"github.com/temirov/blogatissue/internal/ui"
	"github.com/temirov/blogatissue/internal/utils/flags"
)

const (
	syncCommandUseConstant              = "sync"
	syncCommandShortDescriptionConstant = "Publish the triggering issue as a blog post pull request"
	syncCommandLongDescriptionConstant  = "sync reads the GitHub Actions issues event, writes the issue body to the configured path, formats and lints it, and opens or updates the blog-at-issue pull request."
	tokenFlagNameConstant               = "token"
	tokenFlagDescriptionConstant        = "GitHub token (defaults to the token input, GH_TOKEN or GITHUB_TOKEN)"
	labelsFlagNameConstant              = "labels"
	labelsFlagDescriptionConstant       = "Trigger labels as a comma separated or YAML list"
	filePathFlagNameConstant            = "filepath"
	filePathFlagDescriptionConstant     = "Post path template containing a {title} placeholder"
	workspaceFlagNameConstant           = "workspace"
	workspaceFlagDescriptionConstant    = "Directory the repository is cloned into (defaults to GITHUB_WORKSPACE)"
	vcsBackendFlagNameConstant          = "vcs-backend"
	vcsBackendFlagDescriptionConstant   = "Version control backend"
	codeHostFlagNameConstant            = "code-host-client"
	codeHostFlagDescriptionConstant     = "Code host client: REST API or the gh CLI"
	publicGitHubHostConstant            = "github.com"
	repositorySlugTemplateConstant      = "%s/%s"
	tokenRequiredMessageConstant        = "GitHub token required; set the token input, --token, GH_TOKEN or GITHUB_TOKEN"
	filePathRequiredMessageConstant     = "file path template required; set the filepath input, --filepath or sync.filepath"
	repositoryUnknownMessageConstant    = "repository unknown; GITHUB_REPOSITORY and the event payload are empty"
	labelsErrorTemplateConstant         = "resolve trigger labels: %w"
	workspaceErrorTemplateConstant      = "resolve workspace: %w"
	remoteErrorTemplateConstant         = "resolve remote url: %w"
	executorErrorTemplateConstant       = "construct shell executor: %w"
	codeHostErrorTemplateConstant       = "construct code host client: %w"
	repositoryErrorTemplateConstant     = "construct %s repository: %w"
	processorErrorTemplateConstant      = "construct content processor: %w"
	serviceErrorTemplateConstant        = "construct sync service: %w"
	eventSkippedMessageConstant         = "event skipped"
	syncCompletedMessageConstant        = "sync completed"
	createdNoticeTemplateConstant       = "Opened pull request #%d for %s"
	updatedNoticeTemplateConstant       = "Updated pull request #%d for %s"
	logFieldReasonConstant              = "reason"
	logFieldOutcomeConstant             = "outcome"
	logFieldPathConstant                = "path"
	logFieldBranchConstant              = "branch"
	logFieldPullRequestConstant         = "pull_request"
)

var (
	// ErrTokenRequired indicates no token was supplied by any source.
	ErrTokenRequired = errors.New(tokenRequiredMessageConstant)
	// ErrFilePathRequired indicates no file path template was supplied by any source.
	ErrFilePathRequired = errors.New(filePathRequiredMessageConstant)
	// ErrRepositoryUnknown indicates the repository could not be determined.
	ErrRepositoryUnknown = errors.New(repositoryUnknownMessageConstant)
)

// SyncCommandBuilder assembles the sync command. Nil collaborators are built from configuration.
type SyncCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	EnvironmentLookuper   envconfig.Lookuper
	FileSystem            afero.Fs
	CommandRunner         execshell.CommandRunner
	CodeHost              codehost.Client
	Repository            gitworktree.Repository
	WorkingDirectory      func() (string, error)
}

// Build constructs the sync command.
func (builder *SyncCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(tokenFlagNameConstant, "", tokenFlagDescriptionConstant)
	command.Flags().String(labelsFlagNameConstant, "", labelsFlagDescriptionConstant)
	command.Flags().String(filePathFlagNameConstant, "", filePathFlagDescriptionConstant)
	command.Flags().String(workspaceFlagNameConstant, "", workspaceFlagDescriptionConstant)
	command.Flags().String(vcsBackendFlagNameConstant, "", flags.FormatChoiceUsage(string(gitworktree.BackendShell), backendChoices(), vcsBackendFlagDescriptionConstant))
	command.Flags().String(codeHostFlagNameConstant, "", flags.FormatChoiceUsage(CodeHostClientAPI, codeHostChoices(), codeHostFlagDescriptionConstant))

	return command, nil
}

func (builder *SyncCommandBuilder) run(command *cobra.Command, arguments []string) error {
	executionContext := command.Context()
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	environment, environmentError := actionevent.LoadEnvironment(executionContext, builder.EnvironmentLookuper)
	if environmentError != nil {
		return environmentError
	}

	triggerLabels, labelsError := resolveLabels(command, environment, configuration)
	if labelsError != nil {
		return fmt.Errorf(labelsErrorTemplateConstant, labelsError)
	}

	event, eventError := actionevent.NewSource(fileSystem, environment).Event()
	if eventError != nil {
		return eventError
	}
	if decision := blogsync.EvaluateGate(event, triggerLabels); !decision.Accepted {
		logger.Info(eventSkippedMessageConstant, zap.String(logFieldReasonConstant, decision.Reason()))
		return nil
	}

	filePathFlag, _ := stringFlagOverride(command, filePathFlagNameConstant)
	filePathTemplate := firstNonEmpty(strings.TrimSpace(filePathFlag), strings.TrimSpace(environment.FilePath), configuration.FilePath)
	if len(filePathTemplate) == 0 {
		return ErrFilePathRequired
	}

	tokenFlag, _ := stringFlagOverride(command, tokenFlagNameConstant)
	token, tokenFound := githubauth.ResolveToken([]string{tokenFlag, environment.Token}, tokenEnvironment(builder.EnvironmentLookuper))
	if !tokenFound {
		return ErrTokenRequired
	}

	if len(event.RepositoryOwner) == 0 || len(event.RepositoryName) == 0 {
		return ErrRepositoryUnknown
	}

	workspace, workspaceError := builder.resolveWorkspace(command, environment, configuration)
	if workspaceError != nil {
		return fmt.Errorf(workspaceErrorTemplateConstant, workspaceError)
	}
	remoteURL, remoteError := resolveRemoteURL(environment, configuration, event)
	if remoteError != nil {
		return fmt.Errorf(remoteErrorTemplateConstant, remoteError)
	}

	workflowCommands := ui.NewWorkflowCommandWriter(command.OutOrStdout())
	workflowCommands.AddMask(token)

	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return fmt.Errorf(executorErrorTemplateConstant, executorError)
	}
	shellExecutor.SetObserver(workflowCommands)

	codeHostClient, codeHostError := builder.resolveCodeHost(command, logger, shellExecutor, environment, configuration, token)
	if codeHostError != nil {
		return fmt.Errorf(codeHostErrorTemplateConstant, codeHostError)
	}

	repositoryOptions := gitworktree.Options{
		Directory:   filepath.Join(workspace, event.RepositoryName),
		Author:      gitworktree.Signature{Name: configuration.Git.AuthorName, Email: configuration.Git.AuthorEmail},
		Credentials: gitrepo.Credentials{Username: environment.Actor, Token: token},
	}
	repository, repositoryError := builder.resolveRepository(command, logger, shellExecutor, configuration, repositoryOptions)
	if repositoryError != nil {
		return repositoryError
	}

	processor, processorError := contentprocessor.NewProcessor(shellExecutor, fileSystem, logger, contentprocessor.Options{
		WorkingDirectory: repository.Directory(),
		FormatCommand:    configuration.Processor.FormatCommand,
		LintCommand:      configuration.Processor.LintCommand,
		InstallCommand:   configuration.Processor.InstallCommand,
	})
	if processorError != nil {
		return fmt.Errorf(processorErrorTemplateConstant, processorError)
	}

	dependencies := blogsync.Dependencies{
		Logger:     logger,
		CodeHost:   codeHostClient,
		Repository: repository,
		Processor:  processor,
		FileSystem: fileSystem,
	}
	if configuration.Processor.InstallDependencies {
		dependencies.Installer = processor
	}

	service, serviceError := blogsync.NewService(dependencies, blogsync.Options{
		FilePathTemplate: filePathTemplate,
		TriggerLabels:    triggerLabels,
		RemoteURL:        remoteURL,
		RemoteName:       gitworktree.DefaultRemoteName,
		BranchPrefix:     configuration.BranchPrefix,
		AutomationAuthor: configuration.AuthorQuery,
		Attribution:      configuration.Attribution,
		Timeout:          configuration.Timeout,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceErrorTemplateConstant, serviceError)
	}

	result, runError := service.Run(executionContext, event)
	if runError != nil {
		return runError
	}

	logger.Info(syncCompletedMessageConstant,
		zap.String(logFieldOutcomeConstant, string(result.Outcome)),
		zap.String(logFieldReasonConstant, result.Reason),
		zap.String(logFieldPathConstant, result.TargetPath),
		zap.String(logFieldBranchConstant, result.BranchName),
		zap.Int(logFieldPullRequestConstant, result.PullRequestNumber),
	)
	switch result.Outcome {
	case blogsync.OutcomeCreated:
		workflowCommands.Notice(fmt.Sprintf(createdNoticeTemplateConstant, result.PullRequestNumber, result.TargetPath))
	case blogsync.OutcomeUpdated:
		workflowCommands.Notice(fmt.Sprintf(updatedNoticeTemplateConstant, result.PullRequestNumber, result.TargetPath))
	}
	return nil
}

func (builder *SyncCommandBuilder) resolveWorkspace(command *cobra.Command, environment actionevent.Environment, configuration CommandConfiguration) (string, error) {
	workspaceFlag, _ := stringFlagOverride(command, workspaceFlagNameConstant)
	workspace := firstNonEmpty(strings.TrimSpace(workspaceFlag), configuration.Workspace, strings.TrimSpace(environment.Workspace))
	if len(workspace) > 0 {
		return workspace, nil
	}
	if builder.WorkingDirectory != nil {
		return builder.WorkingDirectory()
	}
	return os.Getwd()
}

func (builder *SyncCommandBuilder) resolveCodeHost(command *cobra.Command, logger *zap.Logger, executor *execshell.ShellExecutor, environment actionevent.Environment, configuration CommandConfiguration, token string) (codehost.Client, error) {
	if builder.CodeHost != nil {
		return builder.CodeHost, nil
	}

	requested, _ := stringFlagOverride(command, codeHostFlagNameConstant)
	choice, choiceError := flags.ParseChoice(codeHostFlagNameConstant, firstNonEmpty(requested, configuration.CodeHostClient), CodeHostClientAPI, codeHostChoices())
	if choiceError != nil {
		return nil, choiceError
	}

	if choice == CodeHostClientCLI {
		return githubcli.NewClient(executor, githubcli.Options{Token: token, Hostname: enterpriseHostname(environment.ServerURL)})
	}
	return githubapi.NewClient(command.Context(), logger, githubapi.Options{Token: token, APIURL: environment.APIURL})
}

func (builder *SyncCommandBuilder) resolveRepository(command *cobra.Command, logger *zap.Logger, executor *execshell.ShellExecutor, configuration CommandConfiguration, options gitworktree.Options) (gitworktree.Repository, error) {
	if builder.Repository != nil {
		return builder.Repository, nil
	}

	requested, _ := stringFlagOverride(command, vcsBackendFlagNameConstant)
	choice, choiceError := flags.ParseChoice(vcsBackendFlagNameConstant, firstNonEmpty(requested, configuration.VCSBackend), string(gitworktree.BackendShell), backendChoices())
	if choiceError != nil {
		return nil, choiceError
	}
	backend, backendError := gitworktree.ParseBackendName(choice)
	if backendError != nil {
		return nil, backendError
	}

	var repository gitworktree.Repository
	var creationError error
	switch backend {
	case gitworktree.BackendGoGit:
		repository, creationError = gitworktree.NewGoGitRepository(logger, options)
	default:
		repository, creationError = gitworktree.NewShellRepository(executor, options)
	}
	if creationError != nil {
		return nil, fmt.Errorf(repositoryErrorTemplateConstant, backend, creationError)
	}
	return repository, nil
}

func resolveLabels(command *cobra.Command, environment actionevent.Environment, configuration CommandConfiguration) ([]string, error) {
	if labelsFlag, changed := stringFlagOverride(command, labelsFlagNameConstant); changed {
		return actionevent.ParseLabels(labelsFlag)
	}
	if len(strings.TrimSpace(environment.Labels)) > 0 {
		return actionevent.ParseLabels(environment.Labels)
	}
	return configuration.Labels, nil
}

func resolveRemoteURL(environment actionevent.Environment, configuration CommandConfiguration, event blogsync.Event) (string, error) {
	if len(configuration.Remote) > 0 {
		return configuration.Remote, nil
	}
	remote, parseError := gitrepo.ParseRepositorySlug(environment.ServerURL, fmt.Sprintf(repositorySlugTemplateConstant, event.RepositoryOwner, event.RepositoryName))
	if parseError != nil {
		return "", parseError
	}
	return gitrepo.FormatRemoteURL(remote)
}

// tokenEnvironment collects the token variables visible through lookuper.
func tokenEnvironment(lookuper envconfig.Lookuper) map[string]string {
	if lookuper == nil {
		return nil
	}
	environment := make(map[string]string)
	for _, key := range []string{githubauth.EnvActionInputToken, githubauth.EnvGitHubCLIToken, githubauth.EnvGitHubToken} {
		if value, found := lookuper.Lookup(key); found {
			environment[key] = value
		}
	}
	return environment
}

// enterpriseHostname returns the host of a GitHub Enterprise server URL, or an empty string for github.com.
func enterpriseHostname(serverURL string) string {
	parsedURL, parseError := url.Parse(strings.TrimSpace(serverURL))
	if parseError != nil || len(parsedURL.Host) == 0 || strings.EqualFold(parsedURL.Host, publicGitHubHostConstant) {
		return ""
	}
	return parsedURL.Host
}

func backendChoices() []string {
	return []string{string(gitworktree.BackendShell), string(gitworktree.BackendGoGit)}
}

func codeHostChoices() []string {
	return []string{CodeHostClientAPI, CodeHostClientCLI}
}
