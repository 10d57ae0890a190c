package blog

import (
	"strings"
	"time"

	"github.com/temirov/blogatissue/internal/blogsync"
	"github.com/temirov/blogatissue/internal/codehost"
	"github.com/temirov/blogatissue/internal/contentprocessor"
	"github.com/temirov/blogatissue/internal/gitworktree"
)

// Code host client choices.
const (
	CodeHostClientAPI = "api"
	CodeHostClientCLI = "cli"
)

// CommandConfiguration captures the sync section of the configuration file.
type CommandConfiguration struct {
	Labels         []string               `mapstructure:"labels"`
	FilePath       string                 `mapstructure:"filepath"`
	Workspace      string                 `mapstructure:"workspace"`
	Remote         string                 `mapstructure:"remote"`
	BranchPrefix   string                 `mapstructure:"branch_prefix"`
	AuthorQuery    string                 `mapstructure:"author_query"`
	Attribution    string                 `mapstructure:"attribution"`
	VCSBackend     string                 `mapstructure:"vcs_backend"`
	CodeHostClient string                 `mapstructure:"code_host_client"`
	Timeout        time.Duration          `mapstructure:"timeout"`
	Git            GitConfiguration       `mapstructure:"git"`
	Processor      ProcessorConfiguration `mapstructure:"processor"`
}

// GitConfiguration sets the commit identity.
type GitConfiguration struct {
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// ProcessorConfiguration sets the formatter, linter and tooling install commands.
type ProcessorConfiguration struct {
	FormatCommand       []string `mapstructure:"format_command"`
	LintCommand         []string `mapstructure:"lint_command"`
	InstallDependencies bool     `mapstructure:"install_dependencies"`
	InstallCommand      []string `mapstructure:"install_command"`
}

// DefaultCommandConfiguration mirrors the published action defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Labels:         blogsync.DefaultTriggerLabels(),
		BranchPrefix:   blogsync.DefaultBranchPrefix,
		AuthorQuery:    codehost.DefaultAutomationAuthor,
		Attribution:    blogsync.DefaultAttribution,
		VCSBackend:     string(gitworktree.BackendShell),
		CodeHostClient: CodeHostClientAPI,
		Git: GitConfiguration{
			AuthorName:  gitworktree.DefaultAuthorName,
			AuthorEmail: gitworktree.DefaultAuthorEmail,
		},
		Processor: ProcessorConfiguration{
			FormatCommand:       contentprocessor.DefaultFormatCommand(),
			LintCommand:         contentprocessor.DefaultLintCommand(),
			InstallDependencies: true,
			InstallCommand:      contentprocessor.DefaultInstallCommand(),
		},
	}
}

// DefaultConfigurationValues flattens DefaultCommandConfiguration under prefix for viper.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	key := func(name string) string {
		return prefix + "." + name
	}
	return map[string]any{
		key("labels"):                         defaults.Labels,
		key("filepath"):                       defaults.FilePath,
		key("workspace"):                      defaults.Workspace,
		key("remote"):                         defaults.Remote,
		key("branch_prefix"):                  defaults.BranchPrefix,
		key("author_query"):                   defaults.AuthorQuery,
		key("attribution"):                    defaults.Attribution,
		key("vcs_backend"):                    defaults.VCSBackend,
		key("code_host_client"):               defaults.CodeHostClient,
		key("timeout"):                        defaults.Timeout,
		key("git.author_name"):                defaults.Git.AuthorName,
		key("git.author_email"):               defaults.Git.AuthorEmail,
		key("processor.format_command"):       defaults.Processor.FormatCommand,
		key("processor.lint_command"):         defaults.Processor.LintCommand,
		key("processor.install_dependencies"): defaults.Processor.InstallDependencies,
		key("processor.install_command"):      defaults.Processor.InstallCommand,
	}
}

// Sanitize trims values and restores defaults for blank required settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Labels = sanitizeList(configuration.Labels)
	sanitized.FilePath = strings.TrimSpace(configuration.FilePath)
	sanitized.Workspace = strings.TrimSpace(configuration.Workspace)
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	sanitized.BranchPrefix = valueOrDefault(configuration.BranchPrefix, defaults.BranchPrefix)
	sanitized.AuthorQuery = valueOrDefault(configuration.AuthorQuery, defaults.AuthorQuery)
	sanitized.VCSBackend = valueOrDefault(configuration.VCSBackend, defaults.VCSBackend)
	sanitized.CodeHostClient = valueOrDefault(configuration.CodeHostClient, defaults.CodeHostClient)
	sanitized.Git.AuthorName = valueOrDefault(configuration.Git.AuthorName, defaults.Git.AuthorName)
	sanitized.Git.AuthorEmail = valueOrDefault(configuration.Git.AuthorEmail, defaults.Git.AuthorEmail)
	sanitized.Processor.FormatCommand = sanitizeList(configuration.Processor.FormatCommand)
	sanitized.Processor.LintCommand = sanitizeList(configuration.Processor.LintCommand)
	sanitized.Processor.InstallCommand = sanitizeList(configuration.Processor.InstallCommand)
	if sanitized.Timeout < 0 {
		sanitized.Timeout = 0
	}
	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}

func sanitizeList(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
