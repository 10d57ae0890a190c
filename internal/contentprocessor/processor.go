package contentprocessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/blogatissue/internal/execshell"
)

const (
	// PathPlaceholder is replaced by the processed file path in command arguments.
	PathPlaceholder = "{path}"

	packageManifestFileNameConstant      = "package.json"
	dependencyVersionTemplateConstant    = "%s@%s"
	executorNotConfiguredMessageConstant = "content processor executor not configured"
	pathRequiredMessageConstant          = "content processor path required"
	stepFailedErrorTemplateConstant      = "%s %s: %w"
	manifestReadErrorTemplateConstant    = "read %s: %w"
	manifestDecodeErrorTemplateConstant  = "decode %s: %w"
	installFailedErrorTemplateConstant   = "install dependencies: %w"
	formatStepNameConstant               = "format"
	lintStepNameConstant                 = "lint"
	stepDisabledMessageConstant          = "content processor step disabled"
	stepCompletedMessageConstant         = "content processor step completed"
	manifestMissingMessageConstant       = "package manifest not found, skipping dependency install"
	noDependenciesMessageConstant        = "package manifest lists no dependencies"
	dependenciesInstalledMessageConstant = "repository dependencies installed"
	logFieldStepConstant                 = "step"
	logFieldPathConstant                 = "path"
	logFieldManifestConstant             = "manifest"
	logFieldDependencyCountConstant      = "dependency_count"
)

var (
	// ErrExecutorNotConfigured indicates a processor was constructed without a tool executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrPathRequired indicates Format or Lint received an empty path.
	ErrPathRequired = errors.New(pathRequiredMessageConstant)
)

// DefaultFormatCommand formats the post in place with prettier.
func DefaultFormatCommand() []string {
	return []string{"npx", "--no-install", "prettier", "--write", PathPlaceholder}
}

// DefaultLintCommand lints and auto-fixes the post with textlint.
func DefaultLintCommand() []string {
	return []string{"npx", "--no-install", "textlint", "--fix", PathPlaceholder}
}

// DefaultInstallCommand installs the manifest dependencies globally with yarn.
func DefaultInstallCommand() []string {
	return []string{"yarn", "global", "add"}
}

// ToolExecutor is the subset of execshell.ShellExecutor used to launch tools.
type ToolExecutor interface {
	ExecuteTool(executionContext context.Context, name execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Options configure the processor commands. An empty command disables its step.
type Options struct {
	WorkingDirectory string
	FormatCommand    []string
	LintCommand      []string
	InstallCommand   []string
}

// Processor formats and lints files inside a working tree.
type Processor struct {
	executor   ToolExecutor
	fileSystem afero.Fs
	logger     *zap.Logger
	options    Options
}

// NewProcessor constructs a Processor. A nil fileSystem falls back to the OS filesystem.
func NewProcessor(executor ToolExecutor, fileSystem afero.Fs, logger *zap.Logger, options Options) (*Processor, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	options.FormatCommand = sanitizeCommand(options.FormatCommand)
	options.LintCommand = sanitizeCommand(options.LintCommand)
	options.InstallCommand = sanitizeCommand(options.InstallCommand)
	return &Processor{executor: executor, fileSystem: fileSystem, logger: logger, options: options}, nil
}

// Format runs the formatter against path.
func (processor *Processor) Format(executionContext context.Context, path string) error {
	return processor.runStep(executionContext, formatStepNameConstant, processor.options.FormatCommand, path)
}

// Lint runs the linter against path.
func (processor *Processor) Lint(executionContext context.Context, path string) error {
	return processor.runStep(executionContext, lintStepNameConstant, processor.options.LintCommand, path)
}

// InstallDependencies installs the dependencies and devDependencies declared in the
// working tree's package.json as name@version arguments to the install command.
// A missing manifest is not an error.
func (processor *Processor) InstallDependencies(executionContext context.Context) error {
	if len(processor.options.InstallCommand) == 0 {
		processor.logger.Debug(stepDisabledMessageConstant, zap.String(logFieldStepConstant, "install"))
		return nil
	}

	manifestPath := filepath.Join(processor.options.WorkingDirectory, packageManifestFileNameConstant)
	manifestContent, readError := afero.ReadFile(processor.fileSystem, manifestPath)
	if errors.Is(readError, os.ErrNotExist) {
		processor.logger.Info(manifestMissingMessageConstant, zap.String(logFieldManifestConstant, manifestPath))
		return nil
	}
	if readError != nil {
		return fmt.Errorf(manifestReadErrorTemplateConstant, manifestPath, readError)
	}

	dependencies, decodeError := parseManifestDependencies(manifestContent)
	if decodeError != nil {
		return fmt.Errorf(manifestDecodeErrorTemplateConstant, manifestPath, decodeError)
	}
	if len(dependencies) == 0 {
		processor.logger.Info(noDependenciesMessageConstant, zap.String(logFieldManifestConstant, manifestPath))
		return nil
	}

	arguments := append(append([]string{}, processor.options.InstallCommand[1:]...), dependencies...)
	_, installError := processor.executor.ExecuteTool(executionContext, execshell.CommandName(processor.options.InstallCommand[0]), execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: processor.options.WorkingDirectory,
	})
	if installError != nil {
		return fmt.Errorf(installFailedErrorTemplateConstant, installError)
	}

	processor.logger.Info(dependenciesInstalledMessageConstant, zap.Int(logFieldDependencyCountConstant, len(dependencies)))
	return nil
}

func (processor *Processor) runStep(executionContext context.Context, stepName string, command []string, path string) error {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return ErrPathRequired
	}
	if len(command) == 0 {
		processor.logger.Debug(stepDisabledMessageConstant, zap.String(logFieldStepConstant, stepName))
		return nil
	}

	_, executionError := processor.executor.ExecuteTool(executionContext, execshell.CommandName(command[0]), execshell.CommandDetails{
		Arguments:        expandArguments(command[1:], trimmedPath),
		WorkingDirectory: processor.options.WorkingDirectory,
	})
	if executionError != nil {
		return fmt.Errorf(stepFailedErrorTemplateConstant, stepName, trimmedPath, executionError)
	}

	processor.logger.Debug(stepCompletedMessageConstant,
		zap.String(logFieldStepConstant, stepName),
		zap.String(logFieldPathConstant, trimmedPath),
	)
	return nil
}

// expandArguments substitutes PathPlaceholder, appending path when no argument mentions it.
func expandArguments(arguments []string, path string) []string {
	expanded := make([]string, 0, len(arguments)+1)
	substituted := false
	for _, argument := range arguments {
		if strings.Contains(argument, PathPlaceholder) {
			substituted = true
			argument = strings.ReplaceAll(argument, PathPlaceholder, path)
		}
		expanded = append(expanded, argument)
	}
	if !substituted {
		expanded = append(expanded, path)
	}
	return expanded
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parseManifestDependencies(content []byte) ([]string, error) {
	var manifest packageManifest
	if decodeError := json.Unmarshal(content, &manifest); decodeError != nil {
		return nil, decodeError
	}
	dependencies := append(formatDependencies(manifest.Dependencies), formatDependencies(manifest.DevDependencies)...)
	return dependencies, nil
}

func formatDependencies(declared map[string]string) []string {
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	formatted := make([]string, 0, len(names))
	for _, name := range names {
		version := strings.TrimSpace(declared[name])
		if len(version) == 0 {
			formatted = append(formatted, name)
			continue
		}
		formatted = append(formatted, fmt.Sprintf(dependencyVersionTemplateConstant, name, version))
	}
	return formatted
}

func sanitizeCommand(command []string) []string {
	sanitized := make([]string, 0, len(command))
	for _, argument := range command {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
