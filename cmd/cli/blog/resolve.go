package blog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/temirov/blogatissue/internal/actionevent"
	"github.com/temirov/blogatissue/internal/blogsync"
)

const (
	resolveCommandUseConstant              = "resolve <title>"
	resolveCommandShortDescriptionConstant = "Print the post path and sync branch for an issue title"
	resolveCommandLongDescriptionConstant  = "resolve applies the configured file path template to a title and prints the post path and the branch a sync would push, without touching any repository."
	resolveOutputTemplateConstant          = "path: %s\nbranch: %s\n"
	titleRequiredMessageConstant           = "issue title required"
)

// ResolveCommandBuilder assembles the resolve command.
type ResolveCommandBuilder struct {
	ConfigurationProvider ConfigurationProvider
	EnvironmentLookuper   envconfig.Lookuper
}

// Build constructs the resolve command.
func (builder *ResolveCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   resolveCommandUseConstant,
		Short: resolveCommandShortDescriptionConstant,
		Long:  resolveCommandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}
	command.Flags().String(filePathFlagNameConstant, "", filePathFlagDescriptionConstant)
	return command, nil
}

func (builder *ResolveCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 || len(strings.TrimSpace(arguments[0])) == 0 {
		return errors.New(titleRequiredMessageConstant)
	}

	configuration := resolveConfiguration(builder.ConfigurationProvider)
	environment, environmentError := actionevent.LoadEnvironment(command.Context(), builder.EnvironmentLookuper)
	if environmentError != nil {
		return environmentError
	}

	filePathFlag, _ := stringFlagOverride(command, filePathFlagNameConstant)
	template := firstNonEmpty(strings.TrimSpace(filePathFlag), strings.TrimSpace(environment.FilePath), configuration.FilePath)

	target, targetError := blogsync.NewTarget(template, arguments[0], configuration.BranchPrefix)
	if targetError != nil {
		return targetError
	}

	_, writeError := fmt.Fprintf(command.OutOrStdout(), resolveOutputTemplateConstant, target.Path, target.BranchName)
	return writeError
}
