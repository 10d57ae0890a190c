package actionevent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	environmentErrorTemplateConstant = "read actions environment: %w"
	labelsErrorTemplateConstant      = "parse labels input %q: %w"
	labelLineSeparatorConstant       = "\n"
	labelListSeparatorConstant       = ","
	yamlFlowListPrefixConstant       = "["
	yamlBlockListPrefixConstant      = "-"
)

// Environment is the Actions runtime as seen by the process.
type Environment struct {
	Token      string `env:"INPUT_TOKEN"`
	Labels     string `env:"INPUT_LABELS"`
	FilePath   string `env:"INPUT_FILEPATH"`
	Repository string `env:"GITHUB_REPOSITORY"`
	Actor      string `env:"GITHUB_ACTOR"`
	EventName  string `env:"GITHUB_EVENT_NAME"`
	EventPath  string `env:"GITHUB_EVENT_PATH"`
	Workspace  string `env:"GITHUB_WORKSPACE"`
	ServerURL  string `env:"GITHUB_SERVER_URL, default=https://github.com"`
	APIURL     string `env:"GITHUB_API_URL, default=https://api.github.com"`
}

// LoadEnvironment decodes the Actions environment from lookuper, or from the process
// environment when lookuper is nil.
func LoadEnvironment(executionContext context.Context, lookuper envconfig.Lookuper) (Environment, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var environment Environment
	if processError := envconfig.ProcessWith(executionContext, &envconfig.Config{
		Target:   &environment,
		Lookuper: lookuper,
	}); processError != nil {
		return Environment{}, fmt.Errorf(environmentErrorTemplateConstant, processError)
	}
	return environment, nil
}

// ParseLabels accepts a YAML list (`[blog, diary]` or `- blog` lines), a newline
// separated list or a comma separated list. A blank value yields no labels.
func ParseLabels(value string) ([]string, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var candidates []string
	if strings.HasPrefix(trimmed, yamlFlowListPrefixConstant) || strings.HasPrefix(trimmed, yamlBlockListPrefixConstant) {
		if decodeError := yaml.Unmarshal([]byte(trimmed), &candidates); decodeError != nil {
			return nil, fmt.Errorf(labelsErrorTemplateConstant, value, decodeError)
		}
	} else {
		for _, line := range strings.Split(trimmed, labelLineSeparatorConstant) {
			candidates = append(candidates, strings.Split(line, labelListSeparatorConstant)...)
		}
	}

	labels := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		label := strings.TrimSpace(candidate)
		if len(label) == 0 {
			continue
		}
		if _, duplicate := seen[label]; duplicate {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels, nil
}
