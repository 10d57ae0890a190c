package blog_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"github.com/temirov/blogatissue/cmd/cli/blog"
)

func executeResolve(testInstance *testing.T, environment map[string]string, configuredTemplate string, arguments ...string) (string, error) {
	testInstance.Helper()
	builder := &blog.ResolveCommandBuilder{
		ConfigurationProvider: func() blog.CommandConfiguration {
			configuration := blog.DefaultCommandConfiguration()
			configuration.FilePath = configuredTemplate
			return configuration
		},
		EnvironmentLookuper: envconfig.MapLookuper(environment),
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	output := &bytes.Buffer{}
	command.SetOut(output)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	command.SetContext(context.Background())
	executionError := command.Execute()
	return output.String(), executionError
}

func TestResolveCommandPrintsTarget(testInstance *testing.T) {
	testCases := []struct {
		name        string
		environment map[string]string
		configured  string
		arguments   []string
		expected    string
	}{
		{
			name:       "configured template",
			configured: "posts/{title}.md",
			arguments:  []string{"Hello World"},
			expected:   "path: posts/Hello World.md\nbranch: blog-at-issue/posts/Hello%20World.md\n",
		},
		{
			name:        "action input wins over configuration",
			environment: map[string]string{"INPUT_FILEPATH": "notes/{title}.md"},
			configured:  "posts/{title}.md",
			arguments:   []string{"a"},
			expected:    "path: notes/a.md\nbranch: blog-at-issue/notes/a.md\n",
		},
		{
			name:        "flag wins over action input",
			environment: map[string]string{"INPUT_FILEPATH": "notes/{title}.md"},
			arguments:   []string{"--filepath", "{title}.mdx", "a"},
			expected:    "path: a.mdx\nbranch: blog-at-issue/a.mdx\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			output, executionError := executeResolve(subTest, testCase.environment, testCase.configured, testCase.arguments...)
			require.NoError(subTest, executionError)
			require.Equal(subTest, testCase.expected, output)
		})
	}
}

func TestResolveCommandErrors(testInstance *testing.T) {
	_, missingTitleError := executeResolve(testInstance, nil, "posts/{title}.md")
	require.EqualError(testInstance, missingTitleError, "issue title required")

	_, missingTemplateError := executeResolve(testInstance, nil, "", "a")
	require.Error(testInstance, missingTemplateError)
}
