package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/blogatissue/internal/githubauth"
)

func TestResolveToken(t *testing.T) {
	testCases := []struct {
		name           string
		explicitValues []string
		environment    map[string]string
		processToken   string
		expectedToken  string
		expectFound    bool
	}{
		{
			name:           "explicit_value_wins",
			explicitValues: []string{"  ", "flag-token"},
			environment:    map[string]string{githubauth.EnvActionInputToken: "input-token"},
			expectedToken:  "flag-token",
			expectFound:    true,
		},
		{
			name:          "action_input_preferred_over_cli_token",
			environment:   map[string]string{githubauth.EnvActionInputToken: "input-token", githubauth.EnvGitHubCLIToken: "cli-token"},
			expectedToken: "input-token",
			expectFound:   true,
		},
		{
			name:          "process_environment_fallback",
			processToken:  "process-token",
			expectedToken: "process-token",
			expectFound:   true,
		},
		{
			name: "missing",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(githubauth.EnvActionInputToken, "")
			t.Setenv(githubauth.EnvGitHubCLIToken, "")
			t.Setenv(githubauth.EnvGitHubToken, testCase.processToken)

			token, found := githubauth.ResolveToken(testCase.explicitValues, testCase.environment)
			require.Equal(t, testCase.expectFound, found)
			require.Equal(t, testCase.expectedToken, token)
		})
	}
}
