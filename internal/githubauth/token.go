package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted for a GitHub token, in order of preference.
const (
	EnvActionInputToken = "INPUT_TOKEN"
	EnvGitHubCLIToken   = "GH_TOKEN"
	EnvGitHubToken      = "GITHUB_TOKEN"
)

var tokenPreference = []string{
	EnvActionInputToken,
	EnvGitHubCLIToken,
	EnvGitHubToken,
}

// ResolveToken returns the first non-empty token found in the provided values
// (already resolved inputs first), the environment map, then the process environment.
func ResolveToken(explicitValues []string, environment map[string]string) (string, bool) {
	for _, explicitValue := range explicitValues {
		if trimmed := strings.TrimSpace(explicitValue); len(trimmed) > 0 {
			return trimmed, true
		}
	}
	for _, key := range tokenPreference {
		if value, ok := lookup(environment, key); ok {
			return value, true
		}
	}
	for _, key := range tokenPreference {
		if value, ok := os.LookupEnv(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value, true
			}
		}
	}
	return "", false
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
