// Package token resolves API tokens for the release feed.
package token

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// EnvPrefix is prepended to the provider name to form the preferred variable,
// e.g. JULESETUP_GITHUB_TOKEN.
const EnvPrefix = "JULESETUP_"

// DefaultEnvSuffix is the default suffix for environment variable names.
const DefaultEnvSuffix = "_TOKEN"

// ErrNoToken is returned when no token can be resolved.
var ErrNoToken = errors.New("no token found")

// ResolverConfig defines the token sources for a provider.
type ResolverConfig struct {
	// ProviderName builds the JULESETUP_{PROVIDER_NAME}_TOKEN variable.
	// Should be in uppercase (e.g., "GITHUB", "GITLAB").
	ProviderName string

	// Explicit is a token passed on the command line. It wins over everything.
	Explicit string

	// DefaultEnvVars are fallback environment variables to check.
	DefaultEnvVars []string

	// OptionalCLIFallback is an optional function to get a token from a CLI tool.
	OptionalCLIFallback func() string
}

// ResolveToken resolves a provider token from multiple sources.
// Priority order:
//  1. Explicit
//  2. JULESETUP_{PROVIDER_NAME}_TOKEN env var
//  3. DefaultEnvVars (e.g., GITHUB_TOKEN)
//  4. OptionalCLIFallback result
//
// Returns ErrNoToken if no token is found.
func ResolveToken(cfg ResolverConfig) (string, error) {
	if cfg.Explicit != "" {
		return cfg.Explicit, nil
	}

	if cfg.ProviderName != "" {
		if token := os.Getenv(EnvPrefix + cfg.ProviderName + DefaultEnvSuffix); token != "" {
			return token, nil
		}
	}

	for _, envVar := range cfg.DefaultEnvVars {
		if token := os.Getenv(envVar); token != "" {
			return token, nil
		}
	}

	if cfg.OptionalCLIFallback != nil {
		if token := cfg.OptionalCLIFallback(); token != "" {
			return token, nil
		}
	}

	return "", ErrNoToken
}

// Config builds a ResolverConfig with an explicit token.
func Config(providerName, explicit string) ResolverConfig {
	return ResolverConfig{
		ProviderName: providerName,
		Explicit:     explicit,
	}
}

// WithCLIFallback adds a CLI fallback function to the config.
func (c ResolverConfig) WithCLIFallback(fn func() string) ResolverConfig {
	c.OptionalCLIFallback = fn

	return c
}

// WithEnvVars adds environment variables to check.
func (c ResolverConfig) WithEnvVars(envVars ...string) ResolverConfig {
	c.DefaultEnvVars = append(c.DefaultEnvVars, envVars...)

	return c
}

// GitHub resolves a GitHub token, falling back to `gh auth token`.
func GitHub(explicit string) (string, error) {
	return ResolveToken(Config("GITHUB", explicit).
		WithEnvVars("GITHUB_TOKEN").
		WithCLIFallback(ghCLIToken))
}

// GitLab resolves a GitLab token.
func GitLab(explicit string) (string, error) {
	return ResolveToken(Config("GITLAB", explicit).WithEnvVars("GITLAB_TOKEN"))
}

// ghCLIToken attempts to get the token from the gh CLI
func ghCLIToken() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
