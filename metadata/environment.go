package metadata // import "github.com/sinnahq/sinna/tools/metadata"

import (
	"os"
	"strings"
)

// An AppEnvironment represents either localdev (i.e. an engineer's laptop),
// dev, staging, or prod. The tools in this module mostly run on laptops, so
// localdev is the default.
type AppEnvironment string

// Constants for the various AppEnvironments. DO NOT CHANGE THESE without
// understanding how any consumers of GetAppEnvironment() and
// GetAppEnvironmentLowercase() are using them!
const (
	EnvLocalDev AppEnvironment = "localdev"
	EnvDev      AppEnvironment = "dev"
	EnvStaging  AppEnvironment = "staging"
	EnvProd     AppEnvironment = "prod"
)

// gitCommit is set at build time with
// -ldflags "-X github.com/sinnahq/sinna/tools/metadata.gitCommit=<sha>".
var gitCommit string

// GetAppEnvironment returns the AppEnvironment of the current process. It is
// a variable so that tests can patch it.
var GetAppEnvironment func() AppEnvironment = func(unmemoized func() AppEnvironment) func() AppEnvironment {
	// This nested function syntax is used to memoize the result of the first call
	// to GetAppEnvironment() and cache the result for all future calls.

	var isCached = false
	var cache AppEnvironment

	return func() AppEnvironment {
		if isCached {
			return cache
		}
		cache = unmemoized()
		isCached = true
		return cache
	}
}(appEnvironmentFromEnv)

// appEnvironmentFromEnv holds the caching-agnostic logic of GetAppEnvironment.
func appEnvironmentFromEnv() AppEnvironment {
	env := strings.ToLower(os.Getenv("APP_ENV"))
	switch env {
	case "development", "dev":
		return EnvDev
	case "staging":
		return EnvStaging
	case "production", "prod":
		return EnvProd
	default:
		return EnvLocalDev
	}
}

// IsLocalEnv returns true if we are running locally for development.
func IsLocalEnv() bool {
	return GetAppEnvironment() == EnvLocalDev
}

// GetAppEnvironmentLowercase returns the app environment string, but just
// converted to lowercase.
func GetAppEnvironmentLowercase() string {
	return strings.ToLower(string(GetAppEnvironment()))
}

// IsRunningInCI returns true if we are running in continuous integration
// (i.e. for tests), and false otherwise.
func IsRunningInCI() bool {
	strCI := strings.ToLower(os.Getenv("CI"))
	switch strCI {
	case "1", "yes", "true", "on", "yep":
		return true
	default:
		return false
	}
}

// GetGitCommit returns the git commit hash this binary was built from, or
// "unknown" when it was built without the ldflag.
func GetGitCommit() string {
	if gitCommit == "" {
		return "unknown"
	}
	return gitCommit
}
