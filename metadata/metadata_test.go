package metadata

import (
	"testing"

	"github.com/sinnahq/sinna/tools/utils"
)

var environmentTests = []struct {
	environmentVar string
	want           AppEnvironment
}{
	{"localdev", "localdev"},
	{"LocalDev", "localdev"},
	{"LOCALDEV", "localdev"},

	{"DEV", "dev"},
	{"development", "dev"},
	{"Dev", "dev"},

	{"staging", "staging"},
	{"Staging", "staging"},

	{"prod", "prod"},
	{"Production", "prod"},
	{"PROD", "prod"},

	{"unknown", "localdev"},
	{"", "localdev"},
}

// TestAppEnvironmentFromEnv exercises the unmemoized environment parsing,
// since GetAppEnvironment caches its first result.
func TestAppEnvironmentFromEnv(t *testing.T) {
	for _, tt := range environmentTests {
		testname := utils.Sprintf("%s,%s", tt.environmentVar, tt.want)
		t.Run(testname, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.environmentVar)

			got := appEnvironmentFromEnv()
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsLocalEnv(t *testing.T) {
	for _, tt := range environmentTests {
		want := tt.want == EnvLocalDev

		testname := utils.Sprintf("%s,%v", tt.environmentVar, want)
		t.Run(testname, func(t *testing.T) {
			getAppEnv := GetAppEnvironment
			t.Cleanup(func() { GetAppEnvironment = getAppEnv })

			env := tt.want
			GetAppEnvironment = func() AppEnvironment { return env }

			if got := IsLocalEnv(); got != want {
				t.Errorf("got %v, want %v", got, want)
			}
			if got := GetAppEnvironmentLowercase(); got != string(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsRunningInCI(t *testing.T) {
	var tests = []struct {
		ci   string
		want bool
	}{
		{"1", true},
		{"TRUE", true},
		{"yes", true},
		{"0", false},
		{"false", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ci, func(t *testing.T) {
			t.Setenv("CI", tt.ci)

			if got := IsRunningInCI(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetGitCommit(t *testing.T) {
	commit := gitCommit
	t.Cleanup(func() { gitCommit = commit })

	gitCommit = ""
	if got := GetGitCommit(); got != "unknown" {
		t.Errorf("got %s, want unknown", got)
	}

	gitCommit = "abc123"
	if got := GetGitCommit(); got != "abc123" {
		t.Errorf("got %s, want abc123", got)
	}
}
