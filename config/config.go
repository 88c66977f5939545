// Package config loads the settings of the tools in this module. Every tool
// layers, from lowest to highest precedence, built-in defaults, an optional
// TOML file, environment variables and command line flags, using koanf.
package config // import "github.com/sinnahq/sinna/tools/config"

import (
	"flag"
	"io"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/basicflag"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/sinnahq/sinna/tools/utils"
)

// newFlagSet returns a flag set that reports errors instead of exiting, and
// prints usage to the given writer.
func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		f.SetOutput(output)
	}
	return f
}

// loadDefaults loads the built-in defaults.
func loadDefaults(k *koanf.Koanf, defaults map[string]interface{}) error {
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return utils.MakeError("error loading defaults to config: %s", err)
	}
	return nil
}

// loadFile loads a TOML config file, if a path was given.
func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return utils.MakeError("error loading config file %s: %s", path, err)
	}
	return nil
}

// loadEnv loads the environment variables named in mapping into the koanf
// keys they map to. All other variables are ignored. A variable that is
// exported but empty counts as unset, so it never shadows a default.
func loadEnv(k *koanf.Koanf, mapping map[string]string) error {
	err := k.Load(env.ProviderWithValue("", ".", func(key string, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return mapping[key], value
	}), nil)
	if err != nil {
		return utils.MakeError("error loading environment to config: %s", err)
	}
	return nil
}

// loadFlags parses args and loads every flag, defaults included, into a
// koanf instance of its own. Keeping flags apart means a flag's default value
// never shadows a value that came from the file or the environment; callers
// only let a flag win when it was set to something other than its zero value.
func loadFlags(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	fk := koanf.New(".")
	if err := fk.Load(basicflag.Provider(f, "."), nil); err != nil {
		return nil, utils.MakeError("error loading flags to config: %s", err)
	}
	return fk, nil
}

// firstNonEmpty returns the first non-empty string, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitList splits a comma separated flag value, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
