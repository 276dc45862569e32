// Package config resolves engine settings from defaults, an optional YAML
// file, TRIZEL_* environment variables and command-line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = ".trizel.yaml"

// EnvPrefix prefixes every environment override, e.g. TRIZEL_OUTPUT_ROOT.
const EnvPrefix = "TRIZEL"

// CommitConfig names the environment variables consulted for the commit.
type CommitConfig struct {
	OverrideEnv string `mapstructure:"override_env"`
	SHAEnv      string `mapstructure:"sha_env"`
}

// Config holds all engine settings.
type Config struct {
	Profile        string       `mapstructure:"profile"`
	ProfilesFile   string       `mapstructure:"profiles_file"`
	Registry       string       `mapstructure:"registry"`
	Schema         string       `mapstructure:"schema"`
	OutputRoot     string       `mapstructure:"output_root"`
	InputScope     string       `mapstructure:"input_scope"`
	MethodRegistry string       `mapstructure:"method_registry"`
	Repository     string       `mapstructure:"repository"`
	Phase          string       `mapstructure:"phase"`
	Layout         string       `mapstructure:"layout"`
	Commit         CommitConfig `mapstructure:"commit"`

	// File is the config file actually read, if any.
	File string `mapstructure:"-"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Profile:        "",
		Registry:       "states/3I_ATLAS/state_registry.json",
		Schema:         "schema/epistemic_state.schema.json",
		OutputRoot:     "analysis_artifacts",
		InputScope:     "states/3I_ATLAS",
		MethodRegistry: "analysis/methods/method_registry.json",
		Repository:     "trizel-project/epistemic-engine",
		Phase:          "phase-3",
		Layout:         "contract",
		Commit: CommitConfig{
			OverrideEnv: "GIT_COMMIT",
			SHAEnv:      "GITHUB_SHA",
		},
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"profile":         "profile",
	"profiles":        "profiles_file",
	"registry":        "registry",
	"schema":          "schema",
	"output-root":     "output_root",
	"input-scope":     "input_scope",
	"method-registry": "method_registry",
	"layout":          "layout",
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("profile", d.Profile)
	v.SetDefault("profiles_file", d.ProfilesFile)
	v.SetDefault("registry", d.Registry)
	v.SetDefault("schema", d.Schema)
	v.SetDefault("output_root", d.OutputRoot)
	v.SetDefault("input_scope", d.InputScope)
	v.SetDefault("method_registry", d.MethodRegistry)
	v.SetDefault("repository", d.Repository)
	v.SetDefault("phase", d.Phase)
	v.SetDefault("layout", d.Layout)
	v.SetDefault("commit.override_env", d.Commit.OverrideEnv)
	v.SetDefault("commit.sha_env", d.Commit.SHAEnv)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. file may be empty, in which case
// DefaultFile is read if present; a named file must exist. flags may be
// nil; only flags the user actually set override other sources.
func Load(file string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	switch {
	case file != "":
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", file, err)
		}
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", DefaultFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("checking config %s: %w", DefaultFile, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}
