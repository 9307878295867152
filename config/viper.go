// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileFlag is the command line flag that names a configuration file
const FileFlag = "file"

// Option is a configuration step applied to a Viper instance
type Option func(*viper.Viper) error

// AddConfigPaths adds each path to the Viper search path
func AddConfigPaths(paths ...string) Option {
	return func(v *viper.Viper) error {
		for _, p := range paths {
			v.AddConfigPath(p)
		}

		return nil
	}
}

// StdOptions applies the standard *nix-style configuration paths, binds environment
// variables prefixed with the application name, and binds the given flags.
// Nested keys map to environment variables with underscores, e.g. CAUSALTRACE_TRACER_TOPIC.
func StdOptions(applicationName string, fs *pflag.FlagSet) Option {
	return func(v *viper.Viper) error {
		AddConfigPaths(
			fmt.Sprintf("/etc/%s", applicationName),
			fmt.Sprintf("$HOME/.%s", applicationName),
			".",
		)(v)

		v.SetConfigName(applicationName)
		v.SetEnvPrefix(applicationName)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if fs != nil {
			return v.BindPFlags(fs)
		}

		return nil
	}
}

// BindConfigFile uses the value of the given flag, if set, as the fully-qualified path
// of the configuration file
func BindConfigFile(fs *pflag.FlagSet, flag string) Option {
	return func(v *viper.Viper) error {
		if fs == nil {
			return nil
		}

		if f := fs.Lookup(flag); f != nil {
			if configFile := f.Value.String(); len(configFile) > 0 {
				v.SetConfigFile(configFile)
			}
		}

		return nil
	}
}

// Defaults is a table of default values, keyed by viper key
type Defaults map[string]interface{}

// ApplyDefaults returns an Option that sets each default
func ApplyDefaults(d Defaults) Option {
	return func(v *viper.Viper) error {
		for key, value := range d {
			v.SetDefault(key, value)
		}

		return nil
	}
}

// Configure applies options, in order, to a Viper instance.  The first error
// aborts configuration.
func Configure(v *viper.Viper, o ...Option) (*viper.Viper, error) {
	for _, f := range o {
		if err := f(v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// NewViper parses the command line and produces the application's Viper environment.
// A missing configuration file is not an error unless one was named on the command line.
func NewViper(fs *pflag.FlagSet, arguments []string) (*viper.Viper, error) {
	if err := fs.Parse(arguments); err != nil {
		return nil, err
	}

	v, err := Configure(
		viper.New(),
		StdOptions(ApplicationName, fs),
		BindConfigFile(fs, FileFlag),
		ApplyDefaults(DefaultValues),
	)

	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return v, nil
}
