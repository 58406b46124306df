// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// Prefix is the top-level key of the application tree in the config
	// file, and the environment variable prefix.
	Prefix = "bootkit"

	envPrefix = "BOOTKIT"
)

// document is the shape of the whole config file. Only the Prefix subtree is
// bound strictly; other top-level sections belong to someone else.
type document struct {
	Bootkit Properties     `mapstructure:"bootkit"`
	Rest    map[string]any `mapstructure:",remain"`
}

// Loader binds an external key-value source onto a Properties tree.
type Loader struct {
	v         *viper.Viper
	file      string
	paths     []string
	profiles  []string
	requireIt bool
}

type Option func(*Loader)

// WithFile reads exactly this file; a missing file is an error.
func WithFile(path string) Option {
	return func(l *Loader) {
		l.file = path
		l.requireIt = true
	}
}

// WithSearchPaths replaces the directories searched for application.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(l *Loader) {
		l.paths = paths
	}
}

// WithProfiles adds active profiles on top of whatever the source declares.
func WithProfiles(profiles ...string) Option {
	return func(l *Loader) {
		l.profiles = append(l.profiles, profiles...)
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		v:     viper.New(),
		paths: []string{".", "./config"},
	}
	for _, opt := range opts {
		opt(l)
	}

	l.v.SetConfigType("yaml")
	if l.file != "" {
		l.v.SetConfigFile(l.file)
	} else {
		l.v.SetConfigName("application")
		for _, p := range l.paths {
			l.v.AddConfigPath(p)
		}
	}
	// Environment variables use the prefix "BOOTKIT" and the dot character
	// in keys is replaced by an underscore. For example, "bootkit.async.corePoolSize"
	// becomes "BOOTKIT_ASYNC_COREPOOLSIZE".
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	bindEnvs(l.v, DefaultProperties(), Prefix)
	return l
}

// Load reads the configuration file (if any) and the environment, binding
// them onto a tree pre-filled with defaults. Unknown keys under the
// "bootkit" prefix are rejected.
func (l *Loader) Load() (*Properties, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.requireIt || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		slog.Debug("No config file found, using defaults and environment")
	}
	return l.decode()
}

// Watch re-reads the config file whenever it changes and hands the new tree
// to onChange. Decode failures are logged and the callback is skipped.
func (l *Loader) Watch(onChange func(*Properties)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		props, err := l.decode()
		if err != nil {
			slog.Error("Config reload failed", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		slog.Info("Config reloaded", slog.String("file", e.Name))
		onChange(props)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Properties, error) {
	doc := document{Bootkit: *DefaultProperties()}
	if err := l.v.UnmarshalExact(&doc); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", Prefix, err)
	}
	props := doc.Bootkit
	props.Profiles.Active = append(props.Profiles.Active, l.profiles...)
	return &props, nil
}

// Load is shorthand for NewLoader(opts...).Load().
func Load(opts ...Option) (*Properties, error) {
	return NewLoader(opts...).Load()
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		// Map leaves cannot be expressed as a single variable.
		if f.Type.Kind() == reflect.Map {
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."), envName(key))
	}
}

func envName(key []string) string {
	name := strings.ToUpper(strings.Join(key[1:], "_"))
	return envPrefix + "_" + name
}
