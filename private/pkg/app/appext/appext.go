// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package appext contains functionality to work with flags.
package appext

import (
	"context"
	"time"

	"github.com/bufbuild/protoguard/private/pkg/app"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// NameContainer is a container for named applications.
type NameContainer interface {
	// AppName is the application name.
	AppName() string
}

// LoggerContainer provides a *zap.Logger.
type LoggerContainer interface {
	Logger() *zap.Logger
}

// Container contains not just the base app container, but all extended containers.
type Container interface {
	app.Container
	NameContainer
	LoggerContainer
}

// NewContainer returns a new Container.
func NewContainer(
	baseContainer app.Container,
	appName string,
	logger *zap.Logger,
) Container {
	return newContainer(
		baseContainer,
		appName,
		logger,
	)
}

// Builder builds run functions for both top-level commands and sub-commands.
type Builder interface {
	// BindRoot binds the flags shared by all commands.
	BindRoot(flagSet *pflag.FlagSet)
	// NewRunFunc returns a run function that builds the logger from the
	// bound flags and applies the timeout, if any.
	NewRunFunc(func(context.Context, Container) error) func(context.Context, app.Container) error
}

// NewBuilder returns a new Builder.
func NewBuilder(appName string, options ...BuilderOption) Builder {
	return newBuilder(appName, options...)
}

// BuilderOption is an option for a new Builder
type BuilderOption func(*builder)

// BuilderWithTimeout returns a new BuilderOption that adds a timeout flag and the default timeout.
func BuilderWithTimeout(defaultTimeout time.Duration) BuilderOption {
	return func(builder *builder) {
		builder.defaultTimeout = defaultTimeout
	}
}

// BuilderWithDefaultLogLevel adds the given default log level.
func BuilderWithDefaultLogLevel(defaultLogLevel string) BuilderOption {
	return func(builder *builder) {
		builder.defaultLogLevel = defaultLogLevel
	}
}
