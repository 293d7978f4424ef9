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

package appext

import (
	"context"
	"time"

	"github.com/bufbuild/protoguard/private/pkg/app"
	"github.com/bufbuild/protoguard/private/pkg/app/applog"
	"github.com/spf13/pflag"
)

const (
	logLevelFlagName  = "log-level"
	logFormatFlagName = "log-format"
	timeoutFlagName   = "timeout"
)

type builder struct {
	appName string

	logLevel  string
	logFormat string
	timeout   time.Duration

	defaultTimeout  time.Duration
	defaultLogLevel string
}

func newBuilder(appName string, options ...BuilderOption) *builder {
	builder := &builder{
		appName:         appName,
		defaultLogLevel: "info",
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func (b *builder) BindRoot(flagSet *pflag.FlagSet) {
	flagSet.StringVar(
		&b.logLevel,
		logLevelFlagName,
		b.defaultLogLevel,
		"The log level [debug,info,warn,error]",
	)
	flagSet.StringVar(
		&b.logFormat,
		logFormatFlagName,
		"color",
		"The log format [text,color,json]",
	)
	if b.defaultTimeout > 0 {
		flagSet.DurationVar(
			&b.timeout,
			timeoutFlagName,
			b.defaultTimeout,
			`The duration until timing out, setting it to 0 means no timeout`,
		)
	}
}

func (b *builder) NewRunFunc(
	f func(context.Context, Container) error,
) func(context.Context, app.Container) error {
	return func(ctx context.Context, appContainer app.Container) error {
		return b.run(ctx, appContainer, f)
	}
}

func (b *builder) run(
	ctx context.Context,
	appContainer app.Container,
	f func(context.Context, Container) error,
) error {
	logger, err := applog.NewLogger(appContainer.Stderr(), b.logLevel, b.logFormat)
	if err != nil {
		return err
	}
	defer func() {
		// Sync fails on some terminals, which is not a command failure.
		_ = logger.Sync()
	}()
	container := newContainer(appContainer, b.appName, logger)
	if b.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return f(ctx, container)
}
