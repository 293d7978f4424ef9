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

// Package generate implements protoc-gen-protoguard, a protoc plugin that
// generates Validate methods for messages.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidategen"
	"github.com/bufbuild/protoguard/private/pkg/app/applog"
	"github.com/bufbuild/protoguard/private/pkg/syserror"
	"github.com/bufbuild/protoplugin"
	"google.golang.org/protobuf/compiler/protogen"
)

const (
	logLevelParamName  = "log_level"
	logFormatParamName = "log_format"

	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultTimeout   = 10 * time.Second
)

// Main is the main.
func Main() {
	protoplugin.Main(protoplugin.HandlerFunc(handle))
}

func handle(
	ctx context.Context,
	pluginEnv protoplugin.PluginEnv,
	responseWriter protoplugin.ResponseWriter,
	request protoplugin.Request,
) error {
	responseWriter.SetFeatureProto3Optional()
	params := newParams()
	plugin, err := protogen.Options{
		ParamFunc: params.set,
	}.New(request.CodeGeneratorRequest())
	if err != nil {
		return err
	}
	logger, err := applog.NewLogger(pluginEnv.Stderr, params.logLevel, params.logFormat)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := bufvalidategen.NewGenerator(
		plugin,
		bufvalidategen.GeneratorWithLogger(logger),
	).Generate(ctx); err != nil {
		// Invalid rules are reported to protoc, which prints them and fails.
		plugin.Error(syserror.Annotate(err))
	}
	response := plugin.Response()
	if responseError := response.GetError(); responseError != "" {
		responseWriter.SetError(responseError)
		return nil
	}
	responseWriter.AddCodeGeneratorResponseFiles(response.GetFile()...)
	return nil
}

// params are the plugin parameters not handled by protogen.
type params struct {
	logLevel  string
	logFormat string
}

func newParams() *params {
	return &params{
		logLevel:  defaultLogLevel,
		logFormat: defaultLogFormat,
	}
}

func (p *params) set(name string, value string) error {
	switch name {
	case logLevelParamName:
		p.logLevel = value
	case logFormatParamName:
		p.logFormat = value
	default:
		return fmt.Errorf("unknown parameter: %q", name)
	}
	return nil
}
