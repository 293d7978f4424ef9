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

// Package bufvalidategen generates Validate methods for Go messages with
// buf.validate rules.
package bufvalidategen

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
)

// Validator is the interface implemented by messages with generated
// Validate methods.
type Validator interface {
	Validate() error
}

// Generator generates a .protoguard.go file for every generated .proto file
// that defines messages.
//
// Each message gets a Validate method backed by a bufvalidate.Validator that
// is built the first time any message in the file is validated.
type Generator interface {
	// Generate returns a *bufvalidate.InvalidRulesError if the rules of any
	// message are invalid.
	Generate(ctx context.Context) error
}

// NewGenerator returns a new Generator backed by the given plugin.
func NewGenerator(plugin *protogen.Plugin, options ...GeneratorOption) Generator {
	return newGenerator(plugin, options...)
}

// GeneratorOption is an option for a new Generator.
type GeneratorOption func(*generator)

// GeneratorWithLogger returns a new GeneratorOption that sets the logger.
//
// The default is zap.NewNop().
func GeneratorWithLogger(logger *zap.Logger) GeneratorOption {
	return func(generator *generator) {
		generator.logger = logger
	}
}
