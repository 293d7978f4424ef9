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

package bufvalidategen

import (
	"context"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate"
	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
)

const (
	bufvalidatePackage = protogen.GoImportPath("github.com/bufbuild/protoguard/private/bufpkg/bufvalidate")
	syncPackage        = protogen.GoImportPath("sync")

	generatedFileSuffix = ".protoguard.go"
	validateMethodName  = "Validate"
)

type generator struct {
	plugin *protogen.Plugin
	logger *zap.Logger
}

func newGenerator(
	plugin *protogen.Plugin,
	options ...GeneratorOption,
) *generator {
	generator := &generator{
		plugin: plugin,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(generator)
	}
	return generator
}

func (g *generator) Generate(ctx context.Context) error {
	registry := bufvalidate.NewRegistry(
		bufvalidate.RegistryWithLogger(g.logger),
	)
	for _, file := range g.plugin.Files {
		if !file.Generate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		messages := g.validatableMessages(file.Messages)
		if len(messages) == 0 {
			continue
		}
		for _, message := range messages {
			// Invalid rules fail generation instead of every Validate call.
			if _, err := registry.Register(message.Desc); err != nil {
				return err
			}
		}
		g.generateFile(file, messages)
		g.logger.Debug(
			"generated",
			zap.String("file", file.Desc.Path()),
			zap.Int("messages", len(messages)),
		)
	}
	return nil
}

// validatableMessages returns the messages and their nested messages that can
// have a Validate method, in declaration order.
func (g *generator) validatableMessages(messages []*protogen.Message) []*protogen.Message {
	var validatableMessages []*protogen.Message
	for _, message := range messages {
		if message.Desc.IsMapEntry() {
			continue
		}
		if hasValidateField(message) {
			g.logger.Warn(
				"field conflicts with the Validate method, skipping message",
				zap.String("message", string(message.Desc.FullName())),
			)
		} else {
			validatableMessages = append(validatableMessages, message)
		}
		validatableMessages = append(validatableMessages, g.validatableMessages(message.Messages)...)
	}
	return validatableMessages
}

// generateFile generates one file per .proto file, with a lazily built
// Validator shared by every message in the file.
//
// For example,
//
//	var validatorFile_foo_v1_foo_proto = sync.OnceValues(func() (bufvalidate.Validator, error) {
//		return bufvalidate.NewValidator(
//			bufvalidate.ValidatorWithMessages(
//				&Foo{},
//			),
//		)
//	})
//
//	func (x *Foo) Validate() error {
//		validator, err := validatorFile_foo_v1_foo_proto()
//		if err != nil {
//			return err
//		}
//		return validator.Validate(x)
//	}
func (g *generator) generateFile(file *protogen.File, messages []*protogen.Message) {
	f := g.plugin.NewGeneratedFile(
		file.GeneratedFilenamePrefix+generatedFileSuffix,
		file.GoImportPath,
	)
	validatorName := "validator" + file.GoDescriptorIdent.GoName
	f.P("// Code generated by protoc-gen-protoguard. DO NOT EDIT.")
	f.P("// source: ", file.Desc.Path())
	f.P()
	f.P("package ", file.GoPackageName)
	f.P()
	f.P(
		"var ", validatorName, " = ", syncPackage.Ident("OnceValues"),
		"(func() (", bufvalidatePackage.Ident("Validator"), ", error) {",
	)
	f.P("return ", bufvalidatePackage.Ident("NewValidator"), "(")
	f.P(bufvalidatePackage.Ident("ValidatorWithMessages"), "(")
	for _, message := range messages {
		f.P("&", message.GoIdent, "{},")
	}
	f.P("),")
	f.P(")")
	f.P("})")
	for _, message := range messages {
		f.P()
		generateValidateMethod(f, message, validatorName)
	}
}

func generateValidateMethod(f *protogen.GeneratedFile, message *protogen.Message, validatorName string) {
	f.P("// ", validateMethodName, " validates the message against its buf.validate rules.")
	f.P("//")
	f.P(
		"// Returns nil, a *bufvalidate.ValidationError, or a *bufvalidate.InvalidRulesError.",
	)
	f.P("func (x *", message.GoIdent, ") ", validateMethodName, "() error {")
	f.P("validator, err := ", validatorName, "()")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("return validator.Validate(x)")
	f.P("}")
}

func hasValidateField(message *protogen.Message) bool {
	for _, field := range message.Fields {
		if field.GoName == validateMethodName {
			return true
		}
	}
	for _, oneof := range message.Oneofs {
		if oneof.GoName == validateMethodName {
			return true
		}
	}
	return false
}
