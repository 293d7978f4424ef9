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

package bufvalidate

import (
	"fmt"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/wellknownformat"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	timestampFullName protoreflect.FullName = "google.protobuf.Timestamp"
	durationFullName  protoreflect.FullName = "google.protobuf.Duration"
)

// expressionCompiler compiles CEL expressions against a shared base environment.
type expressionCompiler struct {
	env *cel.Env
	now func() time.Time
}

func newExpressionCompiler(now func() time.Time) (*expressionCompiler, error) {
	env, err := cel.NewEnv(
		cel.Lib(library{}),
		cel.Variable("now", cel.TimestampType),
		cel.DefaultUTCTimeZone(true),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, err
	}
	return &expressionCompiler{
		env: env,
		now: now,
	}, nil
}

type compiledExpression struct {
	id      string
	message string
	program cel.Program
}

// compile compiles the expressions with "this" declared as thisType.
//
// The types of file and its imports are made available to the expressions.
func (c *expressionCompiler) compile(
	expressions []*bufvalidaterule.Expression,
	thisType *cel.Type,
	file protoreflect.FileDescriptor,
) ([]*compiledExpression, error) {
	env, err := c.env.Extend(
		cel.TypeDescs(file),
		cel.Variable("this", thisType),
	)
	if err != nil {
		return nil, err
	}
	compiledExpressions := make([]*compiledExpression, 0, len(expressions))
	for _, expression := range expressions {
		if expression.Expression == "" {
			return nil, fmt.Errorf("expression %q is empty", expression.ID)
		}
		ast, issues := env.Compile(expression.Expression)
		if err := issues.Err(); err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression.ID, err)
		}
		outputType := ast.OutputType()
		if !outputType.IsAssignableType(cel.BoolType) && !outputType.IsAssignableType(cel.StringType) {
			return nil, fmt.Errorf("expression %q outputs %s, wanted either bool or string", expression.ID, outputType.String())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to program expression %q: %w", expression.ID, err)
		}
		compiledExpressions = append(
			compiledExpressions,
			&compiledExpression{
				id:      expression.ID,
				message: expression.Message,
				program: program,
			},
		)
	}
	return compiledExpressions, nil
}

// newFieldExpressionStep returns the step that evaluates expressions against a
// singular value of the field. For a repeated field, the step evaluates a
// single item.
func (c *expressionCompiler) newFieldExpressionStep(
	fieldDescriptor protoreflect.FieldDescriptor,
	expressions []*bufvalidaterule.Expression,
) (valueStep, error) {
	compiledExpressions, err := c.compile(expressions, celType(fieldDescriptor), fieldDescriptor.ParentFile())
	if err != nil {
		return nil, err
	}
	return func(value protoreflect.Value) (Outcome, *Violation) {
		this := celValue(fieldDescriptor, value)
		if this == nil {
			return OutcomeContinue, nil
		}
		if violation := c.evaluate(compiledExpressions, this); violation != nil {
			return OutcomeViolation, violation
		}
		return OutcomeContinue, nil
	}, nil
}

// newMessageExpressionCheck returns the check that evaluates expressions against
// the whole message.
func (c *expressionCompiler) newMessageExpressionCheck(
	messageDescriptor protoreflect.MessageDescriptor,
	expressions []*bufvalidaterule.Expression,
) (messageCheck, error) {
	compiledExpressions, err := c.compile(
		expressions,
		cel.ObjectType(string(messageDescriptor.FullName())),
		messageDescriptor.ParentFile(),
	)
	if err != nil {
		return nil, err
	}
	return func(message protoreflect.Message) *Violation {
		return c.evaluate(compiledExpressions, message.Interface())
	}, nil
}

func (c *expressionCompiler) evaluate(compiledExpressions []*compiledExpression, this any) *Violation {
	activation := map[string]any{
		"this": this,
		"now":  c.now(),
	}
	for _, compiledExpression := range compiledExpressions {
		// A non-nil error can still come with a value that describes the failure,
		// so the value is what decides the result.
		value, _, err := compiledExpression.program.Eval(activation)
		if value == nil {
			return newViolation(
				CodeExpression,
				compiledExpression.id,
				"expression %s failed to evaluate: %v",
				compiledExpression.id,
				err,
			)
		}
		switch result := value.Value().(type) {
		case bool:
			if result {
				continue
			}
			message := compiledExpression.message
			if message == "" {
				message = fmt.Sprintf("expression %s failed", compiledExpression.id)
			}
			return newViolation(CodeExpression, compiledExpression.id, "%s", message)
		case string:
			if result == "" {
				continue
			}
			return newViolation(CodeExpression, compiledExpression.id, "%s", result)
		default:
			return newViolation(
				CodeExpression,
				compiledExpression.id,
				"expression %s failed to evaluate: %v",
				compiledExpression.id,
				value,
			)
		}
	}
	return nil
}

func celType(fieldDescriptor protoreflect.FieldDescriptor) *cel.Type {
	switch fieldDescriptor.Kind() {
	case protoreflect.BoolKind:
		return cel.BoolType
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.EnumKind:
		return cel.IntType
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind, protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return cel.UintType
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return cel.DoubleType
	case protoreflect.StringKind:
		return cel.StringType
	case protoreflect.BytesKind:
		return cel.BytesType
	case protoreflect.MessageKind, protoreflect.GroupKind:
		switch fullName := fieldDescriptor.Message().FullName(); {
		case fullName == timestampFullName:
			return cel.TimestampType
		case fullName == durationFullName:
			return cel.DurationType
		case isWellKnownMessage(fieldDescriptor.Message()):
			return cel.DynType
		default:
			return cel.ObjectType(string(fullName))
		}
	default:
		return cel.DynType
	}
}

// celValue returns the native Go value for value, or nil for an unset message.
func celValue(fieldDescriptor protoreflect.FieldDescriptor, value protoreflect.Value) any {
	switch fieldDescriptor.Kind() {
	case protoreflect.EnumKind:
		return int64(value.Enum())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.Uint()
	case protoreflect.FloatKind:
		return value.Float()
	case protoreflect.MessageKind, protoreflect.GroupKind:
		message := value.Message()
		if !message.IsValid() {
			return nil
		}
		return message.Interface()
	default:
		return value.Interface()
	}
}

// library adds the well-known format functions to the CEL environment.
type library struct{}

func (library) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		newStringPredicate("isEmail", "string_is_email_bool", wellknownformat.IsEmail),
		newStringPredicate("isHostname", "string_is_hostname_bool", wellknownformat.IsHostname),
		newStringPredicate("isIp", "string_is_ip_bool", wellknownformat.IsIP),
		newStringPredicate("isUri", "string_is_uri_bool", wellknownformat.IsURI),
		newStringPredicate("isUriRef", "string_is_uri_ref_bool", wellknownformat.IsURIRef),
		newStringPredicate("isUuid", "string_is_uuid_bool", wellknownformat.IsUUID),
	}
}

func (library) ProgramOptions() []cel.ProgramOption {
	return nil
}

func newStringPredicate(name string, overloadID string, predicate func(string) bool) cel.EnvOption {
	return cel.Function(
		name,
		cel.MemberOverload(
			overloadID,
			[]*cel.Type{cel.StringType},
			cel.BoolType,
			cel.UnaryBinding(func(value ref.Val) ref.Val {
				s, ok := value.Value().(string)
				if !ok {
					return types.Bool(false)
				}
				return types.Bool(predicate(s))
			}),
		),
	)
}
