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

package bufvalidaterule

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Resolver resolves the declared rules of descriptors.
//
// All methods return nil and no error if the descriptor declares no rules.
type Resolver interface {
	ResolveMessageConstraints(messageDescriptor protoreflect.MessageDescriptor) (*MessageConstraints, error)
	ResolveOneofConstraints(oneofDescriptor protoreflect.OneofDescriptor) (*OneofConstraints, error)
	ResolveFieldRules(fieldDescriptor protoreflect.FieldDescriptor) (*FieldRules, error)
}

// Schema declares rules in Go, keyed by the full name of the message.
type Schema map[protoreflect.FullName]*MessageSchema

// MessageSchema declares the rules of a single message.
type MessageSchema struct {
	Constraints *MessageConstraints
	// Oneofs is keyed by the name of the oneof.
	Oneofs map[protoreflect.Name]*OneofConstraints
	// Fields is keyed by the name of the field.
	Fields map[protoreflect.Name]*FieldRules
}

// NewSchemaResolver returns a new Resolver for the rules declared in schema.
//
// Extensions are never resolved.
func NewSchemaResolver(schema Schema) Resolver {
	return schemaResolver(schema)
}

// CombineResolvers returns a Resolver that returns the result of the first
// resolver that resolves any rules for a descriptor.
func CombineResolvers(resolvers ...Resolver) Resolver {
	return combinedResolver(resolvers)
}

// *** PRIVATE ***

type schemaResolver Schema

func (s schemaResolver) ResolveMessageConstraints(messageDescriptor protoreflect.MessageDescriptor) (*MessageConstraints, error) {
	if messageSchema := s[messageDescriptor.FullName()]; messageSchema != nil {
		return messageSchema.Constraints, nil
	}
	return nil, nil
}

func (s schemaResolver) ResolveOneofConstraints(oneofDescriptor protoreflect.OneofDescriptor) (*OneofConstraints, error) {
	if messageSchema := s[oneofDescriptor.Parent().FullName()]; messageSchema != nil {
		return messageSchema.Oneofs[oneofDescriptor.Name()], nil
	}
	return nil, nil
}

func (s schemaResolver) ResolveFieldRules(fieldDescriptor protoreflect.FieldDescriptor) (*FieldRules, error) {
	if fieldDescriptor.IsExtension() {
		return nil, nil
	}
	if messageSchema := s[fieldDescriptor.ContainingMessage().FullName()]; messageSchema != nil {
		return messageSchema.Fields[fieldDescriptor.Name()], nil
	}
	return nil, nil
}

type combinedResolver []Resolver

func (c combinedResolver) ResolveMessageConstraints(messageDescriptor protoreflect.MessageDescriptor) (*MessageConstraints, error) {
	for _, resolver := range c {
		constraints, err := resolver.ResolveMessageConstraints(messageDescriptor)
		if err != nil || constraints != nil {
			return constraints, err
		}
	}
	return nil, nil
}

func (c combinedResolver) ResolveOneofConstraints(oneofDescriptor protoreflect.OneofDescriptor) (*OneofConstraints, error) {
	for _, resolver := range c {
		constraints, err := resolver.ResolveOneofConstraints(oneofDescriptor)
		if err != nil || constraints != nil {
			return constraints, err
		}
	}
	return nil, nil
}

func (c combinedResolver) ResolveFieldRules(fieldDescriptor protoreflect.FieldDescriptor) (*FieldRules, error) {
	for _, resolver := range c {
		fieldRules, err := resolver.ResolveFieldRules(fieldDescriptor)
		if err != nil || fieldRules != nil {
			return fieldRules, err
		}
	}
	return nil, nil
}
