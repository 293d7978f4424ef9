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

// Package bufvalidatetesting builds messages with validation rules for tests.
package bufvalidatetesting

import (
	"context"
	"strings"
	"testing"

	"github.com/bufbuild/protoguard/private/bufpkg/bufprotocompile"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// DefaultFileName is the name of the file compiled by NewFile.
const DefaultFileName = "test.proto"

// File is a compiled .proto file.
type File struct {
	files bufprotocompile.Files
}

// NewFile compiles the body of a .proto file.
//
// The body is prefixed with the proto3 syntax, the package "test", and imports
// of buf/validate/validate.proto and the well-known types, unless it starts
// with a syntax or edition declaration.
func NewFile(t testing.TB, body string) *File {
	t.Helper()
	source := body
	if !strings.HasPrefix(strings.TrimSpace(body), "syntax") && !strings.HasPrefix(strings.TrimSpace(body), "edition") {
		source = header + body
	}
	files, err := bufprotocompile.Compile(
		context.Background(),
		[]string{DefaultFileName},
		bufprotocompile.CompileWithSources(
			map[string]string{
				DefaultFileName: source,
			},
		),
	)
	require.NoError(t, err)
	return &File{
		files: files,
	}
}

// Descriptor returns the descriptor of the file.
func (f *File) Descriptor() protoreflect.FileDescriptor {
	return f.files.Files()[0]
}

// FileDescriptorProtos returns the file and all of its transitive imports,
// with every file preceded by its imports.
func (f *File) FileDescriptorProtos() []*descriptorpb.FileDescriptorProto {
	var fileDescriptorProtos []*descriptorpb.FileDescriptorProto
	seen := make(map[string]struct{})
	var add func(protoreflect.FileDescriptor)
	add = func(fileDescriptor protoreflect.FileDescriptor) {
		if _, ok := seen[fileDescriptor.Path()]; ok {
			return
		}
		seen[fileDescriptor.Path()] = struct{}{}
		imports := fileDescriptor.Imports()
		for i := 0; i < imports.Len(); i++ {
			add(imports.Get(i).FileDescriptor)
		}
		fileDescriptorProtos = append(fileDescriptorProtos, protodesc.ToFileDescriptorProto(fileDescriptor))
	}
	add(f.Descriptor())
	return fileDescriptorProtos
}

// MessageDescriptor returns the descriptor of the message with the name, which
// is relative to the package of the file.
func (f *File) MessageDescriptor(t testing.TB, name string) protoreflect.MessageDescriptor {
	t.Helper()
	return f.messageType(t, name).Descriptor()
}

// NewMessage returns a new message with the name, which is relative to the
// package of the file, unmarshaled from JSON.
//
// An empty JSON string returns an empty message.
func (f *File) NewMessage(t testing.TB, name string, json string) proto.Message {
	t.Helper()
	message := f.messageType(t, name).New().Interface()
	if json == "" {
		return message
	}
	unmarshalOptions := protojson.UnmarshalOptions{
		Resolver: f.files.Resolver(),
	}
	require.NoError(t, unmarshalOptions.Unmarshal([]byte(json), message))
	return message
}

func (f *File) messageType(t testing.TB, name string) protoreflect.MessageType {
	t.Helper()
	fullName := protoreflect.FullName(name)
	if packageName := f.Descriptor().Package(); packageName != "" {
		fullName = protoreflect.FullName(string(packageName) + "." + name)
	}
	messageType, err := f.files.FindMessageByName(fullName)
	require.NoError(t, err)
	return messageType
}

const header = `syntax = "proto3";

package test;

import "buf/validate/validate.proto";
import "google/protobuf/any.proto";
import "google/protobuf/duration.proto";
import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";

`
