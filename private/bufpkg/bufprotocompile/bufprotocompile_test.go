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

package bufprotocompile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestCompile(t *testing.T) {
	t.Parallel()
	files, err := Compile(
		context.Background(),
		[]string{"foo/v1/foo.proto"},
		CompileWithSources(
			map[string]string{
				"foo/v1/foo.proto": `syntax = "proto3";
package foo.v1;
import "buf/validate/validate.proto";
import "google/protobuf/duration.proto";
message Foo {
  string name = 1 [(buf.validate.field).string.min_len = 1];
  google.protobuf.Duration timeout = 2;
}
`,
			},
		),
	)
	require.NoError(t, err)
	require.Len(t, files.Files(), 1)
	assert.Equal(t, "foo/v1/foo.proto", files.Files()[0].Path())

	messageType, err := files.FindMessageByName("foo.v1.Foo")
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName("foo.v1.Foo"), messageType.Descriptor().FullName())
	message := messageType.New().Interface()
	require.NoError(
		t,
		protojson.UnmarshalOptions{Resolver: files.Resolver()}.Unmarshal(
			[]byte(`{"name": "bar", "timeout": "1s"}`),
			message,
		),
	)

	_, err = files.FindMessageByName("foo.v1.Bar")
	assert.EqualError(t, err, `message "foo.v1.Bar" not found`)
}

func TestResolverAny(t *testing.T) {
	t.Parallel()
	files, err := Compile(
		context.Background(),
		[]string{"foo.proto"},
		CompileWithSources(
			map[string]string{
				"foo.proto": `syntax = "proto3";
import "google/protobuf/any.proto";
message Foo {
  google.protobuf.Any value = 1;
}
`,
			},
		),
	)
	require.NoError(t, err)
	messageType, err := files.FindMessageByName("Foo")
	require.NoError(t, err)
	message := messageType.New().Interface()
	require.NoError(
		t,
		protojson.UnmarshalOptions{Resolver: files.Resolver()}.Unmarshal(
			[]byte(`{"value": {"@type": "type.googleapis.com/google.protobuf.Duration", "value": "1s"}}`),
			message,
		),
	)
	durationType, err := files.Resolver().FindMessageByURL("type.googleapis.com/google.protobuf.Duration")
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName("google.protobuf.Duration"), durationType.Descriptor().FullName())
	_, err = files.Resolver().FindMessageByURL("type.googleapis.com/foo.Bar")
	assert.ErrorIs(t, err, protoregistry.NotFound)
}

func TestCompileError(t *testing.T) {
	t.Parallel()
	_, err := Compile(
		context.Background(),
		[]string{"foo.proto"},
		CompileWithSources(
			map[string]string{
				"foo.proto": `syntax = "proto3";
message Foo {
  Bar bar = 1;
}
`,
			},
		),
	)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	var fileAnnotation *FileAnnotation
	require.True(t, errors.As(errs[0], &fileAnnotation))
	assert.Equal(t, "foo.proto", fileAnnotation.Path)
	assert.Equal(t, 3, fileAnnotation.Line)
	assert.Contains(t, fileAnnotation.Message, "Bar")
}

func TestFileAnnotationError(t *testing.T) {
	t.Parallel()
	assert.Equal(
		t,
		"foo.proto:1:2: bad",
		(&FileAnnotation{Path: "foo.proto", Line: 1, Column: 2, Message: "bad"}).Error(),
	)
	assert.Equal(t, "<input>:0:0: bad", (&FileAnnotation{Message: "bad"}).Error())
}
