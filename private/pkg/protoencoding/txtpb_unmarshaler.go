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

package protoencoding

import (
	"bytes"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// txtpbMessageHeaderPrefix starts the comment that names the message type of a
// text format file, as in "# proto-message: foo.v1.Bar".
const txtpbMessageHeaderPrefix = "proto-message:"

type txtpbUnmarshaler struct {
	resolver        Resolver
	disallowUnknown bool
}

func newTxtpbUnmarshaler(resolver Resolver, options ...TxtpbUnmarshalerOption) *txtpbUnmarshaler {
	txtpbUnmarshaler := &txtpbUnmarshaler{
		resolver: resolverOrEmpty(resolver),
	}
	for _, option := range options {
		option(txtpbUnmarshaler)
	}
	return txtpbUnmarshaler
}

func (m *txtpbUnmarshaler) Unmarshal(data []byte, message proto.Message) error {
	messageFullName := message.ProtoReflect().Descriptor().FullName()
	if headerName, ok := txtpbMessageHeader(data); ok && !txtpbHeaderNames(headerName, messageFullName) {
		return fmt.Errorf("proto-message header names %q, but the input is read as %q", headerName, messageFullName)
	}
	options := prototext.UnmarshalOptions{
		Resolver:       m.resolver,
		DiscardUnknown: !m.disallowUnknown,
	}
	return options.Unmarshal(data, message)
}

// txtpbMessageHeader returns the message name from the proto-message header in
// the leading comment block of data.
func txtpbMessageHeader(data []byte) (string, bool) {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		comment, ok := bytes.CutPrefix(line, []byte("#"))
		if !ok {
			return "", false
		}
		if name, ok := strings.CutPrefix(strings.TrimSpace(string(comment)), txtpbMessageHeaderPrefix); ok {
			return strings.TrimSpace(name), true
		}
	}
	return "", false
}

// txtpbHeaderNames returns true if the header name is the full name of the
// message, or a suffix of it at a package or message boundary.
func txtpbHeaderNames(headerName string, messageFullName protoreflect.FullName) bool {
	headerName = strings.TrimPrefix(headerName, ".")
	fullName := string(messageFullName)
	return headerName == fullName || strings.HasSuffix(fullName, "."+headerName)
}
