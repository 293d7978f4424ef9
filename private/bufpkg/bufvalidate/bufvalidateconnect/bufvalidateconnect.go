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

// Package bufvalidateconnect validates Connect requests.
package bufvalidateconnect

import (
	"context"
	"errors"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"connectrpc.com/connect"
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate"
	"google.golang.org/protobuf/proto"
)

// NewInterceptor returns a new Connect Interceptor that validates requests
// with the Validator.
//
// Unary requests and the messages of client and bidi streams are validated:
// on the client before they are sent, on the handler after they are received.
// Responses are never validated.
//
// Invalid messages fail with connect.CodeInvalidArgument and a
// buf.validate.Violations error detail. Messages with invalid rules fail
// with connect.CodeInternal.
func NewInterceptor(validator bufvalidate.Validator) connect.Interceptor {
	return &interceptor{
		validator: validator,
	}
}

// NewError returns the Connect error for an error returned by a Validator.
//
// Returns nil if err is nil.
func NewError(err error) *connect.Error {
	if err == nil {
		return nil
	}
	var validationError *bufvalidate.ValidationError
	if !errors.As(err, &validationError) {
		return connect.NewError(connect.CodeInternal, err)
	}
	connectError := connect.NewError(connect.CodeInvalidArgument, err)
	if errorDetail, detailErr := connect.NewErrorDetail(violationsForError(validationError)); detailErr == nil {
		connectError.AddDetail(errorDetail)
	}
	return connectError
}

// *** PRIVATE ***

type interceptor struct {
	validator bufvalidate.Validator
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, request connect.AnyRequest) (connect.AnyResponse, error) {
		if err := i.validate(request.Any()); err != nil {
			return nil, err
		}
		return next(ctx, request)
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		return &streamingClientConn{
			StreamingClientConn: next(ctx, spec),
			interceptor:         i,
		}
	}
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		return next(
			ctx,
			&streamingHandlerConn{
				StreamingHandlerConn: conn,
				interceptor:          i,
			},
		)
	}
}

// validate returns nil for values that are not messages.
func (i *interceptor) validate(value any) error {
	message, ok := value.(proto.Message)
	if !ok {
		return nil
	}
	if err := i.validator.Validate(message); err != nil {
		return NewError(err)
	}
	return nil
}

type streamingClientConn struct {
	connect.StreamingClientConn

	interceptor *interceptor
}

func (s *streamingClientConn) Send(message any) error {
	if err := s.interceptor.validate(message); err != nil {
		return err
	}
	return s.StreamingClientConn.Send(message)
}

type streamingHandlerConn struct {
	connect.StreamingHandlerConn

	interceptor *interceptor
}

func (s *streamingHandlerConn) Receive(message any) error {
	if err := s.StreamingHandlerConn.Receive(message); err != nil {
		return err
	}
	return s.interceptor.validate(message)
}

func violationsForError(validationError *bufvalidate.ValidationError) *validate.Violations {
	violation := validationError.Violation
	if violation == nil {
		return &validate.Violations{}
	}
	deepest := violation.Deepest()
	return &validate.Violations{
		Violations: []*validate.Violation{
			{
				FieldPath:    violation.FieldPath,
				ConstraintId: deepest.RuleID,
				Message:      deepest.Message,
			},
		},
	}
}
