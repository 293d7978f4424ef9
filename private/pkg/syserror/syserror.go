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

// Package syserror marks errors that are bugs in protoguard.
//
// The evaluator builder returns a system error when one of its own invariants
// breaks, such as a rules variant it has no evaluator for. A system error is
// never caused by a schema or a message. Commands pass errors through Annotate
// before returning them, so that users are asked to report the bug.
package syserror

import (
	"errors"
	"fmt"
)

// bugNote is appended to system errors by Annotate.
const bugNote = "this is a bug in protoguard, please report it along with the .proto files that triggered it"

// Newf returns a new system error by calling fmt.Errorf.
func Newf(format string, args ...any) error {
	return &sysError{
		underlying: fmt.Errorf(format, args...),
	}
}

// Wrap returns err as a system error.
//
// If err is nil or already a system error, err is returned as is.
func Wrap(err error) error {
	if err == nil || Is(err) {
		return err
	}
	return &sysError{
		underlying: err,
	}
}

// Is returns true if err, or any error that err wraps, is a system error.
func Is(err error) bool {
	var target *sysError
	return errors.As(err, &target)
}

// Annotate returns err with a request to report the bug if err is or wraps a
// system error, and err otherwise.
//
// The returned error still wraps err.
func Annotate(err error) error {
	if !Is(err) {
		return err
	}
	return fmt.Errorf("%w (%s)", err, bugNote)
}

// *** PRIVATE ***

type sysError struct {
	underlying error
}

func (e *sysError) Error() string {
	return "internal error: " + e.underlying.Error()
}

func (e *sysError) Unwrap() error {
	return e.underlying
}
