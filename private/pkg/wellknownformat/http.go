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

package wellknownformat

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// IsHTTPHeaderName returns true if s is a valid HTTP header name.
//
// In strict mode, s must be a non-empty RFC 7230 token, optionally prefixed with
// a single colon for HTTP/2 pseudo-headers. In lenient mode, s must only be
// non-empty and free of NUL, CR, and LF.
func IsHTTPHeaderName(s string, strict bool) bool {
	if !strict {
		return s != "" && !containsNULOrNewline(s)
	}
	return httpguts.ValidHeaderFieldName(strings.TrimPrefix(s, ":"))
}

// IsHTTPHeaderValue returns true if s is a valid HTTP header value.
//
// In strict mode, control characters other than horizontal tab are rejected.
// In lenient mode, only NUL, CR, and LF are rejected.
func IsHTTPHeaderValue(s string, strict bool) bool {
	if !strict {
		return !containsNULOrNewline(s)
	}
	return httpguts.ValidHeaderFieldValue(s)
}

func containsNULOrNewline(s string) bool {
	return strings.ContainsAny(s, "\x00\r\n")
}
