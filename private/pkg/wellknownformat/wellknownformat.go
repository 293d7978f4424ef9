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

// Package wellknownformat validates the content shape of strings and bytes,
// such as email addresses, hostnames, IP addresses, URIs, and UUIDs.
//
// All functions are pure and safe for concurrent use.
package wellknownformat

import (
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"github.com/bufbuild/protoguard/private/pkg/stringutil"
)

const (
	maxHostnameLength  = 253
	maxLabelLength     = 63
	maxEmailLocalBytes = 64
)

var uuidRegexp = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsHostname returns true if s is a valid hostname.
//
// The hostname is compared case-insensitively and may have a single trailing dot.
// It may be at most 253 characters long, and each dot-separated label must be
// 1 to 63 characters of ASCII letters, digits, or hyphens, not starting or
// ending with a hyphen.
func IsHostname(s string) bool {
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	if s == "" || len(s) > maxHostnameLength {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !isHostnameLabel(label) {
			return false
		}
	}
	return true
}

// IsEmail returns true if s is a bare RFC 5322 address such as "foo@bar.com".
//
// Display names and angle brackets are not accepted, and the domain must be a
// valid hostname.
func IsEmail(s string) bool {
	address, err := mail.ParseAddress(s)
	if err != nil || address.Name != "" || address.Address != s {
		return false
	}
	atIndex := strings.LastIndexByte(s, '@')
	if atIndex <= 0 || atIndex > maxEmailLocalBytes {
		return false
	}
	return IsHostname(s[atIndex+1:])
}

// IsIP returns true if s is a textual IPv4 or IPv6 address.
func IsIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsIPv4 returns true if s is a textual IPv4 address.
func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// IsIPv6 returns true if s is a textual IPv6 address.
func IsIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6()
}

// IsAddress returns true if s is either an IP address or a hostname.
func IsAddress(s string) bool {
	return IsIP(s) || IsHostname(s)
}

// IsURI returns true if s is an absolute URI, that is it parses and has a scheme.
func IsURI(s string) bool {
	uri, err := url.Parse(s)
	return err == nil && uri.Scheme != ""
}

// IsURIRef returns true if s is a URI reference. Relative references are allowed.
func IsURIRef(s string) bool {
	_, err := url.Parse(s)
	return err == nil
}

// IsUUID returns true if s is a UUID in the canonical 8-4-4-4-12 hexadecimal form.
//
// Hex digits may be upper or lower case.
func IsUUID(s string) bool {
	return uuidRegexp.MatchString(s)
}

// IsIPBytes returns true if b has the length of an IPv4 or IPv6 address.
func IsIPBytes(b []byte) bool {
	return IsIPv4Bytes(b) || IsIPv6Bytes(b)
}

// IsIPv4Bytes returns true if b has the length of an IPv4 address.
func IsIPv4Bytes(b []byte) bool {
	return len(b) == 4
}

// IsIPv6Bytes returns true if b has the length of an IPv6 address.
func IsIPv6Bytes(b []byte) bool {
	return len(b) == 16
}

func isHostnameLabel(label string) bool {
	if label == "" || len(label) > maxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		if r != '-' && !stringutil.IsASCIIAlphanumeric(r) {
			return false
		}
	}
	return true
}
