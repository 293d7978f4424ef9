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
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	// WellKnownStringUnspecified is no well-known format.
	WellKnownStringUnspecified WellKnownString = iota
	// WellKnownStringEmail is an email address.
	WellKnownStringEmail
	// WellKnownStringHostname is a hostname.
	WellKnownStringHostname
	// WellKnownStringIP is an IPv4 or IPv6 address.
	WellKnownStringIP
	// WellKnownStringIPv4 is an IPv4 address.
	WellKnownStringIPv4
	// WellKnownStringIPv6 is an IPv6 address.
	WellKnownStringIPv6
	// WellKnownStringURI is an absolute URI.
	WellKnownStringURI
	// WellKnownStringURIRef is a URI reference.
	WellKnownStringURIRef
	// WellKnownStringAddress is an IP address or a hostname.
	WellKnownStringAddress
	// WellKnownStringUUID is a UUID.
	WellKnownStringUUID
	// WellKnownStringHTTPHeaderName is an HTTP header name.
	WellKnownStringHTTPHeaderName
	// WellKnownStringHTTPHeaderValue is an HTTP header value.
	WellKnownStringHTTPHeaderValue
)

const (
	// WellKnownBytesUnspecified is no well-known format.
	WellKnownBytesUnspecified WellKnownBytes = iota
	// WellKnownBytesIP is a 4 or 16 byte IP address.
	WellKnownBytesIP
	// WellKnownBytesIPv4 is a 4 byte IPv4 address.
	WellKnownBytesIPv4
	// WellKnownBytesIPv6 is a 16 byte IPv6 address.
	WellKnownBytesIPv6
)

var (
	wellKnownStringToString = map[WellKnownString]string{
		WellKnownStringUnspecified:     "unspecified",
		WellKnownStringEmail:           "email",
		WellKnownStringHostname:        "hostname",
		WellKnownStringIP:              "ip",
		WellKnownStringIPv4:            "ipv4",
		WellKnownStringIPv6:            "ipv6",
		WellKnownStringURI:             "uri",
		WellKnownStringURIRef:          "uri_ref",
		WellKnownStringAddress:         "address",
		WellKnownStringUUID:            "uuid",
		WellKnownStringHTTPHeaderName:  "well_known_regex.header_name",
		WellKnownStringHTTPHeaderValue: "well_known_regex.header_value",
	}
	wellKnownBytesToString = map[WellKnownBytes]string{
		WellKnownBytesUnspecified: "unspecified",
		WellKnownBytesIP:          "ip",
		WellKnownBytesIPv4:        "ipv4",
		WellKnownBytesIPv6:        "ipv6",
	}
)

// WellKnownString is a well-known string format.
type WellKnownString int

// String implements fmt.Stringer.
func (w WellKnownString) String() string {
	if s, ok := wellKnownStringToString[w]; ok {
		return s
	}
	return strconv.Itoa(int(w))
}

// WellKnownBytes is a well-known bytes format.
type WellKnownBytes int

// String implements fmt.Stringer.
func (w WellKnownBytes) String() string {
	if s, ok := wellKnownBytesToString[w]; ok {
		return s
	}
	return strconv.Itoa(int(w))
}

// Duration is a signed span of time with the range of a
// google.protobuf.Duration, which is wider than the range of time.Duration.
//
// Durations are compared as the (Seconds, Nanos) pair after normalization, so
// values outside the range of time.Duration keep their order.
type Duration struct {
	Seconds int64
	// Nanos has the same sign as Seconds once normalized.
	Nanos int32
}

// NewDuration returns the Duration for the time.Duration.
func NewDuration(duration time.Duration) Duration {
	return normalizeDuration(int64(duration/time.Second), int64(duration%time.Second))
}

// DurationFromMessage returns the Duration for a google.protobuf.Duration message.
func DurationFromMessage(message protoreflect.Message) Duration {
	seconds, nanos := secondsAndNanos(message)
	return normalizeDuration(seconds, int64(nanos))
}

// Compare returns -1 if d is less than other, 0 if they are equal, and +1 if
// d is greater than other.
func (d Duration) Compare(other Duration) int {
	d = normalizeDuration(d.Seconds, int64(d.Nanos))
	other = normalizeDuration(other.Seconds, int64(other.Nanos))
	if c := cmp.Compare(d.Seconds, other.Seconds); c != 0 {
		return c
	}
	return cmp.Compare(d.Nanos, other.Nanos)
}

// AsDuration returns the time.Duration for d, and false if d is outside the
// range of time.Duration, in which case the returned value is saturated.
func (d Duration) AsDuration() (time.Duration, bool) {
	d = normalizeDuration(d.Seconds, int64(d.Nanos))
	seconds := time.Duration(d.Seconds)
	nanos := time.Duration(d.Nanos)
	switch {
	case seconds > math.MaxInt64/time.Second:
		return math.MaxInt64, false
	case seconds < math.MinInt64/time.Second:
		return math.MinInt64, false
	}
	base := seconds * time.Second
	switch {
	case nanos > 0 && base > math.MaxInt64-nanos:
		return math.MaxInt64, false
	case nanos < 0 && base < math.MinInt64-nanos:
		return math.MinInt64, false
	}
	return base + nanos, true
}

// String implements fmt.Stringer.
//
// Durations in the range of time.Duration are formatted by time.Duration.String,
// others as seconds with a fractional part, such as "10000000000.5s".
func (d Duration) String() string {
	if duration, ok := d.AsDuration(); ok {
		return duration.String()
	}
	d = normalizeDuration(d.Seconds, int64(d.Nanos))
	var sign string
	seconds, nanos := uint64(d.Seconds), d.Nanos
	if d.Seconds < 0 {
		// The conversion of the negation is correct for math.MinInt64 as well.
		sign, seconds, nanos = "-", uint64(-d.Seconds), -d.Nanos
	}
	value := sign + strconv.FormatUint(seconds, 10)
	if nanos != 0 {
		value += "." + strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	}
	return value + "s"
}

// TimestampFromMessage returns the time.Time in UTC for a google.protobuf.Timestamp message.
func TimestampFromMessage(message protoreflect.Message) time.Time {
	seconds, nanos := secondsAndNanos(message)
	return time.Unix(seconds, int64(nanos)).UTC()
}

// normalizeDuration carries whole seconds out of nanos and gives nanos the
// sign of seconds.
func normalizeDuration(seconds int64, nanos int64) Duration {
	carry := nanos / int64(time.Second)
	nanos %= int64(time.Second)
	switch {
	case carry > 0 && seconds > math.MaxInt64-carry:
		return Duration{Seconds: math.MaxInt64, Nanos: int32(time.Second - 1)}
	case carry < 0 && seconds < math.MinInt64-carry:
		return Duration{Seconds: math.MinInt64, Nanos: -int32(time.Second - 1)}
	}
	seconds += carry
	switch {
	case seconds > 0 && nanos < 0:
		seconds--
		nanos += int64(time.Second)
	case seconds < 0 && nanos > 0:
		seconds++
		nanos -= int64(time.Second)
	}
	return Duration{Seconds: seconds, Nanos: int32(nanos)}
}

func secondsAndNanos(message protoreflect.Message) (int64, int32) {
	fields := message.Descriptor().Fields()
	var seconds int64
	var nanos int32
	if secondsField := fields.ByName("seconds"); secondsField != nil {
		seconds = message.Get(secondsField).Int()
	}
	if nanosField := fields.ByName("nanos"); nanosField != nil {
		nanos = int32(message.Get(nanosField).Int())
	}
	return seconds, nanos
}
