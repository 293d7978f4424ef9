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
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/cache"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
	"github.com/bufbuild/protoguard/private/pkg/syserror"
	"github.com/bufbuild/protoguard/private/pkg/wellknownformat"
)

// Compiled regexps are immutable, so they are shared by all registries.
var patternCache cache.Cache[string, *regexp.Regexp]

type stringEvaluator struct {
	rules     *bufvalidaterule.StringRules
	pattern   *regexp.Regexp
	in        map[string]struct{}
	notIn     map[string]struct{}
	wellKnown *wellKnownStringCheck
}

type wellKnownStringCheck struct {
	code    Code
	ruleID  string
	message string
	isValid func(string) bool
}

func newStringEvaluator(rules *bufvalidaterule.StringRules) (*stringEvaluator, error) {
	evaluator := &stringEvaluator{
		rules: rules,
		in:    slicesext.ToStructMap(rules.In, identity[string]),
		notIn: slicesext.ToStructMap(rules.NotIn, identity[string]),
	}
	if rules.Pattern != nil {
		pattern, err := compilePattern(*rules.Pattern)
		if err != nil {
			return nil, err
		}
		evaluator.pattern = pattern
	}
	if rules.WellKnown != bufvalidaterule.WellKnownStringUnspecified {
		wellKnown, err := newWellKnownStringCheck(rules.WellKnown, !rules.Lenient)
		if err != nil {
			return nil, err
		}
		evaluator.wellKnown = wellKnown
	}
	return evaluator, nil
}

func (e *stringEvaluator) evaluate(value string) (Outcome, *Violation) {
	rules := e.rules
	if rules.IgnoreEmpty && value == "" {
		return OutcomeSkipRest, nil
	}
	if rules.Const != nil && value != *rules.Const {
		return violationOutcome(CodeConst, "string.const", "value must equal %q", *rules.Const)
	}
	if rules.Len != nil || rules.MinLen != nil || rules.MaxLen != nil {
		length := uint64(utf8.RuneCountInString(value))
		if rules.Len != nil && length != *rules.Len {
			return violationOutcome(CodeLen, "string.len", "value length must be %d characters", *rules.Len)
		}
		if rules.MinLen != nil && length < *rules.MinLen {
			return violationOutcome(CodeMinLen, "string.min_len", "value length must be at least %d characters", *rules.MinLen)
		}
		if rules.MaxLen != nil && length > *rules.MaxLen {
			return violationOutcome(CodeMaxLen, "string.max_len", "value length must be at most %d characters", *rules.MaxLen)
		}
	}
	length := uint64(len(value))
	if rules.LenBytes != nil && length != *rules.LenBytes {
		return violationOutcome(CodeLenBytes, "string.len_bytes", "value length must be %d bytes", *rules.LenBytes)
	}
	if rules.MinBytes != nil && length < *rules.MinBytes {
		return violationOutcome(CodeMinBytes, "string.min_bytes", "value length must be at least %d bytes", *rules.MinBytes)
	}
	if rules.MaxBytes != nil && length > *rules.MaxBytes {
		return violationOutcome(CodeMaxBytes, "string.max_bytes", "value length must be at most %d bytes", *rules.MaxBytes)
	}
	if e.pattern != nil && !e.pattern.MatchString(value) {
		return violationOutcome(CodePattern, "string.pattern", "value does not match regex pattern %q", e.pattern.String())
	}
	if rules.Prefix != nil && !strings.HasPrefix(value, *rules.Prefix) {
		return violationOutcome(CodePrefix, "string.prefix", "value does not have prefix %q", *rules.Prefix)
	}
	if rules.Suffix != nil && !strings.HasSuffix(value, *rules.Suffix) {
		return violationOutcome(CodeSuffix, "string.suffix", "value does not have suffix %q", *rules.Suffix)
	}
	if rules.Contains != nil && !strings.Contains(value, *rules.Contains) {
		return violationOutcome(CodeContains, "string.contains", "value does not contain substring %q", *rules.Contains)
	}
	if rules.NotContains != nil && strings.Contains(value, *rules.NotContains) {
		return violationOutcome(CodeNotContains, "string.not_contains", "value contains substring %q", *rules.NotContains)
	}
	if len(e.in) > 0 {
		if _, ok := e.in[value]; !ok {
			return violationOutcome(CodeIn, "string.in", "value must be in list %s", formatStrings(rules.In))
		}
	}
	if _, ok := e.notIn[value]; ok {
		return violationOutcome(CodeNotIn, "string.not_in", "value must not be in list %s", formatStrings(rules.NotIn))
	}
	if e.wellKnown != nil && !e.wellKnown.isValid(value) {
		return OutcomeViolation, newViolation(e.wellKnown.code, e.wellKnown.ruleID, "%s", e.wellKnown.message)
	}
	return OutcomeContinue, nil
}

func newWellKnownStringCheck(wellKnown bufvalidaterule.WellKnownString, strict bool) (*wellKnownStringCheck, error) {
	check := &wellKnownStringCheck{
		ruleID: "string." + wellKnown.String(),
	}
	switch wellKnown {
	case bufvalidaterule.WellKnownStringEmail:
		check.code, check.message, check.isValid = CodeEmail, "value must be a valid email address", wellknownformat.IsEmail
	case bufvalidaterule.WellKnownStringHostname:
		check.code, check.message, check.isValid = CodeHostname, "value must be a valid hostname", wellknownformat.IsHostname
	case bufvalidaterule.WellKnownStringIP:
		check.code, check.message, check.isValid = CodeIP, "value must be a valid IP address", wellknownformat.IsIP
	case bufvalidaterule.WellKnownStringIPv4:
		check.code, check.message, check.isValid = CodeIPv4, "value must be a valid IPv4 address", wellknownformat.IsIPv4
	case bufvalidaterule.WellKnownStringIPv6:
		check.code, check.message, check.isValid = CodeIPv6, "value must be a valid IPv6 address", wellknownformat.IsIPv6
	case bufvalidaterule.WellKnownStringURI:
		check.code, check.message, check.isValid = CodeURI, "value must be a valid URI", wellknownformat.IsURI
	case bufvalidaterule.WellKnownStringURIRef:
		check.code, check.message, check.isValid = CodeURIRef, "value must be a valid URI reference", wellknownformat.IsURIRef
	case bufvalidaterule.WellKnownStringAddress:
		check.code, check.message, check.isValid = CodeAddress, "value must be a valid hostname or IP address", wellknownformat.IsAddress
	case bufvalidaterule.WellKnownStringUUID:
		check.code, check.message, check.isValid = CodeUUID, "value must be a valid UUID", wellknownformat.IsUUID
	case bufvalidaterule.WellKnownStringHTTPHeaderName:
		check.code, check.message = CodeHTTPHeaderName, "value must be a valid HTTP header name"
		check.isValid = func(value string) bool {
			return wellknownformat.IsHTTPHeaderName(value, strict)
		}
	case bufvalidaterule.WellKnownStringHTTPHeaderValue:
		check.code, check.message = CodeHTTPHeaderValue, "value must be a valid HTTP header value"
		check.isValid = func(value string) bool {
			return wellknownformat.IsHTTPHeaderValue(value, strict)
		}
	default:
		return nil, syserror.Newf("unknown well-known string format: %v", wellKnown)
	}
	return check, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return patternCache.GetOrAdd(pattern, func() (*regexp.Regexp, error) {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		return compiled, nil
	})
}

func formatStrings(values []string) string {
	return stringutil.SliceToString(slicesext.Map(values, strconv.Quote))
}

func violationOutcome(code Code, ruleID string, format string, args ...any) (Outcome, *Violation) {
	return OutcomeViolation, newViolation(code, ruleID, format, args...)
}

func identity[T any](value T) T {
	return value
}
