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
	"bytes"
	"encoding/hex"
	"regexp"
	"unicode/utf8"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
	"github.com/bufbuild/protoguard/private/pkg/syserror"
	"github.com/bufbuild/protoguard/private/pkg/wellknownformat"
)

type bytesEvaluator struct {
	rules   *bufvalidaterule.BytesRules
	pattern *regexp.Regexp
	in      map[string]struct{}
	notIn   map[string]struct{}
	// nil if there is no well-known format.
	wellKnown func([]byte) (Outcome, *Violation)
}

func newBytesEvaluator(rules *bufvalidaterule.BytesRules) (*bytesEvaluator, error) {
	evaluator := &bytesEvaluator{
		rules: rules,
		in:    slicesext.ToStructMap(rules.In, bytesKey),
		notIn: slicesext.ToStructMap(rules.NotIn, bytesKey),
	}
	if rules.Pattern != nil {
		pattern, err := compilePattern(*rules.Pattern)
		if err != nil {
			return nil, err
		}
		evaluator.pattern = pattern
	}
	switch rules.WellKnown {
	case bufvalidaterule.WellKnownBytesUnspecified:
	case bufvalidaterule.WellKnownBytesIP:
		evaluator.wellKnown = newWellKnownBytesCheck(CodeIP, "bytes.ip", "value must be a valid IP address", wellknownformat.IsIPBytes)
	case bufvalidaterule.WellKnownBytesIPv4:
		evaluator.wellKnown = newWellKnownBytesCheck(CodeIPv4, "bytes.ipv4", "value must be a valid IPv4 address", wellknownformat.IsIPv4Bytes)
	case bufvalidaterule.WellKnownBytesIPv6:
		evaluator.wellKnown = newWellKnownBytesCheck(CodeIPv6, "bytes.ipv6", "value must be a valid IPv6 address", wellknownformat.IsIPv6Bytes)
	default:
		return nil, syserror.Newf("unknown well-known bytes format: %v", rules.WellKnown)
	}
	return evaluator, nil
}

func (e *bytesEvaluator) evaluate(value []byte) (Outcome, *Violation) {
	rules := e.rules
	if rules.IgnoreEmpty && len(value) == 0 {
		return OutcomeSkipRest, nil
	}
	if rules.Const != nil && !bytes.Equal(value, *rules.Const) {
		return violationOutcome(CodeConst, "bytes.const", "value must equal %x", *rules.Const)
	}
	length := uint64(len(value))
	if rules.Len != nil && length != *rules.Len {
		return violationOutcome(CodeLen, "bytes.len", "value length must be %d bytes", *rules.Len)
	}
	if rules.MinLen != nil && length < *rules.MinLen {
		return violationOutcome(CodeMinLen, "bytes.min_len", "value length must be at least %d bytes", *rules.MinLen)
	}
	if rules.MaxLen != nil && length > *rules.MaxLen {
		return violationOutcome(CodeMaxLen, "bytes.max_len", "value length must be at most %d bytes", *rules.MaxLen)
	}
	if e.pattern != nil {
		if !utf8.Valid(value) {
			return violationOutcome(CodePattern, "bytes.pattern", "value must be valid UTF-8 to match regex pattern %q", e.pattern.String())
		}
		if !e.pattern.Match(value) {
			return violationOutcome(CodePattern, "bytes.pattern", "value does not match regex pattern %q", e.pattern.String())
		}
	}
	if rules.Prefix != nil && !bytes.HasPrefix(value, rules.Prefix) {
		return violationOutcome(CodePrefix, "bytes.prefix", "value does not have prefix %x", rules.Prefix)
	}
	if rules.Suffix != nil && !bytes.HasSuffix(value, rules.Suffix) {
		return violationOutcome(CodeSuffix, "bytes.suffix", "value does not have suffix %x", rules.Suffix)
	}
	if rules.Contains != nil && !bytes.Contains(value, rules.Contains) {
		return violationOutcome(CodeContains, "bytes.contains", "value does not contain %x", rules.Contains)
	}
	if len(e.in) > 0 {
		if _, ok := e.in[bytesKey(value)]; !ok {
			return violationOutcome(CodeIn, "bytes.in", "value must be in list %s", formatBytesList(rules.In))
		}
	}
	if _, ok := e.notIn[bytesKey(value)]; ok {
		return violationOutcome(CodeNotIn, "bytes.not_in", "value must not be in list %s", formatBytesList(rules.NotIn))
	}
	if e.wellKnown != nil {
		return e.wellKnown(value)
	}
	return OutcomeContinue, nil
}

func newWellKnownBytesCheck(
	code Code,
	ruleID string,
	message string,
	isValid func([]byte) bool,
) func([]byte) (Outcome, *Violation) {
	return func(value []byte) (Outcome, *Violation) {
		if isValid(value) {
			return OutcomeContinue, nil
		}
		return violationOutcome(code, ruleID, "%s", message)
	}
}

func bytesKey(value []byte) string {
	return string(value)
}

func formatBytesList(values [][]byte) string {
	return stringutil.SliceToString(slicesext.Map(values, hex.EncodeToString))
}
