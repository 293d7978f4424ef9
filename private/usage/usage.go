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

// Package usage panics if github.com/bufbuild/protoguard/private is
// imported outside of github.com/bufbuild.
//
// Packages import this package through usage.gen.go, which is written by
// cmd/protoguardprivateusage. bufvalidate, bufvalidateconnect, and the
// packages they import do not, as code generated by protoc-gen-protoguard
// imports bufvalidate from other modules.
package usage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	allowedModulePrefix = "github.com/bufbuild"

	testSuffix = ".test"
	debugBin   = "__debug_bin"
)

func init() {
	if err := check(); err != nil {
		panic(err.Error())
	}
}

func check() error {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok || buildInfo.Main.Path == "" {
		if isTestOrDebugBinary(os.Args[0]) {
			return nil
		}
		return errors.New("github.com/bufbuild/protoguard/private code must only be imported by github.com/bufbuild projects")
	}
	return checkModulePath(buildInfo.Main.Path)
}

func checkModulePath(modulePath string) error {
	if !strings.HasPrefix(modulePath, allowedModulePrefix) {
		return fmt.Errorf("github.com/bufbuild/protoguard/private code must only be imported by github.com/bufbuild projects but was used in %s", modulePath)
	}
	return nil
}

func isTestOrDebugBinary(binaryPath string) bool {
	base := strings.TrimSuffix(filepath.Base(binaryPath), ".exe")
	return strings.HasSuffix(base, testSuffix) || strings.HasPrefix(base, debugBin)
}
