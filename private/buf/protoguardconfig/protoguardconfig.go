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

// Package protoguardconfig reads the protoguard.yaml configuration file.
package protoguardconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ExternalConfigPath is the path of the configuration file, relative to
	// the directory it is read from.
	ExternalConfigPath = "protoguard.yaml"

	v1 = "v1"
)

const (
	// FormatBinary is the binary wire format.
	FormatBinary = "binary"
	// FormatJSON is the protobuf JSON format.
	FormatJSON = "json"
	// FormatTxtpb is the protobuf text format.
	FormatTxtpb = "txtpb"
	// FormatYAML is the protobuf YAML format.
	FormatYAML = "yaml"
)

// Formats are the valid values of Format.
var Formats = []string{
	FormatBinary,
	FormatJSON,
	FormatTxtpb,
	FormatYAML,
}

// ExternalConfig is the configuration of protoguard.
//
// Flags override the values read from the configuration file.
type ExternalConfig struct {
	// Version must be "v1".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// ProtoPaths are the directories to resolve .proto files and imports from.
	ProtoPaths []string `json:"proto_paths,omitempty" yaml:"proto_paths,omitempty"`
	// Files are the .proto files to compile, relative to a proto path.
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
	// Type is the fully-qualified name of the message type of the inputs.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Format is the format of the inputs, one of Formats.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// LogLevel is the log level.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	// LogFormat is the log format.
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
}

// ReadExternalConfig reads the ExternalConfig from ExternalConfigPath in the
// directory.
//
// If the file does not exist, an empty v1 ExternalConfig is returned.
func ReadExternalConfig(dirPath string) (ExternalConfig, error) {
	externalConfig, err := ReadExternalConfigFile(filepath.Join(dirPath, ExternalConfigPath))
	if errors.Is(err, fs.ErrNotExist) {
		return ExternalConfig{Version: v1}, nil
	}
	return externalConfig, err
}

// ReadExternalConfigFile reads the ExternalConfig from the file.
func ReadExternalConfigFile(filePath string) (ExternalConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ExternalConfig{}, err
	}
	externalConfig, err := ParseExternalConfig(data)
	if err != nil {
		return ExternalConfig{}, fmt.Errorf("%s: %w", filePath, err)
	}
	return externalConfig, nil
}

// ParseExternalConfig parses the ExternalConfig from YAML.
//
// Unknown keys are an error.
func ParseExternalConfig(data []byte) (ExternalConfig, error) {
	var externalConfig ExternalConfig
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(&externalConfig); err != nil {
		return ExternalConfig{}, fmt.Errorf("could not unmarshal as YAML: %v", err)
	}
	switch externalConfig.Version {
	case v1:
	case "":
		return ExternalConfig{}, errors.New("version is required")
	default:
		return ExternalConfig{}, fmt.Errorf("unknown version: %s", externalConfig.Version)
	}
	if err := ValidateFormat(externalConfig.Format); err != nil {
		return ExternalConfig{}, err
	}
	return externalConfig, nil
}

// ValidateFormat returns an error if the format is not empty and not one of
// Formats.
func ValidateFormat(format string) error {
	if format == "" {
		return nil
	}
	for _, validFormat := range Formats {
		if format == validFormat {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q, must be one of %v", format, Formats)
}
