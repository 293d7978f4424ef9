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

// Package protoguard implements the protoguard command, which validates
// messages against the buf.validate rules of their type.
package protoguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bufbuild/protoguard/private/buf/protoguardconfig"
	"github.com/bufbuild/protoguard/private/bufpkg/bufprotocompile"
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate"
	"github.com/bufbuild/protoguard/private/pkg/app"
	"github.com/bufbuild/protoguard/private/pkg/app/appcmd"
	"github.com/bufbuild/protoguard/private/pkg/app/appext"
	"github.com/bufbuild/protoguard/private/pkg/app/applog"
	"github.com/bufbuild/protoguard/private/pkg/protoencoding"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
	"github.com/bufbuild/protoguard/private/pkg/syserror"
	"github.com/bufbuild/protoguard/private/pkg/thread"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Version is the version of protoguard.
const Version = "0.1.0-dev"

const (
	protoPathFlagName       = "proto-path"
	protoPathFlagShortName  = "I"
	fileFlagName            = "file"
	typeFlagName            = "type"
	formatFlagName          = "format"
	configFlagName          = "config"
	disallowUnknownFlagName = "disallow-unknown"
	logLevelFlagName        = "log-level"
	logFormatFlagName       = "log-format"

	stdinInput       = "-"
	stdinDisplayName = "<stdin>"
	defaultProtoPath = "."
	defaultTimeout   = 120 * time.Second

	// InvalidExitCode is the exit code when any input is invalid.
	InvalidExitCode = 100
)

// Main is the main.
func Main(name string) {
	appcmd.Main(context.Background(), NewRootCommand(name))
}

// NewRootCommand returns a new root command.
//
// This is public for use in testing.
func NewRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(
		name,
		appext.BuilderWithTimeout(defaultTimeout),
	)
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " [input...]",
		Short: "Validate messages against the buf.validate rules of their type",
		Long: `
Each input is decoded as a message of --type, compiled from --file, and
validated. The first violation of every invalid input is printed to stdout
as "<input>: <violation>". If any input is invalid, the exit code is 100.

Inputs are read from stdin if none are given, or if an input is "-".

    $ protoguard -I proto --file foo/v1/foo.proto --type foo.v1.Foo foo.json bar.yaml

The format of an input is inferred from its extension (.json, .yaml, .yml,
.txtpb, .textproto, .binpb, .pb) unless --format is set. Stdin defaults to
json.

Flags default to the values in protoguard.yaml in the current directory, if
present:

    version: v1
    proto_paths:
      - proto
    files:
      - foo/v1/foo.proto
    type: foo.v1.Foo
`,
		Version: Version,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: appcmd.BindMultiple(builder.BindRoot, flags.Bind),
	}
}

type flags struct {
	ProtoPaths      []string
	Files           []string
	Type            string
	Format          string
	Config          string
	DisallowUnknown bool

	// special
	flagSet *pflag.FlagSet
}

func newFlags() *flags {
	return &flags{}
}

func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.flagSet = flagSet
	flagSet.StringSliceVarP(
		&f.ProtoPaths,
		protoPathFlagName,
		protoPathFlagShortName,
		nil,
		`The directories to resolve .proto files and imports from. Defaults to the current directory`,
	)
	flagSet.StringSliceVar(
		&f.Files,
		fileFlagName,
		nil,
		`The .proto files that define --type, relative to a proto path`,
	)
	flagSet.StringVar(
		&f.Type,
		typeFlagName,
		"",
		`The full type name of the inputs (e.g. acme.weather.v1.Units)`,
	)
	flagSet.StringVar(
		&f.Format,
		formatFlagName,
		"",
		fmt.Sprintf(
			`The format of the inputs. Must be one of %s`,
			stringutil.SliceToString(protoguardconfig.Formats),
		),
	)
	flagSet.StringVar(
		&f.Config,
		configFlagName,
		"",
		fmt.Sprintf(
			`The configuration file. Defaults to %s in the current directory`,
			protoguardconfig.ExternalConfigPath,
		),
	)
	flagSet.BoolVar(
		&f.DisallowUnknown,
		disallowUnknownFlagName,
		false,
		`Fail to decode json and txtpb inputs with unknown fields`,
	)
}

func (f *flags) changed(flagName string) bool {
	return f.flagSet != nil && f.flagSet.Changed(flagName)
}

func (f *flags) value(flagName string) string {
	if f.flagSet == nil {
		return ""
	}
	if flag := f.flagSet.Lookup(flagName); flag != nil {
		return flag.Value.String()
	}
	return ""
}

func run(
	ctx context.Context,
	container appext.Container,
	flags *flags,
) error {
	externalConfig, err := readExternalConfig(flags)
	if err != nil {
		return err
	}
	runOptions, err := newRunOptions(flags, externalConfig)
	if err != nil {
		return err
	}
	logger, err := loggerForConfig(container, flags, externalConfig)
	if err != nil {
		return err
	}
	inputs := app.Args(container)
	if len(inputs) == 0 {
		inputs = []string{stdinInput}
	}
	if slicesext.Count(inputs, func(input string) bool { return input == stdinInput }) > 1 {
		return appcmd.NewInvalidArgumentErrorf("stdin can only be given once as an input")
	}
	files, err := bufprotocompile.Compile(
		ctx,
		runOptions.files,
		bufprotocompile.CompileWithImportPaths(runOptions.protoPaths...),
	)
	if err != nil {
		return err
	}
	messageType, err := files.FindMessageByName(protoreflect.FullName(runOptions.typeName))
	if err != nil {
		return appcmd.NewInvalidArgumentErrorf("--%s: %v", typeFlagName, err)
	}
	validator, err := bufvalidate.NewValidator(
		bufvalidate.ValidatorWithRegistry(
			bufvalidate.NewRegistry(
				bufvalidate.RegistryWithLogger(logger),
			),
		),
		bufvalidate.ValidatorWithDescriptors(messageType.Descriptor()),
	)
	if err != nil {
		return syserror.Annotate(err)
	}
	checker := &inputChecker{
		container:       container,
		messageType:     messageType,
		validator:       validator,
		resolver:        files.Resolver(),
		format:          runOptions.format,
		disallowUnknown: runOptions.disallowUnknown,
	}
	violations := make([]string, len(inputs))
	jobs := make([]func(context.Context) error, len(inputs))
	for i, input := range inputs {
		i := i
		input := input
		jobs[i] = func(context.Context) error {
			violation, err := checker.check(input)
			if err != nil {
				return err
			}
			violations[i] = violation
			return nil
		}
	}
	if err := thread.Parallelize(ctx, jobs, thread.ParallelizeWithCancelOnFailure()); err != nil {
		return syserror.Annotate(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var numInvalid int
	for i, violation := range violations {
		if violation == "" {
			continue
		}
		numInvalid++
		if _, err := fmt.Fprintf(container.Stdout(), "%s: %s\n", displayName(inputs[i]), violation); err != nil {
			return err
		}
	}
	logger.Debug(
		"validated",
		zap.String("type", runOptions.typeName),
		zap.Int("inputs", len(inputs)),
		zap.Int("invalid", numInvalid),
	)
	if numInvalid > 0 {
		return app.NewError(InvalidExitCode, "")
	}
	return nil
}

type runOptions struct {
	protoPaths      []string
	files           []string
	typeName        string
	format          string
	disallowUnknown bool
}

// newRunOptions merges the flags over the configuration file.
func newRunOptions(flags *flags, externalConfig protoguardconfig.ExternalConfig) (*runOptions, error) {
	runOptions := &runOptions{
		protoPaths:      flags.ProtoPaths,
		files:           flags.Files,
		typeName:        flags.Type,
		format:          flags.Format,
		disallowUnknown: flags.DisallowUnknown,
	}
	if len(runOptions.protoPaths) == 0 {
		runOptions.protoPaths = externalConfig.ProtoPaths
	}
	if len(runOptions.protoPaths) == 0 {
		runOptions.protoPaths = []string{defaultProtoPath}
	}
	if len(runOptions.files) == 0 {
		runOptions.files = externalConfig.Files
	}
	if runOptions.typeName == "" {
		runOptions.typeName = externalConfig.Type
	}
	if runOptions.format == "" {
		runOptions.format = externalConfig.Format
	}
	if len(runOptions.files) == 0 {
		return nil, appcmd.NewInvalidArgumentErrorf("--%s is required", fileFlagName)
	}
	if runOptions.typeName == "" {
		return nil, appcmd.NewInvalidArgumentErrorf("--%s is required", typeFlagName)
	}
	if err := protoguardconfig.ValidateFormat(runOptions.format); err != nil {
		return nil, appcmd.NewInvalidArgumentErrorf("--%s: %v", formatFlagName, err)
	}
	return runOptions, nil
}

func readExternalConfig(flags *flags) (protoguardconfig.ExternalConfig, error) {
	if flags.Config != "" {
		return protoguardconfig.ReadExternalConfigFile(flags.Config)
	}
	return protoguardconfig.ReadExternalConfig(".")
}

// loggerForConfig returns the container's logger, unless the configuration
// file sets a log level or format that was not overridden by a flag.
func loggerForConfig(
	container appext.Container,
	flags *flags,
	externalConfig protoguardconfig.ExternalConfig,
) (*zap.Logger, error) {
	useConfigLogLevel := externalConfig.LogLevel != "" && !flags.changed(logLevelFlagName)
	useConfigLogFormat := externalConfig.LogFormat != "" && !flags.changed(logFormatFlagName)
	if !useConfigLogLevel && !useConfigLogFormat {
		return container.Logger(), nil
	}
	logLevel := flags.value(logLevelFlagName)
	if useConfigLogLevel {
		logLevel = externalConfig.LogLevel
	}
	logFormat := flags.value(logFormatFlagName)
	if useConfigLogFormat {
		logFormat = externalConfig.LogFormat
	}
	return applog.NewLogger(container.Stderr(), logLevel, logFormat)
}

type inputChecker struct {
	container       app.Container
	messageType     protoreflect.MessageType
	validator       bufvalidate.Validator
	resolver        protoencoding.Resolver
	format          string
	disallowUnknown bool
}

// check returns why the input is invalid, or the empty string if the input
// is valid.
//
// An error is returned if the input could not be read, or if the rules of the
// type are invalid.
func (c *inputChecker) check(input string) (string, error) {
	data, err := c.readInput(input)
	if err != nil {
		return "", err
	}
	format := formatForInput(input, c.format)
	message := c.messageType.New().Interface()
	if format == protoguardconfig.FormatYAML {
		// Violations are reported at the position of the YAML node.
		if err := protoencoding.NewYAMLUnmarshaler(
			c.resolver,
			protoencoding.YAMLUnmarshalerWithPath(displayName(input)),
			protoencoding.YAMLUnmarshalerWithValidator(c.validator),
		).Unmarshal(data, message); err != nil {
			return err.Error(), nil
		}
		return "", nil
	}
	if err := c.unmarshaler(format).Unmarshal(data, message); err != nil {
		return fmt.Sprintf("could not decode as %s: %v", format, err), nil
	}
	if err := c.validator.Validate(message); err != nil {
		var invalidRulesError *bufvalidate.InvalidRulesError
		if errors.As(err, &invalidRulesError) {
			return "", err
		}
		return err.Error(), nil
	}
	return "", nil
}

func (c *inputChecker) unmarshaler(format string) protoencoding.Unmarshaler {
	switch format {
	case protoguardconfig.FormatBinary:
		return protoencoding.NewWireUnmarshaler(c.resolver)
	case protoguardconfig.FormatTxtpb:
		var options []protoencoding.TxtpbUnmarshalerOption
		if c.disallowUnknown {
			options = append(options, protoencoding.TxtpbUnmarshalerWithDisallowUnknown())
		}
		return protoencoding.NewTxtpbUnmarshaler(c.resolver, options...)
	default:
		var options []protoencoding.JSONUnmarshalerOption
		if c.disallowUnknown {
			options = append(options, protoencoding.JSONUnmarshalerWithDisallowUnknown())
		}
		return protoencoding.NewJSONUnmarshaler(c.resolver, options...)
	}
}

func (c *inputChecker) readInput(input string) ([]byte, error) {
	if input == stdinInput {
		return io.ReadAll(c.container.Stdin())
	}
	return os.ReadFile(input)
}

// formatForInput returns the configured format, or the format for the
// extension of the input, defaulting to json.
func formatForInput(input string, configuredFormat string) string {
	if configuredFormat != "" {
		return configuredFormat
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".yaml", ".yml":
		return protoguardconfig.FormatYAML
	case ".txtpb", ".textproto":
		return protoguardconfig.FormatTxtpb
	case ".binpb", ".pb", ".bin":
		return protoguardconfig.FormatBinary
	default:
		return protoguardconfig.FormatJSON
	}
}

func displayName(input string) string {
	if input == stdinInput {
		return stdinDisplayName
	}
	return input
}
