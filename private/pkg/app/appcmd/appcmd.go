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

// Package appcmd contains helper functionality for applications using commands.
package appcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bufbuild/protoguard/private/pkg/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command is a command.
type Command struct {
	// Use is the one-line usage message.
	// Required.
	Use string
	// Short is the short message shown in the 'help' output.
	// Required if Long is set.
	Short string
	// Long is the long message shown in the 'help <this-command>' output.
	// The Short field will be prepended to the Long field with two newlines.
	// Must be unset if short is unset.
	Long string
	// Args are the expected arguments.
	Args cobra.PositionalArgs
	// Version the version of the command.
	//
	// If this is specified, a flag --version will be added to the command
	// that precedes all other functionality, and which prints the version
	// to stdout.
	Version string
	// BindFlags allows binding of flags on build.
	BindFlags func(*pflag.FlagSet)
	// BindPersistentFlags allows binding of flags on build.
	BindPersistentFlags func(*pflag.FlagSet)
	// Run is the command to run.
	// Required if there are no sub-commands.
	// Must be unset if there are sub-commands.
	Run func(context.Context, app.Container) error
	// SubCommands are the sub-commands. Optional.
	// Must be unset if there is a run function.
	SubCommands []*Command
}

// NewInvalidArgumentError creates a new invalidArgumentError, indicating that
// the error was caused by argument validation. This causes us to print the usage
// help text for the command that it is returned from.
func NewInvalidArgumentError(message string) error {
	return newInvalidArgumentError(message)
}

// NewInvalidArgumentErrorf creates a new InvalidArgumentError, indicating that
// the error was caused by argument validation. This causes us to print the usage
// help text for the command that it is returned from.
func NewInvalidArgumentErrorf(format string, args ...interface{}) error {
	return NewInvalidArgumentError(fmt.Sprintf(format, args...))
}

// IsInvalidArgumentError returns true if the error was created by
// NewInvalidArgumentError.
func IsInvalidArgumentError(err error) bool {
	var invalidArgumentError *invalidArgumentError
	return errors.As(err, &invalidArgumentError)
}

// Main runs the application using the OS container and calling os.Exit on the return value of Run.
func Main(ctx context.Context, command *Command) {
	app.Main(ctx, newRunFunc(command))
}

// Run runs the application using the container.
func Run(ctx context.Context, container app.Container, command *Command) error {
	return app.Run(ctx, container, newRunFunc(command))
}

// BindMultiple is a convenience function for binding multiple flag functions.
func BindMultiple(bindFuncs ...func(*pflag.FlagSet)) func(*pflag.FlagSet) {
	return func(flagSet *pflag.FlagSet) {
		for _, bindFunc := range bindFuncs {
			bindFunc(flagSet)
		}
	}
}

// *** PRIVATE ***

type invalidArgumentError struct {
	message string
}

func newInvalidArgumentError(message string) *invalidArgumentError {
	return &invalidArgumentError{
		message: message,
	}
}

func (e *invalidArgumentError) Error() string {
	return e.message
}

func newRunFunc(command *Command) func(context.Context, app.Container) error {
	return func(ctx context.Context, container app.Container) error {
		return run(ctx, container, command)
	}
}

func run(
	ctx context.Context,
	container app.Container,
	command *Command,
) error {
	cobraCommand, err := commandToCobra(ctx, container, command)
	if err != nil {
		return err
	}
	args := app.Args(container)
	if len(args) > 0 {
		args = args[1:]
	}
	cobraCommand.SetArgs(args)
	cobraCommand.SetOut(container.Stdout())
	cobraCommand.SetErr(container.Stderr())
	cobraCommand.SetIn(container.Stdin())
	executedCommand, err := cobraCommand.ExecuteC()
	if err != nil && IsInvalidArgumentError(err) && executedCommand != nil {
		// Usage goes to stderr so that stdout stays empty on misuse.
		executedCommand.SetOut(container.Stderr())
		_ = executedCommand.Usage()
	}
	return err
}

func commandToCobra(
	ctx context.Context,
	container app.Container,
	command *Command,
) (*cobra.Command, error) {
	if err := commandValidate(command); err != nil {
		return nil, err
	}
	cobraCommand := &cobra.Command{
		Use:           command.Use,
		Short:         strings.TrimSpace(command.Short),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	if command.Long != "" {
		cobraCommand.Long = cobraCommand.Short + "\n\n" + strings.TrimSpace(command.Long)
	}
	if command.Args != nil {
		cobraCommand.Args = func(cmd *cobra.Command, args []string) error {
			if err := command.Args(cmd, args); err != nil {
				return NewInvalidArgumentError(err.Error())
			}
			return nil
		}
	}
	if command.Version != "" {
		cobraCommand.Version = command.Version
		cobraCommand.SetVersionTemplate("{{.Version}}\n")
	}
	if command.BindFlags != nil {
		command.BindFlags(cobraCommand.Flags())
	}
	if command.BindPersistentFlags != nil {
		command.BindPersistentFlags(cobraCommand.PersistentFlags())
	}
	cobraCommand.SetFlagErrorFunc(
		func(_ *cobra.Command, err error) error {
			return NewInvalidArgumentError(err.Error())
		},
	)
	if command.Run != nil {
		cobraCommand.RunE = func(_ *cobra.Command, args []string) error {
			return command.Run(ctx, app.NewContainerForArgs(container, args...))
		}
	}
	for _, subCommand := range command.SubCommands {
		subCobraCommand, err := commandToCobra(ctx, container, subCommand)
		if err != nil {
			return nil, err
		}
		cobraCommand.AddCommand(subCobraCommand)
	}
	return cobraCommand, nil
}

func commandValidate(command *Command) error {
	if command.Use == "" {
		return errors.New("must set Command.Use")
	}
	if command.Long != "" && command.Short == "" {
		return errors.New("must set Command.Short if Command.Long is set")
	}
	if command.Run != nil && len(command.SubCommands) > 0 {
		return errors.New("cannot set both Command.Run and Command.SubCommands")
	}
	if command.Run == nil && len(command.SubCommands) == 0 {
		return errors.New("must set one of Command.Run and Command.SubCommands")
	}
	return nil
}
