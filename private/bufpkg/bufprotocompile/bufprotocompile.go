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

// Package bufprotocompile compiles .proto sources into descriptors.
package bufprotocompile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"github.com/bufbuild/protocompile/reporter"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"

	// Registers the files that compiled sources commonly import.
	_ "buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	_ "google.golang.org/protobuf/types/known/anypb"
	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

// Files are compiled files.
type Files interface {
	// Files returns the compiled files, in the order they were requested.
	Files() []protoreflect.FileDescriptor
	// FindMessageByName finds a message type across the compiled files and
	// their imports.
	FindMessageByName(fullName protoreflect.FullName) (protoreflect.MessageType, error)
	// Resolver returns a resolver of message and extension types across the
	// compiled files, usable with protojson and proto.
	//
	// Types not declared in the compiled files are resolved from
	// protoregistry.GlobalTypes, so that Any values of the well-known types
	// can be unmarshaled.
	Resolver() Resolver
}

// Resolver resolves message and extension types.
type Resolver interface {
	protoregistry.MessageTypeResolver
	protoregistry.ExtensionTypeResolver
}

// Compile compiles the files.
//
// Imports are resolved from the import paths, then from the sources given
// with CompileWithSources, then from the files registered with
// protoregistry.GlobalFiles, which include buf/validate/validate.proto and
// the well-known types.
//
// Compilation errors are returned as FileAnnotations combined with
// go.uber.org/multierr.
func Compile(ctx context.Context, fileNames []string, options ...CompileOption) (Files, error) {
	compileOptions := newCompileOptions()
	for _, option := range options {
		option(compileOptions)
	}
	var resolvers protocompile.CompositeResolver
	if len(compileOptions.importPaths) > 0 {
		resolvers = append(resolvers, &protocompile.SourceResolver{ImportPaths: compileOptions.importPaths})
	}
	if len(compileOptions.sources) > 0 {
		resolvers = append(resolvers, &protocompile.SourceResolver{Accessor: protocompile.SourceAccessorFromMap(compileOptions.sources)})
	}
	resolvers = append(resolvers, protocompile.ResolverFunc(findGlobalFile))
	var fileAnnotations []error
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolvers),
		Reporter: reporter.NewReporter(
			func(errorWithPos reporter.ErrorWithPos) error {
				fileAnnotations = append(fileAnnotations, FileAnnotationForErrorWithPos(errorWithPos))
				return nil
			},
			nil,
		),
	}
	linkerFiles, err := compiler.Compile(ctx, fileNames...)
	if err != nil {
		if len(fileAnnotations) > 0 {
			return nil, multierr.Combine(fileAnnotations...)
		}
		return nil, err
	}
	return newFiles(linkerFiles), nil
}

// CompileOption is an option for Compile.
type CompileOption func(*compileOptions)

// CompileWithImportPaths returns a new CompileOption that resolves imports
// relative to the directories.
func CompileWithImportPaths(importPaths ...string) CompileOption {
	return func(compileOptions *compileOptions) {
		compileOptions.importPaths = append(compileOptions.importPaths, importPaths...)
	}
}

// CompileWithSources returns a new CompileOption that resolves files from
// in-memory sources, keyed by path.
func CompileWithSources(sources map[string]string) CompileOption {
	return func(compileOptions *compileOptions) {
		for path, source := range sources {
			compileOptions.sources[path] = source
		}
	}
}

// FileAnnotation is a compilation error at a position in a file.
type FileAnnotation struct {
	// Path is empty if the position is not known.
	Path string
	// Line and Column are 1-based, and 0 if not known.
	Line    int
	Column  int
	Message string
}

// Error implements error.
func (f *FileAnnotation) Error() string {
	path := f.Path
	if path == "" {
		path = "<input>"
	}
	line := strconv.Itoa(f.Line)
	column := strconv.Itoa(f.Column)
	return path + ":" + line + ":" + column + ": " + f.Message
}

// FileAnnotationForErrorWithPos returns a new FileAnnotation for the ErrorWithPos.
func FileAnnotationForErrorWithPos(errorWithPos reporter.ErrorWithPos) *FileAnnotation {
	fileAnnotation := &FileAnnotation{
		Message: "Compile error.",
	}
	// this should never happen
	if errorWithPos.Unwrap() != nil {
		fileAnnotation.Message = errorWithPos.Unwrap().Error()
	}
	sourcePos := errorWithPos.GetPosition()
	if sourcePos.Filename != "" {
		fileAnnotation.Path = filepath.ToSlash(filepath.Clean(sourcePos.Filename))
	}
	if sourcePos.Line > 0 {
		fileAnnotation.Line = sourcePos.Line
	}
	if sourcePos.Col > 0 {
		fileAnnotation.Column = sourcePos.Col
	}
	return fileAnnotation
}

// *** PRIVATE ***

type compileOptions struct {
	importPaths []string
	sources     map[string]string
}

func newCompileOptions() *compileOptions {
	return &compileOptions{
		sources: make(map[string]string),
	}
}

type files struct {
	linkerFiles linker.Files
	resolver    *resolver
}

func newFiles(linkerFiles linker.Files) *files {
	return &files{
		linkerFiles: linkerFiles,
		resolver:    newResolver(linkerFiles.AsResolver(), protoregistry.GlobalTypes),
	}
}

func (f *files) Files() []protoreflect.FileDescriptor {
	fileDescriptors := make([]protoreflect.FileDescriptor, len(f.linkerFiles))
	for i, linkerFile := range f.linkerFiles {
		fileDescriptors[i] = linkerFile
	}
	return fileDescriptors
}

func (f *files) FindMessageByName(fullName protoreflect.FullName) (protoreflect.MessageType, error) {
	messageType, err := f.resolver.FindMessageByName(fullName)
	if err != nil {
		if errors.Is(err, protoregistry.NotFound) {
			return nil, fmt.Errorf("message %q not found", fullName)
		}
		return nil, err
	}
	return messageType, nil
}

func (f *files) Resolver() Resolver {
	return f.resolver
}

// resolver resolves from the compiled files first, and then from fallback.
type resolver struct {
	files    Resolver
	fallback Resolver
}

func newResolver(files Resolver, fallback Resolver) *resolver {
	return &resolver{
		files:    files,
		fallback: fallback,
	}
}

func (r *resolver) FindMessageByName(fullName protoreflect.FullName) (protoreflect.MessageType, error) {
	messageType, err := r.files.FindMessageByName(fullName)
	if errors.Is(err, protoregistry.NotFound) {
		return r.fallback.FindMessageByName(fullName)
	}
	return messageType, err
}

func (r *resolver) FindMessageByURL(url string) (protoreflect.MessageType, error) {
	messageType, err := r.files.FindMessageByURL(url)
	if errors.Is(err, protoregistry.NotFound) {
		return r.fallback.FindMessageByURL(url)
	}
	return messageType, err
}

func (r *resolver) FindExtensionByName(fullName protoreflect.FullName) (protoreflect.ExtensionType, error) {
	extensionType, err := r.files.FindExtensionByName(fullName)
	if errors.Is(err, protoregistry.NotFound) {
		return r.fallback.FindExtensionByName(fullName)
	}
	return extensionType, err
}

func (r *resolver) FindExtensionByNumber(
	messageFullName protoreflect.FullName,
	fieldNumber protoreflect.FieldNumber,
) (protoreflect.ExtensionType, error) {
	extensionType, err := r.files.FindExtensionByNumber(messageFullName, fieldNumber)
	if errors.Is(err, protoregistry.NotFound) {
		return r.fallback.FindExtensionByNumber(messageFullName, fieldNumber)
	}
	return extensionType, err
}

func findGlobalFile(path string) (protocompile.SearchResult, error) {
	fileDescriptor, err := protoregistry.GlobalFiles.FindFileByPath(path)
	if err != nil {
		return protocompile.SearchResult{}, err
	}
	return protocompile.SearchResult{Desc: fileDescriptor}, nil
}
