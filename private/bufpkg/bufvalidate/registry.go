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
	"maps"
	"sync"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type registry struct {
	logger             *zap.Logger
	resolver           bufvalidaterule.Resolver
	now                func() time.Time
	expressionCompiler func() (*expressionCompiler, error)

	// lock serializes builds. Reads go through entries without locking.
	lock sync.Mutex
	// entries is replaced, never mutated, once published.
	entries atomic.Pointer[map[protoreflect.MessageDescriptor]*messageEntry]
	// buildCount is the number of checklists built.
	buildCount atomic.Int64
}

func newRegistry(options ...RegistryOption) *registry {
	registry := &registry{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, option := range options {
		option(registry)
	}
	if registry.resolver == nil {
		registry.resolver = defaultResolver()
	}
	now := registry.now
	registry.expressionCompiler = sync.OnceValues(func() (*expressionCompiler, error) {
		return newExpressionCompiler(now)
	})
	registry.entries.Store(&map[protoreflect.MessageDescriptor]*messageEntry{})
	return registry
}

func (r *registry) Register(messageDescriptor protoreflect.MessageDescriptor) (Checklist, error) {
	return r.register(messageDescriptor, true)
}

func (r *registry) lookup(messageDescriptor protoreflect.MessageDescriptor) (Checklist, error) {
	if entry, ok := (*r.entries.Load())[messageDescriptor]; ok {
		return entry.result()
	}
	return r.register(messageDescriptor, false)
}

func (r *registry) register(messageDescriptor protoreflect.MessageDescriptor, logDuplicate bool) (Checklist, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	entries := *r.entries.Load()
	if entry, ok := entries[messageDescriptor]; ok {
		if logDuplicate {
			r.logger.Debug(
				"message already registered",
				zap.String("message", string(messageDescriptor.FullName())),
			)
		}
		return entry.result()
	}
	clone := maps.Clone(entries)
	builder := newBuilder(r.resolver, r.now, r.expressionCompiler, clone)
	entry := builder.build(messageDescriptor)
	r.entries.Store(&clone)
	r.buildCount.Add(int64(len(builder.created)))
	r.logger.Debug(
		"message registered",
		zap.String("message", string(messageDescriptor.FullName())),
		zap.Int("built", len(builder.created)),
	)
	if entry.err != nil {
		r.logger.Warn(
			"invalid rules",
			zap.String("message", string(messageDescriptor.FullName())),
			zap.Error(entry.err),
		)
	}
	return entry.result()
}

func (*registry) isRegistry() {}
