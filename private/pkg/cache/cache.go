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

// Package cache provides a memoizing cache.
package cache

import (
	"sync"
)

// Cache is a cache from K to V.
//
// Both values and errors are memoized. The zero value is ready to use.
// It uses double-locking to get values.
type Cache[K comparable, V any] struct {
	store map[K]*entry[V]
	lock  sync.RWMutex
}

// GetOrAdd gets the value for the key, or calls getUncached to get a new value,
// and then caches the value.
//
// getUncached must not call GetOrAdd on the same Cache.
func (c *Cache[K, V]) GetOrAdd(key K, getUncached func() (V, error)) (V, error) {
	c.lock.RLock()
	result, ok := c.store[key]
	c.lock.RUnlock()
	if ok {
		return result.value, result.err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.store == nil {
		c.store = make(map[K]*entry[V])
	}
	if result, ok := c.store[key]; ok {
		return result.value, result.err
	}
	value, err := getUncached()
	c.store[key] = &entry[V]{value: value, err: err}
	return value, err
}

// Len returns the number of cached keys.
func (c *Cache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.store)
}

type entry[V any] struct {
	value V
	err   error
}
