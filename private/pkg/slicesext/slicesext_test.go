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

package slicesext

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Map[int, string](nil, strconv.Itoa))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
}

func TestCount(t *testing.T) {
	t.Parallel()
	isEven := func(i int) bool { return i%2 == 0 }
	assert.Equal(t, 0, Count(nil, isEven))
	assert.Equal(t, 2, Count([]int{1, 2, 3, 4}, isEven))
}

func TestToStructMap(t *testing.T) {
	t.Parallel()
	assert.Equal(
		t,
		map[string]struct{}{"1": {}, "2": {}},
		ToStructMap([]int{1, 2, 1}, strconv.Itoa),
	)
}

func TestDuplicates(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Duplicates([]string{"a", "b"}))
	assert.Equal(t, []string{"b", "a"}, Duplicates([]string{"a", "b", "b", "a", "a"}))
}
