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

// Package slicesext provides extra functionality for slices.
package slicesext

// Map maps the slice.
func Map[T1, T2 any](s []T1, f func(T1) T2) []T2 {
	if s == nil {
		return nil
	}
	sl := make([]T2, len(s))
	for i, e := range s {
		sl[i] = f(e)
	}
	return sl
}

// Count returns the number of values where f returns true.
func Count[T any](s []T, f func(T) bool) int {
	var count int
	for _, e := range s {
		if f(e) {
			count++
		}
	}
	return count
}

// ToStructMap converts the slice to a map with struct{} values.
func ToStructMap[K comparable, T any](s []T, f func(T) K) map[K]struct{} {
	m := make(map[K]struct{}, len(s))
	for _, e := range s {
		m[f(e)] = struct{}{}
	}
	return m
}

// Duplicates returns duplicate values in the slice.
//
// Duplicates will be added in the order that they are found.
func Duplicates[T comparable](s []T) []T {
	count := make(map[T]int, len(s))
	var duplicates []T
	for _, e := range s {
		count[e]++
		if count[e] == 2 {
			duplicates = append(duplicates, e)
		}
	}
	return duplicates
}
