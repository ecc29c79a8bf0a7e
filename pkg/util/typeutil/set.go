// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typeutil

import (
	"cmp"
	"maps"
	"slices"
)

// Set 是基于 map 的集合，非并发安全，零值可读不可写。
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](elements ...T) Set[T] {
	set := make(Set[T], len(elements))
	set.Insert(elements...)
	return set
}

// Insert 插入元素，已存在的元素忽略。
func (set Set[T]) Insert(elements ...T) {
	for _, e := range elements {
		set[e] = struct{}{}
	}
}

// Contain 判断 elements 是否全部在集合中。
func (set Set[T]) Contain(elements ...T) bool {
	for _, e := range elements {
		if _, ok := set[e]; !ok {
			return false
		}
	}
	return true
}

func (set Set[T]) Remove(elements ...T) {
	for _, e := range elements {
		delete(set, e)
	}
}

// TryRemove 移除 element，不存在时返回 false。
func (set Set[T]) TryRemove(element T) bool {
	if !set.Contain(element) {
		return false
	}
	delete(set, element)
	return true
}

// Collect 返回全部元素，顺序不固定；空集合返回非 nil 的空切片。
func (set Set[T]) Collect() []T {
	return slices.AppendSeq(make([]T, 0, len(set)), maps.Keys(set))
}

func (set Set[T]) Len() int {
	return len(set)
}

// SortedCollect 返回升序排列的元素，用于日志与接口输出。
func SortedCollect[T cmp.Ordered](set Set[T]) []T {
	elements := set.Collect()
	slices.Sort(elements)
	return elements
}
