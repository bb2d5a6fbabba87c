// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sort"
	"sync"
)

// ProgressSink receives byte counts for successful chunk operations.
type ProgressSink interface {
	Add(itemID string, n int64)
}

// ItemObserver is implemented by sinks that also want file lifecycle events.
type ItemObserver interface {
	ItemStarted(itemID string, size int64)
	ItemFinished(itemID string, err error)
}

type discardProgress struct{}

func (discardProgress) Add(string, int64) {}

// Renderer draws aggregate progress. It is called with the aggregator lock
// held and must not block.
type Renderer interface {
	Update(s Snapshot)
	Finish(s Snapshot)
}

type ItemProgress struct {
	ID     string `json:"id"     yaml:"id"`
	Size   int64  `json:"size"   yaml:"size"`
	Done   int64  `json:"done"   yaml:"done"`
	Active bool   `json:"active" yaml:"active"`
	Failed bool   `json:"failed" yaml:"failed"`
}

type Snapshot struct {
	DoneBytes  int64          `json:"doneBytes"  yaml:"doneBytes"`
	TotalBytes int64          `json:"totalBytes" yaml:"totalBytes"`
	Active     int            `json:"active"     yaml:"active"`
	Completed  int            `json:"completed"  yaml:"completed"`
	Failed     int            `json:"failed"     yaml:"failed"`
	Items      []ItemProgress `json:"items"      yaml:"items"`
}

// ProgressAggregator accumulates per-item and batch counters from any number
// of goroutines. A renderer can be attached or detached at any time.
type ProgressAggregator struct {
	mu       sync.Mutex
	items    map[string]*ItemProgress
	done     int64
	total    int64
	active   int
	complete int
	failed   int
	renderer Renderer
}

func NewProgressAggregator() *ProgressAggregator {
	return &ProgressAggregator{items: map[string]*ItemProgress{}}
}

// Expect registers items before they start so the total is known early.
func (a *ProgressAggregator) Expect(itemID string, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.item(itemID, size)
}

func (a *ProgressAggregator) Attach(r Renderer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.renderer = r
	if r != nil {
		r.Update(a.snapshotLocked(false))
	}
}

// Detach removes the current renderer and returns it.
func (a *ProgressAggregator) Detach() Renderer {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.renderer
	a.renderer = nil
	return r
}

func (a *ProgressAggregator) ItemStarted(itemID string, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	it := a.item(itemID, size)
	it.Active = true
	a.active++
	a.render()
}

func (a *ProgressAggregator) Add(itemID string, n int64) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	it := a.item(itemID, 0)
	it.Done += n
	a.done += n
	if it.Done > it.Size {
		a.total += it.Done - it.Size
		it.Size = it.Done
	}
	a.render()
}

// ItemFinished closes an item. A failed item drops its unsent bytes from the
// total so the batch can still reach 100%.
func (a *ProgressAggregator) ItemFinished(itemID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	it := a.item(itemID, 0)
	if it.Active {
		it.Active = false
		a.active--
	}
	if err != nil {
		it.Failed = true
		a.failed++
		a.total -= it.Size - it.Done
		it.Size = it.Done
	} else {
		a.complete++
	}
	a.render()
}

func (a *ProgressAggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked(true)
}

// Close renders the final state once.
func (a *ProgressAggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.renderer != nil {
		a.renderer.Finish(a.snapshotLocked(false))
	}
}

func (a *ProgressAggregator) item(id string, size int64) *ItemProgress {
	it, ok := a.items[id]
	if !ok {
		it = &ItemProgress{ID: id}
		a.items[id] = it
	}
	if size > it.Size {
		a.total += size - it.Size
		it.Size = size
	}
	return it
}

func (a *ProgressAggregator) render() {
	if a.renderer != nil {
		a.renderer.Update(a.snapshotLocked(false))
	}
}

// snapshotLocked copies the counters. Items is only filled when withItems is set.
func (a *ProgressAggregator) snapshotLocked(withItems bool) Snapshot {
	s := Snapshot{
		DoneBytes:  a.done,
		TotalBytes: a.total,
		Active:     a.active,
		Completed:  a.complete,
		Failed:     a.failed,
	}
	if !withItems {
		return s
	}
	s.Items = make([]ItemProgress, 0, len(a.items))
	for _, it := range a.items {
		s.Items = append(s.Items, *it)
	}
	sort.Slice(s.Items, func(i, j int) bool { return s.Items[i].ID < s.Items[j].ID })
	return s
}
