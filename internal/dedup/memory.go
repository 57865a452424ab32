// Package dedup tracks source URLs already visited within a crawl so
// the search provider never re-fetches a result page.
package dedup

import "sync"

// Interface is the seen-set capability shared by the implementations.
type Interface interface {
	// Seen records key and reports whether it was already present.
	Seen(key string) bool
}

type Memory struct{ m sync.Map }

func NewMemory() *Memory { return &Memory{} }

func (d *Memory) Seen(key string) bool {
	_, ok := d.m.LoadOrStore(key, struct{}{})
	return ok
}
