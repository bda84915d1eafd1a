// Package datasync provides the record / list / event capabilities the arena
// and the pilots share: live records keyed by name, live lists of names, and
// subscription-driven presence events with wildcard listening.
//
// Two backends implement Client: Hub sessions (in-process, synchronous
// delivery) and Remote (websocket, deliveries queued until Dispatch).
package datasync

import (
	"errors"
	"sort"
)

var (
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("datasync: client closed")
	// ErrDeleted is returned when writing through a handle whose record was deleted.
	ErrDeleted = errors.New("datasync: record deleted")
	// ErrDiscarded is returned when writing through a discarded handle.
	ErrDiscarded = errors.New("datasync: handle discarded")
)

// Fields is the untyped content of a record.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Record is a handle on a named live record. Reads are always served from the
// latest local snapshot.
type Record interface {
	Name() string
	// IsReady reports whether the record exists and has been populated.
	IsReady() bool
	// Get returns a copy of the current snapshot (nil when not ready).
	Get() Fields
	Set(field string, value any) error
	SetAll(fields Fields) error
	// Delete removes the record for every client. Other handles receive OnDelete.
	Delete() error
	// Discard releases this handle without touching the shared record.
	Discard()
	OnChange(fn func(Fields))
	OnDelete(fn func())
}

// List is a handle on a named live list of entries.
type List interface {
	Name() string
	IsReady() bool
	Entries() []string
	AddEntry(entry string) error
	RemoveEntry(entry string) error
	OnEntryAdded(fn func(entry string))
	OnEntryRemoved(fn func(entry string))
	Discard()
}

// ListenFunc is called when the first subscriber for an event name matching a
// listen pattern appears (subscribed=true) or the last one goes away (false).
type ListenFunc func(match string, subscribed bool)

// Events exposes event subscription and wildcard listening.
type Events interface {
	Subscribe(name string) error
	Unsubscribe(name string) error
	Listen(pattern string, fn ListenFunc) error
	Unlisten(pattern string) error
}

// Client is the capability set consumed by the arena and the pilots.
type Client interface {
	Record(name string) Record
	List(name string) List
	Events() Events
	// Dispatch applies queued remote deliveries on the calling goroutine and
	// returns how many were applied. In-process clients deliver synchronously
	// and always return 0.
	Dispatch() int
	Close() error
}
