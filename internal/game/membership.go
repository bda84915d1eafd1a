package game

import (
	"errors"
	"strings"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

// Membership tells the arena who is online. Sources are interchangeable:
// presence events and a shared list produce the same join/leave stream.
type Membership interface {
	Start(join, leave func(name string)) error
	Stop()
}

// ListSource hands out list handles. datasync.Client satisfies it.
type ListSource interface {
	List(name string) datasync.List
}

var errNoTransport = errors.New("membership: no transport")

// PresenceMembership derives the roster from subscriptions to status/<name>:
// the first subscriber means online, the last unsubscribe means offline.
type PresenceMembership struct {
	Events  datasync.Events
	Pattern string // defaults to StatusPattern

	active string
}

func (m *PresenceMembership) Start(join, leave func(name string)) error {
	if m.Events == nil {
		return errNoTransport
	}
	pattern := m.Pattern
	if pattern == "" {
		pattern = StatusPattern
	}
	if err := m.Events.Listen(pattern, func(match string, subscribed bool) {
		name := strings.TrimPrefix(match, StatusEventPrefix)
		if name == "" || name == match {
			return
		}
		if subscribed {
			join(name)
		} else {
			leave(name)
		}
	}); err != nil {
		return err
	}
	m.active = pattern
	return nil
}

func (m *PresenceMembership) Stop() {
	if m.active == "" {
		return
	}
	_ = m.Events.Unlisten(m.active)
	m.active = ""
}

// ListMembership derives the roster from a shared list of player names.
type ListMembership struct {
	Lists ListSource
	Name  string // defaults to PlayersList

	list datasync.List
}

func (m *ListMembership) Start(join, leave func(name string)) error {
	if m.Lists == nil {
		return errNoTransport
	}
	name := m.Name
	if name == "" {
		name = PlayersList
	}
	l := m.Lists.List(name)
	l.OnEntryAdded(join)
	l.OnEntryRemoved(leave)
	m.list = l
	for _, entry := range l.Entries() {
		join(entry)
	}
	return nil
}

func (m *ListMembership) Stop() {
	if m.list == nil {
		return
	}
	m.list.Discard()
	m.list = nil
}

// NewMembership builds the source named kind ("presence" or "list") on c.
func NewMembership(kind string, c datasync.Client) (Membership, error) {
	switch kind {
	case "", "presence":
		return &PresenceMembership{Events: c.Events()}, nil
	case "list":
		return &ListMembership{Lists: c}, nil
	}
	return nil, errors.New("membership: unknown source " + kind)
}
