package datasync

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Hub is an in-process data-sync store. Each participant talks to it through
// its own Session. Callbacks run synchronously on the goroutine that caused
// the change, after the hub lock has been released, so a callback may call
// back into the hub.
type Hub struct {
	mu sync.Mutex

	records    map[string]Fields
	recHandles map[string]map[*hubRecord]struct{}

	lists       map[string][]string
	listHandles map[string]map[*hubList]struct{}

	subs      map[string]map[*Session]struct{} // event name -> subscribed sessions
	listeners []*hubListener

	sessions map[*Session]struct{}
	nextID   int
}

type hubListener struct {
	session *Session
	raw     string
	re      *regexp.Regexp
	fn      ListenFunc
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		records:     make(map[string]Fields),
		recHandles:  make(map[string]map[*hubRecord]struct{}),
		lists:       make(map[string][]string),
		listHandles: make(map[string]map[*hubList]struct{}),
		subs:        make(map[string]map[*Session]struct{}),
		sessions:    make(map[*Session]struct{}),
	}
}

// Connect opens a new session on the hub.
func (h *Hub) Connect() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &Session{
		hub:        h,
		id:         h.nextID,
		records:    make(map[string]*hubRecord),
		lists:      make(map[string]*hubList),
		subscribed: make(map[string]struct{}),
	}
	h.sessions[s] = struct{}{}
	return s
}

// RecordNames returns the names of all existing records, sorted.
func (h *Hub) RecordNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for name := range h.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subscribers returns how many sessions are subscribed to an event name.
func (h *Hub) Subscribers(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[name])
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func run(calls []func()) {
	for _, fn := range calls {
		fn()
	}
}

// --- Session ---

// Session is one participant's view of a Hub. It implements Client.
type Session struct {
	hub *Hub
	id  int

	// Guarded by hub.mu.
	records    map[string]*hubRecord
	lists      map[string]*hubList
	subscribed map[string]struct{}
	closed     bool
}

var _ Client = (*Session)(nil)

// ID returns the hub-unique session number.
func (s *Session) ID() int { return s.id }

// Record returns the session's handle for name, creating one if needed.
func (s *Session) Record(name string) Record {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	r, _ := s.recordLocked(name)
	return r
}

// Track is Record for relaying a record elsewhere. When the live handle is
// created by this call, onChange and onDelete are attached to it. snap, when
// non-nil, receives the record's current state. Both happen under the hub
// lock, so no change delivered to the handle is older than the state passed to
// snap; snap must not call back into the hub.
func (s *Session) Track(name string, onChange func(Fields), onDelete func(), snap func(fields Fields, exists bool)) Record {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	r, created := s.recordLocked(name)
	if created {
		if onChange != nil {
			r.onChange = append(r.onChange, onChange)
		}
		if onDelete != nil {
			r.onDelete = append(r.onDelete, onDelete)
		}
	}
	if snap != nil {
		f, ok := h.records[name]
		if r.dead {
			f, ok = nil, false
		}
		snap(f.Clone(), ok)
	}
	return r
}

func (s *Session) recordLocked(name string) (*hubRecord, bool) {
	h := s.hub
	if r, ok := s.records[name]; ok && !r.dead {
		return r, false
	}
	r := &hubRecord{hub: h, session: s, name: name, dead: s.closed}
	if s.closed {
		return r, false
	}
	s.records[name] = r
	if h.recHandles[name] == nil {
		h.recHandles[name] = make(map[*hubRecord]struct{})
	}
	h.recHandles[name][r] = struct{}{}
	return r, true
}

// List returns the session's handle for the named list.
func (s *Session) List(name string) List {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := s.lists[name]; ok && !l.dead {
		return l
	}
	l := &hubList{hub: h, session: s, name: name, dead: s.closed}
	if s.closed {
		return l
	}
	s.lists[name] = l
	if h.listHandles[name] == nil {
		h.listHandles[name] = make(map[*hubList]struct{})
	}
	h.listHandles[name][l] = struct{}{}
	return l
}

// Events returns the session itself; subscriptions are per session.
func (s *Session) Events() Events { return s }

// Dispatch is a no-op: hub deliveries are synchronous.
func (s *Session) Dispatch() int { return 0 }

// Subscribe registers interest in an event name. Subscribing twice is a no-op.
func (s *Session) Subscribe(name string) error {
	h := s.hub
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.subscribed[name]; ok {
		h.mu.Unlock()
		return nil
	}
	s.subscribed[name] = struct{}{}
	calls := h.addSubscriberLocked(name, s)
	h.mu.Unlock()
	run(calls)
	return nil
}

// Unsubscribe drops interest in an event name. Unknown names are ignored.
func (s *Session) Unsubscribe(name string) error {
	h := s.hub
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.subscribed[name]; !ok {
		h.mu.Unlock()
		return nil
	}
	delete(s.subscribed, name)
	calls := h.removeSubscriberLocked(name, s)
	h.mu.Unlock()
	run(calls)
	return nil
}

// Listen registers fn for every event name matching the regular expression
// pattern. Names that already have subscribers are reported immediately.
func (s *Session) Listen(pattern string, fn ListenFunc) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("listen %q: %w", pattern, err)
	}
	h := s.hub
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.listeners = append(h.listeners, &hubListener{session: s, raw: pattern, re: re, fn: fn})
	var names []string
	for name := range h.subs {
		if re.MatchString(name) {
			names = append(names, name)
		}
	}
	h.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		fn(name, true)
	}
	return nil
}

// Unlisten removes this session's listeners registered for pattern.
func (s *Session) Unlisten(pattern string) error {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	kept := h.listeners[:0]
	for _, l := range h.listeners {
		if l.session == s && l.raw == pattern {
			continue
		}
		kept = append(kept, l)
	}
	h.listeners = kept
	return nil
}

// Close unsubscribes every event, removes listeners and discards all handles.
// Listeners on other sessions observe the unsubscriptions.
func (s *Session) Close() error {
	h := s.hub
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return nil
	}
	s.closed = true

	kept := h.listeners[:0]
	for _, l := range h.listeners {
		if l.session != s {
			kept = append(kept, l)
		}
	}
	h.listeners = kept

	names := make([]string, 0, len(s.subscribed))
	for name := range s.subscribed {
		names = append(names, name)
	}
	sort.Strings(names)
	var calls []func()
	for _, name := range names {
		delete(s.subscribed, name)
		calls = append(calls, h.removeSubscriberLocked(name, s)...)
	}
	for _, r := range s.records {
		h.detachRecordLocked(r)
	}
	for _, l := range s.lists {
		h.detachListLocked(l)
	}
	delete(h.sessions, s)
	h.mu.Unlock()
	run(calls)
	return nil
}

func (h *Hub) addSubscriberLocked(name string, s *Session) []func() {
	set := h.subs[name]
	if set == nil {
		set = make(map[*Session]struct{})
		h.subs[name] = set
	}
	set[s] = struct{}{}
	if len(set) != 1 {
		return nil
	}
	return h.matchCallsLocked(name, true)
}

func (h *Hub) removeSubscriberLocked(name string, s *Session) []func() {
	set := h.subs[name]
	if set == nil {
		return nil
	}
	delete(set, s)
	if len(set) > 0 {
		return nil
	}
	delete(h.subs, name)
	return h.matchCallsLocked(name, false)
}

func (h *Hub) matchCallsLocked(name string, subscribed bool) []func() {
	var calls []func()
	for _, l := range h.listeners {
		if !l.re.MatchString(name) {
			continue
		}
		fn := l.fn
		calls = append(calls, func() { fn(name, subscribed) })
	}
	return calls
}

func (h *Hub) detachRecordLocked(r *hubRecord) {
	r.dead = true
	if set := h.recHandles[r.name]; set != nil {
		delete(set, r)
		if len(set) == 0 {
			delete(h.recHandles, r.name)
		}
	}
	if cur, ok := r.session.records[r.name]; ok && cur == r {
		delete(r.session.records, r.name)
	}
}

func (h *Hub) detachListLocked(l *hubList) {
	l.dead = true
	if set := h.listHandles[l.name]; set != nil {
		delete(set, l)
		if len(set) == 0 {
			delete(h.listHandles, l.name)
		}
	}
	if cur, ok := l.session.lists[l.name]; ok && cur == l {
		delete(l.session.lists, l.name)
	}
}

// --- Records ---

type hubRecord struct {
	hub     *Hub
	session *Session
	name    string

	// Guarded by hub.mu.
	onChange []func(Fields)
	onDelete []func()
	dead     bool
	deleted  bool
}

func (r *hubRecord) Name() string { return r.name }

func (r *hubRecord) IsReady() bool {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.dead {
		return false
	}
	_, ok := r.hub.records[r.name]
	return ok
}

func (r *hubRecord) Get() Fields {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.dead {
		return nil
	}
	f, ok := r.hub.records[r.name]
	if !ok {
		return nil
	}
	return f.Clone()
}

func (r *hubRecord) Set(field string, value any) error {
	return r.write(func(f Fields) { f[field] = value })
}

func (r *hubRecord) SetAll(fields Fields) error {
	return r.write(func(f Fields) {
		for k := range f {
			delete(f, k)
		}
		for k, v := range fields {
			f[k] = v
		}
	})
}

func (r *hubRecord) write(apply func(Fields)) error {
	h := r.hub
	h.mu.Lock()
	if err := r.writableLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	f, ok := h.records[r.name]
	if !ok {
		f = make(Fields)
		h.records[r.name] = f
	}
	apply(f)
	var calls []func()
	for other := range h.recHandles[r.name] {
		if other == r {
			continue
		}
		snap := f.Clone()
		for _, fn := range other.onChange {
			fn := fn
			calls = append(calls, func() { fn(snap) })
		}
	}
	h.mu.Unlock()
	run(calls)
	return nil
}

func (r *hubRecord) writableLocked() error {
	switch {
	case r.session.closed:
		return ErrClosed
	case r.deleted:
		return ErrDeleted
	case r.dead:
		return ErrDiscarded
	}
	return nil
}

func (r *hubRecord) Delete() error {
	h := r.hub
	h.mu.Lock()
	if err := r.writableLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	delete(h.records, r.name)
	var calls []func()
	for other := range h.recHandles[r.name] {
		other.deleted = true
		if other != r {
			calls = append(calls, other.onDelete...)
		}
		h.detachRecordLocked(other)
	}
	h.mu.Unlock()
	run(calls)
	return nil
}

func (r *hubRecord) Discard() {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.dead {
		return
	}
	r.hub.detachRecordLocked(r)
}

func (r *hubRecord) OnChange(fn func(Fields)) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *hubRecord) OnDelete(fn func()) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	r.onDelete = append(r.onDelete, fn)
}

// --- Lists ---

type hubList struct {
	hub     *Hub
	session *Session
	name    string

	// Guarded by hub.mu.
	onAdded   []func(string)
	onRemoved []func(string)
	dead      bool
}

func (l *hubList) Name() string { return l.name }

func (l *hubList) IsReady() bool {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	return !l.dead
}

func (l *hubList) Entries() []string {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	return append([]string(nil), l.hub.lists[l.name]...)
}

// AddEntry appends entry unless it is already present.
func (l *hubList) AddEntry(entry string) error {
	h := l.hub
	h.mu.Lock()
	if err := l.writableLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	for _, e := range h.lists[l.name] {
		if e == entry {
			h.mu.Unlock()
			return nil
		}
	}
	h.lists[l.name] = append(h.lists[l.name], entry)
	calls := h.listCallsLocked(l, entry, true)
	h.mu.Unlock()
	run(calls)
	return nil
}

// RemoveEntry removes entry if present.
func (l *hubList) RemoveEntry(entry string) error {
	h := l.hub
	h.mu.Lock()
	if err := l.writableLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	entries := h.lists[l.name]
	idx := -1
	for i, e := range entries {
		if e == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return nil
	}
	h.lists[l.name] = append(entries[:idx], entries[idx+1:]...)
	calls := h.listCallsLocked(l, entry, false)
	h.mu.Unlock()
	run(calls)
	return nil
}

func (l *hubList) writableLocked() error {
	if l.session.closed {
		return ErrClosed
	}
	if l.dead {
		return ErrDiscarded
	}
	return nil
}

func (h *Hub) listCallsLocked(from *hubList, entry string, added bool) []func() {
	var calls []func()
	for other := range h.listHandles[from.name] {
		if other == from {
			continue
		}
		fns := other.onRemoved
		if added {
			fns = other.onAdded
		}
		for _, fn := range fns {
			fn := fn
			calls = append(calls, func() { fn(entry) })
		}
	}
	return calls
}

func (l *hubList) OnEntryAdded(fn func(string)) {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	l.onAdded = append(l.onAdded, fn)
}

func (l *hubList) OnEntryRemoved(fn func(string)) {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	l.onRemoved = append(l.onRemoved, fn)
}

func (l *hubList) Discard() {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	if l.dead {
		return
	}
	l.hub.detachListLocked(l)
}
