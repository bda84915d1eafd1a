package datasync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Remote is a websocket Client talking to a Server. Pushes from the server
// are queued by a reader goroutine and applied, callbacks included, only when
// Dispatch is called. All other methods, and the handles they return, belong
// to the goroutine that calls Dispatch (the frame loop).
type Remote struct {
	ws     *websocket.Conn
	logger *log.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending []Frame
	readErr error

	records    map[string]*remoteRecord
	lists      map[string]*remoteList
	subscribed map[string]struct{}
	listeners  map[string][]ListenFunc
	matches    map[string]map[string]struct{} // live matches per listened pattern
}

var _ Client = (*Remote)(nil)

// Dial connects to a datasync server, e.g. "ws://localhost:6020/sync".
func Dial(ctx context.Context, url string, logger *log.Logger) (*Remote, error) {
	if logger == nil {
		logger = log.Default()
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	r := &Remote{
		ws:         ws,
		logger:     logger,
		send:       make(chan []byte, sendQueueSize),
		done:       make(chan struct{}),
		records:    make(map[string]*remoteRecord),
		lists:      make(map[string]*remoteList),
		subscribed: make(map[string]struct{}),
		listeners:  make(map[string][]ListenFunc),
		matches:    make(map[string]map[string]struct{}),
	}
	go r.readPump()
	go r.writePump()
	return r, nil
}

// Connected reports whether the connection is still up.
func (r *Remote) Connected() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Err returns the error that ended the read loop, if any.
func (r *Remote) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

// Close shuts the connection down. Pending deliveries are dropped.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		_ = r.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"),
			time.Now().Add(writeWait))
		close(r.done)
		err = r.ws.Close()
	})
	return err
}

func (r *Remote) shutdown(cause error) {
	r.mu.Lock()
	if r.readErr == nil {
		r.readErr = cause
	}
	r.mu.Unlock()
	r.closeOnce.Do(func() {
		close(r.done)
		_ = r.ws.Close()
	})
}

func (r *Remote) readPump() {
	r.ws.SetReadLimit(maxMessageSize)
	_ = r.ws.SetReadDeadline(time.Now().Add(pongWait))
	r.ws.SetPongHandler(func(string) error {
		return r.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := r.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Printf("datasync: read: %v", err)
			}
			r.shutdown(err)
			return
		}
		f, err := Decode(msg)
		if err != nil {
			r.logger.Printf("datasync: %v", err)
			continue
		}
		r.mu.Lock()
		r.pending = append(r.pending, f)
		r.mu.Unlock()
	}
}

func (r *Remote) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case b := <-r.send:
			_ = r.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
				r.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		case <-ticker.C:
			_ = r.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.shutdown(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (r *Remote) emit(f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return ErrClosed
	case r.send <- b:
		return nil
	}
}

// Dispatch applies every queued server push and returns how many there were.
func (r *Remote) Dispatch() int {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, f := range batch {
		r.apply(f)
	}
	return len(batch)
}

func (r *Remote) apply(f Frame) {
	switch f.Op {
	case OpRecordSnapshot:
		if rec, ok := r.records[f.Name]; ok {
			rec.applySnapshot(f.Fields, f.Exists)
		}
	case OpRecordDeleted:
		rec, ok := r.records[f.Name]
		if !ok {
			return
		}
		rec.markDeleted()
		delete(r.records, f.Name)
		for _, fn := range rec.onDelete {
			fn()
		}
	case OpListSnapshot:
		l, ok := r.lists[f.Name]
		if !ok {
			return
		}
		l.replace(f.Entries)
	case OpListAdded:
		if l, ok := r.lists[f.Name]; ok {
			l.added(f.Match)
		}
	case OpListRemoved:
		if l, ok := r.lists[f.Name]; ok {
			l.removed(f.Match)
		}
	case OpListenMatch:
		m, ok := r.matches[f.Pattern]
		if !ok {
			return
		}
		if f.Subscribed {
			m[f.Match] = struct{}{}
		} else {
			delete(m, f.Match)
		}
		for _, fn := range r.listeners[f.Pattern] {
			fn(f.Match, f.Subscribed)
		}
	case OpError:
		r.logger.Printf("datasync: server error (%s): %s", f.Name, f.Error)
	}
}

// Record returns the cached handle for name, subscribing on first use.
func (r *Remote) Record(name string) Record {
	if rec, ok := r.records[name]; ok {
		return rec
	}
	rec := &remoteRecord{remote: r, name: name, awaiting: true}
	r.records[name] = rec
	if err := r.emit(Frame{Op: OpRecordSubscribe, Name: name}); err != nil {
		rec.dead = true
	}
	return rec
}

// List returns the cached handle for the named list, subscribing on first use.
func (r *Remote) List(name string) List {
	if l, ok := r.lists[name]; ok {
		return l
	}
	l := &remoteList{remote: r, name: name}
	r.lists[name] = l
	if err := r.emit(Frame{Op: OpListSubscribe, Name: name}); err != nil {
		l.dead = true
	}
	return l
}

// Events returns the event capability of this connection.
func (r *Remote) Events() Events { return r }

func (r *Remote) Subscribe(name string) error {
	if _, ok := r.subscribed[name]; ok {
		return nil
	}
	r.subscribed[name] = struct{}{}
	return r.emit(Frame{Op: OpEventSubscribe, Name: name})
}

func (r *Remote) Unsubscribe(name string) error {
	if _, ok := r.subscribed[name]; !ok {
		return nil
	}
	delete(r.subscribed, name)
	return r.emit(Frame{Op: OpEventUnsub, Name: name})
}

// Listen registers fn for pattern. The first listener asks the server, which
// reports current matches on a later Dispatch; later listeners are told the
// matches already seen straight away, as a Hub session would.
func (r *Remote) Listen(pattern string, fn ListenFunc) error {
	first := len(r.listeners[pattern]) == 0
	r.listeners[pattern] = append(r.listeners[pattern], fn)
	if first {
		r.matches[pattern] = make(map[string]struct{})
		return r.emit(Frame{Op: OpListen, Pattern: pattern})
	}
	names := make([]string, 0, len(r.matches[pattern]))
	for name := range r.matches[pattern] {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(name, true)
	}
	return nil
}

func (r *Remote) Unlisten(pattern string) error {
	if _, ok := r.listeners[pattern]; !ok {
		return nil
	}
	delete(r.listeners, pattern)
	delete(r.matches, pattern)
	return r.emit(Frame{Op: OpUnlisten, Pattern: pattern})
}

// --- remote records ---

type remoteRecord struct {
	remote   *Remote
	name     string
	fields   Fields
	exists   bool
	dead     bool
	deleted  bool
	onChange []func(Fields)
	onDelete []func()

	// Until the subscribe snapshot arrives, writes made through the handle
	// are newer than it: local holds fields Set meanwhile, replaced notes a
	// SetAll.
	awaiting bool
	local    Fields
	replaced bool
}

func (rec *remoteRecord) Name() string { return rec.name }

func (rec *remoteRecord) IsReady() bool { return rec.exists && !rec.dead }

func (rec *remoteRecord) Get() Fields {
	if !rec.IsReady() {
		return nil
	}
	return rec.fields.Clone()
}

func (rec *remoteRecord) writable() error {
	switch {
	case rec.deleted:
		return ErrDeleted
	case rec.dead:
		return ErrDiscarded
	}
	return nil
}

func (rec *remoteRecord) Set(field string, value any) error {
	if err := rec.writable(); err != nil {
		return err
	}
	if rec.fields == nil {
		rec.fields = make(Fields)
	}
	rec.fields[field] = value
	rec.exists = true
	if rec.awaiting && !rec.replaced {
		if rec.local == nil {
			rec.local = make(Fields)
		}
		rec.local[field] = value
	}
	return rec.remote.emit(Frame{Op: OpRecordSet, Name: rec.name, Field: field, Value: value})
}

func (rec *remoteRecord) SetAll(fields Fields) error {
	if err := rec.writable(); err != nil {
		return err
	}
	rec.fields = fields.Clone()
	rec.exists = true
	if rec.awaiting {
		rec.replaced, rec.local = true, nil
	}
	return rec.remote.emit(Frame{Op: OpRecordSet, Name: rec.name, Fields: rec.fields})
}

// applySnapshot installs server state. The first snapshot after subscribing
// predates any write made through the handle since, so those writes are laid
// back over it.
func (rec *remoteRecord) applySnapshot(fields Fields, exists bool) {
	switch {
	case !rec.awaiting:
		rec.fields = fields.Clone()
	case rec.replaced:
		exists = true
	default:
		merged := fields.Clone()
		for k, v := range rec.local {
			merged[k] = v
		}
		rec.fields = merged
		exists = exists || rec.local != nil
	}
	rec.awaiting, rec.replaced, rec.local = false, false, nil
	rec.exists = exists
	if exists {
		for _, fn := range rec.onChange {
			fn(rec.fields.Clone())
		}
	}
}

func (rec *remoteRecord) Delete() error {
	if err := rec.writable(); err != nil {
		return err
	}
	rec.markDeleted()
	delete(rec.remote.records, rec.name)
	return rec.remote.emit(Frame{Op: OpRecordDelete, Name: rec.name})
}

func (rec *remoteRecord) Discard() {
	if rec.dead {
		return
	}
	rec.dead = true
	if cur, ok := rec.remote.records[rec.name]; ok && cur == rec {
		delete(rec.remote.records, rec.name)
	}
	_ = rec.remote.emit(Frame{Op: OpRecordDiscard, Name: rec.name})
}

func (rec *remoteRecord) markDeleted() {
	rec.deleted = true
	rec.dead = true
	rec.exists = false
	rec.fields = nil
}

func (rec *remoteRecord) OnChange(fn func(Fields)) { rec.onChange = append(rec.onChange, fn) }
func (rec *remoteRecord) OnDelete(fn func())       { rec.onDelete = append(rec.onDelete, fn) }

// --- remote lists ---

type remoteList struct {
	remote    *Remote
	name      string
	entries   []string
	ready     bool
	dead      bool
	onAdded   []func(string)
	onRemoved []func(string)
}

func (l *remoteList) Name() string      { return l.name }
func (l *remoteList) IsReady() bool     { return l.ready && !l.dead }
func (l *remoteList) Entries() []string { return append([]string(nil), l.entries...) }

func (l *remoteList) index(entry string) int {
	for i, e := range l.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

func (l *remoteList) AddEntry(entry string) error {
	if l.dead {
		return ErrDiscarded
	}
	if l.index(entry) < 0 {
		l.entries = append(l.entries, entry)
	}
	return l.remote.emit(Frame{Op: OpListAdd, Name: l.name, Match: entry})
}

func (l *remoteList) RemoveEntry(entry string) error {
	if l.dead {
		return ErrDiscarded
	}
	if i := l.index(entry); i >= 0 {
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
	}
	return l.remote.emit(Frame{Op: OpListRemove, Name: l.name, Match: entry})
}

// replace installs a full snapshot and reports the difference to callbacks.
func (l *remoteList) replace(entries []string) {
	prev := make(map[string]bool, len(l.entries))
	for _, e := range l.entries {
		prev[e] = true
	}
	next := make(map[string]bool, len(entries))
	for _, e := range entries {
		next[e] = true
	}
	l.entries = append([]string(nil), entries...)
	l.ready = true

	var gone []string
	for e := range prev {
		if !next[e] {
			gone = append(gone, e)
		}
	}
	sort.Strings(gone)
	for _, e := range gone {
		for _, fn := range l.onRemoved {
			fn(e)
		}
	}
	for _, e := range entries {
		if prev[e] {
			continue
		}
		for _, fn := range l.onAdded {
			fn(e)
		}
	}
}

func (l *remoteList) added(entry string) {
	if l.index(entry) >= 0 {
		return
	}
	l.entries = append(l.entries, entry)
	for _, fn := range l.onAdded {
		fn(entry)
	}
}

func (l *remoteList) removed(entry string) {
	i := l.index(entry)
	if i < 0 {
		return
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	for _, fn := range l.onRemoved {
		fn(entry)
	}
}

func (l *remoteList) OnEntryAdded(fn func(string))   { l.onAdded = append(l.onAdded, fn) }
func (l *remoteList) OnEntryRemoved(fn func(string)) { l.onRemoved = append(l.onRemoved, fn) }

func (l *remoteList) Discard() {
	if l.dead {
		return
	}
	l.dead = true
	if cur, ok := l.remote.lists[l.name]; ok && cur == l {
		delete(l.remote.lists, l.name)
	}
	_ = l.remote.emit(Frame{Op: OpListDiscard, Name: l.name})
}
