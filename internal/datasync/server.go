package datasync

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second // must be less than pongWait
	maxMessageSize = 1 << 20
	sendQueueSize  = 256
)

// Server exposes a Hub over websocket. Every connection gets its own hub
// session; when the connection drops the session is closed, so presence
// listeners see the peer's event subscriptions go away.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewServer wraps hub. A nil logger uses the standard logger.
func NewServer(hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The demo is served from arbitrary hosts on a LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the backing store.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("datasync: upgrade: %v", err)
		return
	}
	c := &serverConn{
		ws:      ws,
		session: s.hub.Connect(),
		logger:  s.logger,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		records: make(map[string]Record),
		lists:   make(map[string]List),
	}
	s.logger.Printf("datasync: session %d connected from %s", c.session.ID(), r.RemoteAddr)
	go c.writePump()
	c.readPump()
	s.logger.Printf("datasync: session %d closed", c.session.ID())
}

type serverConn struct {
	ws      *websocket.Conn
	session *Session
	logger  *log.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Owned by readPump.
	records map[string]Record
	lists   map[string]List
}

func (c *serverConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// push queues a frame for the writer. It is called from any goroutine that
// mutates the hub. A peer that cannot keep up is disconnected.
func (c *serverConn) push(f Frame) {
	b, err := Encode(f)
	if err != nil {
		c.logger.Printf("datasync: session %d: %v", c.session.ID(), err)
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.logger.Printf("datasync: session %d: send queue full, dropping connection", c.session.ID())
		c.close()
	}
}

func (c *serverConn) readPump() {
	defer func() {
		_ = c.session.Close()
		c.close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Printf("datasync: session %d: read: %v", c.session.ID(), err)
			}
			return
		}
		f, err := Decode(msg)
		if err != nil {
			c.push(Frame{Op: OpError, Error: err.Error()})
			continue
		}
		if err := c.handle(f); err != nil {
			c.push(Frame{Op: OpError, Name: f.Name, Error: err.Error()})
		}
	}
}

func (c *serverConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *serverConn) handle(f Frame) error {
	switch f.Op {
	case OpRecordSubscribe:
		name := f.Name
		c.track(name, func(fields Fields, exists bool) {
			c.push(Frame{Op: OpRecordSnapshot, Name: name, Fields: fields, Exists: exists})
		})
	case OpRecordSet:
		rec := c.record(f.Name)
		if f.Field != "" {
			return rec.Set(f.Field, f.Value)
		}
		fields := f.Fields
		if fields == nil {
			fields = Fields{}
		}
		return rec.SetAll(fields)
	case OpRecordDelete:
		rec := c.record(f.Name)
		delete(c.records, f.Name)
		return rec.Delete()
	case OpRecordDiscard:
		if rec, ok := c.records[f.Name]; ok {
			rec.Discard()
			delete(c.records, f.Name)
		}
	case OpListSubscribe:
		l := c.list(f.Name)
		c.push(Frame{Op: OpListSnapshot, Name: f.Name, Entries: l.Entries()})
	case OpListAdd:
		return c.list(f.Name).AddEntry(f.Match)
	case OpListRemove:
		return c.list(f.Name).RemoveEntry(f.Match)
	case OpListDiscard:
		if l, ok := c.lists[f.Name]; ok {
			l.Discard()
			delete(c.lists, f.Name)
		}
	case OpEventSubscribe:
		return c.session.Subscribe(f.Name)
	case OpEventUnsub:
		return c.session.Unsubscribe(f.Name)
	case OpListen:
		pattern := f.Pattern
		return c.session.Listen(pattern, func(match string, subscribed bool) {
			c.push(Frame{Op: OpListenMatch, Pattern: pattern, Match: match, Subscribed: subscribed})
		})
	case OpUnlisten:
		return c.session.Unlisten(f.Pattern)
	default:
		c.push(Frame{Op: OpError, Error: "unknown op " + f.Op})
	}
	return nil
}

// record returns the session handle for name, relaying its changes and
// deletion to the peer.
func (c *serverConn) record(name string) Record {
	return c.track(name, nil)
}

// track is record that also pushes a snapshot. The snapshot is queued under
// the hub lock, ahead of any change a concurrent writer relays to the handle.
func (c *serverConn) track(name string, snap func(Fields, bool)) Record {
	rec := c.session.Track(name,
		func(f Fields) { c.push(Frame{Op: OpRecordSnapshot, Name: name, Fields: f, Exists: true}) },
		func() { c.push(Frame{Op: OpRecordDeleted, Name: name}) },
		snap,
	)
	c.records[name] = rec
	return rec
}

func (c *serverConn) list(name string) List {
	l := c.session.List(name)
	if prev, ok := c.lists[name]; ok && prev == l {
		return l
	}
	c.lists[name] = l
	l.OnEntryAdded(func(entry string) {
		c.push(Frame{Op: OpListAdded, Name: name, Match: entry})
	})
	l.OnEntryRemoved(func(entry string) {
		c.push(Frame{Op: OpListRemoved, Name: name, Match: entry})
	})
	return l
}
