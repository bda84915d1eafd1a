package datasync

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire operations. Client to server first, then server to client.
const (
	OpRecordSubscribe = "record.subscribe"
	OpRecordSet       = "record.set"
	OpRecordDelete    = "record.delete"
	OpRecordDiscard   = "record.discard"
	OpListSubscribe   = "list.subscribe"
	OpListAdd         = "list.add"
	OpListRemove      = "list.remove"
	OpListDiscard     = "list.discard"
	OpEventSubscribe  = "event.subscribe"
	OpEventUnsub      = "event.unsubscribe"
	OpListen          = "event.listen"
	OpUnlisten        = "event.unlisten"

	OpRecordSnapshot = "record.snapshot"
	OpRecordDeleted  = "record.deleted"
	OpListSnapshot   = "list.snapshot"
	OpListAdded      = "list.added"
	OpListRemoved    = "list.removed"
	OpListenMatch    = "event.match"
	OpError          = "error"
)

// Frame is one message on the wire. Only the fields relevant to Op are set.
type Frame struct {
	Op         string   `msgpack:"op"`
	Name       string   `msgpack:"name,omitempty"`
	Field      string   `msgpack:"field,omitempty"`
	Value      any      `msgpack:"value"`
	Fields     Fields   `msgpack:"fields,omitempty"`
	Exists     bool     `msgpack:"exists,omitempty"`
	Entries    []string `msgpack:"entries,omitempty"`
	Pattern    string   `msgpack:"pattern,omitempty"`
	Match      string   `msgpack:"match,omitempty"`
	Subscribed bool     `msgpack:"subscribed,omitempty"`
	Error      string   `msgpack:"error,omitempty"`
}

// Encode serialises a frame to msgpack.
func Encode(f Frame) ([]byte, error) {
	if f.Op == "" {
		return nil, fmt.Errorf("encode frame: empty op")
	}
	b, err := msgpack.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("encode frame %s: %w", f.Op, err)
	}
	return b, nil
}

// Decode parses a msgpack frame.
func Decode(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, fmt.Errorf("decode frame: empty message")
	}
	var f Frame
	if err := msgpack.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Op == "" {
		return Frame{}, fmt.Errorf("decode frame: missing op")
	}
	return f, nil
}
