package spreadsheet

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
)

// CellChanged is the event the Notifier fires on every successful
// Upsert. Delivery is asynchronous and consumers must be idempotent;
// the Update Coordinator never waits for an acknowledgement.
type CellChanged struct {
	SheetID  int64  `json:"sheet_id"`
	Addr     string `json:"addr"`
	Version  int64  `json:"version"`
	Computed string `json:"computed"`
	At       int64  `json:"at"` // unix millis
}

// zmqTopic is the PUB-socket topic frame every CellChanged is published
// under: one topic frame, one JSON payload frame, no further envelope.
const zmqTopic = "cell.changed"

// Notifier fans CellChanged events out to any number of in-process
// subscribers (used by the websocket layer and the autosave batcher) and,
// if EnableZMQ was called, to any number of out-of-process subscribers
// over a ZeroMQ PUB socket.
type Notifier struct {
	mu   sync.RWMutex
	subs []chan CellChanged
	pub  zmq4.Socket
}

// NewNotifier returns a Notifier with no subscribers and no ZeroMQ socket.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// EnableZMQ binds a PUB socket at addr (e.g. "tcp://127.0.0.1:5570").
// Safe to call at most once; calling it again replaces the socket.
func (n *Notifier) EnableZMQ(ctx context.Context, addr string) error {
	sock := zmq4.NewPub(ctx)
	if err := sock.Listen(addr); err != nil {
		return newError(ErrParse, "notifier: bind zmq pub socket %s: %v", addr, err)
	}
	n.mu.Lock()
	n.pub = sock
	n.mu.Unlock()
	return nil
}

// Close releases the ZeroMQ socket, if one was bound.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pub == nil {
		return nil
	}
	err := n.pub.Close()
	n.pub = nil
	return err
}

// Subscribe registers a new in-process subscriber channel with the given
// buffer size. The channel is never closed by the Notifier; callers stop
// reading from it when they are done (e.g. on websocket disconnect).
func (n *Notifier) Subscribe(buffer int) <-chan CellChanged {
	ch := make(chan CellChanged, buffer)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

// Publish delivers ev to every subscriber. A full subscriber channel is
// skipped rather than blocked: the subscriber is already behind, and the
// next CellChanged for the same address will supersede the dropped one
// anyway.
func (n *Notifier) Publish(ev CellChanged) {
	ev.At = time.Now().UnixMilli()

	n.mu.RLock()
	subs := make([]chan CellChanged, len(n.subs))
	copy(subs, n.subs)
	pub := n.pub
	n.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			log.Printf("notifier: subscriber queue full, dropping event for %s", ev.Addr)
		}
	}

	if pub == nil {
		return
	}
	go func() {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("notifier: marshal event: %v", err)
			return
		}
		msg := zmq4.NewMsgFrom([]byte(zmqTopic), payload)
		if err := pub.Send(msg); err != nil {
			log.Printf("notifier: zmq publish failed: %v", err)
		}
	}()
}
