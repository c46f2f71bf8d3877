package game

import (
	"encoding/json"
	"sync"
	"time"

	"rams/internal/model"
	"rams/internal/ports"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	outboxSize = 128
	writeWait  = 5 * time.Second
)

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster fans table views and sound cues out to every connected client.
// Messages are queued and written by a single goroutine so publishing never
// waits on a slow socket.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]*client
	out     chan model.Message
	closed  bool
	done    chan struct{}
	log     logrus.FieldLogger
}

func NewBroadcaster(log logrus.FieldLogger) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[string]*client),
		out:     make(chan model.Message, outboxSize),
		done:    make(chan struct{}),
		log:     log,
	}
	go b.pump()
	return b
}

func (b *Broadcaster) Add(id string, conn *websocket.Conn) {
	b.mu.Lock()
	b.clients[id] = &client{id: id, conn: conn}
	n := len(b.clients)
	b.mu.Unlock()
	b.log.WithFields(logrus.Fields{"session": id, "clients": n}).Info("client joined")
}

func (b *Broadcaster) Remove(id string) {
	b.mu.Lock()
	_, ok := b.clients[id]
	delete(b.clients, id)
	b.mu.Unlock()
	if ok {
		b.log.WithField("session", id).Info("client left")
	}
}

// Send writes msg to one client right away.
func (b *Broadcaster) Send(id string, msg model.Message) error {
	b.mu.Lock()
	c, ok := b.clients[id]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

// BroadcastState sends the table view to all clients.
func (b *Broadcaster) BroadcastState(v model.TableView) {
	b.push(model.Message{Type: "state", Payload: v})
}

// BroadcastInfo sends a text notification to all clients.
func (b *Broadcaster) BroadcastInfo(text string) {
	b.push(model.Message{Type: "info", Payload: text})
}

// BroadcastStats sends the round history summary to all clients.
func (b *Broadcaster) BroadcastStats(stats []model.PlayerStat) {
	b.push(model.Message{Type: "stats", Payload: stats})
}

// Notify queues a sound cue. It never blocks; cues are dropped when the
// outbox is full.
func (b *Broadcaster) Notify(kind ports.EventKind) {
	b.push(model.Message{Type: "notify", Payload: kind})
}

func (b *Broadcaster) push(msg model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.out <- msg:
	default:
		b.log.WithField("type", msg.Type).Warn("outbox full, dropping message")
	}
}

// Close stops the writer after the queued messages went out.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.out)
	b.mu.Unlock()
	<-b.done
}

func (b *Broadcaster) pump() {
	defer close(b.done)
	for msg := range b.out {
		data, err := json.Marshal(msg)
		if err != nil {
			b.log.WithError(err).WithField("type", msg.Type).Error("marshal message")
			continue
		}

		b.mu.Lock()
		targets := make([]*client, 0, len(b.clients))
		for _, c := range b.clients {
			targets = append(targets, c)
		}
		b.mu.Unlock()

		for _, c := range targets {
			if err := c.write(data); err != nil {
				b.log.WithError(err).WithField("session", c.id).Warn("write failed, dropping client")
				b.Remove(c.id)
				c.conn.Close()
			}
		}
	}
}
