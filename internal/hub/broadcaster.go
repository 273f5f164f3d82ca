package hub

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Scrimzay/snakechat/internal/types"
	"github.com/gorilla/websocket"
)

var (
	ErrUnknownClient = errors.New("unknown client")
	ErrQueueFull     = errors.New("client send queue full")
)

// Conn is the slice of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Options struct {
	SendBuffer int           // frames queued per client before it is dropped
	WriteWait  time.Duration // deadline for a single write
	PingPeriod time.Duration // keepalive ping interval, must be below the reader's pong wait
}

func DefaultOptions() Options {
	return Options{
		SendBuffer: 256,
		WriteWait:  10 * time.Second,
		PingPeriod: 54 * time.Second,
	}
}

type Client struct {
	ID    string
	conn  Conn
	codec types.Codec
	send  chan []byte

	mu     sync.Mutex // guards closed and sends on send
	closed bool
}

func (c *Client) Codec() types.Codec {
	return c.codec
}

// enqueue never blocks. A full queue means the client stopped reading.
func (c *Client) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrUnknownClient
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Broadcaster is the set of live connections. Recipients are resolved when a
// publish happens, never cached. Publishing only queues frames; each client
// has its own write pump, so a stalled socket cannot hold up anyone else.
type Broadcaster struct {
	opts       Options
	mu         sync.RWMutex
	clients    map[string]*Client
	unregister chan string
}

func NewBroadcaster() *Broadcaster {
	return NewBroadcasterWithOptions(DefaultOptions())
}

func NewBroadcasterWithOptions(opts Options) *Broadcaster {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	return &Broadcaster{
		opts:       opts,
		clients:    make(map[string]*Client),
		unregister: make(chan string, 64),
	}
}

// Run drains connections dropped after failed writes.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return
		case id := <-b.unregister:
			b.Unregister(id)
		}
	}
}

func (b *Broadcaster) Register(id string, conn Conn, codec types.Codec) *Client {
	if codec == nil {
		codec = types.JSON
	}
	c := &Client{
		ID:    id,
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, b.opts.SendBuffer),
	}

	b.mu.Lock()
	old := b.clients[id]
	b.clients[id] = c
	b.mu.Unlock()

	if old != nil {
		old.stop()
	}
	go b.writePump(c)
	return c
}

// Unregister stops the write pump, which closes the connection. No-op if absent.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	b.mu.Unlock()

	if ok {
		c.stop()
	}
}

func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Broadcast(event string, payload any) {
	b.publish("", event, payload)
}

func (b *Broadcaster) BroadcastExcept(exclude, event string, payload any) {
	b.publish(exclude, event, payload)
}

func (b *Broadcaster) SendTo(id, event string, payload any) error {
	b.mu.RLock()
	c, ok := b.clients[id]
	b.mu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}

	frame, err := c.codec.Encode(event, payload)
	if err != nil {
		return err
	}
	if err := c.enqueue(frame); err != nil {
		b.dropLater(id)
		return err
	}
	return nil
}

func (b *Broadcaster) snapshot(exclude string) []*Client {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := make([]*Client, 0, len(b.clients))
	for id, c := range b.clients {
		if id == exclude {
			continue
		}
		list = append(list, c)
	}
	return list
}

func (b *Broadcaster) publish(exclude, event string, payload any) {
	frames := make(map[string][]byte) // one encoding per codec
	for _, c := range b.snapshot(exclude) {
		name := c.codec.Name()
		frame, ok := frames[name]
		if !ok {
			var err error
			frame, err = c.codec.Encode(event, payload)
			if err != nil {
				log.Printf("%s marshal error (%s): %v", event, name, err)
				continue
			}
			frames[name] = frame
		}

		if err := c.enqueue(frame); err != nil {
			log.Printf("%s broadcast to %s failed: %v", event, c.ID, err)
			b.dropLater(c.ID)
		}
	}
}

// writePump owns every write to c.conn, including keepalive pings.
func (b *Broadcaster) writePump(c *Client) {
	ticker := time.NewTicker(b.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(c.codec.MessageType(), frame); err != nil {
				log.Printf("Write error to %s: %v", c.ID, err)
				b.dropLater(c.ID)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.dropLater(c.ID)
				return
			}
		}
	}
}

// Defer cleanup to the unregister channel
func (b *Broadcaster) dropLater(id string) {
	select {
	case b.unregister <- id:
	default:
		go b.Unregister(id)
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}
