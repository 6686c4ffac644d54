// Copyright 2025 Certen Protocol
//
// Channel: the abstract send endpoint of spec §4.9, with two concrete
// kinds (UDP datagram, TCP stream). Grounded on the length-prefixed
// framing and read-deadline pattern of the pack's tolelom-tolchain
// network/peer.go, generalized to the message envelope and drop-policy
// semantics spec §4.9/§7 family 5 require.

package network

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// maxMessageSize bounds a single frame, matching the pack's 32 MiB socket
// safety limit.
const maxMessageSize = 32 * 1024 * 1024

// readTimeout bounds how long a Channel blocks on Receive before the
// caller's socket is considered stalled (spec §5 "Cancellation ... on
// timeout, timed_out is set and the socket is closed").
const readTimeout = 30 * time.Second

// Kind distinguishes the two concrete channel implementations.
type Kind int

const (
	KindUDP Kind = iota
	KindTCP
)

// DropPolicy selects how a full write queue behaves (spec §4.9 "Drop
// policy").
type DropPolicy int

const (
	// DropLimiter consults the bandwidth limiter before enqueuing; no
	// token, no send.
	DropLimiter DropPolicy = iota
	// DropNoSocket doubles the configured queue size before dropping,
	// trading memory for a lower false-drop rate under bursty traffic.
	DropNoSocket
)

// String labels a DropPolicy for the socket_write_dropped_total metric.
func (p DropPolicy) String() string {
	if p == DropNoSocket {
		return "no_socket"
	}
	return "limiter"
}

// DropCounterFunc is notified once per message dropped from a Channel's
// write path, labeled by the policy in effect (spec §7 family 5). Defined
// as a function type rather than an imported prometheus.Counter so this
// package carries no import-time dependency on prometheus; callers
// typically wire reg.SocketWriteDropped.WithLabelValues(policy.String()).Inc.
type DropCounterFunc func(policy DropPolicy)

// Message is the wire envelope every Channel sends and receives: a type
// tag plus an opaque, already-serialized payload. Individual message-type
// framing (keepalive, publish, confirm_req, ...) is out of CONSENSUS
// CORE's scope per spec §1; callers serialize/deserialize Payload
// themselves.
type Message struct {
	Type    byte
	Payload []byte
}

// SendCallback is invoked once a Send either completes or is dropped.
type SendCallback func(ok bool)

// Channel is the shared contract both channel kinds implement.
type Channel interface {
	Kind() Kind
	RemoteAddr() string
	Send(msg Message, cb SendCallback, policy DropPolicy) error
	Close() error
	TimedOut() bool
}

// writeQueueCap is the default per-socket write queue size before
// DropNoSocket's doubling applies.
const writeQueueCap = 1024

// TCPChannel is a long- or short-lived stream channel: one channel per
// socket (spec §4.9).
type TCPChannel struct {
	conn     net.Conn
	remote   string
	limiter  *Limiter
	queueCap int
	onDrop   DropCounterFunc

	mu       sync.Mutex
	queue    []queuedSend
	timedOut bool
	closed   bool
}

type queuedSend struct {
	msg Message
	cb  SendCallback
}

// NewTCPChannel wraps an established TCP connection. limiter may be nil to
// disable the DropLimiter policy's token-bucket consultation (falling back
// to always-send).
func NewTCPChannel(conn net.Conn, limiter *Limiter) *TCPChannel {
	return &TCPChannel{
		conn:     conn,
		remote:   conn.RemoteAddr().String(),
		limiter:  limiter,
		queueCap: writeQueueCap,
	}
}

func (c *TCPChannel) Kind() Kind          { return KindTCP }
func (c *TCPChannel) RemoteAddr() string  { return c.remote }
func (c *TCPChannel) TimedOut() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.timedOut }

// SetDropCounter wires a callback invoked once per dropped send.
func (c *TCPChannel) SetDropCounter(f DropCounterFunc) { c.onDrop = f }

// Send frames and writes msg, applying policy's backpressure rule before
// touching the socket.
func (c *TCPChannel) Send(msg Message, cb SendCallback, policy DropPolicy) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if cb != nil {
			cb(false)
		}
		c.drop(policy)
		return fmt.Errorf("network: channel to %s closed", c.remote)
	}
	cap := c.queueCap
	if policy == DropNoSocket {
		cap *= 2
	}
	if len(c.queue) >= cap {
		c.mu.Unlock()
		if cb != nil {
			cb(false)
		}
		c.drop(policy)
		return fmt.Errorf("network: write queue to %s full", c.remote)
	}
	if policy == DropLimiter && c.limiter != nil && !c.limiter.Allow(len(msg.Payload)) {
		c.mu.Unlock()
		if cb != nil {
			cb(false)
		}
		c.drop(policy)
		return fmt.Errorf("network: rate limited to %s", c.remote)
	}
	c.queue = append(c.queue, queuedSend{msg, cb})
	c.mu.Unlock()
	return c.drain()
}

func (c *TCPChannel) drop(policy DropPolicy) {
	if c.onDrop != nil {
		c.onDrop(policy)
	}
}

func (c *TCPChannel) drain() error {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return nil
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		err := writeFramed(c.conn, next.msg)
		ok := err == nil
		if next.cb != nil {
			next.cb(ok)
		}
		if err != nil {
			return err
		}
	}
}

// Receive reads the next framed Message, enforcing readTimeout.
func (c *TCPChannel) Receive() (Message, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	msg, err := readFramed(c.conn)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			c.mu.Lock()
			c.timedOut = true
			c.mu.Unlock()
			c.Close()
		}
		return Message{}, err
	}
	return msg, nil
}

// Close terminates the underlying socket; pending queued writes then fail
// with not-supported semantics via the closed flag.
func (c *TCPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func writeFramed(w io.Writer, msg Message) error {
	if len(msg.Payload) > maxMessageSize {
		return fmt.Errorf("network: message too large: %d bytes", len(msg.Payload))
	}
	var header [5]byte
	header[0] = msg.Type
	binary.BigEndian.PutUint32(header[1:], uint32(len(msg.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(msg.Payload)
	return err
}

func readFramed(r io.Reader) (Message, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length > maxMessageSize {
		return Message{}, fmt.Errorf("network: message too large: %d bytes", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, err
	}
	return Message{Type: header[0], Payload: payload}, nil
}

// UDPChannel is a datagram channel: one channel per remote endpoint,
// sharing a single underlying socket across all UDP peers (spec §4.9).
type UDPChannel struct {
	conn    *net.UDPConn
	remote  *net.UDPAddr
	limiter *Limiter
	onDrop  DropCounterFunc

	mu       sync.Mutex
	timedOut bool
	closed   bool
}

// NewUDPChannel wraps a shared UDP socket for sends to one remote
// endpoint. The socket itself is owned by the caller (typically a single
// listener shared by every UDPChannel) and is not closed by Channel.Close.
func NewUDPChannel(conn *net.UDPConn, remote *net.UDPAddr, limiter *Limiter) *UDPChannel {
	return &UDPChannel{conn: conn, remote: remote, limiter: limiter}
}

func (c *UDPChannel) Kind() Kind         { return KindUDP }
func (c *UDPChannel) RemoteAddr() string { return c.remote.String() }
func (c *UDPChannel) TimedOut() bool     { c.mu.Lock(); defer c.mu.Unlock(); return c.timedOut }

// SetDropCounter wires a callback invoked once per dropped send.
func (c *UDPChannel) SetDropCounter(f DropCounterFunc) { c.onDrop = f }

// Send writes a single best-effort datagram. UDP has no write queue:
// DropLimiter consults the bandwidth limiter first, while DropNoSocket
// sends without consulting it.
func (c *UDPChannel) Send(msg Message, cb SendCallback, policy DropPolicy) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		if cb != nil {
			cb(false)
		}
		if c.onDrop != nil {
			c.onDrop(policy)
		}
		return fmt.Errorf("network: channel to %s closed", c.remote)
	}
	if policy != DropNoSocket && c.limiter != nil && !c.limiter.Allow(len(msg.Payload)) {
		if cb != nil {
			cb(false)
		}
		if c.onDrop != nil {
			c.onDrop(policy)
		}
		return fmt.Errorf("network: rate limited to %s", c.remote)
	}
	buf := make([]byte, 1+len(msg.Payload))
	buf[0] = msg.Type
	copy(buf[1:], msg.Payload)
	_, err := c.conn.WriteToUDP(buf, c.remote)
	if cb != nil {
		cb(err == nil)
	}
	return err
}

// Close marks the channel closed; the shared UDP socket is left open for
// other peers.
func (c *UDPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
