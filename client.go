package main

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/horgh/irc"
)

// connState is a client's place in the registration state machine (spec
// section 4.6). Exactly one of these holds at any time -- this
// supersedes the boolean-plus-implicit-ordering pattern the relay's
// ancestor used (see DESIGN.md).
type connState int

const (
	stateJustConnected connState = iota
	stateRegistered
)

// registrationState tracks which of PASS/NICK/USER a JustConnected
// client has sent so far, so they can arrive in any order, in one read
// or spread across several, and still register as one aggregate (spec
// section 4.2, point 1). The flags are not reset between reads.
type registrationState struct {
	sawPass bool
	sawNick bool
	sawUser bool
	pass    string
}

func (r registrationState) complete() bool {
	return r.sawPass && r.sawNick && r.sawUser
}

// Client holds state for one connection.
//
// Conn, outbound, and frame are touched by this client's own
// reader/writer goroutines. Every other field is touched only by the
// event-loop goroutine (server.go) once the client has been handed off
// via a newClient event; this is what makes the registries race-free
// without locks.
type Client struct {
	Handle     uint64
	Conn       net.Conn
	RemoteAddr string

	outbound chan irc.Message
	frame    FrameBuffer

	State connState
	reg   registrationState

	Nick       string
	Username   string
	Hostname   string
	Servername string
	RealName   string

	// Channels the client currently belongs to, by canonical name. Kept
	// here (in addition to each Channel's own membership map) so NICK and
	// QUIT broadcasts reach only the channels the client is in; membership
	// removal on teardown still goes through ChannelRegistry.RemoveMember,
	// which scans every channel.
	Channels map[string]struct{}

	ConnectedAt      time.Time
	LastActivityTime time.Time
}

// NewClient wraps an accepted connection. It does not start any
// goroutines; the caller (Server.acceptLoop) does that after handing the
// client to the event loop.
func NewClient(handle uint64, conn net.Conn) *Client {
	now := time.Now()
	return &Client{
		Handle:           handle,
		Conn:             conn,
		RemoteAddr:       conn.RemoteAddr().String(),
		outbound:         make(chan irc.Message, outboundQueueCap),
		State:            stateJustConnected,
		Channels:         make(map[string]struct{}),
		ConnectedAt:      now,
		LastActivityTime: now,
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%d %s", c.Handle, c.RemoteAddr)
}

// NickUhost renders "nick!user@host", the prefix other clients see a
// message from this client as originating from.
func (c *Client) NickUhost() string {
	return fmt.Sprintf("%s!%s@%s", c.Nick, c.Username, c.Hostname)
}

// Send queues a message for this client's writer goroutine. Handlers
// must never write to the socket directly (spec section 4.7); this is
// the only path outbound data takes.
//
// outboundQueueCap bounds the queue. A full queue means this client
// isn't draining -- we drop the message and log it rather than block
// the event loop or close the connection (spec section 4.7, section 7).
func (c *Client) Send(m irc.Message) {
	select {
	case c.outbound <- m:
	default:
		log.Printf("client %s: outbound queue full, dropping %s", c, m.Command)
	}
}

// readLoop reads frames off the connection and forwards each complete
// line to the server's event loop. It owns c.frame exclusively.
//
// This is the Go-native replacement for the ancestor's MSG_PEEK-then-
// reread pattern: one blocking Read per iteration, appended to this
// client's own buffer, never a shared one (see DESIGN.md).
func (c *Client) readLoop(s *Server) {
	buf := make([]byte, 4096)
	for {
		n, err := c.Conn.Read(buf)
		if n > 0 {
			lines, overflow := c.frame.Push(buf[:n])
			if overflow {
				s.newEvent(event{typ: eventLineTooLong, client: c})
			}
			for _, line := range lines {
				s.newEvent(event{typ: eventClientLine, client: c, line: line})
			}
		}
		if err != nil {
			s.newEvent(event{typ: eventDeadClient, client: c, err: err})
			return
		}
	}
}

// writeLoop drains c.outbound and writes each message to the socket.
// It returns (and closes the connection) once the event loop closes
// c.outbound, which it does only after removing the client from every
// registry.
func (c *Client) writeLoop() {
	for m := range c.outbound {
		encoded, err := m.Encode()
		if err != nil && encoded == "" {
			log.Printf("client %s: failed to encode %s: %s", c, m.Command, err)
			continue
		}
		if _, err := c.Conn.Write([]byte(encoded)); err != nil {
			// The reader goroutine will observe the same failure and report
			// eventDeadClient; nothing more to do here.
			break
		}
	}

	if err := c.Conn.Close(); err != nil {
		log.Printf("client %s: error closing connection: %s", c, err)
	}
}
