package main

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ServerName is the name this relay uses as the prefix on every
// server-originated message. There is no configuration file in this
// spec (section 6: invocation is exactly <port> <password>), so unlike
// the teacher codebase's server-name config key, it is a constant.
const ServerName = "ircserv"

const (
	// outboundQueueCap bounds each client's outbound message queue. Sized
	// generously above the spec's 64 KiB soft cap (section 4.7) in terms
	// of typical reply size, so the cap is reached only by a client that
	// has stopped reading entirely.
	outboundQueueCap = 2048

	// eventQueueCap bounds the event loop's inbound channel. Sized well
	// above any burst a single accept-tick can produce.
	eventQueueCap = 4096

	idlePingTime        = 90 * time.Second
	idleDeadTime        = 180 * time.Second
	registrationTimeout = 60 * time.Second
	alarmInterval       = 15 * time.Second
)

// eventType tags what happened and is carried on the single channel
// every connection goroutine reports through. This is a tagged dispatch
// variant, not polymorphism over event kinds (spec section 9).
type eventType int

const (
	eventNewClient eventType = iota
	eventClientLine
	eventLineTooLong
	eventDeadClient
	eventTick
)

// event is one occurrence the event-loop goroutine reacts to.
type event struct {
	typ    eventType
	client *Client
	line   string
	err    error
}

// Server holds every piece of state the event loop owns: the client and
// channel registries, and the bookkeeping needed to accept and tear down
// connections.
//
// Every field here except the ones explicitly called out is touched
// only by the single event-loop goroutine run by Run. Reader/writer
// goroutines communicate with it exclusively over the events channel --
// this is the Go-native realization of spec section 4.6/5's "single
// writer to the registries" requirement (see DESIGN.md).
type Server struct {
	Password string

	listener net.Listener
	events   chan event
	done     chan struct{}
	wg       sync.WaitGroup

	// ready carries the bound listen address once Run has started
	// accepting, so tests can bind to an ephemeral port and still connect
	// to it. Mirrors the teacher codebase's LogChan: a channel a test
	// harness polls instead of racing on internal state.
	ready chan net.Addr

	nextHandle uint64

	clients  *ClientRegistry
	channels *ChannelRegistry
}

// NewServer creates a server with an empty client registry and the
// fixed seed set of channels (spec section 4.4).
func NewServer(password string) *Server {
	return &Server{
		Password: password,
		events:   make(chan event, eventQueueCap),
		done:     make(chan struct{}),
		clients:  NewClientRegistry(),
		channels: NewChannelRegistry(),
		ready:    make(chan net.Addr, 1),
	}
}

// WaitForReady blocks until the server is listening and returns the
// bound address. For use by tests that bind to an ephemeral port
// (":0") and need to know which port was actually chosen.
func (s *Server) WaitForReady() net.Addr {
	return <-s.ready
}

// Run binds addr, then accepts connections and drives the event loop
// until Shutdown is called. It blocks until the event loop exits.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "unable to listen on %s", addr)
	}
	s.listener = ln
	s.ready <- ln.Addr()

	log.Printf("listening on %s", addr)

	s.wg.Add(2)
	go s.acceptLoop()
	go s.alarmLoop()

	s.eventLoop()
	return nil
}

// Shutdown stops the event loop and closes the listener, then waits for
// the accept and alarm goroutines and every connection's reader and
// writer goroutines to exit. On stopping, the event loop closes every
// remaining client's outbound queue, so each writer goroutine closes its
// connection.
func (s *Server) Shutdown() {
	close(s.done)
	if err := s.listener.Close(); err != nil {
		log.Printf("error closing listener: %s", err)
	}
	s.wg.Wait()
}

// newEvent is how every connection goroutine reports to the event loop.
// It blocks while the event queue is full (eventQueueCap is sized so this
// only happens under pathological load) and returns without delivering
// the event once the server is shutting down.
func (s *Server) newEvent(e event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

// acceptLoop accepts new connections until the listener is closed, and
// reports each one to the event loop.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			log.Printf("accept error: %s", err)
			continue
		}

		handle := s.allocHandle()
		client := NewClient(handle, conn)

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			client.readLoop(s)
		}()
		go func() {
			defer s.wg.Done()
			client.writeLoop()
		}()

		s.newEvent(event{typ: eventNewClient, client: client})
	}
}

// allocHandle hands out unique connection handles. It is called only
// from acceptLoop, which is the sole writer of nextHandle, so no lock is
// needed despite the event loop reading handles concurrently (handles,
// once assigned, are never mutated).
func (s *Server) allocHandle() uint64 {
	s.nextHandle++
	return s.nextHandle
}

// alarmLoop wakes the event loop periodically so it can ping idle
// clients and enforce the registration timeout, mirroring the teacher
// codebase's alarm-goroutine-plus-channel pattern (section 5, section
// 9).
func (s *Server) alarmLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(alarmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.newEvent(event{typ: eventTick})
		case <-s.done:
			return
		}
	}
}

// eventLoop is the single goroutine that owns the registries. It is the
// reactor described in spec section 4.6, realized over channels instead
// of a nonblocking poll loop. When the server shuts down it removes every
// remaining client and closes its outbound queue.
func (s *Server) eventLoop() {
	for {
		select {
		case e := <-s.events:
			s.handleEvent(e)
		case <-s.done:
			for _, c := range s.clients.byHandle {
				s.clients.RemoveByHandle(c.Handle)
				close(c.outbound)
			}
			return
		}
	}
}

func (s *Server) handleEvent(e event) {
	switch e.typ {
	case eventNewClient:
		s.onNewClient(e.client)
	case eventClientLine:
		s.onClientLine(e.client, e.line)
	case eventLineTooLong:
		s.onLineTooLong(e.client)
	case eventDeadClient:
		s.onDeadClient(e.client, e.err)
	case eventTick:
		s.onTick()
	}
}

func (s *Server) onNewClient(c *Client) {
	s.clients.Insert(c)
	log.Printf("client %s: connected", c)
}

func (s *Server) onLineTooLong(c *Client) {
	if _, ok := s.clients.FindByHandle(c.Handle); !ok {
		return
	}
	c.Send(numeric(ServerName, c.Nick, ErrInputTooLong, "Input line was too long"))
}

func (s *Server) onClientLine(c *Client, line string) {
	if _, ok := s.clients.FindByHandle(c.Handle); !ok {
		// Already torn down (e.g. a dead-client event beat this line
		// through the channel); ignore.
		return
	}

	c.LastActivityTime = time.Now()

	parsed, err := ParseLine(line)
	if err != nil {
		log.Printf("client %s: malformed line, ignoring: %s", c, err)
		return
	}

	if c.State == stateJustConnected {
		s.handleRegistrationLine(c, parsed)
		return
	}

	s.dispatch(c, parsed)
}

// onDeadClient tears down a client whose connection failed or hung up.
// It is also the path QUIT and kicks use internally via destroyClient;
// onDeadClient itself is only reached for I/O failures the client did
// not request.
func (s *Server) onDeadClient(c *Client, err error) {
	if _, ok := s.clients.FindByHandle(c.Handle); !ok {
		return
	}

	reason := "Connection reset by peer"
	if err != nil && err.Error() != "" {
		reason = "I/O error"
	}

	log.Printf("client %s: disconnected: %s", c, err)
	s.destroyClient(c, reason, false)
}

// onTick runs the periodic liveness sweep: PING idle registered
// clients, drop ones that are idle too long, and enforce the
// registration timeout on clients still JustConnected.
func (s *Server) onTick() {
	now := time.Now()

	for _, c := range s.clients.byHandle {
		idle := now.Sub(c.LastActivityTime)

		if c.State == stateJustConnected {
			if now.Sub(c.ConnectedAt) > registrationTimeout {
				s.destroyClient(c, "Registration timeout", false)
			}
			continue
		}

		if idle > idleDeadTime {
			s.destroyClient(c, "Ping timeout", false)
			continue
		}
		if idle > idlePingTime {
			c.Send(fromClient(ServerName, "PING", ServerName))
		}
	}
}
