package main

import "fmt"

// handleRegistrationLine processes one line from a JustConnected
// client. Only PASS, NICK, and USER are accepted; everything else is
// rejected with ERR_NOTREGISTERED. The three may arrive in any order
// and are buffered until all three have been seen, at which point
// registration is attempted as one aggregate step (spec section 4.2).
func (s *Server) handleRegistrationLine(c *Client, p ParsedLine) {
	switch p.Command {
	case "PASS":
		params := p.AllParams()
		if len(params) == 0 {
			c.Send(numeric(ServerName, "", ErrNeedMoreParams, "PASS", "Not enough parameters"))
			return
		}
		c.reg.pass = params[0]
		c.reg.sawPass = true

	case "NICK":
		params := p.AllParams()
		if len(params) == 0 {
			c.Send(numeric(ServerName, "", ErrNoNicknameGiven, "No nickname given"))
			return
		}
		nick := params[0]
		if !isValidNick(nick) {
			c.Send(numeric(ServerName, "", "432", nick, "Erroneous nickname"))
			return
		}
		if existing, taken := s.clients.FindByNick(nick); taken && existing.Handle != c.Handle {
			c.Send(numeric(ServerName, "", ErrNicknameInUse, nick, "Nickname is already in use"))
			return
		}
		if ok := s.clients.Rename(c.Handle, nick); !ok {
			c.Send(numeric(ServerName, "", ErrNicknameInUse, nick, "Nickname is already in use"))
			return
		}
		c.Nick = nick
		c.reg.sawNick = true

	case "USER":
		params := p.AllParams()
		if len(params) != 4 {
			c.Send(numeric(ServerName, "", ErrNeedMoreParams, "USER", "Not enough parameters"))
			return
		}
		if !isValidUser(params[0]) {
			c.Send(fromClient(ServerName, "ERROR", "Invalid username"))
			return
		}
		c.Username = params[0]
		c.Hostname = hostnameFromRemoteAddr(c.RemoteAddr)
		c.Servername = params[2]
		c.RealName = params[3]
		c.reg.sawUser = true

	default:
		c.Send(numeric(ServerName, "", ErrNotRegistered, "You have not registered"))
		return
	}

	if c.reg.complete() {
		s.completeRegistration(c)
	}
}

// completeRegistration validates PASS and, on success, promotes the
// client to Registered and sends the welcome burst. On failure it
// disconnects silently: the source this relay descends from closes the
// socket with no reply line on a bad password, and spec.md's Open
// Question preserves that.
func (s *Server) completeRegistration(c *Client) {
	if c.reg.pass != s.Password {
		s.destroyClientSilently(c)
		return
	}

	c.State = stateRegistered

	c.Send(numeric(ServerName, c.Nick, ReplyWelcome,
		fmt.Sprintf("Welcome to the Internet Relay Network %s", c.NickUhost())))
	c.Send(numeric(ServerName, c.Nick, ReplyYourHost,
		fmt.Sprintf("Your host is %s, running version ircserv-1.0", ServerName)))
	c.Send(numeric(ServerName, c.Nick, ReplyCreated, "This server was created today"))
	c.Send(numeric(ServerName, c.Nick, ReplyMyInfo, ServerName, "ircserv-1.0", "o", "itlko"))

	s.lusersCommand(c)
	s.motdCommand(c)
}

// destroyClientSilently removes a client that failed authentication,
// with no reply line at all (not even ERROR) -- the silent-disconnect
// behavior spec.md's Open Question preserves from the source.
func (s *Server) destroyClientSilently(c *Client) {
	s.clients.RemoveByHandle(c.Handle)
	close(c.outbound)
}

// destroyClient removes a client from every channel and from the
// registry, broadcasting a QUIT with the given reason to every channel
// it was a member of whenever the client had registered (P5); the final
// argument does not affect this. It is the teardown path for QUIT,
// kicks-that-empty-a-connection (none in this spec), registration and
// ping timeouts, and I/O failures; a failed PASS goes through
// destroyClientSilently instead.
func (s *Server) destroyClient(c *Client, reason string, _ bool) {
	if c.State == stateRegistered {
		s.broadcastQuit(c, reason)
	}

	s.clients.RemoveByHandle(c.Handle)

	c.Send(fromClient(ServerName, "ERROR", reason))
	close(c.outbound)
}

// broadcastQuit tells every other member of every channel c belongs to
// that it has quit, then removes c's membership from each (P1, P5).
func (s *Server) broadcastQuit(c *Client, reason string) {
	informed := map[uint64]struct{}{}

	for name := range c.Channels {
		ch, ok := s.channels.Find(name)
		if !ok {
			continue
		}
		for handle := range ch.Members {
			if handle == c.Handle {
				continue
			}
			if _, done := informed[handle]; done {
				continue
			}
			if peer, ok := s.clients.FindByHandle(handle); ok {
				peer.Send(fromClient(c.NickUhost(), "QUIT", reason))
			}
			informed[handle] = struct{}{}
		}
	}

	for _, name := range s.channels.RemoveMember(c.Handle) {
		delete(c.Channels, canonicalizeChannel(name))
	}
}

// hostnameFromRemoteAddr strips the port from a "host:port" remote
// address string, for use as the client's displayed hostname.
func hostnameFromRemoteAddr(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
