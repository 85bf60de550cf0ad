package main

// commandTable maps a parsed command token to its handler. This is a
// tagged dispatch table, not polymorphism over command kinds (spec
// section 9): adding a command means adding one entry here and one
// method, nothing else.
var commandTable = map[string]func(*Server, *Client, ParsedLine){
	"NICK":    (*Server).nickCommand,
	"JOIN":    (*Server).joinCommand,
	"PART":    (*Server).partCommand,
	"WHO":     (*Server).whoCommand,
	"WHOIS":   (*Server).whoisCommand,
	"MODE":    (*Server).modeCommand,
	"PRIVMSG": (*Server).privmsgCommand,
	"TOPIC":   (*Server).topicCommand,
	"INVITE":  (*Server).inviteCommand,
	"KICK":    (*Server).kickCommand,
	"QUIT":    (*Server).quitCommand,
	"PING":    (*Server).pingCommand,
	"PONG":    func(*Server, *Client, ParsedLine) {},
	"USER":    alreadyRegisteredCommand,
	"PASS":    alreadyRegisteredCommand,
	"LUSERS":  func(s *Server, c *Client, _ ParsedLine) { s.lusersCommand(c) },
	"MOTD":    func(s *Server, c *Client, _ ParsedLine) { s.motdCommand(c) },
}

// alreadyRegisteredCommand answers a Registered client that resends
// PASS or USER: reregistration is not allowed (ERR_ALREADYREGISTRED).
func alreadyRegisteredCommand(s *Server, c *Client, _ ParsedLine) {
	c.Send(numeric(ServerName, c.Nick, ErrAlreadyRegistred, "You may not reregister"))
}

// dispatch routes one parsed command from a Registered client to its
// handler (spec section 4.2, point 2).
func (s *Server) dispatch(c *Client, p ParsedLine) {
	handler, ok := commandTable[p.Command]
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ErrUnknownCommand, p.Command, "Unknown command"))
		return
	}
	handler(s, c, p)
}
