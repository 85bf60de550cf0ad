package main

import "fmt"

// nickCommand handles NICK after registration. Unlike the teacher
// codebase (which only enforces uniqueness pre-registration), this
// enforces it here too, resolving spec.md's Open Question in favor of
// P3.
func (s *Server) nickCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNoNicknameGiven, "No nickname given"))
		return
	}

	nick := params[0]
	if !isValidNick(nick) {
		c.Send(numeric(ServerName, c.Nick, "432", nick, "Erroneous nickname"))
		return
	}

	if existing, taken := s.clients.FindByNick(nick); taken && existing.Handle != c.Handle {
		c.Send(numeric(ServerName, c.Nick, ErrNicknameInUse, nick, "Nickname is already in use"))
		return
	}

	if ok := s.clients.Rename(c.Handle, nick); !ok {
		c.Send(numeric(ServerName, c.Nick, ErrNicknameInUse, nick, "Nickname is already in use"))
		return
	}

	old := c.NickUhost()
	c.Nick = nick

	informed := map[uint64]struct{}{}
	for name := range c.Channels {
		ch, ok := s.channels.Find(name)
		if !ok {
			continue
		}
		for handle := range ch.Members {
			if _, done := informed[handle]; done {
				continue
			}
			if peer, ok := s.clients.FindByHandle(handle); ok {
				peer.Send(fromClient(old, "NICK", nick))
			}
			informed[handle] = struct{}{}
		}
	}
	if _, done := informed[c.Handle]; !done {
		c.Send(fromClient(old, "NICK", nick))
	}
}

// joinCommand handles JOIN <chan>[,<chan>]* [<key>[,<key>]*].
func (s *Server) joinCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "JOIN", "Not enough parameters"))
		return
	}

	channelNames := splitCommaList(params[0])
	var keys []string
	if len(params) > 1 {
		keys = splitCommaList(params[1])
	}

	for i, name := range channelNames {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(c, name, key)
	}
}

func (s *Server) joinOne(c *Client, name, key string) {
	canon := canonicalizeChannel(name)

	if !isValidChannel(canon) {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	ch, ok := s.channels.Find(canon)
	if !ok {
		// Channels are never created at runtime via JOIN in this relay
		// (spec.md's Open Question resolution, section 9).
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	if ch.HasMember(c.Handle) {
		return
	}

	if ch.HasKey && ch.Key != key {
		c.Send(numeric(ServerName, c.Nick, ErrBadChannelKey, ch.Name, "Cannot join channel (+k)"))
		return
	}

	if ch.InviteOnly && !ch.IsInvited(c.Handle) {
		c.Send(numeric(ServerName, c.Nick, ErrInviteOnlyChan, ch.Name, "Cannot join channel (+i)"))
		return
	}

	if ch.HasLimit && len(ch.Members) >= ch.Limit {
		c.Send(numeric(ServerName, c.Nick, ErrChannelIsFull, ch.Name, "Cannot join channel (+l)"))
		return
	}

	role := RolePlain
	if len(ch.Members) == 0 {
		role = RoleFounder
	}
	ch.Add(c.Handle, role)
	c.Channels[canon] = struct{}{}

	joinMsg := fromClient(c.NickUhost(), "JOIN", ch.Name)
	c.Send(joinMsg)
	for handle := range ch.Members {
		if handle == c.Handle {
			continue
		}
		if peer, ok := s.clients.FindByHandle(handle); ok {
			peer.Send(joinMsg)
		}
	}

	if ch.Topic != "" {
		c.Send(numeric(ServerName, c.Nick, ReplyTopic, ch.Name, ch.Topic))
	} else {
		c.Send(numeric(ServerName, c.Nick, ReplyNoTopic, ch.Name, "No topic is set"))
	}

	names := ch.NamesList(func(h uint64) string {
		if peer, ok := s.clients.FindByHandle(h); ok {
			return peer.Nick
		}
		return ""
	})
	c.Send(numeric(ServerName, c.Nick, ReplyNamReply, "=", ch.Name, joinStrings(names)))
	c.Send(numeric(ServerName, c.Nick, ReplyEndOfNames, ch.Name, "End of NAMES list"))
}

// partCommand handles PART <#chan> [:<reason>]. Not in spec.md's command
// table; supplemented from the teacher codebase's partCommand/part pair
// since JOIN/KICK/QUIT already need the same membership-removal
// machinery (see SPEC_FULL.md).
func (s *Server) partCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "PART", "Not enough parameters"))
		return
	}

	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}

	for _, name := range splitCommaList(params[0]) {
		s.partOne(c, name, reason)
	}
}

func (s *Server) partOne(c *Client, name, reason string) {
	canon := canonicalizeChannel(name)
	ch, ok := s.channels.Find(canon)
	if !ok || !ch.HasMember(c.Handle) {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "You're not on that channel"))
		return
	}

	partParams := []string{ch.Name}
	if reason != "" {
		partParams = append(partParams, reason)
	}
	partMsg := fromClient(c.NickUhost(), "PART", partParams...)

	for handle := range ch.Members {
		if peer, ok := s.clients.FindByHandle(handle); ok {
			peer.Send(partMsg)
		}
	}

	if ch.Remove(c.Handle) {
		s.channels.Destroy(canon)
	}
	delete(c.Channels, canon)
}

// whoCommand handles WHO <#chan>.
func (s *Server) whoCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "WHO", "Not enough parameters"))
		return
	}

	name := params[0]
	ch, ok := s.channels.Find(name)
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ReplyEndOfWho, name, "End of WHO list"))
		return
	}

	for handle, role := range ch.Members {
		peer, ok := s.clients.FindByHandle(handle)
		if !ok {
			continue
		}
		flag := "H"
		if role == RoleOperator {
			flag = "H@"
		} else if role == RoleFounder {
			flag = "H~"
		}
		c.Send(numeric(ServerName, c.Nick, ReplyWhoReply,
			ch.Name, peer.Username, peer.Hostname, ServerName, peer.Nick, flag,
			"0 "+peer.RealName))
	}
	c.Send(numeric(ServerName, c.Nick, ReplyEndOfWho, ch.Name, "End of WHO list"))
}

// whoisCommand handles WHOIS <nick>, trimmed of the server-linking
// fields (hopcount, SID) the teacher codebase's version carries, since
// server-to-server linking is an explicit Non-goal.
func (s *Server) whoisCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "WHOIS", "Not enough parameters"))
		return
	}

	nick := params[0]
	peer, ok := s.clients.FindByNick(nick)
	if !ok || peer.State != stateRegistered {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchNick, nick, "No such nick/channel"))
		return
	}

	c.Send(numeric(ServerName, c.Nick, ReplyWhoisUser,
		peer.Nick, peer.Username, peer.Hostname, "*", peer.RealName))
	c.Send(numeric(ServerName, c.Nick, ReplyWhoisServer, peer.Nick, ServerName, "ircserv relay"))
	c.Send(numeric(ServerName, c.Nick, ReplyEndOfWhois, peer.Nick, "End of WHOIS list"))
}

// modeCommand handles MODE <#chan> [<modes> [<params>]].
func (s *Server) modeCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "MODE", "Not enough parameters"))
		return
	}

	name := params[0]
	ch, ok := s.channels.Find(name)
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	if len(params) == 1 {
		modes, modeParams := ch.ModeString()
		allParams := append([]string{ch.Name, modes}, modeParams...)
		c.Send(numeric(ServerName, c.Nick, ReplyChannelModeIs, allParams...))
		return
	}

	if !ch.HasMember(c.Handle) || ch.RoleOf(c.Handle) == RolePlain {
		c.Send(numeric(ServerName, c.Nick, ErrChanOPrivsNeeded, ch.Name, "You're not channel operator"))
		return
	}

	s.applyModeString(c, ch, params[1], params[2:])
}

func (s *Server) applyModeString(c *Client, ch *Channel, modeStr string, args []string) {
	adding := true
	argIdx := 0
	nextArg := func() (string, bool) {
		if argIdx >= len(args) {
			return "", false
		}
		v := args[argIdx]
		argIdx++
		return v, true
	}

	var applied []string

	for _, ch2 := range modeStr {
		switch ch2 {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		case 'i':
			ch.InviteOnly = adding
			applied = append(applied, sign(adding)+"i")
		case 't':
			ch.TopicLocked = adding
			applied = append(applied, sign(adding)+"t")
		case 'k':
			if adding {
				key, ok := nextArg()
				if !ok {
					continue
				}
				ch.HasKey = true
				ch.Key = key
				applied = append(applied, sign(adding)+"k", key)
			} else {
				ch.HasKey = false
				ch.Key = ""
				applied = append(applied, sign(adding)+"k")
			}
		case 'l':
			if adding {
				lim, ok := nextArg()
				if !ok {
					continue
				}
				n := 0
				if _, err := fmt.Sscanf(lim, "%d", &n); err != nil || n <= 0 {
					continue
				}
				ch.HasLimit = true
				ch.Limit = n
				applied = append(applied, sign(adding)+"l", lim)
			} else {
				ch.HasLimit = false
				applied = append(applied, sign(adding)+"l")
			}
		case 'o':
			nick, ok := nextArg()
			if !ok {
				continue
			}
			peer, ok := s.clients.FindByNick(nick)
			if !ok || !ch.HasMember(peer.Handle) {
				continue
			}
			if adding {
				_ = ch.SetRole(peer.Handle, RoleOperator)
			} else if ch.RoleOf(peer.Handle) != RoleFounder {
				_ = ch.SetRole(peer.Handle, RolePlain)
			}
			applied = append(applied, sign(adding)+"o", nick)
		default:
			c.Send(numeric(ServerName, c.Nick, ErrUnknownMode, string(ch2), "is unknown mode char to me"))
		}
	}

	if len(applied) == 0 {
		return
	}

	modeMsg := fromClient(c.NickUhost(), "MODE", append([]string{ch.Name}, applied...)...)
	for handle := range ch.Members {
		if peer, ok := s.clients.FindByHandle(handle); ok {
			peer.Send(modeMsg)
		}
	}
}

func sign(adding bool) string {
	if adding {
		return "+"
	}
	return "-"
}

// privmsgCommand handles PRIVMSG <target>[,<target>]* :<text>.
func (s *Server) privmsgCommand(c *Client, p ParsedLine) {
	params := p.Params
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNoRecipient, "No recipient given (PRIVMSG)"))
		return
	}
	if !p.HadTrailing && len(params) < 2 {
		c.Send(numeric(ServerName, c.Nick, ErrNoTextToSend, "No text to send"))
		return
	}

	text := p.Trailing
	if !p.HadTrailing {
		text = params[len(params)-1]
		params = params[:len(params)-1]
	}
	if text == "" {
		c.Send(numeric(ServerName, c.Nick, ErrNoTextToSend, "No text to send"))
		return
	}

	for _, target := range splitCommaList(params[0]) {
		s.privmsgOne(c, target, text)
	}
}

func (s *Server) privmsgOne(c *Client, target, text string) {
	restrict := byte(0)
	name := target
	if len(name) > 1 && (name[0] == '@' || name[0] == '~') {
		restrict = name[0]
		name = name[1:]
	}

	if len(name) > 0 && name[0] == '#' {
		canon := canonicalizeChannel(name)
		ch, ok := s.channels.Find(canon)
		if !ok {
			c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
			return
		}

		if !ch.HasMember(c.Handle) {
			c.Send(numeric(ServerName, c.Nick, ErrCannotSendToChan, ch.Name, "Cannot send to channel"))
			return
		}

		msg := fromClient(c.NickUhost(), "PRIVMSG", ch.Name, text)
		for handle, role := range ch.Members {
			if handle == c.Handle {
				continue
			}
			if restrict != 0 && role == RolePlain {
				continue
			}
			if peer, ok := s.clients.FindByHandle(handle); ok {
				peer.Send(msg)
			}
		}
		return
	}

	peer, ok := s.clients.FindByNick(name)
	if !ok || peer.State != stateRegistered {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchNick, name, "No such nick/channel"))
		return
	}
	peer.Send(fromClient(c.NickUhost(), "PRIVMSG", name, text))
}

// topicCommand handles TOPIC <#chan> [:<new>].
func (s *Server) topicCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) == 0 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "TOPIC", "Not enough parameters"))
		return
	}

	name := params[0]
	ch, ok := s.channels.Find(name)
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	if !p.HadTrailing {
		if ch.Topic == "" {
			c.Send(numeric(ServerName, c.Nick, ReplyNoTopic, ch.Name, "No topic is set"))
		} else {
			c.Send(numeric(ServerName, c.Nick, ReplyTopic, ch.Name, ch.Topic))
		}
		return
	}

	if ch.TopicLocked && (!ch.HasMember(c.Handle) || ch.RoleOf(c.Handle) == RolePlain) {
		c.Send(numeric(ServerName, c.Nick, ErrChanOPrivsNeeded, ch.Name, "You're not channel operator"))
		return
	}

	newTopic := p.Trailing
	if len(newTopic) > maxTopicLength {
		newTopic = newTopic[:maxTopicLength]
	}
	ch.Topic = newTopic

	topicMsg := fromClient(c.NickUhost(), "TOPIC", ch.Name, newTopic)
	for handle := range ch.Members {
		if peer, ok := s.clients.FindByHandle(handle); ok {
			peer.Send(topicMsg)
		}
	}
}

// inviteCommand handles INVITE <nick> <#chan>.
func (s *Server) inviteCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) < 2 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "INVITE", "Not enough parameters"))
		return
	}

	nick, name := params[0], params[1]
	ch, ok := s.channels.Find(name)
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	if !ch.HasMember(c.Handle) {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "You're not on that channel"))
		return
	}
	if ch.InviteOnly && ch.RoleOf(c.Handle) == RolePlain {
		c.Send(numeric(ServerName, c.Nick, ErrChanOPrivsNeeded, ch.Name, "You're not channel operator"))
		return
	}

	peer, ok := s.clients.FindByNick(nick)
	if !ok || peer.State != stateRegistered {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchNick, nick, "No such nick/channel"))
		return
	}

	ch.Invite(peer.Handle)
	peer.Send(fromClient(c.NickUhost(), "INVITE", nick, ch.Name))
	c.Send(numeric(ServerName, c.Nick, ReplyInviting, nick, ch.Name))
}

// kickCommand handles KICK <#chan> <nick> [:<reason>].
func (s *Server) kickCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	if len(params) < 2 {
		c.Send(numeric(ServerName, c.Nick, ErrNeedMoreParams, "KICK", "Not enough parameters"))
		return
	}

	name, nick := params[0], params[1]
	reason := c.Nick
	if len(params) > 2 {
		reason = params[2]
	}

	ch, ok := s.channels.Find(name)
	if !ok {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchChannel, name, "No such channel"))
		return
	}

	if !ch.HasMember(c.Handle) || ch.RoleOf(c.Handle) == RolePlain {
		c.Send(numeric(ServerName, c.Nick, ErrChanOPrivsNeeded, ch.Name, "You're not channel operator"))
		return
	}

	target, ok := s.clients.FindByNick(nick)
	if !ok || !ch.HasMember(target.Handle) {
		c.Send(numeric(ServerName, c.Nick, ErrNoSuchNick, nick, "No such nick/channel"))
		return
	}

	kickMsg := fromClient(c.NickUhost(), "KICK", ch.Name, nick, reason)
	for handle := range ch.Members {
		if handle == target.Handle {
			continue
		}
		if peer, ok := s.clients.FindByHandle(handle); ok {
			peer.Send(kickMsg)
		}
	}
	target.Send(kickMsg)

	if ch.Remove(target.Handle) {
		s.channels.Destroy(canonicalizeChannel(ch.Name))
	}
	delete(target.Channels, canonicalizeChannel(ch.Name))
}

// quitCommand handles QUIT [:<reason>].
func (s *Server) quitCommand(c *Client, p ParsedLine) {
	reason := "Quit"
	if p.HadTrailing {
		reason = p.Trailing
	}
	s.destroyClient(c, reason, true)
}

// pingCommand answers a client-initiated PING with PONG, the other
// half of the liveness keepalive the alarm ticker drives (server.go).
func (s *Server) pingCommand(c *Client, p ParsedLine) {
	params := p.AllParams()
	origin := ServerName
	if len(params) > 0 {
		origin = params[0]
	}
	c.Send(fromClient(ServerName, "PONG", ServerName, origin))
}

func (s *Server) lusersCommand(c *Client) {
	c.Send(numeric(ServerName, c.Nick, ReplyLUserClient,
		fmt.Sprintf("There are %d users on 1 server.", s.clients.RegisteredCount())))
	c.Send(numeric(ServerName, c.Nick, ReplyLUserChannels,
		fmt.Sprintf("%d", len(s.channels.All())), "channels formed"))
	c.Send(numeric(ServerName, c.Nick, ReplyLUserMe,
		fmt.Sprintf("I have %d clients and 1 server", s.clients.Count())))
}

func (s *Server) motdCommand(c *Client) {
	c.Send(numeric(ServerName, c.Nick, ReplyMotdStart, fmt.Sprintf("- %s Message of the day -", ServerName)))
	c.Send(numeric(ServerName, c.Nick, ReplyMotd, "- Welcome to ircserv."))
	c.Send(numeric(ServerName, c.Nick, ReplyEndOfMotd, "End of MOTD command"))
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
