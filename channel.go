package main

import "fmt"

// Role is a member's standing within a channel. It governs what
// channel state that member may mutate.
type Role int

// Roles, in ascending order of privilege.
const (
	RolePlain Role = iota
	RoleOperator
	RoleFounder
)

// Channel is a named, multi-member chat room.
//
// A Channel is owned exclusively by the ChannelRegistry; its membership
// map stores only client handles, never client records, so deleting a
// client invalidates nothing here.
type Channel struct {
	Name string

	Topic string

	// Members maps client handle to role. A client appears at most once.
	Members map[uint64]Role

	// Invited holds handles pre-authorized to JOIN under +i.
	Invited map[uint64]struct{}

	// Modes.
	InviteOnly  bool // +i
	TopicLocked bool // +t
	HasKey      bool // +k
	Key         string
	HasLimit    bool // +l
	Limit       int

	// seed marks one of the channels created at server start that stays
	// in the registry even with zero members (spec.md section 4.4).
	seed bool
}

// NewChannel creates an empty channel with no members.
func NewChannel(name string, seed bool) *Channel {
	return &Channel{
		Name:    name,
		Members: make(map[uint64]Role),
		Invited: make(map[uint64]struct{}),
		seed:    seed,
	}
}

// HasMember reports whether handle is a member.
func (c *Channel) HasMember(handle uint64) bool {
	_, ok := c.Members[handle]
	return ok
}

// RoleOf returns the member's role. Only valid if HasMember is true.
func (c *Channel) RoleOf(handle uint64) Role {
	return c.Members[handle]
}

// Add inserts handle as a member with the given role. The first member
// of a freshly created channel should be added with RoleFounder.
func (c *Channel) Add(handle uint64, role Role) {
	c.Members[handle] = role
	delete(c.Invited, handle)
}

// Remove drops handle from the membership. It reports whether the
// channel is now empty and not a seed channel, meaning the caller
// should destroy it in the registry.
func (c *Channel) Remove(handle uint64) (nowEmpty bool) {
	delete(c.Members, handle)
	return len(c.Members) == 0 && !c.seed
}

// IsInvited reports whether handle was INVITEd and hasn't joined yet.
func (c *Channel) IsInvited(handle uint64) bool {
	_, ok := c.Invited[handle]
	return ok
}

// Invite pre-authorizes handle to join an invite-only channel.
func (c *Channel) Invite(handle uint64) {
	c.Invited[handle] = struct{}{}
}

// SetRole changes a member's role. It is a total function: it does not
// check caller privilege, which is the dispatcher's job (it needs to
// render the correct numeric on failure).
func (c *Channel) SetRole(handle uint64, role Role) error {
	if !c.HasMember(handle) {
		return fmt.Errorf("handle %d is not a member of %s", handle, c.Name)
	}
	c.Members[handle] = role
	return nil
}

// NamesList renders the channel's membership for RPL_NAMREPLY: one
// space-separated token per member, prefixed with ~ (founder) or @
// (operator).
func (c *Channel) NamesList(nickOf func(uint64) string) []string {
	names := make([]string, 0, len(c.Members))
	for handle, role := range c.Members {
		nick := nickOf(handle)
		if nick == "" {
			continue
		}
		switch role {
		case RoleFounder:
			names = append(names, "~"+nick)
		case RoleOperator:
			names = append(names, "@"+nick)
		default:
			names = append(names, nick)
		}
	}
	return names
}

// ModeString renders the channel's current flags the way RPL_CHANNELMODEIS
// and MODE echoes expect: "+itlk" followed by any parameters the set
// flags carry (limit, then key).
func (c *Channel) ModeString() (modes string, params []string) {
	modes = "+"
	if c.InviteOnly {
		modes += "i"
	}
	if c.TopicLocked {
		modes += "t"
	}
	if c.HasLimit {
		modes += "l"
		params = append(params, fmt.Sprintf("%d", c.Limit))
	}
	if c.HasKey {
		modes += "k"
		params = append(params, c.Key)
	}
	return modes, params
}
