package main

import "fmt"

// ClientRegistry owns every connected Client, indexed by connection
// handle (primary, owning) and by nick (non-owning, rebuilt on NICK).
//
// It is touched only by the event-loop goroutine: see server.go.
type ClientRegistry struct {
	byHandle map[uint64]*Client
	byNick   map[string]*Client
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		byHandle: make(map[uint64]*Client),
		byNick:   make(map[string]*Client),
	}
}

// Insert adds a newly accepted client. It has no nick yet.
func (r *ClientRegistry) Insert(c *Client) {
	r.byHandle[c.Handle] = c
}

// FindByHandle looks a client up by connection handle.
func (r *ClientRegistry) FindByHandle(handle uint64) (*Client, bool) {
	c, ok := r.byHandle[handle]
	return c, ok
}

// FindByNick looks a client up by nick. Lookups are case-sensitive:
// spec.md section 3 requires nicks to be unique "case-sensitive here",
// a deliberate divergence from the case-folded nick index this code's
// teacher uses. See DESIGN.md.
func (r *ClientRegistry) FindByNick(nick string) (*Client, bool) {
	c, ok := r.byNick[canonicalizeNick(nick)]
	return c, ok
}

// Rename reserves newNick for handle, releasing its previous nick (if
// any). It fails with ok=false if newNick is already taken by a
// different client -- the caller should reply ERR_NICKNAMEINUSE.
//
// This enforces uniqueness both pre- and post-registration (P3),
// resolving the spec's Open Question on post-registration NICK in favor
// of uniqueness.
func (r *ClientRegistry) Rename(handle uint64, newNick string) (ok bool) {
	canon := canonicalizeNick(newNick)

	if existing, taken := r.byNick[canon]; taken && existing.Handle != handle {
		return false
	}

	c, found := r.byHandle[handle]
	if !found {
		return false
	}

	if c.Nick != "" {
		delete(r.byNick, canonicalizeNick(c.Nick))
	}
	r.byNick[canon] = c
	return true
}

// RemoveByHandle drops a client from both indices. It does not touch
// channel membership; the event loop is responsible for parting every
// channel the client was in before calling this (P5).
func (r *ClientRegistry) RemoveByHandle(handle uint64) {
	c, ok := r.byHandle[handle]
	if !ok {
		return
	}
	if c.Nick != "" {
		delete(r.byNick, canonicalizeNick(c.Nick))
	}
	delete(r.byHandle, handle)
}

// Count returns the number of connected clients, registered or not.
func (r *ClientRegistry) Count() int {
	return len(r.byHandle)
}

// RegisteredCount returns the number of clients that completed
// registration.
func (r *ClientRegistry) RegisteredCount() int {
	n := 0
	for _, c := range r.byHandle {
		if c.State == stateRegistered {
			n++
		}
	}
	return n
}

// ChannelRegistry owns every Channel, indexed by canonical (lowercased)
// name.
type ChannelRegistry struct {
	byName map[string]*Channel
}

// seedChannels is the fixed set of channels that exist for the lifetime
// of the server. Runtime creation via JOIN to an unknown name is
// rejected (ERR_NOSUCHCHANNEL) -- spec.md's Open Question is resolved
// in favor of the source's existing behavior.
//
// The three keyed channels and their names are a nod to the relay this
// system is descended from: see original_source/.
var seedChannels = []struct {
	name     string
	key      string
	limit    int
	hasLimit bool
}{
	{name: "#general"},
	{name: "#random"},
	{name: "#hmeftah", key: "hmeftah"},
	{name: "#yajallal", key: "yajallal"},
	{name: "#vip", key: "vip", limit: 2, hasLimit: true},
}

// NewChannelRegistry creates a registry pre-populated with the fixed
// seed set of channels.
func NewChannelRegistry() *ChannelRegistry {
	r := &ChannelRegistry{byName: make(map[string]*Channel)}

	for _, seed := range seedChannels {
		ch := NewChannel(seed.name, true)
		if seed.key != "" {
			ch.HasKey = true
			ch.Key = seed.key
		}
		if seed.hasLimit {
			ch.HasLimit = true
			ch.Limit = seed.limit
		}
		r.byName[canonicalizeChannel(seed.name)] = ch
	}

	return r
}

// Find looks a channel up by name, case-insensitively.
func (r *ChannelRegistry) Find(name string) (*Channel, bool) {
	ch, ok := r.byName[canonicalizeChannel(name)]
	return ch, ok
}

// Destroy removes a channel from the registry. Called only for
// non-seed channels that just lost their last member.
func (r *ChannelRegistry) Destroy(name string) {
	delete(r.byName, canonicalizeChannel(name))
}

// RemoveMember removes handle from every channel it belongs to,
// destroying any non-seed channel that becomes empty as a result.
// Returns the names of channels the client was parted from, in no
// particular order -- used after a QUIT broadcast to clear the client's
// own channel set (P1, P5).
func (r *ChannelRegistry) RemoveMember(handle uint64) []string {
	var affected []string
	for name, ch := range r.byName {
		if !ch.HasMember(handle) {
			continue
		}
		affected = append(affected, ch.Name)
		if ch.Remove(handle) {
			delete(r.byName, name)
		}
	}
	return affected
}

// All returns every channel in the registry. Used by LUSERS to count
// channels; callers must not mutate the returned slice's
// Channel pointers' membership without going through the normal
// mutation methods.
func (r *ChannelRegistry) All() []*Channel {
	out := make([]*Channel, 0, len(r.byName))
	for _, ch := range r.byName {
		out = append(out, ch)
	}
	return out
}

func (r *ChannelRegistry) String() string {
	return fmt.Sprintf("%d channels", len(r.byName))
}
