package main

import (
	"net"
	"testing"
)

func TestClientRegistryRename(t *testing.T) {
	r := NewClientRegistry()
	conn, peer := net.Pipe()
	defer peer.Close()
	c := NewClient(1, conn)
	r.Insert(c)

	if ok := r.Rename(1, "alice"); !ok {
		t.Fatalf("expected rename to succeed")
	}
	c.Nick = "alice"

	found, ok := r.FindByNick("alice")
	if !ok || found.Handle != 1 {
		t.Fatalf("expected to find alice by handle 1")
	}

	// Case-sensitive: "Alice" must not collide with "alice" (spec's nick
	// uniqueness is explicitly case-sensitive, unlike the teacher
	// codebase's folded lookup -- see DESIGN.md).
	conn2, peer2 := net.Pipe()
	defer peer2.Close()
	c2 := NewClient(2, conn2)
	r.Insert(c2)
	if ok := r.Rename(2, "Alice"); !ok {
		t.Fatalf("expected Alice (different case) to be a distinct nick")
	}
}

func TestClientRegistryRenameRejectsDuplicate(t *testing.T) {
	r := NewClientRegistry()
	conn1, peer1 := net.Pipe()
	defer peer1.Close()
	conn2, peer2 := net.Pipe()
	defer peer2.Close()
	c1 := NewClient(1, conn1)
	c2 := NewClient(2, conn2)
	r.Insert(c1)
	r.Insert(c2)

	if ok := r.Rename(1, "bob"); !ok {
		t.Fatalf("expected first rename to succeed")
	}
	c1.Nick = "bob"

	if ok := r.Rename(2, "bob"); ok {
		t.Fatalf("expected second client to be rejected the same nick")
	}
}

func TestChannelRegistrySeeded(t *testing.T) {
	r := NewChannelRegistry()

	for _, name := range []string{"#general", "#random", "#hmeftah", "#yajallal", "#vip"} {
		if _, ok := r.Find(name); !ok {
			t.Fatalf("expected seed channel %s to exist", name)
		}
	}

	vip, _ := r.Find("#vip")
	if !vip.HasLimit || vip.Limit != 2 {
		t.Fatalf("expected #vip to have a limit of 2")
	}

	hmeftah, _ := r.Find("#HMEFTAH")
	if hmeftah == nil || !hmeftah.HasKey || hmeftah.Key != "hmeftah" {
		t.Fatalf("expected #hmeftah lookup to be case-insensitive and keyed")
	}
}

func TestChannelRegistryRemoveMemberDestroysNonSeed(t *testing.T) {
	r := NewChannelRegistry()
	ch := NewChannel("#ephemeral", false)
	ch.Add(1, RoleFounder)
	r.byName["#ephemeral"] = ch

	r.RemoveMember(1)

	if _, ok := r.Find("#ephemeral"); ok {
		t.Fatalf("expected non-seed channel to be destroyed once empty")
	}
}
