package main

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testClient is a thin raw-socket IRC client for exercising a running
// Server end to end, grounded on the teacher codebase's tests/ harness
// (tests/mode_test.go) but trimmed to a single, non-linked server.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialTestClient(t *testing.T, addr net.Addr) *testClient {
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err, "dial server")
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err, "write line %q", line)
}

func (c *testClient) readLine() string {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) // nolint: errcheck
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err, "read line")
	return line
}

func (c *testClient) expectContains(substr string) string {
	for i := 0; i < 20; i++ {
		line := c.readLine()
		if containsString(line, substr) {
			return line
		}
	}
	require.Fail(c.t, fmt.Sprintf("did not see a line containing %q", substr))
	return ""
}

// countContaining drains whatever arrives within window and reports how
// many lines contain substr. Used to assert a message is delivered
// exactly once, not merely "at least once" (expectContains stops at the
// first match, so it cannot catch a duplicate delivery).
func (c *testClient) countContaining(substr string, window time.Duration) int {
	deadline := time.Now().Add(window)
	count := 0
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return count
		}
		c.conn.SetReadDeadline(deadline) // nolint: errcheck
		line, err := c.r.ReadString('\n')
		if err != nil {
			return count
		}
		if containsString(line, substr) {
			count++
		}
	}
}

func (c *testClient) register(nick, password string) {
	c.send("PASS " + password)
	c.send("NICK " + nick)
	c.send("USER " + nick + " 0 * :" + nick + " Real Name")
	c.expectContains(ReplyWelcome)
}

func (c *testClient) close() {
	c.conn.Close() // nolint: errcheck
}

func containsString(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func startTestServer(t *testing.T) (*Server, net.Addr) {
	s := NewServer("hunter2")
	go func() {
		_ = s.Run("127.0.0.1:0")
	}()
	addr := s.WaitForReady()
	t.Cleanup(s.Shutdown)
	return s, addr
}

func TestRegistrationSuccess(t *testing.T) {
	_, addr := startTestServer(t)
	c := dialTestClient(t, addr)
	defer c.close()
	c.register("alice", "hunter2")
}

func TestRegistrationBadPasswordDisconnectsSilently(t *testing.T) {
	_, addr := startTestServer(t)
	c := dialTestClient(t, addr)
	defer c.close()

	c.send("PASS wrong")
	c.send("NICK alice")
	c.send("USER alice 0 * :Alice")

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) // nolint: errcheck
	buf := make([]byte, 16)
	n, err := c.conn.Read(buf)
	require.True(t, n == 0 || err != nil, "expected the connection to close with no reply")
}

func TestJoinChannelFanOut(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.close()
	alice.register("alice", "hunter2")

	bob := dialTestClient(t, addr)
	defer bob.close()
	bob.register("bob", "hunter2")

	alice.send("JOIN #general")
	alice.expectContains("JOIN")

	bob.send("JOIN #general")
	alice.expectContains("bob")

	bob.send("PRIVMSG #general :hello room")
	alice.expectContains("hello room")
}

func TestJoinRequiresCorrectKey(t *testing.T) {
	_, addr := startTestServer(t)
	c := dialTestClient(t, addr)
	defer c.close()
	c.register("carol", "hunter2")

	c.send("JOIN #hmeftah wrongkey")
	c.expectContains(ErrBadChannelKey)

	c.send("JOIN #hmeftah hmeftah")
	c.expectContains("JOIN")
}

func TestKickByOperator(t *testing.T) {
	_, addr := startTestServer(t)

	founder := dialTestClient(t, addr)
	defer founder.close()
	founder.register("founder", "hunter2")
	founder.send("JOIN #random")
	founder.expectContains("JOIN")

	victim := dialTestClient(t, addr)
	defer victim.close()
	victim.register("victim", "hunter2")
	victim.send("JOIN #random")
	victim.expectContains("JOIN")

	founder.send("KICK #random victim :bye")

	victimCount := victim.countContaining("KICK", 500*time.Millisecond)
	require.Equal(t, 1, victimCount, "victim must receive exactly one KICK line")

	founderCount := founder.countContaining("KICK", 500*time.Millisecond)
	require.Equal(t, 1, founderCount, "kicking operator must receive exactly one KICK line")
}

func TestQuitBroadcastsToChannelMembers(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.close()
	alice.register("alice2", "hunter2")
	alice.send("JOIN #general")
	alice.expectContains("JOIN")

	bob := dialTestClient(t, addr)
	bob.register("bob2", "hunter2")
	bob.send("JOIN #general")
	bob.expectContains("JOIN")

	bob.send("QUIT :goodbye")
	alice.expectContains("QUIT")
	bob.close()
}
