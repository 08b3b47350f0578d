// Package mpd implements runtime.MpdQuerier against a Music Player Daemon
// server, speaking the line-oriented text subset of the MPD protocol needed
// for `search` (everything else — playback control, the queue — is outside
// the querier's scope).
package mpd

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/muss-lang/muss/internal/runtime"
)

// Client is a runtime.MpdQuerier speaking MPD's line protocol over a single
// persistent connection, dialed lazily by Connect.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	Timeout time.Duration
}

// New returns an unconnected Client; Connect must be called (the CLI's
// --mpd flag does this) before Search can run. The `mpd` source does not
// connect the client itself.
func New() *Client {
	return &Client{Timeout: 5 * time.Second}
}

// Connect dials addr (host:port) and reads MPD's OK MPD <version> banner.
func (c *Client) Connect(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout())
	if err != nil {
		return fmt.Errorf("mpd: dial %s: %w", addr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	banner, err := c.reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return fmt.Errorf("mpd: reading banner: %w", err)
	}
	if !strings.HasPrefix(banner, "OK MPD") {
		conn.Close()
		return fmt.Errorf("mpd: unexpected banner %q", strings.TrimSpace(banner))
	}
	return nil
}

func (c *Client) dialTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Second
}

// Search issues an MPD `search` command built from params (each key/value
// pair becomes a quoted filter term: TAG "value"), collecting the
// file/Title/Artist/... fields of every matching song into an Item.
func (c *Client) Search(params map[string]string) ([]runtime.Item, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("mpd: not connected: call Connect first")
	}
	cmd := buildSearchCommand(params)
	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		return nil, fmt.Errorf("mpd: sending command: %w", err)
	}
	return c.readSongList()
}

// buildSearchCommand renders `search TAG "value" TAG "value" ...`, or a
// bare `search any ""` when no filter params were supplied (MPD requires at
// least one filter term).
func buildSearchCommand(params map[string]string) string {
	var b strings.Builder
	b.WriteString("search")
	if len(params) == 0 {
		b.WriteString(` any ""`)
		return b.String()
	}
	for tag, value := range params {
		fmt.Fprintf(&b, " %s %q", tag, value)
	}
	return b.String()
}

// readSongList reads response lines until "OK" or "ACK ..." (an MPD error
// reply), grouping consecutive lines into songs on each "file: " line,
// which always starts a new entry in MPD's listing responses.
func (c *Client) readSongList() ([]runtime.Item, error) {
	var items []runtime.Item
	var cur runtime.Item
	haveCur := false

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("mpd: reading response: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "OK" {
			break
		}
		if strings.HasPrefix(line, "ACK ") {
			return nil, fmt.Errorf("mpd: server error: %s", line)
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if key == "file" {
			if haveCur {
				items = append(items, cur)
			}
			cur = runtime.NewItem()
			haveCur = true
		}
		if haveCur {
			cur.SetField(strings.ToLower(key), runtime.StringVal(value))
		}
	}
	if haveCur {
		items = append(items, cur)
	}
	return items, nil
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
