package mpd

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSearchParsesSongs(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		serverDone <- conn
	}()

	c := New()
	c.Timeout = 2 * time.Second

	connectErr := make(chan error, 1)
	go func() { connectErr <- c.Connect(ln.Addr().String()) }()

	conn := <-serverDone
	_, err = conn.Write([]byte("OK MPD 0.23.5\n"))
	require.NoError(t, err)
	require.NoError(t, <-connectErr)

	response := strings.Join([]string{
		"file: a.mp3",
		"Title: Windowlicker",
		"Artist: Aphex Twin",
		"file: b.mp3",
		"Title: Xtal",
		"OK",
		"",
	}, "\n")

	go func() {
		reader := bufio.NewReader(conn)
		_, _ = reader.ReadString('\n') // the search command
		_, _ = conn.Write([]byte(response))
	}()

	items, err := c.Search(map[string]string{"artist": "Aphex Twin"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	title, ok := items[0].Field("title")
	require.True(t, ok)
	s, _ := title.Str()
	assert.Equal(t, "Windowlicker", s)

	file, ok := items[1].Field("file")
	require.True(t, ok)
	s, _ = file.Str()
	assert.Equal(t, "b.mp3", s)
}

func TestClientSearchRejectsAckErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		serverDone <- conn
	}()

	c := New()
	c.Timeout = 2 * time.Second
	connectErr := make(chan error, 1)
	go func() { connectErr <- c.Connect(ln.Addr().String()) }()

	conn := <-serverDone
	_, err = conn.Write([]byte("OK MPD 0.23.5\n"))
	require.NoError(t, err)
	require.NoError(t, <-connectErr)

	go func() {
		reader := bufio.NewReader(conn)
		_, _ = reader.ReadString('\n')
		_, _ = conn.Write([]byte("ACK [2@0] {search} incorrect arguments\n"))
	}()

	_, err = c.Search(map[string]string{})
	assert.Error(t, err)
}

func TestClientSearchRequiresConnect(t *testing.T) {
	c := New()
	_, err := c.Search(map[string]string{})
	assert.Error(t, err)
}

func TestBuildSearchCommandEmptyParams(t *testing.T) {
	assert.Equal(t, `search any ""`, buildSearchCommand(map[string]string{}))
}
