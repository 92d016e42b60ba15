package ftpserver

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/drakkan/goftp"
	"github.com/stretchr/testify/require"
)

func dialRaw(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, reader, _ := dialRawWithBanner(t, addr)

	return conn, reader
}

func dialRawWithBanner(t *testing.T, addr string) (net.Conn, *bufio.Reader, string) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	reader := bufio.NewReader(conn)

	banner, err := reader.ReadString('\n')
	require.NoError(t, err)

	return conn, reader, banner
}

// TestWelcomeBannerCarriesDriverMessage checks that the per-connection
// message built by the driver's ClientConnected actually reaches the
// client as the 220 banner, rather than a generic static string.
func TestWelcomeBannerCarriesDriverMessage(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	_, _, banner := dialRawWithBanner(t, server.Addr())

	require.Contains(t, banner, "220")
	require.Contains(t, banner, "Welcome")
}

func sendRaw(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) string {
	t.Helper()

	_, err := conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	resp, err := reader.ReadString('\n')
	require.NoError(t, err)

	return resp
}

// TestPreLoginCommandsAreSilentlyIgnored exercises the dispatcher contract
// of spec §4.5: only USER/PASS/AUTH/QUIT are reachable before login, and any
// other command gets no reply at all (not even an error) until logged in.
func TestPreLoginCommandsAreSilentlyIgnored(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conn, reader := dialRaw(t, server.Addr())

	_, err := conn.Write([]byte("PWD\r\n"))
	require.NoError(t, err)

	// A command that IS gated should produce nothing; prove it by sending a
	// command that IS reachable right behind it and checking that the first
	// reply to arrive is USER's 331, not a 257 for PWD.
	resp := sendRaw(t, conn, reader, "USER "+testAuthUser)
	require.Contains(t, resp, "331")
}

func TestUnknownCommandAfterLoginGetsSyntaxError(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conn, reader := dialRaw(t, server.Addr())

	resp := sendRaw(t, conn, reader, "USER "+testAuthUser)
	require.Contains(t, resp, "331")

	resp = sendRaw(t, conn, reader, "PASS "+testAuthPass)
	require.Contains(t, resp, "230")

	resp = sendRaw(t, conn, reader, "BOGUS")
	require.Contains(t, resp, "500")
}

func TestBadPasswordIsRejected(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conf := goftp.Config{User: testAuthUser, Password: "wrong"}
	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { client.Close() })

	// DialConfig connects lazily; the login happens on the first command.
	_, err = client.Getwd()
	require.Error(t, err)
}

func TestLoginThenPWDReturnsRoot(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conf := goftp.Config{User: testAuthUser, Password: testAuthPass}

	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { client.Close() })

	wd, err := client.Getwd()
	require.NoError(t, err)
	require.Equal(t, "/", wd)
}
