package ftpserver

import (
	"bytes"
	"net"
	"testing"

	"github.com/drakkan/goftp"
	"github.com/stretchr/testify/require"
)

// spyWriter records the length of every Write call it receives, so tests can
// assert the coalescing algorithm's exact write granularity (every full-buffer
// flush is exactly len(buffer) bytes; the final flush and the bypass path for
// oversized segments write other sizes).
type spyWriter struct {
	buf   bytes.Buffer
	sizes []int
}

func (w *spyWriter) Write(p []byte) (int, error) {
	w.sizes = append(w.sizes, len(p))
	return w.buf.Write(p)
}

// sequentialBytes builds a buffer of n bytes, each the low byte of its
// absolute offset in the overall stream (offset given so consecutive
// segments concatenate into a verifiable, non-repeating sequence).
func sequentialBytes(offset, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(offset + i)
	}

	return b
}

// TestReceiveCoalescedMatchesSpecAlgorithm drives the exact §4.7 algorithm
// through append (L < free), fill-flush-remainder (else) and bypass (L >
// capacity, taken once the buffer has just been fully flushed empty) in one
// run, against a 512-byte buffer, then checks both the byte-for-byte
// equality of what reached the file and the exact sizes of each write the
// algorithm issued.
func TestReceiveCoalescedMatchesSpecAlgorithm(t *testing.T) {
	t.Parallel()

	const capacity = 512

	segments := [][]byte{
		sequentialBytes(0, 200),    // < free(512): append, free -> 312
		sequentialBytes(200, 400),  // >= free(312): fill+flush 512, remainder 88, free -> 424
		sequentialBytes(600, 424),  // == free(424): fill+flush 512, remainder 0, free -> 512 (buffer empty)
		sequentialBytes(1024, 600), // > capacity, buffer empty: bypass, direct write of 600
	}

	var want bytes.Buffer
	for _, seg := range segments {
		want.Write(seg)
	}

	serverConn, clientConn := net.Pipe()

	go func() {
		for _, seg := range segments {
			if _, err := clientConn.Write(seg); err != nil {
				return
			}
		}

		clientConn.Close()
	}()

	s := &session{
		transferBuffer: make([]byte, capacity),
		server:         &FtpServer{},
	}

	out := &spyWriter{}

	err := s.receiveCoalesced(out, serverConn)
	require.NoError(t, err)

	require.Equal(t, want.Bytes(), out.buf.Bytes(), "reassembled stream must equal the original byte-for-byte")
	require.Equal(t, []int{capacity, capacity, 600}, out.sizes,
		"every write but the final bypass must be exactly the buffer's capacity, with no leftover final flush")
}

// TestReceiveCoalescedFlushesPendingBufferBeforeBypass checks that a bypass
// segment arriving while the buffer still holds a partial fill doesn't
// reorder bytes on disk: the pending bytes must reach the file before the
// bypass write, not after it at EOF.
func TestReceiveCoalescedFlushesPendingBufferBeforeBypass(t *testing.T) {
	t.Parallel()

	const capacity = 1024

	segments := [][]byte{
		sequentialBytes(0, 200),    // < free(1024): append, free -> 824, buffer non-empty
		sequentialBytes(200, 1200), // > capacity: must flush the pending 200 first, then bypass
	}

	var want bytes.Buffer
	for _, seg := range segments {
		want.Write(seg)
	}

	serverConn, clientConn := net.Pipe()

	go func() {
		for _, seg := range segments {
			if _, err := clientConn.Write(seg); err != nil {
				return
			}
		}

		clientConn.Close()
	}()

	s := &session{transferBuffer: make([]byte, capacity), server: &FtpServer{}}
	out := &spyWriter{}

	err := s.receiveCoalesced(out, serverConn)
	require.NoError(t, err)

	require.Equal(t, want.Bytes(), out.buf.Bytes(), "pending buffered bytes must precede the bypass write, preserving stream order")
	require.Equal(t, []int{200, 1200}, out.sizes)
}

// TestReceiveCoalescedExactFitFlushesWithNoRemainder checks the boundary
// case where a segment lands exactly on free, taking the fill-and-flush
// branch with zero remainder.
func TestReceiveCoalescedExactFitFlushesWithNoRemainder(t *testing.T) {
	t.Parallel()

	const capacity = 128

	segments := [][]byte{
		sequentialBytes(0, capacity), // L == free == capacity: fill+flush, remainder 0
	}

	serverConn, clientConn := net.Pipe()

	go func() {
		clientConn.Write(segments[0])
		clientConn.Close()
	}()

	s := &session{transferBuffer: make([]byte, capacity), server: &FtpServer{}}
	out := &spyWriter{}

	err := s.receiveCoalesced(out, serverConn)
	require.NoError(t, err)
	require.Equal(t, segments[0], out.buf.Bytes())
	require.Equal(t, []int{capacity}, out.sizes)
}

// TestStorThenRetrRoundTrip exercises the full STOR/RETR path end to end
// against a real server and client, verifying the received bytes match what
// was sent despite passing through the coalescing buffer.
func TestStorThenRetrRoundTrip(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conf := goftp.Config{User: testAuthUser, Password: testAuthPass}

	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { client.Close() })

	payload := sequentialBytes(0, 200*1024+37) // spans many coalescing cycles

	require.NoError(t, client.Store("roundtrip.bin", bytes.NewReader(payload)))

	var got bytes.Buffer
	require.NoError(t, client.Retrieve("roundtrip.bin", &got))

	require.Equal(t, payload, got.Bytes())
}

// TestDeleAndRenameLifecycle exercises DELE/RNFR/RNTO's push/pop cwd
// semantics through a real dialogue.
func TestDeleAndRenameLifecycle(t *testing.T) {
	t.Parallel()

	server, _ := newRunningTestServer(t, nil)

	conf := goftp.Config{User: testAuthUser, Password: testAuthPass}

	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Store("a.bin", bytes.NewReader([]byte("hello"))))
	require.NoError(t, client.Rename("a.bin", "b.bin"))

	wd, err := client.Getwd()
	require.NoError(t, err)
	require.Equal(t, "/", wd, "cwd must be popped back after RNTO")

	require.NoError(t, client.Delete("b.bin"))

	wd, err = client.Getwd()
	require.NoError(t, err)
	require.Equal(t, "/", wd, "cwd must be popped back after DELE")
}
