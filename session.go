package ftpserver

import (
	"bufio"
	"net"
	"sync"
	"time"

	log "github.com/fclairamb/go-log"
)

// dataMode is the session's current data-channel mode.
type dataMode int

const (
	dataModeNotSet dataMode = iota
	dataModeActive
	dataModePassive
)

func (m dataMode) String() string {
	switch m {
	case dataModeActive:
		return "active"
	case dataModePassive:
		return "passive"
	default:
		return "not_set"
	}
}

// userState is the session's login progress.
type userState int

const (
	userStateNone userState = iota
	userStateNameGiven
	userStateLoggedIn
)

// portRotationOffset is the modulus port_rotation cycles through, chosen so
// a just-closed passive port isn't immediately reused (avoids TIME_WAIT
// collisions on constrained stacks with small ephemeral-port pools).
const portRotationOffset = 25

// session holds everything owned by one client slot. A slot owns its
// worker goroutine, transfer buffer, file handle and the three connection
// handles; ownership never transfers across slots.
//
// controlConn, busy and stopRequested cross the supervisor/worker boundary
// and are guarded by mu; every other field is worker-local and touched only
// from the slot's own goroutine.
type session struct {
	server      *FtpServer
	slotIndex   int
	logger      log.Logger
	welcomeMsg  string
	welcomeErr  error

	mu            sync.Mutex
	controlConn   net.Conn
	busy          bool
	stopRequested bool

	reader *bufio.Reader

	driver ClientDriver

	dataConn      net.Conn
	listDataConn  net.Listener
	serverIP      string
	clientIP      string
	activeAddr    string
	dataPort      int
	portRotation  int
	dataMode      dataMode
	userState     userState
	cwd           string
	renameFrom    string
	command       string
	parameters    string
	transferBuffer []byte

	user string
}

// assignControlConn hands a freshly accepted connection to this slot. Only
// the supervisor calls this, and only when it observed the slot free.
func (s *session) assignControlConn(conn net.Conn) {
	s.mu.Lock()
	s.controlConn = conn
	s.stopRequested = false
	s.mu.Unlock()
}

func (s *session) isFree() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.controlConn == nil && !s.busy
}

func (s *session) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

func (s *session) requestStop() {
	s.mu.Lock()
	s.stopRequested = true
	s.mu.Unlock()
}

func (s *session) shouldStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopRequested
}

func (s *session) isBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.busy
}

func (s *session) getControlConn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.controlConn
}

func (s *session) clearControlConn() {
	s.mu.Lock()
	s.controlConn = nil
	s.mu.Unlock()
}

// reset reinitializes all worker-local fields at the start of a new client
// lifetime, per spec §4.8 step 2. portRotation is deliberately NOT reset
// here: it is bumped, not cleared, so the rotation keeps advancing across
// lifetimes of the same slot.
func (s *session) reset() {
	s.dataConn = nil
	s.listDataConn = nil
	s.serverIP = ""
	s.clientIP = ""
	s.activeAddr = ""
	s.dataPort = 0
	s.dataMode = dataModeNotSet
	s.userState = userStateNone
	s.cwd = "/"
	s.renameFrom = ""
	s.command = ""
	s.parameters = ""
	s.user = ""
	s.driver = nil

	bufSize := 512 * s.server.settings.BufferSizeMult
	if cap(s.transferBuffer) != bufSize {
		s.transferBuffer = make([]byte, bufSize)
	}
}

// run is the per-slot Session Worker loop (C8): it waits for the
// supervisor to assign a control connection, serves it to completion, tears
// down, and loops back to waiting. It never returns on its own; the
// supervisor stops the whole server by closing the listener and flagging
// stop on every busy slot, which this loop observes at its next inactivity
// tick (see readCommand).
func (s *session) run() {
	for {
		conn := s.waitForAssignment()

		s.setBusy(true)
		s.reset()
		s.portRotation = (s.portRotation + 1) % portRotationOffset

		s.reader = bufio.NewReader(conn)

		if host, _, err := net.SplitHostPort(conn.LocalAddr().String()); err == nil {
			s.serverIP = host
		}

		if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
			s.clientIP = host
		}

		// ClientConnected runs after serverIP/clientIP are set, so a driver
		// building its welcome message from cc.RemoteAddr() sees the real
		// address of this lifetime, not a stale or empty one.
		s.welcomeMsg, s.welcomeErr = s.server.driver.ClientConnected(s)

		s.serveControlDialogue()

		s.teardown()
	}
}

func (s *session) waitForAssignment() net.Conn {
	for {
		if conn := s.getControlConn(); conn != nil {
			return conn
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func (s *session) serveControlDialogue() {
	if !s.writeWelcomeBanner() {
		return
	}

	for {
		cmd, params, result := s.readCommand()
		if result != readOK {
			return
		}

		s.command = cmd
		s.parameters = params

		if s.dispatch(cmd, params) == dispatchQuit {
			return
		}
	}
}

// writeWelcomeBanner sends the driver's ClientConnected message as the 220
// banner; if the driver refused the connection, it sends that message back
// as a 500 instead and the session ends without ever reaching the dispatch
// loop.
func (s *session) writeWelcomeBanner() bool {
	if s.welcomeErr != nil {
		s.writeResponse(StatusSyntaxError, s.welcomeMsg)

		return false
	}

	return s.writeResponse(StatusServiceReady, s.welcomeMsg) == nil
}

func (s *session) teardown() {
	s.closePassiveListener()
	s.closeDataConn()

	if err := s.controlConn.Close(); err != nil {
		s.server.setError(ErrClientSocketDelete)
	}

	s.clearControlConn()
	s.server.driver.ClientDisconnected(s)
	s.server.recordClientDisconnected()
	s.setBusy(false)
}

// ClientContext implementation, so handlers/drivers can introspect the
// session without reaching into its internals.

func (s *session) Path() string        { return s.cwd }
func (s *session) ID() uint32          { return uint32(s.slotIndex) }
func (s *session) RemoteAddr() string  { return s.clientIP }
