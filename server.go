package ftpserver

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// Status is the supervisor's lifecycle state (C9).
type Status uint32

// Supervisor lifecycle states, matching the original embedded source's
// ftp_status_t.
const (
	StatusIdle Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusErrorStopping
	StatusError
)

func (st Status) String() string {
	switch st {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusErrorStopping:
		return "error_stopping"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats accumulates simple server-wide counters (spec §3).
type Stats struct {
	ClientsActive       int32
	ClientsConnected    uint32
	ClientsDisconnected uint32
	FilesSentOK         uint32
	FilesSentFailed     uint32
	FilesRecvOK         uint32
	FilesRecvFailed     uint32
}

// FtpServer is the process-wide supervisor (C9) plus the public control API
// (C10): a fixed table of client slots, each served by its own worker
// goroutine, driven by a single supervisor goroutine through the
// Idle/Starting/Running/Stopping/ErrorStopping/Error machine of spec §4.9.
type FtpServer struct {
	Logger log.Logger

	driver   MainDriver
	settings *Settings

	credMu   sync.RWMutex
	username string
	password string

	mu         sync.Mutex
	status     Status
	errorsBits uint32
	stats      Stats
	listener   *net.TCPListener
	port       int
	inited     bool

	slots []*session
}

// NewFtpServer creates a new, uninitialized server around the given driver.
func NewFtpServer(driver MainDriver) *FtpServer {
	return &FtpServer{
		driver:   driver,
		Logger:   lognoop.NewNoOpLogger(),
		username: "user",
		password: "pass",
	}
}

// Init loads settings, allocates the fixed client slot table and starts one
// worker goroutine per slot plus the supervisor goroutine. Idempotent: a
// second call is a no-op. Must be called before Start.
func (server *FtpServer) Init() error {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.inited {
		return nil
	}

	settings, err := server.driver.GetSettings()
	if err != nil || settings == nil {
		return fmt.Errorf("couldn't load settings: %w", err)
	}

	applySettingsDefaults(settings)
	server.settings = settings
	server.port = portFromAddr(settings.ListenAddr)

	server.slots = make([]*session, settings.ClientsMax)
	for i := range server.slots {
		s := &session{
			server:    server,
			slotIndex: i,
			logger:    server.Logger.With("slot", i),
			cwd:       "/",
		}
		server.slots[i] = s

		go s.run()
	}

	server.inited = true

	go server.supervise()

	return nil
}

func applySettingsDefaults(settings *Settings) {
	if settings.ClientsMax == 0 {
		settings.ClientsMax = 1
	}

	if settings.DataPortBase == 0 {
		settings.DataPortBase = 55600
	}

	if settings.BufferSizeMult == 0 {
		settings.BufferSizeMult = 32
	}

	if settings.ControlReadTimeout == 0 {
		settings.ControlReadTimeout = 1000
	}

	if settings.InactivityTicks == 0 {
		settings.InactivityTicks = 60
	}

	if settings.ControlWriteTimeout == 0 {
		settings.ControlWriteTimeout = 3000
	}

	if settings.PassiveListenTimeout == 0 {
		settings.PassiveListenTimeout = 5000
	}

	if settings.PassiveAcceptTimeout == 0 {
		settings.PassiveAcceptTimeout = 500
	}

	if settings.StorRecvTimeout == 0 {
		settings.StorRecvTimeout = 5000
	}

	if settings.StopWaitSeconds == 0 {
		settings.StopWaitSeconds = 6
	}
}

func portFromAddr(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0
	}

	return port
}

// Start transitions the supervisor from Idle or Error to Starting; the
// supervisor goroutine performs the actual bind on its next iteration.
func (server *FtpServer) Start() {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.status == StatusIdle || server.status == StatusError {
		server.status = StatusStarting
	}
}

// Stop transitions the supervisor from Running to Stopping.
func (server *FtpServer) Stop() {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.status == StatusRunning {
		server.status = StatusStopping
	}
}

// SetUsername and SetPassword configure the single in-memory credential
// pair checked by AuthUser callers; intended to be set before Start.
func (server *FtpServer) SetUsername(u string) {
	server.credMu.Lock()
	server.username = u
	server.credMu.Unlock()
}

func (server *FtpServer) SetPassword(p string) {
	server.credMu.Lock()
	server.password = p
	server.credMu.Unlock()
}

func (server *FtpServer) credentials() (string, string) {
	server.credMu.RLock()
	defer server.credMu.RUnlock()

	return server.username, server.password
}

// SetPort overrides the listen port set by Init's settings.
func (server *FtpServer) SetPort(port int) {
	server.mu.Lock()
	server.port = port

	if server.settings != nil {
		server.settings.ListenAddr = fmt.Sprintf(":%d", port)
	}

	server.mu.Unlock()
}

// Addr returns the address the server is currently listening on, or "" if
// it isn't bound yet.
func (server *FtpServer) Addr() string {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.listener != nil {
		return server.listener.Addr().String()
	}

	return ""
}

func (server *FtpServer) GetPort() int {
	server.mu.Lock()
	defer server.mu.Unlock()

	return server.port
}

// GetStatus returns the current supervisor status.
func (server *FtpServer) GetStatus() Status {
	server.mu.Lock()
	defer server.mu.Unlock()

	return server.status
}

// GetErrors returns the accumulated transport-error bit-set.
func (server *FtpServer) GetErrors() uint32 {
	return atomic.LoadUint32(&server.errorsBits)
}

// ClearErrors clears the error bit-set, but only while the server is in the
// Error state (spec §4.10).
func (server *FtpServer) ClearErrors() {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.status == StatusError {
		atomic.StoreUint32(&server.errorsBits, 0)
	}
}

func (server *FtpServer) recordClientDisconnected() {
	server.mu.Lock()
	server.stats.ClientsDisconnected++
	server.mu.Unlock()
}

func (server *FtpServer) recordFileSentOK() {
	server.mu.Lock()
	server.stats.FilesSentOK++
	server.mu.Unlock()
}

func (server *FtpServer) recordFileSentFailed() {
	server.mu.Lock()
	server.stats.FilesSentFailed++
	server.mu.Unlock()
}

func (server *FtpServer) recordFileRecvOK() {
	server.mu.Lock()
	server.stats.FilesRecvOK++
	server.mu.Unlock()
}

func (server *FtpServer) recordFileRecvFailed() {
	server.mu.Lock()
	server.stats.FilesRecvFailed++
	server.mu.Unlock()
}

// GetStats returns a snapshot of the server-wide counters.
func (server *FtpServer) GetStats() Stats {
	server.mu.Lock()
	defer server.mu.Unlock()

	stats := server.stats
	stats.ClientsActive = server.countActiveSlotsLocked()

	return stats
}

func (server *FtpServer) countActiveSlotsLocked() int32 {
	var n int32

	for _, s := range server.slots {
		if s.isBusy() {
			n++
		}
	}

	return n
}

// setError always forces the server into ErrorStopping and records the
// given code in the error bit-set, matching ftp_set_error in the embedded
// source: every transport failure is unconditionally treated as fatal to
// the whole server, not just the slot that hit it.
func (server *FtpServer) setError(code ErrCode) {
	server.mu.Lock()
	server.errorsBits |= code.bit()
	server.status = StatusErrorStopping
	server.mu.Unlock()

	server.Logger.Error("Transport error", fmt.Errorf("%s", code.String()), "code", code.String())
}

// supervise is the single supervisor goroutine launched by Init: it drives
// the status machine described in spec §4.9.
func (server *FtpServer) supervise() {
	for {
		switch server.GetStatus() {
		case StatusIdle, StatusError:
			time.Sleep(time.Second)
		case StatusStarting:
			server.doStart()
		case StatusRunning:
			server.doAcceptOnce()
		case StatusStopping, StatusErrorStopping:
			server.doStop()
		}
	}
}

func (server *FtpServer) doStart() {
	if server.port == 0 {
		server.setError(ErrPortIsZero)

		return
	}

	addr := server.settings.ListenAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", server.port)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		server.setError(ErrServerSocketBind)

		return
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		server.setError(ErrServerSocketListen)

		return
	}

	server.mu.Lock()
	server.listener = listener
	server.status = StatusRunning
	server.mu.Unlock()

	server.Logger.Info("Listening", "addr", listener.Addr())
}

func (server *FtpServer) doAcceptOnce() {
	listener := server.listener
	if listener == nil {
		return
	}

	acceptTimeout := time.Duration(server.settings.PassiveAcceptTimeout) * time.Millisecond
	if err := listener.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
		return
	}

	conn, err := listener.AcceptTCP()
	if err != nil {
		return // timeout or transient: the loop simply re-checks status
	}

	slot := server.findFreeSlot()
	if slot == nil {
		server.rejectConnection(conn)
		time.Sleep(500 * time.Millisecond)

		return
	}

	server.mu.Lock()
	server.stats.ClientsConnected++
	server.mu.Unlock()

	slot.assignControlConn(conn)
}

func (server *FtpServer) findFreeSlot() *session {
	for _, s := range server.slots {
		if s.isFree() {
			return s
		}
	}

	return nil
}

func (server *FtpServer) rejectConnection(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(time.Duration(server.settings.ControlWriteTimeout) * time.Millisecond))
	_, _ = conn.Write([]byte("421 No more connections allowed\r\n"))
	_ = conn.Close()
}

func (server *FtpServer) doStop() {
	server.mu.Lock()
	fromError := server.status == StatusErrorStopping
	listener := server.listener
	server.listener = nil
	server.mu.Unlock()

	if listener != nil {
		if err := listener.Close(); err != nil {
			server.mu.Lock()
			server.errorsBits |= ErrServerSocketDelete.bit()
			server.mu.Unlock()
		}
	}

	for _, s := range server.slots {
		if s.isBusy() {
			s.requestStop()
		}
	}

	deadline := time.Now().Add(time.Duration(server.settings.StopWaitSeconds) * time.Second)

	for time.Now().Before(deadline) && server.anySlotBusy() {
		time.Sleep(time.Second)
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	if server.anySlotBusy() {
		server.errorsBits |= ErrNotAllTasksDisabled.bit()
	}

	if fromError {
		server.status = StatusError
	} else {
		server.status = StatusIdle
	}
}

func (server *FtpServer) anySlotBusy() bool {
	for _, s := range server.slots {
		if s.isBusy() {
			return true
		}
	}

	return false
}
