package ftpserver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// handlePASV opens the slot's deterministic passive-mode listener and
// replies with the address the client should connect back to, per spec
// §4.6. The port is never chosen at random: it is derived from the slot
// index and a per-lifetime rotation counter so that a given slot cycles
// through portRotationOffset distinct ports before reusing one, avoiding
// TIME_WAIT collisions on the just-closed port.
func (s *session) handlePASV(param string) error {
	if s.server.settings.DisablePassiveMode {
		return s.writeResponse(StatusNotImplementedParam, "PASV is disabled")
	}

	s.closePassiveListener()

	port := s.server.settings.DataPortBase + s.portRotation + s.slotIndex*25

	lc := net.ListenConfig{Control: Control}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.server.settings.PassiveListenTimeout)*time.Millisecond)
	defer cancel()

	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		s.server.setError(ErrListenDataSocketBind)
		s.dataMode = dataModeNotSet

		return s.writeResponse(StatusServiceNotAvailable, fmt.Sprintf("Could not listen on port %d: %v", port, err))
	}

	s.listDataConn = listener
	s.dataMode = dataModePassive
	s.dataPort = port

	ip := s.serverIP
	if s.server.settings.PublicHost != "" {
		ip = s.server.settings.PublicHost
	}

	quads := strings.Split(ip, ".")
	if len(quads) != 4 {
		quads = []string{"127", "0", "0", "1"}
	}

	p1 := port / 256
	p2 := port - p1*256

	return s.writeResponse(StatusEnteringPASV, fmt.Sprintf(
		"Entering Passive Mode (%s,%s,%s,%s,%d,%d)", quads[0], quads[1], quads[2], quads[3], p1, p2))
}

// closePassiveListener closes and forgets the slot's passive listener, if
// any. Safe to call when none is open.
func (s *session) closePassiveListener() {
	if s.listDataConn == nil {
		return
	}

	if tcpListener, ok := s.listDataConn.(*net.TCPListener); ok {
		if err := tcpListener.Close(); err != nil {
			s.server.setError(ErrListenDataSocketClose)
		}
	} else if err := s.listDataConn.Close(); err != nil {
		s.server.setError(ErrListenDataSocketClose)
	}

	s.listDataConn = nil
}

// acceptPassiveDataConn blocks, up to PassiveAcceptTimeout, for the client
// to connect to the slot's passive listener.
func (s *session) acceptPassiveDataConn() (net.Conn, error) {
	if s.listDataConn == nil {
		return nil, fmt.Errorf("no passive listener open")
	}

	if tcpListener, ok := s.listDataConn.(*net.TCPListener); ok {
		timeout := time.Duration(s.server.settings.PassiveAcceptTimeout) * time.Millisecond
		if err := tcpListener.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}

	conn, err := s.listDataConn.Accept()
	if err != nil {
		s.server.setError(ErrDataSocketCreate)

		return nil, err
	}

	return conn, nil
}
