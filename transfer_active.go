package ftpserver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// handlePORT parses a "h1,h2,h3,h4,p1,p2" PORT argument and records the
// address the server should dial back to for the next data transfer, per
// spec §4.6.
func (s *session) handlePORT(param string) error {
	if s.server.settings.DisableActiveMode {
		return s.writeResponse(StatusNotImplementedParam, "PORT is disabled")
	}

	parts := strings.Split(param, ",")
	if len(parts) != 6 {
		return s.writeResponse(StatusSyntaxErrorParams, "Invalid PORT argument")
	}

	nums := make([]int, 6)

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return s.writeResponse(StatusSyntaxErrorParams, "Invalid PORT argument")
		}

		nums[i] = n
	}

	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]*256 + nums[5]

	s.activeAddr = fmt.Sprintf("%s:%d", host, port)
	s.dataMode = dataModeActive
	s.closePassiveListener()

	return s.writeResponse(StatusOK, "PORT command successful")
}

// openDataConn establishes the data connection for the next transfer,
// according to whichever mode (active or passive) the client last
// negotiated.
func (s *session) openDataConn() (net.Conn, error) {
	switch s.dataMode {
	case dataModePassive:
		conn, err := s.acceptPassiveDataConn()
		if err != nil {
			return nil, err
		}

		s.dataConn = conn

		return conn, nil

	case dataModeActive:
		dialer := net.Dialer{Timeout: time.Duration(s.server.settings.PassiveAcceptTimeout) * time.Millisecond}

		conn, err := dialer.Dial("tcp", s.activeAddr)
		if err != nil {
			s.server.setError(ErrDataSocketCreate)

			return nil, err
		}

		s.dataConn = conn

		return conn, nil

	default:
		return nil, fmt.Errorf("no data connection mode negotiated")
	}
}

// closeDataConn closes and forgets the slot's open data connection, if any.
func (s *session) closeDataConn() {
	if s.dataConn == nil {
		return
	}

	if err := s.dataConn.Close(); err != nil {
		s.server.setError(ErrDataSocketClose)
	}

	s.dataConn = nil
}
