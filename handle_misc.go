package ftpserver

import (
	"fmt"
	"strings"
)

// handleMODE only accepts stream mode.
func (s *session) handleMODE(param string) error {
	if strings.EqualFold(param, "S") {
		return s.writeResponse(StatusOK, "S Ok")
	}

	return s.writeResponse(StatusNotImplementedParam, "Only S is supported")
}

// handleSTRU only accepts file structure.
func (s *session) handleSTRU(param string) error {
	if strings.EqualFold(param, "F") {
		return s.writeResponse(StatusOK, "F Ok")
	}

	return s.writeResponse(StatusNotImplementedParam, "Only F is supported")
}

// handleTYPE accepts ASCII or Image; the server is 8-bit clean regardless
// (no ASCII translation is performed on the data channel, per spec §6).
func (s *session) handleTYPE(param string) error {
	switch strings.ToUpper(strings.TrimSpace(param)) {
	case "A":
		return s.writeResponse(StatusOK, "Switching to ASCII mode")
	case "I":
		return s.writeResponse(StatusOK, "Switching to Binary mode")
	default:
		return s.writeResponse(StatusNotImplementedParam, "Unsupported TYPE")
	}
}

// handleSITE only recognizes FREE, reporting free/total megabytes from the
// driver's free-space query.
func (s *session) handleSITE(param string) error {
	if !strings.EqualFold(strings.TrimSpace(param), "FREE") {
		return s.writeResponse(StatusFileUnavailable, "Unknown SITE command")
	}

	ext, ok := s.driver.(ClientDriverExtensionFreeSpace)
	if !ok {
		return s.writeResponse(StatusFileUnavailable, "Free space reporting not supported")
	}

	free, total, err := ext.GetFreeSpace(s.cwd)
	if err != nil {
		return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not query free space: %v", err))
	}

	const mb = 1024 * 1024

	return s.writeResponse(StatusSystemStatus, fmt.Sprintf("%d MB free of %d MB total", free/mb, total/mb))
}

// handleSTAT reports the control connection's inactivity timeout.
func (s *session) handleSTAT(param string) error {
	ticks := s.server.settings.InactivityTicks
	tickMS := s.server.settings.ControlReadTimeout

	return s.writeResponse(StatusClosingControlConn, fmt.Sprintf("Inactivity timeout is %d ms", ticks*tickMS))
}

// handleSYST gives a static system reply.
func (s *session) handleSYST(param string) error {
	return s.writeResponse(StatusSystemType, "FTP Server, V1.0")
}

// handleFEAT lists the fixed optional-feature set this server implements.
func (s *session) handleFEAT(param string) error {
	return s.writeMultiline(StatusSystemStatus, []string{
		"Features:",
		"MDTM",
		"MLSD",
		"SIZE",
		"SITE FREE",
		"End",
	})
}

// handleNOOP is a pure keepalive.
func (s *session) handleNOOP(param string) error {
	return s.writeResponse(StatusOK, "Zzz...")
}
