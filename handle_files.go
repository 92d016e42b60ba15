package ftpserver

import (
	"fmt"
	"io"
	"net"
	"time"
)

// withFilePath builds path from the session's cwd and a handler's
// parameter, pushes it into cwd for the duration of fn, then on any
// terminal outcome pops one level back off — so cwd always ends up
// pointing at the directory that held the last-operated file (spec §4.6's
// closing paragraph), not necessarily the directory the session started
// in if param itself named a subdirectory.
func (s *session) withFilePath(param string, fn func(path string) error) error {
	full, ok := buildPath(s.cwd, param)
	if !ok {
		return s.writeResponse(StatusSyntaxErrorParams, "Path too long")
	}

	s.cwd = full
	err := fn(full)
	s.cwd = upOneLevel(s.cwd)

	return err
}

// handleDELE stats then unlinks; either failure still pops the path (spec
// §4.6: "Stat, then unlink; on either failure, pop path").
func (s *session) handleDELE(param string) error {
	return s.withFilePath(param, func(path string) error {
		if _, err := s.driver.Stat(path); err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not stat %s: %v", path, err))
		}

		if err := s.driver.Remove(path); err != nil {
			return s.writeResponse(StatusFileActionNotTaken, fmt.Sprintf("Could not delete %s: %v", path, err))
		}

		return s.writeResponse(StatusFileActionOK, fmt.Sprintf("Removed file %s", path))
	})
}

// handleRNFR stages rename_from; the stat must succeed.
func (s *session) handleRNFR(param string) error {
	return s.withFilePath(param, func(path string) error {
		if _, err := s.driver.Stat(path); err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Couldn't access %s: %v", path, err))
		}

		s.renameFrom = path

		return s.writeResponse(StatusPendingInfo, "Sure, give me a target")
	})
}

// handleRNTO requires a non-empty rename_from and a non-existing
// destination.
func (s *session) handleRNTO(param string) error {
	return s.withFilePath(param, func(dst string) error {
		if s.renameFrom == "" {
			return s.writeResponse(StatusBadSequence, "RNFR is expected before RNTO")
		}

		if _, err := s.driver.Stat(dst); err == nil {
			return s.writeResponse(StatusActionNotTakenNoFile, fmt.Sprintf("%s already exists", dst))
		}

		if err := s.driver.Rename(s.renameFrom, dst); err != nil {
			return s.writeResponse(StatusActionAborted, fmt.Sprintf("Couldn't rename %s to %s: %v", s.renameFrom, dst, err))
		}

		s.renameFrom = ""

		return s.writeResponse(StatusFileActionOK, "Done")
	})
}

// handleMDTM sets the file's modification time when given a 14-digit
// date+space prefix, else reports it.
func (s *session) handleMDTM(param string) error {
	if date16, time16, consumed := parseMDTMDateTime(param); consumed > 0 {
		rest := param[consumed:]

		return s.withFilePath(rest, func(path string) error {
			year, month, day, hour, minute, second := decodeDateTimeFields(date16, time16)
			modTime := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)

			if err := s.driver.Chtimes(path, modTime, modTime); err != nil {
				return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Couldn't set time on %s: %v", path, err))
			}

			return s.writeResponse(StatusOK, "Done")
		})
	}

	return s.withFilePath(param, func(path string) error {
		fi, err := s.driver.Stat(path)
		if err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Couldn't access %s: %v", path, err))
		}

		t := fi.ModTime()

		return s.writeResponse(StatusFileStatus, formatDateTime14(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()))
	})
}

// handleSIZE replies with the size of a non-directory file.
func (s *session) handleSIZE(param string) error {
	return s.withFilePath(param, func(path string) error {
		fi, err := s.driver.Stat(path)
		if err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Couldn't access %s: %v", path, err))
		}

		if fi.IsDir() {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("%s is a directory", path))
		}

		return s.writeResponse(StatusFileStatus, fmt.Sprintf("%d", fi.Size()))
	})
}

// tcpMSS bounds the chunk size RETR reads per iteration, matching the
// embedded source's single-segment TCP_MSS read granularity.
const tcpMSS = 1460

// handleRETR streams a file to the client over the data connection, per
// spec §4.7.
func (s *session) handleRETR(param string) error {
	return s.withFilePath(param, func(path string) error {
		file, err := s.driver.Open(path)
		if err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not access file: %v", err))
		}

		defer file.Close()

		fi, err := file.Stat()
		if err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not stat file: %v", err))
		}

		conn, err := s.openDataConn()
		if err != nil {
			return s.writeResponse(StatusCannotOpenDataConn, fmt.Sprintf("Could not open data connection: %v", err))
		}

		defer s.closeDataConn()

		s.writeResponse(StatusFileStatusOkOpeningData, fmt.Sprintf("Connected to port %d, %d bytes to download", s.dataPort, fi.Size()))

		if err := s.streamToDataConn(file, conn); err != nil {
			return err
		}

		s.server.recordFileSentOK()

		return s.writeResponse(StatusClosingDataConn, "Closing data connection")
	})
}

func (s *session) streamToDataConn(file io.Reader, conn net.Conn) error {
	buf := make([]byte, tcpMSS)

	for {
		n, err := file.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				s.server.recordFileSentFailed()

				return s.writeResponse(StatusConnectionClosed, fmt.Sprintf("Error during file transfer: %v", werr))
			}
		}

		if err == io.EOF {
			return nil
		}

		if err != nil {
			s.server.recordFileSentFailed()

			return s.writeResponse(StatusActionAborted, fmt.Sprintf("Error reading file: %v", err))
		}
	}
}

// handleSTOR receives a file from the client using a sector-aligned
// coalescing buffer, per spec §4.7: every write of buffered data except the
// final flush is exactly len(transferBuffer) bytes, matching the write
// granularity FAT filesystems need for efficient streaming. A received
// segment larger than the buffer is written directly, right after any bytes
// still pending in the buffer, so those two writes have other sizes.
func (s *session) handleSTOR(param string) error {
	return s.withFilePath(param, func(path string) error {
		file, err := s.driver.Create(path)
		if err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not access file: %v", err))
		}

		defer file.Close()

		conn, err := s.openDataConn()
		if err != nil {
			return s.writeResponse(StatusCannotOpenDataConn, fmt.Sprintf("Could not open data connection: %v", err))
		}

		defer s.closeDataConn()

		recvTimeout := time.Duration(s.server.settings.StorRecvTimeout) * time.Millisecond
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetReadDeadline(time.Now().Add(recvTimeout))
		}

		s.writeResponse(StatusFileStatusOkOpeningData, "Ok to send data")

		if err := s.receiveCoalesced(file, conn); err != nil {
			return err
		}

		s.server.recordFileRecvOK()

		return s.writeResponse(StatusClosingDataConn, "Transfer complete")
	})
}

// receiveCoalesced implements the coalescing algorithm of spec §4.7.
func (s *session) receiveCoalesced(file io.Writer, conn net.Conn) error {
	buffer := s.transferBuffer
	capacity := len(buffer)
	free := capacity

	recvChunk := make([]byte, tcpMSS)

	for {
		n, err := conn.Read(recvChunk)

		if n > 0 {
			segment := recvChunk[:n]

			for len(segment) > 0 {
				switch {
				case len(segment) > capacity:
					// L > B: flush whatever is already buffered first, so
					// the bypass write can't reorder bytes ahead of a
					// pending partial fill, then bypass the buffer itself.
					if free < capacity {
						if _, werr := file.Write(buffer[:capacity-free]); werr != nil {
							s.server.recordFileRecvFailed()

							return s.writeResponse(StatusActionAborted, fmt.Sprintf("Write error: %v", werr))
						}

						free = capacity
					}

					if _, werr := file.Write(segment); werr != nil {
						s.server.recordFileRecvFailed()

						return s.writeResponse(StatusActionAborted, fmt.Sprintf("Write error: %v", werr))
					}

					segment = nil

				case len(segment) < free:
					copy(buffer[capacity-free:], segment)
					free -= len(segment)
					segment = nil

				default:
					copy(buffer[capacity-free:], segment[:free])

					if _, werr := file.Write(buffer); werr != nil {
						s.server.recordFileRecvFailed()

						return s.writeResponse(StatusActionAborted, fmt.Sprintf("Write error: %v", werr))
					}

					remainder := segment[free:]
					copy(buffer, remainder)
					free = capacity - len(remainder)
					segment = nil
				}
			}
		}

		if err == io.EOF {
			if free < capacity {
				if _, werr := file.Write(buffer[:capacity-free]); werr != nil {
					s.server.recordFileRecvFailed()

					return s.writeResponse(StatusActionAborted, fmt.Sprintf("Write error: %v", werr))
				}
			}

			return nil
		}

		if err != nil {
			s.server.recordFileRecvFailed()

			return s.writeResponse(StatusConnectionClosed, fmt.Sprintf("Error during file transfer: %v", err))
		}
	}
}
