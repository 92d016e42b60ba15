package ftpserver

import (
	"fmt"
	"os"
	"strings"
)

// handlePWD replies with the current working directory, quote-doubled per
// RFC 959 page 63.
func (s *session) handlePWD(param string) error {
	return s.writeResponse(StatusPathCreated, fmt.Sprintf(`"%s" is the current directory`, quoteDoubling(s.cwd)))
}

// handleCWD changes directory using buildPath's four-case algorithm (spec
// §6); the target must stat successfully unless it is root.
func (s *session) handleCWD(param string) error {
	next, ok := buildPath(s.cwd, param)
	if !ok {
		return s.writeResponse(StatusSyntaxErrorParams, "Path too long")
	}

	if next != "/" {
		if _, err := s.driver.Stat(next); err != nil {
			return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Cannot CWD to %s: %v", next, err))
		}
	}

	s.cwd = next

	return s.writeResponse(StatusFileActionOK, fmt.Sprintf("CWD worked on %s", next))
}

// handleCDUP always forces cwd to root: the embedded source has no
// parent-tracking state beyond the slash-joined path and simply resets to
// "/" rather than walking up one level (decided open question, see
// DESIGN.md).
func (s *session) handleCDUP(param string) error {
	s.cwd = "/"

	return s.writeResponse(StatusFileActionOK, "CDUP worked on /")
}

// handleMKD requires the target to not already exist, then creates it.
func (s *session) handleMKD(param string) error {
	p, ok := buildPath(s.cwd, param)
	if !ok {
		return s.writeResponse(StatusSyntaxErrorParams, "Path too long")
	}

	if _, err := s.driver.Stat(p); err == nil {
		return s.writeResponse(StatusPathNameNotAllowed, fmt.Sprintf(`"%s" already exists`, quoteDoubling(p)))
	}

	if err := s.driver.Mkdir(p, 0o755); err != nil {
		return s.writeResponse(StatusFileUnavailable, fmt.Sprintf(`Could not create "%s": %v`, quoteDoubling(p), err))
	}

	return s.writeResponse(StatusPathCreated, fmt.Sprintf(`"%s" created`, quoteDoubling(p)))
}

// handleRMD removes a directory: a failing Stat always replies 550; a
// failing Remove after a successful Stat replies 501 (spec §4.6: "Same as
// DELE but rejects with 550 when stat fails, 501 when unlink fails").
func (s *session) handleRMD(param string) error {
	p, ok := buildPath(s.cwd, param)
	if !ok {
		return s.writeResponse(StatusSyntaxErrorParams, "Path too long")
	}

	if _, err := s.driver.Stat(p); err != nil {
		return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not stat %s: %v", p, err))
	}

	if err := s.driver.Remove(p); err != nil {
		return s.writeResponse(StatusSyntaxErrorParams, fmt.Sprintf("Could not delete dir %s: %v", p, err))
	}

	return s.writeResponse(StatusFileActionOK, fmt.Sprintf("Deleted dir %s", p))
}

// handleLIST opens cwd (or the named directory) and emits an EPLF-ish line
// per non-hidden entry over the data connection (spec §4.6).
func (s *session) handleLIST(param string) error {
	return s.sendDirListing(param, func(fi os.FileInfo) string {
		if fi.IsDir() {
			return fmt.Sprintf("+/,\t%s", fi.Name())
		}

		return fmt.Sprintf("+r,s%d,\t%s", fi.Size(), fi.Name())
	})
}

// handleNLST emits bare names per non-hidden entry.
func (s *session) handleNLST(param string) error {
	return s.sendDirListing(param, func(fi os.FileInfo) string { return fi.Name() })
}

// handleMLSD emits machine-parseable facts per non-hidden entry, omitting
// Modify when the entry carries no modification time.
func (s *session) handleMLSD(param string) error {
	return s.sendDirListing(param, func(fi os.FileInfo) string {
		listType := "file"
		if fi.IsDir() {
			listType = "dir"
		}

		if fi.ModTime().IsZero() {
			return fmt.Sprintf("Type=%s;Size=%d; %s", listType, fi.Size(), fi.Name())
		}

		return fmt.Sprintf("Type=%s;Size=%d;Modify=%s; %s", listType, fi.Size(), fi.ModTime().Format(dateFormatMLSD), fi.Name())
	})
}

const dateFormatMLSD = "20060102150405"

func (s *session) sendDirListing(param string, format func(os.FileInfo) string) error {
	dir, ok := buildPath(s.cwd, param)
	if !ok {
		return s.writeResponse(StatusSyntaxErrorParams, "Path too long")
	}

	entries, err := afeReadDir(s.driver, dir)
	if err != nil {
		return s.writeResponse(StatusFileUnavailable, fmt.Sprintf("Could not list: %v", err))
	}

	conn, err := s.openDataConn()
	if err != nil {
		return s.writeResponse(StatusCannotOpenDataConn, fmt.Sprintf("Could not open data connection: %v", err))
	}

	defer s.closeDataConn()

	s.writeResponse(StatusFileStatusOkOpeningData, "Here comes the directory listing")

	matches := 0

	for _, fi := range entries {
		if strings.HasPrefix(fi.Name(), ".") {
			continue
		}

		if _, werr := fmt.Fprintf(conn, "%s\r\n", format(fi)); werr != nil {
			return s.writeResponse(StatusConnectionClosed, "Connection closed; transfer aborted")
		}

		matches++
	}

	return s.writeResponse(StatusClosingDataConn, fmt.Sprintf("Options: -a -l, %d matches total", matches))
}

func afeReadDir(driver ClientDriver, dir string) ([]os.FileInfo, error) {
	f, err := driver.Open(dir)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return f.Readdir(-1)
}

func quoteDoubling(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"', '"')
		} else {
			out = append(out, s[i])
		}
	}

	return string(out)
}
