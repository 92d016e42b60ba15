package ftpserver

// handleUSER records the proposed username and asks for a password, but
// only if it matches the server-wide username configured via SetUsername;
// an unknown name is rejected immediately rather than waiting for PASS.
func (s *session) handleUSER(param string) error {
	wantUser, _ := s.server.credentials()
	if param != wantUser {
		s.userState = userStateNone

		return s.writeResponse(StatusNotLoggedIn, "Username not known")
	}

	s.user = param
	s.userState = userStateNameGiven

	return s.writeResponse(StatusUserOK, "User name ok, password required")
}

// handlePASS checks the supplied password against the server-wide
// credential pair configured via SetUsername/SetPassword, then asks the
// driver to pick a filesystem for the session.
func (s *session) handlePASS(param string) error {
	if s.userState != userStateNameGiven {
		return s.writeResponse(StatusNotLoggedIn, "User not specified")
	}

	wantUser, wantPass := s.server.credentials()
	if s.user != wantUser || param != wantPass {
		s.userState = userStateNone

		return s.writeResponse(StatusNotLoggedIn, "Authentication failed")
	}

	driver, err := s.server.driver.AuthUser(s, s.user, param)
	if err != nil || driver == nil {
		s.userState = userStateNone

		return s.writeResponse(StatusNotLoggedIn, "Authentication failed")
	}

	s.driver = driver
	s.userState = userStateLoggedIn
	s.cwd = "/"

	return s.writeResponse(StatusUserLoggedIn, "Password ok, continue")
}

// handleAUTH always rejects: TLS is out of scope for this server.
func (s *session) handleAUTH(param string) error {
	return s.writeResponse(StatusNotImplementedParam, "AUTH not supported")
}
