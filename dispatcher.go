package ftpserver

// dispatchOutcome tells serveControlDialogue whether to keep reading
// commands or tear the session down.
type dispatchOutcome int

const (
	dispatchContinue dispatchOutcome = iota
	dispatchQuit
)

// commandDescription ties a verb to its handler and whether it is reachable
// before login (spec §4.5: only USER, PASS, AUTH and QUIT are).
type commandDescription struct {
	open bool
	fn   func(s *session, param string) error
}

// commandTable maps verb to handler (C5). It is package-level: the command
// set never varies between servers, mirroring the teacher's own
// commandsMap.
var commandTable = map[string]*commandDescription{ //nolint:gochecknoglobals
	"USER": {open: true, fn: (*session).handleUSER},
	"PASS": {open: true, fn: (*session).handlePASS},
	"AUTH": {open: true, fn: (*session).handleAUTH},

	"PWD":  {fn: (*session).handlePWD},
	"XPWD": {fn: (*session).handlePWD},
	"CWD":  {fn: (*session).handleCWD},
	"XCWD": {fn: (*session).handleCWD},
	"CDUP": {fn: (*session).handleCDUP},
	"XCUP": {fn: (*session).handleCDUP},

	"MODE": {fn: (*session).handleMODE},
	"STRU": {fn: (*session).handleSTRU},
	"TYPE": {fn: (*session).handleTYPE},

	"PASV": {fn: (*session).handlePASV},
	"EPSV": {fn: (*session).handlePASV},
	"PORT": {fn: (*session).handlePORT},

	"LIST": {fn: (*session).handleLIST},
	"NLST": {fn: (*session).handleNLST},
	"MLSD": {fn: (*session).handleMLSD},

	"DELE": {fn: (*session).handleDELE},
	"RMD":  {fn: (*session).handleRMD},
	"XRMD": {fn: (*session).handleRMD},
	"MKD":  {fn: (*session).handleMKD},
	"XMKD": {fn: (*session).handleMKD},

	"RNFR": {fn: (*session).handleRNFR},
	"RNTO": {fn: (*session).handleRNTO},

	"MDTM": {fn: (*session).handleMDTM},
	"SIZE": {fn: (*session).handleSIZE},
	"SITE": {fn: (*session).handleSITE},
	"STAT": {fn: (*session).handleSTAT},
	"SYST": {fn: (*session).handleSYST},
	"FEAT": {fn: (*session).handleFEAT},
	"NOOP": {fn: (*session).handleNOOP},

	"RETR": {fn: (*session).handleRETR},
	"STOR": {fn: (*session).handleSTOR},
}

// dispatch runs one parsed command through the dispatcher contract of spec
// §4.5: QUIT always replies and ends the session; an unknown verb gets 500;
// everything else except USER/PASS/AUTH is silently ignored (no reply at
// all) until the session is logged in — this is the source's non-conforming
// but preserved behavior (see DESIGN.md).
func (s *session) dispatch(command, param string) dispatchOutcome {
	if command == "QUIT" {
		s.writeResponse(StatusClosingControlConn, "Goodbye")

		return dispatchQuit
	}

	desc, ok := commandTable[command]
	if !ok {
		s.writeResponse(StatusSyntaxError, "Unknown command")

		return dispatchContinue
	}

	if !desc.open && s.userState != userStateLoggedIn {
		return dispatchContinue
	}

	s.cmdBeginCallback(command)

	if err := desc.fn(s, param); err != nil {
		s.logger.Warn("Command handler error", "command", command, "err", err)
	}

	s.cmdEndCallback(command)

	return dispatchContinue
}

// cmdBeginCallback/cmdEndCallback are the begin/end hook pair the spec
// requires around every dispatched command (§4.5). The default
// implementation only logs; FTP_CMD_BEGIN_CALLBACK/FTP_CMD_END_CALLBACK in
// the embedded source are no-ops by default too.
func (s *session) cmdBeginCallback(command string) {
	s.logger.Debug("Command begin", "command", command)
}

func (s *session) cmdEndCallback(command string) {
	s.logger.Debug("Command end", "command", command)
}
