package ftpserver

import (
	"github.com/spf13/afero"
)

// This file is the driver part of the server. It must be implemented by
// anyone wanting to use the server with a concrete filesystem.

// MainDriver handles server-wide configuration and session setup. There is
// no user database: the server itself compares the USER/PASS pair against
// whatever SetUsername/SetPassword configured, and calls AuthUser only once
// that check has passed.
type MainDriver interface {
	// GetSettings returns the general settings around the server setup.
	GetSettings() (*Settings, error)

	// ClientConnected is called to build the very first welcome message.
	ClientConnected(cc ClientContext) (string, error)

	// ClientDisconnected is called when the client disconnects, even if it
	// never authenticated.
	ClientDisconnected(cc ClientContext)

	// AuthUser authenticates the user/pass pair and selects the filesystem
	// driver to use for the rest of the session.
	AuthUser(cc ClientContext, user, pass string) (ClientDriver, error)
}

// ClientDriver is the filesystem implementation backing a logged-in
// session. It stands in for the spec's FatFs collaborator
// (stat/opendir/readdir/unlink/open/read/write/close/mkdir/rename/utime).
type ClientDriver interface {
	afero.Fs
}

// ClientDriverExtensionFreeSpace is an extension to implement to support the
// "SITE FREE" command (the spec's getfree collaborator call).
type ClientDriverExtensionFreeSpace interface {
	// GetFreeSpace returns (free bytes, total bytes) for the volume serving
	// the given path.
	GetFreeSpace(path string) (free, total int64, err error)
}

// ClientContext exposes the parts of a session a driver may need.
type ClientContext interface {
	// Path returns the current working directory of the client.
	Path() string

	// ID is the client's slot-scoped session ID.
	ID() uint32

	// RemoteAddr returns the client's address.
	RemoteAddr() string
}

// PortRange bounds passive-mode port selection; unused by the default
// slot-index port formula but kept for drivers that want to reserve a
// contiguous block starting at Start.
type PortRange struct {
	Start int
	End   int
}

// Settings defines all the server settings.
type Settings struct {
	ListenAddr string // Listening address, e.g. "0.0.0.0:21"
	PublicHost string // Public IPv4 to expose in PASV replies; derived from the accepted connection if empty

	ClientsMax int // Size of the fixed client slot table

	DataPortBase int // Base passive-mode port; actual port is DataPortBase + rotation + slotIndex*25

	BufferSizeMult int // Transfer buffer size multiplier: buffer = 512 * BufferSizeMult

	DisablePassiveMode bool // Disable PASV/EPSV
	DisableActiveMode  bool // Disable PORT

	ControlReadTimeout  int // Control recv tick, ms (default 1000)
	InactivityTicks     int // Inactivity tolerance, ticks (default 60)
	ControlWriteTimeout int // Control write completion timeout, ms (default 3000)

	PassiveListenTimeout int // Deadline for opening the passive listener, ms (default 5000)
	PassiveAcceptTimeout int // Passive accept timeout, ms (default 500)
	StorRecvTimeout      int // STOR data recv timeout, ms (default 5000)

	StopWaitSeconds int // Supervisor stop-wait budget, seconds (default 6)
}
