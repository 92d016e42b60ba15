// Package drivers provides a single-credential, OS-filesystem-backed
// MainDriver/ClientDriver implementation for slotftpd.
package drivers

import (
	"fmt"
	"sync/atomic"

	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"

	ftpserver "github.com/fclairamb/slotftpd"
)

// FilesDriver roots every logged-in session at BaseDir using afero's
// base-path wrapper, so a client can never escape it through ".." or an
// absolute path.
type FilesDriver struct {
	BaseDir   string
	Settings  ftpserver.Settings
	Logger    log.Logger
	nbClients int32
}

// NewFilesDriver builds a driver serving baseDir, with settings defaulted
// by the caller (zero fields are filled in by the server at Init time).
func NewFilesDriver(baseDir string, settings ftpserver.Settings) *FilesDriver {
	return &FilesDriver{BaseDir: baseDir, Settings: settings}
}

// GetSettings returns the settings this driver was configured with.
func (driver *FilesDriver) GetSettings() (*ftpserver.Settings, error) {
	return &driver.Settings, nil
}

// ClientConnected builds the welcome message and tracks connected-client
// count for diagnostics; it never rejects a connection itself (slot
// exhaustion is already handled by the supervisor before a slot ever
// reaches the driver).
func (driver *FilesDriver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	n := atomic.AddInt32(&driver.nbClients, 1)

	return fmt.Sprintf("Welcome, client #%d from %s", n, cc.RemoteAddr()), nil
}

// ClientDisconnected decrements the connected-client count.
func (driver *FilesDriver) ClientDisconnected(cc ftpserver.ClientContext) {
	atomic.AddInt32(&driver.nbClients, -1)
}

// AuthUser always returns the same base-path-rooted filesystem: the
// credential check itself already happened in the server (SetUsername /
// SetPassword); this driver just hands back the collaborator.
func (driver *FilesDriver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	return &filesClientDriver{
		Fs:      afero.NewBasePathFs(afero.NewOsFs(), driver.BaseDir),
		baseDir: driver.BaseDir,
	}, nil
}

// filesClientDriver adapts an afero.Fs (already base-path-rooted) to
// ClientDriver plus the free-space extension.
type filesClientDriver struct {
	afero.Fs
	baseDir string
}

var _ ftpserver.ClientDriverExtensionFreeSpace = (*filesClientDriver)(nil)

// GetFreeSpace reports free/total bytes for the volume backing BaseDir, via
// the platform-specific statfsFreeSpace helper. The virtual path argument is
// ignored: everything under a session's chroot sits on the same volume.
func (d *filesClientDriver) GetFreeSpace(path string) (free, total int64, err error) {
	return statfsFreeSpace(d.baseDir)
}
