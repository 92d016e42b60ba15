package ftpserver

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	testAuthUser = "test"
	testAuthPass = "test"
)

// testDriver is a minimal MainDriver backed by an in-memory filesystem,
// grounded on the teacher's own TestServerDriver/TestClientDriver pair.
type testDriver struct {
	settings *Settings
	fs       afero.Fs
}

func newTestDriver(settings *Settings) *testDriver {
	if settings == nil {
		settings = &Settings{}
	}

	return &testDriver{settings: settings, fs: afero.NewMemMapFs()}
}

func (d *testDriver) GetSettings() (*Settings, error) {
	return d.settings, nil
}

func (d *testDriver) ClientConnected(cc ClientContext) (string, error) {
	return fmt.Sprintf("Welcome %s", cc.RemoteAddr()), nil
}

func (d *testDriver) ClientDisconnected(cc ClientContext) {}

func (d *testDriver) AuthUser(cc ClientContext, user, pass string) (ClientDriver, error) {
	return d.fs, nil
}

// freeTCPPort finds a currently unused TCP port by binding then immediately
// releasing it; the control listener needs a concrete, non-zero port (spec
// §4.9 fails PORT_IS_ZERO on 0), unlike data connections which are genuinely
// ephemeral.
func freeTCPPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

// newRunningTestServer builds, initializes and starts a server around the
// given settings (ClientsMax/DataPortBase default if zero), and waits for it
// to report StatusRunning before returning.
func newRunningTestServer(t *testing.T, settings *Settings) (*FtpServer, *testDriver) {
	t.Helper()

	if settings == nil {
		settings = &Settings{}
	}

	port := freeTCPPort(t)
	settings.ListenAddr = fmt.Sprintf("127.0.0.1:%d", port)

	if settings.ClientsMax == 0 {
		settings.ClientsMax = 4
	}

	if settings.DataPortBase == 0 {
		settings.DataPortBase = 50000 + port%5000
	}

	driver := newTestDriver(settings)
	server := NewFtpServer(driver)
	server.SetUsername(testAuthUser)
	server.SetPassword(testAuthPass)

	require.NoError(t, server.Init())
	server.Start()

	require.Eventually(t, func() bool {
		return server.GetStatus() == StatusRunning
	}, 2*time.Second, 10*time.Millisecond, "server never reached StatusRunning")

	t.Cleanup(func() {
		server.Stop()
		require.Eventually(t, func() bool {
			st := server.GetStatus()
			return st == StatusIdle || st == StatusError
		}, 3*time.Second, 10*time.Millisecond, "server never stopped")
	})

	return server, driver
}
