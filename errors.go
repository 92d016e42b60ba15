package ftpserver

import "fmt"

// ErrCode enumerates the transport-level failure catalog that gets
// accumulated into the server's error bit-set and forces a transition to
// ErrorStopping. Protocol-level and filesystem-level errors never appear
// here: they are reported straight to the client and the session continues.
type ErrCode uint

// Error catalog, one bit per code. Ordering matches the original embedded
// source's ftp_error_t so the bit positions have an obvious 1:1 reading.
const (
	ErrServerSocketCreate ErrCode = iota
	ErrPortIsZero
	ErrServerSocketBind
	ErrServerSocketListen
	ErrServerSocketDelete
	ErrClientSocketWrite
	ErrClientSocketDelete
	ErrNotAllTasksDisabled
	ErrListenDataSocketCreate
	ErrListenDataSocketBind
	ErrListenDataSocketListen
	ErrListenDataSocketClose
	ErrListenDataSocketDelete
	ErrDataSocketCreate
	ErrDataSocketBind
	ErrDataSocketClose
	ErrDataSocketDelete
)

var errCodeNames = map[ErrCode]string{ //nolint:gochecknoglobals
	ErrServerSocketCreate:     "server_socket_create",
	ErrPortIsZero:             "port_is_zero",
	ErrServerSocketBind:       "server_socket_bind",
	ErrServerSocketListen:     "server_socket_listen",
	ErrServerSocketDelete:     "server_socket_delete",
	ErrClientSocketWrite:      "client_socket_write",
	ErrClientSocketDelete:     "client_socket_delete",
	ErrNotAllTasksDisabled:    "not_all_tasks_disabled",
	ErrListenDataSocketCreate: "listen_data_socket_create",
	ErrListenDataSocketBind:   "listen_data_socket_bind",
	ErrListenDataSocketListen: "listen_data_socket_listen",
	ErrListenDataSocketClose:  "listen_data_socket_close",
	ErrListenDataSocketDelete: "listen_data_socket_delete",
	ErrDataSocketCreate:       "data_socket_create",
	ErrDataSocketBind:         "data_socket_bind",
	ErrDataSocketClose:        "data_socket_close",
	ErrDataSocketDelete:       "data_socket_delete",
}

func (e ErrCode) String() string {
	if name, ok := errCodeNames[e]; ok {
		return name
	}

	return fmt.Sprintf("err(%d)", uint(e))
}

// bit returns the mask for this error code within the server's Errors()
// bit-set.
func (e ErrCode) bit() uint32 {
	return 1 << uint(e)
}
