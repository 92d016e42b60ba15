// Command slotftpd runs the fixed-slot FTP server against a single
// directory on the local filesystem.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	gklog "github.com/go-kit/kit/log"
	"github.com/sirupsen/logrus"

	ftpserver "github.com/fclairamb/slotftpd"
	"github.com/fclairamb/slotftpd/drivers"
	"github.com/fclairamb/slotftpd/internal/loggokit"
)

func main() {
	var confFile string

	var confOnly bool

	flag.StringVar(&confFile, "conf", "slotftpd.toml", "Configuration file")
	flag.BoolVar(&confOnly, "conf-only", false, "Only create the config file, then exit")
	flag.Parse()

	cfg, err := loadOrCreateConfig(confFile)
	if err != nil {
		logrus.Fatalf("Could not load configuration: %v", err)
	}

	if confOnly {
		logrus.Info("Only creating conf")

		return
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logrus.Fatalf("Could not create data directory %q: %v", cfg.DataDir, err)
	}

	settings := ftpserver.Settings{
		ListenAddr:   cfg.ListenAddr,
		PublicHost:   cfg.PublicHost,
		ClientsMax:   cfg.MaxClients,
		DataPortBase: cfg.DataPortBase,
	}

	driver := drivers.NewFilesDriver(cfg.DataDir, settings)
	driver.Logger = loggokit.New(gklog.With(kitBaseLogger(), "component", "driver"))

	server := ftpserver.NewFtpServer(driver)
	server.Logger = loggokit.New(gklog.With(kitBaseLogger(), "component", "server"))
	server.SetUsername(cfg.Username)
	server.SetPassword(cfg.Password)

	if err := server.Init(); err != nil {
		logrus.Fatalf("Could not initialize server: %v", err)
	}

	server.Start()

	done := make(chan struct{})
	go signalHandler(server, done)

	logrus.WithField("addr", cfg.ListenAddr).Info("slotftpd starting")

	<-done
}

func kitBaseLogger() gklog.Logger {
	return gklog.NewLogfmtLogger(gklog.NewSyncWriter(os.Stdout))
}

func signalHandler(server *ftpserver.FtpServer, done chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(ch)

	<-ch
	logrus.Info("Shutting down")
	server.Stop()
	close(done)
}
