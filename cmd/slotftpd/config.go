package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/naoina/toml"
)

// fileConfig is the on-disk shape of slotftpd.toml.
type fileConfig struct {
	ListenAddr   string `toml:"listen_addr"`
	PublicHost   string `toml:"public_host"`
	DataDir      string `toml:"data_dir"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	MaxClients   int    `toml:"max_clients"`
	DataPortBase int    `toml:"data_port_base"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		ListenAddr:   ":2121",
		PublicHost:   "",
		DataDir:      "data",
		Username:     "user",
		Password:     "pass",
		MaxClients:   10,
		DataPortBase: 55600,
	}
}

// loadOrCreateConfig mirrors the teacher's own main.go behavior: if the
// config file is missing, a default one is written out and then loaded
// back, so the first run always produces an editable settings file.
func loadOrCreateConfig(path string) (fileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := ioutil.WriteFile(path, defaultConfigTOML(), 0o644); err != nil {
			return fileConfig{}, fmt.Errorf("couldn't create config file %q: %w", path, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("couldn't open config file %q: %w", path, err)
	}
	defer f.Close()

	buf, err := ioutil.ReadAll(f)
	if err != nil {
		return fileConfig{}, fmt.Errorf("couldn't read config file %q: %w", path, err)
	}

	cfg := defaultConfig()
	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("problem loading %q: %w", path, err)
	}

	return cfg, nil
}

func defaultConfigTOML() []byte {
	buf, err := toml.Marshal(defaultConfig())
	if err != nil {
		// defaultConfig is a static literal; Marshal only fails on
		// unsupported field types, which would be a compile-time-visible
		// programmer error here, not a runtime condition to recover from.
		panic(err)
	}

	return buf
}
