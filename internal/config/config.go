package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Archive describes the remote package mirror the server browses.
type Archive struct {
	// Root is the base URL of the mirror, e.g. "http://archive.adref/debian-debug/".
	Root string `json:"root"`
	// Suite is the distribution suite, e.g. "unstable-debug".
	Suite string `json:"suite"`
	// Component is the archive component, e.g. "main".
	Component string `json:"component"`
}

// Paths describes where the filesystem is exposed on the host.
type Paths struct {
	MountPoint string `json:"mount_point"`
}

// Server describes the listening socket of the /healthz HTTP endpoint.
type Server struct {
	Addr string `json:"addr"`
}

// Mount controls how the tree is bound onto the host filesystem.
type Mount struct {
	AllowOther bool `json:"allow_other"`
}

type Config struct {
	Server  Server  `json:"server"`
	Paths   Paths   `json:"paths"`
	Mount   Mount   `json:"mount"`
	Archive Archive `json:"archive"`
}

func Default() Config {
	return Config{
		Server: Server{Addr: "127.0.0.1:5640"},
		Paths:  Paths{MountPoint: "/mnt/debugfs"},
		Mount:  Mount{AllowOther: false},
		Archive: Archive{
			Root:      "http://archive.adref/debian-debug/",
			Suite:     "unstable-debug",
			Component: "main",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr required")
	}
	if c.Paths.MountPoint == "" {
		return errors.New("paths.mount_point required")
	}
	if c.Archive.Root == "" {
		return errors.New("archive.root required")
	}
	if c.Archive.Suite == "" {
		return errors.New("archive.suite required")
	}
	if c.Archive.Component == "" {
		return errors.New("archive.component required")
	}
	return nil
}

// PackagesURL returns the location of the compressed package index for
// this archive, matching Debian's dists layout.
func (a Archive) PackagesURL() string {
	return a.Root + "dists/" + a.Suite + "/" + a.Component + "/binary-amd64/Packages.xz"
}
