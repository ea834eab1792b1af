package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ControlSocket is the unix socket the control API listens on.
	ControlSocket string `yaml:"control_socket"`
	// CgroupMount is the root of the cgroup v2 unified hierarchy.
	CgroupMount string `yaml:"cgroup_mount"`
	// ManagerLeaf names the leaf the manager's own processes move into
	// when its cgroup becomes an inner node at startup.
	ManagerLeaf string `yaml:"manager_leaf"`
	// DefaultSeat is the seat the tty watcher activates sessions on.
	DefaultSeat string `yaml:"default_seat"`
	// TTYActivePath is the sysfs file holding the active console name.
	TTYActivePath string `yaml:"tty_active_path"`
	// DeviceReloadSeconds is the interval for refreshing seat device
	// lists from udev; 0 disables periodic reloads.
	DeviceReloadSeconds int `yaml:"device_reload_seconds"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		ControlSocket:       "/run/platzwart/control.sock",
		CgroupMount:         "/sys/fs/cgroup",
		ManagerLeaf:         "platzwart_self",
		DefaultSeat:         "seat0",
		TTYActivePath:       "/sys/class/tty/tty0/active",
		DeviceReloadSeconds: 30,
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLATZWART_CONTROL_SOCKET"); v != "" {
		cfg.ControlSocket = v
	}
	if v := os.Getenv("PLATZWART_CGROUP_MOUNT"); v != "" {
		cfg.CgroupMount = v
	}
	if v := os.Getenv("PLATZWART_MANAGER_LEAF"); v != "" {
		cfg.ManagerLeaf = v
	}
	if v := os.Getenv("PLATZWART_DEFAULT_SEAT"); v != "" {
		cfg.DefaultSeat = v
	}
	if v := os.Getenv("PLATZWART_TTY_ACTIVE_PATH"); v != "" {
		cfg.TTYActivePath = v
	}
	if v := os.Getenv("PLATZWART_DEVICE_RELOAD_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DeviceReloadSeconds = n
		}
	}
}
