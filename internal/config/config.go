// Package config loads trainboot's declarative configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trainboot/trainboot/internal/ports"
)

// Environment variable overrides.
const (
	EnvNameVar = "TRAINBOOT_ENV_NAME"
	EnvSpecVar = "TRAINBOOT_ENV_SPEC"
	DeviceVar  = "TRAINBOOT_DEVICE"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "trainboot.yaml"

// Config is the static configuration a provisioning plan is built from.
type Config struct {
	Env     EnvConfig     `yaml:"env"`
	Conda   CondaConfig   `yaml:"conda"`
	Project ProjectConfig `yaml:"project"`
	Train   TrainConfig   `yaml:"train"`
	Network NetworkConfig `yaml:"network"`
}

// EnvConfig names the isolated environment and its dependency spec.
type EnvConfig struct {
	Name string `yaml:"name"`
	Spec string `yaml:"spec"`
}

// CondaConfig configures the conda distribution install.
type CondaConfig struct {
	Root         string `yaml:"root"`
	InstallerURL string `yaml:"installer_url"`
	Checksum     string `yaml:"checksum"`
	MinVersion   string `yaml:"min_version"`
}

// ProjectConfig locates the local project to install in editable mode.
type ProjectConfig struct {
	Dir string `yaml:"dir"`
}

// TrainConfig describes the job handed off to after provisioning.
type TrainConfig struct {
	// Command is resolved inside the environment's bin directory.
	Command string `yaml:"command"`
	// Device is the device index pinned via CUDA_VISIBLE_DEVICES.
	Device string `yaml:"device"`
}

// NetworkConfig bounds retries for network operations.
type NetworkConfig struct {
	Attempts int `yaml:"attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env: EnvConfig{
			Name: "torchmd-net",
			Spec: "environment.yml",
		},
		Conda: CondaConfig{
			Root:         ports.ExpandPath("~/miniconda3"),
			InstallerURL: "https://repo.anaconda.com/miniconda/Miniconda3-latest-Linux-x86_64.sh",
		},
		Project: ProjectConfig{
			Dir: ".",
		},
		Train: TrainConfig{
			Command: "torchmd-train",
			Device:  "0",
		},
		Network: NetworkConfig{
			Attempts: 3,
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Environment variable overrides are applied last.
func Load(fs ports.FileSystem, path string) (Config, error) {
	cfg := Default()

	if fs.Exists(path) {
		data, err := fs.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	cfg.Conda.Root = ports.ExpandPath(cfg.Conda.Root)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvNameVar); v != "" {
		cfg.Env.Name = v
	}
	if v := os.Getenv(EnvSpecVar); v != "" {
		cfg.Env.Spec = v
	}
	if v := os.Getenv(DeviceVar); v != "" {
		cfg.Train.Device = v
	}
}

func (c Config) validate() error {
	if c.Env.Name == "" {
		return fmt.Errorf("config: env.name must not be empty")
	}
	if c.Env.Spec == "" {
		return fmt.Errorf("config: env.spec must not be empty")
	}
	if c.Train.Command == "" {
		return fmt.Errorf("config: train.command must not be empty")
	}
	if c.Network.Attempts < 1 {
		return fmt.Errorf("config: network.attempts must be at least 1")
	}
	return nil
}
