package main

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Every field has a
// usable default so the binary runs with no file at all.
type Config struct {
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
	LiveModel  string `yaml:"live_model"`
	Voice      string `yaml:"voice"`

	HTTPAddr string `yaml:"http_addr"`

	KeyFile string `yaml:"key_file"`

	RecordingsDir   string `yaml:"recordings_dir"`
	RecorderWorkers int    `yaml:"recorder_workers"`
	RecordSessions  bool   `yaml:"record_sessions"`

	Persona  string `yaml:"persona"`
	Greeting string `yaml:"greeting"`
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr:        ":8444",
		RecordingsDir:   "recordings",
		RecorderWorkers: 2,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8444"
	}
	if cfg.RecordingsDir == "" {
		cfg.RecordingsDir = "recordings"
	}
	if cfg.RecorderWorkers <= 0 {
		cfg.RecorderWorkers = 2
	}
	return cfg, nil
}
