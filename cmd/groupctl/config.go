package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/groupctl/internal/capability"
	"github.com/danmuck/groupctl/internal/config"
	"github.com/danmuck/groupctl/internal/group"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ID                       string   `toml:"id" yaml:"id"`
	AllowTrajectoryExecution bool     `toml:"allow_trajectory_execution" yaml:"allow_trajectory_execution"`
	Capabilities             string   `toml:"capabilities" yaml:"capabilities"`
	DisableCapabilities      string   `toml:"disable_capabilities" yaml:"disable_capabilities"`
	Debug                    bool     `toml:"debug" yaml:"debug"`
	RobotDescriptionPeer     string   `toml:"robot_description_peer" yaml:"robot_description_peer"`
	RobotDescriptionParam    string   `toml:"robot_description_param" yaml:"robot_description_param"`
	RobotDescriptionSemantic string   `toml:"robot_description_semantic" yaml:"robot_description_semantic"`
	ParamPollInterval        string   `toml:"param_poll_interval" yaml:"param_poll_interval"`
	ParamSource              string   `toml:"param_source" yaml:"param_source"`
	PeerAddress              string   `toml:"peer_address" yaml:"peer_address"`
	RedisURL                 string   `toml:"redis_url" yaml:"redis_url"`
	ParamToken               string   `toml:"param_token" yaml:"param_token"`
	ParamsFile               string   `toml:"params_file" yaml:"params_file"`
	MonitorListen            string   `toml:"monitor_listen" yaml:"monitor_listen"`
	HealthListen             string   `toml:"health_listen" yaml:"health_listen"`
	CorsOrigins              []string `toml:"cors_origins" yaml:"cors_origins"`
	Heartbeat                string   `toml:"heartbeat" yaml:"heartbeat"`
}

// decodeFile picks the format by extension and reports which keys the file
// set, so absent keys keep their defaults.
func decodeFile(path string) (fileConfig, func(string) bool, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return raw, nil, err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return raw, nil, err
		}
		keys := map[string]any{}
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return raw, nil, err
		}
		return raw, func(k string) bool {
			_, ok := keys[k]
			return ok
		}, nil
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return raw, nil, err
		}
		return raw, func(k string) bool { return meta.IsDefined(k) }, nil
	}
}

func loadServiceConfig(path string) (group.ServiceConfig, error) {
	cfg := group.DefaultServiceConfig()

	raw, defined, err := decodeFile(path)
	if err != nil {
		return group.ServiceConfig{}, fmt.Errorf("load groupctl config: %w", err)
	}

	if defined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.GroupID = id
		}
	}
	if defined("allow_trajectory_execution") {
		cfg.AllowTrajectoryExecution = raw.AllowTrajectoryExecution
	}
	if defined("capabilities") {
		cfg.Capabilities = capability.ParseList(raw.Capabilities)
	}
	if defined("disable_capabilities") {
		cfg.DisableCapabilities = capability.ParseList(raw.DisableCapabilities)
	}
	if defined("debug") {
		cfg.Debug = raw.Debug
	}
	if defined("robot_description_peer") {
		cfg.DescriptionPeer = strings.TrimSpace(raw.RobotDescriptionPeer)
	}
	if defined("robot_description_param") {
		cfg.DescriptionParam = strings.TrimSpace(raw.RobotDescriptionParam)
	}
	if defined("robot_description_semantic") {
		cfg.SemanticFile = relativeTo(path, raw.RobotDescriptionSemantic)
	}
	if defined("param_poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ParamPollInterval))
		if err != nil {
			return group.ServiceConfig{}, fmt.Errorf("parse param_poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if defined("param_source") {
		cfg.ParamSource = strings.ToLower(strings.TrimSpace(raw.ParamSource))
	}
	if defined("peer_address") {
		cfg.PeerAddress = strings.TrimSpace(raw.PeerAddress)
	}
	if defined("redis_url") {
		cfg.RedisURL = strings.TrimSpace(raw.RedisURL)
	}
	if defined("param_token") {
		cfg.ParamToken = strings.TrimSpace(raw.ParamToken)
	}
	if defined("params_file") {
		values, err := config.LoadParameters(relativeTo(path, raw.ParamsFile))
		if err != nil {
			return group.ServiceConfig{}, fmt.Errorf("load params_file: %w", err)
		}
		cfg.Parameters = values
	}
	if defined("monitor_listen") {
		cfg.MonitorListenAddr = strings.TrimSpace(raw.MonitorListen)
	}
	if defined("health_listen") {
		cfg.HealthListenAddr = strings.TrimSpace(raw.HealthListen)
	}
	if defined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if defined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return group.ServiceConfig{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	return cfg, nil
}

func relativeTo(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if v := strings.TrimSpace(o); v != "" {
			out = append(out, v)
		}
	}
	return out
}
