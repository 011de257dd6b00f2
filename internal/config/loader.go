package config

import (
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// LoadConfig 从文件加载配置并应用默认值
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 应用默认值
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults 为配置项设置默认值
func ApplyDefaults(cfg *Config) {
	// 数据目录默认值
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if cfg.PeerListenAddr == "" {
		cfg.PeerListenAddr = ":50051"
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	// 未指定时公布监听端口
	if cfg.Port == 0 {
		if _, portStr, err := net.SplitHostPort(cfg.PeerListenAddr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				cfg.Port = int32(port)
			}
		}
	}

	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = TransportGRPC
	}

	// 会话超时默认值
	if cfg.Session.ConnectTimeoutSeconds == 0 {
		cfg.Session.ConnectTimeoutSeconds = 5
	}
	if cfg.Session.AcceptTimeoutSeconds == 0 {
		cfg.Session.AcceptTimeoutSeconds = 5
	}
	if cfg.Session.RequestTimeoutSeconds == 0 {
		cfg.Session.RequestTimeoutSeconds = 10
	}

	cfg.Database.ApplyDefaults(cfg.DataDir)
	cfg.Logging.ApplyDefaults(cfg.DataDir)
}
