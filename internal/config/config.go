// Package config 加载照妖镜的运行配置：默认值、YAML文件、环境变量依次覆盖
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ZhaoYaoJing/internal/model"
)

// 匹配策略
const (
	PolicyUnfiltered = "unfiltered"
	PolicyCPE        = "cpe"
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("配置无效")

type NVDConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Config 对应配置文件的结构
type Config struct {
	Listen      string                 `yaml:"listen"`
	LogLevel    string                 `yaml:"log_level"`
	LogFormat   string                 `yaml:"log_format"`
	NVD         NVDConfig              `yaml:"nvd"`
	Database    string                 `yaml:"database"`
	Offline     bool                   `yaml:"offline"`
	FanOut      int                    `yaml:"fan_out"`
	MatchPolicy string                 `yaml:"match_policy"`
	Targets     []model.TargetSoftware `yaml:"targets"`
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		NVD: NVDConfig{
			BaseURL: "https://services.nvd.nist.gov/rest/json",
			Timeout: "30s",
		},
		Database:    "data/cve_data.db",
		FanOut:      4,
		MatchPolicy: PolicyUnfiltered,
	}
}

// Load 读取配置文件并应用环境变量。path 为空时只使用默认值
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NVD_API_KEY"); v != "" {
		c.NVD.APIKey = v
	}
	if v := os.Getenv("ZYJ_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("ZYJ_DB"); v != "" {
		c.Database = v
	}
}

// RequestTimeout 解析 nvd.timeout，未设置时为30秒
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.NVD.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.NVD.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: nvd.timeout %q: %v", ErrInvalid, c.NVD.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: nvd.timeout 必须大于0", ErrInvalid)
	}
	return d, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	c.MatchPolicy = strings.ToLower(strings.TrimSpace(c.MatchPolicy))
	switch c.MatchPolicy {
	case "":
		c.MatchPolicy = PolicyUnfiltered
	case PolicyUnfiltered, PolicyCPE:
	default:
		return fmt.Errorf("%w: 未知的匹配策略 %q", ErrInvalid, c.MatchPolicy)
	}

	if c.FanOut <= 0 {
		return fmt.Errorf("%w: fan_out 必须大于0, 实际为 %d", ErrInvalid, c.FanOut)
	}

	if c.MatchPolicy == PolicyCPE {
		if len(c.Targets) == 0 {
			return fmt.Errorf("%w: cpe 匹配策略需要至少一个 targets 条目", ErrInvalid)
		}
		for i, target := range c.Targets {
			if strings.TrimSpace(target.Name) == "" {
				return fmt.Errorf("%w: targets[%d] 缺少名称", ErrInvalid, i)
			}
		}
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: 未知的日志格式 %q", ErrInvalid, c.LogFormat)
	}

	if c.Offline && c.Database == "" {
		return fmt.Errorf("%w: 离线模式需要数据库路径", ErrInvalid)
	}

	_, err := c.RequestTimeout()
	return err
}
