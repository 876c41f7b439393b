package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ZhaoYaoJing/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NVD_API_KEY", "")
	t.Setenv("ZYJ_LISTEN", "")
	t.Setenv("ZYJ_DB", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("默认配置不匹配 (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应有效: %v", err)
	}
	if d, _ := cfg.RequestTimeout(); d != 30*time.Second {
		t.Errorf("期望超时30秒, 实际得到 %v", d)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("NVD_API_KEY", "")
	t.Setenv("ZYJ_LISTEN", "")
	t.Setenv("ZYJ_DB", "")

	path := filepath.Join(t.TempDir(), "zhaoyaojing.yaml")
	content := `
listen: ":9090"
log_level: debug
nvd:
  api_key: file-key
  timeout: 5s
fan_out: 8
match_policy: CPE
targets:
  - name: windows
    version: "10"
  - name: macos
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate 失败: %v", err)
	}

	if cfg.Listen != ":9090" || cfg.LogLevel != "debug" || cfg.FanOut != 8 {
		t.Errorf("文件值未生效: %+v", cfg)
	}
	if cfg.NVD.BaseURL != "https://services.nvd.nist.gov/rest/json" {
		t.Errorf("未设置的字段应保留默认值, 实际得到 %s", cfg.NVD.BaseURL)
	}
	if cfg.MatchPolicy != PolicyCPE {
		t.Errorf("期望策略 cpe, 实际得到 %s", cfg.MatchPolicy)
	}
	want := []model.TargetSoftware{{Name: "windows", Version: "10"}, {Name: "macos"}}
	if diff := cmp.Diff(want, cfg.Targets); diff != "" {
		t.Errorf("targets 不匹配 (-want +got):\n%s", diff)
	}
	if d, _ := cfg.RequestTimeout(); d != 5*time.Second {
		t.Errorf("期望超时5秒, 实际得到 %v", d)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NVD_API_KEY", "env-key")
	t.Setenv("ZYJ_LISTEN", "127.0.0.1:8000")
	t.Setenv("ZYJ_DB", "/tmp/mirror.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("nvd:\n  api_key: file-key\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.NVD.APIKey != "env-key" {
		t.Errorf("环境变量应覆盖文件, 实际得到 %s", cfg.NVD.APIKey)
	}
	if cfg.Listen != "127.0.0.1:8000" || cfg.Database != "/tmp/mirror.db" {
		t.Errorf("环境变量未生效: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("不存在的文件应返回错误")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("fan_out: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("无效YAML应返回错误")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"默认", func(c *Config) {}, true},
		{"空策略回退为unfiltered", func(c *Config) { c.MatchPolicy = "" }, true},
		{"未知策略", func(c *Config) { c.MatchPolicy = "fuzzy" }, false},
		{"fan_out为0", func(c *Config) { c.FanOut = 0 }, false},
		{"fan_out为负", func(c *Config) { c.FanOut = -2 }, false},
		{"cpe策略无目标", func(c *Config) { c.MatchPolicy = PolicyCPE }, false},
		{"cpe策略目标缺少名称", func(c *Config) {
			c.MatchPolicy = PolicyCPE
			c.Targets = []model.TargetSoftware{{Version: "10"}}
		}, false},
		{"cpe策略", func(c *Config) {
			c.MatchPolicy = PolicyCPE
			c.Targets = []model.TargetSoftware{{Name: "nginx"}}
		}, true},
		{"未知日志格式", func(c *Config) { c.LogFormat = "xml" }, false},
		{"无效超时", func(c *Config) { c.NVD.Timeout = "soon" }, false},
		{"非正超时", func(c *Config) { c.NVD.Timeout = "0s" }, false},
		{"离线无数据库", func(c *Config) { c.Offline = true; c.Database = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("期望有效, 实际得到 %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Error("期望校验失败")
				} else if !errors.Is(err, ErrInvalid) {
					t.Errorf("期望 ErrInvalid, 实际得到 %v", err)
				}
			}
		})
	}
}
