package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigureLogging("debug", "json", &buf); err != nil {
		t.Fatalf("ConfigureLogging 失败: %v", err)
	}

	logger := NewLogger("cve-api-client")
	logger.Info("获取到 %d 个CVE", 2)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("日志不是JSON: %v, 内容: %s", err, buf.String())
	}
	if entry["component"] != "cve-api-client" {
		t.Errorf("期望component为 cve-api-client, 实际得到 %v", entry["component"])
	}
	if entry["msg"] != "获取到 2 个CVE" {
		t.Errorf("消息不匹配, 实际得到 %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("期望level为 info, 实际得到 %v", entry["level"])
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigureLogging("info", "json", &buf); err != nil {
		t.Fatalf("ConfigureLogging 失败: %v", err)
	}

	NewLogger("lookup").With("cpe", "cpe:2.3:a:nginx:nginx:1.18:*:*:*:*:*:*:*").Warn("跳过")
	if !strings.Contains(buf.String(), `"cpe":"cpe:2.3:a:nginx:nginx:1.18`) {
		t.Errorf("缺少cpe字段: %s", buf.String())
	}
}

func TestConfigureLoggingInvalidLevel(t *testing.T) {
	if err := ConfigureLogging("loud", "text", nil); err == nil {
		t.Error("期望无效级别返回错误")
	}
}

func TestLoggerWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigureLogging("info", "json", &buf); err != nil {
		t.Fatalf("ConfigureLogging 失败: %v", err)
	}

	w := NewLogger("web").Writer()
	for i := 0; i < 2; i++ {
		n, err := w.Write([]byte("GET /healthz 200\n"))
		if err != nil || n != len("GET /healthz 200\n") {
			t.Fatalf("Write 返回 %d, %v", n, err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("期望2条日志, 实际得到 %d: %s", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("日志不是JSON: %v, 内容: %s", err, lines[0])
	}
	if entry["msg"] != "GET /healthz 200" {
		t.Errorf("消息不匹配, 实际得到 %q", entry["msg"])
	}
	if entry["level"] != "info" || entry["component"] != "web" {
		t.Errorf("字段不匹配: %v", entry)
	}
}
