package cvedb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ZhaoYaoJing/internal/model"
)

func TestNewNVDClient(t *testing.T) {
	client := NewNVDClient(ClientConfig{})
	if client == nil {
		t.Fatal("NewNVDClient() 返回 nil")
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("期望baseURL为 %s, 实际得到 %s", DefaultBaseURL, client.baseURL)
	}
	if client.logger == nil {
		t.Error("logger 不应为 nil")
	}
	if client.httpClient == nil {
		t.Fatal("httpClient 不应为 nil")
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("期望默认超时30秒, 实际得到 %v", client.httpClient.Timeout)
	}

	client = NewNVDClient(ClientConfig{BaseURL: "http://127.0.0.1:9999/rest/json/", Timeout: time.Second})
	if client.baseURL != "http://127.0.0.1:9999/rest/json" {
		t.Errorf("baseURL末尾斜杠未去除: %s", client.baseURL)
	}
}

func TestCPEMatchString(t *testing.T) {
	tests := []struct {
		name, version, want string
	}{
		{"nginx", "1.18", "cpe:2.3:*:*:nginx:1.18"},
		{"Nginx", "", "cpe:2.3:*:*:nginx:*"},
		{"WINDOWS", "10", "cpe:2.3:*:*:windows:10"},
	}
	for _, tt := range tests {
		if got := CPEMatchString(tt.name, tt.version); got != tt.want {
			t.Errorf("CPEMatchString(%q, %q) = %s, 期望 %s", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestLookupCPEWithMockServer(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("期望GET请求, 实际得到 %s", r.Method)
		}
		if r.URL.Path != "/rest/json/cpes/2.0" {
			t.Errorf("路径不匹配: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cpeMatchString"); got != "cpe:2.3:*:*:nginx:1.18" {
			t.Errorf("cpeMatchString不匹配: %s", got)
		}
		if got := r.Header.Get("apiKey"); got != "secret" {
			t.Errorf("期望apiKey头为 secret, 实际得到 %q", got)
		}

		response := model.CpeResponse{
			ResultsPerPage: 1,
			TotalResults:   1,
			Products: []model.CpeProduct{
				{CPE: model.CpeRecord{CPEName: "cpe:2.3:a:f5:nginx:1.18.0:*:*:*:*:*:*:*"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}))
	defer testServer.Close()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL + "/rest/json", APIKey: "secret"})

	products, err := client.LookupCPE(context.Background(), "Nginx", "1.18")
	if err != nil {
		t.Fatalf("LookupCPE 失败: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("期望1个CPE, 实际得到 %d", len(products))
	}
	if products[0].CPE.CPEName != "cpe:2.3:a:f5:nginx:1.18.0:*:*:*:*:*:*:*" {
		t.Errorf("CPE名称不匹配: %s", products[0].CPE.CPEName)
	}
}

func TestLookupCPEWithAPIError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "forbidden"}`))
	}))
	defer testServer.Close()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL})

	products, err := client.LookupCPE(context.Background(), "nginx", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("期望 ErrUnavailable, 实际得到 %v", err)
	}
	if products != nil {
		t.Errorf("非200响应不应返回数据, 实际得到 %v", products)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("错误信息应包含状态码: %v", err)
	}
}

func TestLookupCVEByCPEWithMockServer(t *testing.T) {
	const cpeName = "cpe:2.3:a:f5:nginx:1.18.0:*:*:*:*:*:*:*"

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cves/2.0" {
			t.Errorf("路径不匹配: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cpeName"); got != cpeName {
			t.Errorf("cpeName不匹配: %s", got)
		}
		if r.Header.Get("apiKey") != "" {
			t.Error("未配置密钥时不应发送apiKey头")
		}

		response := model.CveBatch{
			ResultsPerPage: 2,
			TotalResults:   2,
			Vulnerabilities: []model.Vulnerability{
				{CVE: mockCVE("CVE-2021-23017", 7.7, "")},
				{CVE: mockCVE("CVE-2021-3618", 0, "")},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer testServer.Close()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL})

	batch, err := client.LookupCVEByCPE(context.Background(), cpeName)
	if err != nil {
		t.Fatalf("LookupCVEByCPE 失败: %v", err)
	}
	if len(batch.Vulnerabilities) != 2 {
		t.Fatalf("期望2个CVE, 实际得到 %d", len(batch.Vulnerabilities))
	}
	if batch.Vulnerabilities[0].CVE.ID != "CVE-2021-23017" {
		t.Errorf("第一个CVE ID应为 CVE-2021-23017, 实际得到 %s", batch.Vulnerabilities[0].CVE.ID)
	}
	if got := ImpactScore(batch.Vulnerabilities[0].CVE); got != 7.7 {
		t.Errorf("第一个CVE分数应为 7.7, 实际得到 %f", got)
	}
}

func TestLookupCVEByKeywordsWithMockServer(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keywordSearch"); got != "remote code execution" {
			t.Errorf("keywordSearch不匹配: %q", got)
		}
		if strings.Contains(r.URL.RawQuery, "+") {
			t.Errorf("空格应编码为%%20: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"resultsPerPage":1,"startIndex":0,"totalResults":1,"vulnerabilities":[{"cve":{"id":"CVE-2024-0001","published":"2024-01-01T00:00:00.000","lastModified":"2024-01-02T00:00:00.000","metrics":{}}}]}`))
	}))
	defer testServer.Close()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL})

	batch, err := client.LookupCVEByKeywords(context.Background(), []string{"remote", "code", "execution"})
	if err != nil {
		t.Fatalf("LookupCVEByKeywords 失败: %v", err)
	}
	if len(batch.Vulnerabilities) != 1 {
		t.Fatalf("期望1个CVE, 实际得到 %d", len(batch.Vulnerabilities))
	}
	if got := ImpactScore(batch.Vulnerabilities[0].CVE); got != 0 {
		t.Errorf("无评分时应为0, 实际得到 %f", got)
	}
}

func TestLookupCVEWithInvalidJSON(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities": [`))
	}))
	defer testServer.Close()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL})

	batch, err := client.LookupCVEByCPE(context.Background(), "cpe:2.3:a:f5:nginx:1.18.0:*:*:*:*:*:*:*")
	if err == nil {
		t.Fatal("期望解析错误，但未返回错误")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("解析错误不应是 ErrUnavailable: %v", err)
	}
	if batch != nil {
		t.Errorf("出错时不应返回数据")
	}
}

func TestLookupCanceledContext(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("已取消的请求不应到达服务器")
	}))
	defer testServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewNVDClient(ClientConfig{BaseURL: testServer.URL})
	if _, err := client.LookupCVEByKeywords(ctx, []string{"nginx"}); !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际得到 %v", err)
	}
}
