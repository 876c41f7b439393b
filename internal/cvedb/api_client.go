package cvedb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ZhaoYaoJing/internal/model"
	"ZhaoYaoJing/internal/utils"
)

// DefaultBaseURL NVD REST API 根地址
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json"

// ErrUnavailable NVD未返回数据（非200响应）
var ErrUnavailable = errors.New("NVD数据不可用")

// ClientConfig NVD客户端配置，零值使用默认值
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NVDClient 用于从NVD API获取CPE与CVE数据的客户端
type NVDClient struct {
	baseURL    string
	apiKey     string
	logger     *utils.Logger
	httpClient *http.Client
}

// NewNVDClient 创建新的NVD API客户端
func NewNVDClient(cfg ClientConfig) *NVDClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &NVDClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  utils.NewLogger("cve-api-client"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// CPEMatchString 构建 cpe:2.3:*:*:{名称}:{版本|*} 匹配串
func CPEMatchString(name, version string) string {
	match := "cpe:2.3:*:*:" + strings.ToLower(name)
	if version != "" {
		return match + ":" + version
	}
	return match + ":*"
}

// LookupCPE 按软件名与版本查询CPE记录
func (client *NVDClient) LookupCPE(ctx context.Context, name, version string) ([]model.CpeProduct, error) {
	params := url.Values{}
	params.Set("cpeMatchString", CPEMatchString(name, version))

	var resp model.CpeResponse
	if err := client.get(ctx, "cpes", params, &resp); err != nil {
		return nil, err
	}

	client.logger.Debug("获取到 %d 个CPE，总结果数: %d", len(resp.Products), resp.TotalResults)
	return resp.Products, nil
}

// LookupCVEByCPE 查询某个CPE名称关联的CVE
func (client *NVDClient) LookupCVEByCPE(ctx context.Context, cpeName string) (*model.CveBatch, error) {
	params := url.Values{}
	params.Set("cpeName", cpeName)

	var batch model.CveBatch
	if err := client.get(ctx, "cves", params, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// LookupCVEByKeywords 按关键词搜索CVE，关键词以空格连接
func (client *NVDClient) LookupCVEByKeywords(ctx context.Context, keywords []string) (*model.CveBatch, error) {
	params := url.Values{}
	params.Set("keywordSearch", strings.Join(keywords, " "))

	var batch model.CveBatch
	if err := client.get(ctx, "cves", params, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (client *NVDClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	// NVD 要求空格编码为 %20
	query := strings.ReplaceAll(params.Encode(), "+", "%20")
	reqURL := fmt.Sprintf("%s/%s/2.0?%s", client.baseURL, endpoint, query)

	client.logger.Debug("请求URL: %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "ZhaoYaoJing/1.0")
	req.Header.Set("Accept", "application/json")
	if client.apiKey != "" {
		req.Header.Set("apiKey", client.apiKey)
	}

	start := time.Now()
	resp, err := client.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestCounter.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	requestCounter.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		client.logger.Warn("获取数据失败，状态码: %d, URL: %s", resp.StatusCode, reqURL)
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		client.logger.Error("解析JSON失败: %v", err)
		return fmt.Errorf("解析JSON失败: %w", err)
	}

	return nil
}
