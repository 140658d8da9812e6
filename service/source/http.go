/*
 * @module service/source/http
 * @description 远程CSV数据源，HTTP GET拉取分号分隔CSV
 * @architecture 简单HTTP客户端模式 - 同步请求，超时保护
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 构建请求 -> GET拉取 -> 状态码校验 -> CSV解析
 * @rules 无认证；非2xx与网络错误一律包装为SourceUnavailableError
 * @dependencies net/http
 * @refs service/source/csv.go
 */

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// defaultHTTPTimeout 远程拉取默认超时
const defaultHTTPTimeout = 30 * time.Second

// maxCSVBytes 远程CSV的体积上限，防御异常响应
const maxCSVBytes = 32 << 20

// HTTPSource 远程CSV数据源
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource 创建远程CSV数据源
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Type 数据源类型标识
func (s *HTTPSource) Type() string {
	return meta.SourceTypeHTTPCSV
}

// URL 返回拉取地址
func (s *HTTPSource) URL() string {
	return s.url
}

// Fetch 拉取并解析远程CSV
func (s *HTTPSource) Fetch(ctx context.Context) (*models.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: meta.SourceTypeHTTPCSV, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: meta.SourceTypeHTTPCSV, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.SourceUnavailableError{
			Source: meta.SourceTypeHTTPCSV,
			Err:    fmt.Errorf("远程返回状态码 %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBytes))
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: meta.SourceTypeHTTPCSV, Err: err}
	}

	table, err := ParseCSV(data)
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: meta.SourceTypeHTTPCSV, Err: err}
	}
	return table, nil
}
