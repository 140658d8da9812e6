/*
 * @module service/source/csv
 * @description 分号分隔CSV解析与上传文件数据源，兼容Windows-1252编码的ERP导出文件
 * @architecture 分层架构 - 数据源实现层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 字节流 -> 编码识别转换 -> CSV解析 -> 原始表
 * @rules 首行为列名；空表视为数据源错误；单元格保持字符串，定型交给规范化层
 * @dependencies golang.org/x/text/encoding/charmap, golang.org/x/text/transform
 * @refs service/ingestion/normalizer.go
 */

package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// utf8BOM UTF-8字节序标记，部分导出工具会在文件头写入
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV 解析分号分隔的CSV字节流为原始表
// 非UTF-8内容按Windows-1252转码（巴西工厂ERP导出的常见编码）
func ParseCSV(data []byte) (*models.RawTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("编码转换失败: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CSV内容为空")
		}
		return nil, fmt.Errorf("读取CSV表头失败: %w", err)
	}

	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = strings.TrimSpace(c)
	}

	table := &models.RawTable{Columns: columns}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 个别坏行不终止整表解析
			continue
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// CSVSource 上传CSV文件数据源，持有最近一次上传的文件内容
type CSVSource struct {
	mu       sync.RWMutex
	data     []byte
	filename string
}

// NewCSVSource 创建上传CSV数据源
func NewCSVSource() *CSVSource {
	return &CSVSource{}
}

// Type 数据源类型标识
func (s *CSVSource) Type() string {
	return meta.SourceTypeCSVUpload
}

// SetData 替换文件内容，由上传接口调用
func (s *CSVSource) SetData(filename string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filename = filename
	s.data = data
}

// Filename 最近上传的文件名
func (s *CSVSource) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filename
}

// Fetch 解析当前持有的文件内容
func (s *CSVSource) Fetch(_ context.Context) (*models.RawTable, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if len(data) == 0 {
		return nil, &models.SourceUnavailableError{
			Source: meta.SourceTypeCSVUpload,
			Err:    errors.New("尚未上传文件"),
		}
	}

	table, err := ParseCSV(data)
	if err != nil {
		return nil, &models.SourceUnavailableError{Source: meta.SourceTypeCSVUpload, Err: err}
	}
	return table, nil
}
