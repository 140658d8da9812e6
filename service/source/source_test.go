/*
 * @module service/source/source_test
 * @description 数据源单元测试：CSV解析、编码兼容、远程拉取与推送快照
 * @architecture 测试层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 构造输入 -> Fetch -> 断言
 * @rules 覆盖BOM、Windows-1252编码、非2xx响应与未初始化数据源
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodboard-service/service/models"
)

const sampleCSV = "LINHA;DESCRPROD;SEQ;QUARTA;QTDAPONTADA;TOTALSEMANA;SALDOSEMANA\n" +
	"LINHA 01;Smartphone Galaxy X;1;30;80;100;20\n" +
	"LINHA 01;Tablet Pro 12;2;10;20;50;30\n"

func TestParseCSV(t *testing.T) {
	table, err := ParseCSV([]byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"LINHA", "DESCRPROD", "SEQ", "QUARTA", "QTDAPONTADA", "TOTALSEMANA", "SALDOSEMANA"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "LINHA 01", table.Rows[0]["LINHA"])
	assert.Equal(t, "80", table.Rows[0]["QTDAPONTADA"])
	assert.Equal(t, "Tablet Pro 12", table.Rows[1]["DESCRPROD"])
}

func TestParseCSVWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	table, err := ParseCSV(data)
	require.NoError(t, err)
	assert.Equal(t, "LINHA", table.Columns[0])
}

func TestParseCSVWindows1252(t *testing.T) {
	// "Produção" 的 Windows-1252 编码，ç=0xE7 ã=0xE3
	raw := []byte("LINHA;DESCRPROD;QTDAPONTADA;TOTALSEMANA;SALDOSEMANA\n" +
		"LINHA 01;Produ\xe7\xe3o X;10;20;10\n")
	table, err := ParseCSV(raw)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Produção X", table.Rows[0]["DESCRPROD"])
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV([]byte(""))
	require.Error(t, err)
}

func TestParseCSVShortRow(t *testing.T) {
	data := "LINHA;DESCRPROD;QTDAPONTADA\nLINHA 01;Produto A\n"
	table, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	// 缺失的尾列不出现在行中，规范化层按空值处理
	_, ok := table.Rows[0]["QTDAPONTADA"]
	assert.False(t, ok)
}

func TestCSVSourceEmpty(t *testing.T) {
	src := NewCSVSource()
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSourceUnavailable(err))
}

func TestCSVSourceFetch(t *testing.T) {
	src := NewCSVSource()
	src.SetData("semana.csv", []byte(sampleCSV))

	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, "semana.csv", src.Filename())
}

func TestHTTPSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, 0)
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestHTTPSourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, 0)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSourceUnavailable(err))
}

func TestHTTPSourceUnreachable(t *testing.T) {
	src := NewHTTPSource("http://127.0.0.1:1/nada.csv", 0)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSourceUnavailable(err))
}

func TestPushSource(t *testing.T) {
	src := NewPushSource()

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSourceUnavailable(err))
	assert.True(t, src.ReceivedAt().IsZero())

	table := &models.RawTable{
		Columns: []string{"LINHA"},
		Rows:    []map[string]interface{}{{"LINHA": "L1"}},
	}
	src.Receive(table)

	got, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.False(t, src.ReceivedAt().IsZero())

	// 新推送整体替换旧快照
	src.Receive(&models.RawTable{Columns: []string{"LINHA"}})
	got, err = src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
}
