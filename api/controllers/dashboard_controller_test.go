/*
 * @module api/controllers/dashboard_controller_test
 * @description 看板与数据接入控制器单元测试：上传、推送、视图查询、过滤配置与数据源切换
 * @architecture 测试层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 构造HTTP请求 -> 控制器 -> 断言响应体
 * @rules 每个用例重建全局看板服务，避免用例间状态串扰
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodboard-service/service"
	"prodboard-service/service/dashboard"
	"prodboard-service/service/source"
)

const sampleCSV = "LINHA;DESCRPROD;SEQ;QUARTA;QTDAPONTADA;TOTALSEMANA;SALDOSEMANA\n" +
	"LINHA 01;Smartphone Galaxy X;1;30;80;100;20\n" +
	"LINHA 02;Notebook Ultra;1;20;95;100;5\n"

// resetGlobals 重建全局数据源与看板服务，无持久化、无缓存
func resetGlobals() {
	service.GlobalCSVSource = source.NewCSVSource()
	service.GlobalPushSource = source.NewPushSource()
	service.GlobalDashboardService = dashboard.NewDashboardService(
		nil, service.GlobalCSVSource, nil, nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetViewNoData(t *testing.T) {
	resetGlobals()
	controller := NewDashboardController()

	rec := httptest.NewRecorder()
	controller.GetView(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	body := decodeBody(t, rec)
	assert.EqualValues(t, http.StatusNotFound, body["status"])
}

func TestPushThenGetView(t *testing.T) {
	resetGlobals()
	ingest := NewIngestController()
	board := NewDashboardController()

	payload := `{
		"columns": ["LINHA", "DESCRPROD", "QTDAPONTADA", "TOTALSEMANA", "SALDOSEMANA"],
		"rows": [
			{"LINHA": "LINHA 01", "DESCRPROD": "Produto A", "QTDAPONTADA": 80, "TOTALSEMANA": 100, "SALDOSEMANA": 20}
		]
	}`
	rec := httptest.NewRecorder()
	ingest.Push(rec, httptest.NewRequest(http.MethodPost, "/ingest/push", strings.NewReader(payload)))

	body := decodeBody(t, rec)
	require.EqualValues(t, 0, body["status"], "msg=%v", body["msg"])
	require.NotNil(t, body["data"])

	rec = httptest.NewRecorder()
	board.GetView(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	body = decodeBody(t, rec)
	assert.EqualValues(t, 0, body["status"])
	view := body["data"].(map[string]interface{})
	assert.Len(t, view["lines"], 1)
}

func TestPushMissingColumns(t *testing.T) {
	resetGlobals()
	ingest := NewIngestController()

	rec := httptest.NewRecorder()
	ingest.Push(rec, httptest.NewRequest(http.MethodPost, "/ingest/push", strings.NewReader(`{"rows": []}`)))

	body := decodeBody(t, rec)
	assert.EqualValues(t, http.StatusBadRequest, body["status"])
}

func TestUploadCSV(t *testing.T) {
	resetGlobals()
	ingest := NewIngestController()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "semana.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	ingest.Upload(rec, req)

	body := decodeBody(t, rec)
	require.EqualValues(t, 0, body["status"], "msg=%v", body["msg"])
	view := body["data"].(map[string]interface{})
	assert.Len(t, view["lines"], 2)
}

func TestUploadSchemaErrorReported(t *testing.T) {
	resetGlobals()
	ingest := NewIngestController()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "ruim.csv")
	part.Write([]byte("LINHA;DESCRPROD\nLINHA 01;Produto A\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/ingest/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	ingest.Upload(rec, req)

	body := decodeBody(t, rec)
	assert.EqualValues(t, http.StatusUnprocessableEntity, body["status"])
	assert.Contains(t, body["msg"], "采集失败")
}

func TestSetSourceValidation(t *testing.T) {
	resetGlobals()
	ingest := NewIngestController()

	rec := httptest.NewRecorder()
	ingest.SetSource(rec, httptest.NewRequest(http.MethodPost, "/ingest/source", strings.NewReader(`{"type":"desconhecido"}`)))
	assert.EqualValues(t, http.StatusBadRequest, decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	ingest.SetSource(rec, httptest.NewRequest(http.MethodPost, "/ingest/source", strings.NewReader(`{"type":"http_csv"}`)))
	assert.EqualValues(t, http.StatusBadRequest, decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	ingest.SetSource(rec, httptest.NewRequest(http.MethodPost, "/ingest/source", strings.NewReader(`{"type":"push"}`)))
	body := decodeBody(t, rec)
	assert.EqualValues(t, 0, body["status"])
	assert.Equal(t, "push", service.GlobalDashboardService.SourceType())
}

func TestFiltersRoundTrip(t *testing.T) {
	resetGlobals()
	board := NewDashboardController()

	payload := `{"show_on_target": true, "show_in_progress": false, "show_attention": false, "search": "linha"}`
	rec := httptest.NewRecorder()
	board.UpdateFilters(rec, httptest.NewRequest(http.MethodPut, "/dashboard/filters", strings.NewReader(payload)))
	require.EqualValues(t, 0, decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	board.GetFilters(rec, httptest.NewRequest(http.MethodGet, "/dashboard/filters", nil))

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["show_on_target"])
	assert.Equal(t, false, data["show_in_progress"])
	assert.Equal(t, "linha", data["search"])
}

func TestUpdateInterval(t *testing.T) {
	resetGlobals()
	board := NewDashboardController()

	rec := httptest.NewRecorder()
	board.UpdateInterval(rec, httptest.NewRequest(http.MethodPut, "/dashboard/interval", strings.NewReader(`{"seconds": 30}`)))
	assert.EqualValues(t, 0, decodeBody(t, rec)["status"])
	assert.Equal(t, float64(30), service.GlobalScheduler.Interval().Seconds())

	rec = httptest.NewRecorder()
	board.UpdateInterval(rec, httptest.NewRequest(http.MethodPut, "/dashboard/interval", strings.NewReader(`{"seconds": 0}`)))
	assert.EqualValues(t, http.StatusBadRequest, decodeBody(t, rec)["status"])

	// 非法Cron表达式被拒绝，间隔不被应用
	rec = httptest.NewRecorder()
	board.UpdateInterval(rec, httptest.NewRequest(http.MethodPut, "/dashboard/interval", strings.NewReader(`{"seconds": 45, "cron": "isso não é cron"}`)))
	assert.EqualValues(t, http.StatusBadRequest, decodeBody(t, rec)["status"])
	assert.Equal(t, float64(30), service.GlobalScheduler.Interval().Seconds())
}

func TestGetRunsWithoutDatabase(t *testing.T) {
	resetGlobals()
	board := NewDashboardController()

	rec := httptest.NewRecorder()
	board.GetRuns(rec, httptest.NewRequest(http.MethodGet, "/dashboard/runs?limit=10", nil))
	assert.EqualValues(t, 0, decodeBody(t, rec)["status"])
}
