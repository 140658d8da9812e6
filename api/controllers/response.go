/*
 * @module api/controllers/response
 * @description 统一API响应结构定义
 * @architecture RESTful API架构
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 无状态响应封装
 * @rules 所有接口统一返回 {status, msg, data} 结构
 * @refs api/routes.go
 */

package controllers

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}
