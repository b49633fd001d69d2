package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusOf 根据错误码映射 HTTP 状态码，未知错误返回 500
func StatusOf(err error) int {
	def, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.InvalidRequest.Code, errors.InvalidParticipant.Code,
		errors.SlotInvalid.Code, errors.DayInvalid.Code,
		errors.ReviewStatusInvalid.Code:
		return http.StatusBadRequest // 400
	case errors.Unauthorized.Code, errors.InvalidCredentials.Code,
		errors.RefreshTokenInvalid.Code:
		return http.StatusUnauthorized // 401
	case errors.PermissionDenied.Code:
		return http.StatusForbidden // 403
	case errors.ParticipantNotFound.Code, errors.SessionNotFound.Code,
		errors.ArtifactNotFound.Code:
		return http.StatusNotFound // 404
	case errors.EmailTaken.Code, errors.ProgressBusy.Code,
		errors.ArtifactReviewed.Code:
		return http.StatusConflict // 409
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests // 429
	case errors.OutsideWindow.Code:
		return http.StatusUnprocessableEntity // 422
	case errors.StoreUnavailable.Code:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

func detailOf(err error) ErrorDetail {
	if def, ok := errors.As(err); ok {
		return ErrorDetail{Code: def.Code, Message: def.Message}
	}
	// 内部错误不把原始信息返回给客户端
	return ErrorDetail{Code: "INTERNAL_ERROR", Message: "Internal server error"}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(StatusOf(err), ErrorResponse{Error: detailOf(err)})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	detail := detailOf(err)
	detail.Details = details
	c.JSON(StatusOf(err), ErrorResponse{Error: detail})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// Created 返回 201
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
