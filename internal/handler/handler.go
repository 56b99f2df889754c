package handler

import (
	"net/http"

	"app/internal/middleware"
	"app/internal/payment"
	"app/internal/usecase"

	"errors"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// 検証違反は全部まとめて返す
type ValidationErrorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if ve, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:      "validation failed",
			Violations: ve.Violations,
		})
	}

	//ゲートウェイ系はユーザーには「後で再試行」としか言えない
	if errors.Is(err, payment.ErrGatewayAuth) ||
		errors.Is(err, payment.ErrGatewayUnavailable) ||
		errors.Is(err, payment.ErrGatewayProtocol) {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment provider unavailable, please try again"})
	}

	if errors.Is(err, usecase.ErrPaymentNotCompleted) {
		return c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: "payment not completed"})
	}

	//金は動いたのに記録できていない。一般の500と混ぜない
	if errors.Is(err, usecase.ErrPaymentCapturedNotRecorded) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "payment_captured_not_recorded"})
	}

	if errors.Is(err, usecase.ErrMalformedCartToken) {
		clearCartCookie(c)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cart"})
	}

	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// contextのuser_idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	raw := c.Get(middleware.CtxUserIDKey)
	id, ok := raw.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
