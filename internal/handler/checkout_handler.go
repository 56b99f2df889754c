package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// チェックアウトフローのHTTP。
// begin → 決済注文作成 → （購入者がプロバイダー側で承認）→ capture の順で呼ばれる
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type BeginCheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
}

type GatewayOrderResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.begin)
	g.POST("/:id/payment", h.createGatewayOrder)
	g.POST("/:id/capture", h.capture)
	g.POST("/:id/confirm", h.confirm)
}

func (h *CheckoutHandler) begin(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req BeginCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.BeginCheckout(c.Request().Context(), clientID, usecase.BeginCheckoutInput{
		CartToken:       readCartCookie(c),
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) createGatewayOrder(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	gatewayOrderID, err := h.uc.CreateGatewayOrder(c.Request().Context(), clientID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, GatewayOrderResponse{GatewayOrderID: gatewayOrderID})
}

func (h *CheckoutHandler) capture(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.CompleteCheckout(c.Request().Context(), clientID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	//注文を記録できたのでカートは破棄
	clearCartCookie(c)
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) confirm(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.CompleteDirectCheckout(c.Request().Context(), clientID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	clearCartCookie(c)
	return c.JSON(http.StatusOK, out)
}
