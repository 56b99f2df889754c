package handler

import (
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// カートはクライアントが持つcookieトークン。サーバー側に状態はない
const cartCookieName = "cart"

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CartResponse struct {
	Items    []model.CartLine `json:"items"`
	Dropped  []int64          `json:"dropped,omitempty"`
	Subtotal string           `json:"subtotal"`
	Total    string           `json:"total"`
}

// カートは未ログインでも使える
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/cart", h.getCart)
	e.POST("/cart/items", h.addItem)
	e.DELETE("/cart", h.clearCart)
}

func (h *CartHandler) getCart(c echo.Context) error {
	token := readCartCookie(c)

	rc, err := h.uc.Resolve(c.Request().Context(), token)
	if err != nil {
		//壊れたトークンはwriteErrorがcookieを消す
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CartResponse{
		Items:    rc.Items,
		Dropped:  rc.Dropped,
		Subtotal: rc.Subtotal().StringFixed(2),
		Total:    h.uc.Total(rc).StringFixed(2),
	})
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	token := readCartCookie(c)

	newToken, err := h.uc.AddItem(c.Request().Context(), token, req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	setCartCookie(c, newToken)

	rc, err := h.uc.Resolve(c.Request().Context(), newToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CartResponse{
		Items:    rc.Items,
		Dropped:  rc.Dropped,
		Subtotal: rc.Subtotal().StringFixed(2),
		Total:    h.uc.Total(rc).StringFixed(2),
	})
}

func (h *CartHandler) clearCart(c echo.Context) error {
	clearCartCookie(c)
	return c.JSON(http.StatusOK, SuccessResponse{Message: "cleared"})
}

func readCartCookie(c echo.Context) string {
	ck, err := c.Cookie(cartCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

func setCartCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60 * 60 * 24 * 30,
	})
}

func clearCartCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
