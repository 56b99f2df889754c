package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
)

type CartLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type Cart struct {
	Items    []CartLine `json:"items"`
	Dropped  []int64    `json:"dropped"`
	Subtotal string     `json:"subtotal"`
	Total    string     `json:"total"`
}

func mustDecodeCart(t *testing.T, body []byte) Cart {
	t.Helper()
	var v Cart
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json.Unmarshal(Cart) failed: %v body=%s", err, string(body))
	}
	return v
}

func Test_Cart_EmptyByDefault(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	resp, body := c.doJSON(ctx, t, http.MethodGet, "/cart", "", nil)
	requireStatus(t, resp, http.StatusOK, body)

	cart := mustDecodeCart(t, body)
	if len(cart.Items) != 0 {
		t.Fatalf("want empty cart, got %d items", len(cart.Items))
	}
	if cart.Subtotal != "0.00" {
		t.Fatalf("want subtotal 0.00, got %q", cart.Subtotal)
	}
}

func Test_Cart_AddInvalidProduct(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	b, _ := json.Marshal(map[string]int64{"product_id": 0, "quantity": 1})
	resp, body := c.doJSON(ctx, t, http.MethodPost, "/cart/items", "", b)
	requireStatus(t, resp, http.StatusBadRequest, body)
}

func Test_Cart_BrokenCookie_ClearedWith400(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	//壊れたトークンをcookieに仕込む
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		t.Fatalf("url.Parse failed: %v", err)
	}
	c.HTTP.Jar.SetCookies(u, []*http.Cookie{{Name: "cart", Value: "%%%broken%%%"}})

	resp, body := c.doJSON(ctx, t, http.MethodGet, "/cart", "", nil)
	requireStatus(t, resp, http.StatusBadRequest, body)

	e := mustDecodeError(t, body)
	if e.Error != "invalid cart" {
		t.Fatalf("unexpected error message: %q", e.Error)
	}

	//cookieは破棄されていて次は空カートに戻る
	resp, body = c.doJSON(ctx, t, http.MethodGet, "/cart", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
}

func Test_Cart_Clear(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	resp, body := c.doJSON(ctx, t, http.MethodDelete, "/cart", "", nil)
	requireStatus(t, resp, http.StatusOK, body)

	s := mustDecodeSuccess(t, body)
	if s.Message != "cleared" {
		t.Fatalf("unexpected message: %q", s.Message)
	}
}
