package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"app/internal/payment"

	"github.com/shopspring/decimal"
)

// レスポンスは1MBまでしか読まない
const maxResponseBytes = 1 << 20

// トークンは期限の30秒前に失効扱いにする
const tokenExpiryMargin = 30 * time.Second

// PayPal REST APIのクライアント。
// アクセストークンは期限までキャッシュし、更新はmutexで直列化する。
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
	now      func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(baseURL string, clientID string, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// POST /v1/oauth2/token（basic認証、form）。
// 失敗は全てErrGatewayAuth（認証情報不正と到達不能を呼び出し側は区別しない）。
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	//有効なキャッシュがあれば再認証しない
	if c.token != "" && c.now().Add(tokenExpiryMargin).Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayAuth, err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayAuth, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token endpoint returned %d", payment.ErrGatewayAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: missing access_token", payment.ErrGatewayAuth)
	}

	c.token = tr.AccessToken
	c.tokenExp = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.token, nil
}

type amountDTO struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitDTO struct {
	Amount amountDTO `json:"amount"`
}

type createOrderRequest struct {
	Intent        string            `json:"intent"`
	PurchaseUnits []purchaseUnitDTO `json:"purchase_units"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// POST /v2/checkout/orders。
// ゲートウェイ側は同額の再送を重複排除しないので、呼び出し側がセッション単位で管理する。
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	reqBody := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitDTO{
			{Amount: amountDTO{CurrencyCode: currency, Value: amount.StringFixed(2)}},
		},
	}

	body, status, err := c.postJSON(ctx, "/v2/checkout/orders", token, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: create order returned %d", payment.ErrGatewayUnavailable, status)
	}

	var cr createOrderResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayProtocol, err)
	}
	if cr.ID == "" {
		return "", fmt.Errorf("%w: create order response missing id", payment.ErrGatewayProtocol)
	}
	return cr.ID, nil
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type providerError struct {
	Name    string `json:"name"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

// POST /v2/checkout/orders/{id}/capture。
// capture済み注文への再captureはプロバイダーが422 ORDER_ALREADY_CAPTUREDを返すので、
// COMPLETEDの成功として扱う（呼び出し側の冪等性を保つ）。
func (c *Client) CaptureOrder(ctx context.Context, gatewayOrderID string) (payment.CaptureResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return payment.CaptureResult{}, err
	}

	path := "/v2/checkout/orders/" + url.PathEscape(gatewayOrderID) + "/capture"
	body, status, err := c.postJSON(ctx, path, token, struct{}{})
	if err != nil {
		return payment.CaptureResult{}, err
	}

	if status == http.StatusUnprocessableEntity {
		var pe providerError
		if json.Unmarshal(body, &pe) == nil {
			for _, d := range pe.Details {
				if d.Issue == "ORDER_ALREADY_CAPTURED" {
					return payment.CaptureResult{Status: payment.StatusCompleted, Raw: body}, nil
				}
			}
		}
	}
	if status < 200 || status >= 300 {
		return payment.CaptureResult{}, fmt.Errorf("%w: capture returned %d", payment.ErrGatewayUnavailable, status)
	}

	var cr captureResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return payment.CaptureResult{}, fmt.Errorf("%w: %v", payment.ErrGatewayProtocol, err)
	}
	if cr.Status == "" {
		return payment.CaptureResult{}, fmt.Errorf("%w: capture response missing status", payment.ErrGatewayProtocol)
	}
	return payment.CaptureResult{Status: cr.Status, Raw: body}, nil
}

// bearer付きでJSONをPOSTして生ボディとステータスを返す
func (c *Client) postJSON(ctx context.Context, path string, token string, payloadJSON any) ([]byte, int, error) {
	buf, err := json.Marshal(payloadJSON)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", payment.ErrGatewayProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		//タイムアウト含む。決済が成立していない保証はない
		return nil, 0, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	return body, resp.StatusCode, nil
}
