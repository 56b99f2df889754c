package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// チェックアウト試行の状態。
type CheckoutStatus string

const (
	// 入力検証済み。まだ外部への副作用なし
	CheckoutStatusDraft CheckoutStatus = "DRAFT"
	// ゲートウェイに注文作成を依頼中
	CheckoutStatusPendingGatewayOrder CheckoutStatus = "PENDING_GATEWAY_ORDER"
	// ゲートウェイ注文あり。購入者の承認待ち（承認は本システム外）
	CheckoutStatusAwaitingApproval CheckoutStatus = "AWAITING_APPROVAL"
	// capture実行中
	CheckoutStatusCapturing CheckoutStatus = "CAPTURING"
	// 注文を永続化済み（正常終了）
	CheckoutStatusRecorded CheckoutStatus = "RECORDED"
	// captureがCOMPLETEDにならなかった。ゲートウェイ注文の作り直しからやり直せる
	CheckoutStatusCaptureFailed CheckoutStatus = "CAPTURE_FAILED"
	// captureは成功したのに注文を保存できなかった。オペレーター対応が必要
	CheckoutStatusCapturedUnrecorded CheckoutStatus = "CAPTURED_UNRECORDED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRecorded || s == CheckoutStatusCapturedUnrecorded
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// 許可された遷移だけを通す
var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusDraft: {CheckoutStatusPendingGatewayOrder, CheckoutStatusRecorded, CheckoutStatusCapturedUnrecorded},
	CheckoutStatusPendingGatewayOrder: {CheckoutStatusAwaitingApproval, CheckoutStatusDraft},
	CheckoutStatusAwaitingApproval:    {CheckoutStatusCapturing},
	CheckoutStatusCapturing: {
		CheckoutStatusRecorded,
		CheckoutStatusCaptureFailed,
		CheckoutStatusCapturedUnrecorded,
		// ゲートウェイ到達不能は決済失敗ではないので承認待ちへ戻す
		CheckoutStatusAwaitingApproval,
	},
	CheckoutStatusCaptureFailed: {CheckoutStatusPendingGatewayOrder},
}

func CanTransitionTo(from CheckoutStatus, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 解決済みカートの1行。価格は常にカタログから読み直した値
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

// チェックアウト試行ごとの一時データ。
// redisにTTL付きで保持し、完了か放棄で消える。DBには入れない。
type CheckoutSession struct {
	ID              string          `json:"id"`
	ClientID        int64           `json:"client_id"`
	DeliveryAddress string          `json:"delivery_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Items           []CartLine      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Total           decimal.Decimal `json:"total"`
	Status          CheckoutStatus  `json:"status"`
	GatewayOrderID  string          `json:"gateway_order_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
