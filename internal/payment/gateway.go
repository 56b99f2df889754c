package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// 認証情報が不正、またはトークン取得先に到達できない
	ErrGatewayAuth = errors.New("gateway auth failed")
	// 非2xx・ネットワーク障害・タイムアウト。
	// タイムアウトは決済失敗ではない（プロバイダー側で成立している可能性がある）
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// レスポンスの形が契約と違う（必須フィールド欠落など）
	ErrGatewayProtocol = errors.New("gateway protocol error")
)

// captureが成功扱いになるステータス
const StatusCompleted = "COMPLETED"

// capture結果。Rawは監査用にそのまま保存する
type CaptureResult struct {
	Status string
	Raw    []byte
}

// 外部決済プロバイダーの注文作成/captureの約束。
// 本システムはゲートウェイ注文の状態を遷移させない（観測するだけ）。
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
	CaptureOrder(ctx context.Context, gatewayOrderID string) (CaptureResult, error)
}
