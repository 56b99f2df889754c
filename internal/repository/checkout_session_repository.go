package repository

import (
	"context"

	"app/internal/domain/model"
)

// チェックアウトセッションの一時保存の約束。
// TTL付きの短命ストア（redis）。見つからない場合はErrNotFound。
type CheckoutSessionRepository interface {
	Save(ctx context.Context, s model.CheckoutSession) error
	FindByID(ctx context.Context, id string) (model.CheckoutSession, error)
	Delete(ctx context.Context, id string) error
}
