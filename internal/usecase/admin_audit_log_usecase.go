package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 管理者操作の監査ログを閲覧する。書き込みは各usecase側で行う。
type AdminAuditLogUsecase struct {
	audits repo.AuditLogRepository
}

func NewAdminAuditLogUsecase(audits repo.AuditLogRepository) *AdminAuditLogUsecase {
	return &AdminAuditLogUsecase{audits: audits}
}

type AdminListAuditLogsInput struct {
	ActorUserID *int64
	Action      string
	ResourceID  *int64
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// 監査ログ一覧（新しい順）
func (u *AdminAuditLogUsecase) List(ctx context.Context, in AdminListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit == 0 {
		in.Limit = 50
	}
	if in.Limit < 1 || in.Limit > 200 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	filter := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		CreatedFrom: in.From,
		CreatedTo:   in.To,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}

	if action := strings.TrimSpace(in.Action); action != "" {
		a := model.AuditAction(action)
		if !a.IsValid() {
			return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		filter.Action = &a
	}

	if in.ResourceID != nil {
		// 今のところ対象は注文だけ
		resourceType := model.AuditResourceOrder
		filter.ResourceType = &resourceType
		filter.ResourceID = in.ResourceID
	}

	logs, err := u.audits.List(ctx, filter)
	if err != nil {
		return []model.AuditLog{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
