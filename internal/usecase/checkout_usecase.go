package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/labstack/gommon/log"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

const maxDeliveryAddressLen = 200

// チェックアウトの進行役。
// 流れ: カート解決 → ゲートウェイ注文作成 → （購入者承認、システム外）→ capture → 永続化 → カート破棄。
// 永続状態を書くのはcapture成功後の1箇所だけ。
type CheckoutUsecase struct {
	carts      *CartUsecase
	sessions   repo.CheckoutSessionRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	gateway    payment.Gateway
	tx         repo.TransactionManager
	idGen      IDGenerator
	clock      Clock
	logger     *log.Logger
	currency   string
}

func NewCheckoutUsecase(
	carts *CartUsecase,
	sessions repo.CheckoutSessionRepository,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	gateway payment.Gateway,
	tx repo.TransactionManager,
	idGen IDGenerator,
	clock Clock,
	logger *log.Logger,
	currency string,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		carts:      carts,
		sessions:   sessions,
		orders:     orders,
		orderItems: orderItems,
		gateway:    gateway,
		tx:         tx,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
		currency:   currency,
	}
}

type BeginCheckoutInput struct {
	CartToken       string
	DeliveryAddress string
	PaymentMethod   string
}

type BeginCheckoutOutput struct {
	Session model.CheckoutSession `json:"session"`
	//カタログから消えていて落とした商品ID（黙って消さない）
	Dropped []int64 `json:"dropped,omitempty"`
}

// BeginCheckoutは入力を検証してセッションを作る。
// 違反は全部集めて一度に返す（最初の1件で打ち切らない）。
func (u *CheckoutUsecase) BeginCheckout(ctx context.Context, clientID int64, in BeginCheckoutInput) (BeginCheckoutOutput, error) {
	if clientID <= 0 {
		return BeginCheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var violations []string

	//カート解決。壊れたトークンは空カート扱い
	rc, err := u.carts.Resolve(ctx, in.CartToken)
	if err != nil && !errors.Is(err, ErrMalformedCartToken) {
		return BeginCheckoutOutput{}, err
	}
	if rc.IsEmpty() {
		violations = append(violations, "empty cart")
	}

	addr := strings.TrimSpace(in.DeliveryAddress)
	if addr == "" {
		violations = append(violations, "delivery address is required")
	} else if len(addr) > maxDeliveryAddressLen {
		violations = append(violations, "delivery address too long")
	}

	method := model.PaymentMethod(in.PaymentMethod)
	if !method.IsValid() {
		violations = append(violations, "invalid payment method")
	}

	if len(violations) > 0 {
		return BeginCheckoutOutput{}, &ValidationError{Violations: violations}
	}

	now := u.clock.Now()
	sess := model.CheckoutSession{
		ID:              u.idGen.NewID(),
		ClientID:        clientID,
		DeliveryAddress: addr,
		PaymentMethod:   method,
		Items:           rc.Items,
		Subtotal:        rc.Subtotal(),
		ShippingFee:     u.carts.ShippingFee(),
		Total:           u.carts.Total(rc),
		Status:          model.CheckoutStatusDraft,
		CreatedAt:       now,
	}

	if err := u.sessions.Save(ctx, sess); err != nil {
		return BeginCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	return BeginCheckoutOutput{Session: sess, Dropped: rc.Dropped}, nil
}

// CreateGatewayOrderはゲートウェイに注文を作らせてIDをセッションに保存する。
// ゲートウェイ失敗時は永続状態を一切変えず、セッションは再試行できるまま残す。
func (u *CheckoutUsecase) CreateGatewayOrder(ctx context.Context, clientID int64, sessionID string) (string, error) {
	sess, err := u.loadOwnedSession(ctx, clientID, sessionID)
	if err != nil {
		return "", err
	}

	if !sess.PaymentMethod.RequiresGateway() {
		return "", NewHTTPError(http.StatusBadRequest, "payment method does not use gateway")
	}

	//同じセッションでの再送は既存IDを返す（こちら側での重複排除）
	if sess.Status == model.CheckoutStatusAwaitingApproval && sess.GatewayOrderID != "" {
		return sess.GatewayOrderID, nil
	}

	if !model.CanTransitionTo(sess.Status, model.CheckoutStatusPendingGatewayOrder) {
		return "", NewHTTPError(http.StatusConflict, "invalid checkout state")
	}

	sess.Status = model.CheckoutStatusPendingGatewayOrder
	if err := u.sessions.Save(ctx, sess); err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	gatewayOrderID, err := u.gateway.CreateOrder(ctx, sess.Total, u.currency)
	if err != nil {
		//セッションは有効なまま戻す。保存失敗はTTLで消えるだけなので無視
		sess.Status = model.CheckoutStatusDraft
		_ = u.sessions.Save(ctx, sess)
		return "", err
	}

	sess.GatewayOrderID = gatewayOrderID
	sess.Status = model.CheckoutStatusAwaitingApproval
	if err := u.sessions.Save(ctx, sess); err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	return gatewayOrderID, nil
}

// CompleteCheckoutは承認済みのゲートウェイ注文をcaptureして注文を記録する。
// capture成功→保存失敗は金が動いた後なので、専用のエラーで必ず表面化させる。
func (u *CheckoutUsecase) CompleteCheckout(ctx context.Context, clientID int64, sessionID string) (OrderOutput, error) {
	sess, err := u.loadOwnedSession(ctx, clientID, sessionID)
	if err != nil {
		return OrderOutput{}, err
	}

	if !sess.PaymentMethod.RequiresGateway() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment method does not use gateway")
	}
	if sess.GatewayOrderID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "gateway order not created")
	}

	//冪等性: 同じゲートウェイ注文で既に記録済みなら同じ注文を返す
	existing, found, err := u.orders.FindByGatewayOrderID(ctx, sess.GatewayOrderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if found {
		_ = u.sessions.Delete(ctx, sess.ID)
		return u.toOutputWithItems(ctx, existing)
	}

	//セッションが空になっていないか確定前に見直す
	if len(sess.Items) == 0 {
		return OrderOutput{}, &ValidationError{Violations: []string{"empty cart"}}
	}

	if !model.CanTransitionTo(sess.Status, model.CheckoutStatusCapturing) {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "invalid checkout state")
	}
	sess.Status = model.CheckoutStatusCapturing
	if err := u.sessions.Save(ctx, sess); err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	res, err := u.gateway.CaptureOrder(ctx, sess.GatewayOrderID)
	if err != nil {
		//到達不能は決済失敗と断定できない（プロバイダー側で成立している可能性）。
		//承認待ちへ戻してcaptureを再実行できるようにする
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			u.logger.Warnf("capture outcome unknown, manual check may be needed: gateway_order_id=%s err=%v", sess.GatewayOrderID, err)
		}
		sess.Status = model.CheckoutStatusAwaitingApproval
		_ = u.sessions.Save(ctx, sess)
		return OrderOutput{}, err
	}

	if res.Status != payment.StatusCompleted {
		sess.Status = model.CheckoutStatusCaptureFailed
		_ = u.sessions.Save(ctx, sess)
		return OrderOutput{}, fmt.Errorf("%w: capture status %s", ErrPaymentNotCompleted, res.Status)
	}

	out, err := u.persistOrder(ctx, sess, model.PaymentStatusAccepted, &sess.GatewayOrderID, string(res.Raw))
	if err != nil {
		sess.Status = model.CheckoutStatusCapturedUnrecorded
		_ = u.sessions.Save(ctx, sess)
		u.logger.Errorf("payment captured but order not recorded, manual reconciliation required: gateway_order_id=%s client_id=%d err=%v",
			sess.GatewayOrderID, sess.ClientID, err)
		return OrderOutput{}, fmt.Errorf("%w: gateway order %s", ErrPaymentCapturedNotRecorded, sess.GatewayOrderID)
	}

	_ = u.sessions.Delete(ctx, sess.ID)
	return out, nil
}

// CompleteDirectCheckoutは代金引換の確定。ゲートウェイは一切呼ばない。
func (u *CheckoutUsecase) CompleteDirectCheckout(ctx context.Context, clientID int64, sessionID string) (OrderOutput, error) {
	sess, err := u.loadOwnedSession(ctx, clientID, sessionID)
	if err != nil {
		return OrderOutput{}, err
	}

	if sess.PaymentMethod.RequiresGateway() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment method requires capture")
	}
	if len(sess.Items) == 0 {
		return OrderOutput{}, &ValidationError{Violations: []string{"empty cart"}}
	}
	if !model.CanTransitionTo(sess.Status, model.CheckoutStatusRecorded) {
		return OrderOutput{}, NewHTTPError(http.StatusConflict, "invalid checkout state")
	}

	out, err := u.persistOrder(ctx, sess, model.PaymentStatusPending, nil, "")
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.sessions.Delete(ctx, sess.ID)
	return out, nil
}

// persistOrderはセッションのスナップショットから注文＋明細を1トランザクションで作る。
// gateway_order_idのunique制約に当たったら既存注文を読み直して返す（同時二重送信対策）。
func (u *CheckoutUsecase) persistOrder(ctx context.Context, sess model.CheckoutSession, payStatus model.PaymentStatus, gatewayOrderID *string, paymentDetails string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		order := model.Order{
			ClientID:        sess.ClientID,
			DeliveryAddress: sess.DeliveryAddress,
			PaymentMethod:   sess.PaymentMethod,
			PaymentStatus:   payStatus,
			Status:          model.OrderStatusCreated,
			Subtotal:        sess.Subtotal,
			ShippingFee:     sess.ShippingFee,
			TotalPrice:      sess.Total,
			GatewayOrderID:  gatewayOrderID,
			PaymentDetails:  paymentDetails,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		items := make([]model.OrderItem, 0, len(sess.Items))
		for _, line := range sess.Items {
			items = append(items, model.OrderItem{
				ProductID:           line.ProductID,
				ProductNameSnapshot: line.Name,
				UnitPriceSnapshot:   line.UnitPrice,
				Quantity:            line.Quantity,
				CreatedAt:           now,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return err
		}

		order.ID = orderID
		out = toOrderOutput(order, items)
		return nil
	})

	if err != nil {
		//unique制約の競合（同時に同じゲートウェイ注文が入った等）。
		//中断されたTxの中ではSELECTも通らないので、外で読み直して同じ結果を返す
		if gatewayOrderID != nil {
			ex, found, err2 := u.orders.FindByGatewayOrderID(ctx, *gatewayOrderID)
			if err2 == nil && found {
				return u.toOutputWithItems(ctx, ex)
			}
		}
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *CheckoutUsecase) loadOwnedSession(ctx context.Context, clientID int64, sessionID string) (model.CheckoutSession, error) {
	if clientID <= 0 {
		return model.CheckoutSession{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(sessionID) == "" {
		return model.CheckoutSession{}, NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	sess, err := u.sessions.FindByID(ctx, sessionID)
	if err == repo.ErrNotFound {
		return model.CheckoutSession{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.CheckoutSession{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	//他人のセッションは「存在しない扱い」にする
	if sess.ClientID != clientID {
		return model.CheckoutSession{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return sess, nil
}

func (u *CheckoutUsecase) toOutputWithItems(ctx context.Context, o model.Order) (OrderOutput, error) {
	items, err := u.orderItems.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(o, items), nil
}
