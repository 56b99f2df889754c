package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 支払い方法
type PaymentMethod string

const (
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// 決済ゲートウェイを経由する方法かどうか
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodPayPal || m == PaymentMethodCreditCard
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodPayPal, PaymentMethodCreditCard, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusAccepted PaymentStatus = "ACCEPTED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusAccepted, PaymentStatusRejected, PaymentStatusRefunded:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "CREATED"
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPending, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 注文はcapture成功時に一度だけ作成される。
// GatewayOrderIDのuniqueIndexが冪等性キー（同じ決済で2行作らない）。
// 削除操作は存在しない。
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID        int64           `gorm:"not null;index" json:"client_id"`
	DeliveryAddress string          `gorm:"type:varchar(200);not null" json:"delivery_address"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingFee     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_fee"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	GatewayOrderID  *string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	PaymentDetails  string          `gorm:"type:text" json:"-"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
