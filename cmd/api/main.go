package main

import (
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/paypal"
	infraRepo "app/internal/infra/repository"
	"app/internal/infra/session"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	auditLogRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//チェックアウトセッション（redis、TTL付き）
	sessionStore := session.NewRedisStore(cfg.RedisAddr, cfg.CheckoutSessionTTL)

	//決済ゲートウェイ
	gateway := paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret, cfg.GatewayTimeout)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	checkoutLogger := log.New("checkout")

	//Usecase生成
	cartUC := usecase.NewCartUsecase(productRepo, cfg.ShippingFee)
	checkoutUC := usecase.NewCheckoutUsecase(
		cartUC, sessionStore, orderRepo, orderItemRepo,
		gateway, txManager, idGen, clock, checkoutLogger, cfg.Currency,
	)
	orderUC := usecase.NewOrderUsecase(orderRepo, orderItemRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, clock)
	auditLogUC := usecase.NewAdminAuditLogUsecase(auditLogRepo)
	productUC := usecase.NewProductUsecase(productRepo)

	//Handler生成
	handlers := server.Handlers{
		Product:  handler.NewProductHandler(productUC),
		Cart:     handler.NewCartHandler(cartUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Order:    handler.NewOrderHandler(orderUC),
		Admin:    handler.NewAdminOrderHandler(adminOrderUC),
		Audit:    handler.NewAdminAuditLogHandler(auditLogUC),
	}

	//Server起動
	e := server.New(cfg, handlers)

	addr := ":" + cfg.Port
	if cfg.Port != "" && cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	if err := server.Start(e, addr); err != nil {
		panic(err)
	}
}
