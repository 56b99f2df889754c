package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート

	RedisAddr          string        // チェックアウトセッション保存先
	CheckoutSessionTTL time.Duration // セッションの生存時間

	JWTSecret string // JWT検証シークレット（発行は外部IDプロバイダー）

	PayPalBaseURL  string        // 決済ゲートウェイAPIのベースURL
	PayPalClientID string        // ゲートウェイのclient id
	PayPalSecret   string        // ゲートウェイのclient secret
	GatewayTimeout time.Duration // ゲートウェイHTTP呼び出しの上限時間

	Currency    string          // 通貨コード（USD）
	ShippingFee decimal.Decimal // 固定配送料。実行時に変更しない
}

// Loadは環境変数から読み込む。秘密系は必須、チューニング系はデフォルトあり。
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		PayPalBaseURL:  getenv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:   os.Getenv("PAYPAL_SECRET"),

		Currency: getenv("CURRENCY", "USD"),
	}

	//必須チェック
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PayPalClientID == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_ID is required")
	}
	if cfg.PayPalSecret == "" {
		return Config{}, fmt.Errorf("PAYPAL_SECRET is required")
	}

	fee, err := decimal.NewFromString(getenv("SHIPPING_FEE", "4.99"))
	if err != nil || fee.IsNegative() {
		return Config{}, fmt.Errorf("SHIPPING_FEE must be a non-negative decimal")
	}
	cfg.ShippingFee = fee

	ttlSec, err := atoiDefault("CHECKOUT_SESSION_TTL_SECONDS", 1800)
	if err != nil {
		return Config{}, err
	}
	cfg.CheckoutSessionTTL = time.Duration(ttlSec) * time.Second

	timeoutSec, err := atoiDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout = time.Duration(timeoutSec) * time.Second

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
