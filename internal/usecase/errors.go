package usecase

import (
	"errors"
	"fmt"
	"strings"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 入力不正。違反は全部まとめて返す（最初の1件で打ち切らない）
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, ", ")
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

var (
	// カートトークンが復号できない。呼び出し側はトークンを破棄する
	ErrMalformedCartToken = errors.New("malformed cart token")

	// captureの結果がCOMPLETEDにならなかった。同じゲートウェイ注文では再試行不可
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// captureは成功したのに注文を記録できなかった。
	// 金は動いているので絶対に握りつぶさない。手動照合が必要
	ErrPaymentCapturedNotRecorded = errors.New("payment captured but order not recorded")
)
