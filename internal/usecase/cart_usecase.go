package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// カートはクライアント側が持つトークン（base64(JSON)のproductId→quantity）。
// サーバーはカート状態を保持しない。価格は毎回カタログから読み直す。
type CartUsecase struct {
	productRepo repo.ProductRepository
	shippingFee decimal.Decimal
}

func NewCartUsecase(productRepo repo.ProductRepository, shippingFee decimal.Decimal) *CartUsecase {
	return &CartUsecase{
		productRepo: productRepo,
		shippingFee: shippingFee,
	}
}

// トークンを復号する。空文字は空カート扱い。
// 壊れたトークンと0以下の数量はErrMalformedCartToken。
func DecodeCartToken(token string) (map[int64]int64, error) {
	if token == "" {
		return map[int64]int64{}, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformedCartToken
	}

	var lines map[int64]int64
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, ErrMalformedCartToken
	}
	//JSONのnullはエラーなしでnil mapになる。mapでないトークンは壊れた扱い
	if lines == nil {
		return nil, ErrMalformedCartToken
	}

	for id, qty := range lines {
		if id <= 0 || qty <= 0 {
			return nil, ErrMalformedCartToken
		}
	}
	return lines, nil
}

func EncodeCartToken(lines map[int64]int64) (string, error) {
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// トークンをカタログ価格で解決した結果。
// Droppedはカタログに存在しない・非公開で落とした商品ID（黙って消さず必ず報告する）。
type ResolvedCart struct {
	Items   []model.CartLine `json:"items"`
	Dropped []int64          `json:"dropped,omitempty"`
}

func (rc ResolvedCart) IsEmpty() bool {
	return len(rc.Items) == 0
}

// subtotal = Σ(unitPrice × quantity)。明細の順序に依存しない
func (rc ResolvedCart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range rc.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return sum
}

func (u *CartUsecase) ShippingFee() decimal.Decimal {
	return u.shippingFee
}

// total = subtotal + 配送料（固定）
func (u *CartUsecase) Total(rc ResolvedCart) decimal.Decimal {
	return rc.Subtotal().Add(u.shippingFee)
}

// Resolveはトークンを現在のカタログに対して解決する。
// 副作用なし。ErrMalformedCartTokenの場合、呼び出し側はトークンを無効化する。
func (u *CartUsecase) Resolve(ctx context.Context, token string) (ResolvedCart, error) {
	lines, err := DecodeCartToken(token)
	if err != nil {
		return ResolvedCart{}, err
	}

	//mapの順序は不定なのでID昇順で固定する
	ids := make([]int64, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rc := ResolvedCart{Items: make([]model.CartLine, 0, len(ids))}
	for _, id := range ids {
		p, err := u.productRepo.FindByID(ctx, id)
		if err == repo.ErrNotFound {
			rc.Dropped = append(rc.Dropped, id)
			continue
		}
		if err != nil {
			return ResolvedCart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			rc.Dropped = append(rc.Dropped, id)
			continue
		}

		rc.Items = append(rc.Items, model.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  lines[id],
		})
	}

	return rc, nil
}

// AddItemは商品をトークンに追加（同一商品は数量加算）して新しいトークンを返す。
func (u *CartUsecase) AddItem(ctx context.Context, token string, productID int64, quantity int64) (string, error) {
	if productID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if quantity < 1 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	lines, err := DecodeCartToken(token)
	if err != nil {
		return "", err
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return "", NewHTTPError(http.StatusBadRequest, "invalid")
	}
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return "", NewHTTPError(http.StatusBadRequest, "invalid")
	}

	lines[productID] += quantity

	newToken, err := EncodeCartToken(lines)
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return newToken, nil
}
