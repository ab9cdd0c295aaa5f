// internal/order/order_view.go
package order

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// UIAction adalah tombol yang boleh ditampilkan untuk sebuah pesanan.
type UIAction string

const (
	UIConfirm       UIAction = "confirm"
	UIReject        UIAction = "reject"
	UIComplete      UIAction = "complete"
	UICancel        UIAction = "cancel"
	UIContactSeller UIAction = "contact_seller"
	UIBuyAgain      UIAction = "buy_again"
)

// Tabel keputusan tampilan. Harus selalu cocok dengan tabel transisi.
var sellerActions = map[OrderStatus][]UIAction{
	StatusPending:    {UIConfirm, UIReject},
	StatusProcessing: {UIComplete},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

var buyerActions = map[OrderStatus][]UIAction{
	StatusPending:    {UICancel, UIContactSeller},
	StatusProcessing: {UIContactSeller},
	StatusCompleted:  {UIBuyAgain, UIContactSeller},
	StatusCancelled:  {UIContactSeller},
}

// AvailableActions mengembalikan aksi yang ditawarkan ke role untuk status s.
// Status yang tidak dikenal tidak mendapat aksi apa pun.
func AvailableActions(role Role, s OrderStatus) []UIAction {
	var table map[OrderStatus][]UIAction
	switch role {
	case RoleSeller:
		table = sellerActions
	case RoleBuyer:
		table = buyerActions
	default:
		return []UIAction{}
	}
	acts, ok := table[s]
	if !ok {
		return []UIAction{}
	}
	out := make([]UIAction, len(acts))
	copy(out, acts)
	return out
}

// Transition mengembalikan aksi transisi di balik tombol, jika ada.
func (a UIAction) Transition() (Action, bool) {
	switch a {
	case UIConfirm:
		return ActionConfirm, true
	case UIReject:
		return ActionReject, true
	case UIComplete:
		return ActionComplete, true
	case UICancel:
		return ActionCancel, true
	}
	return "", false
}

// BadgeTone adalah warna badge status.
func BadgeTone(s OrderStatus) string {
	switch s {
	case StatusPending:
		return "yellow"
	case StatusProcessing:
		return "blue"
	case StatusCompleted:
		return "green"
	case StatusCancelled:
		return "red"
	}
	return "gray"
}

// FormatRupiah memformat harga ke gaya id-ID tanpa desimal, misal "Rp 20.000".
func FormatRupiah(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	digits := amount.Abs().Round(0).StringFixed(0)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// UnitPrice adalah harga satuan saat pesanan dibuat (total / jumlah).
func UnitPrice(o Order) decimal.Decimal {
	if o.Quantity <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(o.TotalPrice).Div(decimal.NewFromInt(int64(o.Quantity)))
}

// Quote adalah perkiraan total sebelum memesan. Total final tetap dari server.
func Quote(p Product, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(quantity)))
}

// ContactSellerURL membuat tautan WhatsApp ke penjual. Kosong jika nomor penjual tidak ada.
func ContactSellerURL(o Order) string {
	phone := strings.TrimSpace(o.SellerWhatsapp)
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "0") {
		phone = "62" + phone[1:]
	}
	msg := fmt.Sprintf("Halo, saya ingin bertanya tentang pesanan #%d (%s)", o.ID, o.ProductName)
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(msg)
}
