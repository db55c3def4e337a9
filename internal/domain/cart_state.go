package domain

// CartState is a point-in-time read of both cart collections.
type CartState struct {
	ProductLines []ProductLine `json:"product_lines"`
	VoucherLines []VoucherLine `json:"voucher_lines"`
}

func (s CartState) IsEmpty() bool {
	return len(s.ProductLines) == 0 && len(s.VoucherLines) == 0
}
