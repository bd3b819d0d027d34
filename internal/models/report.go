package models

type SalesRow struct {
	ItemName    string `bun:"item_name" json:"item_name"`
	Quantity    int64  `bun:"quantity" json:"quantity"`
	TotalAmount int64  `bun:"total_amount" json:"total_amount"`
}

type PaymentStat struct {
	Count       int64 `bun:"count" json:"count"`
	TotalAmount int64 `bun:"total_amount" json:"total_amount"`
}

type ShiftReport struct {
	Shift        Shift                  `json:"shift"`
	Sales        []SalesRow             `json:"sales"`
	Payments     map[string]PaymentStat `json:"payments"`
	BonusesSpent int64                  `json:"bonuses_spent"`
}
