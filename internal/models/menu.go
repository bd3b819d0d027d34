package models

import "github.com/uptrace/bun"

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Name     string `bun:"name,notnull,unique" json:"name"`
	Price    int64  `bun:"price,notnull" json:"price"`
	Category string `bun:"category,notnull" json:"category"`
	IsActive bool   `bun:"is_active,notnull" json:"is_active"`
}
