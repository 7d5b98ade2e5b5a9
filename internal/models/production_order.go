package models

import (
	"strings"
	"time"
)

// Stage is one manufacturing step recorded on a production order (OP).
// Quantity is set once the stage is launched.
type Stage struct {
	Name     string `json:"processo"`
	Launched bool   `json:"lancado"`
	Quantity *int   `json:"quantidade,omitempty"`
}

// ProductionOrder is the upstream OP, owned by the production subsystem
type ProductionOrder struct {
	Number            int       `json:"numero"`
	ProductID         int       `json:"produto_id"`
	ProductName       string    `json:"produto_nome"`
	Variant           string    `json:"variante"`
	RequestedQuantity int       `json:"quantidade"`
	Stages            []Stage   `json:"etapas"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"data_criacao"`
}

// ProducedQuantity is the quantity of the last launched stage (scanning from
// the end) with a non-negative quantity, or the requested quantity if none.
func (o *ProductionOrder) ProducedQuantity() int {
	for i := len(o.Stages) - 1; i >= 0; i-- {
		st := o.Stages[i]
		if st.Launched && st.Quantity != nil && *st.Quantity >= 0 {
			return *st.Quantity
		}
	}
	return o.RequestedQuantity
}

// NormalizeVariant trims the variant; the empty string is the "no variant" sentinel
func NormalizeVariant(v string) string {
	return strings.TrimSpace(v)
}

// OrderVariantKey identifies the finishing balance of one OP/variant pair
type OrderVariantKey struct {
	OrderNumber int
	Variant     string
}
