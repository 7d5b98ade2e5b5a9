package models

import "time"

// Queue sort keys
const (
	SortRecency      = "recency"
	SortQuantityDesc = "quantity-desc"
	SortQuantityAsc  = "quantity-asc"
	SortAlphabetical = "alphabetical"
)

// QueueItem is the pending finishing work of one (product, variant) pair
type QueueItem struct {
	ProductID       int       `json:"produto_id"`
	ProductName     string    `json:"produto_nome"`
	Variant         string    `json:"variante"`
	TotalAvailable  int       `json:"saldo_total"`
	OrderCount      int       `json:"total_ops"`
	OldestOrderDate time.Time `json:"data_op_mais_antiga"`
	NewestOrderDate time.Time `json:"data_op_mais_recente"`
}

// PendingOrder is one OP with finishing balance left
type PendingOrder struct {
	OrderNumber int       `json:"numero_op"`
	ProductID   int       `json:"produto_id"`
	ProductName string    `json:"produto_nome"`
	Variant     string    `json:"variante"`
	Produced    int       `json:"quantidade_produzida"`
	Finished    int       `json:"quantidade_arrematada"`
	Available   int       `json:"saldo"`
	OrderDate   time.Time `json:"data_op"`
}

// QueueFilter holds queue search, sort and pagination parameters
type QueueFilter struct {
	Search string
	Sort   string
	Page   int
	Limit  int
}

// Pagination is the page metadata of a listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// QueuePage is one page of the supervisor queue
type QueuePage struct {
	Items      []QueueItem `json:"rows"`
	Pagination Pagination  `json:"pagination"`
}
