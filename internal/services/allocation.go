package services

import (
	"sort"
	"strings"

	"arremate-backend/internal/models"
)

// OrderBalance is an OP with its remaining finishing balance
type OrderBalance struct {
	OrderNumber int
	Balance     int
}

// Allocation is the quantity taken from one OP
type Allocation struct {
	OrderNumber int
	Quantity    int
}

// Allocate distributes requested across orders, lowest order number first.
// It returns the non-zero allocations and the quantity that could not be
// placed; callers must treat a remainder above zero as insufficient capacity.
func Allocate(requested int, orders []OrderBalance) ([]Allocation, int) {
	sorted := make([]OrderBalance, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderNumber < sorted[j].OrderNumber
	})

	remaining := requested
	var allocations []Allocation
	for _, o := range sorted {
		if remaining <= 0 {
			break
		}
		if o.Balance <= 0 {
			continue
		}
		take := o.Balance
		if remaining < take {
			take = remaining
		}
		allocations = append(allocations, Allocation{OrderNumber: o.OrderNumber, Quantity: take})
		remaining -= take
	}
	if remaining < 0 {
		remaining = 0
	}
	return allocations, remaining
}

// AvailableBalance is produced minus finished, clamped at zero
func AvailableBalance(order *models.ProductionOrder, finished int) int {
	balance := order.ProducedQuantity() - finished
	if balance < 0 {
		return 0
	}
	return balance
}

// AggregateByProductVariant groups pending orders with a positive balance by
// (product, variant). Order of the result follows first appearance.
func AggregateByProductVariant(orders []models.PendingOrder) []models.QueueItem {
	type key struct {
		productID int
		variant   string
	}
	index := make(map[key]int)
	var items []models.QueueItem

	for _, o := range orders {
		if o.Available <= 0 {
			continue
		}
		k := key{o.ProductID, o.Variant}
		i, ok := index[k]
		if !ok {
			items = append(items, models.QueueItem{
				ProductID:       o.ProductID,
				ProductName:     o.ProductName,
				Variant:         o.Variant,
				OldestOrderDate: o.OrderDate,
				NewestOrderDate: o.OrderDate,
			})
			i = len(items) - 1
			index[k] = i
		}
		item := &items[i]
		item.TotalAvailable += o.Available
		item.OrderCount++
		if o.OrderDate.Before(item.OldestOrderDate) {
			item.OldestOrderDate = o.OrderDate
		}
		if o.OrderDate.After(item.NewestOrderDate) {
			item.NewestOrderDate = o.OrderDate
		}
	}
	return items
}

// SortQueue orders queue items in place by the given key. Ties, and the
// recency sort itself, fall back to newest order date first.
func SortQueue(items []models.QueueItem, sortKey string) {
	byRecency := func(a, b models.QueueItem) bool {
		return a.NewestOrderDate.After(b.NewestOrderDate)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch sortKey {
		case models.SortQuantityDesc:
			if a.TotalAvailable != b.TotalAvailable {
				return a.TotalAvailable > b.TotalAvailable
			}
		case models.SortQuantityAsc:
			if a.TotalAvailable != b.TotalAvailable {
				return a.TotalAvailable < b.TotalAvailable
			}
		case models.SortAlphabetical:
			an, bn := strings.ToLower(a.ProductName), strings.ToLower(b.ProductName)
			if an != bn {
				return an < bn
			}
			if a.Variant != b.Variant {
				return a.Variant < b.Variant
			}
		}
		return byRecency(a, b)
	})
}

// MatchesSearch reports whether item matches a free-text search on product
// name or variant, case-insensitively
func MatchesSearch(item models.QueueItem, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.ProductName), search) ||
		strings.Contains(strings.ToLower(item.Variant), search)
}
