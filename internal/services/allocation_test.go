package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arremate-backend/internal/models"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		orders    []OrderBalance
		expected  []Allocation
		remainder int
	}{
		{
			name:      "depletes oldest order first",
			requested: 70,
			orders:    []OrderBalance{{100, 50}, {101, 30}},
			expected:  []Allocation{{100, 50}, {101, 20}},
		},
		{
			name:      "sorts by order number",
			requested: 40,
			orders:    []OrderBalance{{205, 30}, {200, 25}},
			expected:  []Allocation{{200, 25}, {205, 15}},
		},
		{
			name:      "skips empty orders",
			requested: 5,
			orders:    []OrderBalance{{1, 0}, {2, 10}},
			expected:  []Allocation{{2, 5}},
		},
		{
			name:      "reports unplaced remainder",
			requested: 90,
			orders:    []OrderBalance{{100, 50}, {101, 30}},
			expected:  []Allocation{{100, 50}, {101, 30}},
			remainder: 10,
		},
		{
			name:      "zero request allocates nothing",
			requested: 0,
			orders:    []OrderBalance{{100, 50}},
			expected:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, remainder := Allocate(tt.requested, tt.orders)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.remainder, remainder)
		})
	}
}

func TestAllocateDoesNotReorderInput(t *testing.T) {
	orders := []OrderBalance{{3, 1}, {1, 1}, {2, 1}}
	Allocate(2, orders)
	assert.Equal(t, []OrderBalance{{3, 1}, {1, 1}, {2, 1}}, orders)
}

func TestAllocateCompleteness(t *testing.T) {
	orders := []OrderBalance{{7, 3}, {2, 11}, {5, 0}, {9, 8}, {4, 6}}
	capacity := 0
	balances := map[int]int{}
	for _, o := range orders {
		capacity += o.Balance
		balances[o.OrderNumber] = o.Balance
	}

	for q := 0; q <= capacity; q++ {
		got, remainder := Allocate(q, orders)
		assert.Zero(t, remainder, "q=%d", q)

		sum := 0
		for _, a := range got {
			assert.LessOrEqual(t, a.Quantity, balances[a.OrderNumber], "q=%d order=%d", q, a.OrderNumber)
			assert.Positive(t, a.Quantity)
			sum += a.Quantity
		}
		assert.Equal(t, q, sum, "q=%d", q)
	}
}

func intPtr(v int) *int { return &v }

func TestAvailableBalanceNeverNegative(t *testing.T) {
	order := &models.ProductionOrder{
		Number:            100,
		RequestedQuantity: 60,
		Stages: []models.Stage{
			{Name: "Corte", Launched: true, Quantity: intPtr(60)},
			{Name: "Costura", Launched: true, Quantity: intPtr(50)},
			{Name: "Arremate", Launched: false},
		},
	}

	assert.Equal(t, 50, AvailableBalance(order, 0))
	assert.Equal(t, 8, AvailableBalance(order, 42))
	assert.Equal(t, 0, AvailableBalance(order, 50))
	assert.Equal(t, 0, AvailableBalance(order, 75))
}

func TestAggregateByProductVariant(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC) }
	orders := []models.PendingOrder{
		{OrderNumber: 100, ProductID: 1, ProductName: "Camiseta", Variant: "Azul", Available: 50, OrderDate: d(2)},
		{OrderNumber: 101, ProductID: 1, ProductName: "Camiseta", Variant: "Azul", Available: 30, OrderDate: d(5)},
		{OrderNumber: 102, ProductID: 1, ProductName: "Camiseta", Variant: "", Available: 12, OrderDate: d(4)},
		{OrderNumber: 103, ProductID: 2, ProductName: "Bermuda", Variant: "", Available: 0, OrderDate: d(6)},
	}

	items := AggregateByProductVariant(orders)

	assert.Len(t, items, 2)
	assert.Equal(t, 80, items[0].TotalAvailable)
	assert.Equal(t, 2, items[0].OrderCount)
	assert.Equal(t, d(2), items[0].OldestOrderDate)
	assert.Equal(t, d(5), items[0].NewestOrderDate)
	assert.Equal(t, "", items[1].Variant)
	assert.Equal(t, 12, items[1].TotalAvailable)
}

func TestSortQueue(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC) }
	base := []models.QueueItem{
		{ProductName: "camiseta", TotalAvailable: 10, NewestOrderDate: d(1)},
		{ProductName: "Bermuda", TotalAvailable: 30, NewestOrderDate: d(3)},
		{ProductName: "Avental", TotalAvailable: 10, NewestOrderDate: d(2)},
	}
	names := func(items []models.QueueItem) []string {
		var out []string
		for _, i := range items {
			out = append(out, i.ProductName)
		}
		return out
	}

	tests := []struct {
		sortKey  string
		expected []string
	}{
		{models.SortRecency, []string{"Bermuda", "Avental", "camiseta"}},
		{models.SortQuantityDesc, []string{"Bermuda", "Avental", "camiseta"}},
		{models.SortQuantityAsc, []string{"Avental", "camiseta", "Bermuda"}},
		{models.SortAlphabetical, []string{"Avental", "Bermuda", "camiseta"}},
		{"", []string{"Bermuda", "Avental", "camiseta"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortKey, func(t *testing.T) {
			items := append([]models.QueueItem(nil), base...)
			SortQueue(items, tt.sortKey)
			assert.Equal(t, tt.expected, names(items))
		})
	}
}

func TestMatchesSearch(t *testing.T) {
	item := models.QueueItem{ProductName: "Camiseta Polo", Variant: "Azul Marinho"}
	assert.True(t, MatchesSearch(item, ""))
	assert.True(t, MatchesSearch(item, "polo"))
	assert.True(t, MatchesSearch(item, " MARINHO "))
	assert.False(t, MatchesSearch(item, "bermuda"))
}
