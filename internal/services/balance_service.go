package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/cache"
	"arremate-backend/internal/models"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// BalanceService answers "how much is left to finish" for OPs and builds
// the supervisor work queue
type BalanceService struct {
	reader BalanceReader
	log    *zap.Logger
}

func NewBalanceService(reader BalanceReader, log *zap.Logger) *BalanceService {
	return &BalanceService{reader: reader, log: log.Named("balance")}
}

// AvailableBalance returns the finishing balance of one OP
func (s *BalanceService) AvailableBalance(ctx context.Context, orderNumber int) (*models.PendingOrder, error) {
	if orderNumber <= 0 {
		return nil, apperr.Validation("número de OP inválido")
	}
	order, err := s.reader.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, storeErr(err, "OP")
	}
	variant := models.NormalizeVariant(order.Variant)
	finished, err := s.reader.SumFinished(ctx, order.Number, variant)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	p := pendingOrder(order, finished)
	return &p, nil
}

func pendingOrder(o *models.ProductionOrder, finished int) models.PendingOrder {
	return models.PendingOrder{
		OrderNumber: o.Number,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Variant:     models.NormalizeVariant(o.Variant),
		Produced:    o.ProducedQuantity(),
		Finished:    finished,
		Available:   AvailableBalance(o, finished),
		OrderDate:   o.CreatedAt,
	}
}

// pending lists OPs of productID (0 = all) that still have balance
func (s *BalanceService) pending(ctx context.Context, productID int) ([]models.PendingOrder, error) {
	orders, err := s.reader.ListOpenOrders(ctx, productID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	numbers := make([]int, 0, len(orders))
	for _, o := range orders {
		numbers = append(numbers, o.Number)
	}
	finished, err := s.reader.SumFinishedByOrder(ctx, numbers)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var out []models.PendingOrder
	for i := range orders {
		o := &orders[i]
		key := models.OrderVariantKey{OrderNumber: o.Number, Variant: models.NormalizeVariant(o.Variant)}
		p := pendingOrder(o, finished[key])
		if p.Available > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// PendingOrders lists the OPs of one (product, variant) with balance left,
// order number ascending
func (s *BalanceService) PendingOrders(ctx context.Context, productID int, variant string) ([]models.PendingOrder, error) {
	if productID <= 0 {
		return nil, apperr.Validation("produto_id inválido")
	}
	variant = models.NormalizeVariant(variant)
	all, err := s.pending(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingOrder, 0, len(all))
	for _, p := range all {
		if p.Variant == variant {
			out = append(out, p)
		}
	}
	return out, nil
}

// Queue returns one page of pending work grouped by (product, variant)
func (s *BalanceService) Queue(ctx context.Context, f models.QueueFilter) (*models.QueuePage, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultQueueLimit
	}
	if f.Limit > maxQueueLimit {
		f.Limit = maxQueueLimit
	}
	switch f.Sort {
	case models.SortRecency, models.SortQuantityDesc, models.SortQuantityAsc, models.SortAlphabetical:
	case "":
		f.Sort = models.SortRecency
	default:
		return nil, apperr.Validation("ordenação inválida").WithDetail("sort", f.Sort)
	}

	key := cache.QueueKey(f.Search, f.Sort, f.Page, f.Limit)
	if data, ok := cache.GetCached(ctx, key); ok {
		var page models.QueuePage
		if err := json.Unmarshal(data, &page); err == nil {
			return &page, nil
		}
	}

	pending, err := s.pending(ctx, 0)
	if err != nil {
		return nil, err
	}
	items := filterQueue(pending, f.Search)
	SortQueue(items, f.Sort)

	total := len(items)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}

	page := &models.QueuePage{
		Items: items[start:end],
		Pagination: models.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: (total + f.Limit - 1) / f.Limit,
		},
	}
	if page.Items == nil {
		page.Items = []models.QueueItem{}
	}

	if data, err := json.Marshal(page); err == nil {
		cache.SetCached(ctx, key, data, cache.QueueTTL)
	} else {
		s.log.Warn("queue cache encode failed", zap.Error(err))
	}
	return page, nil
}

// filterQueue aggregates pending orders and applies the free-text search.
// A numeric search also matches groups containing that OP number.
func filterQueue(pending []models.PendingOrder, search string) []models.QueueItem {
	if search == "" {
		return AggregateByProductVariant(pending)
	}

	if n, err := strconv.Atoi(search); err == nil {
		type key struct {
			productID int
			variant   string
		}
		groups := make(map[key]bool)
		for _, p := range pending {
			if p.OrderNumber == n {
				groups[key{p.ProductID, p.Variant}] = true
			}
		}
		var matched []models.QueueItem
		for _, item := range AggregateByProductVariant(pending) {
			if groups[key{item.ProductID, item.Variant}] || MatchesSearch(item, search) {
				matched = append(matched, item)
			}
		}
		return matched
	}

	var matched []models.QueueItem
	for _, item := range AggregateByProductVariant(pending) {
		if MatchesSearch(item, search) {
			matched = append(matched, item)
		}
	}
	return matched
}
