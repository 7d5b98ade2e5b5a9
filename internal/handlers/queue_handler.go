package handlers

import (
	"context"
	"net/http"

	"arremate-backend/internal/models"
	"arremate-backend/pkg/utils"
)

// BalanceQueries is the read side served to supervisors
type BalanceQueries interface {
	AvailableBalance(ctx context.Context, orderNumber int) (*models.PendingOrder, error)
	PendingOrders(ctx context.Context, productID int, variant string) ([]models.PendingOrder, error)
	Queue(ctx context.Context, f models.QueueFilter) (*models.QueuePage, error)
}

type QueueHandler struct {
	Balance BalanceQueries
}

func NewQueueHandler(balance BalanceQueries) *QueueHandler {
	return &QueueHandler{Balance: balance}
}

// Queue lists pending work grouped by product and variant
// Query: busca, ordenacao, page, limit
func (h *QueueHandler) Queue(w http.ResponseWriter, r *http.Request) {
	page, err := utils.QueryInt(r, "page", 1)
	if err != nil {
		utils.Error(w, err)
		return
	}
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		utils.Error(w, err)
		return
	}

	result, err := h.Balance.Queue(r.Context(), models.QueueFilter{
		Search: r.URL.Query().Get("busca"),
		Sort:   r.URL.Query().Get("ordenacao"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// PendingOrders lists the OPs with balance of one product; query: variante
func (h *QueueHandler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	productID, err := pathInt(r, "produto_id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	orders, err := h.Balance.PendingOrders(r.Context(), productID, r.URL.Query().Get("variante"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	if orders == nil {
		orders = []models.PendingOrder{}
	}
	utils.JSON(w, http.StatusOK, orders)
}

// OrderBalance returns the finishing balance of one OP
func (h *QueueHandler) OrderBalance(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt(r, "numero_op")
	if err != nil {
		utils.Error(w, err)
		return
	}

	balance, err := h.Balance.AvailableBalance(r.Context(), number)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, balance)
}
