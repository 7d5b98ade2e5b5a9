package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArremateKind is the kind of a finishing ledger entry
type ArremateKind string

const (
	KindProducao ArremateKind = "PRODUCAO" // Normal finishing output
	KindPerda    ArremateKind = "PERDA"    // Loss / damage write-off
	KindEstorno  ArremateKind = "ESTORNO"  // Reversal audit row, never counted
)

// Arremate is one row of the finishing ledger
type Arremate struct {
	ID              int             `json:"id"`
	OrderNumber     int             `json:"numero_op"`
	ProductID       int             `json:"produto_id"`
	Variant         string          `json:"variante"`
	Quantity        int             `json:"quantidade"`
	WorkerID        *int            `json:"id_tiktik,omitempty"`
	WorkerName      string          `json:"tiktik_nome"`
	RecordedBy      string          `json:"lancado_por"`
	Kind            ArremateKind    `json:"tipo_lancamento"`
	OriginEntryID   *int            `json:"id_arremate_origem,omitempty"` // ESTORNO -> reversed entry
	AlreadyPackaged int             `json:"quantidade_ja_embalada"`       // Maintained by packaging
	SessionID       *int            `json:"id_sessao,omitempty"`
	Points          decimal.Decimal `json:"valor_pontos"`
	Reason          string          `json:"observacao,omitempty"`
	ReversedAt      *time.Time      `json:"estornado_em,omitempty"`
	ReversedBy      string          `json:"estornado_por,omitempty"`
	CreatedAt       time.Time       `json:"data_lancamento"`
}

// Active reports whether the entry has not been reversed
func (a *Arremate) Active() bool {
	return a.ReversedAt == nil
}

// CountsAsFinished reports whether the entry counts toward "finished so far"
func (a *Arremate) CountsAsFinished() bool {
	return a.Active() && (a.Kind == KindProducao || a.Kind == KindPerda)
}

// Reversible reports whether the entry can still be reversed
func (a *Arremate) Reversible() bool {
	return a.CountsAsFinished()
}

// ArremateFilter filters ledger listings
type ArremateFilter struct {
	OrderNumber     int
	WorkerID        int
	Kind            ArremateKind
	IncludeReversed bool
	StartDate       *time.Time
	EndDate         *time.Time
	Limit           int
	Offset          int
}

// RegisterLossRequest writes off damaged units from an OP's pending balance
type RegisterLossRequest struct {
	OrderNumber int    `json:"numero_op"`
	Quantity    int    `json:"quantidade"`
	Reason      string `json:"observacao"`
}
