package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arremate-backend/internal/timeutil"
)

func qty(v int) *int { return &v }

func TestProducedQuantity(t *testing.T) {
	tests := []struct {
		name     string
		order    ProductionOrder
		expected int
	}{
		{
			name: "last launched stage wins",
			order: ProductionOrder{RequestedQuantity: 100, Stages: []Stage{
				{Name: "Corte", Launched: true, Quantity: qty(100)},
				{Name: "Costura", Launched: true, Quantity: qty(96)},
				{Name: "Arremate", Launched: false, Quantity: qty(0)},
			}},
			expected: 96,
		},
		{
			name: "launched stage without quantity is skipped",
			order: ProductionOrder{RequestedQuantity: 100, Stages: []Stage{
				{Name: "Corte", Launched: true, Quantity: qty(98)},
				{Name: "Costura", Launched: true},
			}},
			expected: 98,
		},
		{
			name: "negative quantity is skipped",
			order: ProductionOrder{RequestedQuantity: 100, Stages: []Stage{
				{Name: "Corte", Launched: true, Quantity: qty(90)},
				{Name: "Costura", Launched: true, Quantity: qty(-1)},
			}},
			expected: 90,
		},
		{
			name: "zero is a valid launched quantity",
			order: ProductionOrder{RequestedQuantity: 100, Stages: []Stage{
				{Name: "Corte", Launched: true, Quantity: qty(0)},
			}},
			expected: 0,
		},
		{
			name:     "falls back to requested quantity",
			order:    ProductionOrder{RequestedQuantity: 40, Stages: []Stage{{Name: "Corte"}}},
			expected: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.order.ProducedQuantity())
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	loc := timeutil.Factory
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	yesterday := time.Date(2026, 3, 9, 16, 0, 0, 0, loc)
	earlyToday := time.Date(2026, 3, 10, 7, 30, 0, 0, loc)

	absentYesterday := Worker{Status: WorkerAbsent, StatusChangedAt: yesterday}
	assert.Equal(t, WorkerFree, absentYesterday.EffectiveStatus(now))
	assert.Equal(t, timeutil.StartOfDay(now), absentYesterday.EffectiveStatusChangedAt(now))

	externalToday := Worker{Status: WorkerExternal, StatusChangedAt: earlyToday}
	assert.Equal(t, WorkerExternal, externalToday.EffectiveStatus(now))
	assert.Equal(t, earlyToday, externalToday.EffectiveStatusChangedAt(now))

	producing := Worker{Status: WorkerProducing, StatusChangedAt: yesterday}
	assert.Equal(t, WorkerProducing, producing.EffectiveStatus(now))
	assert.Equal(t, yesterday, producing.EffectiveStatusChangedAt(now))
}

func TestArremateCounting(t *testing.T) {
	reversedAt := time.Now()
	assert.True(t, (&Arremate{Kind: KindProducao}).CountsAsFinished())
	assert.True(t, (&Arremate{Kind: KindPerda}).CountsAsFinished())
	assert.False(t, (&Arremate{Kind: KindEstorno}).CountsAsFinished())
	assert.False(t, (&Arremate{Kind: KindProducao, ReversedAt: &reversedAt}).CountsAsFinished())
}

func TestUserCan(t *testing.T) {
	admin := User{Role: RoleAdmin, IsActive: true}
	supervisor := User{Role: RoleSupervisor, IsActive: true, Permissions: []string{"arremate:iniciar"}}
	inactive := User{Role: RoleAdmin, IsActive: false}

	assert.True(t, admin.Can("arremate:estornar"))
	assert.True(t, supervisor.Can("arremate:iniciar"))
	assert.False(t, supervisor.Can("arremate:estornar"))
	assert.False(t, inactive.Can("arremate:iniciar"))
}

func TestSnapshotTotal(t *testing.T) {
	s := WorkSession{SourceOrders: []SourceOrder{{OrderNumber: 100, Quantity: 50}, {OrderNumber: 101, Quantity: 20}}}
	assert.Equal(t, 70, s.SnapshotTotal())
}
