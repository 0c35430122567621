package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLine() OrderProduct {
	return OrderProduct{
		ID:                1,
		RequestedQuantity: 10,
		RequestedPackages: 1,
		ConfirmedQuantity: 20,
		ConfirmedPackages: 2,
		DeliveredQuantity: 30,
		DeliveredPackages: 3,
	}
}

func TestSelectQuantity(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Quantity
	}{
		{name: "draft uses requested", state: StateDraft, want: Quantity{Quantity: 10, Packages: 1}},
		{name: "confirmed uses confirmed", state: StateConfirmed, want: Quantity{Quantity: 20, Packages: 2}},
		{name: "completed uses delivered", state: StateCompleted, want: Quantity{Quantity: 30, Packages: 3}},
		{name: "canceled is zero", state: StateCanceled, want: Quantity{}},
		{name: "unknown is zero", state: State("archived"), want: Quantity{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectQuantity(tc.state, sampleLine()))
		})
	}
}

func TestSumQuantitiesFollowsDocumentState(t *testing.T) {
	doc := Document{State: StateConfirmed, OrderProducts: []OrderProduct{sampleLine(), sampleLine()}}
	assert.Equal(t, Quantity{Quantity: 40, Packages: 4}, SumQuantities(doc))
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 840.34, Round2(1000/1.19))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, -0.13, Round2(-0.125))
	assert.Equal(t, 2.0, Round2(2))
}

func TestPackingProgress(t *testing.T) {
	doc := Document{
		State: StateDraft,
		OrderProducts: []OrderProduct{
			{ID: 1, RequestedQuantity: 100, Items: []Item{{ID: 1, Quantity: 30}, {ID: 2, Quantity: 0}, {ID: 3, Quantity: 20}}},
			{ID: 2, RequestedQuantity: 50, Items: []Item{{ID: 4, Quantity: 25}}},
		},
	}
	progress := ComputePackingProgress(doc)
	require.Len(t, progress.Lines, 2)
	assert.Equal(t, 50.0, progress.Lines[0].TotalQuantity)
	assert.Equal(t, 2, progress.Lines[0].ItemsWithQuantity)
	assert.Equal(t, 3, progress.Lines[0].ItemCount)
	assert.Equal(t, 75.0, progress.TotalQuantity)
	assert.Equal(t, 150.0, progress.TotalRequested)
	assert.Equal(t, 50.0, progress.Percent)
	assert.Equal(t, 50.0, progress.DisplayPercent)
}

func TestPackingProgressZeroRequested(t *testing.T) {
	doc := Document{OrderProducts: []OrderProduct{{ID: 1, Items: []Item{{ID: 1, Quantity: 5}}}}}
	progress := ComputePackingProgress(doc)
	assert.Equal(t, 0.0, progress.Percent)
	assert.Equal(t, 0.0, progress.DisplayPercent)
}

func TestPackingProgressClampsDisplay(t *testing.T) {
	doc := Document{OrderProducts: []OrderProduct{{ID: 1, RequestedQuantity: 10, Items: []Item{{ID: 1, Quantity: 15}}}}}
	progress := ComputePackingProgress(doc)
	assert.Equal(t, 150.0, progress.Percent)
	assert.Equal(t, 100.0, progress.DisplayPercent)
}

func TestPackingProgressRecomputesAfterItemChange(t *testing.T) {
	doc := Document{OrderProducts: []OrderProduct{{ID: 1, RequestedQuantity: 10, Items: []Item{{ID: 1, Quantity: 5}}}}}
	assert.Equal(t, 50.0, ComputePackingProgress(doc).Percent)
	doc.OrderProducts[0].Items[0].Quantity = 10
	assert.Equal(t, 100.0, ComputePackingProgress(doc).Percent)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateDraft.CanTransition(StateConfirmed))
	assert.True(t, StateConfirmed.CanTransition(StateCompleted))
	assert.True(t, StateDraft.CanTransition(StateCanceled))
	assert.True(t, StateConfirmed.CanTransition(StateCanceled))
	assert.False(t, StateDraft.CanTransition(StateCompleted))
	assert.False(t, StateCompleted.CanTransition(StateCanceled))
	assert.False(t, StateCanceled.CanTransition(StateConfirmed))
	assert.False(t, StateConfirmed.CanTransition(StateDraft))

	assert.True(t, StateConfirmed.CanEdit())
	assert.False(t, StateCompleted.CanEdit())
	assert.False(t, StateCanceled.CanDelete())
	assert.True(t, Document{State: StateCanceled}.ReadOnly())
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]Document{
		{Type: TypeSale, State: StateDraft},
		{Type: TypeSale, State: StateCompleted},
		{Type: TypePurchase, State: StateDraft},
	})
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByState[StateDraft])
	assert.Equal(t, 2, stats.ByType[TypeSale])
}
