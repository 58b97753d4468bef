package nutrition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/domain"
)

func TestAggregateNullPropagation(t *testing.T) {
	got := Aggregate([]domain.Nutrients{{FiberG: domain.Float(3)}, {FiberG: nil}})
	assert.Nil(t, got.FiberG)

	got = Aggregate([]domain.Nutrients{{FiberG: domain.Float(3)}, {FiberG: domain.Float(5)}})
	require.NotNil(t, got.FiberG)
	assert.Equal(t, 8.0, *got.FiberG)
}

func TestAggregateKnownZeroIsNotUnknown(t *testing.T) {
	got := Aggregate([]domain.Nutrients{{IronMg: domain.Float(0)}, {IronMg: domain.Float(0)}})
	require.NotNil(t, got.IronMg)
	assert.Equal(t, 0.0, *got.IronMg)
}

func TestAggregateCoreFields(t *testing.T) {
	got := Aggregate([]domain.Nutrients{
		{Calories: 400, FatG: 10, CarbsG: 50, ProteinG: 20},
		{Calories: 250.5, FatG: 5, CarbsG: math.NaN(), ProteinG: 30},
	})
	assert.Equal(t, 650.5, got.Calories)
	assert.Equal(t, 15.0, got.FatG)
	assert.Equal(t, 50.0, got.CarbsG)
	assert.Equal(t, 50.0, got.ProteinG)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	assert.Zero(t, got.Calories)
	for _, field := range domain.MicroFields {
		v := *got.Micro(field)
		require.NotNil(t, v, field)
		assert.Zero(t, *v)
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	a := domain.Nutrients{Calories: 100, FiberG: domain.Float(1), CalciumMg: nil}
	b := domain.Nutrients{Calories: 200, FiberG: domain.Float(2), CalciumMg: domain.Float(30)}
	c := domain.Nutrients{Calories: 300, FiberG: domain.Float(4), CalciumMg: domain.Float(10)}

	first := Aggregate([]domain.Nutrients{a, b, c})
	second := Aggregate([]domain.Nutrients{c, a, b})
	assert.True(t, Equal(first, second))
	assert.Nil(t, first.CalciumMg)
	assert.Equal(t, 7.0, *first.FiberG)
}

func TestEqual(t *testing.T) {
	base := domain.Nutrients{Calories: 400, FiberG: domain.Float(3)}
	assert.True(t, Equal(base, domain.Nutrients{Calories: 400, FiberG: domain.Float(3)}))
	assert.False(t, Equal(base, domain.Nutrients{Calories: 400}))
	assert.False(t, Equal(base, domain.Nutrients{Calories: 401, FiberG: domain.Float(3)}))
	assert.True(t, Equal(domain.Nutrients{}, domain.Nutrients{}))
}

func TestRound(t *testing.T) {
	got := Round(domain.Nutrients{Calories: 100.04, FiberG: domain.Float(2.26)})
	assert.Equal(t, 100.0, got.Calories)
	assert.Equal(t, 2.3, *got.FiberG)
	assert.Nil(t, got.IronMg)
}
