package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/frontier/internal/core"
)

func ptr[T any](v T) *T { return &v }

func TestStore_Fundamentals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertFundamentals(ctx, []core.Fundamental{
		{Symbol: "ITX.MC", Date: day(1), Name: "Inditex", Sector: "Consumer Cyclical",
			Employees: ptr(int64(161281)), PETrailing: ptr(25.5), HasESG: true, TotalESG: ptr(15.2)},
		{Symbol: "ITX.MC", Date: day(3), Name: "Inditex", PETrailing: ptr(26.0)},
		{Symbol: "SAN.MC", Date: day(2), Name: "Banco Santander", PriceToBook: ptr(0.7)},
		{Symbol: "", Date: day(2)},
		{Symbol: "BBVA.MC"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snaps, err := s.Fundamentals(ctx, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	itx := snaps[0]
	assert.Equal(t, "ITX.MC", itx.Symbol)
	assert.Equal(t, day(3), itx.Date, "latest snapshot wins")
	assert.Equal(t, 26.0, *itx.PETrailing)
	assert.Empty(t, itx.Sector)
	assert.Nil(t, itx.Employees)
	assert.False(t, itx.HasESG)
	assert.Nil(t, itx.TotalESG)

	san := snaps[1]
	assert.Equal(t, "Banco Santander", san.Name)
	assert.Equal(t, 0.7, *san.PriceToBook)
	assert.Nil(t, san.PETrailing)

	snaps, err = s.Fundamentals(ctx, []string{"SAN.MC", "MISSING"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "SAN.MC", snaps[0].Symbol)
}

func TestStore_UpsertFundamentalsOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertFundamentals(ctx, []core.Fundamental{
		{Symbol: "ITX.MC", Date: day(1), Name: "Inditex", Employees: ptr(int64(100)),
			HasESG: true, TotalESG: ptr(15.2), Controversy: ptr(2.0)},
	})
	require.NoError(t, err)
	_, err = s.UpsertFundamentals(ctx, []core.Fundamental{
		{Symbol: "ITX.MC", Date: day(1).Add(15 * time.Hour), Name: "Industria de Diseno Textil",
			Employees: ptr(int64(161281)), HasESG: true, TotalESG: ptr(14.9), Controversy: ptr(2.0)},
	})
	require.NoError(t, err)

	snaps, err := s.Fundamentals(ctx, []string{"ITX.MC"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Industria de Diseno Textil", snaps[0].Name)
	assert.Equal(t, int64(161281), *snaps[0].Employees)
	assert.True(t, snaps[0].HasESG)
	assert.Equal(t, 14.9, *snaps[0].TotalESG)
	assert.Equal(t, 2.0, *snaps[0].Controversy)
}
