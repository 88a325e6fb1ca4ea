package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewAt(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = svc.Shutdown()
	})

	return svc
}

func TestSaveAndRecent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Save(ctx, &Calculation{
		Query:         "200g rice",
		Dish:          "rice",
		TotalCalories: 260,
		Lines: []Line{
			{Name: "rice", WeightG: 200, Calories: 260},
		},
	})
	require.NoError(t, err)

	calculations, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, calculations, 1)

	got := calculations[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "200g rice", got.Query)
	assert.Equal(t, "rice", got.Dish)
	assert.Equal(t, float64(260), got.TotalCalories)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "rice", got.Lines[0].Name)
	assert.False(t, got.Lines[0].Added)
	assert.False(t, got.Lines[0].Removed)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, dish := range []string{"rice", "fajita", "plov"} {
		err := svc.Save(ctx, &Calculation{
			Query:     dish,
			Dish:      dish,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	calculations, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, calculations, 2)
	assert.Equal(t, "plov", calculations[0].Dish)
	assert.Equal(t, "fajita", calculations[1].Dish)
}

func TestSavePreservesModificationFlags(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Save(ctx, &Calculation{
		Query:         "fajita without beef with cheese",
		Dish:          "fajita",
		TotalCalories: 410,
		Lines: []Line{
			{Name: "tortilla", WeightG: 100, Calories: 310},
			{Name: "cheese", WeightG: 30, Calories: 100, Added: true},
			{Name: "beef", WeightG: 0, Calories: 0, Removed: true},
		},
	})
	require.NoError(t, err)

	calculations, err := svc.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, calculations, 1)
	require.Len(t, calculations[0].Lines, 3)

	assert.True(t, calculations[0].Lines[1].Added)
	assert.True(t, calculations[0].Lines[2].Removed)
}

func TestRecentOnEmptyDatabase(t *testing.T) {
	svc := newTestService(t)

	calculations, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, calculations)
}
