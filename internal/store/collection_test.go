package store

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID     int64
	Amount decimal.Decimal
	Active bool
}

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newItems() *Collection[item] {
	return New(Options[item]{
		ID:     func(i item) int64 { return i.ID },
		Amount: func(i item) decimal.Decimal { return i.Amount },
		Active: func(i item) bool { return i.Active },
	})
}

func ids(items []item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func sum(items []item) decimal.Decimal {
	s := decimal.Zero
	for _, it := range items {
		s = s.Add(it.Amount)
	}
	return s
}

func TestNewCollectionIsEmpty(t *testing.T) {
	s := newItems().Snapshot()
	assert.Empty(t, s.Items)
	assert.NotNil(t, s.Items)
	assert.True(t, s.Aggregate.IsZero())
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
	assert.Nil(t, s.Active)
	assert.Nil(t, s.Selected)
}

func TestAddUpdateRemoveScenario(t *testing.T) {
	c := newItems()

	c.EntityAdded(item{ID: 1, Amount: amt(100)})
	assert.Equal(t, "100", c.Snapshot().Aggregate.String())

	c.EntityAdded(item{ID: 2, Amount: amt(50)})
	assert.Equal(t, "150", c.Snapshot().Aggregate.String())

	c.EntityUpdated(item{ID: 1, Amount: amt(200)})
	assert.Equal(t, "250", c.Snapshot().Aggregate.String())

	c.EntityRemoved(2)
	s := c.Snapshot()
	assert.Equal(t, []item{{ID: 1, Amount: amt(200)}}, s.Items)
	assert.Equal(t, "200", s.Aggregate.String())
}

func TestLoadSelectsFirstActive(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Active: true}, {ID: 2}})
	s := c.Snapshot()
	require.NotNil(t, s.Active)
	assert.Equal(t, int64(1), s.Active.ID)

	c.LoadSucceeded([]item{{ID: 2}})
	assert.Nil(t, c.Snapshot().Active)

	c.LoadSucceeded([]item{{ID: 3}, {ID: 4, Active: true}, {ID: 5, Active: true}})
	require.NotNil(t, c.Snapshot().Active)
	assert.Equal(t, int64(4), c.Snapshot().Active.ID)
}

func TestLoadReplacesNotMerges(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Amount: amt(1)}, {ID: 2, Amount: amt(2)}})
	c.LoadSucceeded([]item{{ID: 3, Amount: amt(3)}})

	s := c.Snapshot()
	assert.Equal(t, []int64{3}, ids(s.Items))
	assert.Equal(t, "3", s.Aggregate.String())
}

func TestLoadKeepsServerOrderAndDropsDuplicates(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 9, Amount: amt(1)}, {ID: 3, Amount: amt(2)}, {ID: 9, Amount: amt(50)}})

	s := c.Snapshot()
	assert.Equal(t, []int64{9, 3}, ids(s.Items))
	assert.Equal(t, "3", s.Aggregate.String())
}

func TestLoadingLifecycle(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(10)})
	c.Failed("boom")

	c.BeginLoad()
	s := c.Snapshot()
	assert.True(t, s.IsLoading)
	assert.Empty(t, s.Error, "begin load clears the error")

	c.LoadFailed("Error loading items.")
	s = c.Snapshot()
	assert.False(t, s.IsLoading)
	assert.Equal(t, "Error loading items.", s.Error)
	assert.Equal(t, []int64{1}, ids(s.Items), "stale items stay visible")
	assert.Equal(t, "10", s.Aggregate.String())

	c.ErrorCleared()
	assert.Empty(t, c.Snapshot().Error)
}

func TestUnauthenticatedLoadIsEmptySuccess(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Amount: amt(5)}})
	c.BeginLoad()
	c.LoadSucceeded(nil)

	s := c.Snapshot()
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Error)
	assert.False(t, s.IsLoading)
	assert.True(t, s.Aggregate.IsZero())
}

func TestFailedDoesNotTouchLoading(t *testing.T) {
	c := newItems()
	c.BeginLoad()
	c.Failed("save failed")
	s := c.Snapshot()
	assert.True(t, s.IsLoading)
	assert.Equal(t, "save failed", s.Error)
}

func TestUpdateMissIsNoop(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(10)})
	c.EntityUpdated(item{ID: 2, Amount: amt(99)})

	s := c.Snapshot()
	assert.Equal(t, []int64{1}, ids(s.Items))
	assert.Equal(t, "10", s.Aggregate.String())
}

func TestRemoveMissIsNoop(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(10)})
	before := c.Snapshot()
	c.EntityRemoved(42)
	assert.Equal(t, before, c.Snapshot())
}

func TestUpdatePreservesIndex(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1}, {ID: 2}, {ID: 3}})
	c.EntityUpdated(item{ID: 2, Amount: amt(7)})
	s := c.Snapshot()
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Items))
	assert.Equal(t, "7", s.Items[1].Amount.String())
}

func TestAddingExistingIDReplaces(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(10)})
	c.EntityAdded(item{ID: 1, Amount: amt(15)})
	s := c.Snapshot()
	assert.Len(t, s.Items, 1)
	assert.Equal(t, "15", s.Aggregate.String())
}

func TestRemovingActiveClearsIt(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Active: true}, {ID: 2}})
	c.EntityRemoved(1)
	assert.Nil(t, c.Snapshot().Active)
}

func TestActiveFollowsUpdates(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Active: true}, {ID: 2}})

	c.EntityUpdated(item{ID: 1, Active: false})
	assert.Nil(t, c.Snapshot().Active, "closing the active record clears it")

	c.EntityAdded(item{ID: 3, Active: true})
	require.NotNil(t, c.Snapshot().Active)
	assert.Equal(t, int64(3), c.Snapshot().Active.ID)
}

func TestSelectionIsIndependentOfActive(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Active: true}, {ID: 2, Amount: amt(3)}})
	c.SetSelected(&item{ID: 2, Amount: amt(3)})

	s := c.Snapshot()
	require.NotNil(t, s.Active)
	require.NotNil(t, s.Selected)
	assert.Equal(t, int64(1), s.Active.ID)
	assert.Equal(t, int64(2), s.Selected.ID)

	c.EntityUpdated(item{ID: 2, Amount: amt(4)})
	assert.Equal(t, "4", c.Snapshot().Selected.Amount.String(), "selection sees the confirmed update")

	c.EntityRemoved(2)
	s = c.Snapshot()
	assert.Nil(t, s.Selected)
	require.NotNil(t, s.Active)

	c.SetSelected(&item{ID: 1})
	c.SetSelected(nil)
	assert.Nil(t, c.Snapshot().Selected)
}

func TestReloadReconcilesSelection(t *testing.T) {
	c := newItems()
	c.LoadSucceeded([]item{{ID: 1, Amount: amt(5)}, {ID: 2, Amount: amt(1)}})

	c.SetSelected(&item{ID: 2, Amount: amt(1)})
	c.LoadSucceeded([]item{{ID: 2, Amount: amt(7)}})
	require.NotNil(t, c.Snapshot().Selected)
	assert.Equal(t, "7", c.Snapshot().Selected.Amount.String(), "selection follows the reloaded record")

	c.SetSelected(&item{ID: 1, Amount: amt(5)})
	require.NotNil(t, c.Snapshot().Selected, "a record outside the list can be selected")
	c.LoadSucceeded([]item{{ID: 2, Amount: amt(7)}})
	assert.Nil(t, c.Snapshot().Selected)
}

func TestNoAggregateWithoutAmount(t *testing.T) {
	c := New(Options[item]{ID: func(i item) int64 { return i.ID }})
	c.LoadSucceeded([]item{{ID: 1, Amount: amt(5), Active: true}})
	s := c.Snapshot()
	assert.True(t, s.Aggregate.IsZero())
	assert.Nil(t, s.Active)
}

func TestTransitionsAfterCloseAreDropped(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(1)})
	c.Close()
	require.True(t, c.Closed())

	c.BeginLoad()
	c.EntityAdded(item{ID: 2, Amount: amt(2)})
	c.EntityRemoved(1)
	c.LoadFailed("late")
	c.SetSelected(&item{ID: 1})

	s := c.Snapshot()
	assert.Equal(t, []int64{1}, ids(s.Items))
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
	assert.Nil(t, s.Selected)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 1, Amount: amt(1)})
	s := c.Snapshot()
	s.Items[0].Amount = amt(1000)
	assert.Equal(t, "1", c.Snapshot().Items[0].Amount.String())
}

func TestFind(t *testing.T) {
	c := newItems()
	c.EntityAdded(item{ID: 5, Amount: amt(1)})
	got, ok := c.Find(5)
	assert.True(t, ok)
	assert.Equal(t, int64(5), got.ID)
	_, ok = c.Find(6)
	assert.False(t, ok)
}

// Aggregate must equal an independent sum after every step of any sequence.
func TestAggregateMatchesSumUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newItems()

	for step := 0; step < 2000; step++ {
		id := int64(rng.Intn(20))
		cents := decimal.New(rng.Int63n(100000), -2)
		switch rng.Intn(4) {
		case 0:
			c.EntityAdded(item{ID: id, Amount: cents})
		case 1:
			c.EntityUpdated(item{ID: id, Amount: cents})
		case 2:
			c.EntityRemoved(id)
		case 3:
			if rng.Intn(20) == 0 {
				c.LoadSucceeded([]item{{ID: id, Amount: cents}})
			}
		}

		s := c.Snapshot()
		require.True(t, s.Aggregate.Equal(sum(s.Items)), "step %d: aggregate %s != sum %s", step, s.Aggregate, sum(s.Items))

		seen := map[int64]bool{}
		for _, it := range s.Items {
			require.False(t, seen[it.ID], "step %d: duplicate id %d", step, it.ID)
			seen[it.ID] = true
		}
	}
}

// Concurrent confirmations for different records commute.
func TestConcurrentAddsCommute(t *testing.T) {
	c := newItems()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.EntityAdded(item{ID: id, Amount: amt(id)})
		}(int64(i))
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Len(t, s.Items, 50)
	assert.Equal(t, "1275", s.Aggregate.String())
}
