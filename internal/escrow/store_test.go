package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSpecs() []MilestoneSpec {
	return []MilestoneSpec{
		{Description: "Harvest", Weight: 40},
		{Description: "Quality", Weight: 30},
		{Description: "Ship", Weight: 30},
	}
}

func TestStoreCreateValidation(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		beneficiary string
		depositor   string
		amount      int64
		specs       []MilestoneSpec
	}{
		{"empty title", "", "ben", "dep", 1000, defaultSpecs()},
		{"blank title", "   ", "ben", "dep", 1000, defaultSpecs()},
		{"missing beneficiary", "t", "", "dep", 1000, defaultSpecs()},
		{"missing depositor", "t", "ben", "", 1000, defaultSpecs()},
		{"zero amount", "t", "ben", "dep", 0, defaultSpecs()},
		{"negative amount", "t", "ben", "dep", -5, defaultSpecs()},
		{"no milestones", "t", "ben", "dep", 1000, nil},
		{"empty description", "t", "ben", "dep", 1000, []MilestoneSpec{{Description: "", Weight: 100}}},
		{"zero weight", "t", "ben", "dep", 1000, []MilestoneSpec{{Description: "a", Weight: 0}, {Description: "b", Weight: 100}}},
		{"weights under 100", "t", "ben", "dep", 1000, []MilestoneSpec{{Description: "a", Weight: 40}, {Description: "b", Weight: 30}, {Description: "c", Weight: 20}}},
		{"weights over 100", "t", "ben", "dep", 1000, []MilestoneSpec{{Description: "a", Weight: 60}, {Description: "b", Weight: 60}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			_, err := store.Create(tt.title, tt.beneficiary, tt.depositor, tt.amount, tt.specs)
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			// 校验失败不得落任何部分记录
			assert.Equal(t, uint64(0), store.Count())
		})
	}
}

func TestStoreCreateSuccess(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return now })

	id, err := store.Create("Coffee batch 7", "ben", "dep", 1000, defaultSpecs())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, uint64(1), store.Count())

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Coffee batch 7", esc.Title)
	assert.Equal(t, "ben", esc.Beneficiary)
	assert.Equal(t, "dep", esc.Depositor)
	assert.Equal(t, int64(1000), esc.TotalAmount)
	assert.Equal(t, now, esc.CreatedAt)
	assert.False(t, esc.Funded)
	assert.False(t, esc.Completed)
	assert.False(t, esc.Refunded)
	require.Len(t, esc.Milestones, 3)
	for _, m := range esc.Milestones {
		assert.False(t, m.Completed)
		assert.True(t, m.CompletedAt.IsZero())
	}
}

func TestStoreSequentialIDs(t *testing.T) {
	store := NewStore()
	for i := 0; i < 5; i++ {
		id, err := store.Create("t", "ben", "dep", 100, defaultSpecs())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}
	assert.Equal(t, uint64(5), store.Count())
}

func TestStoreGetNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.Get(0)
	assert.ErrorIs(t, err, ErrEscrowNotFound)

	_, err = store.Create("t", "ben", "dep", 100, defaultSpecs())
	require.NoError(t, err)
	_, err = store.Get(1)
	assert.ErrorIs(t, err, ErrEscrowNotFound)
}

func TestStoreGetMilestone(t *testing.T) {
	store := NewStore()
	id, err := store.Create("t", "ben", "dep", 100, defaultSpecs())
	require.NoError(t, err)

	m, err := store.GetMilestone(id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Quality", m.Description)
	assert.Equal(t, 30, m.Weight)

	_, err = store.GetMilestone(id, 3)
	assert.ErrorIs(t, err, ErrMilestoneIndexInvalid)
	_, err = store.GetMilestone(id, -1)
	assert.ErrorIs(t, err, ErrMilestoneIndexInvalid)
	_, err = store.GetMilestone(99, 0)
	assert.ErrorIs(t, err, ErrEscrowNotFound)
}

func TestStoreGetReturnsClone(t *testing.T) {
	store := NewStore()
	id, err := store.Create("t", "ben", "dep", 100, defaultSpecs())
	require.NoError(t, err)

	esc, err := store.Get(id)
	require.NoError(t, err)
	esc.Title = "tampered"
	esc.Milestones[0].Completed = true

	fresh, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "t", fresh.Title)
	assert.False(t, fresh.Milestones[0].Completed)
}

func TestStoreCreateEmitsEvent(t *testing.T) {
	store := NewStore()
	emitter := &captureEmitter{}
	store.SetEmitter(emitter)

	id, err := store.Create("t", "ben", "dep", 1000, defaultSpecs())
	require.NoError(t, err)

	require.Len(t, emitter.events, 1)
	evt := emitter.events[0]
	assert.Equal(t, EventTypeCreated, evt.Type)
	assert.Equal(t, id, evt.EscrowID)
	assert.Equal(t, "t", evt.Attributes["title"])
	assert.Equal(t, "ben", evt.Attributes["beneficiary"])
	assert.Equal(t, "dep", evt.Attributes["depositor"])
	assert.Equal(t, "1000", evt.Attributes["total_amount"])
}

func TestStoreList(t *testing.T) {
	store := NewStore()
	for i := 0; i < 3; i++ {
		_, err := store.Create("t", "ben", "dep", 100, defaultSpecs())
		require.NoError(t, err)
	}
	list := store.List()
	require.Len(t, list, 3)
	for i, esc := range list {
		assert.Equal(t, uint64(i), esc.ID)
	}
}
