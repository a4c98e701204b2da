package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/lp-report/internal/models"
)

func TestSnapshotIsCopied(t *testing.T) {
	st := NewMemoryStore(models.Assumptions{})
	_, ok := st.Snapshot()
	assert.False(t, ok)
	assert.False(t, st.Ready())

	recs := []models.ConversionRecord{{Merchant: models.Acom, MCV: 1}}
	st.Publish(Snapshot{Records: recs, LoadedAt: time.Now(), Stale: true})
	recs[0].MCV = 99

	snap, ok := st.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 1.0, snap.Records[0].MCV)
	assert.True(t, st.Ready())
	assert.False(t, st.Fresh())

	snap.Records[0].MCV = 50
	again, _ := st.Snapshot()
	assert.Equal(t, 1.0, again.Records[0].MCV)
}

func TestAssumptionsPerSection(t *testing.T) {
	defaults := models.Assumptions{UnitPrices: map[models.Merchant]float64{models.Acom: 85000}}
	st := NewMemoryStore(defaults)

	a := st.Assumptions("")
	assert.Equal(t, 85000.0, a.UnitPrices[models.Acom])

	a.UnitPrices[models.Acom] = 1
	assert.Equal(t, 85000.0, st.Assumptions("").UnitPrices[models.Acom])

	got := st.UpdateAssumptions("lp-b", func(a *models.Assumptions) {
		a.UnitPrices[models.Acom] = 65000
		a.DiffRate = 10
	})
	assert.Equal(t, 65000.0, got.UnitPrices[models.Acom])

	assert.Equal(t, 65000.0, st.Assumptions("lp-b").UnitPrices[models.Acom])
	assert.Equal(t, 85000.0, st.Assumptions(DefaultSection).UnitPrices[models.Acom])
	assert.Equal(t, 10.0, st.Assumptions("lp-b").DiffRate)
}

func TestUpdateAssumptionsConcurrentPatchesAllLand(t *testing.T) {
	st := NewMemoryStore(models.Assumptions{})
	merchants := []models.Merchant{models.Acom, models.Promise, models.Mobit, models.Aiful, "lake", "plaza"}

	var wg sync.WaitGroup
	for round := 0; round < 50; round++ {
		for i, m := range merchants {
			wg.Add(1)
			go func(m models.Merchant, v float64) {
				defer wg.Done()
				st.UpdateAssumptions("promo", func(a *models.Assumptions) {
					a.UnitPrices[m] = v
				})
			}(m, float64(i+1))
		}
	}
	wg.Wait()

	got := st.Assumptions("promo")
	require.Len(t, got.UnitPrices, len(merchants))
	for i, m := range merchants {
		assert.Equal(t, float64(i+1), got.UnitPrices[m], string(m))
	}
}
