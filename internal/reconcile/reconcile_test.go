package reconcile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/lp-report/internal/models"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"  Acom ", "acom"},
		{"2024/1/5", "2024-01-05"},
		{"2024-01-05", "2024-01-05"},
		{"2024/12/31 13:45:00", "2024-12-31"},
		{"2024/1-5", "2024-01-05"},
		{"LP10-2", "lp10-2"},
		{"未振分", "未振分"},
		{"24/1/5", "24/1/5"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "12", NormalizeValue(12.0))
	assert.Equal(t, "1.5", NormalizeValue(1.5))
	assert.Equal(t, "7", NormalizeValue(7))
	assert.Equal(t, "2025-01-28", NormalizeValue(" 2025/1/28 "))
	assert.Equal(t, "true", NormalizeValue(true))
}

func conv(date, media, lp, method, method2 string, m models.Merchant) models.ConversionRecord {
	return models.ConversionRecord{Date: date, Media: media, LPNumber: lp, Method: method, Method2: method2, Merchant: m}
}

func TestAllocateSplitsGranularMatchAcrossGroup(t *testing.T) {
	conversions := []models.ConversionRecord{
		conv("2025-01-28", "Acom", "LP1", "Direct", "A", models.Acom),
		conv("2025/1/28", "acom ", "lp1", "direct", "a", models.Promise),
	}
	costs := []models.CostRecord{
		{Date: "2025-01-28", Media: "Acom", LPNumber: "LP1", Method: "Direct", Method2: "A", TotalCost: 4000},
		{Date: "2025-01-28", Media: "Acom", LPNumber: "LP1", Method: "Direct", Method2: "A", TotalCost: 6000},
	}

	out, st := Allocate(conversions, costs)
	require.Len(t, out, 2)
	assert.InDelta(t, 5000, out[0].Cost, 1e-9)
	assert.InDelta(t, 5000, out[1].Cost, 1e-9)
	assert.Equal(t, 2, st.Direct)
	assert.Equal(t, models.Promise, out[1].Merchant)
	assert.Zero(t, conversions[0].Cost, "input must not be mutated")
}

func TestAllocateMediaFallbackSplitsEvenly(t *testing.T) {
	conversions := []models.ConversionRecord{
		conv("2025-01-28", "M", "LP1", "", "", models.Acom),
		conv("2025-01-28", "M", "LP2", "", "", models.Acom),
		conv("2025-01-28", "M", "LP3", "", "", models.Acom),
	}
	costs := []models.CostRecord{
		{Date: "2025-01-28", Media: "M", LPNumber: "LP9", TotalCost: 9000},
	}

	out, st := Allocate(conversions, costs)
	for _, r := range out {
		assert.InDelta(t, 3000, r.Cost, 1e-9)
	}
	assert.Equal(t, 3, st.Fallback)
	assert.Zero(t, st.Direct)
}

func TestAllocateFallbackOnlyDistributesRemainder(t *testing.T) {
	conversions := []models.ConversionRecord{
		conv("2025-01-28", "M", "LP1", "x", "", models.Acom),
		conv("2025-01-28", "M", "LP2", "x", "", models.Acom),
		conv("2025-01-28", "M", "LP3", "x", "", models.Acom),
	}
	costs := []models.CostRecord{
		{Date: "2025-01-28", Media: "M", LPNumber: "LP1", Method: "x", TotalCost: 1000},
		{Date: "2025-01-28", Media: "M", LPNumber: "LP8", Method: "x", TotalCost: 3000},
	}

	out, st := Allocate(conversions, costs)
	assert.InDelta(t, 1000, out[0].Cost, 1e-9)
	assert.InDelta(t, 1500, out[1].Cost, 1e-9)
	assert.InDelta(t, 1500, out[2].Cost, 1e-9)
	assert.Equal(t, 1, st.Direct)
	assert.Equal(t, 2, st.Fallback)
}

func TestAllocateIgnoresUnassignedRows(t *testing.T) {
	conversions := []models.ConversionRecord{
		conv("2025-01-28", "M", "LP1", "", "", models.Acom),
		conv("2025-01-28", "M", "未振分", "", "", models.Acom),
	}
	costs := []models.CostRecord{
		{Date: "2025-01-28", Media: "M", LPNumber: "未振分", TotalCost: 10000},
		{Date: "2025-01-28", Media: "M", LPNumber: " NONE ", TotalCost: 10000},
		{Date: "2025-01-28", Media: "M", LPNumber: "", TotalCost: 10000},
	}

	out, st := Allocate(conversions, costs)
	for _, r := range out {
		assert.Zero(t, r.Cost)
	}
	assert.Equal(t, 3, st.Excluded)
	assert.Equal(t, 2, st.Unallocated)
}

func TestAllocateClampsNonFiniteAndNegativeCosts(t *testing.T) {
	conversions := []models.ConversionRecord{
		conv("2025-01-28", "A", "LP1", "", "", models.Acom),
		conv("2025-01-28", "B", "LP1", "", "", models.Acom),
	}
	costs := []models.CostRecord{
		{Date: "2025-01-28", Media: "A", LPNumber: "LP1", TotalCost: math.Inf(1)},
		{Date: "2025-01-28", Media: "A", LPNumber: "LP1", TotalCost: 500},
		{Date: "2025-01-28", Media: "B", LPNumber: "LP1", TotalCost: math.NaN()},
		{Date: "2025-01-28", Media: "B", LPNumber: "LP1", TotalCost: -300},
	}

	out, _ := Allocate(conversions, costs)
	require.Len(t, out, 2)
	assert.Equal(t, 500.0, out[0].Cost)
	assert.Zero(t, out[1].Cost)
}

func TestAllocateEmptyInputs(t *testing.T) {
	out, st := Allocate(nil, nil)
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, st)

	conversions := []models.ConversionRecord{conv("2025-01-28", "M", "LP1", "", "", models.Acom)}
	out, _ = Allocate(conversions, nil)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].Cost)
}

func TestAllocateNeverExceedsMediaTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dates := []string{"2025-01-01", "2025/1/2"}
	medias := []string{"A", "b"}
	lps := []string{"LP1", "LP2", "LP3", "未振分", ""}
	methods := []string{"x", "y"}
	pick := func(xs []string) string { return xs[rng.Intn(len(xs))] }

	for round := 0; round < 200; round++ {
		var conversions []models.ConversionRecord
		for i := 0; i < rng.Intn(12); i++ {
			conversions = append(conversions, conv(pick(dates), pick(medias), pick(lps), pick(methods), "", models.Acom))
		}
		var costs []models.CostRecord
		for i := 0; i < rng.Intn(8); i++ {
			costs = append(costs, models.CostRecord{
				Date: pick(dates), Media: pick(medias), LPNumber: pick(lps), Method: pick(methods),
				TotalCost: float64(rng.Intn(10000)),
			})
		}

		out, _ := Allocate(conversions, costs)

		totals := map[models.MediaKey]float64{}
		for _, c := range costs {
			if Unassigned(c.LPNumber) {
				continue
			}
			totals[CostKey(c).MediaKey()] += c.TotalCost
		}
		got := map[models.MediaKey]float64{}
		for _, r := range out {
			require.GreaterOrEqual(t, r.Cost, 0.0)
			got[ConversionKey(r).MediaKey()] += r.Cost
		}
		for k, v := range got {
			assert.LessOrEqual(t, v, totals[k]+1e-6, "round %d key %+v", round, k)
		}
	}
}
