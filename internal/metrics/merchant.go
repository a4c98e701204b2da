package metrics

import (
	"sort"

	"github.com/AngelCh415/lp-report/internal/models"
)

type sums struct {
	mcv, rcv, results, cost float64
}

// AggregateByMerchant deriva los KPIs por comercio. Siempre incluye los
// comercios base aunque no tengan actividad; los demás van al final en orden
// de aparición.
func AggregateByMerchant(records []models.ConversionRecord, a models.Assumptions) []models.MerchantAggregate {
	stats := make(map[models.Merchant]*sums, len(models.BaselineMerchants))
	order := make([]models.Merchant, 0, len(models.BaselineMerchants))
	for _, m := range models.BaselineMerchants {
		stats[m] = &sums{}
		order = append(order, m)
	}

	var totalRCV float64
	for _, r := range records {
		m := models.ParseMerchant(string(r.Merchant))
		if m == "" {
			continue
		}
		s, ok := stats[m]
		if !ok {
			s = &sums{}
			stats[m] = s
			order = append(order, m)
		}
		s.mcv += r.MCV
		s.rcv += r.RCV
		s.results += r.Results
		s.cost += r.Cost
		totalRCV += r.RCV
	}

	out := make([]models.MerchantAggregate, 0, len(order))
	for _, m := range order {
		out = append(out, deriveMerchant(m, *stats[m], totalRCV, a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortRank(out[i].Merchant) < sortRank(out[j].Merchant)
	})
	return out
}

func deriveMerchant(m models.Merchant, s sums, totalRCV float64, a models.Assumptions) models.MerchantAggregate {
	price := a.PriceFor(m)
	est := a.EstRateFor(m)

	rCVRatio := pct(s.rcv, totalRCV)
	conversionRate := pct(s.results, s.rcv)

	return models.MerchantAggregate{
		Merchant:            m,
		MCV:                 s.mcv,
		RCV:                 s.rcv,
		Results:             s.results,
		Cost:                s.cost,
		UnitPrice:           price,
		MCPA:                safeDiv(s.cost, s.mcv),
		RCVR:                pct(s.rcv, s.mcv),
		RCVRatio:            rCVRatio,
		ConversionRate:      conversionRate,
		CvrUnitPrice:        conversionRate / 100 * price,
		AllowableCpaPerItem: allowableCpa(rCVRatio, conversionRate, price),
		ActualRoas:          pct(s.results*price, s.cost),
		RCPA:                safeDiv(s.cost, s.rcv),
		EstConversionRate:   est,
		EstAllowableCpa:     allowableCpa(rCVRatio, est, price),
		EstRoas:             pct(s.rcv*(est/100)*price, s.cost),
	}
}

// (ratio/100) * (rate/100) * precio
func allowableCpa(ratio, rate, price float64) float64 {
	return (ratio / 100) * (rate / 100) * price
}

func sortRank(m models.Merchant) int {
	if m.Known() {
		return m.Rank()
	}
	return len(models.BaselineMerchants)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func pct(a, b float64) float64 { return safeDiv(a, b) * 100 }
