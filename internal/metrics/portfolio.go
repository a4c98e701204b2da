package metrics

import (
	"github.com/AngelCh415/lp-report/internal/models"
)

// AggregateMetrics calcula los KPIs del total. Los CPA permitidos y el ROAS
// estimado se recalculan por comercio contra los mismos totales filtrados;
// no son la suma de las filas de AggregateByMerchant.
func AggregateMetrics(records []models.ConversionRecord, a models.Assumptions) models.PortfolioAggregate {
	var t sums
	groups := make(map[models.Merchant]*sums)
	order := make([]models.Merchant, 0)
	var revenue float64

	for _, r := range records {
		t.mcv += r.MCV
		t.rcv += r.RCV
		t.results += r.Results
		t.cost += r.Cost

		// el comercio vacío también forma grupo y se valúa con el precio de respaldo
		m := models.ParseMerchant(string(r.Merchant))
		g, ok := groups[m]
		if !ok {
			g = &sums{}
			groups[m] = g
			order = append(order, m)
		}
		g.rcv += r.RCV
		g.results += r.Results

		revenue += r.Results * a.PriceFor(m)
	}

	var groupRCV float64
	for _, m := range order {
		groupRCV += groups[m].rcv
	}

	var allowable, estAllowable, estRevenue float64
	for _, m := range order {
		g := groups[m]
		price := a.PriceFor(m)
		est := a.EstRateFor(m)
		ratio := pct(g.rcv, groupRCV)
		rate := pct(g.results, g.rcv)

		allowable += allowableCpa(ratio, rate, price)
		estAllowable += allowableCpa(ratio, est, price)
		estRevenue += g.rcv * (est / 100) * price
	}

	return models.PortfolioAggregate{
		MCV:             t.mcv,
		RCV:             t.rcv,
		Results:         t.results,
		Cost:            t.cost,
		MCPA:            safeDiv(t.cost, t.mcv),
		RCVR:            pct(t.rcv, t.mcv),
		RCPA:            safeDiv(t.cost, t.rcv),
		ConversionRate:  pct(t.results, t.rcv),
		ActualRoas:      pct(revenue, t.cost),
		AllowableCpa:    allowable,
		EstAllowableCpa: estAllowable,
		EstRoas:         pct(estRevenue, t.cost),
	}
}

// AdjustEstAllowableCpa aplica el diff rate de presentación; no se guarda.
func AdjustEstAllowableCpa(estAllowableCpa, diffRate float64) float64 {
	return estAllowableCpa * (1 + diffRate/100)
}
