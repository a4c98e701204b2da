package metrics

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AngelCh415/lp-report/internal/models"
	"github.com/AngelCh415/lp-report/internal/store"
)

var ErrNoData = errors.New("no dataset loaded yet")

type Service struct{ st *store.MemoryStore }

func NewService(st *store.MemoryStore) *Service { return &Service{st: st} }

type Meta struct {
	LoadedAt     time.Time `json:"loaded_at"`
	Stale        bool      `json:"stale"`
	UsingFixture bool      `json:"using_fixture"`
	Records      int       `json:"records"`
	Filtered     int       `json:"filtered"`
}

type Report struct {
	Section                 string                     `json:"section"`
	Criteria                models.Criteria            `json:"criteria"`
	Assumptions             models.Assumptions         `json:"assumptions"`
	Merchants               []models.MerchantAggregate `json:"merchants"`
	Total                   models.PortfolioAggregate  `json:"total"`
	AdjustedEstAllowableCpa float64                    `json:"adjustedEstAllowableCpa"`
	Meta                    Meta                       `json:"meta"`
}

// CriteriaFromQuery lee from/to (o startDate/endDate) y los filtros categóricos.
func CriteriaFromQuery(v url.Values) (models.Criteria, error) {
	c := models.Criteria{
		StartDate: first(v, "from", "startDate"),
		EndDate:   first(v, "to", "endDate"),
		Media:     v.Get("media"),
		Method:    v.Get("method"),
		Method2:   v.Get("method2"),
		LPNumber:  v.Get("lp_number"),
	}
	if !ValidDay(c.StartDate) {
		return c, fmt.Errorf("bad from date %q", c.StartDate)
	}
	if !ValidDay(c.EndDate) {
		return c, fmt.Errorf("bad to date %q", c.EndDate)
	}
	return c, nil
}

// Report recalcula todo desde el snapshot vigente: filtra y agrega por
// comercio y total con los supuestos de la sección.
func (s *Service) Report(v url.Values) (Report, error) {
	c, err := CriteriaFromQuery(v)
	if err != nil {
		return Report{}, err
	}
	snap, ok := s.st.Snapshot()
	if !ok {
		return Report{}, ErrNoData
	}
	section := strings.TrimSpace(v.Get("section"))
	if section == "" {
		section = store.DefaultSection
	}
	a := s.st.Assumptions(section)
	return Build(section, snap, c, a), nil
}

// Build es el recálculo puro usado por Report.
func Build(section string, snap store.Snapshot, c models.Criteria, a models.Assumptions) Report {
	filtered := Filter(snap.Records, c)
	total := AggregateMetrics(filtered, a)
	return Report{
		Section:                 section,
		Criteria:                c,
		Assumptions:             a,
		Merchants:               AggregateByMerchant(filtered, a),
		Total:                   total,
		AdjustedEstAllowableCpa: AdjustEstAllowableCpa(total.EstAllowableCpa, a.DiffRate),
		Meta: Meta{
			LoadedAt:     snap.LoadedAt,
			Stale:        snap.Stale,
			UsingFixture: snap.UsingFixture,
			Records:      len(snap.Records),
			Filtered:     len(filtered),
		},
	}
}

// Ready es true en cuanto hay un snapshot publicado, aunque sea de cache.
func (s *Service) Ready() bool { return s.st.Ready() }

func (s *Service) FilterOptions() (models.FilterOptions, error) {
	snap, ok := s.st.Snapshot()
	if !ok {
		return models.FilterOptions{}, ErrNoData
	}
	return snap.Options, nil
}

func (s *Service) Assumptions(section string) models.Assumptions { return s.st.Assumptions(section) }

// AssumptionsPatch trae solo los valores a cambiar.
type AssumptionsPatch struct {
	UnitPrices map[models.Merchant]float64 `json:"unitPrices"`
	EstRates   map[models.Merchant]float64 `json:"unitEstRates"`
	DiffRate   *float64                    `json:"diffRate"`
}

// UpdateAssumptions mezcla el patch con los supuestos de la sección; el
// dataset no se toca.
func (s *Service) UpdateAssumptions(section string, p AssumptionsPatch) models.Assumptions {
	return s.st.UpdateAssumptions(section, func(a *models.Assumptions) {
		for k, v := range p.UnitPrices {
			a.UnitPrices[models.ParseMerchant(string(k))] = v
		}
		for k, v := range p.EstRates {
			a.EstRates[models.ParseMerchant(string(k))] = v
		}
		if p.DiffRate != nil {
			a.DiffRate = *p.DiffRate
		}
	})
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}
