package models

import "strings"

// Merchant es el identificador de producto, siempre en minúsculas.
type Merchant string

const (
	Acom    Merchant = "acom"
	Promise Merchant = "promise"
	Mobit   Merchant = "mobit"
	Aiful   Merchant = "aiful"
)

// AlwaysIncludedMerchant genera registro por fila aunque todas sus métricas sean cero.
const AlwaysIncludedMerchant = Aiful

// orden canónico de la tabla; los desconocidos van al final
var BaselineMerchants = []Merchant{Acom, Promise, Mobit, Aiful}

func ParseMerchant(s string) Merchant { return Merchant(strings.ToLower(strings.TrimSpace(s))) }

// Rank devuelve la posición canónica o -1 si no es un comercio base.
func (m Merchant) Rank() int {
	for i, b := range BaselineMerchants {
		if b == m {
			return i
		}
	}
	return -1
}

func (m Merchant) Known() bool { return m.Rank() >= 0 }

type ConversionRecord struct {
	Date     string   `json:"date" msgpack:"date"`
	LPNumber string   `json:"lp_number" msgpack:"lp_number"`
	Media    string   `json:"media" msgpack:"media"`
	Method   string   `json:"method" msgpack:"method"`
	Method2  string   `json:"method2" msgpack:"method2"`
	Merchant Merchant `json:"merchant" msgpack:"merchant"`
	MCV      float64  `json:"mCV" msgpack:"mcv"`
	RCV      float64  `json:"rCV" msgpack:"rcv"`
	Results  float64  `json:"results" msgpack:"results"`
	Cost     float64  `json:"cost" msgpack:"cost"`
}

type CostRecord struct {
	Date      string  `json:"date" msgpack:"date"`
	Media     string  `json:"media" msgpack:"media"`
	Method    string  `json:"method" msgpack:"method"`
	Method2   string  `json:"method2" msgpack:"method2"`
	LPNumber  string  `json:"lp_number" msgpack:"lp_number"`
	TotalCost float64 `json:"total_cost" msgpack:"total_cost"`
}

// CompositeKey es la llave exacta costo<->conversión. Componentes ya normalizados.
type CompositeKey struct {
	Date     string
	Media    string
	LPNumber string
	Method   string
	Method2  string
}

// MediaKey agrupa por (fecha, medio) para el reparto de respaldo.
type MediaKey struct {
	Date  string
	Media string
}

func (k CompositeKey) MediaKey() MediaKey { return MediaKey{Date: k.Date, Media: k.Media} }

type MerchantAggregate struct {
	Merchant            Merchant `json:"merchant"`
	MCV                 float64  `json:"mCV"`
	RCV                 float64  `json:"rCV"`
	Results             float64  `json:"results"`
	Cost                float64  `json:"cost"`
	UnitPrice           float64  `json:"unitPrice"`
	MCPA                float64  `json:"mCPA"`
	RCVR                float64  `json:"rCVR"`
	RCVRatio            float64  `json:"rCVRatio"`
	ConversionRate      float64  `json:"conversionRate"`
	CvrUnitPrice        float64  `json:"cvrUnitPrice"`
	AllowableCpaPerItem float64  `json:"allowableCpaPerItem"`
	ActualRoas          float64  `json:"actualRoas"`
	RCPA                float64  `json:"rCPA"`
	EstConversionRate   float64  `json:"estConversionRate"`
	EstAllowableCpa     float64  `json:"estAllowableCpa"`
	EstRoas             float64  `json:"estRoas"`
}

type PortfolioAggregate struct {
	MCV             float64 `json:"mCV"`
	RCV             float64 `json:"rCV"`
	Results         float64 `json:"results"`
	Cost            float64 `json:"cost"`
	MCPA            float64 `json:"mCPA"`
	RCVR            float64 `json:"rCVR"`
	RCPA            float64 `json:"rCPA"`
	ConversionRate  float64 `json:"conversionRate"`
	ActualRoas      float64 `json:"actualRoas"`
	AllowableCpa    float64 `json:"allowableCpa"`
	EstAllowableCpa float64 `json:"estAllowableCpa"`
	EstRoas         float64 `json:"estRoas"`
}

const (
	DefaultUnitPrice = 50000.0
	DefaultEstRate   = 20.0
)

// Assumptions son los supuestos editables (precio unitario, tasa estimada, diff rate).
type Assumptions struct {
	UnitPrices      map[Merchant]float64 `json:"unitPrices"`
	EstRates        map[Merchant]float64 `json:"unitEstRates"`
	DiffRate        float64              `json:"diffRate"`
	FallbackPrice   float64              `json:"fallbackPrice,omitempty"`
	FallbackEstRate float64              `json:"fallbackEstRate,omitempty"`
}

// PriceFor: un valor ausente o cero cae al default.
func (a Assumptions) PriceFor(m Merchant) float64 {
	if p := a.UnitPrices[m]; p != 0 {
		return p
	}
	if a.FallbackPrice != 0 {
		return a.FallbackPrice
	}
	return DefaultUnitPrice
}

func (a Assumptions) EstRateFor(m Merchant) float64 {
	if r := a.EstRates[m]; r != 0 {
		return r
	}
	if a.FallbackEstRate != 0 {
		return a.FallbackEstRate
	}
	return DefaultEstRate
}

func (a Assumptions) Clone() Assumptions {
	out := a
	out.UnitPrices = make(map[Merchant]float64, len(a.UnitPrices))
	for k, v := range a.UnitPrices {
		out.UnitPrices[k] = v
	}
	out.EstRates = make(map[Merchant]float64, len(a.EstRates))
	for k, v := range a.EstRates {
		out.EstRates[k] = v
	}
	return out
}

// Criteria: campo vacío = sin restricción
type Criteria struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Media     string `json:"media"`
	Method    string `json:"method"`
	Method2   string `json:"method2"`
	LPNumber  string `json:"lp_number"`
}

type FilterOptions struct {
	Media    []string `json:"media"`
	Method   []string `json:"method"`
	Method2  []string `json:"method2"`
	LPNumber []string `json:"lp_number"`
}
