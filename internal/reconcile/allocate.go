package reconcile

import (
	"math"

	"github.com/AngelCh415/lp-report/internal/models"
)

// lp_number de filas de costo sin asignar; nunca participan del reparto
var unassignedLP = map[string]struct{}{"未振分": {}, "none": {}}

// Unassigned reporta si un lp_number de costo queda fuera del matching.
func Unassigned(lp string) bool {
	n := Normalize(lp)
	if n == "" {
		return true
	}
	_, ok := unassignedLP[n]
	return ok
}

// Stats resume un pase de reparto.
type Stats struct {
	Direct      int `json:"direct"`
	Fallback    int `json:"fallback"`
	Unallocated int `json:"unallocated"`
	Excluded    int `json:"excluded"` // filas de costo descartadas por lp sin asignar
}

// Allocate asigna costo a cada conversión. Devuelve una copia con el mismo
// largo y orden que conversions; la entrada no se modifica.
//
// Pase 1: match exacto por CompositeKey, dividido en partes iguales entre las
// conversiones que comparten llave. Pase 2: lo que resta del total
// (fecha, medio) se reparte en partes iguales entre las no matcheadas.
func Allocate(conversions []models.ConversionRecord, costs []models.CostRecord) ([]models.ConversionRecord, Stats) {
	var st Stats

	granular := make(map[models.CompositeKey]float64)
	byMedia := make(map[models.MediaKey]float64)
	for _, c := range costs {
		if Unassigned(c.LPNumber) {
			st.Excluded++
			continue
		}
		k := CostKey(c)
		v := maxf(c.TotalCost)
		granular[k] += v
		byMedia[k.MediaKey()] += v
	}

	keys := make([]models.CompositeKey, len(conversions))
	groupSize := make(map[models.CompositeKey]int)
	for i, r := range conversions {
		keys[i] = ConversionKey(r)
		groupSize[keys[i]]++
	}

	out := make([]models.ConversionRecord, len(conversions))
	matched := make([]bool, len(conversions))
	assigned := make(map[models.MediaKey]float64)
	unmatched := make(map[models.MediaKey]int)

	// pase 1: directo
	for i, r := range conversions {
		r.Cost = 0
		k := keys[i]
		if v := granular[k]; v > 0 {
			r.Cost = v / float64(groupSize[k])
			matched[i] = true
			assigned[k.MediaKey()] += r.Cost
			st.Direct++
		} else {
			unmatched[k.MediaKey()]++
		}
		out[i] = r
	}

	// pase 2: respaldo por (fecha, medio), sin doble conteo
	remaining := make(map[models.MediaKey]float64, len(unmatched))
	for mk := range unmatched {
		if rest := byMedia[mk] - assigned[mk]; rest > 0 {
			remaining[mk] = rest
		}
	}
	for i := range out {
		if matched[i] {
			continue
		}
		mk := keys[i].MediaKey()
		if rest, ok := remaining[mk]; ok {
			out[i].Cost = rest / float64(unmatched[mk])
			st.Fallback++
			continue
		}
		st.Unallocated++
	}
	return out, st
}

func maxf(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
