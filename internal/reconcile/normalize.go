package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AngelCh415/lp-report/internal/models"
)

// YYYY/M/D o YYYY-M-D, con hora opcional detrás
var dateLike = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)

// Normalize canonicaliza un campo para comparar llaves: trim, minúsculas y
// fechas reescritas a YYYY-MM-DD.
func Normalize(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	m := dateLike.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
}

// NormalizeValue acepta celdas crudas de la hoja (nil, números, strings).
func NormalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return Normalize(t)
	case float64:
		return Normalize(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return Normalize(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return Normalize(strconv.Itoa(t))
	case int64:
		return Normalize(strconv.FormatInt(t, 10))
	default:
		return Normalize(fmt.Sprint(t))
	}
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func compositeKeyOf(date, media, lp, method, method2 string) models.CompositeKey {
	return models.CompositeKey{
		Date:     Normalize(date),
		Media:    Normalize(media),
		LPNumber: Normalize(lp),
		Method:   Normalize(method),
		Method2:  Normalize(method2),
	}
}

// ConversionKey devuelve la llave normalizada de una conversión.
func ConversionKey(r models.ConversionRecord) models.CompositeKey {
	return compositeKeyOf(r.Date, r.Media, r.LPNumber, r.Method, r.Method2)
}

// CostKey devuelve la llave normalizada de un costo.
func CostKey(c models.CostRecord) models.CompositeKey {
	return compositeKeyOf(c.Date, c.Media, c.LPNumber, c.Method, c.Method2)
}
