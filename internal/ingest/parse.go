package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/AngelCh415/lp-report/internal/models"
	"github.com/AngelCh415/lp-report/internal/reconcile"
)

// Table es una hoja ya parseada: encabezados normalizados en orden de columna
// y una fila por registro no vacío.
type Table struct {
	Headers []string            `msgpack:"h"`
	Rows    []map[string]string `msgpack:"r"`
}

var (
	spaces       = regexp.MustCompile(`\s+`)
	merchantCol  = regexp.MustCompile(`(?i)^(.+)_(mcv|rcv|contract|成果数|application|withdrawal)$`)
	costStripped = regexp.MustCompile(`[^0-9.]`)
	leadingFloat = regexp.MustCompile(`^[0-9]*(\.[0-9]*)?`)
)

func normalizeHeader(h any) string {
	return spaces.ReplaceAllString(reconcile.NormalizeValue(h), "_")
}

// ParseRows usa la primera fila como encabezado; celdas faltantes quedan en ""
// y las filas completamente vacías se descartan.
func ParseRows(values [][]any) Table {
	if len(values) == 0 {
		return Table{}
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = normalizeHeader(h)
	}
	t := Table{Headers: headers, Rows: make([]map[string]string, 0, len(values)-1)}
	for _, raw := range values[1:] {
		row := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			v := ""
			if i < len(raw) {
				v = strings.TrimSpace(cell(raw[i]))
			}
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if !empty {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// pick devuelve el primer valor "verdadero" entre las llaves: ni vacío ni
// numéricamente cero.
func pick(row map[string]string, keys ...string) string {
	for _, k := range keys {
		v := row[k]
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && f == 0 {
			continue
		}
		return v
	}
	return ""
}

// number trata lo no numérico como 0; acepta separador de miles.
func number(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// money descarta todo salvo dígitos y punto y toma el prefijo numérico.
func money(s string) float64 {
	cleaned := leadingFloat.FindString(costStripped.ReplaceAllString(s, ""))
	if cleaned == "" || cleaned == "." {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// DetectMerchants lista los prefijos de columnas de métricas por comercio en
// orden de aparición.
func DetectMerchants(headers []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range headers {
		m := merchantCol.FindStringSubmatch(h)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

func resultColumns(m string) []string {
	switch models.ParseMerchant(m) {
	case models.Mobit:
		return []string{m + "_application", m + "_contract", m + "_成果数"}
	case models.Promise:
		return []string{m + "_withdrawal", m + "_contract", m + "_成果数"}
	default:
		return []string{m + "_contract", m + "_成果数"}
	}
}

// ParseConversions abre cada fila del resumen en un registro por comercio. Se
// emite registro si alguna métrica es positiva o si el comercio es
// AlwaysIncludedMerchant.
func ParseConversions(t Table) []models.ConversionRecord {
	if len(t.Rows) == 0 {
		return []models.ConversionRecord{}
	}
	merchants := DetectMerchants(t.Headers)
	out := make([]models.ConversionRecord, 0, len(t.Rows)*len(merchants))
	for _, row := range t.Rows {
		base := models.ConversionRecord{
			Date:     pick(row, "date", "日付"),
			LPNumber: pick(row, "lp_number", "lp番号", "lp"),
			Media:    pick(row, "media", "媒体"),
			Method:   pick(row, "method", "手法"),
			Method2:  pick(row, "method2", "手法2"),
		}
		for _, m := range merchants {
			rec := base
			rec.Merchant = models.ParseMerchant(m)
			rec.MCV = number(pick(row, m+"_mcv"))
			rec.RCV = number(pick(row, m+"_rcv", m+"_rcv数"))
			rec.Results = number(pick(row, resultColumns(m)...))
			if rec.MCV > 0 || rec.RCV > 0 || rec.Results > 0 || rec.Merchant == models.AlwaysIncludedMerchant {
				out = append(out, rec)
			}
		}
	}
	return out
}

func ParseCosts(t Table) []models.CostRecord {
	out := make([]models.CostRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, models.CostRecord{
			Date:      pick(row, "date", "日付"),
			Media:     pick(row, "media"),
			Method:    pick(row, "method", "手法"),
			Method2:   pick(row, "method2", "手法2"),
			LPNumber:  pick(row, "lp_number", "lp番号"),
			TotalCost: money(pick(row, "total_cost", "消化金額", "cost")),
		})
	}
	return out
}
