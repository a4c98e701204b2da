package metrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/AngelCh415/lp-report/internal/models"
	"github.com/AngelCh415/lp-report/internal/reconcile"
)

// Filter devuelve la subsecuencia de records que cumple los criterios.
// Una fecha que no se puede interpretar no restringe.
func Filter(records []models.ConversionRecord, c models.Criteria) []models.ConversionRecord {
	start, hasStart := parseDay(c.StartDate)
	end, hasEnd := parseDay(c.EndDate)

	out := make([]models.ConversionRecord, 0, len(records))
	for _, r := range records {
		if c.Media != "" && r.Media != c.Media {
			continue
		}
		if c.Method != "" && r.Method != c.Method {
			continue
		}
		if c.Method2 != "" && r.Method2 != c.Method2 {
			continue
		}
		if c.LPNumber != "" && r.LPNumber != c.LPNumber {
			continue
		}
		if hasStart || hasEnd {
			if d, ok := parseDay(r.Date); ok {
				if hasStart && d.Before(start) {
					continue
				}
				if hasEnd && d.After(end) {
					continue
				}
			}
		}
		out = append(out, r)
	}
	return out
}

func parseDay(s string) (time.Time, bool) {
	n := reconcile.Normalize(s)
	if n == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", n)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidDay reporta si s es vacío o una fecha interpretable.
func ValidDay(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, ok := parseDay(s)
	return ok
}

const noneLP = "LP_None"

var lpPattern = regexp.MustCompile(`(?i)^LP(\d+)(?:-(\d+))?$`)

type lpID struct {
	none         bool
	ok           bool
	major, minor int
	raw          string
}

func parseLP(s string) lpID {
	id := lpID{raw: s}
	t := strings.TrimSpace(s)
	if t == "" || t == noneLP {
		id.none = true
		return id
	}
	m := lpPattern.FindStringSubmatch(t)
	if m == nil {
		return id
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return id
	}
	var minor int
	if m[2] != "" {
		if minor, err = strconv.Atoi(m[2]); err != nil {
			return id
		}
	}
	id.ok, id.major, id.minor = true, major, minor
	return id
}

// SortIdentifiers ordena números de LP: vacíos/LP_None primero, luego
// LP<n>[-<m>] numérico y el resto por collation con números.
func SortIdentifiers(ids []string) []string {
	parsed := make([]lpID, len(ids))
	for i, s := range ids {
		parsed[i] = parseLP(s)
	}
	col := collate.New(language.Und, collate.Numeric, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)

	sort.SliceStable(parsed, func(i, j int) bool {
		return compareLP(col, parsed[i], parsed[j]) < 0
	})

	out := make([]string, len(parsed))
	for i, p := range parsed {
		out[i] = p.raw
	}
	return out
}

func compareLP(col *collate.Collator, a, b lpID) int {
	switch {
	case a.none && b.none:
		return 0
	case a.none:
		return -1
	case b.none:
		return 1
	}
	if a.ok && b.ok {
		if a.major != b.major {
			return cmpInt(a.major, b.major)
		}
		return cmpInt(a.minor, b.minor)
	}
	return col.CompareString(a.raw, b.raw)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Options arma las opciones de los filtros: únicos no vacíos en orden de
// aparición, con los LP ordenados.
func Options(records []models.ConversionRecord) models.FilterOptions {
	media := newUniq()
	method := newUniq()
	method2 := newUniq()
	lp := newUniq()
	for _, r := range records {
		media.add(r.Media)
		method.add(r.Method)
		method2.add(r.Method2)
		lp.add(r.LPNumber)
	}
	return models.FilterOptions{
		Media:    media.list,
		Method:   method.list,
		Method2:  method2.list,
		LPNumber: SortIdentifiers(lp.list),
	}
}

type uniq struct {
	seen map[string]struct{}
	list []string
}

func newUniq() *uniq { return &uniq{seen: map[string]struct{}{}, list: []string{}} }

func (u *uniq) add(s string) {
	if s == "" {
		return
	}
	if _, ok := u.seen[s]; ok {
		return
	}
	u.seen[s] = struct{}{}
	u.list = append(u.list, s)
}
