package export

import (
	"encoding/csv"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AngelCh415/lp-report/internal/metrics"
	"github.com/AngelCh415/lp-report/internal/models"
)

const (
	TotalLabel = "TOTAL"
	missing    = "-"
)

var printer = message.NewPrinter(language.Japanese)

// Table es una grilla de strings lista para mostrar o volcar a CSV.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	// AdjustedEstAllowableCpa es el 許容CPA(想定) total con el diff rate aplicado.
	AdjustedEstAllowableCpa string `json:"adjustedEstAllowableCpa,omitempty"`
}

// Currency: yen redondeado al entero con separador de miles.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	n := decimal.NewFromFloat(v).Round(0).IntPart()
	if n < 0 {
		return "-￥" + printer.Sprintf("%d", -n)
	}
	return "￥" + printer.Sprintf("%d", n)
}

func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

func Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return printer.Sprintf("%d", decimal.NewFromFloat(v).Round(0).IntPart())
}

// plain redondea sin símbolo ni separadores, para CSV.
func plain(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return decimal.NewFromFloat(v).Round(0).String()
}

func label(m models.Merchant) string { return strings.ToUpper(string(m)) }

var displayHeader = []string{
	"商材名", "mCV", "rCV", "成果数", "広告費", "mCPA", "rCVR", "rCV比率", "成果率",
	"単価", "成果単価", "許容CPA", "ROAS", "rCPA", "成果率(想定)", "許容CPA(想定)", "ROAS(想定)",
}

// Build arma la tabla de pantalla: una fila por comercio y la fila TOTAL.
func Build(rep metrics.Report) Table {
	t := Table{Header: displayHeader, Rows: make([][]string, 0, len(rep.Merchants)+1)}
	for _, m := range rep.Merchants {
		t.Rows = append(t.Rows, []string{
			label(m.Merchant),
			Number(m.MCV), Number(m.RCV), Number(m.Results),
			Currency(m.Cost), Currency(m.MCPA),
			Percent(m.RCVR), Percent(m.RCVRatio), Percent(m.ConversionRate),
			Currency(m.UnitPrice), Currency(m.CvrUnitPrice), Currency(m.AllowableCpaPerItem),
			Percent(m.ActualRoas), Currency(m.RCPA),
			Percent(m.EstConversionRate), Currency(m.EstAllowableCpa), Percent(m.EstRoas),
		})
	}
	tot := rep.Total
	t.Rows = append(t.Rows, []string{
		TotalLabel,
		Number(tot.MCV), Number(tot.RCV), Number(tot.Results),
		Currency(tot.Cost), Currency(tot.MCPA),
		Percent(tot.RCVR), missing, Percent(tot.ConversionRate),
		missing, missing, Currency(tot.AllowableCpa),
		Percent(tot.ActualRoas), Currency(tot.RCPA),
		missing, Currency(tot.EstAllowableCpa), Percent(tot.EstRoas),
	})
	t.AdjustedEstAllowableCpa = Currency(rep.AdjustedEstAllowableCpa)
	return t
}

var csvHeader = []string{"商材名", "mCV", "rCV", "rCVR", "成果数", "成果率", "単価", "許容CPA", "成果率(想定)", "許容CPA(想定)"}

// CSVTable es la descarga del reporte: montos sin formato, tasas con %.
func CSVTable(rep metrics.Report) Table {
	t := Table{Header: csvHeader, Rows: make([][]string, 0, len(rep.Merchants)+1)}
	for _, m := range rep.Merchants {
		t.Rows = append(t.Rows, []string{
			label(m.Merchant),
			plain(m.MCV), plain(m.RCV), Percent(m.RCVR),
			plain(m.Results), Percent(m.ConversionRate),
			plain(m.UnitPrice), plain(m.AllowableCpaPerItem),
			Percent(m.EstConversionRate), plain(m.EstAllowableCpa),
		})
	}
	tot := rep.Total
	t.Rows = append(t.Rows, []string{
		TotalLabel,
		plain(tot.MCV), plain(tot.RCV), Percent(tot.RCVR),
		plain(tot.Results), Percent(tot.ConversionRate),
		missing, plain(tot.AllowableCpa),
		missing, plain(tot.EstAllowableCpa),
	})
	return t
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Filename sigue el patrón <sección>_report.csv.
func Filename(section string) string {
	section = strings.TrimSpace(section)
	if section == "" {
		section = "default"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "\"", "_").Replace(section) + "_report.csv"
}
