package ingest

import "github.com/AngelCh415/lp-report/internal/models"

// Datos de muestra para cuando una fuente no está configurada.

func FixtureConversions() []models.ConversionRecord {
	return []models.ConversionRecord{
		{Date: "2025-01-28", LPNumber: "LP001", Media: "Acom", Method: "Direct", Method2: "TestA", Merchant: models.Acom, MCV: 15, RCV: 5, Results: 2},
		{Date: "2025-01-28", LPNumber: "LP001", Media: "Acom", Method: "Direct", Method2: "TestB", Merchant: models.Promise, MCV: 20, RCV: 8, Results: 1},
		{Date: "2025-01-28", LPNumber: "LP001", Media: "Acom", Method: "Direct", Method2: "TestA", Merchant: models.Mobit, MCV: 10, RCV: 2},
		{Date: "2025-01-28", LPNumber: "LP001", Media: "Acom", Method: "Search", Method2: "TestB", Merchant: models.Aiful, MCV: 5, RCV: 1},
		{Date: "2025-01-29", LPNumber: "LP002", Media: "Promis", Method: "Search", Method2: "TestC", Merchant: models.Promise, MCV: 30, RCV: 12, Results: 3},
	}
}

// sin método: solo pueden conciliar por (fecha, medio)
func FixtureCosts() []models.CostRecord {
	return []models.CostRecord{
		{Date: "2025-01-28", Media: "Acom", LPNumber: "LP001", TotalCost: 50000},
		{Date: "2025-01-28", Media: "Promis", LPNumber: "LP002", TotalCost: 30000},
		{Date: "2025-01-29", Media: "Acom", LPNumber: "LP001", TotalCost: 55000},
		{Date: "2025-01-30", Media: "Mobit", LPNumber: "LP003", TotalCost: 20000},
	}
}
