// Package dashboard serves the regional consumption overview.
package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/tariff"
)

type SectorConsumption struct {
	Sector tariff.Sector `json:"sector"`
	Label  string        `json:"label"`
	KWh    int           `json:"kwh"`
	Share  float64       `json:"share"`
	Color  string        `json:"color"`
}

// MonthlyConsumption is kWh per department for one month.
type MonthlyConsumption struct {
	Month            string `json:"month"`
	Santander        int    `json:"santander"`
	NorteDeSantander int    `json:"norte_de_santander"`
}

type Trend string

const (
	Up   Trend = "up"
	Down Trend = "down"
)

// KPI is a headline card.
type KPI struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Trend  Trend  `json:"trend"`
}

type Overview struct {
	Sectors []SectorConsumption  `json:"sectors"`
	Monthly []MonthlyConsumption `json:"monthly"`
	KPIs    []KPI                `json:"kpis"`
}

var sectors = []SectorConsumption{
	{Sector: tariff.Commercial, KWh: 4200, Color: "hsl(217, 91%, 60%)"},
	{Sector: tariff.Residential, KWh: 3100, Color: "hsl(160, 84%, 39%)"},
	{Sector: tariff.Industrial, KWh: 5600, Color: "hsl(45, 100%, 60%)"},
	{Sector: tariff.Public, KWh: 2400, Color: "hsl(280, 70%, 55%)"},
}

var monthly = []MonthlyConsumption{
	{"Ene", 12000, 8500},
	{"Feb", 11500, 8200},
	{"Mar", 13200, 9100},
	{"Abr", 12800, 8900},
	{"May", 14100, 9600},
	{"Jun", 13500, 9300},
}

// Build assembles the overview. Total consumption and the average cost card
// are derived from the sector data and the residential rate in rates.
func Build(rates tariff.RateTable) Overview {
	total := 0
	for _, s := range sectors {
		total += s.KWh
	}

	secs := make([]SectorConsumption, len(sectors))
	for i, s := range sectors {
		s.Label = s.Sector.Label()
		if total > 0 {
			s.Share = decimal.NewFromInt(int64(s.KWh)).Div(decimal.NewFromInt(int64(total))).Round(4).InexactFloat64()
		}
		secs[i] = s
	}

	avg := "n/d"
	if p, err := rates.Resolve(tariff.Residential); err == nil {
		avg = "$" + billing.FormatAmount(p) + "/kWh"
	}

	return Overview{
		Sectors: secs,
		Monthly: append([]MonthlyConsumption(nil), monthly...),
		KPIs: []KPI{
			{Title: "Consumo Total", Value: billing.FormatInteger(int64(total)) + " kWh", Change: "+12.5%", Trend: Up},
			{Title: "Ahorro Mensual", Value: "2.450 kWh", Change: "+8.2%", Trend: Up},
			{Title: "Eficiencia", Value: "87,3%", Change: "+3.1%", Trend: Up},
			{Title: "Costo Promedio", Value: avg, Change: "-2.4%", Trend: Down},
		},
	}
}
