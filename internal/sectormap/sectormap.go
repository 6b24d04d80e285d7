// Package sectormap holds the fixed set of consumption markers shown on the
// regional map for Santander and Norte de Santander.
package sectormap

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bher20/energyplatform/internal/tariff"
)

const directionsBase = "https://www.google.com/maps/dir/"

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// View is the initial map viewport.
type View struct {
	Center Point `json:"center"`
	Zoom   int   `json:"zoom"`
	// SearchZoom is used after a geocoded address is shown.
	SearchZoom int `json:"search_zoom"`
}

// DefaultView centers on Bucaramanga.
var DefaultView = View{Center: Point{Lat: 7.1254, Lon: -73.1198}, Zoom: 8, SearchZoom: 14}

type Marker struct {
	ID             int           `json:"id"`
	Position       Point         `json:"position"`
	Sector         tariff.Sector `json:"sector"`
	SectorLabel    string        `json:"sector_label"`
	Name           string        `json:"name"`
	ConsumptionKWh int           `json:"consumption_kwh"`
	Color          string        `json:"color"`
}

var markers = []Marker{
	{ID: 1, Position: Point{7.1297, -73.1198}, Sector: tariff.Commercial, Name: "Zona Comercial Bucaramanga", ConsumptionKWh: 1250, Color: "hsl(217, 91%, 60%)"},
	{ID: 2, Position: Point{7.1195, -73.126}, Sector: tariff.Residential, Name: "Sector Residencial Cabecera", ConsumptionKWh: 850, Color: "hsl(160, 84%, 39%)"},
	{ID: 3, Position: Point{7.8891, -72.4967}, Sector: tariff.Industrial, Name: "Parque Industrial Cúcuta", ConsumptionKWh: 2400, Color: "hsl(45, 100%, 60%)"},
	{ID: 4, Position: Point{7.135, -73.128}, Sector: tariff.Public, Name: "Complejo Gubernamental", ConsumptionKWh: 680, Color: "hsl(280, 70%, 55%)"},
}

func withLabel(m Marker) Marker {
	m.SectorLabel = m.Sector.Label()
	return m
}

// Markers returns a copy of every marker in id order.
func Markers() []Marker {
	out := make([]Marker, len(markers))
	for i, m := range markers {
		out[i] = withLabel(m)
	}
	return out
}

// Lookup returns the marker with the given id.
func Lookup(id int) (Marker, bool) {
	for _, m := range markers {
		if m.ID == id {
			return withLabel(m), true
		}
	}
	return Marker{}, false
}

// BySector returns the markers for one sector.
func BySector(s tariff.Sector) []Marker {
	var out []Marker
	for _, m := range markers {
		if m.Sector == s {
			out = append(out, withLabel(m))
		}
	}
	return out
}

// DirectionsURL links to driving directions towards p.
func DirectionsURL(p Point) string {
	dest := strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
	q := url.Values{"api": {"1"}}
	return fmt.Sprintf("%s?%s&destination=%s", directionsBase, q.Encode(), dest)
}
