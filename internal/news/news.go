// Package news lists articles about renewable energy in the region.
package news

import (
	"sort"
	"strings"
	"time"
)

type Article struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Published time.Time `json:"published"`
	ReadTime  string    `json:"read_time"`
	Category  string    `json:"category"`
	Impact    string    `json:"impact"`
	Color     string    `json:"color"`
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

var articles = []Article{
	{
		ID:        1,
		Title:     "Paneles Solares: Revolución Energética en Bucaramanga",
		Excerpt:   "La instalación de paneles solares en zonas residenciales de Bucaramanga ha reducido el consumo eléctrico en un 40%, contribuyendo significativamente a la sostenibilidad ambiental.",
		Published: day("2024-03-15"),
		ReadTime:  "5 min",
		Category:  "Solar",
		Impact:    "Reducción de 500 toneladas de CO2 al año",
		Color:     "hsl(45, 100%, 60%)",
	},
	{
		ID:        2,
		Title:     "Energía Eólica en Norte de Santander: Proyecto Piloto",
		Excerpt:   "Un innovador proyecto de energía eólica en Cúcuta está generando energía limpia para más de 2,000 hogares, marcando un hito en la transición energética de la región.",
		Published: day("2024-03-10"),
		ReadTime:  "7 min",
		Category:  "Eólica",
		Impact:    "Energía limpia para 2,000+ hogares",
		Color:     "hsl(200, 80%, 50%)",
	},
	{
		ID:        3,
		Title:     "Iluminación LED: Ahorro y Sostenibilidad en Santander",
		Excerpt:   "La implementación de tecnología LED en alumbrado público ha generado un ahorro del 60% en consumo energético, reduciendo la huella de carbono regional.",
		Published: day("2024-03-05"),
		ReadTime:  "4 min",
		Category:  "Eficiencia",
		Impact:    "60% de ahorro energético",
		Color:     "hsl(160, 84%, 39%)",
	},
	{
		ID:        4,
		Title:     "Biomasa: Energía Renovable desde Residuos Agrícolas",
		Excerpt:   "Empresas en Santander están convirtiendo residuos agrícolas en energía renovable, creando un ciclo sostenible que beneficia tanto al medio ambiente como a la economía local.",
		Published: day("2024-02-28"),
		ReadTime:  "6 min",
		Category:  "Biomasa",
		Impact:    "Reutilización de 1,200 toneladas de residuos",
		Color:     "hsl(90, 60%, 50%)",
	},
	{
		ID:        5,
		Title:     "Smart Grids: Redes Inteligentes para Distribución Eficiente",
		Excerpt:   "La implementación de redes eléctricas inteligentes permite una distribución más eficiente de energía, reduciendo pérdidas y optimizando el consumo en tiempo real.",
		Published: day("2024-02-20"),
		ReadTime:  "5 min",
		Category:  "Tecnología",
		Impact:    "25% menos de pérdidas en distribución",
		Color:     "hsl(217, 91%, 60%)",
	},
	{
		ID:        6,
		Title:     "Hidroeléctricas de Pequeña Escala: Energía Local Sostenible",
		Excerpt:   "Proyectos de mini-hidroeléctricas en ríos de Santander están proporcionando energía limpia a comunidades rurales sin impactar negativamente los ecosistemas acuáticos.",
		Published: day("2024-02-15"),
		ReadTime:  "6 min",
		Category:  "Hidráulica",
		Impact:    "Energía para 15 comunidades rurales",
		Color:     "hsl(190, 70%, 55%)",
	},
}

// List returns articles newest first. A non-empty category filters them,
// ignoring case.
func List(category string) []Article {
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if category == "" || strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Published.After(out[j].Published) })
	return out
}

func Get(id int) (Article, bool) {
	for _, a := range articles {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}

// Categories returns the distinct categories in listing order.
func Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range List("") {
		if !seen[a.Category] {
			seen[a.Category] = true
			out = append(out, a.Category)
		}
	}
	return out
}
