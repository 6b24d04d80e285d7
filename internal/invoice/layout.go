package invoice

// Page dimensions in millimetres (A4 portrait).
const (
	PageWidth  = 210.0
	PageHeight = 297.0
)

// Align is the horizontal anchoring of a text item relative to its X.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Color is an RGB triple.
type Color struct{ R, G, B int }

var (
	colorBlack  = Color{0, 0, 0}
	colorWhite  = Color{255, 255, 255}
	colorHeader = Color{33, 150, 243}
	colorTotal  = Color{240, 240, 240}
)

// Fill is a solid rectangle.
type Fill struct {
	X, Y, W, H float64
	Color      Color
}

// TextItem is a single line of text placed at an explicit baseline.
type TextItem struct {
	X, Y  float64
	Text  string
	Size  float64
	Bold  bool
	Align Align
	Color Color
}

// Region groups the fills and lines of one band of the invoice.
type Region struct {
	Name  string
	Fills []Fill
	Texts []TextItem
}

// Region names, top to bottom.
const (
	RegionHeader      = "header"
	RegionCustomer    = "customer"
	RegionConsumption = "consumption"
	RegionTotal       = "total"
	RegionFooter      = "footer"
)

// Layout is the fixed single-page arrangement of an invoice.
type Layout struct {
	Width   float64
	Height  float64
	Regions []Region
}

// Region returns the named region.
func (l Layout) Region(name string) (Region, bool) {
	for _, r := range l.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Lines returns every text line in drawing order.
func (l Layout) Lines() []string {
	var out []string
	for _, r := range l.Regions {
		for _, t := range r.Texts {
			out = append(out, t.Text)
		}
	}
	return out
}
