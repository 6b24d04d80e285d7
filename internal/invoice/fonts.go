package invoice

import _ "embed"

// Embedded UTF-8 font: DejaVu Sans Condensed (Latin Extended, Greek, Cyrillic).
const fontFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte

	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)
