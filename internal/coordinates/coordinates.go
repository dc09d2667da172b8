// Package coordinates converts between the fixed 800-unit logical canvas
// that field positions are stored in and the rendered pixel width of a PDF
// page at an arbitrary zoom level.
package coordinates

import "errors"

const (
	// LogicalWidth is the width of the virtual canvas every client renders
	// against, regardless of viewport size.
	LogicalWidth = 800

	// MaxLogicalY caps the logical vertical axis for absurdly tall pages.
	MaxLogicalY = 5000
)

var ErrInvalidGeometry = errors.New("invalid_geometry")

// ToLogical maps a rendered pixel offset to the logical canvas.
// The result is clamped to [0, LogicalWidth].
func ToLogical(px, renderedWidth float64) (float64, error) {
	if renderedWidth <= 0 {
		return 0, ErrInvalidGeometry
	}
	return ClampX(px * LogicalWidth / renderedWidth), nil
}

// ToRendered maps a logical offset back to rendered pixels for the given
// viewport width.
func ToRendered(logical, renderedWidth float64) (float64, error) {
	if renderedWidth <= 0 {
		return 0, ErrInvalidGeometry
	}
	return ClampX(logical) * renderedWidth / LogicalWidth, nil
}

// PageMaxY returns the logical height of a page given its point dimensions.
// The vertical extent scales with the page aspect ratio and is capped at
// MaxLogicalY.
func PageMaxY(pageWidth, pageHeight float64) float64 {
	if pageWidth <= 0 || pageHeight <= 0 {
		return MaxLogicalY
	}
	maxY := pageHeight / pageWidth * LogicalWidth
	if maxY > MaxLogicalY {
		return MaxLogicalY
	}
	return maxY
}

// ClampX bounds a logical x coordinate to the canvas.
func ClampX(x float64) float64 {
	return clamp(x, 0, LogicalWidth)
}

// ClampY bounds a logical y coordinate to [0, maxY].
func ClampY(y, maxY float64) float64 {
	return clamp(y, 0, maxY)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
