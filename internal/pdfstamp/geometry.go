package pdfstamp

import (
	"github.com/digitorus/pdf"
	"github.com/securesign/securesign/internal/coordinates"
)

// PageInfo is the resolved geometry of one page. Width and Height come from
// the effective MediaBox after page-tree inheritance. Rotate is surfaced for
// callers but not applied to placement transforms.
type PageInfo struct {
	Number int
	Width  float64
	Height float64
	Rotate int
}

type pageNode struct {
	value    pdf.Value
	id       uint32
	gen      uint16
	info     PageInfo
	mediaBox pdf.Value
	// resources is the effective /Resources after inheritance; it may live
	// on an ancestor Pages node rather than the page itself.
	resources pdf.Value
}

type inherited struct {
	mediaBox  pdf.Value
	rotate    pdf.Value
	resources pdf.Value
}

// collectPages walks the page tree in document order, tracking the
// inheritable attributes (MediaBox, Rotate, Resources) down each branch.
func collectPages(rdr *pdf.Reader) ([]pageNode, error) {
	root := rdr.Trailer().Key("Root")
	if root.IsNull() {
		return nil, ErrInvalidPDF
	}
	pagesRoot := root.Key("Pages")
	if pagesRoot.IsNull() {
		return nil, ErrInvalidPDF
	}

	var out []pageNode
	if err := walkPages(pagesRoot, inherited{}, &out, 0); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrInvalidPDF
	}
	return out, nil
}

const maxPageTreeDepth = 64

func walkPages(node pdf.Value, inh inherited, out *[]pageNode, depth int) error {
	if depth > maxPageTreeDepth {
		return ErrInvalidPDF
	}

	if v := node.Key("MediaBox"); !v.IsNull() {
		inh.mediaBox = v
	}
	if v := node.Key("Rotate"); !v.IsNull() {
		inh.rotate = v
	}
	if v := node.Key("Resources"); !v.IsNull() {
		inh.resources = v
	}

	switch node.Key("Type").Name() {
	case "Pages":
		kids := node.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			if err := walkPages(kids.Index(i), inh, out, depth+1); err != nil {
				return err
			}
		}
		return nil
	case "Page":
		ptr := node.GetPtr()
		width, height := mediaBoxSize(inh.mediaBox)
		rotate := int(inh.rotate.Int64())
		*out = append(*out, pageNode{
			value: node,
			id:    uint32(ptr.GetID()),
			gen:   uint16(ptr.GetGen()),
			info: PageInfo{
				Number: len(*out) + 1,
				Width:  width,
				Height: height,
				Rotate: normalizeRotation(rotate),
			},
			mediaBox:  inh.mediaBox,
			resources: inh.resources,
		})
		return nil
	default:
		return ErrInvalidPDF
	}
}

func mediaBoxSize(box pdf.Value) (float64, float64) {
	if box.IsNull() || box.Len() != 4 {
		// US letter fallback for malformed boxes.
		return 612, 792
	}
	x1 := numAt(box, 0)
	y1 := numAt(box, 1)
	x2 := numAt(box, 2)
	y2 := numAt(box, 3)

	width := x2 - x1
	if width < 0 {
		width = -width
	}
	height := y2 - y1
	if height < 0 {
		height = -height
	}
	if width == 0 || height == 0 {
		return 612, 792
	}
	return width, height
}

func numAt(arr pdf.Value, i int) float64 {
	item := arr.Index(i)
	if item.Kind() == pdf.Integer {
		return float64(item.Int64())
	}
	return item.Float64()
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// placementRect maps a logical-canvas placement onto page points. The
// logical origin is top-left, PDF's is bottom-left, so Y flips and the
// stamp height offsets the baseline.
func placementRect(page PageInfo, p Placement) (x, y, w, h float64) {
	scale := page.Width / coordinates.LogicalWidth
	maxY := coordinates.PageMaxY(page.Width, page.Height)

	w = p.Width * scale
	h = p.Height * scale
	x = coordinates.ClampX(p.X) * scale
	y = page.Height - coordinates.ClampY(p.Y, maxY)*scale - h
	return x, y, w, h
}
