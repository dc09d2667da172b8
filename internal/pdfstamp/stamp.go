// Package pdfstamp flattens PNG images into an existing PDF by appending an
// incremental update: new image and content objects, rewritten page
// dictionaries and a continuation cross-reference section. The original
// bytes are never modified, so the input document remains verifiable.
package pdfstamp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/digitorus/pdf"
)

var (
	ErrInvalidPDF       = errors.New("invalid_pdf")
	ErrInvalidPageIndex = errors.New("invalid_page_index")
	ErrNoPlacements     = errors.New("no_placements")
)

// Placement positions one PNG on a page. X, Y, Width and Height are in
// logical canvas units (800-unit page width, top-left origin).
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
	PNG    []byte
}

type xrefEntry struct {
	id     uint32
	offset int64
}

type stamper struct {
	rdr     *pdf.Reader
	out     *bytes.Buffer
	nextID  uint32
	added   []xrefEntry
	updated []xrefEntry
}

// Pages parses a PDF and returns per-page geometry in document order.
func Pages(original []byte) ([]PageInfo, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	nodes, err := collectPages(rdr)
	if err != nil {
		return nil, err
	}

	infos := make([]PageInfo, 0, len(nodes))
	for _, node := range nodes {
		infos = append(infos, node.info)
	}
	return infos, nil
}

// Stamp embeds every placement into the document and returns the new file.
// All placements must land on existing pages; callers filter out-of-range
// fields beforehand and treat ErrInvalidPageIndex as a hard bug.
func Stamp(original []byte, placements []Placement) ([]byte, error) {
	if len(placements) == 0 {
		return nil, ErrNoPlacements
	}

	rdr, err := pdf.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	pages, err := collectPages(rdr)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]Placement)
	for _, p := range placements {
		if p.Page < 1 || p.Page > len(pages) {
			return nil, ErrInvalidPageIndex
		}
		byPage[p.Page] = append(byPage[p.Page], p)
	}

	s := &stamper{
		rdr:    rdr,
		out:    bytes.NewBuffer(append([]byte(nil), original...)),
		nextID: uint32(rdr.XrefInformation.ItemCount),
	}
	if original[len(original)-1] != '\n' {
		s.out.WriteByte('\n')
	}

	pageNumbers := make([]int, 0, len(byPage))
	for n := range byPage {
		pageNumbers = append(pageNumbers, n)
	}
	sort.Ints(pageNumbers)

	for _, n := range pageNumbers {
		page := pages[n-1]
		images := make(map[string]uint32, len(byPage[n]))
		var content bytes.Buffer

		for _, p := range byPage[n] {
			img, err := decodePNG(p.PNG)
			if err != nil {
				return nil, err
			}

			var smaskID uint32
			if img.alpha != nil {
				body, err := smaskObject(img)
				if err != nil {
					return nil, err
				}
				smaskID = s.addObject(body)
			}

			body, err := imageObject(img, smaskID)
			if err != nil {
				return nil, err
			}
			imgID := s.addObject(body)

			// Object-id suffix keeps names unique against any /XObject
			// entries the page already has.
			name := fmt.Sprintf("SigImg%d", imgID)
			images[name] = imgID

			x, y, w, h := placementRect(page.info, p)
			fmt.Fprintf(&content, "q\n%.4f 0 0 %.4f %.4f %.4f cm\n/%s Do\nQ\n", w, h, x, y, name)
		}

		contentID := s.addObject(contentStream(content.Bytes()))

		dict, err := rewrittenPageDict(page, contentID, images)
		if err != nil {
			return nil, err
		}
		s.updateObject(page.id, dict)
	}

	if err := s.writeXrefSection(); err != nil {
		return nil, err
	}

	return s.out.Bytes(), nil
}

func (s *stamper) addObject(body []byte) uint32 {
	id := s.nextID
	s.nextID++
	s.added = append(s.added, xrefEntry{id: id, offset: int64(s.out.Len())})
	s.writeObject(id, body)
	return id
}

func (s *stamper) updateObject(id uint32, body []byte) {
	s.updated = append(s.updated, xrefEntry{id: id, offset: int64(s.out.Len())})
	s.writeObject(id, body)
}

func (s *stamper) writeObject(id uint32, body []byte) {
	fmt.Fprintf(s.out, "%d 0 obj\n", id)
	s.out.Write(body)
	s.out.WriteString("\nendobj\n")
}

func contentStream(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Length %d >>\nstream\n", len(data))
	buf.Write(data)
	buf.WriteString("endstream")
	return buf.Bytes()
}
