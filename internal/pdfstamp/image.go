package pdfstamp

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

type imageData struct {
	width    int
	height   int
	rgb      []byte
	alpha    []byte // nil when fully opaque
}

// decodePNG splits a PNG into 8-bit RGB samples plus a separate alpha
// channel, which PDF wants as an /SMask rather than interleaved.
func decodePNG(data []byte) (*imageData, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	bounds := src.Bounds()
	nrgba := image.NewNRGBA(bounds)
	draw.Draw(nrgba, bounds, src, bounds.Min, draw.Src)

	w := bounds.Dx()
	h := bounds.Dy()
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true

	for yy := 0; yy < h; yy++ {
		row := nrgba.Pix[yy*nrgba.Stride : yy*nrgba.Stride+w*4]
		for xx := 0; xx < w; xx++ {
			px := row[xx*4 : xx*4+4]
			rgb = append(rgb, px[0], px[1], px[2])
			alpha = append(alpha, px[3])
			if px[3] != 0xff {
				opaque = false
			}
		}
	}

	out := &imageData{width: w, height: h, rgb: rgb}
	if !opaque {
		out.alpha = alpha
	}
	return out, nil
}

func flate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// imageObject renders an image XObject body. smaskID of zero means no soft
// mask reference is emitted.
func imageObject(img *imageData, smaskID uint32) ([]byte, error) {
	stream, err := flate(img.rgb)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<<\n  /Type /XObject\n  /Subtype /Image\n")
	fmt.Fprintf(&buf, "  /Width %d\n  /Height %d\n", img.width, img.height)
	buf.WriteString("  /ColorSpace /DeviceRGB\n  /BitsPerComponent 8\n  /Filter /FlateDecode\n")
	if smaskID != 0 {
		fmt.Fprintf(&buf, "  /SMask %d 0 R\n", smaskID)
	}
	fmt.Fprintf(&buf, "  /Length %d\n>>\nstream\n", len(stream))
	buf.Write(stream)
	buf.WriteString("\nendstream")
	return buf.Bytes(), nil
}

// smaskObject renders the grayscale soft mask for an image with alpha.
func smaskObject(img *imageData) ([]byte, error) {
	stream, err := flate(img.alpha)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<<\n  /Type /XObject\n  /Subtype /Image\n")
	fmt.Fprintf(&buf, "  /Width %d\n  /Height %d\n", img.width, img.height)
	buf.WriteString("  /ColorSpace /DeviceGray\n  /BitsPerComponent 8\n  /Filter /FlateDecode\n")
	fmt.Fprintf(&buf, "  /Length %d\n>>\nstream\n", len(stream))
	buf.Write(stream)
	buf.WriteString("\nendstream")
	return buf.Bytes(), nil
}
