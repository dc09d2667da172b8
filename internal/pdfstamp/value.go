package pdfstamp

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/digitorus/pdf"
)

// serializeValue writes a PDF object in token form. Indirect values are
// written as references so the original objects stay untouched.
func serializeValue(buf *bytes.Buffer, v pdf.Value) error {
	ptr := v.GetPtr()
	if ptr.GetID() != 0 {
		fmt.Fprintf(buf, "%d %d R", ptr.GetID(), ptr.GetGen())
		return nil
	}

	switch v.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case pdf.Integer:
		fmt.Fprintf(buf, "%d", v.Int64())
	case pdf.Real:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case pdf.String:
		buf.WriteString(pdfLiteral(v.RawString()))
	case pdf.Name:
		buf.WriteString("/" + v.Name())
	case pdf.Array:
		buf.WriteString("[ ")
		for i := 0; i < v.Len(); i++ {
			if err := serializeValue(buf, v.Index(i)); err != nil {
				return err
			}
			buf.WriteString(" ")
		}
		buf.WriteString("]")
	case pdf.Dict:
		buf.WriteString("<< ")
		for _, key := range v.Keys() {
			buf.WriteString("/" + key + " ")
			if err := serializeValue(buf, v.Key(key)); err != nil {
				return err
			}
			buf.WriteString(" ")
		}
		buf.WriteString(">>")
	default:
		// Streams are always indirect, so a direct stream here means the
		// reader handed us something we cannot round-trip.
		return fmt.Errorf("cannot serialize direct value of kind %d", v.Kind())
	}
	return nil
}

func pdfLiteral(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = strings.ReplaceAll(text, "\n", "\\n")
	return "(" + text + ")"
}

// rewrittenPageDict rebuilds a page dictionary, preserving every existing
// key while appending the stamp content stream to /Contents and merging the
// stamp images into an inlined effective /Resources.
func rewrittenPageDict(page pageNode, contentID uint32, images map[string]uint32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<<\n")

	for _, key := range page.value.Keys() {
		if key == "Contents" || key == "Resources" {
			continue
		}
		buf.WriteString("  /" + key + " ")
		if err := serializeValue(&buf, page.value.Key(key)); err != nil {
			return nil, err
		}
		buf.WriteString("\n")
	}

	buf.WriteString("  /Contents ")
	contents := page.value.Key("Contents")
	switch {
	case contents.IsNull():
		fmt.Fprintf(&buf, "%d 0 R", contentID)
	case contents.Kind() == pdf.Array && contents.GetPtr().GetID() == 0:
		buf.WriteString("[ ")
		for i := 0; i < contents.Len(); i++ {
			if err := serializeValue(&buf, contents.Index(i)); err != nil {
				return nil, err
			}
			buf.WriteString(" ")
		}
		fmt.Fprintf(&buf, "%d 0 R ]", contentID)
	default:
		buf.WriteString("[ ")
		if err := serializeValue(&buf, contents); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, " %d 0 R ]", contentID)
	}
	buf.WriteString("\n")

	buf.WriteString("  /Resources ")
	if err := writeResources(&buf, page.resources, images); err != nil {
		return nil, err
	}
	buf.WriteString("\n>>")

	return buf.Bytes(), nil
}

// writeResources inlines the effective resources dictionary. Inlining is
// required because the original dict may be shared between pages via
// inheritance, and only this page gains the stamp images.
func writeResources(buf *bytes.Buffer, res pdf.Value, images map[string]uint32) error {
	buf.WriteString("<<\n")

	if !res.IsNull() && res.Kind() == pdf.Dict {
		for _, key := range res.Keys() {
			if key == "XObject" {
				continue
			}
			buf.WriteString("    /" + key + " ")
			if err := serializeValue(buf, res.Key(key)); err != nil {
				return err
			}
			buf.WriteString("\n")
		}
	}

	buf.WriteString("    /XObject <<\n")
	if !res.IsNull() {
		if xobj := res.Key("XObject"); !xobj.IsNull() && xobj.Kind() == pdf.Dict {
			for _, key := range xobj.Keys() {
				buf.WriteString("      /" + key + " ")
				if err := serializeValue(buf, xobj.Key(key)); err != nil {
					return err
				}
				buf.WriteString("\n")
			}
		}
	}

	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(buf, "      /%s %d 0 R\n", name, images[name])
	}

	buf.WriteString("    >>\n  >>")
	return nil
}
