package pdfstamp

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
)

// writeXrefSection appends the continuation cross-reference section in the
// same flavor as the input file: a classic table or an xref stream. Either
// way it ends with startxref and %%EOF.
func (s *stamper) writeXrefSection() error {
	switch s.rdr.XrefInformation.Type {
	case "table":
		return s.writeXrefTable()
	case "stream":
		return s.writeXrefStreamObject()
	default:
		return fmt.Errorf("%w: unknown xref type %q", ErrInvalidPDF, s.rdr.XrefInformation.Type)
	}
}

func (s *stamper) writeXrefTable() error {
	entries := s.allEntries()
	start := int64(s.out.Len())

	s.out.WriteString("xref\n")
	for _, run := range contiguousRuns(entries) {
		fmt.Fprintf(s.out, "%d %d\n", run[0].id, len(run))
		for _, e := range run {
			fmt.Fprintf(s.out, "%010d 00000 n \n", e.offset)
		}
	}

	s.out.WriteString("trailer\n")
	if err := s.writeTrailerDict(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "startxref\n%d\n%%%%EOF\n", start)
	return nil
}

func (s *stamper) writeXrefStreamObject() error {
	// The stream object indexes itself, so allocate its ID and record the
	// offset before rendering the entry rows.
	streamID := s.nextID
	s.nextID++
	start := int64(s.out.Len())
	s.added = append(s.added, xrefEntry{id: streamID, offset: start})

	entries := s.allEntries()

	var rows bytes.Buffer
	var index []uint32
	for _, run := range contiguousRuns(entries) {
		index = append(index, run[0].id, uint32(len(run)))
		for _, e := range run {
			writeXrefStreamRow(&rows, 1, uint32(e.offset), 0)
		}
	}

	stream, err := flate(rows.Bytes())
	if err != nil {
		return err
	}

	var body bytes.Buffer
	body.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&body, "  /Length %d\n", len(stream))
	body.WriteString("  /Filter /FlateDecode\n")
	body.WriteString("  /W [ 1 4 1 ]\n")
	body.WriteString("  /Index [")
	for _, v := range index {
		fmt.Fprintf(&body, " %d", v)
	}
	body.WriteString(" ]\n")
	fmt.Fprintf(&body, "  /Size %d\n", s.nextID)
	fmt.Fprintf(&body, "  /Prev %d\n", s.rdr.XrefInformation.StartPos)

	root := s.rdr.Trailer().Key("Root").GetPtr()
	fmt.Fprintf(&body, "  /Root %d %d R\n", root.GetID(), root.GetGen())

	if info := s.rdr.Trailer().Key("Info").GetPtr(); info.GetID() != 0 {
		fmt.Fprintf(&body, "  /Info %d %d R\n", info.GetID(), info.GetGen())
	}
	if id := s.rdr.Trailer().Key("ID"); !id.IsNull() && id.Len() == 2 {
		fmt.Fprintf(&body, "  /ID [<%s><%s>]\n",
			hex.EncodeToString([]byte(id.Index(0).RawString())),
			hex.EncodeToString([]byte(id.Index(1).RawString())),
		)
	}
	body.WriteString(">>\nstream\n")
	body.Write(stream)
	body.WriteString("\nendstream")

	s.writeObject(streamID, body.Bytes())
	fmt.Fprintf(s.out, "startxref\n%d\n%%%%EOF\n", start)
	return nil
}

func (s *stamper) writeTrailerDict() error {
	s.out.WriteString("<<\n")
	fmt.Fprintf(s.out, "  /Size %d\n", s.nextID)

	root := s.rdr.Trailer().Key("Root").GetPtr()
	if root.GetID() == 0 {
		return ErrInvalidPDF
	}
	fmt.Fprintf(s.out, "  /Root %d %d R\n", root.GetID(), root.GetGen())

	if info := s.rdr.Trailer().Key("Info").GetPtr(); info.GetID() != 0 {
		fmt.Fprintf(s.out, "  /Info %d %d R\n", info.GetID(), info.GetGen())
	}
	if id := s.rdr.Trailer().Key("ID"); !id.IsNull() && id.Len() == 2 {
		fmt.Fprintf(s.out, "  /ID [<%s><%s>]\n",
			hex.EncodeToString([]byte(id.Index(0).RawString())),
			hex.EncodeToString([]byte(id.Index(1).RawString())),
		)
	}
	fmt.Fprintf(s.out, "  /Prev %d\n", s.rdr.XrefInformation.StartPos)
	s.out.WriteString(">>\n")
	return nil
}

func (s *stamper) allEntries() []xrefEntry {
	entries := make([]xrefEntry, 0, len(s.updated)+len(s.added))
	entries = append(entries, s.updated...)
	entries = append(entries, s.added...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	return entries
}

// contiguousRuns splits sorted entries into runs of consecutive object IDs,
// one xref subsection per run.
func contiguousRuns(entries []xrefEntry) [][]xrefEntry {
	var runs [][]xrefEntry
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].id == entries[j-1].id+1 {
			j++
		}
		runs = append(runs, entries[i:j])
		i = j
	}
	return runs
}

func writeXrefStreamRow(b *bytes.Buffer, kind byte, offset uint32, gen byte) {
	b.WriteByte(kind)
	var off [4]byte
	binary.BigEndian.PutUint32(off[:], offset)
	b.Write(off[:])
	b.WriteByte(gen)
}
