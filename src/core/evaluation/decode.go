package evaluation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const maxLineSize = 4 * 1024 * 1024

// ClassifiedSource yields classifier records in order. Next returns io.EOF
// once exhausted.
type ClassifiedSource interface {
	Next() (ClassifiedRecord, error)
}

// GroundTruthSource yields ground-truth records in order. Next returns io.EOF
// once exhausted.
type GroundTruthSource interface {
	Next() (GroundTruthRecord, error)
}

type lineScanner struct {
	scanner *bufio.Scanner
	line    int
}

func newLineScanner(r io.Reader) *lineScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &lineScanner{scanner: scanner}
}

// next returns the next non-blank line.
func (s *lineScanner) next() ([]byte, error) {
	for s.scanner.Scan() {
		s.line++
		b := bytes.TrimSpace(s.scanner.Bytes())
		if len(b) > 0 {
			return b, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}

// ClassifiedDecoder reads JSON lines of ClassifiedRecord.
type ClassifiedDecoder struct {
	lines *lineScanner
}

func NewClassifiedDecoder(r io.Reader) *ClassifiedDecoder {
	return &ClassifiedDecoder{lines: newLineScanner(r)}
}

func (d *ClassifiedDecoder) Next() (ClassifiedRecord, error) {
	b, err := d.lines.next()
	if err != nil {
		return ClassifiedRecord{}, err
	}

	var rec ClassifiedRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return ClassifiedRecord{}, fmt.Errorf("classified line %d: %w: %v", d.lines.line, ErrMalformedRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return ClassifiedRecord{}, fmt.Errorf("classified line %d: %w", d.lines.line, err)
	}
	return rec, nil
}

// GroundTruthDecoder reads JSON lines holding correct_<type> and
// annotated_<type> fields.
type GroundTruthDecoder struct {
	lines *lineScanner
	typ   string
}

func NewGroundTruthDecoder(r io.Reader, typ string) *GroundTruthDecoder {
	return &GroundTruthDecoder{lines: newLineScanner(r), typ: typ}
}

func (d *GroundTruthDecoder) Next() (GroundTruthRecord, error) {
	b, err := d.lines.next()
	if err != nil {
		return GroundTruthRecord{}, err
	}

	rec, err := ParseGroundTruth(b, d.typ)
	if err != nil {
		return GroundTruthRecord{}, fmt.Errorf("ground truth line %d: %w", d.lines.line, err)
	}
	return rec, nil
}

// ClassifiedSlice serves records already held in memory.
type ClassifiedSlice struct {
	records []ClassifiedRecord
	pos     int
}

func NewClassifiedSlice(records []ClassifiedRecord) *ClassifiedSlice {
	return &ClassifiedSlice{records: records}
}

func (s *ClassifiedSlice) Next() (ClassifiedRecord, error) {
	if s.pos >= len(s.records) {
		return ClassifiedRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	if err := rec.Validate(); err != nil {
		return ClassifiedRecord{}, fmt.Errorf("classified record %d: %w", s.pos, err)
	}
	return rec, nil
}

// GroundTruthSlice serves records already held in memory.
type GroundTruthSlice struct {
	records []GroundTruthRecord
	pos     int
}

func NewGroundTruthSlice(records []GroundTruthRecord) *GroundTruthSlice {
	return &GroundTruthSlice{records: records}
}

func (s *GroundTruthSlice) Next() (GroundTruthRecord, error) {
	if s.pos >= len(s.records) {
		return GroundTruthRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
