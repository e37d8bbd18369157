// Copyright 2024 The dicomcodec Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

func TestReadDataElement(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		syntax transferSyntax
		want   *DataElement
	}{
		{
			"explicit short form",
			shortElement(binary.LittleEndian, PatientIDTag, "LO", []byte("ABCD")),
			explicitVRLittleEndian,
			&DataElement{Tag: PatientIDTag, VR: LOVR, ValueField: []string{"ABCD"}, ValueLength: 4},
		},
		{
			"explicit long form",
			longElement(binary.LittleEndian, NewTag(0x0008, 0x0119), "UC", 4, []byte("ABCD")),
			explicitVRLittleEndian,
			&DataElement{Tag: NewTag(0x0008, 0x0119), VR: UCVR, ValueField: []string{"ABCD"}, ValueLength: 4},
		},
		{
			"implicit VR from dictionary",
			implicitElement(binary.LittleEndian, RowsTag, 2, []byte{0x20, 0x00}),
			implicitVRLittleEndian,
			&DataElement{Tag: RowsTag, VR: USVR, ValueField: []uint16{32}, ValueLength: 2},
		},
		{
			"explicit big endian",
			shortElement(binary.BigEndian, RowsTag, "US", []byte{0x00, 0x20}),
			explicitVRBigEndian,
			&DataElement{Tag: RowsTag, VR: USVR, ValueField: []uint16{32}, ValueLength: 2},
		},
		{
			"decimal string",
			shortElement(binary.LittleEndian, WindowCenterTag, "DS", []byte("40")),
			explicitVRLittleEndian,
			&DataElement{Tag: WindowCenterTag, VR: DSVR, ValueField: Numbers("40"), ValueLength: 2},
		},
		{
			"attribute tag value",
			shortElement(binary.LittleEndian, NewTag(0x0028, 0x0009), "AT", tagBytes(binary.LittleEndian, RowsTag)),
			explicitVRLittleEndian,
			&DataElement{Tag: NewTag(0x0028, 0x0009), VR: ATVR, ValueField: []Tag{RowsTag}, ValueLength: 4},
		},
		{
			"unknown tag in implicit syntax falls back to UN",
			implicitElement(binary.LittleEndian, NewTag(0x0999, 0x0002), 2, []byte{0x01, 0x02}),
			implicitVRLittleEndian,
			&DataElement{Tag: NewTag(0x0999, 0x0002), VR: UNVR, ValueField: [][]byte{{0x01, 0x02}}, ValueLength: 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dr := dcmReaderFromBytes(tc.in)
			got, err := readDataElement(dr, testContext(tc.syntax))
			if err != nil {
				t.Fatalf("readDataElement(_) => %v", err)
			}
			if iter, ok := got.ValueField.(BulkDataIterator); ok {
				fragments, err := CollectFragments(iter)
				if err != nil {
					t.Fatalf("CollectFragments(_) => %v", err)
				}
				got.ValueField = fragments
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestReadDataElement_itemDelimitation(t *testing.T) {
	in := append(tagBytes(binary.LittleEndian, ItemDelimitationItemTag), uint32Bytes(binary.LittleEndian, 0)...)

	t.Run("inside a sequence item", func(t *testing.T) {
		ctx := testContext(implicitVRLittleEndian).child()
		if _, err := readDataElement(dcmReaderFromBytes(in), ctx); err != io.EOF {
			t.Fatalf("readDataElement(_) => %v, want io.EOF", err)
		}
		if len(ctx.cfg.warnings) != 0 {
			t.Fatalf("got warnings %v, want none", ctx.cfg.warnings)
		}
	})

	t.Run("stray at top level records a warning", func(t *testing.T) {
		ctx := testContext(implicitVRLittleEndian)
		if _, err := readDataElement(dcmReaderFromBytes(in), ctx); err != io.EOF {
			t.Fatalf("readDataElement(_) => %v, want io.EOF", err)
		}
		if len(ctx.cfg.warnings) != 1 {
			t.Fatalf("got warnings %v, want exactly one", ctx.cfg.warnings)
		}
	})

	t.Run("stray at top level fails a strict parse", func(t *testing.T) {
		ctx := strictContext(implicitVRLittleEndian)
		_, err := readDataElement(dcmReaderFromBytes(in), ctx)
		var structural *StructuralError
		if !errors.As(err, &structural) {
			t.Fatalf("readDataElement(_) => %v, want *StructuralError", err)
		}
	})
}

func TestReadDataElement_badVRCode(t *testing.T) {
	// an implicit VR header inside an explicit VR stream: the peeked VR
	// code bytes are the beginning of the 32-bit length
	in := append(tagBytes(binary.LittleEndian, RowsTag), uint32Bytes(binary.LittleEndian, 2)...)
	in = append(in, 0x20, 0x00)

	t.Run("lenient recovers by re-reading as implicit", func(t *testing.T) {
		ctx := testContext(explicitVRLittleEndian)
		got, err := readDataElement(dcmReaderFromBytes(in), ctx)
		if err != nil {
			t.Fatalf("readDataElement(_) => %v", err)
		}
		want := &DataElement{Tag: RowsTag, VR: USVR, ValueField: []uint16{32}, ValueLength: 2}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
		if len(ctx.cfg.warnings) == 0 {
			t.Fatalf("expected a warning for the unreadable VR code")
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		_, err := readDataElement(dcmReaderFromBytes(in), strictContext(explicitVRLittleEndian))
		var vrErr *UnknownVRError
		if !errors.As(err, &vrErr) {
			t.Fatalf("readDataElement(_) => %v, want *UnknownVRError", err)
		}
	})
}

func TestReadDataElement_undefinedLengthUN(t *testing.T) {
	// PS3.5 6.2.2: UN with undefined length holds an implicit VR little
	// endian sequence
	item := implicitElement(binary.LittleEndian, RowsTag, 2, []byte{0x20, 0x00})
	in := longElement(binary.LittleEndian, NewTag(0x0999, 0x0001), "UN", UndefinedLength, nil)
	in = append(in, itemHeader(binary.LittleEndian, uint32(len(item)))...)
	in = append(in, item...)
	in = append(in, delimiter(binary.LittleEndian, SequenceDelimitationItemTag)...)

	got, err := readDataElement(dcmReaderFromBytes(in), testContext(explicitVRLittleEndian))
	if err != nil {
		t.Fatalf("readDataElement(_) => %v", err)
	}
	iter, ok := got.ValueField.(SequenceIterator)
	if !ok {
		t.Fatalf("got value of type %T, want SequenceIterator", got.ValueField)
	}
	seq, err := CollectSequence(iter)
	if err != nil {
		t.Fatalf("CollectSequence(_) => %v", err)
	}
	if len(seq.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(seq.Items))
	}
	elem, ok := seq.Items[0].Get(RowsTag)
	if !ok {
		t.Fatalf("item is missing the Rows element")
	}
	if !reflect.DeepEqual(elem.ValueField, []uint16{32}) {
		t.Fatalf("got %v, want []uint16{32}", elem.ValueField)
	}
}

func TestReadDataElement_undefinedLengthIllegalVR(t *testing.T) {
	in := longElement(binary.LittleEndian, NewTag(0x0999, 0x0001), "UC", UndefinedLength, nil)
	in = append(in, delimiter(binary.LittleEndian, SequenceDelimitationItemTag)...)

	t.Run("lenient parses the framing as a sequence", func(t *testing.T) {
		ctx := testContext(explicitVRLittleEndian)
		got, err := readDataElement(dcmReaderFromBytes(in), ctx)
		if err != nil {
			t.Fatalf("readDataElement(_) => %v", err)
		}
		if got.VR != SQVR {
			t.Fatalf("got VR %v, want SQ", got.VR)
		}
		iter, ok := got.ValueField.(SequenceIterator)
		if !ok {
			t.Fatalf("got value of type %T, want SequenceIterator", got.ValueField)
		}
		seq, err := CollectSequence(iter)
		if err != nil {
			t.Fatalf("CollectSequence(_) => %v", err)
		}
		if len(seq.Items) != 0 {
			t.Fatalf("got %d items, want 0", len(seq.Items))
		}
		if len(ctx.cfg.warnings) == 0 {
			t.Fatalf("expected a warning for the illegal undefined length")
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		_, err := readDataElement(dcmReaderFromBytes(in), strictContext(explicitVRLittleEndian))
		var structural *StructuralError
		if !errors.As(err, &structural) {
			t.Fatalf("readDataElement(_) => %v, want *StructuralError", err)
		}
	})
}

func TestReadDataElement_truncatedValue(t *testing.T) {
	in := shortElement(binary.LittleEndian, PatientIDTag, "LO", []byte("ABCDEF"))
	in = in[:len(in)-2]

	t.Run("lenient keeps the partial value", func(t *testing.T) {
		ctx := testContext(explicitVRLittleEndian)
		got, err := readDataElement(dcmReaderFromBytes(in), ctx)
		if err != nil {
			t.Fatalf("readDataElement(_) => %v", err)
		}
		if !bytes.Equal(got.ValueField.([]byte), []byte("ABCD")) {
			t.Fatalf("got %q, want the 4 bytes present", got.ValueField)
		}
		if len(ctx.cfg.warnings) == 0 {
			t.Fatalf("expected a truncation warning")
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		_, err := readDataElement(dcmReaderFromBytes(in), strictContext(explicitVRLittleEndian))
		var truncated *TruncatedDataError
		if !errors.As(err, &truncated) {
			t.Fatalf("readDataElement(_) => %v, want *TruncatedDataError", err)
		}
		if truncated.Declared != 6 || truncated.Got != 4 {
			t.Fatalf("got declared=%d got=%d, want declared=6 got=4", truncated.Declared, truncated.Got)
		}
	})
}

func TestReadDataElement_malformedValue(t *testing.T) {
	in := shortElement(binary.LittleEndian, WindowCenterTag, "DS", []byte("abcd"))

	t.Run("lenient keeps the raw bytes", func(t *testing.T) {
		ctx := testContext(explicitVRLittleEndian)
		got, err := readDataElement(dcmReaderFromBytes(in), ctx)
		if err != nil {
			t.Fatalf("readDataElement(_) => %v", err)
		}
		if !bytes.Equal(got.ValueField.([]byte), []byte("abcd")) {
			t.Fatalf("got %q, want the raw bytes", got.ValueField)
		}
		if len(ctx.cfg.warnings) == 0 {
			t.Fatalf("expected a decode warning")
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		_, err := readDataElement(dcmReaderFromBytes(in), strictContext(explicitVRLittleEndian))
		var decodeErr *ValueDecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("readDataElement(_) => %v, want *ValueDecodeError", err)
		}
	})
}

func TestReadDataElement_characterSetUpdate(t *testing.T) {
	in := shortElement(binary.LittleEndian, SpecificCharacterSetTag, "CS", []byte("ISO_IR 100"))
	in = append(in, shortElement(binary.LittleEndian, PatientNameTag, "PN", []byte{'B', 0xE9})...)

	dr := dcmReaderFromBytes(in)
	ctx := testContext(explicitVRLittleEndian)
	if _, err := readDataElement(dr, ctx); err != nil {
		t.Fatalf("reading character set element: %v", err)
	}
	got, err := readDataElement(dr, ctx)
	if err != nil {
		t.Fatalf("reading patient name element: %v", err)
	}
	want := []string{"Bé"}
	if !reflect.DeepEqual(got.ValueField, want) {
		t.Fatalf("got %q, want %q", got.ValueField, want)
	}
}
