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
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// byteSliceSource serves deferred regions from an in-memory copy of the
// original stream.
type byteSliceSource []byte

func (s byteSliceSource) Open(region ByteRegion) (io.ReadCloser, error) {
	end := region.Offset + region.Length
	return io.NopCloser(bytes.NewReader(s[region.Offset:end])), nil
}

func TestParse(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, PatientIDTag, "LO", []byte("ABCD"))
	dataSet = append(dataSet, shortElement(order, RowsTag, "US", []byte{0x20, 0x00})...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}

	if ds.FileMeta == nil {
		t.Fatalf("expected file meta information on the data set")
	}
	uid, err := ds.FileMeta.TransferSyntaxUID()
	if err != nil {
		t.Fatalf("TransferSyntaxUID() => %v", err)
	}
	if uid != ExplicitVRLittleEndianUID {
		t.Fatalf("got %q, want %q", uid, ExplicitVRLittleEndianUID)
	}

	id, ok := ds.Get(PatientIDTag)
	if !ok {
		t.Fatalf("Patient ID element missing")
	}
	if !reflect.DeepEqual(id.ValueField, []string{"ABCD"}) {
		t.Fatalf("got %v, want [ABCD]", id.ValueField)
	}
	rows, ok := ds.Get(RowsTag)
	if !ok {
		t.Fatalf("Rows element missing")
	}
	if !reflect.DeepEqual(rows.ValueField, []uint16{32}) {
		t.Fatalf("got %v, want []uint16{32}", rows.ValueField)
	}
	if len(ds.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", ds.Warnings)
	}
}

func TestParse_nativePixelData(t *testing.T) {
	order := binary.LittleEndian
	dataSet := longElement(order, PixelDataTag, "OW", 4, []byte{1, 2, 3, 4})
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, ok := ds.Get(PixelDataTag)
	if !ok {
		t.Fatalf("Pixel Data element missing")
	}
	want := [][]byte{{1, 2, 3, 4}}
	if !reflect.DeepEqual(elem.ValueField, want) {
		t.Fatalf("got %v, want %v", elem.ValueField, want)
	}
}

func TestParse_encapsulatedPixelData(t *testing.T) {
	order := binary.LittleEndian
	fragments := encapsulatedBytes(order, []byte{}, []byte{0xA0, 0xA1}, []byte{0xB0, 0xB1})
	dataSet := longElement(order, PixelDataTag, "OB", UndefinedLength, nil)
	dataSet = append(dataSet, fragments...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, ok := ds.Get(PixelDataTag)
	if !ok {
		t.Fatalf("Pixel Data element missing")
	}
	// offset table first, then the frame fragments
	want := [][]byte{{}, {0xA0, 0xA1}, {0xB0, 0xB1}}
	if !reflect.DeepEqual(elem.ValueField, want) {
		t.Fatalf("got %v, want %v", elem.ValueField, want)
	}
}

func TestParse_dropBasicOffsetTable(t *testing.T) {
	order := binary.LittleEndian
	fragments := encapsulatedBytes(order, []byte{0x0C, 0x00, 0x00, 0x00}, []byte{0xA0, 0xA1})
	dataSet := longElement(order, PixelDataTag, "OB", UndefinedLength, nil)
	dataSet = append(dataSet, fragments...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), DropBasicOffsetTable)
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, _ := ds.Get(PixelDataTag)
	want := [][]byte{{0xA0, 0xA1}}
	if !reflect.DeepEqual(elem.ValueField, want) {
		t.Fatalf("got %v, want %v", elem.ValueField, want)
	}
}

func TestParse_dropGroupLengths(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, NewTag(0x0008, 0x0000), "UL", uint32Bytes(order, 12))
	dataSet = append(dataSet, shortElement(order, PatientIDTag, "LO", []byte("ABCD"))...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), DropGroupLengths)
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if _, ok := ds.Get(NewTag(0x0008, 0x0000)); ok {
		t.Fatalf("group length element should have been dropped")
	}
	if _, ok := ds.Get(PatientIDTag); !ok {
		t.Fatalf("Patient ID element missing")
	}
}

func TestParse_untrustedGroupLength(t *testing.T) {
	order := binary.LittleEndian
	// the declared group length is nonsense; parsing must not use it to
	// bound the group
	dataSet := shortElement(order, NewTag(0x0010, 0x0000), "UL", uint32Bytes(order, 2))
	dataSet = append(dataSet, shortElement(order, PatientIDTag, "LO", []byte("ABCD"))...)
	dataSet = append(dataSet, shortElement(order, PatientNameTag, "PN", []byte("DOE^JOHN"))...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if _, ok := ds.Get(PatientNameTag); !ok {
		t.Fatalf("element after the misdeclared group boundary is missing")
	}
}

func TestParse_referenceBulkData(t *testing.T) {
	order := binary.LittleEndian
	dataSet := longElement(order, PixelDataTag, "OW", 4, []byte{1, 2, 3, 4})
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), ReferenceBulkData(DefaultBulkDataDefinition))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, _ := ds.Get(PixelDataTag)
	refs, ok := elem.ValueField.([]BulkDataReference)
	if !ok {
		t.Fatalf("got value of type %T, want []BulkDataReference", elem.ValueField)
	}
	if len(refs) != 1 || refs[0].Reference.Length != 4 {
		t.Fatalf("got %v, want one reference of length 4", refs)
	}
}

func TestParse_deferBulkData(t *testing.T) {
	order := binary.LittleEndian
	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dataSet := shortElement(order, PatientIDTag, "LO", []byte("ABCD"))
	dataSet = append(dataSet, longElement(order, PixelDataTag, "OW", uint32(len(pixels)), pixels)...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), DeferBulkData(8), WithBulkDataSource(byteSliceSource(in)))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}

	elem, _ := ds.Get(PixelDataTag)
	deferred, ok := elem.ValueField.(*DeferredBulkData)
	if !ok {
		t.Fatalf("got value of type %T, want *DeferredBulkData", elem.ValueField)
	}
	got, err := deferred.Materialize()
	if err != nil {
		t.Fatalf("Materialize() => %v", err)
	}
	if !reflect.DeepEqual(got, [][]byte{pixels}) {
		t.Fatalf("got %v, want %v", got, [][]byte{pixels})
	}

	// values below the threshold are buffered as usual
	id, _ := ds.Get(PatientIDTag)
	if !reflect.DeepEqual(id.ValueField, []string{"ABCD"}) {
		t.Fatalf("got %v, want [ABCD]", id.ValueField)
	}
}

func TestParse_privateCreators(t *testing.T) {
	order := binary.LittleEndian
	creatorTag := NewTag(0x0009, 0x0010)
	privateTag := NewTag(0x0009, 0x1001)
	dataSet := shortElement(order, creatorTag, "LO", []byte("ACME 1.1  "))
	dataSet = append(dataSet, shortElement(order, privateTag, "LO", []byte("DATA"))...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, ok := ds.Get(privateTag)
	if !ok {
		t.Fatalf("private element missing")
	}
	if elem.privateCreator != "ACME 1.1" {
		t.Fatalf("got creator %q, want %q", elem.privateCreator, "ACME 1.1")
	}
}

func TestParse_warningsSurfaced(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, WindowCenterTag, "DS", []byte("bad. value. "))
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if len(ds.Warnings) == 0 {
		t.Fatalf("expected a warning for the malformed decimal string")
	}
	if _, ok := ds.Get(WindowCenterTag); !ok {
		t.Fatalf("the malformed element must still be present")
	}
}

func TestParse_strict(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, WindowCenterTag, "DS", []byte("bad. value. "))
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	if _, err := Parse(bytes.NewReader(in), Strict()); err == nil {
		t.Fatalf("expected strict mode to fail on the malformed decimal string")
	}
}

func TestParse_transformFilter(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, PatientIDTag, "LO", []byte("ABCD"))
	dataSet = append(dataSet, shortElement(order, PatientNameTag, "PN", []byte("DOE^JOHN"))...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	dropNames := WithTransform(func(element *DataElement) (*DataElement, error) {
		if element.Tag == PatientNameTag {
			return nil, nil
		}
		return element, nil
	})

	ds, err := Parse(bytes.NewReader(in), dropNames)
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if _, ok := ds.Get(PatientNameTag); ok {
		t.Fatalf("Patient Name element should have been filtered out")
	}
	if _, ok := ds.Get(PatientIDTag); !ok {
		t.Fatalf("Patient ID element missing")
	}
}

func TestParseFile(t *testing.T) {
	order := binary.LittleEndian
	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dataSet := longElement(order, PixelDataTag, "OW", uint32(len(pixels)), pixels)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	path := filepath.Join(t.TempDir(), "sample.dcm")
	if err := os.WriteFile(path, in, 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	ds, err := ParseFile(path, DeferBulkData(0))
	if err != nil {
		t.Fatalf("ParseFile(_) => %v", err)
	}
	elem, _ := ds.Get(PixelDataTag)
	deferred, ok := elem.ValueField.(*DeferredBulkData)
	if !ok {
		t.Fatalf("got value of type %T, want *DeferredBulkData", elem.ValueField)
	}
	got, err := deferred.Materialize()
	if err != nil {
		t.Fatalf("Materialize() => %v", err)
	}
	if !reflect.DeepEqual(got, [][]byte{pixels}) {
		t.Fatalf("got %v, want %v", got, [][]byte{pixels})
	}
}
