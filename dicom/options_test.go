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
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultBulkDataDefinition(t *testing.T) {
	tests := []struct {
		name string
		tag  Tag
		want bool
	}{
		{"pixel data", PixelDataTag, true},
		{"overlay data", OverlayDataTag, true},
		{"repeated overlay data", NewTag(0x6002, 0x3000), true},
		{"curve data", NewTag(0x5004, 0x3000), true},
		{"repeated variable pixel data", NewTag(0x7F02, 0x0010), true},
		{"waveform data", WaveformDataTag, true},
		{"encapsulated document", EncapsulatedDocumentTag, true},
		{"patient id", PatientIDTag, false},
		{"rows", RowsTag, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DefaultBulkDataDefinition(&DataElement{Tag: tc.tag})
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStopBefore(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, PatientIDTag, "LO", []byte("ABCD"))
	dataSet = append(dataSet, shortElement(order, RowsTag, "US", []byte{0x20, 0x00})...)
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), StopBefore(func(tag Tag) bool { return tag.Group() >= 0x0028 }))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if _, ok := ds.Get(PatientIDTag); !ok {
		t.Fatalf("Patient ID element missing")
	}
	if _, ok := ds.Get(RowsTag); ok {
		t.Fatalf("parsing should have stopped before group 0028")
	}
}

func TestWithLogger(t *testing.T) {
	order := binary.LittleEndian
	dataSet := shortElement(order, WindowCenterTag, "DS", []byte("bad. value. "))
	in := sampleFileBytes(ExplicitVRLittleEndianUID, dataSet)

	logBuff := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logBuff, nil))

	ds, err := Parse(bytes.NewReader(in), WithLogger(logger))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	if len(ds.Warnings) == 0 {
		t.Fatalf("expected the warning on the data set")
	}
	if !strings.Contains(logBuff.String(), "keeping raw bytes") {
		t.Fatalf("expected the warning in the log, got %q", logBuff.String())
	}
}

func TestWithDictionary(t *testing.T) {
	// a dictionary that maps an odd private tag to a known VR
	privateTag := NewTag(0x0009, 0x1001)
	dict := NewDictionary([]DictEntry{
		{Tag: privateTag, Keyword: "VendorValue", VR: USVR, VM: "1"},
	}, nil)

	order := binary.LittleEndian
	dataSet := implicitElement(order, privateTag, 2, []byte{0x20, 0x00})
	in := sampleFileBytes(ImplicitVRLittleEndianUID, dataSet)

	ds, err := Parse(bytes.NewReader(in), WithDictionary(dict))
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	elem, ok := ds.Get(privateTag)
	if !ok {
		t.Fatalf("private element missing")
	}
	if elem.VR != USVR {
		t.Fatalf("got VR %v, want US", elem.VR)
	}
}
