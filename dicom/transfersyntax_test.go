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
	"encoding/binary"
	"testing"
)

func TestLookupTransferSyntax(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want transferSyntax
	}{
		{
			"explicit vr little endian",
			ExplicitVRLittleEndianUID,
			explicitVRLittleEndian,
		},
		{
			"implicit vr little endian",
			ImplicitVRLittleEndianUID,
			implicitVRLittleEndian,
		},
		{
			"explicit vr big endian",
			ExplicitVRBigEndianUID,
			explicitVRBigEndian,
		},
		{
			"deflated explicit vr little endian",
			DeflatedExplicitVRLittleEndianUID,
			deflatedExplicitVRLittleEndian,
		},
		{
			"jpeg baseline is encapsulated",
			JPEGBaselineUID,
			transferSyntax{JPEGBaselineUID, binary.LittleEndian, false, false, true},
		},
		{
			"rle lossless is encapsulated",
			RLELosslessUID,
			transferSyntax{RLELosslessUID, binary.LittleEndian, false, false, true},
		},
		{
			"unregistered uid falls back to explicit vr little endian framing",
			"1.2.3.4",
			transferSyntax{"1.2.3.4", binary.LittleEndian, false, false, false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := lookupTransferSyntax(tc.in)
			if got.UID != tc.want.UID || got.Implicit != tc.want.Implicit ||
				got.Deflated != tc.want.Deflated || got.Encapsulated != tc.want.Encapsulated ||
				got.ByteOrder != tc.want.ByteOrder {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
