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
	"fmt"
	"strings"
)

// list of transfer syntaxes obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_A
const (
	// ImplicitVRLittleEndianUID is the Implicit VR Little Endian UID
	ImplicitVRLittleEndianUID = "1.2.840.10008.1.2"
	// ExplicitVRLittleEndianUID is the Explicit VR Little Endian UID
	ExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1"
	// ExplicitVRBigEndianUID is the Explicit VR Big Endian UID
	ExplicitVRBigEndianUID = "1.2.840.10008.1.2.2"
	// DeflatedExplicitVRLittleEndianUID is the Deflated Explicit VR Little Endian UID
	DeflatedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.99"
	// JPEGBaselineUID is the JPEG Baseline (Process 1) transfer syntax UID
	JPEGBaselineUID = "1.2.840.10008.1.2.4.50"
	// JPEG2000LosslessUID is the JPEG 2000 Image Compression (Lossless Only) UID
	JPEG2000LosslessUID = "1.2.840.10008.1.2.4.90"
	// JPEGLSLosslessUID is the JPEG-LS Lossless Image Compression UID
	JPEGLSLosslessUID = "1.2.840.10008.1.2.4.80"
	// RLELosslessUID is the RLE Lossless transfer syntax UID
	RLELosslessUID = "1.2.840.10008.1.2.5"
)

// transferSyntax selects exactly one combination of VR explicitness, byte
// order, deflate wrapping and pixel encapsulation. Encapsulated syntaxes
// always pair explicit VR little endian framing with a compressed pixel
// stream; only the innermost pixel bytes differ between them.
type transferSyntax struct {
	UID          string
	ByteOrder    binary.ByteOrder
	Implicit     bool
	Deflated     bool
	Encapsulated bool
}

var (
	implicitVRLittleEndian         = transferSyntax{ImplicitVRLittleEndianUID, binary.LittleEndian, true, false, false}
	explicitVRLittleEndian         = transferSyntax{ExplicitVRLittleEndianUID, binary.LittleEndian, false, false, false}
	explicitVRBigEndian            = transferSyntax{ExplicitVRBigEndianUID, binary.BigEndian, false, false, false}
	deflatedExplicitVRLittleEndian = transferSyntax{DeflatedExplicitVRLittleEndianUID, binary.LittleEndian, false, true, false}
)

func lookupTransferSyntax(uid string) transferSyntax {
	switch uid {
	case ImplicitVRLittleEndianUID:
		return implicitVRLittleEndian
	case ExplicitVRLittleEndianUID:
		return explicitVRLittleEndian
	case ExplicitVRBigEndianUID:
		return explicitVRBigEndian
	case DeflatedExplicitVRLittleEndianUID:
		return deflatedExplicitVRLittleEndian
	}

	// any other syntax is explicit VR little endian framing per PS3.5 A.4;
	// the registered encapsulated syntaxes additionally compress pixel data
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
	encapsulated := strings.HasPrefix(uid, "1.2.840.10008.1.2.4.") || uid == RLELosslessUID
	return transferSyntax{uid, binary.LittleEndian, false, false, encapsulated}
}

const (
	vrSize  = 2
	tagSize = 4
)

func (s transferSyntax) readValueLength(dr *dcmReader, vr *VR) (uint32, error) {
	if s.Implicit {
		return dr.UInt32(s.ByteOrder)
	}

	if vr.has32BitLength() {
		if _, err := dr.UInt16(s.ByteOrder); err != nil {
			return 0, fmt.Errorf("reading reserved field: %v", err)
		}
		length, err := dr.UInt32(s.ByteOrder)
		if err != nil {
			return 0, fmt.Errorf("reading 32 bit length: %v", err)
		}
		return length, nil
	}

	length, err := dr.UInt16(s.ByteOrder)
	if err != nil {
		return 0, fmt.Errorf("reading 16 bit length: %v", err)
	}
	return uint32(length), nil
}

func (s transferSyntax) writeVR(dw *dcmWriter, vr *VR) error {
	if s.Implicit {
		// the implicit syntax does not write VRs into the file
		return nil
	}
	return dw.String(vr.Name)
}

func (s transferSyntax) writeValueLength(dw *dcmWriter, vr *VR, valueFieldLength uint32) error {
	if s.Implicit {
		return dw.UInt32(s.ByteOrder, valueFieldLength)
	}

	if vr.has32BitLength() {
		if err := dw.UInt16(s.ByteOrder, 0); err != nil {
			return fmt.Errorf("writing reserved field: %v", err)
		}
		if err := dw.UInt32(s.ByteOrder, valueFieldLength); err != nil {
			return fmt.Errorf("writing 32 bit length: %v", err)
		}
		return nil
	}

	if valueFieldLength > maxShortLength {
		return fmt.Errorf("data element value length %d exceeds the 16-bit length field", valueFieldLength)
	}
	return dw.UInt16(s.ByteOrder, uint16(valueFieldLength))
}
