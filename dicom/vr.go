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

// vrType groups VRs with a common value encoding.
type vrType int

const (
	// textVR is for value fields interpreted as text with space padding
	textVR vrType = iota

	// numberTextVR is for DS and IS: text on the wire, numeric in meaning.
	// The original text is retained for lossless re-encoding.
	numberTextVR

	// numberBinaryVR is for value fields parsed as fixed-width binary numbers
	numberBinaryVR

	// bulkDataVR groups sequences of raw bytes (OB, OW, UN, ...)
	bulkDataVR

	// uniqueIdentifierVR is for VR: UI. It has null padding
	uniqueIdentifierVR

	// sequenceVR is for VR: SQ
	sequenceVR

	// tagVR is for VR: AT. Distinct from numberBinaryVR because values are
	// (group, element) word pairs, not single integers
	tagVR
)

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// maxShortLength is the largest value length expressible in the explicit VR
// short (16-bit) form. 0xFFFF is reserved as the undefined length marker.
const maxShortLength = 0xFFFE

// VR models the DICOM Value Representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name represents the 2-character VR Code
	Name string

	kind vrType

	// longForm marks VRs whose explicit encoding uses a 2-byte reserved
	// field followed by a 32-bit length instead of a 16-bit length
	longForm bool

	// padByte is appended to odd-length values on encode
	padByte byte

	// width is the byte width of one value for binary VRs, 0 otherwise
	width int

	// split marks VRs for which 0x5C (backslash) delimits multiple values.
	// For ST, LT, UT and UR a backslash is ordinary data.
	split bool
}

var vrLookupMap = map[string]*VR{}

func newVR(vr VR) *VR {
	v := vr
	vrLookupMap[v.Name] = &v
	return &v
}

func lookupVRByName(name string) (*VR, error) {
	r, ok := vrLookupMap[name]
	if !ok {
		return nil, &UnknownVRError{Name: name}
	}
	return r, nil
}

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	// textual VRs
	AEVR = newVR(VR{Name: "AE", kind: textVR, padByte: ' ', split: true})
	ASVR = newVR(VR{Name: "AS", kind: textVR, padByte: ' ', split: true})
	CSVR = newVR(VR{Name: "CS", kind: textVR, padByte: ' ', split: true})
	LOVR = newVR(VR{Name: "LO", kind: textVR, padByte: ' ', split: true})
	SHVR = newVR(VR{Name: "SH", kind: textVR, padByte: ' ', split: true})

	// person name
	PNVR = newVR(VR{Name: "PN", kind: textVR, padByte: ' ', split: true})

	// dates/time
	DAVR = newVR(VR{Name: "DA", kind: textVR, padByte: ' ', split: true})
	TMVR = newVR(VR{Name: "TM", kind: textVR, padByte: ' ', split: true})
	DTVR = newVR(VR{Name: "DT", kind: textVR, padByte: ' ', split: true})

	// long text forms: backslash is data, never a delimiter
	STVR = newVR(VR{Name: "ST", kind: textVR, padByte: ' '})
	LTVR = newVR(VR{Name: "LT", kind: textVR, padByte: ' '})
	UTVR = newVR(VR{Name: "UT", kind: textVR, padByte: ' ', longForm: true})
	URVR = newVR(VR{Name: "UR", kind: textVR, padByte: ' ', longForm: true})

	// unlimited characters: long form but ordinary multi-valued text
	UCVR = newVR(VR{Name: "UC", kind: textVR, padByte: ' ', longForm: true, split: true})

	// textual numbers: parsed value plus retained source text
	ISVR = newVR(VR{Name: "IS", kind: numberTextVR, padByte: ' ', split: true})
	DSVR = newVR(VR{Name: "DS", kind: numberTextVR, padByte: ' ', split: true})

	// binary numbers
	SSVR = newVR(VR{Name: "SS", kind: numberBinaryVR, width: 2})
	USVR = newVR(VR{Name: "US", kind: numberBinaryVR, width: 2})
	SLVR = newVR(VR{Name: "SL", kind: numberBinaryVR, width: 4})
	ULVR = newVR(VR{Name: "UL", kind: numberBinaryVR, width: 4})
	SVVR = newVR(VR{Name: "SV", kind: numberBinaryVR, width: 8})
	UVVR = newVR(VR{Name: "UV", kind: numberBinaryVR, width: 8})
	FLVR = newVR(VR{Name: "FL", kind: numberBinaryVR, width: 4})
	FDVR = newVR(VR{Name: "FD", kind: numberBinaryVR, width: 8})

	// large binary sequences
	OBVR = newVR(VR{Name: "OB", kind: bulkDataVR, longForm: true})
	ODVR = newVR(VR{Name: "OD", kind: bulkDataVR, longForm: true, width: 8})
	OFVR = newVR(VR{Name: "OF", kind: bulkDataVR, longForm: true, width: 4})
	OLVR = newVR(VR{Name: "OL", kind: bulkDataVR, longForm: true, width: 4})
	OVVR = newVR(VR{Name: "OV", kind: bulkDataVR, longForm: true, width: 8})
	OWVR = newVR(VR{Name: "OW", kind: bulkDataVR, longForm: true, width: 2})

	// unknown
	UNVR = newVR(VR{Name: "UN", kind: bulkDataVR, longForm: true})

	// attribute tag
	ATVR = newVR(VR{Name: "AT", kind: tagVR, width: 4})

	// unique identifier
	UIVR = newVR(VR{Name: "UI", kind: uniqueIdentifierVR, padByte: 0x00, split: true})

	// sequence
	SQVR = newVR(VR{Name: "SQ", kind: sequenceVR, longForm: true})
)

// has32BitLength reports whether the explicit VR encoding of this VR uses
// the long form: a 2-byte reserved field followed by a 4-byte length.
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
func (vr *VR) has32BitLength() bool {
	return vr.longForm
}

// canHaveUndefinedLength reports whether the undefined length marker is
// legal for this VR. It is legal only for sequences and for the VRs that
// can carry encapsulated pixel data.
func (vr *VR) canHaveUndefinedLength() bool {
	switch vr {
	case SQVR, OBVR, OWVR, UNVR:
		return true
	}
	return false
}
