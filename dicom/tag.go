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
)

// Tag is a unique identifier for a Data Element composed of an ordered pair
// of numbers called the group number and the element number as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
//
// The least significant 16 bits is the element number. The most significant
// 16 bits is the group number. Tags order by their unsigned 32-bit value,
// group first.
type Tag uint32

// NewTag returns the Tag with the given group and element numbers.
func NewTag(group, element uint16) Tag {
	return Tag(uint32(group)<<16 | uint32(element))
}

// ParseTag reads a Tag from the first 4 bytes of b as two consecutive 16-bit
// words in the given byte order.
func ParseTag(b []byte, order binary.ByteOrder) (Tag, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("parsing tag: need 4 bytes, got %d", len(b))
	}
	return NewTag(order.Uint16(b[0:2]), order.Uint16(b[2:4])), nil
}

// Group returns the group number component of the Tag.
func (t Tag) Group() uint16 {
	return uint16(t >> 16)
}

// Element returns the element number component of the Tag.
func (t Tag) Element() uint16 {
	return uint16(t & 0xFFFF)
}

// IsFileMeta is true if and only if the Tag belongs to the File Meta
// Information group (0002,eeee).
func (t Tag) IsFileMeta() bool {
	return t.Group() == 0x0002
}

// IsGroupLength is true for legacy group length elements (gggg,0000).
func (t Tag) IsGroupLength() bool {
	return t.Element() == 0x0000
}

// IsPrivate is true if and only if the Tag belongs to a private group. A
// group is private when its number is odd; the odd groups 0001, 0003, 0005,
// 0007 and FFFF are illegal for data elements and therefore not considered
// privately usable.
func (t Tag) IsPrivate() bool {
	g := t.Group()
	if g%2 == 0 {
		return false
	}
	switch g {
	case 0x0001, 0x0003, 0x0005, 0x0007, 0xFFFF:
		return false
	}
	return true
}

// IsPrivateCreator is true for Private Creator elements, which reserve a
// 256-slot block of a private group. These occupy element numbers 0x10
// through 0xFF of the private group.
func (t Tag) IsPrivateCreator() bool {
	e := t.Element()
	return t.IsPrivate() && e >= 0x0010 && e <= 0x00FF
}

// privateCreatorTag returns the Tag of the Private Creator element that
// governs this private data element, and false if the element number is
// outside any reservable block.
func (t Tag) privateCreatorTag() (Tag, bool) {
	block := t.Element() >> 8
	if !t.IsPrivate() || block < 0x10 {
		return 0, false
	}
	return NewTag(t.Group(), block), true
}

// IsRepeatingGroup reports whether the Tag falls in one of the repeating
// ranges of the data dictionary: 60xx overlay, 50xx curve, the retired
// 7Fxx variable pixel data groups, and the retired (1000,xxx0)-(1000,xxx5)
// code table and (1010,xxxx) zonal map element ranges. Group 7FE0 holds
// the standard pixel data attributes and is outside the 7Fxx range. Such
// tags are stored under their actual wire numbers and must be looked up by
// exact tag, never by name, since the descriptive name is shared across
// the whole range.
func (t Tag) IsRepeatingGroup() bool {
	switch t.Group() & 0xFF00 {
	case 0x5000, 0x6000:
		return true
	case 0x7F00:
		return t.Group() != 0x7FE0
	}
	switch t.Group() {
	case 0x1000:
		return t.Element()&0x000F <= 0x0005
	case 0x1010:
		return true
	}
	return false
}

// repeatingBase returns the canonical dictionary tag for tags in a
// repeating group range, zeroing the wildcard digits. For all other tags it
// returns the tag unchanged.
func (t Tag) repeatingBase() Tag {
	if !t.IsRepeatingGroup() {
		return t
	}
	switch t.Group() {
	case 0x1000:
		return NewTag(0x1000, t.Element()&0x000F)
	case 0x1010:
		return NewTag(0x1010, 0x0000)
	}
	return Tag(uint32(t) & 0xFF00FFFF)
}

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group(), t.Element())
}

// Delimitation tags reserved by the standard for sequence and item framing.
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.5
const (
	ItemTag                     Tag = 0xFFFEE000
	ItemDelimitationItemTag     Tag = 0xFFFEE00D
	SequenceDelimitationItemTag Tag = 0xFFFEE0DD
)

// Well-known tags referenced by the codec itself.
const (
	FileMetaInformationGroupLengthTag Tag = 0x00020000
	FileMetaInformationVersionTag     Tag = 0x00020001
	MediaStorageSOPClassUIDTag        Tag = 0x00020002
	MediaStorageSOPInstanceUIDTag     Tag = 0x00020003
	TransferSyntaxUIDTag              Tag = 0x00020010
	ImplementationClassUIDTag         Tag = 0x00020012
	ImplementationVersionNameTag      Tag = 0x00020013

	SpecificCharacterSetTag      Tag = 0x00080005
	SOPClassUIDTag               Tag = 0x00080016
	SOPInstanceUIDTag            Tag = 0x00080018
	StudyDateTag                 Tag = 0x00080020
	ModalityTag                  Tag = 0x00080060
	ReferencedStudySequenceTag   Tag = 0x00081110
	ReferencedImageSequenceTag   Tag = 0x00081140
	ReferencedSOPClassUIDTag     Tag = 0x00081150
	ReferencedSOPInstanceUIDTag  Tag = 0x00081155
	PatientNameTag               Tag = 0x00100010
	PatientIDTag                 Tag = 0x00100020
	WindowCenterTag              Tag = 0x00281050
	WindowWidthTag               Tag = 0x00281051
	RescaleInterceptTag          Tag = 0x00281052
	RescaleSlopeTag              Tag = 0x00281053
	NumberOfFramesTag            Tag = 0x00280008
	RowsTag                      Tag = 0x00280010
	ColumnsTag                   Tag = 0x00280011
	BitsAllocatedTag             Tag = 0x00280100
	PixelDataProviderURLTag      Tag = 0x00287FE0
	SpectroscopyDataTag          Tag = 0x56000020
	AudioSampleDataTag           Tag = 0x5000100C
	CurveDataTag                 Tag = 0x50003000
	OverlayDataTag               Tag = 0x60003000
	VariablePixelDataTag         Tag = 0x7F000010
	EncapsulatedDocumentTag      Tag = 0x04200011
	FloatPixelDataTag            Tag = 0x7FE00008
	DoubleFloatPixelDataTag      Tag = 0x7FE00009
	PixelDataTag                 Tag = 0x7FE00010
	WaveformDataTag              Tag = 0x54001010
)
