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

// DictEntry describes one standard data dictionary attribute.
type DictEntry struct {
	Tag     Tag
	Keyword string
	VR      *VR
	VM      string
	Name    string
}

// PrivateDictEntry describes one attribute of a private creator's block.
// Element is the low byte of the element number within the reserved block;
// the block's position in the group is assigned at parse time by the
// Private Creator element, so it is not part of the entry.
type PrivateDictEntry struct {
	Group   uint16
	Creator string
	Element uint8
	VR      *VR
	Name    string
}

// Dictionary is the external data dictionary collaborator. The codec only
// issues the read-only queries below and never mutates dictionary state.
//
// Lookup resolves a standard tag; tags in repeating group ranges are
// expected to be canonicalized by the implementation. LookupPrivate
// resolves a private data element through its governing creator string,
// since the raw tag alone is ambiguous across creators. LookupKeyword
// resolves an attribute keyword such as "PatientName" to its entry.
type Dictionary interface {
	Lookup(tag Tag) (*DictEntry, bool)
	LookupPrivate(group uint16, creator string, element uint8) (*DictEntry, bool)
	LookupKeyword(keyword string) (*DictEntry, bool)
}

type privateKey struct {
	group   uint16
	creator string
	element uint8
}

type dictionary struct {
	byTag     map[Tag]*DictEntry
	byKeyword map[string]*DictEntry
	private   map[privateKey]*DictEntry
}

// NewDictionary builds a Dictionary from explicit entry lists. It is
// intended for callers that maintain their own dictionary content,
// including private creator registrations.
func NewDictionary(entries []DictEntry, private []PrivateDictEntry) Dictionary {
	d := &dictionary{
		byTag:     make(map[Tag]*DictEntry, len(entries)),
		byKeyword: make(map[string]*DictEntry, len(entries)),
		private:   make(map[privateKey]*DictEntry, len(private)),
	}
	for i := range entries {
		e := &entries[i]
		d.byTag[e.Tag] = e
		if e.Keyword != "" {
			d.byKeyword[e.Keyword] = e
		}
	}
	for _, p := range private {
		d.private[privateKey{p.Group, p.Creator, p.Element}] = &DictEntry{
			Tag:  NewTag(p.Group, uint16(p.Element)),
			VR:   p.VR,
			Name: p.Name,
		}
	}
	return d
}

// Lookup resolves the exact tag first so that a specific entry, such as
// (7FE0,0010), is never shadowed by a repeating range base.
func (d *dictionary) Lookup(tag Tag) (*DictEntry, bool) {
	if e, ok := d.byTag[tag]; ok {
		return e, true
	}
	e, ok := d.byTag[tag.repeatingBase()]
	return e, ok
}

func (d *dictionary) LookupPrivate(group uint16, creator string, element uint8) (*DictEntry, bool) {
	e, ok := d.private[privateKey{group, creator, element}]
	return e, ok
}

func (d *dictionary) LookupKeyword(keyword string) (*DictEntry, bool) {
	e, ok := d.byKeyword[keyword]
	return e, ok
}

// StandardDictionary returns the builtin dictionary. It covers the
// attributes the codec itself depends on plus the common identifying
// attributes; full standard content is an external collaborator concern
// and can be supplied through NewDictionary or any other Dictionary
// implementation.
func StandardDictionary() Dictionary {
	return builtinDict
}

var builtinDict = NewDictionary([]DictEntry{
	{FileMetaInformationGroupLengthTag, "FileMetaInformationGroupLength", ULVR, "1", "File Meta Information Group Length"},
	{FileMetaInformationVersionTag, "FileMetaInformationVersion", OBVR, "1", "File Meta Information Version"},
	{MediaStorageSOPClassUIDTag, "MediaStorageSOPClassUID", UIVR, "1", "Media Storage SOP Class UID"},
	{MediaStorageSOPInstanceUIDTag, "MediaStorageSOPInstanceUID", UIVR, "1", "Media Storage SOP Instance UID"},
	{TransferSyntaxUIDTag, "TransferSyntaxUID", UIVR, "1", "Transfer Syntax UID"},
	{ImplementationClassUIDTag, "ImplementationClassUID", UIVR, "1", "Implementation Class UID"},
	{ImplementationVersionNameTag, "ImplementationVersionName", SHVR, "1", "Implementation Version Name"},
	{SpecificCharacterSetTag, "SpecificCharacterSet", CSVR, "1-n", "Specific Character Set"},
	{SOPClassUIDTag, "SOPClassUID", UIVR, "1", "SOP Class UID"},
	{SOPInstanceUIDTag, "SOPInstanceUID", UIVR, "1", "SOP Instance UID"},
	{StudyDateTag, "StudyDate", DAVR, "1", "Study Date"},
	{ModalityTag, "Modality", CSVR, "1", "Modality"},
	{ReferencedStudySequenceTag, "ReferencedStudySequence", SQVR, "1", "Referenced Study Sequence"},
	{ReferencedImageSequenceTag, "ReferencedImageSequence", SQVR, "1", "Referenced Image Sequence"},
	{ReferencedSOPClassUIDTag, "ReferencedSOPClassUID", UIVR, "1", "Referenced SOP Class UID"},
	{ReferencedSOPInstanceUIDTag, "ReferencedSOPInstanceUID", UIVR, "1", "Referenced SOP Instance UID"},
	{PatientNameTag, "PatientName", PNVR, "1", "Patient's Name"},
	{PatientIDTag, "PatientID", LOVR, "1", "Patient ID"},
	{NumberOfFramesTag, "NumberOfFrames", ISVR, "1", "Number of Frames"},
	{RowsTag, "Rows", USVR, "1", "Rows"},
	{ColumnsTag, "Columns", USVR, "1", "Columns"},
	{BitsAllocatedTag, "BitsAllocated", USVR, "1", "Bits Allocated"},
	{WindowCenterTag, "WindowCenter", DSVR, "1-n", "Window Center"},
	{WindowWidthTag, "WindowWidth", DSVR, "1-n", "Window Width"},
	{RescaleInterceptTag, "RescaleIntercept", DSVR, "1", "Rescale Intercept"},
	{RescaleSlopeTag, "RescaleSlope", DSVR, "1", "Rescale Slope"},
	{PixelDataProviderURLTag, "PixelDataProviderURL", URVR, "1", "Pixel Data Provider URL"},
	{EncapsulatedDocumentTag, "EncapsulatedDocument", OBVR, "1", "Encapsulated Document"},
	{WaveformDataTag, "WaveformData", OWVR, "1", "Waveform Data"},
	{CurveDataTag, "CurveData", OWVR, "1", "Curve Data"},
	{OverlayDataTag, "OverlayData", OWVR, "1", "Overlay Data"},
	{VariablePixelDataTag, "VariablePixelData", OWVR, "1", "Variable Pixel Data"},
	{FloatPixelDataTag, "FloatPixelData", OFVR, "1", "Float Pixel Data"},
	{DoubleFloatPixelDataTag, "DoubleFloatPixelData", ODVR, "1", "Double Float Pixel Data"},
	{PixelDataTag, "PixelData", OWVR, "1", "Pixel Data"},
	{SpectroscopyDataTag, "SpectroscopyData", OFVR, "1", "Spectroscopy Data"},
}, nil)

func lookupBuiltin(tag Tag) (*DictEntry, bool) {
	return builtinDict.Lookup(tag)
}

// dictionaryVR resolves the VR for a tag when parsing implicit VR streams.
// Group length elements are always UL; a dictionary miss falls back to UN
// and never fails.
func dictionaryVR(dict Dictionary, tag Tag) *VR {
	if tag.IsGroupLength() {
		return ULVR
	}
	if tag.IsPrivateCreator() {
		return LOVR
	}
	if dict != nil {
		if entry, ok := dict.Lookup(tag); ok && entry.VR != nil {
			return entry.VR
		}
	}
	return UNVR
}
