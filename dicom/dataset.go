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
	"fmt"
	"sort"
	"strings"
)

// DataElement models a DICOM Data Element as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataElement struct {
	Tag Tag

	// Value Representation
	VR *VR

	// ValueField represents the field within a Data Element that contains
	// its value(s). Can be any of the following types:
	// []string
	// []Number (DS, IS)
	// []byte (raw un-decoded fallback)
	// [][]byte (bulk data fragments)
	// []int16, []uint16, []int32, []uint32, []int64, []uint64
	// []float32, []float64
	// []Tag (AT)
	// *Sequence
	// BulkDataIterator
	// []BulkDataReference
	// *DeferredBulkData
	ValueField interface{}

	// ValueLength is equal to the length of the ValueField in bytes as
	// declared on the wire. Can be equal to 0xFFFFFFFF to represent an
	// undefined length. Writers never trust this field and recompute
	// lengths from the actual encoded value size.
	ValueLength uint32

	// privateCreator is the creator string of the block governing this
	// private element, recorded at parse time. It participates in
	// description lookup only, never in identity.
	privateCreator string
}

// PrivateCreator returns the creator string of the Private Creator element
// governing this private data element, or "" when the element is not
// private or no creator was in scope when it was parsed.
func (e *DataElement) PrivateCreator() string {
	return e.privateCreator
}

// StringValue returns the single string value of the element. It fails if
// the value field is not a string slice of exactly one element.
func (e *DataElement) StringValue() (string, error) {
	strs, err := e.Strings()
	if err != nil {
		return "", err
	}
	if len(strs) != 1 {
		return "", fmt.Errorf("element %s has %d values, want exactly 1", e.Tag, len(strs))
	}
	return strs[0], nil
}

// Strings returns the string values of the element. Numeric string values
// (DS, IS) are returned in their original textual form.
func (e *DataElement) Strings() ([]string, error) {
	switch v := e.ValueField.(type) {
	case []string:
		return v, nil
	case []Number:
		strs := make([]string, len(v))
		for i, n := range v {
			strs[i] = n.Raw
		}
		return strs, nil
	}
	return nil, fmt.Errorf("element %s has value type %T, want strings", e.Tag, e.ValueField)
}

// IntValue returns the single integer value of the element for the integer
// VRs (IS, SS, US, SL, UL, SV, UV).
func (e *DataElement) IntValue() (int64, error) {
	switch v := e.ValueField.(type) {
	case []Number:
		if len(v) == 1 {
			return v[0].Int()
		}
	case []int16:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	case []uint16:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	case []int32:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	case []uint32:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	case []int64:
		if len(v) == 1 {
			return v[0], nil
		}
	case []uint64:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	}
	return 0, fmt.Errorf("element %s does not hold exactly one integer (value type %T)", e.Tag, e.ValueField)
}

func (e *DataElement) string(indentLvl int) string {
	indent := strings.Repeat("  ", indentLvl)
	vrName := "??"
	if e.VR != nil {
		vrName = e.VR.Name
	}
	if seq, ok := e.ValueField.(*Sequence); ok {
		return fmt.Sprintf("%s%s %s %s", indent, e.Tag, vrName, seq.string(indentLvl))
	}
	return fmt.Sprintf("%s%s %s %v", indent, e.Tag, vrName, e.ValueField)
}

func (e *DataElement) String() string {
	return e.string(0)
}

// DataSet models a DICOM Data Set as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
//
// Iteration through SortedTags or SortedElements yields elements in
// ascending tag order regardless of insertion order. Group 0002 elements
// never appear in Elements; they belong to the FileMeta sub-dataset.
type DataSet struct {
	// Elements is a map of Tag to *DataElement
	Elements map[Tag]*DataElement

	// FileMeta holds the group 0002 File Meta Information of a root
	// dataset. It is nil for sequence items.
	FileMeta *FileMeta

	// Length is the decode-time byte length of this dataset when it was a
	// sequence item, UndefinedLength for delimited items, 0 otherwise.
	Length uint32

	// Warnings records every recoverable anomaly observed while parsing.
	Warnings []string
}

// NewDataSet builds a DataSet from a map of Tag to value, filling VRs in
// from the builtin dictionary. Group 0002 tags are routed to the FileMeta
// sub-dataset.
func NewDataSet(elements map[Tag]interface{}) *DataSet {
	ds := &DataSet{Elements: map[Tag]*DataElement{}}
	for tag, value := range elements {
		ds.Put(&DataElement{Tag: tag, VR: dictionaryVR(builtinDict, tag), ValueField: normalizeValue(value)})
	}
	return ds
}

func normalizeValue(v interface{}) interface{} {
	switch value := v.(type) {
	case string:
		return []string{value}
	case []byte:
		return [][]byte{value}
	case uint16:
		return []uint16{value}
	case uint32:
		return []uint32{value}
	default:
		return v
	}
}

// Put stores the element, replacing any element with the same tag. File
// meta elements go to the FileMeta sub-dataset, which is created on first
// use.
func (ds *DataSet) Put(element *DataElement) {
	if element.Tag.IsFileMeta() {
		if ds.FileMeta == nil {
			ds.FileMeta = &FileMeta{Elements: map[Tag]*DataElement{}}
		}
		ds.FileMeta.Elements[element.Tag] = element
		return
	}
	if ds.Elements == nil {
		ds.Elements = map[Tag]*DataElement{}
	}
	ds.Elements[element.Tag] = element
}

// Get returns the element with the given tag. File meta tags are resolved
// against the FileMeta sub-dataset.
func (ds *DataSet) Get(tag Tag) (*DataElement, bool) {
	if tag.IsFileMeta() {
		if ds.FileMeta == nil {
			return nil, false
		}
		e, ok := ds.FileMeta.Elements[tag]
		return e, ok
	}
	e, ok := ds.Elements[tag]
	return e, ok
}

// ByKeyword resolves an attribute keyword such as "PatientName" through
// the dictionary and returns the matching element. Repeating group
// attributes cannot be addressed by keyword: their name is shared across
// the whole group range, so the lookup is refused as ambiguous.
func (ds *DataSet) ByKeyword(dict Dictionary, keyword string) (*DataElement, error) {
	entry, ok := dict.LookupKeyword(keyword)
	if !ok {
		return nil, fmt.Errorf("keyword %q not found in dictionary", keyword)
	}
	if entry.Tag.IsRepeatingGroup() {
		return nil, fmt.Errorf("keyword %q names a repeating group attribute; use exact tag access", keyword)
	}
	elem, ok := ds.Get(entry.Tag)
	if !ok {
		return nil, fmt.Errorf("element %s (%s) not present in data set", entry.Tag, keyword)
	}
	return elem, nil
}

// PrivateEntry resolves the creator-specific dictionary entry of a private
// data element. Identity is (group, creator string, low element byte);
// the raw tag alone is ambiguous across files from different creators.
func (ds *DataSet) PrivateEntry(dict Dictionary, tag Tag) (*DictEntry, error) {
	elem, ok := ds.Get(tag)
	if !ok {
		return nil, fmt.Errorf("element %s not present in data set", tag)
	}
	creator := elem.privateCreator
	if creator == "" {
		creatorTag, ok := tag.privateCreatorTag()
		if !ok {
			return nil, fmt.Errorf("element %s is not inside a reservable private block", tag)
		}
		creatorElem, ok := ds.Get(creatorTag)
		if !ok {
			return nil, fmt.Errorf("no private creator element %s in scope for %s", creatorTag, tag)
		}
		s, err := creatorElem.StringValue()
		if err != nil {
			return nil, fmt.Errorf("reading private creator string: %v", err)
		}
		creator = s
	}
	entry, ok := dict.LookupPrivate(tag.Group(), creator, uint8(tag.Element()&0x00FF))
	if !ok {
		return nil, fmt.Errorf("no dictionary entry for %s under creator %q", tag, creator)
	}
	return entry, nil
}

// SortedTags returns the tags in ascending numeric order.
func (ds *DataSet) SortedTags() []Tag {
	return sortedTags(ds.Elements)
}

// SortedElements returns the elements in ascending tag order.
func (ds *DataSet) SortedElements() []*DataElement {
	return sortedElements(ds.Elements)
}

func (ds *DataSet) String() string {
	return ds.string(0)
}

func (ds *DataSet) string(indentLvl int) string {
	lines := make([]string, 0, len(ds.Elements))
	if ds.FileMeta != nil {
		for _, elem := range ds.FileMeta.SortedElements() {
			lines = append(lines, elem.string(indentLvl))
		}
	}
	for _, elem := range ds.SortedElements() {
		lines = append(lines, elem.string(indentLvl))
	}
	return strings.Join(lines, "\n")
}

func sortedTags(elements map[Tag]*DataElement) []Tag {
	tags := make([]Tag, 0, len(elements))
	for tag := range elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func sortedElements(elements map[Tag]*DataElement) []*DataElement {
	sorted := make([]*DataElement, 0, len(elements))
	for _, tag := range sortedTags(elements) {
		sorted = append(sorted, elements[tag])
	}
	return sorted
}
