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

	"golang.org/x/text/encoding"
)

// decodeContext carries the information needed to decode the elements that
// follow: the active transfer syntax, the Specific Character Set in scope,
// and the dictionary used for implicit VR resolution. Sequence items start
// from a copy of the parent's context, so character set declarations
// inherit downward and never leak back up.
type decodeContext struct {
	syntax   transferSyntax
	encoding encoding.Encoding
	cfg      *parseConfig

	// nested is false only for the root data set and the file meta group.
	// Item delimitation items are legal solely in nested contexts.
	nested bool
}

func (ctx *decodeContext) child() *decodeContext {
	c := *ctx
	c.nested = true
	return &c
}

// FileMeta holds the File Meta Information of a root dataset: the group
// 0002 elements that identify, among other things, the transfer syntax
// used for the remainder of the file. File meta elements are always
// encoded in Explicit VR Little Endian regardless of that syntax.
type FileMeta struct {
	Elements map[Tag]*DataElement
}

// requiredMetaTags are the elements a conformant file meta group must
// carry. http://dicom.nema.org/medical/dicom/current/output/html/part10.html#table_7.1-1
var requiredMetaTags = []Tag{
	MediaStorageSOPClassUIDTag,
	MediaStorageSOPInstanceUIDTag,
	TransferSyntaxUIDTag,
}

// TransferSyntaxUID returns the Transfer Syntax UID declared by the file
// meta group.
func (fm *FileMeta) TransferSyntaxUID() (string, error) {
	if fm == nil {
		return "", fmt.Errorf("no file meta information present")
	}
	elem, ok := fm.Elements[TransferSyntaxUIDTag]
	if !ok {
		return "", fmt.Errorf("file meta information has no TransferSyntaxUID %s", TransferSyntaxUIDTag)
	}
	return elem.StringValue()
}

// Validate checks that every required file meta element is present and
// non-empty, reporting all missing elements at once through a
// *ConformanceError.
func (fm *FileMeta) Validate() error {
	var missing []Tag
	for _, tag := range requiredMetaTags {
		if fm == nil {
			missing = append(missing, tag)
			continue
		}
		elem, ok := fm.Elements[tag]
		if !ok {
			missing = append(missing, tag)
			continue
		}
		if s, err := elem.StringValue(); err != nil || s == "" {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return &ConformanceError{Missing: missing}
	}
	return nil
}

// SortedTags returns the meta tags in ascending numeric order.
func (fm *FileMeta) SortedTags() []Tag {
	return sortedTags(fm.Elements)
}

// SortedElements returns the meta elements in ascending tag order.
func (fm *FileMeta) SortedElements() []*DataElement {
	return sortedElements(fm.Elements)
}
