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
	"strings"
)

// StructuralError reports malformed framing: a bad length field, an
// unexpected delimiter, a missing DICM marker. Offset is the byte position
// in the input at which the problem was detected, when known.
type StructuralError struct {
	Tag    Tag
	Offset int64
	Msg    string
}

func (e *StructuralError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("dicom: structural error at %s, offset %d: %s", e.Tag, e.Offset, e.Msg)
	}
	return fmt.Sprintf("dicom: structural error at offset %d: %s", e.Offset, e.Msg)
}

// TruncatedDataError reports an element whose declared length would read
// past the end of the stream.
type TruncatedDataError struct {
	Tag      Tag
	Declared uint32
	Got      int64

	// raw holds the bytes read before the stream ended, for the lenient
	// partial-value fallback.
	raw []byte
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("dicom: element %s declares %d value bytes but stream ended after %d",
		e.Tag, e.Declared, e.Got)
}

// ValueDecodeError reports well-framed bytes that do not match the declared
// VR's expected shape, such as non-numeric text in a DS field. Under the
// default lenient policy the raw bytes are retained as a fallback value and
// the error is recorded as a warning.
type ValueDecodeError struct {
	Tag Tag
	VR  string
	Msg string
}

func (e *ValueDecodeError) Error() string {
	return fmt.Sprintf("dicom: decoding %s value of %s: %s", e.VR, e.Tag, e.Msg)
}

// UnknownVRError reports a 2-character code outside the fixed VR set.
type UnknownVRError struct {
	Name string
}

func (e *UnknownVRError) Error() string {
	return fmt.Sprintf("dicom: unknown VR code %q", e.Name)
}

// DeferredReadError reports that a previously deferred element can no
// longer be materialized because its source is gone. It is fatal only at
// the point of access, never at parse time.
type DeferredReadError struct {
	Tag Tag
	Err error
}

func (e *DeferredReadError) Error() string {
	return fmt.Sprintf("dicom: materializing deferred value of %s: %v", e.Tag, e.Err)
}

func (e *DeferredReadError) Unwrap() error {
	return e.Err
}

// ConformanceError reports that required File Meta elements are missing
// when synthesizing a conformant file. Missing enumerates each absent
// required element so callers can remediate programmatically.
type ConformanceError struct {
	Missing []Tag
}

func (e *ConformanceError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, t := range e.Missing {
		if entry, ok := lookupBuiltin(t); ok {
			names = append(names, fmt.Sprintf("%s %s", t, entry.Keyword))
		} else {
			names = append(names, t.String())
		}
	}
	return fmt.Sprintf("dicom: file meta information is missing required elements: %s",
		strings.Join(names, ", "))
}
