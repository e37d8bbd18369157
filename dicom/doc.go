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

// Package dicom provides functions and data structures for encoding and decoding the DICOM
// file format. The package provides a high level and low level API for reading and writing.
// The high level API consists of functions such as Parse and Construct which by default
// operate on DICOM Data Elements buffered into memory as a DataSet. The low level API
// consists of streaming interfaces like the DataElementIterator and the DataElementWriter
// which do not require buffering and can operate on DataElements one at a time.
//
// Parse and the DataElementIterator represent the ValueField of bulk DataElements
// differently. Parse by default buffers VRs of potentially enormous size (OB, OW, OV, OL,
// OD, OF, UN) into memory, or records them as re-readable references when DeferBulkData is
// given. In contrast, the DataElementIterator does not buffer these VRs and instead
// represents them as streaming interfaces. This is particularly useful for heavy image
// processing.
//
// Parsing is lenient by default: recoverable irregularities such as a bad explicit VR code
// or a truncated trailing value are repaired where the standard describes a recovery,
// recorded as warnings on the returned DataSet, and never silently discarded. The Strict
// option turns every such irregularity into an error.
package dicom
