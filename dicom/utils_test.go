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
)

func dcmReaderFromBytes(data []byte) *dcmReader {
	return newDcmReader(bytes.NewBuffer(data))
}

func testContext(syntax transferSyntax) *decodeContext {
	return &decodeContext{syntax: syntax, encoding: defaultCharacterRepertoire, cfg: defaultParseConfig()}
}

func strictContext(syntax transferSyntax) *decodeContext {
	ctx := testContext(syntax)
	ctx.cfg.strict = true
	return ctx
}

func tagBytes(order binary.ByteOrder, tag Tag) []byte {
	b := make([]byte, 4)
	order.PutUint16(b[0:2], tag.Group())
	order.PutUint16(b[2:4], tag.Element())
	return b
}

func uint32Bytes(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

// shortElement encodes an explicit VR element in the 16-bit length form.
func shortElement(order binary.ByteOrder, tag Tag, vrName string, value []byte) []byte {
	b := tagBytes(order, tag)
	b = append(b, vrName...)
	length := make([]byte, 2)
	order.PutUint16(length, uint16(len(value)))
	b = append(b, length...)
	return append(b, value...)
}

// longElement encodes an explicit VR element in the 32-bit length form.
func longElement(order binary.ByteOrder, tag Tag, vrName string, length uint32, value []byte) []byte {
	b := tagBytes(order, tag)
	b = append(b, vrName...)
	b = append(b, 0x00, 0x00)
	b = append(b, uint32Bytes(order, length)...)
	return append(b, value...)
}

func implicitElement(order binary.ByteOrder, tag Tag, length uint32, value []byte) []byte {
	b := tagBytes(order, tag)
	b = append(b, uint32Bytes(order, length)...)
	return append(b, value...)
}

func itemHeader(order binary.ByteOrder, length uint32) []byte {
	return append(tagBytes(order, ItemTag), uint32Bytes(order, length)...)
}

func delimiter(order binary.ByteOrder, tag Tag) []byte {
	return append(tagBytes(order, tag), uint32Bytes(order, 0)...)
}

func paddedUID(uid string) []byte {
	return evenPad([]byte(uid), 0x00)
}

// metaGroupBytes encodes a minimal file meta group in explicit VR little
// endian, starting with a correct group length element.
func metaGroupBytes(tsUID string) []byte {
	le := binary.LittleEndian
	group := shortElement(le, MediaStorageSOPClassUIDTag, "UI", paddedUID("1.2.840.10008.5.1.4.1.1.7"))
	group = append(group, shortElement(le, MediaStorageSOPInstanceUIDTag, "UI", paddedUID("1.2.3.4"))...)
	group = append(group, shortElement(le, TransferSyntaxUIDTag, "UI", paddedUID(tsUID))...)

	b := shortElement(le, FileMetaInformationGroupLengthTag, "UL", uint32Bytes(le, uint32(len(group))))
	return append(b, group...)
}

// sampleFileBytes builds a complete DICOM file: preamble, "DICM", a
// minimal meta group declaring tsUID, then the given dataset bytes.
func sampleFileBytes(tsUID string, dataSetBytes []byte) []byte {
	b := make([]byte, 128)
	b = append(b, "DICM"...)
	b = append(b, metaGroupBytes(tsUID)...)
	return append(b, dataSetBytes...)
}

func createSingletonSequence(elements ...*DataElement) *Sequence {
	ds := &DataSet{Elements: map[Tag]*DataElement{}}
	for _, elem := range elements {
		ds.Elements[elem.Tag] = elem
	}
	return &Sequence{Items: []*DataSet{ds}}
}
