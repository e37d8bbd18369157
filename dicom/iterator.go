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
	"io"

	"github.com/klauspost/compress/flate"
)

// DataElementIterator represents an iterator over a DataSet's DataElements
type DataElementIterator interface {
	// Next returns the next DataElement in the DataSet. If there is no next DataElement, the
	// error io.EOF is returned. In addition, if any previously returned DataElements contained
	// iterable objects like SequenceIterator or BulkDataIterator, these iterators are emptied.
	Next() (*DataElement, error)

	// Close discards all remaining DataElements in the iterator
	Close() error

	context() *decodeContext
	length() uint32
}

// NewDataElementIterator creates a DataElementIterator from a DICOM file
// stream. The file meta group is parsed eagerly to find the transfer
// syntax; its elements are yielded before the main dataset's. The
// implementation consumes input from the io.Reader as needed.
func NewDataElementIterator(r io.Reader, opts ...ParseOption) (DataElementIterator, error) {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		if opt.config != nil {
			opt.config(cfg)
		}
	}
	return newFileIterator(newDcmReader(r), cfg)
}

func newFileIterator(dr *dcmReader, cfg *parseConfig) (DataElementIterator, error) {
	if err := readDicomSignature(dr, cfg); err != nil {
		return nil, err
	}

	metaElems, err := readMetaGroup(dr, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading file meta group: %v", err)
	}

	syntax, err := resolveSyntax(dr, cfg, metaElems)
	if err != nil {
		return nil, err
	}

	if syntax.Deflated {
		// everything following the meta group is a DEFLATE stream
		dr = newDcmReader(flate.NewReader(dr))
		syntax.Deflated = false
		if cfg.deferThreshold >= 0 {
			cfg.warnf("byte offsets are not stable inside a deflated stream; bulk data will be buffered")
			cfg.deferThreshold = -1
		}
	}

	ctx := &decodeContext{syntax: syntax, encoding: defaultCharacterRepertoire, cfg: cfg}
	return &dataElementIterator{dr: dr, ctx: ctx, metaElems: metaElems, root: true}, nil
}

// newDataElementIterator creates an iterator over a nested byte stream
// that has no header info (preamble or file meta elements).
func newDataElementIterator(dr *dcmReader, ctx *decodeContext, itemLength uint32) DataElementIterator {
	return &dataElementIterator{dr: dr, ctx: ctx, itemLength: itemLength}
}

type dataElementIterator struct {
	dr             *dcmReader
	ctx            *decodeContext
	metaElems      []*DataElement
	currentElement *DataElement
	empty          bool
	root           bool
	itemLength     uint32
}

func (it *dataElementIterator) Next() (*DataElement, error) {
	if len(it.metaElems) > 0 {
		elem := it.metaElems[0]
		it.metaElems = it.metaElems[1:]
		return elem, nil
	}
	return it.nextDataSetElement()
}

func (it *dataElementIterator) context() *decodeContext {
	return it.ctx
}

func (it *dataElementIterator) length() uint32 {
	return it.itemLength
}

func (it *dataElementIterator) nextDataSetElement() (*DataElement, error) {
	if it.empty {
		return nil, io.EOF
	}
	if err := it.closeCurrent(); err != nil {
		return nil, fmt.Errorf("closing: %v", err)
	}

	if it.root && it.ctx.cfg.stop != nil {
		tagBytes, err := it.dr.Peek(tagSize)
		if err == io.EOF {
			it.empty = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		tag, err := ParseTag(tagBytes, it.ctx.syntax.ByteOrder)
		if err != nil {
			return nil, err
		}
		if it.ctx.cfg.stop(tag) {
			// the element is left unconsumed
			it.empty = true
			return nil, io.EOF
		}
	}

	element, err := readDataElement(it.dr, it.ctx)
	if err == io.EOF {
		it.empty = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	it.currentElement = element

	return it.currentElement, nil
}

func (it *dataElementIterator) Close() error {
	// empty the iterator
	for _, err := it.Next(); err != io.EOF; _, err = it.Next() {
		if err != nil {
			return fmt.Errorf("unexpected error closing iterator: %v", err)
		}
	}
	return nil
}

// closeCurrent ensures the iterator is ready to read the next DataElement. If this iterator
// previously returned a stream of bytes such as a BulkDataIterator, we need to make sure this
// previously returned stream is emptied in order to advance the input to the bytes of the
// next DataElement. This pattern is similar to the implementation of multipart.Reader in the
// go standard library. https://golang.org/src/mime/multipart/multipart.go?s=8400:8697#L303
func (it *dataElementIterator) closeCurrent() error {
	if it.currentElement == nil {
		return nil
	}

	if closer, ok := it.currentElement.ValueField.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// readDicomSignature consumes the 128-byte preamble and the "DICM"
// marker. A marker directly at the start of the stream (no preamble) is
// also accepted. Anything else is a hard failure unless force mode was
// requested by the caller; the codec never guesses on its own.
func readDicomSignature(dr *dcmReader, cfg *parseConfig) error {
	b, err := dr.Peek(128 + 4)
	if err == nil && string(b[128:132]) == "DICM" {
		return dr.Skip(128 + 4)
	}
	if head, headErr := dr.Peek(4); headErr == nil && string(head) == "DICM" {
		return dr.Skip(4)
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading DICOM signature: %v", err)
	}

	if !cfg.force {
		return &StructuralError{Offset: 0, Msg: `"DICM" marker not found; use Force to read a bare dataset stream`}
	}
	cfg.warnf(`"DICM" marker not found; reading as a bare dataset stream`)
	return nil
}

// readMetaGroup parses the group 0002 elements. The group is always
// encoded in Explicit VR Little Endian regardless of the dataset's
// transfer syntax. The group boundary is found by peeking the group
// number of each upcoming element; the FileMetaInformationGroupLength
// element is retained but never trusted to bound the group.
func readMetaGroup(dr *dcmReader, cfg *parseConfig) ([]*DataElement, error) {
	ctx := &decodeContext{syntax: explicitVRLittleEndian, encoding: defaultCharacterRepertoire, cfg: cfg}

	var elems []*DataElement
	for {
		tagBytes, err := dr.Peek(tagSize)
		if err == io.EOF {
			return elems, nil
		}
		if err != nil {
			return nil, err
		}
		tag, err := ParseTag(tagBytes, binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		if !tag.IsFileMeta() {
			return elems, nil
		}

		elem, err := readDataElement(dr, ctx)
		if err == io.EOF {
			return elems, nil
		}
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
}

// resolveSyntax determines the transfer syntax of the main dataset from
// the meta group, from a caller-forced syntax, or, for bare streams, by
// sniffing whether the first element header carries a valid VR code.
func resolveSyntax(dr *dcmReader, cfg *parseConfig, metaElems []*DataElement) (transferSyntax, error) {
	for _, elem := range metaElems {
		if elem.Tag != TransferSyntaxUIDTag {
			continue
		}
		uid, err := elem.StringValue()
		if err != nil {
			return transferSyntax{}, fmt.Errorf("reading transfer syntax element: %v", err)
		}
		return lookupTransferSyntax(uid), nil
	}

	if cfg.forcedSyntax != "" {
		return lookupTransferSyntax(cfg.forcedSyntax), nil
	}
	if !cfg.force {
		return transferSyntax{}, &StructuralError{Offset: dr.pos(), Msg: "transfer syntax not found in file meta group"}
	}

	// bare stream: sniff the first element header
	head, err := dr.Peek(tagSize + vrSize)
	if err != nil {
		if err == io.EOF {
			// empty dataset; any syntax will do
			return implicitVRLittleEndian, nil
		}
		return transferSyntax{}, err
	}
	if _, vrErr := lookupVRByName(string(head[tagSize : tagSize+vrSize])); vrErr == nil {
		cfg.warnf("no transfer syntax declared; sniffed explicit VR little endian")
		return explicitVRLittleEndian, nil
	}
	cfg.warnf("no transfer syntax declared; sniffed implicit VR little endian")
	return implicitVRLittleEndian, nil
}
