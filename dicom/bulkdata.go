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
	"os"
)

// BulkDataReference describes the location of a contiguous sequence of bytes in a file
type BulkDataReference struct {
	Reference ByteRegion
}

// ByteRegion is a contiguous sequence of bytes in a file described by an Offset and a length
type ByteRegion struct {
	Offset int64
	Length int64
}

// BulkDataReader represents a streamable contiguous sequence of bytes within a file
type BulkDataReader struct {
	io.Reader

	// Offset is the number of bytes in the file preceding the bulk data described
	// by the BulkDataReader
	Offset int64
}

// Close discards all bytes in the reader
func (r *BulkDataReader) Close() error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// BulkDataIterator represents a sequence of BulkDataReaders.
type BulkDataIterator interface {
	// Next returns the next BulkDataReader in the iterator and discards all bytes from all previous
	// BulkDataReaders returned from Next. If there are no remaining BulkDataReader in the iterator,
	// the error io.EOF is returned
	Next() (*BulkDataReader, error)

	// Close discards all remaining BulkDataReaders in the iterator. Any previously returned
	// BulkDataReaders from calls to Next are also emptied.
	Close() error

	write(w io.Writer, syntax transferSyntax) error
}

// oneShotIterator is a BulkDataIterator that contains exactly one BulkDataReader
type oneShotIterator struct {
	cr    *countReader
	empty bool
}

func newOneShotIterator(cr *countReader) BulkDataIterator {
	return &oneShotIterator{cr, false}
}

func (it *oneShotIterator) Next() (*BulkDataReader, error) {
	if it.empty {
		return nil, io.EOF
	}

	it.empty = true

	return &BulkDataReader{it.cr, it.cr.bytesRead}, nil
}

func (it *oneShotIterator) Close() error {
	if _, err := io.Copy(io.Discard, it.cr); err != nil {
		return fmt.Errorf("closing bulk data: %v", err)
	}

	it.empty = true

	return nil
}

func (it *oneShotIterator) write(w io.Writer, syntax transferSyntax) error {
	return writeByteFragments(w, func() (io.Reader, error) {
		r, err := it.Next()
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// encapsulatedFormatIterator represents pixel data in the encapsulated
// format described in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
type encapsulatedFormatIterator struct {
	dr            *dcmReader
	currentReader *BulkDataReader
	empty         bool
}

func newEncapsulatedFormatIterator(dr *dcmReader) BulkDataIterator {
	return &encapsulatedFormatIterator{dr, nil, false}
}

// Next returns the next fragment of the pixel data. The first return from Next will be the
// Basic Offset Table if present or an empty BulkDataReader otherwise. When Next is called,
// any previously returned BulkDataReaders from previous calls to Next will be emptied. When there
// are no remaining fragments in the iterator, the error io.EOF is returned.
func (it *encapsulatedFormatIterator) Next() (*BulkDataReader, error) {
	if it.empty {
		return nil, io.EOF
	}

	if it.currentReader != nil {
		if err := it.currentReader.Close(); err != nil {
			return nil, err
		}
	}

	tag, err := processItemTag(it.dr, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("reading tag of encapsulated format fragment: %v", err)
	}
	if tag == SequenceDelimitationItemTag {
		return nil, it.terminate()
	}

	length, err := it.dr.UInt32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	if length >= UndefinedLength {
		return nil, &StructuralError{Tag: tag, Offset: it.dr.pos(),
			Msg: "encapsulated fragment must have explicit length"}
	}

	currentReaderBytes := limitCountReader(it.dr.cr, int64(length))
	it.currentReader = &BulkDataReader{currentReaderBytes, currentReaderBytes.bytesRead}

	return it.currentReader, nil
}

// Close discards all fragments in the iterator
func (it *encapsulatedFormatIterator) Close() error {
	for r, err := it.Next(); err != io.EOF; r, err = it.Next() {
		if err != nil {
			return fmt.Errorf("reading next fragment: %v", err)
		}
		if err := r.Close(); err != nil {
			return fmt.Errorf("discarding fragment on Close: %v", err)
		}
	}

	return nil
}

func (it *encapsulatedFormatIterator) write(w io.Writer, syntax transferSyntax) error {
	return writeEncapsulatedFormat(w, syntax.ByteOrder, func() (io.Reader, error) {
		r, err := it.Next()
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

func (it *encapsulatedFormatIterator) terminate() error {
	length, err := it.dr.UInt32(binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("reading 32 bit length of sequence delimitation item: %v", err)
	}
	if length != 0 {
		return &StructuralError{Tag: SequenceDelimitationItemTag, Offset: it.dr.pos(),
			Msg: fmt.Sprintf("expected 0 length on sequence delimiter, got %d", length)}
	}
	it.empty = true
	return io.EOF
}

// BulkDataSource re-opens regions of the original input so that deferred
// elements can be materialized after parsing has finished.
type BulkDataSource interface {
	Open(region ByteRegion) (io.ReadCloser, error)
}

// FileBulkDataSource is a BulkDataSource backed by a file path. Each Open
// re-opens the file, so the returned readers are independent.
type FileBulkDataSource struct {
	Path string
}

type fileRegionReader struct {
	f *os.File
	io.Reader
}

func (r *fileRegionReader) Close() error {
	return r.f.Close()
}

// Open opens the described region of the file.
func (s FileBulkDataSource) Open(region ByteRegion) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(region.Offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &fileRegionReader{f, io.LimitReader(f, region.Length)}, nil
}

// DeferredBulkData is the value of an element whose bytes were recorded as
// (offset, length) references instead of being materialized at parse time.
// Materialization re-opens the original source on first access.
type DeferredBulkData struct {
	Tag Tag
	VR  *VR

	// Regions locates each fragment of the value in the original input.
	Regions []ByteRegion

	source BulkDataSource
}

// Materialize reads the referenced bytes back from the source, one byte
// slice per fragment. It fails with a *DeferredReadError when the source
// is no longer available.
func (d *DeferredBulkData) Materialize() ([][]byte, error) {
	if d.source == nil {
		return nil, &DeferredReadError{Tag: d.Tag, Err: fmt.Errorf("no re-readable source available")}
	}
	fragments := make([][]byte, 0, len(d.Regions))
	for _, region := range d.Regions {
		r, err := d.source.Open(region)
		if err != nil {
			return nil, &DeferredReadError{Tag: d.Tag, Err: err}
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, &DeferredReadError{Tag: d.Tag, Err: err}
		}
		if int64(len(b)) != region.Length {
			return nil, &DeferredReadError{Tag: d.Tag,
				Err: fmt.Errorf("source returned %d bytes for region of %d", len(b), region.Length)}
		}
		fragments = append(fragments, b)
	}
	return fragments, nil
}

// writeByteFragments writes the concatenated byte fragments in the fragmentProvider to w
func writeByteFragments(w io.Writer, fragmentProvider func() (io.Reader, error)) error {
	for fragment, err := fragmentProvider(); err != io.EOF; fragment, err = fragmentProvider() {
		if err != nil {
			return fmt.Errorf("retrieving next fragment: %v", err)
		}
		if _, err := io.Copy(w, fragment); err != nil {
			return fmt.Errorf("writing fragment: %v", err)
		}
	}
	return nil
}

// writeEncapsulatedFormat writes the byte fragments in the encapsulated
// format. The first fragment provided by fragmentProvider is assumed to be
// the basic offset table.
func writeEncapsulatedFormat(w io.Writer, order binary.ByteOrder, fragmentProvider func() (io.Reader, error)) error {
	dw := &dcmWriter{w}

	for fragment, err := fragmentProvider(); err != io.EOF; fragment, err = fragmentProvider() {
		if err != nil {
			return err
		}
		if err := dw.Tag(order, ItemTag); err != nil {
			return fmt.Errorf("writing fragment tag: %v", err)
		}

		// TODO provide way of stream writing the fragments without buffering
		buff, err := io.ReadAll(fragment)
		if err != nil {
			return fmt.Errorf("buffering fragment: %v", err)
		}
		buff = evenPad(buff, 0x00)

		if err := dw.UInt32(order, uint32(len(buff))); err != nil {
			return fmt.Errorf("writing fragment length: %v", err)
		}
		if err := dw.Bytes(buff); err != nil {
			return fmt.Errorf("writing fragment: %v", err)
		}
	}

	return dw.Delimiter(order, SequenceDelimitationItemTag)
}
