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
	"bufio"
	"fmt"
	"io"
	"os"
)

// Parse parses a DICOM file represented as an io.Reader, returning the DataSet defined by applying
// options sequentially in the order given to DataElements in the file.
//
// By default, BulkDataIterators are buffered into the appropriate in-memory type for the VR:
// [][]byte for OB, OW, OV, UN and encapsulated pixel data, []uint32 for OL, []float64 for OD,
// []float32 for OF. This behaviour can be overridden by supplying a ParseOption that transforms
// DataElements with ValueField of type BulkDataIterator to a ValueField other than
// BulkDataIterator, or by DeferBulkData.
func Parse(r io.Reader, opts ...ParseOption) (*DataSet, error) {
	iter, err := NewDataElementIterator(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating new data element iterator: %v", err)
	}
	defer iter.Close()

	return CollectDataElements(iter, opts...)
}

// ParseFile parses the DICOM file at path. The file is registered as the
// BulkDataSource for the parse, so DeferBulkData can be used without
// further setup and deferred values re-open the file on access.
func ParseFile(path string, opts ...ParseOption) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening DICOM file: %v", err)
	}
	defer f.Close()

	opts = append([]ParseOption{WithBulkDataSource(FileBulkDataSource{Path: path})}, opts...)
	return Parse(bufio.NewReader(f), opts...)
}

// CollectDataElements returns the DataSet defined by the elements in the DataElementIterator.
// The options will be applied in the order given. The DataElementIterator will be closed.
func CollectDataElements(iter DataElementIterator, opts ...ParseOption) (*DataSet, error) {
	ds := &DataSet{Elements: map[Tag]*DataElement{}, Length: iter.length()}

	creators := map[Tag]string{}
	for elem, err := iter.Next(); err != io.EOF; elem, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		annotatePrivate(elem, creators)

		processedElement, err := processElement(elem, iter.context(), opts...)
		if err != nil {
			return nil, err
		}
		if processedElement != nil { // nil check to test if ParseOption wants to filter out element
			ds.Put(processedElement)
		}
	}

	if it, ok := iter.(*dataElementIterator); ok && it.root {
		ds.Warnings = append(ds.Warnings, it.ctx.cfg.warnings...)
	}
	return ds, nil
}

// annotatePrivate records private creator identifications and stamps
// private elements with the creator that reserved their block.
func annotatePrivate(elem *DataElement, creators map[Tag]string) {
	if !elem.Tag.IsPrivate() {
		return
	}
	if elem.Tag.IsPrivateCreator() {
		if creator, err := elem.StringValue(); err == nil {
			creators[elem.Tag] = creator
		}
		return
	}
	if creatorTag, ok := elem.Tag.privateCreatorTag(); ok {
		elem.privateCreator = creators[creatorTag]
	}
}

// CollectSequence returns the Sequence defined by the items in the SequenceIterator.
// The options will be applied in the order given. The SequenceIterator will be closed.
func CollectSequence(iter SequenceIterator, opts ...ParseOption) (*Sequence, error) {
	var seq = &Sequence{[]*DataSet{}}
	for obj, err := iter.Next(); err != io.EOF; obj, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		dataSet, err := CollectDataElements(obj, opts...)
		if err != nil {
			return nil, err
		}
		seq.append(dataSet)
	}
	return seq, nil
}

// CollectFragments returns the sequence of byte slices defined by the sequence of BulkDataReaders
// in the BulkDataIterator. The BulkDataIterator will be closed.
func CollectFragments(iter BulkDataIterator) ([][]byte, error) {
	buff := make([][]byte, 0)
	for r, err := iter.Next(); err != io.EOF; r, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		fragment, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading fragment: %v", err)
		}
		buff = append(buff, fragment)
	}

	return buff, nil
}

// CollectFragmentReferences returns the sequence of BulkDataReferences defined by the sequence of
// BulkDataReaders in the BulkDataIterator. The given BulkDataIterator will be closed.
func CollectFragmentReferences(iter BulkDataIterator) ([]BulkDataReference, error) {
	refs := make([]BulkDataReference, 0)
	for r, err := iter.Next(); err != io.EOF; r, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		fragmentSize, err := io.Copy(io.Discard, r)
		if err != nil {
			return nil, err
		}

		refs = append(refs, BulkDataReference{ByteRegion{r.Offset, fragmentSize}})
	}

	return refs, nil
}

func processElement(element *DataElement, ctx *decodeContext, opts ...ParseOption) (*DataElement, error) {
	if seqIter, ok := element.ValueField.(SequenceIterator); ok {
		// for sequence elements, apply options in post-order. (i.e process sequence items before
		// the sequence element)
		// Processing sequence items first protects options transforming SQ DataElements from the misuse
		// of the SequenceIterator (e.g. not collecting sequence items correctly)
		seq, err := CollectSequence(seqIter, opts...)
		if err != nil {
			return nil, fmt.Errorf("collecting sequence: %v", err)
		}

		processedSeq := &DataElement{Tag: element.Tag, VR: element.VR, ValueField: seq,
			ValueLength: element.ValueLength, privateCreator: element.privateCreator}
		return processElement(processedSeq, ctx, opts...)
	}

	return applyOptions(element, ctx, opts...)
}

func applyOptions(element *DataElement, ctx *decodeContext, opts ...ParseOption) (*DataElement, error) {
	var err error
	for i, opt := range opts {
		if opt.transform == nil {
			continue
		}
		element, err = opt.transform(element)
		if err != nil {
			return nil, fmt.Errorf("applying option %v: %v", i, err)
		}
		if element == nil { // option wants to filter this element out
			return nil, nil
		}
	}

	if _, ok := element.ValueField.(BulkDataIterator); ok {
		// When the options given did not collect the BulkDataIterator we must consume the byte
		// stream here, otherwise the returned DataSet would hold a bunch of spent iterators.
		element, err = bufferBulkData(element, ctx)
	}

	return element, err
}

func bufferBulkData(element *DataElement, ctx *decodeContext) (*DataElement, error) {
	fragmentIterator, ok := element.ValueField.(BulkDataIterator)
	if !ok {
		return nil, fmt.Errorf("wrong type for element.ValueField: got %T, want BulkDataIterator", element.ValueField)
	}

	cfg := ctx.cfg
	if cfg.deferThreshold >= 0 && shouldDefer(element, cfg.deferThreshold) {
		return deferBulkData(element, fragmentIterator, cfg.source)
	}

	fragments, err := CollectFragments(fragmentIterator)
	if err != nil {
		return nil, fmt.Errorf("buffering fragments: %v", err)
	}

	var valueField interface{}
	if element.ValueLength == UndefinedLength || len(fragments) > 1 {
		// encapsulated format: basic offset table first, then one or more frame fragments
		valueField = fragments
	} else {
		var raw []byte
		if len(fragments) == 1 {
			raw = fragments[0]
		}
		valueField, err = decodeValue(element.Tag, element.VR, raw, ctx.syntax.ByteOrder, ctx.encoding)
		if err != nil {
			if cfg.strict {
				return nil, err
			}
			cfg.warnf("element %s: %v; keeping raw bytes", element.Tag, err)
			valueField = raw
		}
	}

	return &DataElement{Tag: element.Tag, VR: element.VR, ValueField: valueField,
		ValueLength: element.ValueLength, privateCreator: element.privateCreator}, nil
}

func shouldDefer(element *DataElement, threshold int64) bool {
	if element.ValueLength == UndefinedLength {
		return true
	}
	return int64(element.ValueLength) >= threshold
}

func deferBulkData(element *DataElement, iter BulkDataIterator, source BulkDataSource) (*DataElement, error) {
	refs, err := CollectFragmentReferences(iter)
	if err != nil {
		return nil, fmt.Errorf("recording fragment references: %v", err)
	}
	regions := make([]ByteRegion, len(refs))
	for i, ref := range refs {
		regions[i] = ref.Reference
	}
	deferred := &DeferredBulkData{Tag: element.Tag, VR: element.VR, Regions: regions, source: source}
	return &DataElement{Tag: element.Tag, VR: element.VR, ValueField: deferred,
		ValueLength: element.ValueLength, privateCreator: element.privateCreator}, nil
}
