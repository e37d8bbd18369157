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
	"fmt"
	"io"

	"golang.org/x/text/encoding"
)

// encodeContext carries the settings needed to serialize one data set.
// Sequence items copy it, so a Specific Character Set declared inside an
// item never leaks to the enclosing data set.
type encodeContext struct {
	syntax  transferSyntax
	encoder *encoding.Encoder
	cfg     *constructConfig
}

// withDataSetEncoder returns a context using the character repertoire the
// data set declares, if any.
func (ctx encodeContext) withDataSetEncoder(ds *DataSet) encodeContext {
	elem, ok := ds.Elements[SpecificCharacterSetTag]
	if !ok {
		return ctx
	}
	values, ok := elem.ValueField.([]string)
	if !ok {
		ctx.cfg.warnf("specific character set has value type %T, keeping current repertoire", elem.ValueField)
		return ctx
	}
	enc, err := encodingForElement(values)
	if err != nil {
		ctx.cfg.warnf("%v; keeping current repertoire", err)
		return ctx
	}
	ctx.encoder = enc.NewEncoder()
	return ctx
}

func writeDataSet(dw *dcmWriter, ctx encodeContext, ds *DataSet) error {
	ctx = ctx.withDataSetEncoder(ds)
	for _, element := range ds.SortedElements() {
		if err := writeDataElement(dw, ctx, element); err != nil {
			return fmt.Errorf("writing element %s: %v", element.Tag, err)
		}
	}
	return nil
}

// writeDataElement serializes one element. Value lengths are always
// recomputed from the value field; the length parsed from the original
// stream only decides between the defined and undefined length forms.
func writeDataElement(dw *dcmWriter, ctx encodeContext, element *DataElement) error {
	vr := element.VR
	if vr == nil {
		vr = dictionaryVR(ctx.cfg.dict, element.Tag)
	}

	switch v := element.ValueField.(type) {
	case *Sequence:
		return writeSequenceElement(dw, ctx, element.Tag, vr, v, element.ValueLength)
	case SequenceIterator:
		seq, err := CollectSequence(v)
		if err != nil {
			return fmt.Errorf("collecting sequence: %v", err)
		}
		return writeSequenceElement(dw, ctx, element.Tag, vr, seq, element.ValueLength)
	case BulkDataIterator:
		return writeStreamingElement(dw, ctx, element.Tag, vr, v, element.ValueLength)
	case *DeferredBulkData:
		fragments, err := v.Materialize()
		if err != nil {
			return fmt.Errorf("materializing deferred value: %v", err)
		}
		return writeFragmentedElement(dw, ctx, element.Tag, vr, fragments, element.ValueLength)
	case [][]byte:
		return writeFragmentedElement(dw, ctx, element.Tag, vr, v, element.ValueLength)
	}

	payload, err := encodeValueBytes(ctx, vr, element.ValueField)
	if err != nil {
		return err
	}
	if err := writeElementHeader(dw, ctx, element.Tag, vr, uint32(len(payload))); err != nil {
		return err
	}
	return dw.Bytes(payload)
}

func writeElementHeader(dw *dcmWriter, ctx encodeContext, tag Tag, vr *VR, length uint32) error {
	if err := dw.Tag(ctx.syntax.ByteOrder, tag); err != nil {
		return fmt.Errorf("writing tag: %v", err)
	}
	if err := ctx.syntax.writeVR(dw, vr); err != nil {
		return fmt.Errorf("writing VR: %v", err)
	}
	if err := ctx.syntax.writeValueLength(dw, vr, length); err != nil {
		return fmt.Errorf("writing length: %v", err)
	}
	return nil
}

func encodeValueBytes(ctx encodeContext, vr *VR, valueField interface{}) ([]byte, error) {
	switch v := valueField.(type) {
	case nil:
		return nil, nil
	case []string:
		if vr.kind == numberTextVR {
			return encodeNumberTextValue(vr, Numbers(v...)), nil
		}
		return encodeTextValue(vr, v, ctx.encoder)
	case []Number:
		return encodeNumberTextValue(vr, v), nil
	case []byte:
		return evenPad(v, vr.padByte), nil
	case []Tag:
		buff := &bytes.Buffer{}
		for _, tag := range v {
			binary.Write(buff, ctx.syntax.ByteOrder, tag.Group())
			binary.Write(buff, ctx.syntax.ByteOrder, tag.Element())
		}
		return buff.Bytes(), nil
	case []int16, []uint16, []int32, []uint32, []int64, []uint64, []float32, []float64:
		buff := &bytes.Buffer{}
		if err := binary.Write(buff, ctx.syntax.ByteOrder, v); err != nil {
			return nil, fmt.Errorf("encoding numbers: %v", err)
		}
		return buff.Bytes(), nil
	}
	return nil, fmt.Errorf("unexpected value field type %T", valueField)
}

// writeFragmentedElement writes a value held as byte fragments. An
// undefined original length selects the encapsulated format; otherwise
// the fragments are concatenated into a single defined length value.
func writeFragmentedElement(dw *dcmWriter, ctx encodeContext, tag Tag, vr *VR, fragments [][]byte, originalLength uint32) error {
	if originalLength == UndefinedLength {
		if err := writeElementHeader(dw, ctx, tag, vr, UndefinedLength); err != nil {
			return err
		}
		idx := 0
		return writeEncapsulatedFormat(dw, ctx.syntax.ByteOrder, func() (io.Reader, error) {
			if idx >= len(fragments) {
				return nil, io.EOF
			}
			r := bytes.NewReader(fragments[idx])
			idx++
			return r, nil
		})
	}

	payload := evenPad(bytes.Join(fragments, nil), vr.padByte)
	if err := writeElementHeader(dw, ctx, tag, vr, uint32(len(payload))); err != nil {
		return err
	}
	return dw.Bytes(payload)
}

// writeStreamingElement copies bulk data straight from an unconsumed
// iterator. Defined length values stream under their parsed length, which
// bounded the iterator at read time.
func writeStreamingElement(dw *dcmWriter, ctx encodeContext, tag Tag, vr *VR, iter BulkDataIterator, originalLength uint32) error {
	if err := writeElementHeader(dw, ctx, tag, vr, originalLength); err != nil {
		return err
	}
	return iter.write(dw, ctx.syntax)
}

func writeSequenceElement(dw *dcmWriter, ctx encodeContext, tag Tag, vr *VR, seq *Sequence, originalLength uint32) error {
	undefined := originalLength == UndefinedLength
	switch ctx.cfg.seqLengths {
	case lengthsExplicit:
		undefined = false
	case lengthsUndefined:
		undefined = true
	}

	if undefined {
		if err := writeElementHeader(dw, ctx, tag, vr, UndefinedLength); err != nil {
			return err
		}
		for _, item := range seq.Items {
			if err := dw.Item(ctx.syntax.ByteOrder, ItemTag, UndefinedLength); err != nil {
				return err
			}
			if err := writeDataSet(dw, ctx, item); err != nil {
				return fmt.Errorf("writing sequence item: %v", err)
			}
			if err := dw.Delimiter(ctx.syntax.ByteOrder, ItemDelimitationItemTag); err != nil {
				return err
			}
		}
		return dw.Delimiter(ctx.syntax.ByteOrder, SequenceDelimitationItemTag)
	}

	// explicit length form: items are buffered to learn their sizes
	buff := &bytes.Buffer{}
	itemWriter := &dcmWriter{buff}
	for _, item := range seq.Items {
		itemBuff := &bytes.Buffer{}
		if err := writeDataSet(&dcmWriter{itemBuff}, ctx, item); err != nil {
			return fmt.Errorf("writing sequence item: %v", err)
		}
		if err := itemWriter.Item(ctx.syntax.ByteOrder, ItemTag, uint32(itemBuff.Len())); err != nil {
			return err
		}
		if err := itemWriter.Bytes(itemBuff.Bytes()); err != nil {
			return fmt.Errorf("writing sequence item: %v", err)
		}
	}

	if err := writeElementHeader(dw, ctx, tag, vr, uint32(buff.Len())); err != nil {
		return err
	}
	return dw.Bytes(buff.Bytes())
}
