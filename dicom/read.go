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
	"errors"
	"fmt"
	"io"
)

// readDataElement reads one data element from the stream: tag, VR
// (explicit syntaxes only), length, then value or nested structure.
// It returns io.EOF at the end of the element stream and when an Item
// Delimitation Item closes the enclosing undefined-length item.
func readDataElement(dr *dcmReader, ctx *decodeContext) (*DataElement, error) {
	tag, err := dr.Tag(ctx.syntax.ByteOrder)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &StructuralError{Offset: dr.pos(), Msg: "stream ended inside an element tag"}
		}
		return nil, fmt.Errorf("reading tag: %v", err)
	}

	if tag == ItemDelimitationItemTag {
		// closes a nested data set within an undefined-length sequence item
		length, err := dr.UInt32(ctx.syntax.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("reading 32 bit length of item delimitation: %v", err)
		}
		if length != 0 {
			return nil, &StructuralError{Tag: tag, Offset: dr.pos(),
				Msg: fmt.Sprintf("wrong length for item delimiter: got %d, want 0", length)}
		}
		if !ctx.nested {
			structural := &StructuralError{Tag: tag, Offset: dr.pos(),
				Msg: "item delimitation item outside any sequence item"}
			if ctx.cfg.strict {
				return nil, structural
			}
			ctx.cfg.warnf("%v; treating as end of data set", structural)
		}
		return nil, io.EOF
	}

	vr, implicitHeader, err := readVR(dr, ctx, tag)
	if err != nil {
		return nil, err
	}

	headerSyntax := ctx.syntax
	if implicitHeader {
		headerSyntax.Implicit = true
	}
	length, err := headerSyntax.readValueLength(dr, vr)
	if err != nil {
		return nil, fmt.Errorf("reading length of %s: %v", tag, err)
	}

	if length == UndefinedLength && !vr.canHaveUndefinedLength() {
		structural := &StructuralError{Tag: tag, Offset: dr.pos(),
			Msg: fmt.Sprintf("undefined length is not legal for VR %s", vr.Name)}
		if ctx.cfg.strict {
			return nil, structural
		}
		// recover by assuming sequence framing, which is the only thing an
		// undefined length can delimit
		ctx.cfg.warnf("%v; parsing as a sequence", structural)
		vr = SQVR
	}

	value, err := readValue(dr, ctx, tag, vr, length)
	if err != nil {
		return nil, err
	}

	element := &DataElement{Tag: tag, VR: vr, ValueField: value, ValueLength: length}

	if tag == SpecificCharacterSetTag {
		updateCharacterSet(ctx, element)
	}

	return element, nil
}

// readVR resolves the element's VR. In explicit syntaxes an unreadable VR
// code is recoverable under the lenient policy by re-reading the element
// header as implicit VR, which some non-conformant writers emit for
// individual elements. The second return is true when the header must be
// finished with implicit length rules because no VR was consumed.
func readVR(dr *dcmReader, ctx *decodeContext, tag Tag) (*VR, bool, error) {
	if ctx.syntax.Implicit {
		return dictionaryVR(ctx.cfg.dict, tag), false, nil
	}

	code, err := dr.Peek(vrSize)
	if err != nil {
		return nil, false, &StructuralError{Tag: tag, Offset: dr.pos(), Msg: "stream ended before VR code"}
	}
	vr, lookupErr := lookupVRByName(string(code))
	if lookupErr == nil {
		if err := dr.Skip(vrSize); err != nil {
			return nil, false, err
		}
		return vr, false, nil
	}

	if ctx.cfg.strict {
		return nil, false, lookupErr
	}
	// the peeked bytes stay in the stream: they are the start of the
	// 32-bit implicit length
	ctx.cfg.warnf("element %s: %v; retrying header as implicit VR", tag, lookupErr)
	return dictionaryVR(ctx.cfg.dict, tag), true, nil
}

func readValue(dr *dcmReader, ctx *decodeContext, tag Tag, vr *VR, length uint32) (interface{}, error) {
	if vr.kind == sequenceVR {
		return readSequence(dr, ctx, vr, length)
	}

	if length == UndefinedLength {
		// VR is OB, OW or UN here. UN with undefined length is, per PS3.5
		// 6.2.2, an implicit VR little endian sequence written by a sender
		// that did not know the real VR.
		if vr == UNVR {
			seqCtx := ctx.child()
			seqCtx.syntax = implicitVRLittleEndian
			return newSequenceIterator(dr, length, seqCtx)
		}
		if tag == PixelDataTag {
			// undefined length pixel data is the encapsulated (compressed)
			// format of PS3.5 A.4
			return newEncapsulatedFormatIterator(dr), nil
		}
		structural := &StructuralError{Tag: tag, Offset: dr.pos(),
			Msg: fmt.Sprintf("undefined length outside pixel data is not supported for VR %s", vr.Name)}
		if ctx.cfg.strict {
			return nil, structural
		}
		ctx.cfg.warnf("%v; parsing as a sequence", structural)
		return newSequenceIterator(dr, length, ctx.child())
	}

	if vr.kind == bulkDataVR {
		// defined-length bulk data stays streaming; the collection layer
		// decides whether to buffer, reference or defer it
		return newOneShotIterator(limitCountReader(dr.cr, int64(length))), nil
	}

	raw, err := readRawValue(dr, tag, length)
	if err != nil {
		var truncated *TruncatedDataError
		if errors.As(err, &truncated) && !ctx.cfg.strict {
			ctx.cfg.warnf("%v; keeping partial raw value", err)
			return truncated.raw, nil
		}
		return nil, err
	}

	value, err := decodeValue(tag, vr, raw, ctx.syntax.ByteOrder, ctx.encoding)
	if err != nil {
		var decodeErr *ValueDecodeError
		if errors.As(err, &decodeErr) && !ctx.cfg.strict {
			// retain the raw bytes as an un-decoded fallback; never drop
			// the element
			ctx.cfg.warnf("%v; keeping raw bytes", err)
			return raw, nil
		}
		return nil, err
	}
	return value, nil
}

// readRawValue buffers a defined-length value field, reporting truncation
// with the partial bytes attached for the lenient path.
func readRawValue(dr *dcmReader, tag Tag, length uint32) ([]byte, error) {
	raw := make([]byte, length)
	got, err := io.ReadFull(dr, raw)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return nil, &TruncatedDataError{Tag: tag, Declared: length, Got: int64(got), raw: raw[:got]}
	}
	if err != nil {
		return nil, fmt.Errorf("reading value of %s: %v", tag, err)
	}
	return raw, nil
}

func readSequence(dr *dcmReader, ctx *decodeContext, vr *VR, length uint32) (SequenceIterator, error) {
	return newSequenceIterator(dr, length, ctx.child())
}

// updateCharacterSet switches the decoding context to the Specific
// Character Set just parsed. The declaration applies to following elements
// in the same data set and to nested items, which copy the context.
func updateCharacterSet(ctx *decodeContext, element *DataElement) {
	values, ok := element.ValueField.([]string)
	if !ok {
		ctx.cfg.warnf("element %s: specific character set has value type %T, keeping default repertoire",
			element.Tag, element.ValueField)
		return
	}
	enc, err := encodingForElement(values)
	if err != nil {
		ctx.cfg.warnf("element %s: %v; keeping default repertoire", element.Tag, err)
		return
	}
	ctx.encoding = enc
}
