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
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
)

// Number is the value of a numeric string VR (DS, IS). Raw retains the
// exact source text so that re-encoding is lossless; the numeric
// interpretation is derived on demand.
type Number struct {
	Raw string
}

func (n Number) String() string {
	return n.Raw
}

// Int returns the integer interpretation of the number.
func (n Number) Int() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(n.Raw), 10, 64)
}

// Float returns the floating point interpretation of the number.
func (n Number) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(n.Raw), 64)
}

// Numbers converts textual values to a Number slice, for assigning DS/IS
// elements.
func Numbers(raws ...string) []Number {
	ns := make([]Number, len(raws))
	for i, r := range raws {
		ns[i] = Number{Raw: r}
	}
	return ns
}

// decodeValue converts the fully buffered raw bytes of a value field into
// the typed in-memory value for the VR. Sequence and undefined-length bulk
// values never pass through here; they are handled structurally by the
// parser.
func decodeValue(tag Tag, vr *VR, raw []byte, order binary.ByteOrder, enc encoding.Encoding) (interface{}, error) {
	switch vr.kind {
	case textVR, uniqueIdentifierVR:
		return decodeText(vr, raw, enc)
	case numberTextVR:
		return decodeNumberText(tag, vr, raw)
	case numberBinaryVR:
		return decodeNumberBinary(tag, vr, raw, order)
	case tagVR:
		return decodeTags(tag, raw, order)
	case bulkDataVR:
		return decodeBulk(tag, vr, raw, order)
	default:
		return nil, fmt.Errorf("no value decoding for VR %s", vr.Name)
	}
}

func isNullOrSpace(r rune) bool {
	return r == 0x00 || r == ' '
}

// decodeText decodes a text value field: character set conversion,
// backslash multiplicity for the VRs that have it, and padding removal.
func decodeText(vr *VR, raw []byte, enc encoding.Encoding) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	decoded := raw
	if enc != nil {
		d, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding character set: %v", err)
		}
		decoded = d
	}

	isPadding := unicode.IsSpace
	if vr.kind == uniqueIdentifierVR {
		isPadding = isNullOrSpace
	}

	var strs []string
	if vr.split {
		strs = strings.Split(string(decoded), "\\")
	} else {
		strs = []string{string(decoded)}
	}
	for i, s := range strs {
		if !vr.split {
			// backslash-is-data VRs only lose trailing padding
			strs[i] = strings.TrimRightFunc(s, isPadding)
		} else {
			strs[i] = strings.TrimFunc(s, isPadding)
		}
	}
	return strs, nil
}

// decodeNumberText parses a DS or IS value field. The source text of each
// component is retained verbatim (modulo padding) in the returned Numbers;
// malformed components yield a *ValueDecodeError.
func decodeNumberText(tag Tag, vr *VR, raw []byte) ([]Number, error) {
	if len(raw) == 0 {
		return []Number{}, nil
	}

	components := strings.Split(string(raw), "\\")
	numbers := make([]Number, len(components))
	for i, c := range components {
		c = strings.TrimFunc(c, isNullOrSpace)
		numbers[i] = Number{Raw: c}
		if c == "" {
			continue
		}
		var err error
		if vr == ISVR {
			_, err = numbers[i].Int()
		} else {
			_, err = numbers[i].Float()
		}
		if err != nil {
			return nil, &ValueDecodeError{Tag: tag, VR: vr.Name, Msg: fmt.Sprintf("malformed numeric text %q", c)}
		}
	}
	return numbers, nil
}

func decodeNumberBinary(tag Tag, vr *VR, raw []byte, order binary.ByteOrder) (interface{}, error) {
	if vr.width == 0 || len(raw)%vr.width != 0 {
		return nil, &ValueDecodeError{Tag: tag, VR: vr.Name,
			Msg: fmt.Sprintf("value length %d is not a multiple of the %d-byte width", len(raw), vr.width)}
	}

	var data interface{}
	count := len(raw) / vr.width
	switch vr {
	case SSVR:
		data = make([]int16, count)
	case USVR:
		data = make([]uint16, count)
	case SLVR:
		data = make([]int32, count)
	case ULVR:
		data = make([]uint32, count)
	case SVVR:
		data = make([]int64, count)
	case UVVR:
		data = make([]uint64, count)
	case FLVR:
		data = make([]float32, count)
	case FDVR:
		data = make([]float64, count)
	default:
		return nil, fmt.Errorf("no binary decoding for VR %s", vr.Name)
	}

	if err := binary.Read(bytes.NewReader(raw), order, data); err != nil {
		return nil, fmt.Errorf("reading %s values: %v", vr.Name, err)
	}
	return data, nil
}

func decodeTags(tag Tag, raw []byte, order binary.ByteOrder) ([]Tag, error) {
	if len(raw)%4 != 0 {
		return nil, &ValueDecodeError{Tag: tag, VR: ATVR.Name,
			Msg: fmt.Sprintf("value length %d is not a multiple of 4", len(raw))}
	}
	tags := make([]Tag, len(raw)/4)
	for i := range tags {
		t, err := ParseTag(raw[i*4:i*4+4], order)
		if err != nil {
			return nil, err
		}
		tags[i] = t
	}
	return tags, nil
}

// decodeBulk interprets a buffered bulk value field. OB, OW and UN stay
// raw fragments; the typed bulk VRs decode to their numeric slices.
func decodeBulk(tag Tag, vr *VR, raw []byte, order binary.ByteOrder) (interface{}, error) {
	switch vr {
	case OBVR, OWVR, UNVR, OVVR:
		return [][]byte{raw}, nil
	case OLVR:
		return decodeNumberBinaryAs(tag, vr, raw, order, make([]uint32, len(raw)/4))
	case ODVR:
		return decodeNumberBinaryAs(tag, vr, raw, order, make([]float64, len(raw)/8))
	case OFVR:
		return decodeNumberBinaryAs(tag, vr, raw, order, make([]float32, len(raw)/4))
	default:
		return nil, fmt.Errorf("no bulk decoding for VR %s", vr.Name)
	}
}

func decodeNumberBinaryAs(tag Tag, vr *VR, raw []byte, order binary.ByteOrder, data interface{}) (interface{}, error) {
	if len(raw)%vr.width != 0 {
		return nil, &ValueDecodeError{Tag: tag, VR: vr.Name,
			Msg: fmt.Sprintf("value length %d is not a multiple of the %d-byte width", len(raw), vr.width)}
	}
	if err := binary.Read(bytes.NewReader(raw), order, data); err != nil {
		return nil, fmt.Errorf("reading %s values: %v", vr.Name, err)
	}
	return data, nil
}

// encodeTextValue joins multiple values with a backslash, converts through
// the target character encoding when one is given, and applies the
// even-length padding rule with the VR's pad byte.
func encodeTextValue(vr *VR, strs []string, enc *encoding.Encoder) ([]byte, error) {
	joined := strings.Join(strs, "\\")
	b := []byte(joined)
	if enc != nil {
		eb, err := enc.Bytes(b)
		if err != nil {
			return nil, fmt.Errorf("encoding character set: %v", err)
		}
		b = eb
	}
	return evenPad(b, vr.padByte), nil
}

func encodeNumberTextValue(vr *VR, numbers []Number) []byte {
	raws := make([]string, len(numbers))
	for i, n := range numbers {
		raws[i] = n.Raw
	}
	return evenPad([]byte(strings.Join(raws, "\\")), vr.padByte)
}

// evenPad appends a single pad byte when the encoded length is odd,
// maintaining DICOM's even-length-field rule.
func evenPad(b []byte, pad byte) []byte {
	if len(b)%2 != 0 {
		return append(b, pad)
	}
	return b
}
