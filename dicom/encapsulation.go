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
)

// Encapsulate arranges compressed frames as the fragment list of an
// encapsulated pixel data element: the Basic Offset Table first, then one
// fragment per frame. When withOffsetTable is false the table is written
// empty, which is permitted by PS3.5 A.4. The result can be stored as the
// ValueField of a PixelData element with ValueLength UndefinedLength.
func Encapsulate(frames [][]byte, withOffsetTable bool) [][]byte {
	fragments := make([][]byte, 0, len(frames)+1)

	var table []byte
	if withOffsetTable {
		table = make([]byte, 4*len(frames))
		offset := uint32(0)
		for i, frame := range frames {
			binary.LittleEndian.PutUint32(table[4*i:], offset)
			length := uint32(len(frame))
			if length%2 != 0 {
				length++
			}
			offset += 8 /*item header*/ + length
		}
	}
	fragments = append(fragments, table)

	return append(fragments, frames...)
}

// GenerateFrames reassembles the frames of an encapsulated pixel data
// value from its fragment list, whose first entry is the Basic Offset
// Table. A populated table drives the grouping of fragments into frames.
// With an empty table the fragments are matched to frames positionally:
// a single frame owns every fragment, otherwise the fragment count must
// be a multiple of frameCount.
func GenerateFrames(fragments [][]byte, frameCount int) ([][]byte, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("encapsulated pixel data must begin with a basic offset table fragment")
	}
	table, fragments := fragments[0], fragments[1:]
	if frameCount < 1 {
		frameCount = 1
	}

	if len(table) > 0 {
		return framesFromOffsetTable(table, fragments)
	}

	if frameCount == 1 {
		return [][]byte{joinFragments(fragments)}, nil
	}
	if len(fragments)%frameCount != 0 {
		return nil, fmt.Errorf("cannot split %d fragments into %d frames without an offset table",
			len(fragments), frameCount)
	}
	perFrame := len(fragments) / frameCount
	frames := make([][]byte, 0, frameCount)
	for i := 0; i < len(fragments); i += perFrame {
		frames = append(frames, joinFragments(fragments[i:i+perFrame]))
	}
	return frames, nil
}

func framesFromOffsetTable(table []byte, fragments [][]byte) ([][]byte, error) {
	if len(table)%4 != 0 {
		return nil, fmt.Errorf("basic offset table length %d is not a multiple of 4", len(table))
	}
	offsets := make([]uint32, len(table)/4)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(table[4*i:])
	}
	if offsets[0] != 0 {
		return nil, fmt.Errorf("basic offset table must start at offset 0, got %d", offsets[0])
	}

	// the start offset of each fragment, measured from the first byte
	// after the offset table item. On the wire every fragment occupies an
	// even number of bytes, so odd in-memory fragments count their pad byte.
	starts := make([]uint32, len(fragments))
	offset := uint32(0)
	for i, fragment := range fragments {
		starts[i] = offset
		length := uint32(len(fragment))
		offset += 8 /*item header*/ + length + length%2
	}

	frames := make([][]byte, 0, len(offsets))
	fragmentIdx := 0
	for i, frameOffset := range offsets {
		if fragmentIdx >= len(fragments) || starts[fragmentIdx] != frameOffset {
			return nil, fmt.Errorf("basic offset table entry %d (%d) does not land on a fragment boundary", i, frameOffset)
		}
		end := uint32(offset)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		frameStart := fragmentIdx
		for fragmentIdx < len(fragments) && starts[fragmentIdx] < end {
			fragmentIdx++
		}
		frames = append(frames, joinFragments(fragments[frameStart:fragmentIdx]))
	}
	if fragmentIdx != len(fragments) {
		return nil, fmt.Errorf("%d fragments not covered by the basic offset table", len(fragments)-fragmentIdx)
	}
	return frames, nil
}

func joinFragments(fragments [][]byte) []byte {
	size := 0
	for _, fragment := range fragments {
		size += len(fragment)
	}
	frame := make([]byte, 0, size)
	for _, fragment := range fragments {
		frame = append(frame, fragment...)
	}
	return frame
}

// PixelDataFrames returns the pixel data of the data set as one byte
// slice per frame. Encapsulated pixel data is reassembled from its
// fragments; native pixel data is split evenly across the frame count
// declared by NumberOfFrames. Deferred pixel data is materialized first.
func (ds *DataSet) PixelDataFrames() ([][]byte, error) {
	element, ok := ds.Elements[PixelDataTag]
	if !ok {
		return nil, fmt.Errorf("data set has no pixel data %s", PixelDataTag)
	}

	frameCount := 1
	if elem, ok := ds.Elements[NumberOfFramesTag]; ok {
		if n, err := elem.IntValue(); err == nil && n > 0 {
			frameCount = int(n)
		}
	}

	var fragments [][]byte
	switch v := element.ValueField.(type) {
	case [][]byte:
		fragments = v
	case *DeferredBulkData:
		materialized, err := v.Materialize()
		if err != nil {
			return nil, err
		}
		fragments = materialized
	case []byte:
		fragments = [][]byte{v}
	default:
		return nil, fmt.Errorf("pixel data has unsupported value type %T", element.ValueField)
	}

	if element.ValueLength == UndefinedLength {
		return GenerateFrames(fragments, frameCount)
	}

	// native format: a single value holding frameCount frames back to back
	data := joinFragments(fragments)
	if len(data)%frameCount != 0 {
		return nil, fmt.Errorf("native pixel data of %d bytes cannot hold %d equal frames", len(data), frameCount)
	}
	frameSize := len(data) / frameCount
	frames := make([][]byte, 0, frameCount)
	for i := 0; i < len(data); i += frameSize {
		frames = append(frames, data[i:i+frameSize])
	}
	return frames, nil
}
