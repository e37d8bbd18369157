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
	"io"

	"github.com/klauspost/compress/flate"
)

// DataElementWriter writes DataElements one at a time. Elements must be
// supplied in ascending tag order; this is not checked.
type DataElementWriter interface {
	WriteElement(element *DataElement) error

	// Close flushes any buffered output. It must be called once all
	// elements are written.
	Close() error
}

// NewDataElementWriter writes the DICOM preamble, signature and file meta group to w and
// returns a DataElementWriter that writes DataElements in the transfer syntax the meta
// group declares. The options are applied in the order given to each DataElement before
// it is written.
func NewDataElementWriter(w io.Writer, meta *FileMeta, opts ...ConstructOption) (DataElementWriter, error) {
	cfg := defaultConstructConfig()
	var transforms []Transform
	for _, opt := range opts {
		if opt.config != nil {
			opt.config(cfg)
		}
		if opt.transform != nil {
			transforms = append(transforms, opt.transform)
		}
	}

	uid, err := meta.TransferSyntaxUID()
	if err != nil {
		return nil, fmt.Errorf("getting transfer syntax from file meta: %v", err)
	}
	syntax := lookupTransferSyntax(uid)

	dw := &dcmWriter{w}
	if err := writeDicomSignature(dw); err != nil {
		return nil, err
	}
	if err := writeMetaGroup(dw, cfg, meta); err != nil {
		return nil, fmt.Errorf("writing file meta group: %v", err)
	}

	dew := &dataElementWriter{dw: dw, ctx: encodeContext{syntax: syntax, cfg: cfg}, transforms: transforms}
	if syntax.Deflated {
		dew.flate, err = flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("creating deflate writer: %v", err)
		}
		dew.dw = &dcmWriter{dew.flate}
		dew.ctx.syntax.Deflated = false
	}
	return dew, nil
}

type dataElementWriter struct {
	dw         *dcmWriter
	ctx        encodeContext
	transforms []Transform
	flate      *flate.Writer
}

func (dew *dataElementWriter) WriteElement(element *DataElement) error {
	element, err := transformElement(element, dew.transforms)
	if err != nil {
		return err
	}
	if element == nil {
		return nil
	}

	if err := writeDataElement(dew.dw, dew.ctx, element); err != nil {
		return err
	}

	// a character set declared mid-stream applies to following elements
	if element.Tag == SpecificCharacterSetTag {
		if values, ok := element.ValueField.([]string); ok {
			if enc, err := encodingForElement(values); err == nil {
				dew.ctx.encoder = enc.NewEncoder()
			} else {
				dew.ctx.cfg.warnf("%v; keeping current repertoire", err)
			}
		}
	}
	return nil
}

func (dew *dataElementWriter) Close() error {
	if dew.flate != nil {
		return dew.flate.Close()
	}
	return nil
}
