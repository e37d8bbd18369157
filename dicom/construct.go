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
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Identification of this implementation, written into the file meta group
// of constructed files that do not already carry one.
const (
	ImplementationClassUID     = "1.2.826.0.1.3680043.9.7433.1.1"
	ImplementationVersionName  = "DICOMCODEC_010"
	fileMetaInformationVersion = "\x00\x01"
)

// Construct writes the given *DataSet as a DICOM file to the given io.Writer. The output transfer
// syntax is taken from the TransferSyntaxUID element (0002,0010) of the file meta information.
//
// By default the file meta group is completed from the data set where possible (media storage
// identifiers, implementation identification) and then validated; a *ConformanceError is returned
// when a required meta element is still missing. WriteLikeOriginal disables this and writes the
// data set exactly as it stands.
//
// If a *DataElement in the *DataSet is missing its VR it is filled in from the data dictionary.
// The ValueLength of DataElements is never trusted: lengths are re-calculated from the values,
// with the original length deciding only between the defined and undefined length forms.
func Construct(w io.Writer, dataSet *DataSet, opts ...ConstructOption) error {
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

	dataSet, err := transformDataSet(dataSet, transforms)
	if err != nil {
		return err
	}

	meta := dataSet.FileMeta
	if !cfg.likeOriginal {
		meta, err = completedFileMeta(dataSet)
		if err != nil {
			return err
		}
	}

	syntax := explicitVRLittleEndian
	if uid, err := meta.TransferSyntaxUID(); err == nil {
		syntax = lookupTransferSyntax(uid)
	} else {
		cfg.warnf("%v; writing explicit VR little endian", err)
	}

	dw := &dcmWriter{w}
	if meta != nil && len(meta.Elements) > 0 {
		if err := writeDicomSignature(dw); err != nil {
			return err
		}
		if err := writeMetaGroup(dw, cfg, meta); err != nil {
			return fmt.Errorf("writing file meta group: %v", err)
		}
	}

	if syntax.Deflated {
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return fmt.Errorf("creating deflate writer: %v", err)
		}
		syntax.Deflated = false
		if err := writeDataSet(&dcmWriter{fw}, encodeContext{syntax: syntax, cfg: cfg}, dataSet); err != nil {
			return err
		}
		return fw.Close()
	}

	return writeDataSet(dw, encodeContext{syntax: syntax, cfg: cfg}, dataSet)
}

func transformDataSet(ds *DataSet, transforms []Transform) (*DataSet, error) {
	if len(transforms) == 0 {
		return ds, nil
	}
	out := &DataSet{Elements: map[Tag]*DataElement{}, FileMeta: ds.FileMeta, Length: ds.Length}
	for _, element := range ds.SortedElements() {
		element, err := transformElement(element, transforms)
		if err != nil {
			return nil, err
		}
		if element == nil { // transform wants to filter this element out
			continue
		}
		out.Elements[element.Tag] = element
	}
	return out, nil
}

func transformElement(element *DataElement, transforms []Transform) (*DataElement, error) {
	var err error
	for i, transform := range transforms {
		element, err = transform(element)
		if err != nil {
			return nil, fmt.Errorf("applying option %v: %v", i, err)
		}
		if element == nil {
			return nil, nil
		}
	}

	seq, ok := element.ValueField.(*Sequence)
	if !ok {
		return element, nil
	}
	items := make([]*DataSet, 0, len(seq.Items))
	for _, item := range seq.Items {
		transformedItem, err := transformDataSet(item, transforms)
		if err != nil {
			return nil, err
		}
		items = append(items, transformedItem)
	}
	transformed := *element
	transformed.ValueField = &Sequence{Items: items}
	return &transformed, nil
}

// completedFileMeta fills derivable file meta elements from the data set
// and validates the result. The incoming meta information is not modified.
func completedFileMeta(ds *DataSet) (*FileMeta, error) {
	elements := map[Tag]*DataElement{}
	if ds.FileMeta != nil {
		for tag, elem := range ds.FileMeta.Elements {
			elements[tag] = elem
		}
	}

	ensure := func(tag Tag, vr *VR, value interface{}) {
		if _, ok := elements[tag]; !ok {
			elements[tag] = &DataElement{Tag: tag, VR: vr, ValueField: value}
		}
	}

	// media storage identifiers mirror the SOP identifiers of the data set
	if elem, ok := ds.Elements[SOPClassUIDTag]; ok {
		if uid, err := elem.StringValue(); err == nil {
			ensure(MediaStorageSOPClassUIDTag, UIVR, []string{uid})
		}
	}
	if elem, ok := ds.Elements[SOPInstanceUIDTag]; ok {
		if uid, err := elem.StringValue(); err == nil {
			ensure(MediaStorageSOPInstanceUIDTag, UIVR, []string{uid})
		}
	}
	ensure(FileMetaInformationVersionTag, OBVR, []byte(fileMetaInformationVersion))
	ensure(ImplementationClassUIDTag, UIVR, []string{ImplementationClassUID})
	ensure(ImplementationVersionNameTag, SHVR, []string{ImplementationVersionName})

	meta := &FileMeta{Elements: elements}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// writeMetaGroup writes the group 0002 elements in explicit VR little
// endian. The FileMetaInformationGroupLength element is re-calculated
// from the encoded group, never copied through.
func writeMetaGroup(dw *dcmWriter, cfg *constructConfig, meta *FileMeta) error {
	metaCtx := encodeContext{syntax: explicitVRLittleEndian, cfg: cfg}

	buff := &bytes.Buffer{}
	bw := &dcmWriter{buff}
	for _, element := range meta.SortedElements() {
		if element.Tag == FileMetaInformationGroupLengthTag {
			continue
		}
		if err := writeDataElement(bw, metaCtx, element); err != nil {
			return fmt.Errorf("writing element %s: %v", element.Tag, err)
		}
	}

	groupLength := &DataElement{
		Tag:        FileMetaInformationGroupLengthTag,
		VR:         ULVR,
		ValueField: []uint32{uint32(buff.Len())},
	}
	if err := writeDataElement(dw, metaCtx, groupLength); err != nil {
		return fmt.Errorf("writing group length: %v", err)
	}
	return dw.Bytes(buff.Bytes())
}

func writeDicomSignature(dw *dcmWriter) error {
	if err := dw.Bytes(make([]byte, 128)); err != nil {
		return fmt.Errorf("writing DICOM preamble: %v", err)
	}

	if err := dw.String("DICM"); err != nil {
		return fmt.Errorf("writing DICOM signature: %v", err)
	}

	return nil
}
