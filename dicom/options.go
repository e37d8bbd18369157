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
	"log/slog"
)

// Transform describes a transformation applied to a DataElement
type Transform func(*DataElement) (*DataElement, error)

// ParseOption configures the behavior of the Parse function.
type ParseOption struct {
	transform Transform
	config    func(*parseConfig)
}

// parseConfig is the explicit configuration threaded through one parse.
// Policies are per-call, never process-wide, so concurrent parses can use
// differing policies safely.
type parseConfig struct {
	strict         bool
	force          bool
	forcedSyntax   string
	dict           Dictionary
	logger         *slog.Logger
	stop           func(Tag) bool
	deferThreshold int64
	source         BulkDataSource

	warnings []string
}

func defaultParseConfig() *parseConfig {
	return &parseConfig{
		// lenient is the historical default for this domain given how much
		// real-world data is non-conformant
		strict:         false,
		dict:           StandardDictionary(),
		deferThreshold: -1,
	}
}

// warnf records a recoverable anomaly. Warnings are surfaced on the parsed
// DataSet and, when a logger is configured, logged at Warn.
func (cfg *parseConfig) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	cfg.warnings = append(cfg.warnings, msg)
	if cfg.logger != nil {
		cfg.logger.Warn(msg)
	}
}

func configOption(f func(*parseConfig)) ParseOption {
	return ParseOption{config: f}
}

// Strict aborts the whole parse on the first structural or value decoding
// error instead of recovering with a recorded warning.
func Strict() ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.strict = true })
}

// Force accepts input that lacks the 128-byte preamble and "DICM" marker,
// parsing it as a bare dataset stream. Without Force such input is a hard
// parse failure; the codec never silently guesses.
func Force() ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.force = true })
}

// WithDefaultTransferSyntax sets the transfer syntax assumed for a bare
// dataset stream read under Force when no file meta group is present. When
// not given, the syntax is sniffed from the first element header.
func WithDefaultTransferSyntax(uid string) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.forcedSyntax = uid })
}

// WithDictionary supplies the data dictionary used for implicit VR
// resolution and keyword access. Defaults to StandardDictionary.
func WithDictionary(dict Dictionary) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.dict = dict })
}

// WithLogger directs parse warnings to the given structured logger in
// addition to recording them on the DataSet.
func WithLogger(logger *slog.Logger) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.logger = logger })
}

// StopBefore stops parsing immediately before the first element whose tag
// satisfies the predicate. The element itself is not consumed. This
// supports reading only up to a known large element.
func StopBefore(pred func(Tag) bool) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.stop = pred })
}

// StopBeforeTag stops parsing immediately before the given tag.
func StopBeforeTag(tag Tag) ParseOption {
	return StopBefore(func(t Tag) bool { return t >= tag })
}

// DeferBulkData records bulk data elements whose value length meets the
// threshold as (offset, length) references instead of materializing them,
// bounding memory use. Materialization happens on first access through
// DeferredBulkData.Materialize and requires a re-readable source: either
// one supplied with WithBulkDataSource, or the file itself when using
// ParseFile with a non-deflated transfer syntax.
func DeferBulkData(thresholdBytes int64) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.deferThreshold = thresholdBytes })
}

// WithBulkDataSource supplies the source used to materialize deferred
// bulk data after parsing.
func WithBulkDataSource(source BulkDataSource) ParseOption {
	return configOption(func(cfg *parseConfig) { cfg.source = source })
}

// WithTransform returns a ParseOption that applies the given transformation to each DataElement in
// the DICOM file in the order encountered. For DataElements that contain a sequence, the transform
// is applied to nested DataElements first (i.e. transform is called on DataElements in post-order).
// If the transform returns an error, Parse will stop parsing and return an error.
// If no error is returned and a non-nil DataElement is returned, this DataElement will be added to
// the returned DataSet of Parse. If a nil DataElement is returned, this DataElement will be
// excluded from the DataSet returned from Parse.
func WithTransform(t Transform) ParseOption {
	return ParseOption{transform: t}
}

// ReferenceBulkData ensures that all DataElements with ValueField of type BulkDataIterator are
// transformed to []BulkDataReference when bulkDataDefinition returns true and their default
// buffered types otherwise
func ReferenceBulkData(bulkDataDefinition func(*DataElement) bool) ParseOption {
	return WithTransform(func(element *DataElement) (*DataElement, error) {
		return referenceBulkData(element, bulkDataDefinition)
	})
}

// DropGroupLengths will exclude all group length elements (gggg,0000) from the returned DataSet.
// Group lengths are legacy and are never trusted to bound their group either way; parsing always
// proceeds element by element.
var DropGroupLengths = WithTransform(func(element *DataElement) (*DataElement, error) {
	if element.Tag.IsGroupLength() {
		return nil, nil
	}
	return element, nil
})

// DropBasicOffsetTable will exclude the basic offset table fragment from pixel data encoded using
// the encapsulated (compressed) format. For more information on the offset table and encapsulated
// formats please see http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
var DropBasicOffsetTable = WithTransform(func(element *DataElement) (*DataElement, error) {
	if iter, ok := element.ValueField.(*encapsulatedFormatIterator); ok && element.Tag == PixelDataTag {
		if _, err := iter.Next(); err != nil {
			return nil, fmt.Errorf("discarding offset table: %v", err)
		}
	}
	return element, nil
})

// DefaultBulkDataDefinition returns true if and only if the tag corresponds to a data element
// that contains large non-metadata fields
func DefaultBulkDataDefinition(elem *DataElement) bool {
	switch elem.Tag.repeatingBase() {
	case PixelDataProviderURLTag, AudioSampleDataTag, CurveDataTag, SpectroscopyDataTag,
		OverlayDataTag, EncapsulatedDocumentTag, FloatPixelDataTag, DoubleFloatPixelDataTag,
		PixelDataTag, VariablePixelDataTag, WaveformDataTag:
		return true
	}
	return false
}

func referenceBulkData(element *DataElement, isBulkData func(*DataElement) bool) (*DataElement, error) {
	if isBulkData(element) {
		if bulkIter, ok := element.ValueField.(BulkDataIterator); ok {
			refs, err := CollectFragmentReferences(bulkIter)
			if err != nil {
				return nil, fmt.Errorf("collecting fragment references: %v", err)
			}
			element.ValueField = refs
		}
		return element, nil
	}
	return element, nil
}
