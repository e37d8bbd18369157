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

// ConstructOption configures how the Construct function behaves
type ConstructOption struct {
	transform Transform
	config    func(*constructConfig)
}

type seqLengthsMode int

const (
	// lengthsPreserve keeps the length form each sequence arrived with
	lengthsPreserve seqLengthsMode = iota
	lengthsExplicit
	lengthsUndefined
)

type constructConfig struct {
	seqLengths   seqLengthsMode
	likeOriginal bool
	dict         Dictionary
	logger       *slog.Logger
}

func defaultConstructConfig() *constructConfig {
	return &constructConfig{
		dict: StandardDictionary(),
	}
}

func (cfg *constructConfig) warnf(format string, args ...interface{}) {
	if cfg.logger != nil {
		cfg.logger.Warn(fmt.Sprintf(format, args...))
	}
}

func constructConfigOption(f func(*constructConfig)) ConstructOption {
	return ConstructOption{config: f}
}

// ConstructOptionWithTransform returns a construct option that applies the given transformation to
// each DataElement before it is written to the DICOM file. For sequence DataElements, the transform
// is applied to the parent DataElement first before being applied to its children
// (i.e. the transform is applied to DataElements in pre-order). Returning nil from the transform
// excludes the element from the output.
func ConstructOptionWithTransform(transform Transform) ConstructOption {
	return ConstructOption{transform: transform}
}

// ExplicitLengths ensures all sequences and sequence items are written with explicit length.
// The behaviour when used in conjunction with UndefinedLengths is undefined.
func ExplicitLengths() ConstructOption {
	return constructConfigOption(func(cfg *constructConfig) { cfg.seqLengths = lengthsExplicit })
}

// UndefinedLengths ensures all sequences and sequence items are written with undefined length
// followed by delimitation items. The behaviour when used in conjunction with ExplicitLengths
// is undefined.
func UndefinedLengths() ConstructOption {
	return constructConfigOption(func(cfg *constructConfig) { cfg.seqLengths = lengthsUndefined })
}

// WriteLikeOriginal disables file meta synthesis and validation: the data set is written exactly
// as it stands, without a preamble or "DICM" marker when no file meta information is present.
// Without this option Construct guarantees a conformant Part 10 file or fails with a
// *ConformanceError.
func WriteLikeOriginal() ConstructOption {
	return constructConfigOption(func(cfg *constructConfig) { cfg.likeOriginal = true })
}

// WithConstructDictionary overrides the data dictionary used to resolve the VRs of elements
// that do not carry one.
func WithConstructDictionary(dict Dictionary) ConstructOption {
	return constructConfigOption(func(cfg *constructConfig) { cfg.dict = dict })
}

// WithConstructLogger emits construction warnings to the given logger.
func WithConstructLogger(logger *slog.Logger) ConstructOption {
	return constructConfigOption(func(cfg *constructConfig) { cfg.logger = logger })
}
