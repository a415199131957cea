// Package config defines the processing configuration flag set carried on
// every Package (spec.md §6's ProcessingConfig) and the helpers that turn
// it into workflow replacement tokens and JSON-loadable defaults, in the
// teacher's Config/Default*Config/Merge idiom (orchestrate/config).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// CompressionAlgorithm is the AIP compression algorithm enum from
// spec.md §6, preserved verbatim.
type CompressionAlgorithm string

const (
	CompressionUnspecified CompressionAlgorithm = "Unspecified"
	CompressionUncompressed CompressionAlgorithm = "Uncompressed"
	CompressionTar          CompressionAlgorithm = "Tar"
	CompressionTarBzip2     CompressionAlgorithm = "TarBzip2"
	CompressionTarGzip      CompressionAlgorithm = "TarGzip"
	Compression7zCopy       CompressionAlgorithm = "S7Copy"
	Compression7zBzip2      CompressionAlgorithm = "S7Bzip2"
	Compression7zLzma       CompressionAlgorithm = "S7Lzma"
)

// ProcessingConfig is the flat, all-defaulted record spec.md §6 names.
// Every field is exposed to workflow command templates as
// "%config:<snake_name>%" via Flatten.
type ProcessingConfig struct {
	AssignUUIDsToDirectories            bool `json:"assign_uuids_to_directories"`
	ExamineContents                     bool `json:"examine_contents"`
	GenerateTransferStructureReport      bool `json:"generate_transfer_structure_report"`
	DocumentEmptyDirectories             bool `json:"document_empty_directories"`
	ExtractPackages                      bool `json:"extract_packages"`
	DeletePackagesAfterExtraction        bool `json:"delete_packages_after_extraction"`
	IdentifyTransfer                     bool `json:"identify_transfer"`
	IdentifySubmissionAndMetadata        bool `json:"identify_submission_and_metadata"`
	IdentifyBeforeNormalization          bool `json:"identify_before_normalization"`
	Normalize                            bool `json:"normalize"`
	TranscribeFiles                      bool `json:"transcribe_files"`
	PerformPolicyChecksOnOriginals       bool `json:"perform_policy_checks_on_originals"`
	PerformPolicyChecksOnPreservationDerivatives bool `json:"perform_policy_checks_on_preservation_derivatives"`

	AIPCompressionLevel     int                  `json:"aip_compression_level"`
	AIPCompressionAlgorithm CompressionAlgorithm `json:"aip_compression_algorithm"`
}

// DefaultProcessingConfig mirrors a3m's conservative defaults: identify and
// normalize on, destructive/expensive options off.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		AssignUUIDsToDirectories:      true,
		IdentifyTransfer:              true,
		IdentifySubmissionAndMetadata: true,
		IdentifyBeforeNormalization:   true,
		Normalize:                     true,
		AIPCompressionLevel:           1,
		AIPCompressionAlgorithm:       CompressionTarGzip,
	}
}

// Flatten returns the config as "%config:<snake_name>%" → value string
// tokens, in field-declaration order, as replctx.Context.FromConfig needs
// to union into a package's replacement mapping.
func (c ProcessingConfig) Flatten() []KV {
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return []KV{
		{"config:assign_uuids_to_directories", b(c.AssignUUIDsToDirectories)},
		{"config:examine_contents", b(c.ExamineContents)},
		{"config:generate_transfer_structure_report", b(c.GenerateTransferStructureReport)},
		{"config:document_empty_directories", b(c.DocumentEmptyDirectories)},
		{"config:extract_packages", b(c.ExtractPackages)},
		{"config:delete_packages_after_extraction", b(c.DeletePackagesAfterExtraction)},
		{"config:identify_transfer", b(c.IdentifyTransfer)},
		{"config:identify_submission_and_metadata", b(c.IdentifySubmissionAndMetadata)},
		{"config:identify_before_normalization", b(c.IdentifyBeforeNormalization)},
		{"config:normalize", b(c.Normalize)},
		{"config:transcribe_files", b(c.TranscribeFiles)},
		{"config:perform_policy_checks_on_originals", b(c.PerformPolicyChecksOnOriginals)},
		{"config:perform_policy_checks_on_preservation_derivatives", b(c.PerformPolicyChecksOnPreservationDerivatives)},
		{"config:aip_compression_level", fmt.Sprintf("%d", c.AIPCompressionLevel)},
		{"config:aip_compression_algorithm", string(c.AIPCompressionAlgorithm)},
	}
}

// KV is one flattened token/value pair.
type KV struct {
	Token string
	Value string
}

// LoadFile reads a JSON-encoded ProcessingConfig from path, starting from
// DefaultProcessingConfig so an omitted field keeps its default rather than
// becoming the bool zero value (the teacher's kernel/config.go LoadConfig
// pattern: decode onto a populated default, not a zero struct).
func LoadFile(path string) (ProcessingConfig, error) {
	cfg := DefaultProcessingConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
