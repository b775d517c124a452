// Copyright 2025 Certen Protocol
//
// Operator export/import, including the YAML file form an operator can
// hand-edit or ship alongside a node's deployment manifest. Grounded on
// this codebase's existing split between env-var runtime config
// (pkg/config/config.go) and YAML for structured operational documents
// (config/anchor_config.go's use of gopkg.in/yaml.v3).

package registry

import (
	"encoding/hex"
	"os"

	"gopkg.in/yaml.v3"
)

// OperatorExport is one entry of ExportOperators / ImportOperators. Private
// keys never appear here, per §6 "Operator export".
type OperatorExport struct {
	PublicKey    string `yaml:"public_key" json:"public_key"`
	Name         string `yaml:"name" json:"name"`
	Weight       int    `yaml:"weight" json:"weight"`
	RegisteredAt int64  `yaml:"registered_at" json:"registered_at"`
}

// ExportOperators returns every registered operator (including self) in
// wire form, never including private key material.
func (r *Registry) ExportOperators() []OperatorExport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OperatorExport, 0, len(r.operators))
	for k, op := range r.operators {
		out = append(out, OperatorExport{
			PublicKey:    k,
			Name:         op.Name,
			Weight:       op.Weight,
			RegisteredAt: op.RegisteredAt.UnixMilli(),
		})
	}
	return out
}

// ImportResult reports how many entries ImportOperators applied.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportOperators registers every entry not already present (by public
// key). Entries for the self operator, or with a malformed key, are
// skipped rather than erroring, since import is a best-effort bulk
// operation.
func (r *Registry) ImportOperators(entries []OperatorExport) ImportResult {
	var res ImportResult
	for _, e := range entries {
		pk, err := hex.DecodeString(e.PublicKey)
		if err != nil || len(pk) == 0 {
			res.Skipped++
			continue
		}
		r.mu.RLock()
		isSelf := hex.EncodeToString(pk) == r.selfKey
		_, exists := r.operators[hex.EncodeToString(pk)]
		r.mu.RUnlock()
		if isSelf || exists {
			res.Skipped++
			continue
		}
		if _, err := r.RegisterOperator(OperatorOptions{PublicKey: pk, Name: e.Name, Weight: e.Weight}); err != nil {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res
}

// ExportOperatorsYAML writes ExportOperators() to path as a YAML document.
func (r *Registry) ExportOperatorsYAML(path string) error {
	data, err := yaml.Marshal(r.ExportOperators())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ImportOperatorsYAML reads a YAML operator list from path and imports it.
func (r *Registry) ImportOperatorsYAML(path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	var entries []OperatorExport
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return ImportResult{}, err
	}
	return r.ImportOperators(entries), nil
}
