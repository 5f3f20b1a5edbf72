package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldSyncConfig pairs a local field path with a Paystack property path. Both are dot-separated.
type FieldSyncConfig struct {
	FieldPath        string `yaml:"field" json:"field"`
	PaystackProperty string `yaml:"property" json:"property"`
}

// SyncConfig declares how one local collection maps onto a Paystack resource.
type SyncConfig struct {
	Collection           string            `yaml:"collection" json:"collection"`
	Fields               []FieldSyncConfig `yaml:"fields" json:"fields"`
	ResourceType         string            `yaml:"resource" json:"resource"`
	ResourceTypeSingular string            `yaml:"singular,omitempty" json:"singular,omitempty"`
	// Auth marks login-capable collections; documents created for them need credentials.
	Auth bool `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Singular falls back to the resource type when no singular form was given.
func (s *SyncConfig) Singular() string {
	if s.ResourceTypeSingular != "" {
		return s.ResourceTypeSingular
	}
	return s.ResourceType
}

type syncFile struct {
	Sync []SyncConfig `yaml:"sync"`
}

// LoadSyncFile reads sync mappings from YAML. A missing file yields DefaultSyncConfigs.
func LoadSyncFile(path string) ([]SyncConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSyncConfigs(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync file %s: %w", path, err)
	}
	return ParseSyncConfigs(raw)
}

func ParseSyncConfigs(raw []byte) ([]SyncConfig, error) {
	var f syncFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: sync file: %v", ErrInvalidConfig, err)
	}
	return f.Sync, nil
}

func DefaultSyncConfigs() []SyncConfig {
	return []SyncConfig{
		{
			Collection:           "plan",
			ResourceType:         "plan",
			ResourceTypeSingular: "plan",
			Fields: []FieldSyncConfig{
				{FieldPath: "title", PaystackProperty: "name"},
				{FieldPath: "amount", PaystackProperty: "amount"},
				{FieldPath: "interval", PaystackProperty: "interval"},
			},
		},
		{
			Collection:           "customer",
			ResourceType:         "customer",
			ResourceTypeSingular: "customer",
			Auth:                 true,
			Fields: []FieldSyncConfig{
				{FieldPath: "name", PaystackProperty: "first_name"},
				{FieldPath: "lastName", PaystackProperty: "last_name"},
				{FieldPath: "email", PaystackProperty: "email"},
				{FieldPath: "phone", PaystackProperty: "phone"},
			},
		},
		{
			Collection:           "product",
			ResourceType:         "product",
			ResourceTypeSingular: "product",
			Fields: []FieldSyncConfig{
				{FieldPath: "name", PaystackProperty: "name"},
				{FieldPath: "description", PaystackProperty: "description"},
				{FieldPath: "price", PaystackProperty: "price"},
				{FieldPath: "quantity", PaystackProperty: "quantity"},
			},
		},
	}
}
