package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/storage"
)

type seedRecord struct {
	Address string         `yaml:"address"`
	OnChain map[string]any `yaml:"onChain"`
	DataURI string         `yaml:"dataUri"`
}

type seedFile struct {
	Hotels    []seedRecord              `yaml:"hotels"`
	Airlines  []seedRecord              `yaml:"airlines"`
	Documents map[string]map[string]any `yaml:"documents"`
}

// loadSeed populates the in-memory store and directories from a YAML file.
func loadSeed(path string, store *storage.MemoryAdapter, hotels, airlines *ledger.MemoryDirectory) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for uri, doc := range seed.Documents {
		store.Store(uri, doc)
	}
	for _, rec := range seed.Hotels {
		hotels.Add(ledger.Record{Address: rec.Address, OnChain: rec.OnChain, DataURI: rec.DataURI})
	}
	for _, rec := range seed.Airlines {
		airlines.Add(ledger.Record{Address: rec.Address, OnChain: rec.OnChain, DataURI: rec.DataURI})
	}
	return nil
}
