package network

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scan.schema.json
var scanSchemaJSON []byte

const scanSchemaURL = "https://sortsys.local/schemas/scan.schema.json"

var (
	scanSchemaOnce sync.Once
	scanSchema     *jsonschema.Schema
	scanSchemaErr  error
)

func compiledScanSchema() (*jsonschema.Schema, error) {
	scanSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(scanSchemaURL, bytes.NewReader(scanSchemaJSON)); err != nil {
			scanSchemaErr = err
			return
		}
		scanSchema, scanSchemaErr = c.Compile(scanSchemaURL)
	})
	return scanSchema, scanSchemaErr
}

// DecodeInventoryScanned validates data against the scan schema and decodes it.
func DecodeInventoryScanned(data []byte) (*InventoryScannedPayload, error) {
	schema, err := compiledScanSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile scan schema: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse scan: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid scan: %w", err)
	}

	var payload InventoryScannedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode scan: %w", err)
	}
	return &payload, nil
}
