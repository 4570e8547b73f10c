package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Encode serializes an instance into its canonical document form. The
// instance holds no maps, so the output is deterministic for a given state
// and is what storage persists.
func Encode(inst *Instance) ([]byte, error) {
	data, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode instance %d: %w", inst.ID, err)
	}
	return data, nil
}

// Decode rebuilds an instance from its document form.
func Decode(data []byte) (*Instance, error) {
	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to decode instance: %w", err)
	}
	return &inst, nil
}

// Checksum returns the hex SHA-256 of the canonical encoding.
func Checksum(inst *Instance) (string, error) {
	data, err := Encode(inst)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Clone returns a deep copy made through the canonical encoding.
func Clone(inst *Instance) (*Instance, error) {
	data, err := Encode(inst)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// ValidateRoundtrip checks that an instance survives encode/decode without
// any change to its canonical bytes.
func ValidateRoundtrip(inst *Instance) error {
	original, err := Encode(inst)
	if err != nil {
		return err
	}
	decoded, err := Decode(original)
	if err != nil {
		return err
	}
	again, err := Encode(decoded)
	if err != nil {
		return err
	}
	if !bytes.Equal(original, again) {
		return fmt.Errorf("roundtrip mismatch for instance %d", inst.ID)
	}
	return nil
}
