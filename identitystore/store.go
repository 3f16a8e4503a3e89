// Package identitystore persists a node's keypair to a flat file,
// matching the reference firmware's setup() loading IdentityStore
// before Mesh.begin (examples/
// simple_repeater/main.cpp): generate once, save, and load the same
// identity on every subsequent boot.
package identitystore

import (
	"fmt"
	"os"

	"github.com/NyanHelsing/MeshCore/core/utils"
	"github.com/NyanHelsing/MeshCore/crypto"
)

const filePerm = 0o600

// Load reads the identity blob at path, or generates and persists a
// fresh one if path does not exist.
func Load(path string) (*crypto.Identity, error) {
	if utils.Exists(path) {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("identitystore: read %s: %w", path, err)
		}
		id, err := crypto.FromBytes(blob)
		if err != nil {
			return nil, fmt.Errorf("identitystore: parse %s: %w", path, err)
		}
		return id, nil
	}

	id, err := crypto.NewRandom(nil)
	if err != nil {
		return nil, fmt.Errorf("identitystore: generate identity: %w", err)
	}
	if err := Save(path, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Save writes id's blob to path, creating or truncating it, readable
// only by the owner since it contains a private key.
func Save(path string, id *crypto.Identity) error {
	if err := os.WriteFile(path, id.Bytes(), filePerm); err != nil {
		return fmt.Errorf("identitystore: write %s: %w", path, err)
	}
	return nil
}
