// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package keymaker

// State is the lifecycle state of a keymaker object.
type State string

const (
	StateEnabled  State = "enabled"
	StateDisabled State = "disabled"
)

// EntryTypeKey marks keystore entries holding a certificate chain and its
// private key.
const EntryTypeKey = "KeyEntry"

// Graph is the full set of key objects keymaker returns for an application
// context. It is decoded once per fetch and never modified afterwards.
type Graph struct {
	Nonkeys []NonkeyItem `json:"nonkeys"`

	// Keystores is nil when the response has no keystores field (or it is
	// null). An empty list decodes to a non-nil empty slice.
	Keystores []KeystoreItem `json:"keystores"`
}

// NonkeyItem wraps a nonkey as returned by the API.
type NonkeyItem struct {
	Nonkey Nonkey `json:"nonkey"`
}

// Nonkey is a named secret value. EncodedKeyData may have been base64
// encoded more than once.
type Nonkey struct {
	Name           string `json:"name"`
	State          State  `json:"state"`
	EncodedKeyData string `json:"encoded_key_data"`
}

// KeystoreItem wraps a keystore as returned by the API.
type KeystoreItem struct {
	Keystore Keystore `json:"keystore"`
}

// Keystore is a named collection of entries.
type Keystore struct {
	Name    string          `json:"name"`
	Entries []KeystoreEntry `json:"entries"`
}

// KeystoreEntry is a single keystore record. Only entries of type
// EntryTypeKey carry a keypair.
type KeystoreEntry struct {
	EntryType string    `json:"entry_type"`
	Entry     EntryData `json:"entry"`
}

// EntryData holds the payload of a keystore entry.
type EntryData struct {
	Keypair *Keypair `json:"keypair,omitempty"`
}

// Keypair is a certificate chain and its private key. Both are base64
// encoded DER.
type Keypair struct {
	State        State         `json:"state"`
	Certificates []Certificate `json:"certificates"`
	PrivateKey   PrivateKey    `json:"private_key"`
}

// Certificate is one certificate of a keypair chain.
type Certificate struct {
	EncodedCert string `json:"encoded_cert"`
}

// PrivateKey is the private half of a keypair.
type PrivateKey struct {
	EncodedPrivateKey string `json:"encoded_private_key"`
}

// FindKeystore returns the keystore called name, or nil if the graph does
// not have one.
func (g *Graph) FindKeystore(name string) *Keystore {
	for i := range g.Keystores {
		if g.Keystores[i].Keystore.Name == name {
			return &g.Keystores[i].Keystore
		}
	}
	return nil
}
