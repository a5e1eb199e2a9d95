// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package certs

import (
	"bytes"
	"strings"

	"github.com/carabiner-dev/raptor/internal/keymaker"
)

const (
	blockCertificate = "CERTIFICATE"
	blockPrivateKey  = "PRIVATE KEY"

	// lineWidth is the body line length of the PEM blocks we write.
	lineWidth = 65
)

// writeBlock appends a PEM block with the already base64 encoded body,
// wrapped at lineWidth characters.
func writeBlock(buf *bytes.Buffer, blockType, body string) {
	body = strings.Join(strings.Fields(body), "")

	buf.WriteString("-----BEGIN " + blockType + "-----\n")
	for len(body) > lineWidth {
		buf.WriteString(body[:lineWidth])
		buf.WriteByte('\n')
		body = body[lineWidth:]
	}
	if body != "" {
		buf.WriteString(body)
		buf.WriteByte('\n')
	}
	buf.WriteString("-----END " + blockType + "-----\n")
}

// EncodeKeystore renders the enabled key entries of a keystore as a PEM
// certificate bundle and a PEM private key file. Certificates are written
// in the order they appear in the keystore.
func EncodeKeystore(ks *keymaker.Keystore) (certPEM, keyPEM []byte) {
	var certOut, keyOut bytes.Buffer
	for _, entry := range ks.Entries {
		if entry.EntryType != keymaker.EntryTypeKey || entry.Entry.Keypair == nil {
			continue
		}
		kp := entry.Entry.Keypair
		if kp.State != keymaker.StateEnabled {
			continue
		}

		for _, cert := range kp.Certificates {
			writeBlock(&certOut, blockCertificate, cert.EncodedCert)
		}
		writeBlock(&keyOut, blockPrivateKey, kp.PrivateKey.EncodedPrivateKey)
	}
	return certOut.Bytes(), keyOut.Bytes()
}
