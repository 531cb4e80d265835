package signing

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

// VerificationError reports a signature that failed to check against the keyring.
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("signing: %s: %v", e.Reason, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Keyring loads trusted public keys for verifying Release/InRelease signatures.
type Keyring struct {
	entities openpgp.EntityList
}

func NewKeyring() *Keyring {
	return &Keyring{}
}

// AddKeysFrom reads an ASCII-armored or binary OpenPGP public key (or keyring) from
// r and merges its entities into the keyring.
func (k *Keyring) AddKeysFrom(r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("signing: reading key material: %w", err)
	}

	entities, err := openpgp.ReadKeyRing(bytes.NewReader(buf))
	if err != nil {
		if block, armorErr := armor.Decode(bytes.NewReader(buf)); armorErr == nil {
			entities, err = openpgp.ReadKeyRing(block.Body)
		}
	}
	if err != nil {
		return fmt.Errorf("signing: parsing key material: %w", err)
	}

	k.entities = append(k.entities, entities...)
	return nil
}

func (k *Keyring) Empty() bool {
	return len(k.entities) == 0
}

// VerifyClearsigned opens an InRelease-style clearsigned document, checks its
// signature against the keyring, and atomically stages the extracted body (the
// signed Release text, without the OpenPGP wrapper) at destPath. When untrusted is
// true the signature is not checked and the body is staged regardless, but the body
// is still extracted rather than the raw document.
func (k *Keyring) VerifyClearsigned(signedText []byte, destPath string, untrusted bool) (*openpgp.Entity, error) {
	block, _ := clearsign.Decode(signedText)
	if block == nil {
		return nil, &VerificationError{Reason: "not a clearsigned document", Err: fmt.Errorf("no PGP SIGNED MESSAGE block found")}
	}

	var signer *openpgp.Entity
	if !untrusted {
		if k.Empty() {
			return nil, &VerificationError{Reason: "no trusted keys configured", Err: fmt.Errorf("empty keyring")}
		}
		var err error
		signer, err = openpgp.CheckDetachedSignature(k.entities, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil)
		if err != nil {
			return nil, &VerificationError{Reason: "clearsigned signature check failed", Err: err}
		}
	}

	if err := stageFile(destPath, block.Bytes); err != nil {
		return nil, err
	}
	return signer, nil
}

// VerifyDetached checks a detached signature (Release.gpg) over data and, on success,
// atomically stages data at destPath. With untrusted set the check is skipped.
func (k *Keyring) VerifyDetached(data, signature []byte, destPath string, untrusted bool) (*openpgp.Entity, error) {
	var signer *openpgp.Entity
	if !untrusted {
		if k.Empty() {
			return nil, &VerificationError{Reason: "no trusted keys configured", Err: fmt.Errorf("empty keyring")}
		}
		var err error
		signer, err = openpgp.CheckDetachedSignature(k.entities, bytes.NewReader(data), bytes.NewReader(signature), nil)
		if err != nil {
			if block, armorErr := armor.Decode(bytes.NewReader(signature)); armorErr == nil {
				signer, err = openpgp.CheckDetachedSignature(k.entities, bytes.NewReader(data), block.Body, nil)
			}
		}
		if err != nil {
			return nil, &VerificationError{Reason: "detached signature check failed", Err: err}
		}
	}

	if err := stageFile(destPath, data); err != nil {
		return nil, err
	}
	return signer, nil
}

// stageFile writes content to a sibling temp file and atomically renames it over
// destPath, matching the fetch pipeline's write discipline.
func stageFile(destPath string, content []byte) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("signing: creating %s: %w", destDir, err)
	}
	tmp, err := os.CreateTemp(destDir, ".apt-look-verify-*")
	if err != nil {
		return fmt.Errorf("signing: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("signing: writing staged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("signing: closing staged file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("signing: renaming into place: %w", err)
	}
	return nil
}
