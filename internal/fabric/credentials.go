package fabric

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Material is the in-memory identity material for one organization,
// loaded fresh per session and never persisted beyond it.
type Material struct {
	CertificatePEM []byte
	PrivateKeyPEM  []byte
}

// LoadMaterial reads exactly one certificate from <dir>/signcerts and one
// key from <dir>/keystore, the MSP layout the credential store uses.
func LoadMaterial(dir string) (*Material, error) {
	certPEM, err := readSoleFile(filepath.Join(dir, "signcerts"))
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	keyPEM, err := readSoleFile(filepath.Join(dir, "keystore"))
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return &Material{CertificatePEM: certPEM, PrivateKeyPEM: keyPEM}, nil
}

func readSoleFile(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no files in %s", dir)
	}
	sort.Strings(names)
	return os.ReadFile(filepath.Join(dir, names[0]))
}
