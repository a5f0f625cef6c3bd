package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/validator-sim/validator-sim/scoring"
)

// PubkeyMap maps validator identities to usernames for display.
type PubkeyMap map[scoring.ID]string

// LoadPubkeyMap reads an identity -> username YAML file. A missing file is only an error when
// required is set; otherwise identities are displayed as is.
func LoadPubkeyMap(path string, required bool) (PubkeyMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		logrus.Warnf("pubkey map file %s not found; showing bare identities", path)
		return PubkeyMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open pubkey map file %s: %w", path, err)
	}
	var m PubkeyMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unable to parse pubkey map file %s: %w", path, err)
	}
	if m == nil {
		m = PubkeyMap{}
	}
	return m, nil
}

// Display renders an identity as "username (identity)" when it is known.
func (m PubkeyMap) Display(id scoring.ID) string {
	if name, ok := m[id]; ok {
		return fmt.Sprintf("%s (%s)", name, id)
	}
	return string(id)
}
