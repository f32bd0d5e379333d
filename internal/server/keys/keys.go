// Package keys loads the secret material the backend needs at startup from
// the key files written by the admin tool. Values are read once and never
// exported to the process environment.
package keys

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendFile  = "keys-backend.env"
	DatabaseFile = "keys-database.env"

	DBPasswordName       = "DB_PASSWORD"
	TokenKeyName         = "TOKEN_KEY"
	PostgresPasswordName = "POSTGRES_PASSWORD"

	// TokenKeyLength is 256 bits, hex encoded.
	TokenKeyLength = 64
)

// Keys is the immutable secret set handed to the components that need it.
type Keys struct {
	DBPassword       string
	TokenKey         string
	PostgresPassword string
}

// Load reads BackendFile and DatabaseFile from dir.
func Load(dir string) (Keys, error) {
	values := map[string]string{}
	for _, name := range []string{BackendFile, DatabaseFile} {
		if err := readFile(filepath.Join(dir, name), values); err != nil {
			return Keys{}, err
		}
	}

	k := Keys{}
	for name, dst := range map[string]*string{
		DBPasswordName:       &k.DBPassword,
		TokenKeyName:         &k.TokenKey,
		PostgresPasswordName: &k.PostgresPassword,
	} {
		v, ok := values[name]
		if !ok {
			return Keys{}, fmt.Errorf("key %s not found", name)
		}
		*dst = v
	}

	if err := k.Validate(); err != nil {
		return Keys{}, err
	}
	return k, nil
}

// Validate checks the token signing key is 256 bits of hex.
func (k Keys) Validate() error {
	if len(k.TokenKey) != TokenKeyLength {
		return fmt.Errorf("%s must be %d characters but is %d", TokenKeyName, TokenKeyLength, len(k.TokenKey))
	}
	if _, err := hex.DecodeString(k.TokenKey); err != nil {
		return fmt.Errorf("%s is not hex encoded", TokenKeyName)
	}
	return nil
}

// readFile checks every non-blank line has the KEY=value shape, then merges
// the parsed values into dst. Outer quotes are stripped from values.
func readFile(path string, dst map[string]string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not load keys from %s: %w", path, err)
	}

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Count(line, "=") != 1 {
			return fmt.Errorf("unexpected key entry on line %d of %s", i+1, path)
		}
	}

	parsed, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("could not load keys from %s: %w", path, err)
	}
	for k, v := range parsed {
		dst[k] = v
	}
	return nil
}

// Write stores values as KEY="value" lines with mode 0600.
func Write(path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o600)
}
