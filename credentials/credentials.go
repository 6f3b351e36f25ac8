// Package credentials loads provider API keys for the embedding and
// generation clients.
//
// Keys come from a credentials.toml file with one section per provider:
//
//	[openai]
//	api_key = "sk-..."
//
//	[llm]
//	api_key = "..."   # used when no provider section matches
//
// The file must be mode 0400. When no file holds a key the provider's
// environment variable is consulted.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInsecurePermissions is returned when the credentials file is readable by others.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// Source describes where a key was found.
type Source string

const (
	SourceNone     Source = ""
	SourceProvider Source = "provider"
	SourceGeneric  Source = "llm"
	SourceEnv      Source = "env"
)

// Credentials holds API keys by provider section.
type Credentials struct {
	generic   string
	providers map[string]string
}

// StandardPaths returns the credential file locations in priority order.
func StandardPaths() []string {
	paths := []string{"credentials.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "talentkit", "credentials.toml"),
			filepath.Join(home, ".talentkit", "credentials.toml"),
		)
	}
	return paths
}

// Load loads credentials from the first standard location that exists.
// A missing file is not an error; the returned Credentials is nil.
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return creds, path, nil
		}
	}
	return nil, "", nil
}

// LoadFile loads credentials from path.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if mode := info.Mode().Perm(); mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	creds := &Credentials{providers: make(map[string]string)}
	for name, value := range raw {
		section, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := section["api_key"].(string)
		if key == "" {
			continue
		}
		if name == "llm" {
			creds.generic = key
		} else {
			creds.providers[normalize(name)] = key
		}
	}
	return creds, nil
}

// Lookup returns the API key for provider and where it came from.
// Priority: [provider] section > [llm] section > environment variable.
func (c *Credentials) Lookup(provider string) (string, Source) {
	if c != nil {
		if key := c.providers[normalize(provider)]; key != "" {
			return key, SourceProvider
		}
		if c.generic != "" {
			return c.generic, SourceGeneric
		}
	}
	if key := os.Getenv(EnvVar(provider)); key != "" {
		return key, SourceEnv
	}
	return "", SourceNone
}

// GetAPIKey returns the API key for provider, or "".
func (c *Credentials) GetAPIKey(provider string) string {
	key, _ := c.Lookup(provider)
	return key
}

// EnvVar returns the environment variable consulted for provider.
func EnvVar(provider string) string {
	switch normalize(provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai", "openaicompat":
		return "OPENAI_API_KEY"
	case "google", "gemini":
		return "GOOGLE_API_KEY"
	default:
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}

func normalize(provider string) string {
	return strings.ToLower(strings.ReplaceAll(provider, "-", ""))
}
