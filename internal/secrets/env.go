package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvStore resolves keys from environment variables named <NAME>_API_KEY,
// e.g. OPENAI_API_KEY for "openai". The process environment wins over
// values read from dotenv files.
type EnvStore struct {
	file   map[string]string
	lookup func(string) (string, bool)
}

// NewEnvStore reads the given dotenv files once. Missing files are an error;
// pass no files to use the process environment only.
func NewEnvStore(files ...string) (*EnvStore, error) {
	s := &EnvStore{file: map[string]string{}, lookup: os.LookupEnv}
	if len(files) == 0 {
		return s, nil
	}
	values, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env files %v: %w", files, err)
	}
	s.file = values
	return s, nil
}

// VariableName maps a provider key to its environment variable.
func VariableName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(key)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteString("_API_KEY")
	return b.String()
}

func (s *EnvStore) HasAPIKey(key string) bool {
	_, ok := s.GetAPIKey(key)
	return ok
}

func (s *EnvStore) GetAPIKey(key string) (string, bool) {
	name := VariableName(key)
	if v, ok := s.lookup(name); ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if v, ok := s.file[name]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	return "", false
}
