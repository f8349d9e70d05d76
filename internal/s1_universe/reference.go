package s1_universe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Reference is the checked-in instrument list (config/universe/*.yaml)
type Reference struct {
	Name           string   `yaml:"name"`
	Suffix         string   `yaml:"suffix"`          // exchange suffix, ".IS" for Borsa Istanbul
	Exclude        []string `yaml:"exclude"`         // codes never scanned
	ExcludeSectors []string `yaml:"exclude_sectors"` // sectors never scanned
	Stocks         []Entry  `yaml:"stocks"`
}

// Entry is one listed instrument
type Entry struct {
	Code   string `yaml:"code"`
	Sector string `yaml:"sector,omitempty"`
}

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var suffixPattern = regexp.MustCompile(`^\.[A-Z]{1,3}$`)

// LoadFile reads a reference YAML file and returns it with its raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func LoadFile(path string) (*Reference, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	ref, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return ref, data, nil
}

// Parse decodes and validates a reference document
func Parse(data []byte) (*Reference, error) {
	var ref Reference
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&ref); err != nil {
		return nil, err
	}

	if err := Validate(&ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Validate checks required fields. Duplicate codes are allowed here; the
// builder records them as exclusions.
func Validate(ref *Reference) error {
	if ref.Name == "" {
		return ValidationError{"name", "required"}
	}
	if ref.Suffix != "" && !suffixPattern.MatchString(ref.Suffix) {
		return ValidationError{"suffix", fmt.Sprintf("invalid suffix %q", ref.Suffix)}
	}
	if len(ref.Stocks) == 0 {
		return ValidationError{"stocks", "must not be empty"}
	}
	for i, e := range ref.Stocks {
		if e.Code == "" {
			return ValidationError{fmt.Sprintf("stocks[%d].code", i), "required"}
		}
	}
	return nil
}

// Hash returns a short digest of the raw reference file, used to tag the
// universe source
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
