// Package countries loads the list of selectable countries and their EU membership.
package countries

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/country-form/internal/validation"
)

//go:embed countries.yaml
var defaultCatalog []byte

// Country is a selectable entry in the country dropdown.
type Country struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
	EU   bool   `yaml:"eu" json:"eu"`
}

// Label is the text shown in the dropdown, e.g. "Belgien (BE)".
func (c Country) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Code)
}

// Catalog is an ordered, read-only set of countries.
type Catalog struct {
	countries []Country
	byCode    map[string]Country
}

type catalogFile struct {
	Countries []Country `yaml:"countries"`
}

// LoadError aggregates every problem found in a catalog file.
type LoadError struct {
	Errors []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid country catalog:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded country catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode country catalog: %w", err)
	}

	var problems []string
	if len(file.Countries) == 0 {
		problems = append(problems, "catalog lists no countries")
	}

	c := &Catalog{
		countries: make([]Country, 0, len(file.Countries)),
		byCode:    make(map[string]Country, len(file.Countries)),
	}
	for i, entry := range file.Countries {
		entry.Code = validation.Normalize(entry.Code)
		entry.Name = strings.TrimSpace(entry.Name)

		if !isCountryCode(entry.Code) {
			problems = append(problems, fmt.Sprintf("entry %d: code %q must be two letters", i, entry.Code))
			continue
		}
		if entry.Name == "" {
			problems = append(problems, fmt.Sprintf("entry %d (%s): name is empty", i, entry.Code))
			continue
		}
		if _, dup := c.byCode[entry.Code]; dup {
			problems = append(problems, fmt.Sprintf("entry %d: duplicate code %s", i, entry.Code))
			continue
		}
		c.countries = append(c.countries, entry)
		c.byCode[entry.Code] = entry
	}

	if len(problems) > 0 {
		return nil, &LoadError{Errors: problems}
	}
	return c, nil
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// All returns the countries in file order.
func (c *Catalog) All() []Country {
	out := make([]Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// Lookup returns the country with the given code.
func (c *Catalog) Lookup(code string) (Country, bool) {
	country, ok := c.byCode[validation.Normalize(code)]
	return country, ok
}

// Known reports whether code is in the catalog.
func (c *Catalog) Known(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// IsEU reports whether code is an EU member state. Unknown codes are not.
func (c *Catalog) IsEU(code string) bool {
	country, ok := c.Lookup(code)
	return ok && country.EU
}

// EUCodes returns the codes of all EU members in file order.
func (c *Catalog) EUCodes() []string {
	var codes []string
	for _, country := range c.countries {
		if country.EU {
			codes = append(codes, country.Code)
		}
	}
	return codes
}
