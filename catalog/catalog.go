package catalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/giygas/pedscalc-api/infusion"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// DefaultSource is the source name reported for the embedded catalog
const DefaultSource = "embedded"

// Loaded is a validated catalog together with where it came from
type Loaded struct {
	Catalog  *Catalog
	Source   string
	Checksum string
	Report   *Report
}

// LoadDefault parses and validates the embedded catalog
func LoadDefault() (*Loaded, error) {
	return load(defaultCatalog, DefaultSource)
}

// LoadFile parses and validates a catalog file
func LoadFile(path string) (*Loaded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return load(raw, path)
}

// Load uses path when set, the embedded catalog otherwise
func Load(path string) (*Loaded, error) {
	if path == "" {
		return LoadDefault()
	}
	return LoadFile(path)
}

func load(raw []byte, source string) (*Loaded, error) {
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", source, err)
	}

	report := Validate(c)
	if err := report.Err(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", source, err)
	}

	return &Loaded{
		Catalog:  c,
		Source:   source,
		Checksum: Checksum(raw),
		Report:   report,
	}, nil
}

// Checksum is the hex SHA-256 of raw catalog bytes
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Parse decodes a YAML catalog and promotes legacy route text to typed infusion
// ranges. It does not validate; see Validate.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}

	c.index = make(map[Category]int, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if _, dup := c.index[cat.ID]; !dup {
			c.index[cat.ID] = i
		}
		if !cat.InteractiveInfusion {
			continue
		}
		for j := range cat.Medications {
			promoteLegacyRoute(&cat.Medications[j])
		}
	}

	return &c, nil
}

// promoteLegacyRoute turns "0.05-1 mcg/kg/min"-style route text into a typed range.
// Entries whose text does not parse stay plain text.
func promoteLegacyRoute(m *Medication) {
	if m.Infusion != nil || m.Route == "" {
		return
	}
	r, ok := infusion.ParseRange(m.Route)
	if !ok {
		return
	}
	m.Infusion = &InfusionRange{Min: r.Min, Max: r.Max, Unit: r.Unit}
}

// Category returns a category by id
func (c *Catalog) Category(id Category) (CategoryEntries, bool) {
	i, ok := c.index[id]
	if !ok {
		return CategoryEntries{}, false
	}
	return c.Categories[i], true
}

// Medications returns the ordered entries of a category; unknown categories are empty
func (c *Catalog) Medications(id Category) []Medication {
	cat, ok := c.Category(id)
	if !ok {
		return nil
	}
	return cat.Medications
}

// Medication finds a medication by id across categories
func (c *Catalog) Medication(id string) (Medication, Category, bool) {
	for _, cat := range c.Categories {
		for _, m := range cat.Medications {
			if m.ID == id {
				return m, cat.ID, true
			}
		}
	}
	return Medication{}, "", false
}

// Count returns the number of medications across all categories
func (c *Catalog) Count() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Medications)
	}
	return n
}
