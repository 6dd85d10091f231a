// Package aspects defines the closed catalog of evaluation aspects that
// candidates are scored on.
package aspects

import (
	"fmt"
	"strings"
)

// Key identifies an aspect. Values outside a Catalog are never scored.
type Key string

// Default catalog keys.
const (
	Experience      Key = "experience"
	Education       Key = "education"
	DomainExpertise Key = "domain_expertise"
	TechnicalSkills Key = "technical_skills"
	SoftSkills      Key = "soft_skills"
	Other           Key = "other"
)

// Aspect is a named evaluation dimension.
type Aspect struct {
	Key         Key    `json:"key"`
	Description string `json:"description"`
}

// Catalog is an immutable, ordered set of aspects. The order fixes the
// dimensionality of weight vectors and the summation order of composite
// scores.
type Catalog struct {
	aspects []Aspect
	index   map[Key]int
}

// NewCatalog builds a catalog from the given aspects in order.
// Keys are normalized with Parse rules and must be unique and non-empty.
func NewCatalog(defs ...Aspect) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog requires at least one aspect")
	}

	c := &Catalog{
		aspects: make([]Aspect, 0, len(defs)),
		index:   make(map[Key]int, len(defs)),
	}
	for _, def := range defs {
		key := normalizeKey(string(def.Key))
		if key == "" {
			return nil, fmt.Errorf("aspect key must not be empty")
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("duplicate aspect key %q", key)
		}
		c.index[key] = len(c.aspects)
		c.aspects = append(c.aspects, Aspect{Key: key, Description: strings.TrimSpace(def.Description)})
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on error. Intended for package-level
// fixtures and tests.
func MustCatalog(defs ...Aspect) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the deployment's default catalog.
func Default() *Catalog {
	return MustCatalog(
		Aspect{Key: Experience, Description: "Professional work history, seniority, and the scope of past roles"},
		Aspect{Key: Education, Description: "Degrees, institutions, and formal training"},
		Aspect{Key: DomainExpertise, Description: "Depth of knowledge in the industry or problem domain of the role"},
		Aspect{Key: TechnicalSkills, Description: "Languages, tools, frameworks, and technical competencies"},
		Aspect{Key: SoftSkills, Description: "Communication, leadership, collaboration, and cultural fit"},
		Aspect{Key: Other, Description: "Certifications, achievements, projects, and anything not covered above"},
	)
}

// Len returns the number of aspects.
func (c *Catalog) Len() int {
	return len(c.aspects)
}

// Keys returns the aspect keys in catalog order.
func (c *Catalog) Keys() []Key {
	keys := make([]Key, len(c.aspects))
	for i, a := range c.aspects {
		keys[i] = a.Key
	}
	return keys
}

// Aspects returns a copy of the catalog entries in order.
func (c *Catalog) Aspects() []Aspect {
	out := make([]Aspect, len(c.aspects))
	copy(out, c.aspects)
	return out
}

// Contains reports whether key is part of the catalog.
func (c *Catalog) Contains(key Key) bool {
	_, ok := c.index[key]
	return ok
}

// Describe returns the description for key, or "" when unknown.
func (c *Catalog) Describe(key Key) string {
	if i, ok := c.index[key]; ok {
		return c.aspects[i].Description
	}
	return ""
}

// Parse converts an untrusted string into a catalog key. Matching ignores
// case and surrounding whitespace, and treats spaces and hyphens as
// underscores.
func (c *Catalog) Parse(raw string) (Key, bool) {
	key := normalizeKey(raw)
	if _, ok := c.index[key]; !ok {
		return "", false
	}
	return key, true
}

// String renders the keys as a comma-separated list.
func (c *Catalog) String() string {
	parts := make([]string, len(c.aspects))
	for i, a := range c.aspects {
		parts[i] = string(a.Key)
	}
	return strings.Join(parts, ", ")
}

func normalizeKey(raw string) Key {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Key(s)
}
