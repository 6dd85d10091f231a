package aspects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_PreservesOrder(t *testing.T) {
	c, err := NewCatalog(
		Aspect{Key: "skills", Description: "Skills"},
		Aspect{Key: "experience", Description: "Experience"},
	)
	require.NoError(t, err)

	assert.Equal(t, []Key{"skills", "experience"}, c.Keys())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "skills, experience", c.String())
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []Aspect
	}{
		{name: "empty", defs: nil},
		{name: "blank key", defs: []Aspect{{Key: "  "}}},
		{name: "duplicate", defs: []Aspect{{Key: "skills"}, {Key: "Skills"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs...)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_Parse(t *testing.T) {
	c := Default()

	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{in: "experience", want: Experience, ok: true},
		{in: "  Technical Skills ", want: TechnicalSkills, ok: true},
		{in: "domain-expertise", want: DomainExpertise, ok: true},
		{in: "bogus_key", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := c.Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_KeysReturnsCopy(t *testing.T) {
	c := Default()
	keys := c.Keys()
	keys[0] = "mutated"

	assert.Equal(t, Experience, c.Keys()[0])
	assert.True(t, c.Contains(Experience))
	assert.False(t, c.Contains("mutated"))
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 6, c.Len())
	for _, a := range c.Aspects() {
		assert.NotEmpty(t, a.Description, "aspect %s has no description", a.Key)
		assert.Equal(t, a.Description, c.Describe(a.Key))
	}
	assert.Empty(t, c.Describe("unknown"))
}
