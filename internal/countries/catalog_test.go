package countries

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/country-form/internal/validation"
)

func TestDefault_EUMembership(t *testing.T) {
	t.Parallel()

	c := Default()
	assert.Len(t, c.EUCodes(), 27)

	for _, code := range []string{"FR", "BE", "DE", "DK", "fr"} {
		assert.True(t, c.IsEU(code), "%s should be an EU member", code)
	}
	for _, code := range []string{"US", "GB", "CH", "NO", "XX", ""} {
		assert.False(t, c.IsEU(code), "%s should not be an EU member", code)
	}
}

func TestDefault_ServesValidator(t *testing.T) {
	t.Parallel()

	c := Default()
	v := validation.New(c)
	got := v.Validate(validation.Input{Acronym: "BE", Country: "BE", EUResident: true, ConsentGiven: true})
	assert.True(t, got.Success)

	got = v.Validate(validation.Input{Acronym: "NO", Country: "NO", EUResident: false, ConsentGiven: true})
	assert.True(t, got.Success)

	got = v.Validate(validation.Input{Acronym: "XX", Country: "XX", ConsentGiven: true})
	assert.Equal(t, validation.CategoryAcronymCountryMismatch, got.Category)

	assert.True(t, c.Known("no"))
	assert.False(t, c.Known(""))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	c := Default()
	be, ok := c.Lookup("be")
	require.True(t, ok)
	assert.Equal(t, "Belgien (BE)", be.Label())

	_, ok = c.Lookup("ZZ")
	assert.False(t, ok)
}

func TestParse_KeepsOrderAndNormalizes(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(`
countries:
  - {code: fr, name: " Frankreich ", eu: true}
  - {code: US, name: Vereinigte Staaten}
`))
	require.NoError(t, err)

	want := []Country{
		{Code: "FR", Name: "Frankreich", EU: true},
		{Code: "US", Name: "Vereinigte Staaten"},
	}
	if diff := cmp.Diff(want, c.All()); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_AggregatesProblems(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
countries:
  - {code: FRA, name: Frankreich, eu: true}
  - {code: DE, name: "", eu: true}
  - {code: BE, name: Belgien, eu: true}
  - {code: be, name: Belgique, eu: true}
  - {code: "1X", name: Nowhere}
`))
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Len(t, loadErr.Errors, 4)
	assert.Contains(t, err.Error(), "duplicate code BE")
}

func TestParse_RejectsEmptyAndMalformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("countries: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("countries: {"))
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countries:\n  - {code: IS, name: Island}\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.All(), 1)
	assert.False(t, c.IsEU("IS"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.True(t, c.IsEU("DK"))
}
