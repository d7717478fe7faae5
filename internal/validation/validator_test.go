package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var testMembers = NewCodeSet(
	[]string{"FR", "BE", "DE", "DK", "IT", "ES", "NL"},
	"US", "GB", "CH", "JP",
)

// XX is not selectable.
var allCodes = []string{"FR", "BE", "DE", "DK", "IT", "ES", "NL", "US", "GB", "CH", "JP", "XX"}

func TestValidate_Examples(t *testing.T) {
	t.Parallel()

	v := New(testMembers)

	cases := []struct {
		name string
		in   Input
		want Category
	}{
		{"france eu resident", Input{Acronym: "FR", Country: "FR", EUResident: true, ConsentGiven: true}, CategoryOK},
		{"usa non resident", Input{Acronym: "US", Country: "US", EUResident: false, ConsentGiven: true}, CategoryOK},
		{"usa claims eu", Input{Acronym: "US", Country: "US", EUResident: true, ConsentGiven: true}, CategoryEUMismatch},
		{"france denies eu", Input{Acronym: "FR", Country: "FR", EUResident: false, ConsentGiven: true}, CategoryEUMismatch},
		{"acronym differs", Input{Acronym: "FR", Country: "BE", EUResident: true, ConsentGiven: true}, CategoryAcronymCountryMismatch},
		{"no consent", Input{Acronym: "DK", Country: "DK", EUResident: true, ConsentGiven: false}, CategoryMissingConsent},
		{"empty form", Input{}, CategoryMissingConsent},
		{"lowercase acronym", Input{Acronym: "de", Country: "DE", EUResident: true, ConsentGiven: true}, CategoryOK},
		{"padded acronym", Input{Acronym: " be ", Country: "BE", EUResident: true, ConsentGiven: true}, CategoryOK},
		{"consent only", Input{ConsentGiven: true}, CategoryAcronymCountryMismatch},
		{"consent only eu resident", Input{ConsentGiven: true, EUResident: true}, CategoryAcronymCountryMismatch},
		{"unknown country", Input{Acronym: "XX", Country: "XX", ConsentGiven: true}, CategoryAcronymCountryMismatch},
		{"acronym without country", Input{Acronym: "FR", ConsentGiven: true, EUResident: true}, CategoryAcronymCountryMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.Validate(tc.in)
			assert.Equal(t, tc.want, got.Category)
			assert.Equal(t, tc.want == CategoryOK, got.Success)
		})
	}
}

func TestValidate_MessagesMatchCategory(t *testing.T) {
	t.Parallel()

	v := New(testMembers)

	ok := v.Validate(Input{Acronym: "FR", Country: "FR", EUResident: true, ConsentGiven: true})
	assert.Contains(t, ok.Message, "erfolgreich")

	consent := v.Validate(Input{Acronym: "DK", Country: "DK", EUResident: true})
	assert.Contains(t, consent.Message, "Datenverarbeitung")
	assert.Contains(t, consent.Message, "zustimmen")

	mismatch := v.Validate(Input{Acronym: "FR", Country: "BE", EUResident: true, ConsentGiven: true})
	assert.Contains(t, mismatch.Message, "Akronym")
	assert.Contains(t, mismatch.Message, "nicht")

	eu := v.Validate(Input{Acronym: "US", Country: "US", EUResident: true, ConsentGiven: true})
	assert.Contains(t, eu.Message, "EU")
}

// =============================================================================
// Properties
// =============================================================================

func inputGenerator() *rapid.Generator[Input] {
	return rapid.Custom(func(t *rapid.T) Input {
		acronym := rapid.SampledFrom(allCodes).Draw(t, "acronym")
		if rapid.Bool().Draw(t, "lower") {
			acronym = strings.ToLower(acronym)
		}
		return Input{
			Acronym:      acronym,
			Country:      rapid.SampledFrom(allCodes).Draw(t, "country"),
			EUResident:   rapid.Bool().Draw(t, "euResident"),
			ConsentGiven: rapid.Bool().Draw(t, "consent"),
		}
	})
}

func testValidate_FirstFailingRuleWins(t *rapid.T) {
	v := New(testMembers)
	in := inputGenerator().Draw(t, "input")
	got := v.Validate(in)

	var want Category
	switch {
	case !in.ConsentGiven:
		want = CategoryMissingConsent
	case strings.ToUpper(in.Acronym) != in.Country || !testMembers.Known(in.Country):
		want = CategoryAcronymCountryMismatch
	case in.EUResident != testMembers.IsEU(in.Country):
		want = CategoryEUMismatch
	default:
		want = CategoryOK
	}

	if got.Category != want {
		t.Fatalf("category mismatch for %+v: got=%q want=%q", in, got.Category, want)
	}
	if got.Success != (want == CategoryOK) {
		t.Fatalf("success flag mismatch for %+v: got=%v", in, got.Success)
	}
	if !got.Success && !strings.HasPrefix(got.Message, "Fehler") {
		t.Fatalf("error message must start with Fehler, got %q", got.Message)
	}
}

func TestValidate_FirstFailingRuleWins(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_FirstFailingRuleWins)
}

func testValidate_NoConsentAlwaysFails(t *rapid.T) {
	v := New(testMembers)
	in := Input{
		Acronym:    rapid.StringMatching(`[a-zA-Z ]{0,4}`).Draw(t, "acronym"),
		Country:    rapid.StringMatching(`[A-Z]{0,2}`).Draw(t, "country"),
		EUResident: rapid.Bool().Draw(t, "euResident"),
	}
	got := v.Validate(in)
	if got.Success || got.Category != CategoryMissingConsent {
		t.Fatalf("expected missingConsent for %+v, got %+v", in, got)
	}
}

func TestValidate_NoConsentAlwaysFails(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_NoConsentAlwaysFails)
}

func testValidate_Idempotent(t *rapid.T) {
	v := New(testMembers)
	in := inputGenerator().Draw(t, "input")
	if first, second := v.Validate(in), v.Validate(in); first != second {
		t.Fatalf("validate not idempotent: %+v vs %+v", first, second)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_Idempotent)
}

func TestCodeSet_IsEU(t *testing.T) {
	t.Parallel()

	set := NewCodeSet([]string{"fr", " de "}, "us")
	assert.True(t, set.IsEU("FR"))
	assert.True(t, set.IsEU("de"))
	assert.False(t, set.IsEU("US"))
	assert.False(t, set.IsEU(""))

	assert.True(t, set.Known("US"))
	assert.True(t, set.Known(" fr"))
	assert.False(t, set.Known("XX"))
	assert.False(t, set.Known(""))
}

func TestNew_NilMembersKnowsNoCountries(t *testing.T) {
	t.Parallel()

	v := New(nil)
	got := v.Validate(Input{Acronym: "FR", Country: "FR", EUResident: true, ConsentGiven: true})
	assert.False(t, got.Success)
	assert.Equal(t, CategoryAcronymCountryMismatch, got.Category)

	assert.Equal(t, CategoryMissingConsent, v.Validate(Input{}).Category)
}
