// Package validation decides whether a country form submission is consistent.
//
// The rules are applied in a fixed order and the first failing rule decides the
// outcome:
//
//  1. consent must be given
//  2. the acronym must equal the selected country code (case-insensitive), and
//     that code must be one of the selectable countries
//  3. the EU-residency answer must match the country's EU membership
//
// Validation never returns an error: every input maps to a Result.
package validation

import "strings"

// Category identifies which rule decided a Result.
type Category string

const (
	CategoryOK                     Category = "ok"
	CategoryMissingConsent         Category = "missingConsent"
	CategoryEUMismatch             Category = "euMismatch"
	CategoryAcronymCountryMismatch Category = "acronymCountryMismatch"
)

// User-facing messages. Every error message starts with "Fehler".
const (
	MessageOK                     = "Formular erfolgreich validiert!"
	MessageMissingConsent         = "Fehler: Sie müssen der Datenverarbeitung zustimmen."
	MessageAcronymCountryMismatch = "Fehler: Das Akronym stimmt nicht mit dem gewählten Land überein."
	MessageEUMismatch             = "Fehler: Die Angabe zum EU-Wohnsitz passt nicht zum gewählten Land."
)

// Input is a single submission attempt.
type Input struct {
	Acronym      string `json:"acronym"`
	Country      string `json:"country"`
	EUResident   bool   `json:"euResident"`
	ConsentGiven bool   `json:"consentGiven"`
}

// Result is the outcome of validating an Input.
type Result struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
}

// MembershipChecker reports which country codes are selectable and which of
// them belong to the EU.
type MembershipChecker interface {
	Known(code string) bool
	IsEU(code string) bool
}

// Validator applies the submission rules against a membership set.
type Validator struct {
	members MembershipChecker
}

// New returns a Validator backed by the given membership set. A nil set knows
// no countries, so every consented submission fails rule 2.
func New(members MembershipChecker) *Validator {
	if members == nil {
		members = CodeSet{}
	}
	return &Validator{members: members}
}

// Validate checks in and returns the first failing rule, or success.
func (v *Validator) Validate(in Input) Result {
	if !in.ConsentGiven {
		return failure(CategoryMissingConsent, MessageMissingConsent)
	}

	acronym := Normalize(in.Acronym)
	country := Normalize(in.Country)
	if acronym != country || !v.members.Known(country) {
		return failure(CategoryAcronymCountryMismatch, MessageAcronymCountryMismatch)
	}

	if in.EUResident != v.members.IsEU(country) {
		return failure(CategoryEUMismatch, MessageEUMismatch)
	}

	return Result{Success: true, Message: MessageOK, Category: CategoryOK}
}

// Normalize trims whitespace and uppercases a code or acronym.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func failure(category Category, message string) Result {
	return Result{Success: false, Message: message, Category: category}
}

// CodeSet is a fixed set of country codes mapped to their EU membership.
type CodeSet map[string]bool

// NewCodeSet builds a CodeSet from EU members and other selectable countries,
// normalizing each code.
func NewCodeSet(eu []string, other ...string) CodeSet {
	set := make(CodeSet, len(eu)+len(other))
	for _, c := range other {
		set[Normalize(c)] = false
	}
	for _, c := range eu {
		set[Normalize(c)] = true
	}
	return set
}

// Known implements MembershipChecker.
func (s CodeSet) Known(code string) bool {
	_, ok := s[Normalize(code)]
	return ok
}

// IsEU implements MembershipChecker.
func (s CodeSet) IsEU(code string) bool {
	return s[Normalize(code)]
}
