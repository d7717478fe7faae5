package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kuitang/country-form/internal/errs"
	"github.com/kuitang/country-form/internal/validation"
)

// MaxRequestBytes caps request bodies on the validation endpoints.
const MaxRequestBytes = 4 << 10

// submission is the wire shape of a form submission. The struct tags check
// shape only; whether the answers are consistent is up to validation.Validator.
type submission struct {
	Acronym      string `json:"acronym" validate:"omitempty,alpha,max=2"`
	Country      string `json:"country" validate:"omitempty,alpha,len=2"`
	EUResident   bool   `json:"euResident"`
	ConsentGiven bool   `json:"consentGiven"`
}

var fieldMessages = map[string]string{
	"acronym": "Das Akronym darf höchstens zwei Buchstaben enthalten.",
	"country": "Das Land muss ein zweistelliger Ländercode sein.",
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// decodeJSONSubmission reads a JSON submission from r.
func decodeJSONSubmission(w http.ResponseWriter, r *http.Request) (validation.Input, error) {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var s submission
	if err := dec.Decode(&s); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return validation.Input{}, errs.Wrap(errs.TooLarge, "request body too large", err)
		}
		return validation.Input{}, errs.Wrap(errs.InvalidArgument, "invalid JSON body", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return validation.Input{}, errs.New(errs.InvalidArgument, "invalid JSON body: trailing data")
	}
	return s.check()
}

// parseFormSubmission reads an urlencoded form submission from r.
func parseFormSubmission(w http.ResponseWriter, r *http.Request) (validation.Input, FormValues, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := r.ParseForm(); err != nil {
		return validation.Input{}, FormValues{}, errs.Wrap(errs.InvalidArgument, "invalid form body", err)
	}

	eu := r.PostForm.Get("euResident")
	values := FormValues{
		Acronym: validation.Normalize(r.PostForm.Get("acronym")),
		Country: validation.Normalize(r.PostForm.Get("country")),
		EUYes:   eu == "yes",
		EUNo:    eu == "no",
		Consent: r.PostForm.Get("consent") != "",
	}
	s := submission{
		Acronym:      values.Acronym,
		Country:      values.Country,
		EUResident:   values.EUYes,
		ConsentGiven: values.Consent,
	}
	in, err := s.check()
	return in, values, err
}

func (s submission) check() (validation.Input, error) {
	s.Acronym = validation.Normalize(s.Acronym)
	s.Country = validation.Normalize(s.Country)

	if err := structValidator.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0].Field()
			msg, ok := fieldMessages[field]
			if !ok {
				msg = fmt.Sprintf("invalid value for %s", field)
			}
			return validation.Input{}, errs.Invalid(field, msg)
		}
		return validation.Input{}, errs.Wrap(errs.InvalidArgument, "invalid submission", err)
	}

	return validation.Input{
		Acronym:      s.Acronym,
		Country:      s.Country,
		EUResident:   s.EUResident,
		ConsentGiven: s.ConsentGiven,
	}, nil
}
