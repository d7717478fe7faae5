package pages

import (
	"fmt"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
)

// Computed colors of the result box, from style.css.
const (
	SuccessColor = "rgb(20, 116, 40)"
	ErrorColor   = "rgb(171, 9, 30)"
)

// CountryFormPage is the page object for page2.html.
type CountryFormPage struct {
	t       *testing.T
	page    playwright.Page
	baseURL string

	acronym playwright.Locator
	country playwright.Locator
	euYes   playwright.Locator
	euNo    playwright.Locator
	consent playwright.Locator
	submit  playwright.Locator
	back    playwright.Locator
	result  playwright.Locator
}

// NewCountryFormPage binds a page object to page. It does not navigate.
func NewCountryFormPage(t *testing.T, page playwright.Page, baseURL string) *CountryFormPage {
	return &CountryFormPage{
		t:       t,
		page:    page,
		baseURL: baseURL,
		acronym: page.Locator("#acronym"),
		country: page.Locator("#country"),
		euYes:   page.Locator("#eu-yes"),
		euNo:    page.Locator("#eu-no"),
		consent: page.Locator("#consent"),
		submit:  page.Locator("#submit"),
		back:    page.Locator("#back"),
		result:  page.Locator("#result"),
	}
}

// Nav opens the form directly and waits for the acronym field.
func (p *CountryFormPage) Nav() *CountryFormPage {
	p.t.Helper()
	gotoPath(p.t, p.page, p.baseURL, FormPath)
	waitVisible(p.t, p.acronym, "#acronym")
	return p
}

// FillAcronym replaces the acronym field by typing value key by key, so input
// handlers run as they would for a user.
func (p *CountryFormPage) FillAcronym(value string) {
	p.t.Helper()
	if err := p.acronym.Fill(""); err != nil {
		p.t.Fatalf("clear acronym: %v", err)
	}
	if err := p.acronym.PressSequentially(value); err != nil {
		p.t.Fatalf("type acronym %q: %v", value, err)
	}
}

// SelectCountry selects the dropdown option with the given code.
func (p *CountryFormPage) SelectCountry(code string) {
	p.t.Helper()
	_, err := p.country.SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice(code)})
	if err != nil {
		p.t.Fatalf("select country %q: %v", code, err)
	}
}

// SelectEUYes picks the "Ja" radio.
func (p *CountryFormPage) SelectEUYes() {
	p.t.Helper()
	if err := p.euYes.Check(); err != nil {
		p.t.Fatalf("select EU yes: %v", err)
	}
}

// SelectEUNo picks the "Nein" radio.
func (p *CountryFormPage) SelectEUNo() {
	p.t.Helper()
	if err := p.euNo.Check(); err != nil {
		p.t.Fatalf("select EU no: %v", err)
	}
}

// CheckDataConsent ticks the consent checkbox.
func (p *CountryFormPage) CheckDataConsent() {
	p.t.Helper()
	if err := p.consent.Check(); err != nil {
		p.t.Fatalf("check consent: %v", err)
	}
}

// UncheckDataConsent clears the consent checkbox.
func (p *CountryFormPage) UncheckDataConsent() {
	p.t.Helper()
	if err := p.consent.Uncheck(); err != nil {
		p.t.Fatalf("uncheck consent: %v", err)
	}
}

// FillCompleteForm fills every field.
func (p *CountryFormPage) FillCompleteForm(acronym, country string, euResident, consent bool) {
	p.t.Helper()
	p.FillAcronym(acronym)
	p.SelectCountry(country)
	if euResident {
		p.SelectEUYes()
	} else {
		p.SelectEUNo()
	}
	if consent {
		p.CheckDataConsent()
	} else {
		p.UncheckDataConsent()
	}
}

// ClickSubmit submits the form and waits until the result box shows the
// answer to this submission.
func (p *CountryFormPage) ClickSubmit() {
	p.t.Helper()

	seq, err := p.result.GetAttribute("data-seq")
	if err != nil {
		p.t.Fatalf("read result sequence: %v", err)
	}
	next := 1
	if seq != "" {
		if _, err := fmt.Sscanf(seq, "%d", &next); err != nil {
			p.t.Fatalf("parse result sequence %q: %v", seq, err)
		}
		next++
	}

	if err := p.submit.Click(); err != nil {
		p.t.Fatalf("click submit: %v", err)
	}
	selector := fmt.Sprintf(`#result[data-seq="%d"]`, next)
	waitVisible(p.t, p.page.Locator(selector), selector)
}

// ClickBackLink follows the link to the terms page.
func (p *CountryFormPage) ClickBackLink() *TermsPage {
	p.t.Helper()
	if err := p.back.Click(); err != nil {
		p.t.Fatalf("click back link: %v", err)
	}
	waitForPath(p.t, p.page, TermsPath)
	return NewTermsPage(p.t, p.page, p.baseURL)
}

// AcronymValue returns the acronym field value.
func (p *CountryFormPage) AcronymValue() string {
	p.t.Helper()
	v, err := p.acronym.InputValue()
	if err != nil {
		p.t.Fatalf("read acronym: %v", err)
	}
	return v
}

// SelectedCountry returns the selected option value.
func (p *CountryFormPage) SelectedCountry() string {
	p.t.Helper()
	v, err := p.country.InputValue()
	if err != nil {
		p.t.Fatalf("read country: %v", err)
	}
	return v
}

// CountryOptions returns every option value, including the empty placeholder.
func (p *CountryFormPage) CountryOptions() []string {
	p.t.Helper()
	values, err := p.page.Locator("#country option").EvaluateAll("opts => opts.map(o => o.value)")
	if err != nil {
		p.t.Fatalf("read country options: %v", err)
	}
	raw, ok := values.([]interface{})
	if !ok {
		p.t.Fatalf("unexpected options payload %T", values)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// IsEUYesChecked reports whether "Ja" is selected.
func (p *CountryFormPage) IsEUYesChecked() bool {
	p.t.Helper()
	return isChecked(p.t, p.euYes, "#eu-yes")
}

// IsEUNoChecked reports whether "Nein" is selected.
func (p *CountryFormPage) IsEUNoChecked() bool {
	p.t.Helper()
	return isChecked(p.t, p.euNo, "#eu-no")
}

// IsDataConsentChecked reports whether consent is ticked.
func (p *CountryFormPage) IsDataConsentChecked() bool {
	p.t.Helper()
	return isChecked(p.t, p.consent, "#consent")
}

// IsResultMessageVisible reports whether the result box is shown.
func (p *CountryFormPage) IsResultMessageVisible() bool {
	p.t.Helper()
	return isVisible(p.t, p.result)
}

// IsResultSuccess reports whether the result box is styled as success.
func (p *CountryFormPage) IsResultSuccess() bool {
	p.t.Helper()
	return hasClass(p.resultClass(), "success")
}

// IsResultError reports whether the result box is styled as an error.
func (p *CountryFormPage) IsResultError() bool {
	p.t.Helper()
	return hasClass(p.resultClass(), "error")
}

// ResultMessage returns the result text.
func (p *CountryFormPage) ResultMessage() string {
	p.t.Helper()
	text, err := p.result.TextContent()
	if err != nil {
		p.t.Fatalf("read result: %v", err)
	}
	return strings.TrimSpace(text)
}

// ResultColor returns the computed text color of the result box.
func (p *CountryFormPage) ResultColor() string {
	p.t.Helper()
	color, err := p.result.Evaluate("el => getComputedStyle(el).color", nil)
	if err != nil {
		p.t.Fatalf("read result color: %v", err)
	}
	return fmt.Sprint(color)
}

// PageTitle returns the document title.
func (p *CountryFormPage) PageTitle() string {
	p.t.Helper()
	return title(p.t, p.page)
}

// IsOnPage reports whether the browser is on the form page.
func (p *CountryFormPage) IsOnPage() bool {
	return strings.HasSuffix(urlPath(p.page.URL()), FormPath)
}

func (p *CountryFormPage) resultClass() string {
	p.t.Helper()
	class, err := p.result.GetAttribute("class")
	if err != nil {
		p.t.Fatalf("read result class: %v", err)
	}
	return class
}
