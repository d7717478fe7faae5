// Package pages holds Playwright page objects for the terms page and the
// country form.
package pages

import (
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
)

const (
	// Same cap as the browser suite; page objects never wait longer.
	timeoutMS = 5000

	TermsPath = "/page1.html"
	FormPath  = "/page2.html"
)

// TermsPage is the page object for page1.html.
type TermsPage struct {
	t       *testing.T
	page    playwright.Page
	baseURL string

	checkbox playwright.Locator
	label    playwright.Locator
	next     playwright.Locator
}

// NewTermsPage binds a page object to page. It does not navigate.
func NewTermsPage(t *testing.T, page playwright.Page, baseURL string) *TermsPage {
	return &TermsPage{
		t:        t,
		page:     page,
		baseURL:  baseURL,
		checkbox: page.Locator("#accept"),
		label:    page.Locator("#accept-label"),
		next:     page.Locator("#next"),
	}
}

// Nav opens the terms page and waits for the checkbox.
func (p *TermsPage) Nav() *TermsPage {
	p.t.Helper()
	gotoPath(p.t, p.page, p.baseURL, TermsPath)
	waitVisible(p.t, p.checkbox, "#accept")
	return p
}

// AcceptTerms checks the terms checkbox.
func (p *TermsPage) AcceptTerms() {
	p.t.Helper()
	if err := p.checkbox.Check(); err != nil {
		p.t.Fatalf("accept terms: %v", err)
	}
}

// DeclineTerms unchecks the terms checkbox.
func (p *TermsPage) DeclineTerms() {
	p.t.Helper()
	if err := p.checkbox.Uncheck(); err != nil {
		p.t.Fatalf("decline terms: %v", err)
	}
}

// ClickLabel toggles the checkbox through its label.
func (p *TermsPage) ClickLabel() {
	p.t.Helper()
	if err := p.label.Click(); err != nil {
		p.t.Fatalf("click terms label: %v", err)
	}
}

// IsTermsAccepted reports whether the checkbox is checked.
func (p *TermsPage) IsTermsAccepted() bool {
	p.t.Helper()
	return isChecked(p.t, p.checkbox, "#accept")
}

// IsNextLinkEnabled reports whether the link to the form is usable.
func (p *TermsPage) IsNextLinkEnabled() bool {
	p.t.Helper()
	ariaDisabled, err := p.next.GetAttribute("aria-disabled")
	if err != nil {
		p.t.Fatalf("read next link aria-disabled: %v", err)
	}
	class, err := p.next.GetAttribute("class")
	if err != nil {
		p.t.Fatalf("read next link class: %v", err)
	}
	return ariaDisabled == "false" && !hasClass(class, "disabled")
}

// IsCheckboxVisible reports whether the terms checkbox is visible.
func (p *TermsPage) IsCheckboxVisible() bool {
	p.t.Helper()
	return isVisible(p.t, p.checkbox)
}

// IsNextLinkVisible reports whether the link to the form is visible.
func (p *TermsPage) IsNextLinkVisible() bool {
	p.t.Helper()
	return isVisible(p.t, p.next)
}

// TermsLabelText returns the checkbox label.
func (p *TermsPage) TermsLabelText() string {
	p.t.Helper()
	text, err := p.label.TextContent()
	if err != nil {
		p.t.Fatalf("read terms label: %v", err)
	}
	return strings.TrimSpace(text)
}

// PageTitle returns the document title.
func (p *TermsPage) PageTitle() string {
	p.t.Helper()
	return title(p.t, p.page)
}

// ClickNextLink clicks the link to the form. A disabled link is clicked with
// force so the attempt reaches the page instead of waiting for actionability.
func (p *TermsPage) ClickNextLink() {
	p.t.Helper()
	opts := playwright.LocatorClickOptions{}
	if !p.IsNextLinkEnabled() {
		opts.Force = playwright.Bool(true)
	}
	if err := p.next.Click(opts); err != nil {
		p.t.Fatalf("click next link: %v", err)
	}
}

// GoToForm accepts the terms, follows the link and returns the form page.
func (p *TermsPage) GoToForm() *CountryFormPage {
	p.t.Helper()
	p.AcceptTerms()
	p.ClickNextLink()
	waitForPath(p.t, p.page, FormPath)
	form := NewCountryFormPage(p.t, p.page, p.baseURL)
	waitVisible(p.t, form.acronym, "#acronym")
	return form
}

// Reload reloads the page.
func (p *TermsPage) Reload() {
	p.t.Helper()
	if _, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		p.t.Fatalf("reload: %v", err)
	}
	waitVisible(p.t, p.checkbox, "#accept")
}

// IsOnPage reports whether the browser is on the terms page.
func (p *TermsPage) IsOnPage() bool {
	return strings.HasSuffix(urlPath(p.page.URL()), TermsPath)
}

// CurrentURL returns the browser URL.
func (p *TermsPage) CurrentURL() string {
	return p.page.URL()
}

// WaitForTermsAccepted waits until the checkbox state is want.
func (p *TermsPage) WaitForTermsAccepted(want bool) {
	p.t.Helper()
	assert := expect.Locator(p.checkbox)
	if !want {
		assert = assert.Not()
	}
	if err := assert.ToBeChecked(); err != nil {
		p.t.Fatalf("terms checkbox never became checked=%v: %v", want, err)
	}
}
