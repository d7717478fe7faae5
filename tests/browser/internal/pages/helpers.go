package pages

import (
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
)

var expect = playwright.NewPlaywrightAssertions(timeoutMS)

func gotoPath(t *testing.T, page playwright.Page, baseURL, path string) {
	t.Helper()
	_, err := page.Goto(baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeoutMS),
	})
	if err != nil {
		t.Fatalf("navigate to %s: %v", path, err)
	}
}

func waitVisible(t *testing.T, loc playwright.Locator, name string) {
	t.Helper()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMS),
	})
	if err != nil {
		t.Fatalf("wait for %s: %v", name, err)
	}
}

func waitForPath(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	err := page.WaitForURL(regexp.MustCompile(regexp.QuoteMeta(path)+`$`), playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(timeoutMS),
	})
	if err != nil {
		t.Fatalf("wait for %s (at %s): %v", path, page.URL(), err)
	}
}

func isVisible(t *testing.T, loc playwright.Locator) bool {
	t.Helper()
	visible, err := loc.IsVisible()
	if err != nil {
		t.Fatalf("visibility check: %v", err)
	}
	return visible
}

func isChecked(t *testing.T, loc playwright.Locator, name string) bool {
	t.Helper()
	checked, err := loc.IsChecked()
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return checked
}

func title(t *testing.T, page playwright.Page) string {
	t.Helper()
	s, err := page.Title()
	if err != nil {
		t.Fatalf("read title: %v", err)
	}
	return s
}

func hasClass(classAttr, name string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == name {
			return true
		}
	}
	return false
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
