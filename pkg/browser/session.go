package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var _ Driver = (*Session)(nil)

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string) error {
	waitUntil := playwright.WaitUntilState("load")
	if _, err := s.Page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Content returns the page HTML.
func (s *Session) Content() (string, error) {
	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(selector, value string) error {
	if err := s.Page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %s failed: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	if err := s.Page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s failed: %w", selector, err)
	}
	return nil
}

// ClickNth clicks the index-th element matching the selector.
func (s *Session) ClickNth(selector string, index int) error {
	if err := s.Page.Locator(selector).Nth(index).Click(); err != nil {
		return fmt.Errorf("click %s[%d] failed: %w", selector, index, err)
	}
	return nil
}

// Texts returns the rendered text of all matches. Rendered text reflects
// CSS transforms, so an uppercased link reads uppercase here.
func (s *Session) Texts(selector string) ([]string, error) {
	texts, err := s.Page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("reading texts of %s failed: %w", selector, err)
	}
	return texts, nil
}

// State reports the state of the first match.
func (s *Session) State(selector string) (ElementState, error) {
	locator := s.Page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		return ElementState{}, fmt.Errorf("query %s failed: %w", selector, err)
	}
	if count == 0 {
		return ElementState{}, nil
	}

	first := locator.First()
	visible, err := first.IsVisible()
	if err != nil {
		return ElementState{}, fmt.Errorf("visibility check of %s failed: %w", selector, err)
	}
	enabled, err := first.IsEnabled()
	if err != nil {
		return ElementState{}, fmt.Errorf("enabled check of %s failed: %w", selector, err)
	}

	return ElementState{Present: true, Visible: visible, Enabled: enabled}, nil
}

// Attribute returns an attribute of the first match.
func (s *Session) Attribute(selector, name string) (string, error) {
	locator := s.Page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		return "", fmt.Errorf("query %s failed: %w", selector, err)
	}
	if count == 0 {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}
	value, err := locator.First().GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("reading %s of %s failed: %w", name, selector, err)
	}
	return value, nil
}

// WaitFor waits until an element matching selector is attached.
func (s *Session) WaitFor(selector string, timeout time.Duration) error {
	opts := playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateAttached,
	}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if _, err := s.Page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait for %s failed: %w", selector, err)
	}
	return nil
}

// Evaluate executes JavaScript in the page.
func (s *Session) Evaluate(script string) (interface{}, error) {
	result, err := s.Page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("script execution failed: %w", err)
	}
	return result, nil
}

// AddCookie stores a cookie in the session's browser context.
func (s *Session) AddCookie(cookie Cookie) error {
	if cookie.Name == "" {
		return errors.New("cookie name is required")
	}
	path := cookie.Path
	if path == "" {
		path = "/"
	}
	err := s.Context.AddCookies([]playwright.OptionalCookie{{
		Name:   cookie.Name,
		Value:  cookie.Value,
		Domain: playwright.String(cookie.Domain),
		Path:   playwright.String(path),
		Secure: playwright.Bool(cookie.Secure),
	}})
	if err != nil {
		return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
	}
	return nil
}

// Cookies returns all cookies of the browser context.
func (s *Session) Cookies() ([]Cookie, error) {
	raw, err := s.Context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	return cookies, nil
}

// DownloadDir returns the directory downloads are written to.
func (s *Session) DownloadDir() string {
	return s.downloads.dir
}

// close waits for in-flight download copies and releases Playwright
// resources, continuing past individual failures.
func (s *Session) close() error {
	var errs []error
	if err := s.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	s.downloads.wait()
	if err := s.Browser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
