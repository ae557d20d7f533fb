// Package browsertest provides a scriptable in-memory browser.Driver for
// tests that must not launch a real browser.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/editionfetch/pkg/browser"
)

// ErrNotFound is returned for selectors with no element on the current page.
var ErrNotFound = errors.New("element not found")

// Element is a fake DOM element (or a group of elements sharing a selector).
type Element struct {
	Visible bool
	Enabled bool
	Attrs   map[string]string

	// Texts holds one rendered text per matching element
	Texts []string

	// OnRead runs before every State or Attribute read, letting tests
	// simulate elements that change over time
	OnRead func(e *Element)

	// OnClick runs when the index-th match is clicked
	OnClick func(d *Driver, index int) error
}

// Page is a fake page keyed by URL.
type Page struct {
	HTML     string
	Elements map[string]*Element
}

// Driver is a fake browser.Driver. All recorded fields are safe to read once
// the code under test has returned.
type Driver struct {
	mu sync.Mutex

	Pages map[string]*Page

	// NavigateErrors makes Navigate fail for specific URLs
	NavigateErrors map[string]error

	// EvaluateErr makes every Evaluate call fail
	EvaluateErr error

	// RejectCookies makes AddCookie succeed without storing anything
	RejectCookies bool

	Dir string

	current string

	Navigations []string
	Clicks      []string
	Filled      map[string]string
	Scripts     []string
	Jar         []browser.Cookie
}

var _ browser.Driver = (*Driver)(nil)

// New creates a fake driver whose downloads go to dir.
func New(dir string) *Driver {
	return &Driver{
		Pages:          make(map[string]*Page),
		NavigateErrors: make(map[string]error),
		Filled:         make(map[string]string),
		Dir:            dir,
		current:        "about:blank",
	}
}

// AddPage registers a page and returns it for further setup.
func (d *Driver) AddPage(url, html string) *Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	page := &Page{HTML: html, Elements: make(map[string]*Element)}
	d.Pages[url] = page
	return page
}

// Go switches the current page without recording a navigation. Click
// handlers use it to simulate link navigation.
func (d *Driver) Go(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = url
}

func (d *Driver) page() *Page {
	if page, ok := d.Pages[d.current]; ok {
		return page
	}
	return &Page{Elements: map[string]*Element{}}
}

func (d *Driver) element(selector string) (*Element, bool) {
	e, ok := d.page().Elements[selector]
	return e, ok
}

// Navigate records the navigation and switches pages.
func (d *Driver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigations = append(d.Navigations, url)
	if err := d.NavigateErrors[url]; err != nil {
		return err
	}
	d.current = url
	return nil
}

// URL returns the current page URL.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Content returns the current page's HTML.
func (d *Driver) Content() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page().HTML, nil
}

// Fill records the value typed into selector.
func (d *Driver) Fill(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.element(selector); !ok {
		return fmt.Errorf("fill %s: %w", selector, ErrNotFound)
	}
	d.Filled[selector] = value
	return nil
}

// Click clicks the first match.
func (d *Driver) Click(selector string) error {
	return d.ClickNth(selector, 0)
}

// ClickNth records the click and runs the element's OnClick handler.
func (d *Driver) ClickNth(selector string, index int) error {
	d.mu.Lock()
	e, ok := d.element(selector)
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("click %s: %w", selector, ErrNotFound)
	}
	d.Clicks = append(d.Clicks, fmt.Sprintf("%s[%d]", selector, index))
	handler := e.OnClick
	d.mu.Unlock()

	if handler != nil {
		return handler(d, index)
	}
	return nil
}

// Texts returns the texts of the matching element group.
func (d *Driver) Texts(selector string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.element(selector)
	if !ok {
		return nil, nil
	}
	return append([]string(nil), e.Texts...), nil
}

// State reports the element state; absent elements are not present.
func (d *Driver) State(selector string) (browser.ElementState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.element(selector)
	if !ok {
		return browser.ElementState{}, nil
	}
	if e.OnRead != nil {
		e.OnRead(e)
	}
	return browser.ElementState{Present: true, Visible: e.Visible, Enabled: e.Enabled}, nil
}

// Attribute returns an attribute of the element.
func (d *Driver) Attribute(selector, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.element(selector)
	if !ok {
		return "", fmt.Errorf("attribute %s of %s: %w", name, selector, ErrNotFound)
	}
	if e.OnRead != nil {
		e.OnRead(e)
	}
	return e.Attrs[name], nil
}

// WaitFor succeeds immediately when the element exists and fails
// immediately otherwise.
func (d *Driver) WaitFor(selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.element(selector); !ok {
		return fmt.Errorf("wait for %s (%s): %w", selector, timeout, ErrNotFound)
	}
	return nil
}

// Evaluate records the script.
func (d *Driver) Evaluate(script string) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Scripts = append(d.Scripts, script)
	if d.EvaluateErr != nil {
		return nil, d.EvaluateErr
	}
	return nil, nil
}

// AddCookie stores the cookie in the fake jar.
func (d *Driver) AddCookie(cookie browser.Cookie) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.RejectCookies {
		return nil
	}
	d.Jar = append(d.Jar, cookie)
	return nil
}

// Cookies returns the fake jar.
func (d *Driver) Cookies() ([]browser.Cookie, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.Cookie(nil), d.Jar...), nil
}

// DownloadDir returns the directory given to New.
func (d *Driver) DownloadDir() string {
	return d.Dir
}

// ClickCount returns how many recorded clicks hit selector (any index).
func (d *Driver) ClickCount(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	prefix := selector + "["
	for _, c := range d.Clicks {
		if len(c) > len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
