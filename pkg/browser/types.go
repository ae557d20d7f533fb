package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Driver is the set of browser primitives the fetcher relies on.
// Selectors are CSS selectors; methods acting on a single element use the
// first match.
type Driver interface {
	// Navigate loads url in the current page and waits for the load event
	Navigate(url string) error

	// URL returns the URL of the current page
	URL() string

	// Content returns the serialized HTML of the current page
	Content() (string, error)

	// Fill types value into the first element matching selector
	Fill(selector, value string) error

	// Click clicks the first element matching selector
	Click(selector string) error

	// ClickNth clicks the index-th element matching selector
	ClickNth(selector string, index int) error

	// Texts returns the rendered text of every element matching selector
	Texts(selector string) ([]string, error)

	// State reports presence, visibility and enablement of the first match
	State(selector string) (ElementState, error)

	// Attribute returns an attribute of the first match, "" if absent
	Attribute(selector, name string) (string, error)

	// WaitFor blocks until an element matching selector is attached
	WaitFor(selector string, timeout time.Duration) error

	// Evaluate runs a JavaScript expression in the page
	Evaluate(script string) (interface{}, error)

	// AddCookie stores a cookie in the browser context
	AddCookie(cookie Cookie) error

	// Cookies returns the cookies of the browser context
	Cookies() ([]Cookie, error)

	// DownloadDir is where page-triggered downloads are written
	DownloadDir() string
}

// ElementState describes the first element matching a selector.
type ElementState struct {
	Present bool
	Visible bool
	Enabled bool
}

// Ready reports whether the element can be interacted with.
func (s ElementState) Ready() bool {
	return s.Present && s.Visible && s.Enabled
}

// Cookie is a browser cookie.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool
}

// Session represents an active browser session with its associated resources.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the current active page
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	downloads *downloadTracker
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for page operations
	Timeout time.Duration

	// UserAgent overrides the engine's user agent when non-empty
	UserAgent string

	// DownloadDir receives downloads; it is created if missing
	DownloadDir string

	// PartialSuffix marks in-progress downloads
	PartialSuffix string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for sessions
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultPartialSuffix  = ".part"
	DefaultEngine         = "firefox"
)
