package browser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

// ManagerOptions configures a SessionManager.
type ManagerOptions struct {
	// Engine is one of "chromium", "firefox" or "webkit"
	Engine string

	// Install downloads the Playwright driver and the engine before starting
	Install bool

	// Logger receives session and download events
	Logger *logging.Logger
}

// SessionManager owns the Playwright instance and the sessions launched
// from it.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	engine      string
	install     bool
	log         *logging.Logger
	initialized bool
}

// NewSessionManager creates a new session manager.
func NewSessionManager(opts ManagerOptions) *SessionManager {
	if opts.Engine == "" {
		opts.Engine = DefaultEngine
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		engine:   opts.Engine,
		install:  opts.Install,
		log:      opts.Logger,
	}
}

// Initialize starts the Playwright driver, installing it and the configured
// engine first when requested. It must be called before StartSession.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Keep driver chatter out of the run log
	opts := &playwright.RunOptions{
		Browsers: []string{m.engine},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if m.install {
		m.log.Infof("installing playwright driver and %s", m.engine)
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

func (m *SessionManager) browserType() (playwright.BrowserType, error) {
	switch m.engine {
	case "chromium":
		return m.playwright.Chromium, nil
	case "firefox":
		return m.playwright.Firefox, nil
	case "webkit":
		return m.playwright.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser engine: %s", m.engine)
	}
}

// StartSession launches a browser and opens a page ready for driving.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if !m.initialized {
		return nil, errors.New("session manager not initialized")
	}
	if opts.DownloadDir == "" {
		return nil, errors.New("download directory is required")
	}

	// Set defaults
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PartialSuffix == "" {
		opts.PartialSuffix = DefaultPartialSuffix
	}

	if err := os.MkdirAll(opts.DownloadDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	browserType, err := m.browserType()
	if err != nil {
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", m.engine, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		AcceptDownloads: playwright.Bool(true),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	// popups opened by target=_blank links download on their own page
	downloads := newDownloadTracker(opts.DownloadDir, opts.PartialSuffix, m.log)
	context.OnPage(downloads.watch)

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	downloads.watch(page)
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	session := &Session{
		Name:      name,
		Browser:   browser,
		Context:   context,
		Page:      page,
		Headless:  opts.Headless,
		CreatedAt: time.Now(),
		downloads: downloads,
	}

	m.log.Debugf("started %s session %q (headless=%t, downloads=%s)", m.engine, name, opts.Headless, opts.DownloadDir)
	m.sessions[name] = session
	return session, nil
}

// Shutdown closes all sessions and stops Playwright. It is safe to call on
// a manager that was never initialized.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, session := range m.sessions {
		if err := session.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}

	return errors.Join(errs...)
}
