// Package browser drives a real browser through Playwright.
//
// The fetcher talks to the browser only through the Driver interface, which
// exposes the handful of primitives the retrieval sequence needs: navigation,
// DOM queries by CSS selector, clicks, form filling, condition waits, cookie
// access and script execution. Session is the Playwright-backed
// implementation; the browsertest package provides a scriptable fake.
//
// # Session Lifecycle
//
//  1. Initialize: the SessionManager installs (optionally) and starts the
//     Playwright driver
//  2. Start: StartSession launches the configured engine with a fresh
//     context that accepts downloads
//  3. Use: the fetcher drives the session through the Driver interface
//  4. Shutdown: closes every session and stops Playwright; callers defer it
//
// # Downloads
//
// Downloads triggered by the page are written into the session's download
// directory. While a download is in progress its file carries the partial
// suffix (".part" by default); the suffix is dropped once the content is
// complete, so completion can be detected by polling the directory.
//
// # Example Usage
//
//	manager := browser.NewSessionManager(browser.ManagerOptions{Engine: "firefox", Install: true})
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession("edition", browser.SessionOptions{
//	    Headless:    true,
//	    DownloadDir: dir,
//	})
package browser
