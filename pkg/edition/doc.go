// Package edition retrieves the current newspaper edition through a browser.
//
// A Fetcher runs the pipeline in order:
//
//  1. establish an authenticated session (token cookie or interactive login)
//  2. open the current edition and check that the EPUB is published
//  3. trigger the download and wait until no partial file remains
//  4. resolve the artifact that the download produced
//
// Every step works against a browser.Driver, so the whole pipeline can run
// against browsertest.Driver in tests.
package edition
