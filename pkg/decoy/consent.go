package decoy

import (
	"context"
	"strings"
	"time"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/logging"
)

// ConsentSelectors are common cookie banner accept controls, tried in order.
var ConsentSelectors = []string{
	"[id*='cookie'] button",
	"[class*='cookie'] button",
	"[data-testid*='cookie'] button",
	"button[id*='accept']",
	"button[class*='accept']",
	"button[aria-label*='accept']",
	"button[aria-label*='Accept']",
	".cookie-consent button",
	".cookie-banner button",
	".consent-banner button",
	"#cookie-consent button",
	"#cookie-banner button",
	".gdpr-consent button",
	".privacy-banner button",
	".cmp-intro_acceptAll",
	".sp_choice_type_11",
	"[title*='Accept']",
	"[title*='Akzeptieren']",
	".fc-cta-consent",
	".qc-cmp2-summary-buttons button",
	".didomi-continue-without-agreeing",
	".message-button-accept",
	"[data-role='acceptAll']",
	"[data-cy='accept-all']",
}

// ConsentButtonTexts are matched case-insensitively against button labels
// when no selector hit.
var ConsentButtonTexts = []string{"Accept", "Akzeptieren", "Zustimmen", "OK"}

// bannerDelay lets consent banners render before they are looked for.
const bannerDelay = 1500 * time.Millisecond

// AcceptConsent tries to dismiss a cookie banner on the current page.
// Errors from individual candidates are skipped over; the outcome says
// whether anything was clicked.
func AcceptConsent(ctx context.Context, d browser.Driver, sleep SleepFunc, log *logging.Logger) Outcome {
	if err := sleep(ctx, bannerDelay); err != nil {
		return OutcomeSkipped
	}

	for _, selector := range ConsentSelectors {
		state, err := d.State(selector)
		if err != nil || !state.Ready() {
			continue
		}
		if err := d.Click(selector); err != nil {
			log.Debugf("consent selector %s matched but click failed: %v", selector, err)
			continue
		}
		log.Verbosef("accepted cookies using selector: %s", selector)
		return OutcomeSucceeded
	}

	labels, err := d.Texts("button")
	if err != nil {
		log.Debugf("could not list buttons: %v", err)
		return OutcomeFailed
	}
	for _, text := range ConsentButtonTexts {
		for i, label := range labels {
			if !strings.Contains(strings.ToLower(label), strings.ToLower(text)) {
				continue
			}
			if err := d.ClickNth("button", i); err != nil {
				log.Debugf("consent button %q click failed: %v", label, err)
				continue
			}
			log.Verbosef("accepted cookies using text: %s", text)
			return OutcomeSucceeded
		}
	}

	return OutcomeSkipped
}
