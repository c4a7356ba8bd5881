// Package testbrowser gives each browser test its own isolated browser context.
package testbrowser

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jackc/petclinic-e2e/browserz"
)

type ManagerConfig struct {
	// Browser configures the shared browser. If nil it is read from the BROWSER_* environment variables.
	Browser *browserz.Config

	// MaxConcurrent limits how many tests may hold a browser context at once. Values less than 1 mean 1.
	MaxConcurrent int

	// Timeout bounds every wait of a Page helper. Defaults to 5 seconds.
	Timeout time.Duration
}

// Manager owns one browser process shared by all tests. Each test acquires an incognito context of it.
type Manager struct {
	browser   *browserz.Browser
	launchErr error
	sem       chan struct{}
	timeout   time.Duration
}

// NewManager launches the browser. A browser that cannot be launched is not an error here. Acquire skips the test
// instead so the rest of the test suite still runs on machines without a browser.
func NewManager(config ManagerConfig) (*Manager, error) {
	browserConfig := config.Browser
	if browserConfig == nil {
		c, err := browserz.ConfigFromValues(os.Getenv)
		if err != nil {
			return nil, err
		}
		browserConfig = &c
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	m := &Manager{
		sem:     make(chan struct{}, maxConcurrent),
		timeout: timeout,
	}
	m.browser, m.launchErr = browserz.Launch(context.Background(), *browserConfig)

	return m, nil
}

// Close closes the shared browser.
func (m *Manager) Close() error {
	if m.browser == nil {
		return nil
	}
	return m.browser.Close()
}

// Timeout is how long Page helpers wait.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Acquire returns a new incognito browser context for t. It blocks while MaxConcurrent tests hold one. The context is
// closed when t completes.
func (m *Manager) Acquire(t testing.TB) *Browser {
	t.Helper()

	if m.launchErr != nil {
		t.Skipf("browser unavailable: %v", m.launchErr)
	}

	m.sem <- struct{}{}
	t.Cleanup(func() { <-m.sem })

	incognito, err := m.browser.Incognito()
	if err != nil {
		t.Fatalf("create incognito browser context: %v", err)
	}
	t.Cleanup(func() {
		incognito.Close()
	})

	return &Browser{t: t, browser: incognito, timeout: m.timeout}
}

type Browser struct {
	t       testing.TB
	browser *rod.Browser
	timeout time.Duration
}

// Rod returns the underlying rod browser.
func (b *Browser) Rod() *rod.Browser {
	return b.browser
}

// Page opens a blank page. It is closed when the test completes.
func (b *Browser) Page() *Page {
	b.t.Helper()

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.t.Fatalf("open page: %v", err)
	}
	b.t.Cleanup(func() {
		page.Close()
	})

	return &Page{Page: page, t: b.t, timeout: b.timeout}
}

// Page is a rod page with assertion helpers that fail the test on error.
type Page struct {
	*rod.Page
	t       testing.TB
	timeout time.Duration
}

func (p *Page) waiting() *rod.Page {
	return p.Page.Timeout(p.timeout)
}

// FillIn replaces the value of a form control. locator is either the text of the control's label or a CSS selector.
func (p *Page) FillIn(locator, value string) {
	p.t.Helper()

	el, err := p.findField(locator)
	if err != nil {
		p.t.Fatalf("FillIn %q: %v", locator, err)
	}

	err = el.SelectAllText()
	if err != nil {
		p.t.Fatalf("FillIn %q: select text: %v", locator, err)
	}
	err = el.Input(value)
	if err != nil {
		p.t.Fatalf("FillIn %q: %v", locator, err)
	}
}

// FillInDate sets the value of a date input. locator is as for FillIn.
func (p *Page) FillInDate(locator string, t time.Time) {
	p.t.Helper()

	el, err := p.findField(locator)
	if err != nil {
		p.t.Fatalf("FillInDate %q: %v", locator, err)
	}
	err = el.InputTime(t)
	if err != nil {
		p.t.Fatalf("FillInDate %q: %v", locator, err)
	}
}

// Select chooses the option with text option in a select element. locator is as for FillIn.
func (p *Page) Select(locator, option string) {
	p.t.Helper()

	el, err := p.findField(locator)
	if err != nil {
		p.t.Fatalf("Select %q: %v", locator, err)
	}
	err = el.Select([]string{option}, true, rod.SelectorTypeText)
	if err != nil {
		p.t.Fatalf("Select %q %q: %v", locator, option, err)
	}
}

func (p *Page) findField(locator string) (*rod.Element, error) {
	has, label, err := p.Page.HasR("label", "^\\s*"+regexp.QuoteMeta(locator)+"\\s*$")
	if err != nil {
		return nil, err
	}
	if has {
		id, err := label.Attribute("for")
		if err != nil {
			return nil, err
		}
		if id != nil {
			return p.waiting().Element("#" + *id)
		}
	}

	return p.waiting().Element(locator)
}

// ClickOn clicks the button or link whose text is text.
func (p *Page) ClickOn(text string) {
	p.t.Helper()

	el, err := p.waiting().ElementR("button, a, input[type=submit]", "^\\s*"+regexp.QuoteMeta(text)+"\\s*$")
	if err != nil {
		p.t.Fatalf("ClickOn %q: %v", text, err)
	}

	wait := p.waiting().WaitNavigation(proto.PageLifecycleEventNameLoad)
	err = el.Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		p.t.Fatalf("ClickOn %q: %v", text, err)
	}
	wait()
}

// HasContent waits for an element matching selector that contains text.
func (p *Page) HasContent(selector, text string) {
	p.t.Helper()

	_, err := p.waiting().ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		p.t.Fatalf("HasContent %s %q: %v", selector, text, err)
	}
}
