package ownerdetails

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
)

const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = 250 * time.Millisecond
)

// ActiveClass is the class token the application puts on the link of the current sort order.
const ActiveClass = "text-primary"

type filter struct {
	desc string
	fn   func(el *rod.Element) (bool, error)
}

// Locator is a deferred reference to the elements matching a selector. It is resolved against the live DOM every
// time it is used, so a Locator stays valid across navigations and reloads.
//
// Methods that act on a single element wait up to the timeout for a match. Count, IsVisible, and AllTexts do not
// wait.
type Locator struct {
	page     *rod.Page
	parent   *Locator
	selector string
	filters  []filter
	index    int
	indexed  bool
	timeout  time.Duration
}

// NewLocator returns a Locator for the elements of page matching the CSS selector.
func NewLocator(page *rod.Page, selector string, timeout time.Duration) *Locator {
	return &Locator{page: page, selector: selector, timeout: timeout}
}

func (l *Locator) clone() *Locator {
	c := *l
	c.filters = append([]filter(nil), l.filters...)
	return &c
}

// Locator returns a Locator for the descendants of l's elements matching selector.
func (l *Locator) Locator(selector string) *Locator {
	return &Locator{page: l.page, parent: l, selector: selector, timeout: l.timeout}
}

// Nth narrows l to its i-th match. Negative i counts from the end.
func (l *Locator) Nth(i int) *Locator {
	c := l.clone()
	c.index = i
	c.indexed = true
	return c
}

func (l *Locator) First() *Locator {
	return l.Nth(0)
}

func (l *Locator) Last() *Locator {
	return l.Nth(-1)
}

// Filter narrows l to the elements for which fn returns true. desc names the filter in error messages.
func (l *Locator) Filter(desc string, fn func(el *rod.Element) (bool, error)) *Locator {
	c := l.clone()
	c.filters = append(c.filters, filter{desc: desc, fn: fn})
	return c
}

// WithText narrows l to the elements whose trimmed text is exactly text.
func (l *Locator) WithText(text string) *Locator {
	return l.Filter(fmt.Sprintf("text=%q", text), func(el *rod.Element) (bool, error) {
		s, err := el.Text()
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(s) == text, nil
	})
}

// WithTextMatching narrows l to the elements whose text matches re.
func (l *Locator) WithTextMatching(re *regexp.Regexp) *Locator {
	return l.Filter(fmt.Sprintf("text=/%s/", re), func(el *rod.Element) (bool, error) {
		s, err := el.Text()
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	})
}

// Has narrows l to the elements with a descendant matching selector whose trimmed text is exactly text.
func (l *Locator) Has(selector, text string) *Locator {
	return l.Filter(fmt.Sprintf("has(%s text=%q)", selector, text), func(el *rod.Element) (bool, error) {
		children, err := el.Elements(selector)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			s, err := child.Text()
			if err != nil {
				return false, err
			}
			if strings.TrimSpace(s) == text {
				return true, nil
			}
		}
		return false, nil
	})
}

func (l *Locator) String() string {
	sb := &strings.Builder{}
	if l.parent != nil {
		sb.WriteString(l.parent.String())
		sb.WriteString(" >> ")
	}
	sb.WriteString(l.selector)
	for _, f := range l.filters {
		sb.WriteString(" [")
		sb.WriteString(f.desc)
		sb.WriteString("]")
	}
	if l.indexed {
		fmt.Fprintf(sb, " nth=%d", l.index)
	}
	return sb.String()
}

// all resolves l against the current DOM without waiting.
func (l *Locator) all() (rod.Elements, error) {
	var candidates rod.Elements
	if l.parent == nil {
		els, err := l.page.Elements(l.selector)
		if err != nil {
			return nil, err
		}
		candidates = els
	} else {
		parents, err := l.parent.all()
		if err != nil {
			return nil, err
		}
		for _, parent := range parents {
			els, err := parent.Elements(l.selector)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, els...)
		}
	}

	var matches rod.Elements
	for _, el := range candidates {
		ok := true
		for _, f := range l.filters {
			var err error
			ok, err = f.fn(el)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
		}
		if ok {
			matches = append(matches, el)
		}
	}

	if !l.indexed {
		return matches, nil
	}

	i := l.index
	if i < 0 {
		i += len(matches)
	}
	if i < 0 || i >= len(matches) {
		return nil, nil
	}
	return rod.Elements{matches[i]}, nil
}

// poll calls fn until it returns true or the timeout elapses. Errors from fn are retried since they occur while the
// page is navigating. The last one is kept in the timeout error.
func (l *Locator) poll(fn func() (bool, error)) error {
	pageCtx := l.page.GetContext()
	ctx, cancel := context.WithTimeout(pageCtx, l.timeout)
	defer cancel()

	var lastErr error
	err := utils.Retry(ctx, utils.BackoffSleeper(minPollInterval, maxPollInterval, nil), func() (bool, error) {
		done, err := fn()
		lastErr = err
		return err == nil && done, nil
	})
	if err != nil {
		if pageCtx.Err() != nil {
			return pageCtx.Err()
		}
		return &LocatorTimeoutError{Locator: l.String(), Timeout: l.timeout, Err: lastErr}
	}
	return nil
}

// Element waits for the first element matching l.
func (l *Locator) Element() (*rod.Element, error) {
	var el *rod.Element
	err := l.poll(func() (bool, error) {
		els, err := l.all()
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		el = els[0]
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return el, nil
}

// Count returns the number of elements currently matching l.
func (l *Locator) Count() (int, error) {
	els, err := l.all()
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// IsVisible reports whether the first element matching l is currently visible. It is false when nothing matches.
func (l *Locator) IsVisible() (bool, error) {
	els, err := l.all()
	if err != nil {
		return false, err
	}
	if len(els) == 0 {
		return false, nil
	}
	return els[0].Visible()
}

// WaitVisible waits until the first element matching l is visible.
func (l *Locator) WaitVisible() error {
	return l.poll(func() (bool, error) {
		return l.IsVisible()
	})
}

// Text waits for the first element matching l and returns its trimmed text.
func (l *Locator) Text() (string, error) {
	el, err := l.Element()
	if err != nil {
		return "", err
	}
	s, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// AllTexts returns the trimmed text of every element currently matching l.
func (l *Locator) AllTexts() ([]string, error) {
	els, err := l.all()
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		s, err := el.Text()
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(s))
	}
	return texts, nil
}

// Attribute waits for the first element matching l and returns the named attribute. It returns nil if the element
// does not have the attribute.
func (l *Locator) Attribute(name string) (*string, error) {
	el, err := l.Element()
	if err != nil {
		return nil, err
	}
	return el.Attribute(name)
}

// HasClass reports whether the first element matching l has class token in its class attribute. An element without
// a class attribute does not have the class.
func (l *Locator) HasClass(token string) (bool, error) {
	class, err := l.Attribute("class")
	if err != nil {
		return false, err
	}
	if class == nil {
		return false, nil
	}
	return hasClassToken(*class, token), nil
}

func hasClassToken(class, token string) bool {
	for _, t := range strings.Fields(class) {
		if t == token {
			return true
		}
	}
	return false
}

// IsActive reports whether the element matching l is marked as the current state by ActiveClass.
func (l *Locator) IsActive() (bool, error) {
	return l.HasClass(ActiveClass)
}

// Click waits for the first element matching l and clicks it.
func (l *Locator) Click() error {
	el, err := l.Element()
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ClickAndWaitNavigation clicks l and waits for the page it leads to to load. It returns a *LocatorTimeoutError if
// the click does not lead to a loaded page within the timeout.
func (l *Locator) ClickAndWaitNavigation() error {
	el, err := l.Element()
	if err != nil {
		return err
	}

	page := l.page.Timeout(l.timeout)
	defer page.CancelTimeout()
	ctx := page.GetContext()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameLoad)
	err = el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		if ctx.Err() != nil {
			return &LocatorTimeoutError{Locator: l.String(), Timeout: l.timeout, Err: err}
		}
		return err
	}
	wait()

	if err := ctx.Err(); err != nil {
		return &LocatorTimeoutError{Locator: l.String() + " navigation", Timeout: l.timeout, Err: err}
	}
	return nil
}
