// Package ownerdetails is a page object for the pet clinic Owner Details page at /owners/{ownerID}.
//
// Page exposes named locators and actions so browser tests never deal in raw selectors. It holds no state beyond the
// rod page it is bound to; every call re-queries the live DOM.
package ownerdetails

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultTimeout is how long locators wait for an element to reach the required state.
const DefaultTimeout = 5 * time.Second

const networkIdleDuration = 500 * time.Millisecond

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Owner is the owner summary shown in the Owner Information table.
type Owner struct {
	Name      string
	Address   string
	City      string
	Telephone string
}

type Page struct {
	page    *rod.Page
	baseURL string
	timeout time.Duration

	// Owner Information section
	OwnerInformationHeading *Locator
	OwnerNameCell           *Locator
	OwnerAddressCell        *Locator
	OwnerCityCell           *Locator
	OwnerTelephoneCell      *Locator

	EditOwnerButton *Locator
	AddNewPetButton *Locator

	// Pets and Visits section
	PetsAndVisitsHeading *Locator
	PetsTable            *Locator

	SortAscendingLink  *Locator
	SortDescendingLink *Locator

	SuccessMessage *Locator
	ErrorMessage   *Locator
}

type Option func(*Page)

// WithTimeout sets how long locators wait. The default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Page) {
		p.timeout = d
	}
}

// New returns a Page bound to page. baseURL is the root of the application, e.g. http://localhost:8080.
func New(page *rod.Page, baseURL string, opts ...Option) *Page {
	p := &Page{
		page:    page,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	ownerTable := p.Locator("table.table-striped").First()

	p.OwnerInformationHeading = p.Heading("Owner Information")
	p.OwnerNameCell = ownerTable.Locator("td b")
	p.OwnerAddressCell = ownerTable.Locator("tr").Has("th", "Address").Locator("td")
	p.OwnerCityCell = ownerTable.Locator("tr").Has("th", "City").Locator("td")
	p.OwnerTelephoneCell = ownerTable.Locator("tr").Has("th", "Telephone").Locator("td")

	p.EditOwnerButton = p.Link("Edit Owner")
	p.AddNewPetButton = p.Link("Add New Pet")

	p.PetsAndVisitsHeading = p.Heading("Pets and Visits")
	p.PetsTable = p.Locator("table.table-striped").Last()

	p.SortAscendingLink = p.Locator(`a[title="Sort Ascending"]`)
	p.SortDescendingLink = p.Locator(`a[title="Sort Descending"]`)

	p.SuccessMessage = p.Locator("#success-message")
	p.ErrorMessage = p.Locator("#error-message")

	return p
}

// Rod returns the underlying rod page.
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Locator returns a Locator for the elements matching the CSS selector.
func (p *Page) Locator(selector string) *Locator {
	return NewLocator(p.page, selector, p.timeout)
}

// Heading returns a Locator for the heading whose text is name.
func (p *Page) Heading(name string) *Locator {
	return p.Locator(headingSelector).WithText(name)
}

// Link returns a Locator for the links whose text is name.
func (p *Page) Link(name string) *Locator {
	return p.Locator("a").WithText(name)
}

func (p *Page) ownerPath(ownerID int) string {
	return fmt.Sprintf("%s/owners/%d", p.baseURL, ownerID)
}

func (p *Page) navigate(u string) error {
	err := p.page.Navigate(u)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", u, err)
	}
	err = p.page.WaitLoad()
	if err != nil {
		return fmt.Errorf("wait for %s to load: %w", u, err)
	}
	return nil
}

// Goto navigates to the details page of ownerID.
func (p *Page) Goto(ownerID int) error {
	return p.navigate(p.ownerPath(ownerID))
}

// GotoWithSortOrder navigates to the details page of ownerID with visits in order.
func (p *Page) GotoWithSortOrder(ownerID int, order SortOrder) error {
	return p.navigate(p.ownerPath(ownerID) + "?sortOrder=" + url.QueryEscape(string(order)))
}

// Reload reloads the current page and waits for it to load.
func (p *Page) Reload() error {
	err := p.page.Reload()
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return p.page.WaitLoad()
}

// URL returns the URL of the current page.
func (p *Page) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// WaitURL waits until the URL of the current page matches re. The pattern is evaluated in the browser, so it must
// also be a valid JavaScript regular expression.
func (p *Page) WaitURL(re *regexp.Regexp) error {
	err := p.page.Timeout(p.timeout).Wait(rod.Eval(`(source) => new RegExp(source).test(location.href)`, re.String()))
	if err != nil {
		current, _ := p.URL()
		return &AssertionError{Check: "page URL", Expected: re.String(), Actual: current, Err: err}
	}
	return nil
}

// WaitNetworkIdle waits until the page has had no requests in flight for a moment.
func (p *Page) WaitNetworkIdle() error {
	page := p.page.Timeout(p.timeout)
	defer page.CancelTimeout()

	page.WaitRequestIdle(networkIdleDuration, nil, nil, nil)()
	return page.GetContext().Err()
}

// SetViewport resizes the page viewport. Widths under 600 pixels are emulated as a mobile device.
func (p *Page) SetViewport(width, height int) error {
	return p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            width < 600,
	})
}

func (p *Page) OwnerName() (string, error) {
	return p.OwnerNameCell.Text()
}

func (p *Page) OwnerAddress() (string, error) {
	return p.OwnerAddressCell.Text()
}

func (p *Page) OwnerCity() (string, error) {
	return p.OwnerCityCell.Text()
}

func (p *Page) OwnerTelephone() (string, error) {
	return p.OwnerTelephoneCell.Text()
}

// OwnerSummary reads all four cells of the Owner Information table.
func (p *Page) OwnerSummary() (Owner, error) {
	var owner Owner
	var err error
	for _, read := range []struct {
		dst *string
		fn  func() (string, error)
	}{
		{&owner.Name, p.OwnerName},
		{&owner.Address, p.OwnerAddress},
		{&owner.City, p.OwnerCity},
		{&owner.Telephone, p.OwnerTelephone},
	} {
		*read.dst, err = read.fn()
		if err != nil {
			return Owner{}, err
		}
	}
	return owner, nil
}

func (p *Page) ClickEditOwner() error {
	return p.EditOwnerButton.ClickAndWaitNavigation()
}

func (p *Page) ClickAddNewPet() error {
	return p.AddNewPetButton.ClickAndWaitNavigation()
}

func (p *Page) ClickSortAscending() error {
	return p.SortAscendingLink.ClickAndWaitNavigation()
}

func (p *Page) ClickSortDescending() error {
	return p.SortDescendingLink.ClickAndWaitNavigation()
}

func (p *Page) IsSortAscendingActive() (bool, error) {
	return p.SortAscendingLink.IsActive()
}

func (p *Page) IsSortDescendingActive() (bool, error) {
	return p.SortDescendingLink.IsActive()
}

// PetNames returns the name of every pet on the page in page order. It reads the first pet-description entry of
// every pet row, not only the first row, so owners with several pets report all of them.
func (p *Page) PetNames() ([]string, error) {
	return p.Locator("dl.dl-horizontal dd:first-of-type").AllTexts()
}

// PetRow returns a Locator for the pets table row of the pet named name. The name must match exactly, so "Max" does
// not select the row of "Maxwell".
func (p *Page) PetRow(name string) *Locator {
	return p.PetsTable.Locator("tr").Has("dl.dl-horizontal dd:first-of-type", name)
}

// PetRowByID returns a Locator for the pets table row of the pet with id.
func (p *Page) PetRowByID(id int) *Locator {
	return p.PetsTable.Locator(fmt.Sprintf(`tr[data-pet-id="%d"]`, id))
}

// petRow waits for the row of the pet named name. It returns an error wrapping ErrPetNotFound if there is none.
func (p *Page) petRow(name string) (*Locator, error) {
	row := p.PetRow(name).First()
	_, err := row.Element()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPetNotFound, name, err)
	}
	return row, nil
}

// VisitDatesForPet returns the visit dates listed for the pet named name in page order.
func (p *Page) VisitDatesForPet(name string) ([]string, error) {
	row, err := p.petRow(name)
	if err != nil {
		return nil, err
	}
	return row.Locator("table.table-condensed tbody tr td:first-child").AllTexts()
}

func (p *Page) ClickEditPet(name string) error {
	row, err := p.petRow(name)
	if err != nil {
		return err
	}
	return row.Locator("a").WithText("Edit Pet").ClickAndWaitNavigation()
}

func (p *Page) ClickAddVisit(name string) error {
	row, err := p.petRow(name)
	if err != nil {
		return err
	}
	return row.Locator("a").WithText("Add Visit").ClickAndWaitNavigation()
}

func (p *Page) IsSuccessMessageVisible() (bool, error) {
	return p.SuccessMessage.IsVisible()
}

func (p *Page) IsErrorMessageVisible() (bool, error) {
	return p.ErrorMessage.IsVisible()
}

func (p *Page) GetSuccessMessage() (string, error) {
	return p.SuccessMessage.Text()
}

func (p *Page) GetErrorMessage() (string, error) {
	return p.ErrorMessage.Text()
}

// ExpectVisible waits for l to be visible.
func ExpectVisible(l *Locator) error {
	err := l.WaitVisible()
	if err != nil {
		return &AssertionError{Check: l.String() + " visible", Expected: true, Actual: false, Err: err}
	}
	return nil
}

// ExpectText waits for the text of l to be expected.
func ExpectText(l *Locator, expected string) error {
	var actual string
	err := l.poll(func() (bool, error) {
		texts, err := l.First().AllTexts()
		if err != nil || len(texts) == 0 {
			return false, err
		}
		actual = texts[0]
		return actual == expected, nil
	})
	if err != nil {
		return &AssertionError{Check: l.String() + " text", Expected: expected, Actual: actual, Err: err}
	}
	return nil
}

// VerifyOwnerInformation checks that the Owner Information section is visible and shows expected.
func (p *Page) VerifyOwnerInformation(expected Owner) error {
	err := ExpectVisible(p.OwnerInformationHeading)
	if err != nil {
		return err
	}
	for _, check := range []struct {
		l        *Locator
		expected string
	}{
		{p.OwnerNameCell, expected.Name},
		{p.OwnerAddressCell, expected.Address},
		{p.OwnerCityCell, expected.City},
		{p.OwnerTelephoneCell, expected.Telephone},
	} {
		err := ExpectText(check.l, check.expected)
		if err != nil {
			return err
		}
	}
	return nil
}

// VerifyPetsAndVisitsSection checks that the Pets and Visits heading and table are visible.
func (p *Page) VerifyPetsAndVisitsSection() error {
	for _, l := range []*Locator{p.PetsAndVisitsHeading, p.PetsTable} {
		err := ExpectVisible(l)
		if err != nil {
			return err
		}
	}
	return nil
}

// VerifyPageLoaded checks that the Owner Information heading and both owner action links are visible.
func (p *Page) VerifyPageLoaded() error {
	for _, l := range []*Locator{p.OwnerInformationHeading, p.EditOwnerButton, p.AddNewPetButton} {
		err := ExpectVisible(l)
		if err != nil {
			return err
		}
	}
	return nil
}
