package smoke

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/petclinic-e2e/ownerdetails"
)

// Scenario is one independent check of the owner details page. Run starts from a blank page.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, p *ownerdetails.Page, ownerID int) error
}

// Scenarios returns the owner details scenarios. None of them change application data so they are safe to run against
// any deployment. The browser test suite runs the same list.
func Scenarios() []Scenario {
	return []Scenario{
		{"owner information displayed", ownerInformationDisplayed},
		{"owner information table structure", ownerInformationTableStructure},
		{"edit owner navigation", linkNavigation((*ownerdetails.Page).ClickEditOwner, "/edit")},
		{"add new pet navigation", linkNavigation((*ownerdetails.Page).ClickAddNewPet, "/pets/new")},
		{"pets and visits section", petsAndVisitsSection},
		{"pet information", whenPresent("dl.dl-horizontal", expectFirstVisible)},
		{"visit table headers", whenPresent("table.table-condensed", expectVisitHeaders)},
		{"sort controls displayed", sortControlsDisplayed},
		{"sort ascending", clickSort((*ownerdetails.Page).ClickSortAscending, ownerdetails.SortAscending)},
		{"sort descending", clickSort((*ownerdetails.Page).ClickSortDescending, ownerdetails.SortDescending)},
		{"sort defaults to ascending", sortDefaultsToAscending},
		{"sort toggle", sortToggle},
		{"sort order from direct url", sortOrderFromDirectURL},
		{"edit pet links", whenLinkPresent("Edit Pet")},
		{"add visit links", whenLinkPresent("Add Visit")},
		{"invalid owner id", invalidOwnerID},
		{"mobile viewport", viewport(375, 667)},
		{"tablet viewport", viewport(768, 1024)},
		{"page load time", pageLoadTime},
		{"heading hierarchy", headingHierarchy},
		{"table has header cells", tableHasHeaderCells},
		{"links have accessible text", linksHaveAccessibleText},
		{"message containers in dom", messageContainersInDOM},
		{"consistent data across reloads", consistentDataAcrossReloads},
	}
}

func expectAll(checks ...func() error) error {
	for _, check := range checks {
		err := check()
		if err != nil {
			return err
		}
	}
	return nil
}

func expectVisible(l *ownerdetails.Locator) func() error {
	return func() error { return ownerdetails.ExpectVisible(l) }
}

func expectTrue(check string, fn func() (bool, error)) func() error {
	return func() error {
		ok, err := fn()
		if err != nil {
			return err
		}
		if !ok {
			return &ownerdetails.AssertionError{Check: check, Expected: true, Actual: false}
		}
		return nil
	}
}

func ownerInformationDisplayed(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	err = p.VerifyPageLoaded()
	if err != nil {
		return err
	}

	for _, read := range []struct {
		name string
		fn   func() (string, error)
	}{
		{"owner name", p.OwnerName},
		{"owner address", p.OwnerAddress},
		{"owner city", p.OwnerCity},
		{"owner telephone", p.OwnerTelephone},
	} {
		s, err := read.fn()
		if err != nil {
			return err
		}
		if s == "" {
			return &ownerdetails.AssertionError{Check: read.name, Expected: "non-empty text", Actual: s}
		}
	}
	return nil
}

func ownerInformationTableStructure(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}

	table := p.Locator("table.table-striped").First()
	checks := []func() error{expectVisible(table)}
	for _, header := range []string{"Name", "Address", "City", "Telephone"} {
		checks = append(checks, expectVisible(table.Locator("th").WithText(header)))
	}
	return expectAll(checks...)
}

func linkNavigation(click func(*ownerdetails.Page) error, suffix string) func(context.Context, *ownerdetails.Page, int) error {
	return func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
		err := p.Goto(ownerID)
		if err != nil {
			return err
		}
		err = click(p)
		if err != nil {
			return err
		}
		return p.WaitURL(regexp.MustCompile(fmt.Sprintf(`/owners/%d%s`, ownerID, regexp.QuoteMeta(suffix))))
	}
}

func petsAndVisitsSection(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	return p.VerifyPetsAndVisitsSection()
}

// whenPresent runs check on the elements matching selector only if the owner has any. Owners without pets or visits
// pass.
func whenPresent(selector string, check func(*ownerdetails.Locator) error) func(context.Context, *ownerdetails.Page, int) error {
	return func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
		err := p.Goto(ownerID)
		if err != nil {
			return err
		}
		err = ownerdetails.ExpectVisible(p.PetsTable)
		if err != nil {
			return err
		}
		return checkIfPresent(p.Locator(selector), check)
	}
}

func whenLinkPresent(name string) func(context.Context, *ownerdetails.Page, int) error {
	return func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
		err := p.Goto(ownerID)
		if err != nil {
			return err
		}
		return checkIfPresent(p.Link(name), expectFirstVisible)
	}
}

func checkIfPresent(l *ownerdetails.Locator, check func(*ownerdetails.Locator) error) error {
	n, err := l.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return check(l)
}

func expectFirstVisible(l *ownerdetails.Locator) error {
	return ownerdetails.ExpectVisible(l.First())
}

func expectVisitHeaders(l *ownerdetails.Locator) error {
	headers := l.First().Locator("th")
	return expectAll(
		expectVisible(headers.WithText("Visit Date")),
		expectVisible(headers.WithText("Description")),
	)
}

func sortControlsDisplayed(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	return expectAll(expectVisible(p.SortAscendingLink), expectVisible(p.SortDescendingLink))
}

func isSortActive(p *ownerdetails.Page, order ownerdetails.SortOrder) func() (bool, error) {
	if order == ownerdetails.SortDescending {
		return p.IsSortDescendingActive
	}
	return p.IsSortAscendingActive
}

func clickSort(click func(*ownerdetails.Page) error, order ownerdetails.SortOrder) func(context.Context, *ownerdetails.Page, int) error {
	return func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
		err := p.Goto(ownerID)
		if err != nil {
			return err
		}
		err = click(p)
		if err != nil {
			return err
		}
		return expectAll(
			func() error { return p.WaitURL(regexp.MustCompile(`sortOrder=` + order.String())) },
			expectTrue("sort "+order.String()+" active", isSortActive(p, order)),
		)
	}
}

func sortDefaultsToAscending(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	return expectTrue("sort asc active", p.IsSortAscendingActive)()
}

func sortToggle(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	return expectAll(
		p.ClickSortDescending,
		func() error { return p.WaitURL(regexp.MustCompile(`sortOrder=desc`)) },
		p.ClickSortAscending,
		func() error { return p.WaitURL(regexp.MustCompile(`sortOrder=asc`)) },
		expectTrue("sort asc active", p.IsSortAscendingActive),
	)
}

func sortOrderFromDirectURL(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.GotoWithSortOrder(ownerID, ownerdetails.SortDescending)
	if err != nil {
		return err
	}
	return expectAll(
		func() error { return p.WaitURL(regexp.MustCompile(`sortOrder=desc`)) },
		expectTrue("sort desc active", p.IsSortDescendingActive),
	)
}

// invalidOwnerID only checks that the page settles on some URL. What a deployment shows for a missing owner is not
// fixed.
func invalidOwnerID(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(99999)
	if err != nil {
		return err
	}
	err = p.WaitNetworkIdle()
	if err != nil {
		return err
	}
	u, err := p.URL()
	if err != nil {
		return err
	}
	if u == "" {
		return &ownerdetails.AssertionError{Check: "page URL", Expected: "non-empty URL", Actual: u}
	}
	return nil
}

func viewport(width, height int) func(context.Context, *ownerdetails.Page, int) error {
	return func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
		err := p.SetViewport(width, height)
		if err != nil {
			return err
		}
		err = p.Goto(ownerID)
		if err != nil {
			return err
		}
		return expectAll(
			expectVisible(p.OwnerInformationHeading),
			expectVisible(p.PetsAndVisitsHeading),
			expectVisible(p.EditOwnerButton),
			expectVisible(p.AddNewPetButton),
		)
	}
}

const maxLoadTime = 3 * time.Second

func pageLoadTime(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	start := time.Now()
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	err = p.VerifyPageLoaded()
	if err != nil {
		return err
	}
	if d := time.Since(start); d >= maxLoadTime {
		return &ownerdetails.AssertionError{Check: "page load time", Expected: "< " + maxLoadTime.String(), Actual: d}
	}
	return nil
}

func headingHierarchy(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	err = p.VerifyPageLoaded()
	if err != nil {
		return err
	}
	n, err := p.Locator("h2").Count()
	if err != nil {
		return err
	}
	if n < 2 {
		return &ownerdetails.AssertionError{Check: "h2 count", Expected: ">= 2", Actual: n}
	}
	return nil
}

func tableHasHeaderCells(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	table := p.Locator("table").First()
	err = ownerdetails.ExpectVisible(table)
	if err != nil {
		return err
	}
	n, err := table.Locator("th").Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ownerdetails.AssertionError{Check: "first table th count", Expected: "> 0", Actual: n}
	}
	return nil
}

func linksHaveAccessibleText(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	return expectAll(
		func() error { return ownerdetails.ExpectText(p.EditOwnerButton, "Edit Owner") },
		func() error { return ownerdetails.ExpectText(p.AddNewPetButton, "Add New Pet") },
	)
}

func messageContainersInDOM(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	err = p.VerifyPageLoaded()
	if err != nil {
		return err
	}
	for _, l := range []*ownerdetails.Locator{p.SuccessMessage, p.ErrorMessage} {
		n, err := l.Count()
		if err != nil {
			return err
		}
		if n != 1 {
			return &ownerdetails.AssertionError{Check: l.String() + " count", Expected: 1, Actual: n}
		}
	}
	return nil
}

func consistentDataAcrossReloads(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
	err := p.Goto(ownerID)
	if err != nil {
		return err
	}
	before, err := p.OwnerSummary()
	if err != nil {
		return err
	}
	err = p.Reload()
	if err != nil {
		return err
	}
	after, err := p.OwnerSummary()
	if err != nil {
		return err
	}
	if before != after {
		return &ownerdetails.AssertionError{Check: "owner after reload", Expected: before, Actual: after}
	}
	return nil
}
