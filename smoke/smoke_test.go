package smoke_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/ownerdetails"
	"github.com/jackc/petclinic-e2e/smoke"
	"github.com/jackc/petclinic-e2e/test/testbrowser"
	"github.com/jackc/petclinic-e2e/test/testutil"
	"github.com/jackc/petclinic-e2e/view"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var TestBrowserManager *testbrowser.Manager

func TestMain(m *testing.M) {
	var err error
	TestBrowserManager, err = testbrowser.NewManager(testbrowser.ManagerConfig{})
	if err != nil {
		fmt.Println("Failed to initialize TestBrowserManager", err)
		os.Exit(1)
	}

	code := m.Run()
	TestBrowserManager.Close()
	os.Exit(code)
}

func TestScenarioNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range smoke.Scenarios() {
		require.NotEmpty(t, s.Name)
		require.NotNil(t, s.Run)
		require.Falsef(t, seen[s.Name], "duplicate scenario %q", s.Name)
		seen[s.Name] = true
	}
}

func TestFailed(t *testing.T) {
	boom := errors.New("boom")
	results := []smoke.Result{
		{Scenario: "a"},
		{Scenario: "b", Err: boom},
		{Scenario: "c"},
	}
	require.Equal(t, []smoke.Result{{Scenario: "b", Err: boom}}, smoke.Failed(results))
	require.Empty(t, smoke.Failed(results[:1]))
}

func newRunner(t *testing.T) (*smoke.Runner, context.Context) {
	server := httptest.NewServer(testutil.NewStaticHandler(view.Flash{}))
	t.Cleanup(server.Close)

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	runner := &smoke.Runner{
		Browser:     TestBrowserManager.Acquire(t).Rod(),
		BaseURL:     server.URL,
		OwnerID:     1,
		Concurrency: 4,
		Timeout:     2 * time.Second,
	}
	return runner, ctx
}

func TestRunnerAllScenariosPass(t *testing.T) {
	runner, ctx := newRunner(t)

	scenarios := smoke.Scenarios()
	results := runner.Run(ctx, scenarios)
	require.Len(t, results, len(scenarios))
	for i, r := range results {
		require.Equal(t, scenarios[i].Name, r.Scenario)
		require.NoErrorf(t, r.Err, "scenario %q", r.Scenario)
	}
}

func TestRunnerReportsFailures(t *testing.T) {
	runner, ctx := newRunner(t)

	scenarios := []smoke.Scenario{
		{
			Name: "wrong owner",
			Run: func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
				err := p.Goto(ownerID)
				if err != nil {
					return err
				}
				return p.VerifyOwnerInformation(ownerdetails.Owner{Name: "Betty Davis"})
			},
		},
		{
			Name: "panics",
			Run: func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
				panic("unexpected")
			},
		},
		{
			Name: "passes",
			Run: func(ctx context.Context, p *ownerdetails.Page, ownerID int) error {
				return p.Goto(ownerID)
			},
		},
	}

	results := runner.Run(ctx, scenarios)
	failed := smoke.Failed(results)
	require.Len(t, failed, 2)

	var assertionErr *ownerdetails.AssertionError
	require.ErrorAs(t, results[0].Err, &assertionErr)
	require.ErrorContains(t, results[1].Err, "panic: unexpected")
	require.NoError(t, results[2].Err)
}
