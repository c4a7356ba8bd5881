package browser_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/httpz"
	"github.com/jackc/petclinic-e2e/ownerdetails"
	"github.com/jackc/petclinic-e2e/test/testbrowser"
	"github.com/jackc/petclinic-e2e/test/testutil"
	"github.com/jackc/testdb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var TestDBManager *testdb.Manager
var TestBrowserManager *testbrowser.Manager

// externalURL is the application under test when PETCLINIC_URL is set. Otherwise each test starts its own fixture
// server.
var externalURL string

func TestMain(m *testing.M) {
	if testPGDatabase := os.Getenv("TEST_PGDATABASE"); testPGDatabase != "" {
		err := os.Setenv("PGDATABASE", testPGDatabase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set PGDATABASE: %v", err)
			os.Exit(1)
		}
	}

	maxConcurrent := 1
	if n, err := strconv.ParseInt(os.Getenv("MAX_CONCURRENT_BROWSER_TESTS"), 10, 32); err == nil {
		maxConcurrent = int(n)
	}
	if maxConcurrent < 1 {
		fmt.Println("MAX_CONCURRENT_BROWSER_TESTS must be greater than 0")
		os.Exit(1)
	}

	externalURL = strings.TrimSuffix(os.Getenv("PETCLINIC_URL"), "/")
	if externalURL == "" {
		TestDBManager = testutil.InitTestDBManager(m)
	}

	var err error
	TestBrowserManager, err = testbrowser.NewManager(testbrowser.ManagerConfig{MaxConcurrent: maxConcurrent})
	if err != nil {
		fmt.Println("Failed to initialize TestBrowserManager", err)
		os.Exit(1)
	}

	code := m.Run()
	TestBrowserManager.Close()
	os.Exit(code)
}

type serverInstanceT struct {
	URL string

	// Server and DB are nil when testing an external application.
	Server *httptest.Server
	DB     *testdb.DB
}

// startServer returns the application under test. Scenarios that only read the seeded owner data run against
// PETCLINIC_URL if it is set.
func startServer(t *testing.T) *serverInstanceT {
	if externalURL != "" {
		return &serverInstanceT{URL: externalURL}
	}
	return startFixtureServer(t)
}

// startFixtureServer starts the fixture application on a fresh copy of the seed data. Scenarios that change data or
// depend on fixture specific behavior use it directly and are skipped when PETCLINIC_URL is set.
func startFixtureServer(t *testing.T) *serverInstanceT {
	if externalURL != "" {
		t.Skip("scenario requires the fixture application")
	}

	ctx := context.Background()
	tdb := testutil.AcquireDB(t, ctx, TestDBManager)

	logWriter := zerolog.ConsoleWriter{Out: os.Stdout}
	logger := zerolog.New(logWriter).With().Timestamp().Logger()

	dbpool := tdb.PoolConnect(t, ctx)
	dbsess := db.NewSession(dbpool)
	csrfKey := make([]byte, 32)
	cookieAuthenticationKey := make([]byte, 64)
	cookieEncryptionKey := make([]byte, 32)

	handler, err := httpz.NewHandler(
		dbsess,
		&logger,
		csrfKey,
		false,
		cookieAuthenticationKey,
		cookieEncryptionKey,
	)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})

	instance := &serverInstanceT{
		URL:    server.URL,
		Server: server,
		DB:     tdb,
	}

	return instance
}

// openOwnerDetails acquires a browser page for t and binds an owner details page object to it.
func openOwnerDetails(t *testing.T, instance *serverInstanceT) (*testbrowser.Page, *ownerdetails.Page) {
	page := TestBrowserManager.Acquire(t).Page()
	return page, ownerdetails.New(page.Page, instance.URL)
}
