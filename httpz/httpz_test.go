package httpz_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"testing"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/httpz"
	"github.com/jackc/petclinic-e2e/test/testutil"
	"github.com/jackc/testdb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var TestDBManager *testdb.Manager

func TestMain(m *testing.M) {
	if testPGDatabase := os.Getenv("TEST_PGDATABASE"); testPGDatabase != "" {
		os.Setenv("PGDATABASE", testPGDatabase)
	}

	TestDBManager = testutil.InitTestDBManager(m)
	os.Exit(m.Run())
}

type serverInstanceT struct {
	Server *httptest.Server
	DB     *testdb.DB
	Client *http.Client
}

func startServer(t *testing.T) *serverInstanceT {
	ctx := context.Background()
	tdb := testutil.AcquireDB(t, ctx, TestDBManager)

	logger := zerolog.New(zerolog.NewTestWriter(t))

	handler, err := httpz.NewHandler(
		db.NewSession(tdb.PoolConnect(t, ctx)),
		&logger,
		make([]byte, 32),
		false,
		make([]byte, 64),
		make([]byte, 32),
	)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &serverInstanceT{
		Server: server,
		DB:     tdb,
		Client: &http.Client{Jar: jar},
	}
}

func (si *serverInstanceT) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	response, err := si.Client.Get(si.Server.URL + path)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response, string(body)
}

func (si *serverInstanceT) post(t *testing.T, path string, values url.Values) (*http.Response, string) {
	t.Helper()
	response, err := si.Client.PostForm(si.Server.URL+path, values)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response, string(body)
}

var csrfTokenRegexp = regexp.MustCompile(`name="csrf_token" value="([^"]*)"`)

// submitForm loads the form at path and posts values with its CSRF token.
func (si *serverInstanceT) submitForm(t *testing.T, path string, values url.Values) (*http.Response, string) {
	t.Helper()
	response, body := si.get(t, path)
	require.Equal(t, http.StatusOK, response.StatusCode)

	match := csrfTokenRegexp.FindStringSubmatch(body)
	require.NotNil(t, match, "csrf token not found")
	values.Set("csrf_token", match[1])

	return si.post(t, path, values)
}

func TestShowOwner(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	response, body := si.get(t, "/owners/1")
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Contains(t, body, "<b>George Franklin</b>")
	require.Contains(t, body, `<div id="success-message" class="alert alert-success" role="alert" hidden></div>`)
	require.Contains(t, body, `<div id="error-message" class="alert alert-danger" role="alert" hidden></div>`)
	require.Contains(t, body, `title="Sort Ascending" class="text-primary"`)
	require.Contains(t, body, `title="Sort Descending" class="text-secondary"`)
	require.Contains(t, body, `<tr data-pet-id="3">`)
	require.NotEmpty(t, response.Header.Get("ETag"))
}

func TestShowOwnerSortOrder(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	_, body := si.get(t, "/owners/1?sortOrder=desc")
	require.Contains(t, body, `title="Sort Descending" class="text-primary"`)
	require.Regexp(t, `(?s)2013-01-04.*2013-01-01.*2012-11-04`, body)

	_, body = si.get(t, "/owners/1?sortOrder=bogus")
	require.Contains(t, body, `title="Sort Ascending" class="text-primary"`)
	require.Regexp(t, `(?s)2012-11-04.*2013-01-01.*2013-01-04`, body)
}

func TestShowOwnerNotModified(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	response, _ := si.get(t, "/owners/1")
	etag := response.Header.Get("ETag")

	request, err := http.NewRequest(http.MethodGet, si.Server.URL+"/owners/1", nil)
	require.NoError(t, err)
	request.Header.Set("If-None-Match", etag)
	response, err = si.Client.Do(request)
	require.NoError(t, err)
	response.Body.Close()
	require.Equal(t, http.StatusNotModified, response.StatusCode)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	for _, tt := range []struct {
		path    string
		message string
	}{
		{"/owners/99999", "Owner not found"},
		{"/owners/abc", "Owner not found"},
		{"/owners/1/pets/4/edit", "Pet not found"},
		{"/owners/1/pets/99999/visits/new", "Pet not found"},
		{"/vets", "Page not found"},
	} {
		response, body := si.get(t, tt.path)
		require.Equalf(t, http.StatusNotFound, response.StatusCode, "%s", tt.path)
		require.Containsf(t, body, "<h2>"+tt.message+"</h2>", "%s", tt.path)
	}
}

func TestRootRedirects(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	response, _ := si.get(t, "/")
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "/owners/1", response.Request.URL.Path)
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	t.Parallel()

	si := startServer(t)
	response, _ := si.post(t, "/owners/1/edit", url.Values{"firstName": {"Mallory"}})
	require.Equal(t, http.StatusForbidden, response.StatusCode)
}

func ownerValues() url.Values {
	return url.Values{
		"id":        {"1"},
		"firstName": {"George"},
		"lastName":  {"Franklin"},
		"address":   {"638 Cardinal Ave."},
		"city":      {"Madison"},
		"telephone": {"6085551023"},
	}
}

func TestUpdateOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	si := startServer(t)

	response, body := si.submitForm(t, "/owners/1/edit", ownerValues())
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "/owners/1", response.Request.URL.Path)
	require.Contains(t, body, `<div id="success-message" class="alert alert-success" role="alert">Owner Values Updated</div>`)

	owner, err := db.GetOwner(ctx, si.DB.Connect(t, ctx), 1)
	require.NoError(t, err)
	require.Equal(t, "638 Cardinal Ave.", owner.Address)

	// The flash is cleared once shown.
	_, body = si.get(t, "/owners/1")
	require.NotContains(t, body, "Owner Values Updated")
}

func TestUpdateOwnerInvalid(t *testing.T) {
	t.Parallel()

	si := startServer(t)

	values := ownerValues()
	values.Set("telephone", "608555102")
	values.Set("city", "")
	response, body := si.submitForm(t, "/owners/1/edit", values)
	require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
	require.Contains(t, body, "Telephone must be a 10-digit number")
	require.Contains(t, body, "is required")
}

func TestUpdateOwnerIDMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	si := startServer(t)

	values := ownerValues()
	values.Set("id", "2")
	response, body := si.submitForm(t, "/owners/1/edit", values)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "/owners/1/edit", response.Request.URL.Path)
	require.Contains(t, body, `<div id="error-message" class="alert alert-danger" role="alert">Owner ID mismatch. Please try again.</div>`)

	owner, err := db.GetOwner(ctx, si.DB.Connect(t, ctx), 1)
	require.NoError(t, err)
	require.Equal(t, "110 W. Liberty St.", owner.Address)
}

func TestCreatePet(t *testing.T) {
	t.Parallel()

	si := startServer(t)

	response, body := si.submitForm(t, "/owners/1/pets/new", url.Values{
		"name":      {"Rosy"},
		"birthDate": {"2019-03-14"},
		"type":      {"hamster"},
	})
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Contains(t, body, ">New Pet has been Added</div>")
	require.Contains(t, body, "<dd>Rosy</dd>")
}

func TestCreatePetInvalid(t *testing.T) {
	t.Parallel()

	si := startServer(t)

	response, body := si.submitForm(t, "/owners/1/pets/new", url.Values{
		"name":      {"LEO"},
		"birthDate": {"2999-01-01"},
		"type":      {"cat"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
	require.Contains(t, body, "is already in use")
	require.Contains(t, body, "must not be in the future")
}

func TestUpdatePet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	si := startServer(t)

	response, body := si.submitForm(t, "/owners/1/pets/2/edit", url.Values{
		"name":      {"Maximus"},
		"birthDate": {"2012-08-06"},
		"type":      {"dog"},
	})
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Contains(t, body, ">Pet details has been edited</div>")

	pet, err := db.GetPet(ctx, si.DB.Connect(t, ctx), 1, 2)
	require.NoError(t, err)
	require.Equal(t, "Maximus", pet.Name)
}

func TestCreateVisit(t *testing.T) {
	t.Parallel()

	si := startServer(t)

	response, body := si.submitForm(t, "/owners/1/pets/3/visits/new", url.Values{
		"date":        {"2016-01-02"},
		"description": {"beak trim"},
	})
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Contains(t, body, ">Your visit has been booked</div>")
	require.Contains(t, body, "<td>beak trim</td>")
}

func TestPetUnknownTypeIsFormError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	si := startServer(t)

	for _, path := range []string{"/owners/1/pets/new", "/owners/1/pets/2/edit"} {
		response, body := si.submitForm(t, path, url.Values{
			"name":      {"Rosy"},
			"birthDate": {"2019-03-14"},
			"type":      {"unicorn"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode, path)
		require.Contains(t, body, "is not a valid choice", path)
	}

	pet, err := db.GetPet(ctx, si.DB.Connect(t, ctx), 1, 2)
	require.NoError(t, err)
	require.Equal(t, "Max", pet.Name)
	require.Equal(t, "dog", pet.Type)
}

func TestOwnerIDComesFromPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	si := startServer(t)

	_, body := si.get(t, "/owners/1?ownerID=2")
	require.Contains(t, body, "<b>George Franklin</b>")

	values := ownerValues()
	values.Set("ownerID", "2")
	response, _ := si.submitForm(t, "/owners/1/edit", values)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "/owners/1", response.Request.URL.Path)

	owner, err := db.GetOwner(ctx, si.DB.Connect(t, ctx), 2)
	require.NoError(t, err)
	require.Equal(t, "Betty", owner.FirstName)
	require.Equal(t, "Sun Prairie", owner.City)

	owner, err = db.GetOwner(ctx, si.DB.Connect(t, ctx), 1)
	require.NoError(t, err)
	require.Equal(t, "638 Cardinal Ave.", owner.Address)
}
