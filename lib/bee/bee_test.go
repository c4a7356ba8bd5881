package bee_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/petclinic-e2e/lib/bee"
	"github.com/stretchr/testify/require"
)

func TestParseParamsQueryParameters(t *testing.T) {
	queryArgs := url.Values{}
	queryArgs.Add("a", "1")
	queryArgs.Add("b", "2")
	queryArgs.Add("c[]", "3")
	queryArgs.Add("c[]", "4")
	queryArgs.Add("d[e]", "5")
	queryArgs.Add("d[f]", "6")
	queryArgs.Add("g[h][i]", "7")
	queryArgs.Add("g[h][j]", "8")
	queryArgs.Add("k[l][m][]", "9")
	queryArgs.Add("k[l][m][]", "10")
	queryArgs.Add("k[l][n][]", "11")
	queryArgs.Add("k[l][n][]", "12")

	r := httptest.NewRequest("GET", fmt.Sprintf("/somewhere?%s", queryArgs.Encode()), nil)

	params, err := bee.ParseParams(r)
	require.NoError(t, err)

	require.Equal(t,
		map[string]any{
			"a": "1",
			"b": "2",
			"c": []string{"3", "4"},
			"d": map[string]any{"e": "5", "f": "6"},
			"g": map[string]any{"h": map[string]any{"i": "7", "j": "8"}},
			"k": map[string]any{
				"l": map[string]any{
					"m": []string{"9", "10"},
					"n": []string{"11", "12"},
				},
			},
		},
		params,
	)
}

func TestParseParamsFormURLEncoded(t *testing.T) {
	queryArgs := url.Values{}
	queryArgs.Add("a", "1")
	queryArgs.Add("b", "2")
	queryArgs.Add("c[]", "3")
	queryArgs.Add("c[]", "4")
	queryArgs.Add("d[e]", "5")
	queryArgs.Add("d[f]", "6")
	queryArgs.Add("g[h][i]", "7")
	queryArgs.Add("g[h][j]", "8")
	queryArgs.Add("k[l][m][]", "9")
	queryArgs.Add("k[l][m][]", "10")
	queryArgs.Add("k[l][n][]", "11")
	queryArgs.Add("k[l][n][]", "12")

	r := httptest.NewRequest("POST", "/somewhere", strings.NewReader(queryArgs.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	params, err := bee.ParseParams(r)
	require.NoError(t, err)

	require.Equal(t,
		map[string]any{
			"a": "1",
			"b": "2",
			"c": []string{"3", "4"},
			"d": map[string]any{"e": "5", "f": "6"},
			"g": map[string]any{"h": map[string]any{"i": "7", "j": "8"}},
			"k": map[string]any{
				"l": map[string]any{
					"m": []string{"9", "10"},
					"n": []string{"11", "12"},
				},
			},
		},
		params,
	)
}

func TestParseParamsApplicationJSON(t *testing.T) {
	postData := map[string]any{"a": "1", "b": "2"}
	postBody, err := json.Marshal(postData)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/somewhere", bytes.NewReader(postBody))
	r.Header.Set("Content-Type", "application/json")

	params, err := bee.ParseParams(r)
	require.NoError(t, err)

	require.Equal(t, postData, params)
}

func TestHandlerBuilderHandlerSetsEtag(t *testing.T) {
	hb := &bee.HandlerBuilder[struct{}]{}
	handler := hb.New(func(ctx context.Context, w http.ResponseWriter, r *http.Request, _ struct{}, params map[string]any) error {
		w.Write([]byte("Hello, world"))
		return nil
	})

	r := httptest.NewRequest("GET", "/", nil)
	responseRecorder := httptest.NewRecorder()
	handler.ServeHTTP(responseRecorder, r)

	require.Equal(t, "Hello, world", responseRecorder.Body.String())
	require.Equal(t, `W/"SufDtqwL7_Zx76jPVzhhUcBuWMpTp42D82EHMWzsEl8="`, responseRecorder.Header().Get("ETag"))
}

func TestHandlerBuilderErrorHandlerReplacesResponse(t *testing.T) {
	errMissing := errors.New("missing")
	hb := &bee.HandlerBuilder[struct{}]{
		ErrorHandlers: []bee.ErrorHandler{
			func(w http.ResponseWriter, r *http.Request, err error) (bool, error) {
				if !errors.Is(err, errMissing) {
					return false, nil
				}
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("not here"))
				return true, nil
			},
		},
	}
	handler := hb.New(func(ctx context.Context, w http.ResponseWriter, r *http.Request, _ struct{}, params map[string]any) error {
		w.Write([]byte("partial output"))
		return errMissing
	})

	r := httptest.NewRequest("GET", "/", nil)
	responseRecorder := httptest.NewRecorder()
	handler.ServeHTTP(responseRecorder, r)

	require.Equal(t, http.StatusNotFound, responseRecorder.Code)
	require.Equal(t, "not here", responseRecorder.Body.String())
	require.Empty(t, responseRecorder.Header().Get("ETag"))
}

func TestHandlerBuilderUnhandledError(t *testing.T) {
	hb := &bee.HandlerBuilder[struct{}]{}
	handler := hb.New(func(ctx context.Context, w http.ResponseWriter, r *http.Request, _ struct{}, params map[string]any) error {
		return errors.New("boom")
	})

	r := httptest.NewRequest("GET", "/", nil)
	responseRecorder := httptest.NewRecorder()
	handler.ServeHTTP(responseRecorder, r)

	require.Equal(t, http.StatusInternalServerError, responseRecorder.Code)
}

func TestHandlerBuilderPassesEnvAndRouteParams(t *testing.T) {
	type ctxKey struct{}
	hb := &bee.HandlerBuilder[string]{CtxKeyEnv: ctxKey{}}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, "env")))
		})
	})
	router.Method(http.MethodGet, "/owners/{ownerID}", hb.New(func(ctx context.Context, w http.ResponseWriter, r *http.Request, env string, params map[string]any) error {
		fmt.Fprintf(w, "%s %s %s", env, params["ownerID"], params["sortOrder"])
		return nil
	}))

	r := httptest.NewRequest("GET", "/owners/7?sortOrder=desc", nil)
	responseRecorder := httptest.NewRecorder()
	router.ServeHTTP(responseRecorder, r)

	require.Equal(t, "env 7 desc", responseRecorder.Body.String())
}

func TestHandlerBuilderNotModified(t *testing.T) {
	hb := &bee.HandlerBuilder[struct{}]{}
	handler := hb.New(func(ctx context.Context, w http.ResponseWriter, r *http.Request, _ struct{}, params map[string]any) error {
		w.Write([]byte("Hello, world"))
		return nil
	})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("If-None-Match", `W/"SufDtqwL7_Zx76jPVzhhUcBuWMpTp42D82EHMWzsEl8="`)
	responseRecorder := httptest.NewRecorder()
	handler.ServeHTTP(responseRecorder, r)

	require.Equal(t, http.StatusNotModified, responseRecorder.Code)
	require.Empty(t, responseRecorder.Body.String())
}

func TestParseParamsRejectsMisplacedArrayPart(t *testing.T) {
	r := httptest.NewRequest("GET", "/somewhere?a[][b]=1", nil)

	_, err := bee.ParseParams(r)
	require.Error(t, err)
}

func TestParseParamsRouteParamsTakePrecedence(t *testing.T) {
	form := url.Values{}
	form.Add("ownerID", "3")
	form.Add("firstName", "George")

	r := httptest.NewRequest("POST", "/owners/1/edit?ownerID=2", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	routeContext := chi.NewRouteContext()
	routeContext.URLParams.Add("ownerID", "1")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeContext))

	params, err := bee.ParseParams(r)
	require.NoError(t, err)
	require.Equal(t, "1", params["ownerID"])
	require.Equal(t, "George", params["firstName"])
}
