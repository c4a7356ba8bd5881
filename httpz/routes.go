package httpz

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/lib/bee"
	"github.com/jackc/petclinic-e2e/view"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// csrfTokenRegexp matches the per-request CSRF token input so it does not change the ETag.
var csrfTokenRegexp = regexp.MustCompile(`<input type="hidden" name="` + view.CSRFFieldName + `" value="[^"]*">`)

// NewHandler returns an http.Handler that serves the pet clinic fixture application.
func NewHandler(
	dbsession *db.Session,
	logger *zerolog.Logger,
	csrfKey []byte,
	secureCookies bool,
	cookieAuthenticationKey []byte,
	cookieEncryptionKey []byte,
) (http.Handler, error) {

	router := chi.NewRouter()

	env := &environment{
		dbsession:    dbsession,
		logger:       logger,
		secureCookie: securecookie.New(cookieAuthenticationKey, cookieEncryptionKey),
		flashCookieTemplate: &http.Cookie{
			Name:     "petclinic-flash",
			Path:     "/",
			Secure:   secureCookies,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}

	router.Use(middleware.Compress(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)

	router.Use(hlog.NewHandler(*logger))
	router.Use(hlog.RequestIDHandler("request_id", "x-request-id"))
	router.Use(hlog.MethodHandler("method"))
	router.Use(hlog.URLHandler("url"))
	router.Use(hlog.RemoteAddrHandler("remote_ip"))
	router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	}))

	router.Use(middleware.Recoverer)

	router.Use(setContextValue(ctxKeyEnvironment, env))

	CSRF := csrf.Protect(csrfKey, csrf.Path("/"), csrf.Secure(secureCookies), csrf.FieldName(view.CSRFFieldName))
	router.Use(CSRF)

	hb := &bee.HandlerBuilder[*environment]{
		CtxKeyEnv:        ctxKeyEnvironment,
		ErrorHandlers:    []bee.ErrorHandler{handleNotFound},
		ETagDigestFilter: csrfTokenRegexp,
	}

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/owners/1", http.StatusSeeOther)
	})

	router.Route("/owners/{ownerID}", func(router chi.Router) {
		router.Method(http.MethodGet, "/", hb.New(showOwner))
		router.Method(http.MethodGet, "/edit", hb.New(editOwnerForm))
		router.Method(http.MethodPost, "/edit", hb.New(updateOwner))
		router.Method(http.MethodGet, "/pets/new", hb.New(newPetForm))
		router.Method(http.MethodPost, "/pets/new", hb.New(createPet))
		router.Method(http.MethodGet, "/pets/{petID}/edit", hb.New(editPetForm))
		router.Method(http.MethodPost, "/pets/{petID}/edit", hb.New(updatePet))
		router.Method(http.MethodGet, "/pets/{petID}/visits/new", hb.New(newVisitForm))
		router.Method(http.MethodPost, "/pets/{petID}/visits/new", hb.New(createVisit))
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderNotFound(w, r, "Page not found")
	})

	return router, nil
}

// handleNotFound renders the not found page for missing owners and pets.
func handleNotFound(w http.ResponseWriter, r *http.Request, err error) (bool, error) {
	switch {
	case errors.Is(err, db.ErrOwnerNotFound):
		return true, renderNotFound(w, r, "Owner not found")
	case errors.Is(err, db.ErrPetNotFound):
		return true, renderNotFound(w, r, "Pet not found")
	}
	return false, nil
}

func renderNotFound(w http.ResponseWriter, r *http.Request, message string) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	return view.NotFound(message).Render(r.Context(), w)
}
