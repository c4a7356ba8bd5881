package httpz

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jackc/petclinic-e2e/view"
)

// setFlash stores flash in a cookie to be shown by the next page rendered for this client.
func setFlash(w http.ResponseWriter, env *environment, flash view.Flash) error {
	cookie := *env.flashCookieTemplate

	var err error
	cookie.Value, err = env.secureCookie.Encode(cookie.Name, flash)
	if err != nil {
		return err
	}

	http.SetCookie(w, &cookie)

	return nil
}

// takeFlash returns the flash stored in the request cookie and clears the cookie. A missing or undecodable cookie
// yields an empty Flash.
func takeFlash(w http.ResponseWriter, r *http.Request, env *environment) view.Flash {
	var flash view.Flash

	cookie, err := r.Cookie(env.flashCookieTemplate.Name)
	if err != nil {
		// Only expected error is http.ErrNoCookie.
		if !errors.Is(err, http.ErrNoCookie) {
			env.logger.Warn().Err(err).Msg("unexpected error getting flash cookie")
		}
		return flash
	}

	clearCookie := *env.flashCookieTemplate
	clearCookie.Expires = time.Unix(0, 0)
	clearCookie.MaxAge = -1
	http.SetCookie(w, &clearCookie)

	err = env.secureCookie.Decode(env.flashCookieTemplate.Name, cookie.Value, &flash)
	if err != nil {
		var secureCookieError securecookie.Error
		if errors.As(err, &secureCookieError) && secureCookieError.IsDecode() {
			env.logger.Warn().Err(err).Msg("error decoding flash cookie")
		}
		return view.Flash{}
	}

	return flash
}
