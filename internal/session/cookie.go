package session

import (
	"net/http"
	"net/url"
	"time"
)

const cookiePrefix = "rojgar_"

// CookieStore keeps session values in cookies for one request/response pair.
// Values set during the request are visible to later Gets on the same store.
type CookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	secure  bool
	maxAge  time.Duration
	pending map[string]string
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool, maxAge time.Duration) *CookieStore {
	return &CookieStore{w: w, r: r, secure: secure, maxAge: maxAge, pending: map[string]string{}}
}

func (c *CookieStore) Get(key string) string {
	if v, ok := c.pending[key]; ok {
		return v
	}
	ck, err := c.r.Cookie(cookiePrefix + key)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return ""
	}
	return v
}

func (c *CookieStore) Set(key, value string) error {
	c.pending[key] = value
	http.SetCookie(c.w, &http.Cookie{
		Name:     cookiePrefix + key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieStore) Clear() error {
	for _, key := range []string{KeyAuthorization, KeyUserType} {
		c.pending[key] = ""
		http.SetCookie(c.w, &http.Cookie{
			Name:     cookiePrefix + key,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return nil
}
