package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	v := r.Header.Get("Authorization")
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// session resolves the caller's session or returns auth.ErrNoSession.
func (h *Handler) session(r *http.Request, token string) (*auth.Session, error) {
	if token == "" {
		return nil, auth.ErrNoSession
	}
	return h.auth.GetSession(r.Context(), token)
}

type credentials struct {
	email     string
	password  string
	firstName string
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var (
			v   string
			err error
		)
		switch key {
		case "email":
			v, err = optStr(d)
			c.email = v
		case "password":
			v, err = optStr(d)
			c.password = v
		case "first_name", "firstName":
			v, err = optStr(d)
			c.firstName = v
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

// signUp serves POST /api/auth/signup.
func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.auth.SignUp(r.Context(), c.email, c.password, auth.Profile{FirstName: c.firstName})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeUser(e, *u)
	})
}

// signIn serves POST /api/auth/login.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.SignIn(r.Context(), c.email, c.password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSession(w, r, sess, true)
}

// signOut serves POST /api/auth/logout.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.fail(w, r, auth.ErrNoSession)
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getSession serves GET /api/auth/session.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r, bearerToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSession(w, r, sess, false)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, sess *auth.Session, withToken bool) {
	isAdmin, err := h.auth.IsAdmin(r.Context(), sess.User.ID)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "check role"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		if withToken {
			e.FieldStart("token")
			e.Str(sess.Token)
		}
		e.FieldStart("expires_at")
		e.Str(sess.ExpiresAt.UTC().Format(time.RFC3339))
		e.FieldStart("user")
		encodeUser(e, sess.User)
		e.FieldStart("is_admin")
		e.Bool(isAdmin)
		e.ObjEnd()
	})
}

func encodeUser(e *jx.Encoder, u auth.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("first_name")
	e.Str(u.FirstName)
	e.ObjEnd()
}
