// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/courses/internal/htmx"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"codeberg.org/oliverandrich/courses/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(testutil.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), `name="email"`)
	assert.Nil(t, app.responseCookie(rec), "anonymous page views must not set a session cookie")
}

func TestSubmitEmail(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(testutil.NewRequest(http.MethodPost, "/", emailForm(" User@Example.com ")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Success! Check your email for verification from noreply@example.com")
	require.Equal(t, 1, app.mailer.count())
	assert.Equal(t, "user@example.com", app.mailer.to[0])

	email, err := app.repo.GetEmailByAddress(context.Background(), "user@example.com")
	require.NoError(t, err)
	events, err := app.repo.ListEmailVerificationEvents(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSubmitEmail_Invalid(t *testing.T) {
	app := newTestApp(t, 0)

	for _, address := range []string{"", "not-an-email", "a@"} {
		rec := app.do(testutil.NewRequest(http.MethodPost, "/", emailForm(address)))

		assert.Equal(t, http.StatusOK, rec.Code, address)
		assert.Contains(t, rec.Body.String(), "Please enter a valid email address.", address)
	}
	assert.Zero(t, app.mailer.count())
}

func TestSubmitEmail_TooManyRequests(t *testing.T) {
	app := newTestApp(t, 1)

	rec := app.do(testutil.NewRequest(http.MethodPost, "/", emailForm("user@example.com")))
	require.Contains(t, rec.Body.String(), "Success!")

	rec = app.do(testutil.NewRequest(http.MethodPost, "/", emailForm("user@example.com")))

	assert.Contains(t, rec.Body.String(), "Too many open verification requests.")
	assert.Equal(t, 1, app.mailer.count())
}

func TestLoginPage(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(testutil.NewRequest(http.MethodGet, "/login/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-post="/hx/login/"`)
}

func TestLoginPage_Verified(t *testing.T) {
	app := newTestApp(t, 0)
	email := testutil.NewTestEmail(t, app.repo, "user@example.com")

	req := app.withSession(t, testutil.NewRequest(http.MethodGet, "/login/", nil), &session.Data{EmailID: email.ID})
	rec := app.do(req)

	assert.Contains(t, rec.Body.String(), "Signed in as user@example.com")
	assert.Contains(t, rec.Body.String(), `hx-post="/hx/logout/"`)
}

func TestLoadVisitor_StaleEmailID(t *testing.T) {
	app := newTestApp(t, 0)

	req := app.withSession(t, testutil.NewRequest(http.MethodGet, "/login/", nil), &session.Data{EmailID: 999})
	rec := app.do(req)

	assert.Contains(t, rec.Body.String(), `hx-post="/hx/login/"`)
	cookie := app.responseCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestHxLoginForm(t *testing.T) {
	app := newTestApp(t, 0)

	t.Run("non-htmx redirects home", func(t *testing.T) {
		rec := app.do(testutil.NewRequest(http.MethodGet, "/hx/login/", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("htmx gets the form", func(t *testing.T) {
		rec := app.do(htmxRequest(http.MethodGet, "/hx/login/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `<div id="login-form"><form`)
		assert.NotContains(t, rec.Body.String(), "<html")
	})

	t.Run("verified visitor gets an empty placeholder", func(t *testing.T) {
		email := testutil.NewTestEmail(t, app.repo, "user@example.com")
		req := app.withSession(t, htmxRequest(http.MethodGet, "/hx/login/", nil), &session.Data{EmailID: email.ID})

		rec := app.do(req)

		assert.Equal(t, `<div id="login-form"></div>`, rec.Body.String())
	})
}

func TestHxLogin(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(htmxRequest(http.MethodPost, "/hx/login/", emailForm("user@example.com")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Success! Check your email for verification from noreply@example.com")
	assert.Equal(t, 1, app.mailer.count())
}

func TestHxLogin_Invalid(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(htmxRequest(http.MethodPost, "/hx/login/", emailForm("nope")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid email address.")
	assert.Contains(t, rec.Body.String(), `value="nope"`)
}

func TestHxLogin_NonHtmx(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.do(testutil.NewRequest(http.MethodPost, "/hx/login/", emailForm("user@example.com")))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, app.mailer.count())
}

func TestHxLogoutButton(t *testing.T) {
	app := newTestApp(t, 0)
	email := testutil.NewTestEmail(t, app.repo, "user@example.com")

	req := app.withSession(t, htmxRequest(http.MethodGet, "/hx/logout/", nil), &session.Data{EmailID: email.ID})
	rec := app.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as user@example.com")
}

func TestHxLogout(t *testing.T) {
	app := newTestApp(t, 0)
	email := testutil.NewTestEmail(t, app.repo, "user@example.com")

	req := app.withSession(t, htmxRequest(http.MethodPost, "/hx/logout/", nil), &session.Data{EmailID: email.ID})
	rec := app.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(htmx.HeaderRedirect))
	sess := app.responseSession(t, rec)
	assert.Zero(t, sess.EmailID)
	require.Len(t, sess.Flash, 1)
	assert.Equal(t, "You have been logged out.", sess.Flash[0].Message)
}

func startVerification(t *testing.T, app *testApp, address string) string {
	t.Helper()
	event, err := app.verifier.StartVerification(context.Background(), address)
	require.NoError(t, err)
	return event.Token
}

func TestVerify_Success(t *testing.T) {
	app := newTestApp(t, 0)
	token := startVerification(t, app, "user@example.com")

	rec := app.do(testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	email, err := app.repo.GetEmailByAddress(context.Background(), "user@example.com")
	require.NoError(t, err)
	sess := app.responseSession(t, rec)
	assert.Equal(t, email.ID, sess.EmailID)
	require.Len(t, sess.Flash, 1)
	assert.Equal(t, session.FlashSuccess, sess.Flash[0].Kind)
}

func TestVerify_RedirectsToNextURL(t *testing.T) {
	app := newTestApp(t, 0)
	token := startVerification(t, app, "user@example.com")

	req := app.withSession(t, testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil),
		&session.Data{NextURL: "/courses/c1/lessons/l1/"})
	rec := app.do(req)

	assert.Equal(t, "/courses/c1/lessons/l1/", rec.Header().Get("Location"))
	assert.Empty(t, app.responseSession(t, rec).NextURL)
}

func TestVerify_IgnoresUnsafeNextURL(t *testing.T) {
	app := newTestApp(t, 0)
	token := startVerification(t, app, "user@example.com")

	req := app.withSession(t, testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil),
		&session.Data{NextURL: "//evil.example/phish"})
	rec := app.do(req)

	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestVerify_InvalidToken(t *testing.T) {
	app := newTestApp(t, 0)
	email := testutil.NewTestEmail(t, app.repo, "user@example.com")

	req := app.withSession(t, testutil.NewRequest(http.MethodGet, "/verify/bogus/", nil), &session.Data{EmailID: email.ID})
	rec := app.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	sess := app.responseSession(t, rec)
	assert.Zero(t, sess.EmailID)
	require.Len(t, sess.Flash, 1)
	assert.Equal(t, session.FlashError, sess.Flash[0].Kind)
	assert.Equal(t, "This verification link is invalid.", sess.Flash[0].Message)
}

func TestVerify_TokenAlreadyUsed(t *testing.T) {
	app := newTestApp(t, 0)
	token := startVerification(t, app, "user@example.com")

	first := app.do(testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil))
	require.Equal(t, "/", first.Header().Get("Location"))

	rec := app.do(testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil))

	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	sess := app.responseSession(t, rec)
	require.Len(t, sess.Flash, 1)
	assert.Equal(t, "This verification link has already been used.", sess.Flash[0].Message)
}

func TestVerify_FlashShownOnce(t *testing.T) {
	app := newTestApp(t, 0)
	token := startVerification(t, app, "user@example.com")

	rec := app.do(testutil.NewRequest(http.MethodGet, "/verify/"+token+"/", nil))
	cookie := app.responseCookie(rec)
	require.NotNil(t, cookie)

	req := testutil.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = app.do(req)

	assert.Contains(t, rec.Body.String(), "Your email address has been verified.")
	assert.Contains(t, rec.Body.String(), "user@example.com")
	sess := app.responseSession(t, rec)
	assert.Empty(t, sess.Flash)
	assert.NotZero(t, sess.EmailID)
}
