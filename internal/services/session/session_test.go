// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/courses/internal/config"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validHashKey is a valid 32-byte hex-encoded key for testing
const validHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// validBlockKey is a valid 32-byte hex-encoded key for encryption testing
const validBlockKey = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"

func newTestConfig() *config.SessionConfig {
	return &config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     3600, // 1 hour
		HashKey:    validHashKey,
	}
}

func TestNewManager(t *testing.T) {
	cfg := newTestConfig()

	mgr, err := session.NewManager(cfg, false)

	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestNewManager_WithBlockKey(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = validBlockKey

	mgr, err := session.NewManager(cfg, true)

	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestNewManager_InvalidHashKey_NotHex(t *testing.T) {
	cfg := newTestConfig()
	cfg.HashKey = "not-hex-encoded"

	_, err := session.NewManager(cfg, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session hash key")
}

func TestNewManager_InvalidHashKey_WrongLength(t *testing.T) {
	cfg := newTestConfig()
	cfg.HashKey = "0123456789abcdef" // only 8 bytes

	_, err := session.NewManager(cfg, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 32 bytes")
}

func TestNewManager_InvalidBlockKey_NotHex(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = "not-hex-encoded"

	_, err := session.NewManager(cfg, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session block key")
}

func TestNewManager_InvalidBlockKey_WrongLength(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = "0123456789abcdef" // only 8 bytes

	_, err := session.NewManager(cfg, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 32 bytes")
}

func TestNewManager_DevMode_GeneratesKey(t *testing.T) {
	cfg := &config.SessionConfig{
		CookieName: "_session",
		MaxAge:     3600,
		HashKey:    "", // empty - should auto-generate
	}

	mgr, err := session.NewManager(cfg, false)

	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestCookie(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	cookie, err := mgr.Cookie(&session.Data{EmailID: 123, NextURL: "/courses/"})

	require.NoError(t, err)
	assert.Equal(t, "_test_session", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestCookie_SecureMode(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, true)
	require.NoError(t, err)

	cookie, err := mgr.Cookie(&session.Data{EmailID: 123, NextURL: "/courses/"})

	require.NoError(t, err)
	assert.True(t, cookie.Secure)
}

func TestParse(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	// Create a session
	cookie, err := mgr.Cookie(&session.Data{EmailID: 123, NextURL: "/courses/"})
	require.NoError(t, err)

	// Create a request with the cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	// Parse the session
	data, err := mgr.Parse(req)

	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, int64(123), data.EmailID)
	assert.Equal(t, "/courses/", data.NextURL)
	assert.False(t, data.ExpiresAt.IsZero())
}

func TestParse_NoCookie(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	data, err := mgr.Parse(req)

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParse_InvalidCookie(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "_test_session",
		Value: "invalid-cookie-value",
	})

	data, err := mgr.Parse(req)

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParse_TamperedCookie(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	// Create a valid session
	cookie, err := mgr.Cookie(&session.Data{EmailID: 123, NextURL: "/courses/"})
	require.NoError(t, err)

	// Tamper with the cookie value
	cookie.Value = cookie.Value[:len(cookie.Value)-5] + "XXXXX"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	data, err := mgr.Parse(req)

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParse_ExpiredSession(t *testing.T) {
	cfg := &config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     1, // 1 second
		HashKey:    validHashKey,
	}
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	// Create a session
	cookie, err := mgr.Cookie(&session.Data{EmailID: 123, NextURL: "/courses/"})
	require.NoError(t, err)

	// Wait for expiration
	time.Sleep(2 * time.Second)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	data, err := mgr.Parse(req)

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParse_DifferentManager(t *testing.T) {
	cfg1 := newTestConfig()
	mgr1, err := session.NewManager(cfg1, false)
	require.NoError(t, err)

	// Create a session with manager 1
	cookie, err := mgr1.Cookie(&session.Data{EmailID: 123})
	require.NoError(t, err)

	// Create a different manager with different key
	cfg2 := &config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     3600,
		HashKey:    validBlockKey, // different key
	}
	mgr2, err := session.NewManager(cfg2, false)
	require.NoError(t, err)

	// Try to parse with manager 2
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	data, err := mgr2.Parse(req)

	require.NoError(t, err)
	assert.Nil(t, data) // Should not be able to decode
}

func TestClear(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)

	cookie := mgr.Clear()

	assert.Equal(t, "_test_session", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestClear_SecureMode(t *testing.T) {
	cfg := newTestConfig()
	mgr, err := session.NewManager(cfg, true)
	require.NoError(t, err)

	cookie := mgr.Clear()

	assert.True(t, cookie.Secure)
}

func TestLoad_NoCookie(t *testing.T) {
	mgr, err := session.NewManager(newTestConfig(), false)
	require.NoError(t, err)

	data := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, data)
	assert.True(t, data.IsZero())
	assert.False(t, data.Authenticated())
}

func TestSave_RoundTrip(t *testing.T) {
	mgr, err := session.NewManager(newTestConfig(), false)
	require.NoError(t, err)

	data := &session.Data{EmailID: 7}
	data.AddFlash(session.FlashSuccess, "verified")

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, data))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded := mgr.Load(req)

	assert.True(t, loaded.Authenticated())
	assert.Equal(t, int64(7), loaded.EmailID)

	flashes := loaded.PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, session.FlashSuccess, flashes[0].Kind)
	assert.Equal(t, "verified", flashes[0].Message)
	assert.Empty(t, loaded.Flash)
}

func TestSave_EmptyClearsCookie(t *testing.T) {
	mgr, err := session.NewManager(newTestConfig(), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, &session.Data{}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "_test_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestNewManager_DerivedBlockKeyIsStable(t *testing.T) {
	mgr1, err := session.NewManager(newTestConfig(), false)
	require.NoError(t, err)
	mgr2, err := session.NewManager(newTestConfig(), false)
	require.NoError(t, err)

	cookie, err := mgr1.Cookie(&session.Data{EmailID: 42})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	assert.Equal(t, int64(42), mgr2.Load(req).EmailID)
}

func TestGenerateKey(t *testing.T) {
	key, err := session.GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, 64)

	cfg := newTestConfig()
	cfg.HashKey = key
	_, err = session.NewManager(cfg, false)
	assert.NoError(t, err)
}
