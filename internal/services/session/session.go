// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session keeps per-visitor state in a signed and encrypted cookie.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/courses/internal/config"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

const keyLength = 32

// FlashKind is the style of a one-shot message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"k"`
	Message string    `json:"m"`
}

// Data is the content of the session cookie.
type Data struct {
	// EmailID is the verified email bound to this visitor, 0 if none.
	EmailID int64 `json:"email_id,omitempty"`
	// NextURL is where to go after a successful verification.
	NextURL   string    `json:"next_url,omitempty"`
	Flash     []Flash   `json:"flash,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

// Authenticated reports whether a verified email is bound to the session.
func (d *Data) Authenticated() bool {
	return d.EmailID != 0
}

// AddFlash queues a message for the next page.
func (d *Data) AddFlash(kind FlashKind, message string) {
	d.Flash = append(d.Flash, Flash{Kind: kind, Message: message})
}

// PopFlashes returns the queued messages and clears them.
func (d *Data) PopFlashes() []Flash {
	flashes := d.Flash
	d.Flash = nil
	return flashes
}

// IsZero reports whether the session carries no state at all.
func (d *Data) IsZero() bool {
	return d.EmailID == 0 && d.NextURL == "" && len(d.Flash) == 0
}

// Manager encodes and decodes session cookies.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
}

// NewManager creates a session manager. An empty hash key is replaced by a
// random one, which invalidates all sessions on restart. An empty block key
// is derived from the hash key.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if hashKey == nil {
		slog.Warn("session_hash_key_generated", "hint", "set --session-hash-key to keep sessions across restarts")
		hashKey = securecookie.GenerateRandomKey(keyLength)
		if hashKey == nil {
			return nil, fmt.Errorf("generating session hash key: %w", io.ErrUnexpectedEOF)
		}
	}

	blockKey, err := decodeKey(cfg.BlockKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session block key: %w", err)
	}
	if blockKey == nil {
		blockKey, err = deriveBlockKey(hashKey)
		if err != nil {
			return nil, err
		}
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{
		codec:  codec,
		name:   cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: secure,
	}, nil
}

// GenerateKey returns a new random hex-encoded key for the configuration.
func GenerateKey() (string, error) {
	b := make([]byte, keyLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("must be %d bytes, got %d", keyLength, len(key))
	}
	return key, nil
}

func deriveBlockKey(hashKey []byte) ([]byte, error) {
	key := make([]byte, keyLength)
	r := hkdf.New(sha256.New, hashKey, nil, []byte("session block key"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving session block key: %w", err)
	}
	return key, nil
}

// Name is the cookie name.
func (m *Manager) Name() string {
	return m.name
}

// Load returns the session of the request. A missing, tampered or expired
// cookie yields an empty session.
func (m *Manager) Load(r *http.Request) *Data {
	data, err := m.Parse(r)
	if err != nil || data == nil {
		return &Data{}
	}
	return data
}

// Parse decodes the session cookie. It returns nil without error when the
// request carries no valid session.
func (m *Manager) Parse(r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return nil, nil //nolint:nilerr // no cookie means no session
	}

	var data Data
	if err := m.codec.Decode(m.name, cookie.Value, &data); err != nil {
		return nil, nil //nolint:nilerr // invalid cookies are treated as absent
	}

	if !data.ExpiresAt.IsZero() && time.Now().After(data.ExpiresAt) {
		return nil, nil
	}

	return &data, nil
}

// Cookie encodes data into a session cookie.
func (m *Manager) Cookie(data *Data) (*http.Cookie, error) {
	data.ExpiresAt = time.Now().Add(time.Duration(m.maxAge) * time.Second)

	value, err := m.codec.Encode(m.name, data)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Save writes data to the response. An empty session removes the cookie.
func (m *Manager) Save(w http.ResponseWriter, data *Data) error {
	if data == nil || data.IsZero() {
		http.SetCookie(w, m.Clear())
		return nil
	}
	cookie, err := m.Cookie(data)
	if err != nil {
		return err
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear returns a cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
