package sessions

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// maxChunkSize keeps each cookie, attributes included, under the 4096 byte browser limit.
const maxChunkSize = 3933

const cookieKeyInfo = "hireai-gateway session cookie encryption key"

// sealedSession is the plaintext inside the cookie.
type sealedSession struct {
	TokenSet  tokens.TokenSet `json:"ts"`
	ExpiresAt int64           `json:"exp"`
}

// CookieStore seals the whole TokenSet into the session cookie with XChaCha20-Poly1305.
// Values larger than one cookie are split into name.0, name.1, ... chunks.
type CookieStore struct {
	aead    cipher.AEAD
	options CookieOptions
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore derives the encryption key from secret with HKDF-SHA256.
func NewCookieStore(secret string, options CookieOptions) (*CookieStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sessions NewCookieStore] a session secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sessions NewCookieStore] derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewCookieStore] %w", err)
	}

	return &CookieStore{
		aead:    aead,
		options: options,
	}, nil
}

func (s *CookieStore) Load(r *http.Request) (tokens.TokenSet, error) {
	value := s.readChunks(r)
	if value == "" {
		return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
	}

	sealed, err := s.open(value)
	if err != nil {
		return tokens.TokenSet{}, err
	}
	if NowTimeFunc().Unix() >= sealed.ExpiresAt {
		return tokens.TokenSet{}, gwerrors.ErrSessionExpired
	}
	return sealed.TokenSet, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, ts tokens.TokenSet) error {
	value, err := s.seal(sealedSession{
		TokenSet:  ts,
		ExpiresAt: NowTimeFunc().Add(s.options.MaxAge).Unix(),
	})
	if err != nil {
		return err
	}

	written := map[string]bool{}
	if len(value) <= maxChunkSize {
		http.SetCookie(w, s.options.cookie(s.options.Name, value))
		written[s.options.Name] = true
	} else {
		for i := 0; len(value) > 0; i++ {
			n := min(maxChunkSize, len(value))
			name := s.chunkName(i)
			http.SetCookie(w, s.options.cookie(name, value[:n]))
			written[name] = true
			value = value[n:]
		}
	}

	// Drop chunks left over from a larger previous value
	for _, name := range s.presentCookies(r) {
		if !written[name] {
			http.SetCookie(w, s.options.expired(name))
		}
	}
	return nil
}

func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	names := s.presentCookies(r)
	if len(names) == 0 {
		names = []string{s.options.Name}
	}
	for _, name := range names {
		http.SetCookie(w, s.options.expired(name))
	}
	return nil
}

func (s *CookieStore) seal(session sealedSession) (string, error) {
	plaintext, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("[CookieStore seal] %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("[CookieStore seal] nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, []byte(s.options.Name))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *CookieStore) open(value string) (sealedSession, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return sealedSession{}, fmt.Errorf("%w: %w", gwerrors.ErrSessionInvalid, err)
	}
	if len(raw) < s.aead.NonceSize() {
		return sealedSession{}, fmt.Errorf("%w: value too short", gwerrors.ErrSessionInvalid)
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(s.options.Name))
	if err != nil {
		return sealedSession{}, fmt.Errorf("%w: %w", gwerrors.ErrSessionInvalid, err)
	}

	var session sealedSession
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return sealedSession{}, fmt.Errorf("%w: %w", gwerrors.ErrSessionInvalid, err)
	}
	return session, nil
}

// readChunks returns the unchunked cookie value, or the chunks joined in order.
func (s *CookieStore) readChunks(r *http.Request) string {
	if c, err := r.Cookie(s.options.Name); err == nil && c.Value != "" {
		return c.Value
	}

	var b strings.Builder
	for i := 0; ; i++ {
		c, err := r.Cookie(s.chunkName(i))
		if err != nil {
			break
		}
		b.WriteString(c.Value)
	}
	return b.String()
}

// presentCookies lists the request's cookies that belong to this store.
func (s *CookieStore) presentCookies(r *http.Request) []string {
	var names []string
	for _, c := range r.Cookies() {
		if c.Name == s.options.Name {
			names = append(names, c.Name)
			continue
		}
		suffix, ok := strings.CutPrefix(c.Name, s.options.Name+".")
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(suffix); err == nil {
			names = append(names, c.Name)
		}
	}
	return names
}

func (s *CookieStore) chunkName(i int) string {
	return s.options.Name + "." + strconv.Itoa(i)
}
