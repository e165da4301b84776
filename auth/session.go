package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const COOKIE_NAME = "session"

var one_week time.Duration = time.Hour * 24 * 7

var ErrBadSession = errors.New("invalid session")

type basicSession struct {
	RaffleId    string `json:"raffle_id"`
	SessionDate string `json:"session_date"`
}

// Session ties a browser to its raffle.
type Session struct {
	RaffleId    string
	SessionDate time.Time
}

func NewSession(now time.Time) *Session {
	return &Session{
		RaffleId:    uuid.NewString(),
		SessionDate: now,
	}
}

func (s *Session) Update(now time.Time) {
	s.SessionDate = now
}

func (s Session) MarshalJSON() ([]byte, error) {
	bs := basicSession{
		RaffleId:    s.RaffleId,
		SessionDate: s.SessionDate.Format(time.RFC3339),
	}

	return json.Marshal(bs)
}

func (s *Session) UnmarshalJSON(j []byte) error {
	var bs basicSession
	err := json.Unmarshal(j, &bs)
	if err != nil {
		return err
	}

	_, err = uuid.Parse(bs.RaffleId)
	if err != nil {
		return err
	}

	session_date, err := time.Parse(time.RFC3339, bs.SessionDate)
	if err != nil {
		return err
	}

	*s = Session{
		RaffleId:    bs.RaffleId,
		SessionDate: session_date,
	}

	return nil
}

// Keeper seals sessions into cookies and opens them again.
type Keeper struct {
	gcm    cipher.AEAD
	Secure bool
	now    func() time.Time
}

// NewKeeper derives the AES key from key and coder.
func NewKeeper(key, coder string) (*Keeper, error) {
	mac := hmac.New(sha256.New, []byte(coder))
	mac.Write([]byte(key))
	aes_key := mac.Sum(nil)[0:32]

	block, err := aes.NewCipher(aes_key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Keeper{gcm: gcm, now: time.Now}, nil
}

func (k *Keeper) EncryptAndSign(s Session) (string, error) {
	var o string
	plaintext, err := json.Marshal(s)
	if err != nil {
		return o, err
	}

	nonce := make([]byte, k.gcm.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return o, err
	}

	var ciphertext []byte
	ciphertext = append(ciphertext, nonce...)
	ciphertext = k.gcm.Seal(ciphertext, nonce, plaintext, nil)

	o = base64.RawURLEncoding.EncodeToString(ciphertext)
	return o, nil
}

func (k *Keeper) DecryptAndValidate(es string) (Session, error) {
	var s Session
	ciphertext, err := base64.RawURLEncoding.DecodeString(es)
	if err != nil {
		return s, err
	}

	if len(ciphertext) < k.gcm.NonceSize() {
		return s, ErrBadSession
	}

	nonce := ciphertext[:k.gcm.NonceSize()]
	ciphertext = ciphertext[k.gcm.NonceSize():]

	plaintext, err := k.gcm.Open(ciphertext[:0], nonce, ciphertext, nil)
	if err != nil {
		return s, ErrBadSession
	}

	err = json.Unmarshal(plaintext, &s)
	if err != nil {
		return s, err
	}

	return s, nil
}

// Get returns the request's session, or nil when it is missing, forged or expired.
func (k *Keeper) Get(req *http.Request) *Session {
	session_blob, err := req.Cookie(COOKIE_NAME)
	if err != nil {
		return nil
	}

	session, err := k.DecryptAndValidate(session_blob.Value)
	if err != nil {
		return nil
	}

	if k.now().Sub(session.SessionDate) > one_week {
		return nil
	}

	return &session
}

// Ensure returns the request's session, starting a new raffle when there is none.
func (k *Keeper) Ensure(req *http.Request) (*Session, bool) {
	if s := k.Get(req); s != nil {
		return s, false
	}
	return NewSession(k.now()), true
}

func (k *Keeper) Put(w http.ResponseWriter, s *Session) error {
	s.Update(k.now())
	value, err := k.EncryptAndSign(*s)
	if err != nil {
		return err
	}

	var c http.Cookie
	c.Name = COOKIE_NAME
	c.Value = value
	c.Path = "/"
	c.Expires = s.SessionDate.Add(one_week)
	c.Secure = k.Secure
	c.HttpOnly = true
	c.SameSite = http.SameSiteStrictMode

	http.SetCookie(w, &c)
	return nil
}
