package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpSecretBytes = 20
	totpPeriod      = 30
	qrImageSize     = 256
)

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTP generates shared secrets, provisioning material and RFC 6238 codes.
type TOTP struct {
	issuer string
	now    func() time.Time
}

// NewTOTP builds a TOTP helper labelling provisioning URIs with issuer.
func NewTOTP(issuer string) *TOTP {
	return &TOTP{issuer: issuer, now: time.Now}
}

// WithClock replaces the time source used for codes.
func (t *TOTP) WithClock(now func() time.Time) *TOTP {
	t.now = now
	return t
}

// GenerateSecret returns a random 32 character base32 secret.
func (t *TOTP) GenerateSecret() (string, error) {
	buf := make([]byte, totpSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps.
func (t *TOTP) ProvisioningURI(secret, account string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", t.issuer)
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", otp.DigitsSix.String())
	v.Set("period", strconv.Itoa(totpPeriod))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + t.issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// RenderQR encodes a provisioning URI as a PNG QR code.
func (t *TOTP) RenderQR(uri string) ([]byte, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse provisioning uri: %w", err)
	}
	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CurrentCode returns the code for the current 30 second step.
func (t *TOTP) CurrentCode(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, t.now(), totpOpts)
}

// Verify accepts only the code for the current step. Malformed secrets never verify.
func (t *TOTP) Verify(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now(), totpOpts)
	return err == nil && ok
}
