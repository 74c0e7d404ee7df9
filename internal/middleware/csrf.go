package middleware

import (
	"crypto/subtle"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFFormField  = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"
	CSRFLocalKey   = "csrf"
)

// CSRF protects HTML forms with a double-submit token. The token is a signed,
// expiring JWT, so a forged cookie is rejected even when it matches the form.
type CSRF struct {
	secret    []byte
	ttl       time.Duration
	onFailure fiber.ErrorHandler
}

// NewCSRF creates a CSRF guard signing tokens with secret.
func NewCSRF(secret string, ttl time.Duration) *CSRF {
	return &CSRF{secret: []byte(secret), ttl: ttl}
}

// WithFailureHandler makes rejected requests go to fn instead of returning a
// 403 error to the app's error handler.
func (m *CSRF) WithFailureHandler(fn fiber.ErrorHandler) *CSRF {
	m.onFailure = fn
	return m
}

func (m *CSRF) reject(c *fiber.Ctx, message string) error {
	err := fiber.NewError(fiber.StatusForbidden, message)
	if m.onFailure != nil {
		return m.onFailure(c, err)
	}
	return err
}

// Issue mints a new token.
func (m *CSRF) Issue() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ":   "csrf",
		"nonce": uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign csrf token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and purpose of a token.
func (m *CSRF) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid csrf token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || claims["typ"] != "csrf" {
		return fmt.Errorf("invalid csrf token")
	}
	return nil
}

// Handler issues a token on safe requests and checks it on unsafe ones. The
// submitted token comes from the csrf_token form field or the X-CSRF-Token
// header and must equal the cookie.
func (m *CSRF) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(CSRFCookieName)

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			if cookie == "" || m.Verify(cookie) != nil {
				token, err := m.Issue()
				if err != nil {
					return err
				}
				cookie = token
				c.Cookie(&fiber.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					Expires:  time.Now().Add(m.ttl),
					HTTPOnly: true,
					SameSite: fiber.CookieSameSiteStrictMode,
				})
			}
			c.Locals(CSRFLocalKey, cookie)
			return c.Next()
		}

		submitted := c.FormValue(CSRFFormField)
		if submitted == "" {
			submitted = c.Get(CSRFHeader)
		}
		if cookie == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) != 1 {
			return m.reject(c, "missing or mismatched csrf token")
		}
		if err := m.Verify(cookie); err != nil {
			log.Printf("CSRF validation failed: %v", err)
			return m.reject(c, "invalid csrf token")
		}

		c.Locals(CSRFLocalKey, cookie)
		return c.Next()
	}
}

// GetCSRFToken returns the token forms on this request must carry.
func GetCSRFToken(c *fiber.Ctx) string {
	if token, ok := c.Locals(CSRFLocalKey).(string); ok {
		return token
	}
	return ""
}
