package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const flashCookieName = "flash"

const (
	flashSuccess = "success"
	flashDanger  = "danger"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Category string
	Message  string
}

func setFlash(c *fiber.Ctx, category, message string) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash, if any.
func popFlash(c *fiber.Ctx) *Flash {
	raw := c.Cookies(flashCookieName)
	if raw == "" {
		return nil
	}
	c.ClearCookie(flashCookieName)

	value, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(value, "|")
	if !ok || message == "" {
		return nil
	}
	if category != flashSuccess {
		category = flashDanger
	}
	return &Flash{Category: category, Message: message}
}
