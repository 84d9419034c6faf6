package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/service"
)

type ProfileHandler struct {
	s   service.ProfileService
	an  service.AnalyticsService
	cfg config.Config
}

func NewProfileHandler(cfg config.Config, s service.ProfileService, an service.AnalyticsService) *ProfileHandler {
	return &ProfileHandler{s: s, an: an, cfg: cfg}
}

// ConnectProfile redirects to the LinkedIn consent screen. The session
// token rides along as OAuth state so the callback can recover the user.
func (h *ProfileHandler) ConnectProfile(c *fiber.Ctx) error {
	tokenString := c.Cookies(h.cfg.CookieName)

	authURL := h.s.GetAuthURL(c.Context(), tokenString)
	if authURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to build authorization URL",
		})
	}

	return c.Redirect(authURL)
}

func (h *ProfileHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	companyID := c.Query("company_id")
	userID := GetUserID(c)

	err := h.s.ConnectCallback(c.Context(), code, userID, companyID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect LinkedIn profile",
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *ProfileHandler) ListProfiles(c *fiber.Ctx) error {
	userID := GetUserID(c)

	profiles, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list social profiles",
		})
	}

	return c.Status(fiber.StatusOK).JSON(profiles)
}

func (h *ProfileHandler) DeleteProfile(c *fiber.Ctx) error {
	userID := GetUserID(c)
	profileID := c.QueryInt("id", 0)

	err := h.s.Delete(c.Context(), userID, int64(profileID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove social profile",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// SyncProfileAnalytics manually refreshes followers and page views.
func (h *ProfileHandler) SyncProfileAnalytics(c *fiber.Ctx) error {
	userID := GetUserID(c)
	profileID := c.QueryInt("id", 0)

	profiles, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	owned := false
	for _, profile := range profiles {
		if profile.ID == int64(profileID) {
			owned = true
			break
		}
	}
	if !owned {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Social profile doesn't exist",
		})
	}

	if err := h.an.SyncProfile(c.Context(), int64(profileID)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}
