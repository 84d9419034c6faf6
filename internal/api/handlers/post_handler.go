package handlers

import (
	"log/slog"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/zinye/socialflow/internal/service"
	"github.com/zinye/socialflow/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

type PostHandler struct {
	s     service.PostService
	sched service.SchedulerService
	an    service.AnalyticsService
}

func NewPostHandler(s service.PostService, sched service.SchedulerService, an service.AnalyticsService) *PostHandler {
	return &PostHandler{s: s, sched: sched, an: an}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["files"]
	}

	profileID, _ := strconv.ParseInt(c.FormValue("profile_id"), 10, 64)
	if profileID == 0 {
		profileID = int64(c.QueryInt("profile_id", 0))
	}

	pc := transfer.PostCreation{
		Title:           c.FormValue("title"),
		Content:         c.FormValue("content"),
		ContentType:     c.FormValue("content_type", "text"),
		LinkURL:         c.FormValue("link_url"),
		LinkTitle:       c.FormValue("link_title"),
		LinkDescription: c.FormValue("link_description"),
		Visibility:      c.FormValue("visibility"),
		PublishNow:      c.FormValue("publish_now") == "true",
		ScheduledTime:   c.FormValue("scheduled_time"),
	}
	pc.ProfileID = profileID

	postID, err := h.s.CreatePost(c.Context(), userID, &pc, files)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postId), userId)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) DuplicatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	duplicateID, err := h.s.Duplicate(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"post_id": duplicateID,
	})
}

func (h *PostHandler) parseScheduledTime(c *fiber.Ctx) (time.Time, bool) {
	value := c.FormValue("scheduled_time")
	if value == "" {
		value = c.Query("scheduled_time")
	}

	scheduledTime, err := time.Parse(scheduledTimeLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return scheduledTime, true
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	scheduledTime, ok := h.parseScheduledTime(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid scheduled time format",
		})
	}

	if err := h.sched.SchedulePost(c.Context(), userID, int64(postId), scheduledTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if err := h.sched.PublishNow(c.Context(), userID, int64(postId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) ApprovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if err := h.sched.Approve(c.Context(), userID, int64(postId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) RejectPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if err := h.sched.Reject(c.Context(), userID, int64(postId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	scheduledTime, ok := h.parseScheduledTime(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid scheduled time format",
		})
	}

	if err := h.sched.Reschedule(c.Context(), userID, int64(postId), scheduledTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if err := h.sched.Cancel(c.Context(), userID, int64(postId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

// SyncAnalytics manually triggers an analytics sync for one post.
func (h *PostHandler) SyncAnalytics(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if _, err := h.s.PostInfo(c.Context(), int64(postId), userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if err := h.an.SyncPost(c.Context(), int64(postId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) AnalyticsHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)
	days := c.QueryInt("days", 30)

	snapshots, err := h.an.History(c.Context(), userID, int64(postId), days)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    snapshots,
	})
}
