package work

import (
	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeWork handles POST /api/v1/works/:id/like. Liking twice is a no-op.
func (h *WorkHandler) LikeWork(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var work model.Work
	if err := h.db.First(&work, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Work not found")
		}
		return response.InternalServerError(c, "Failed to fetch work")
	}

	if (!work.IsPublic || !work.IsApproved) && work.MemberID != member.ID {
		return response.NotFound(c, "Work not found")
	}

	like := model.Like{MemberID: member.ID, WorkID: work.ID}
	if err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "member_id"}, {Name: "work_id"}},
		DoNothing: true,
	}).Create(&like).Error; err != nil {
		return response.InternalServerError(c, "Failed to like work")
	}

	var count int64
	h.db.Model(&model.Like{}).Where("work_id = ?", work.ID).Count(&count)

	return response.Success(c, fiber.Map{
		"liked":      true,
		"like_count": count,
	})
}

// UnlikeWork handles DELETE /api/v1/works/:id/like. Removing a like that
// does not exist is a no-op.
func (h *WorkHandler) UnlikeWork(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var work model.Work
	if err := h.db.First(&work, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Work not found")
		}
		return response.InternalServerError(c, "Failed to fetch work")
	}

	if err := h.db.Where("member_id = ? AND work_id = ?", member.ID, work.ID).
		Delete(&model.Like{}).Error; err != nil {
		return response.InternalServerError(c, "Failed to unlike work")
	}

	var count int64
	h.db.Model(&model.Like{}).Where("work_id = ?", work.ID).Count(&count)

	return response.Success(c, fiber.Map{
		"liked":      false,
		"like_count": count,
	})
}
