package class

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/services"
	"github.com/museume/museume-backend/utils/cache"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"github.com/museume/museume-backend/utils/validation"
	"gorm.io/gorm"
)

// listCacheTTL bounds how stale the public catalog may be.
const listCacheTTL = 60 * time.Second

// ClassHandler handles artist-class catalog and signup requests
type ClassHandler struct {
	db            *gorm.DB
	signupService *services.ClassSignupService
	mailer        *services.EmailService
	cache         *cache.RedisCache
	validator     *validation.Validator
	webhookSecret string
}

// NewClassHandler creates a new class handler. cache may be nil; the catalog
// then skips its read-through layer.
func NewClassHandler(db *gorm.DB, signupService *services.ClassSignupService, mailer *services.EmailService, redisCache *cache.RedisCache, webhookSecret string) *ClassHandler {
	return &ClassHandler{
		db:            db,
		signupService: signupService,
		mailer:        mailer,
		cache:         redisCache,
		validator:     validation.NewValidator(),
		webhookSecret: webhookSecret,
	}
}

// ClassView is an ArtistClass as shown to clients. The access URL is blanked
// unless the caller holds a confirmed signup for the class.
type ClassView struct {
	model.ArtistClass
	ScheduleStatus string `json:"schedule_status"`
	SignupStatus   string `json:"signup_status,omitempty"`
	PaymentStatus  string `json:"payment_status,omitempty"`
}

func newClassView(class model.ArtistClass, now time.Time) ClassView {
	view := ClassView{
		ArtistClass:    class,
		ScheduleStatus: class.ScheduleStatus(now),
	}
	view.URL = ""
	return view
}

type cachedClassList struct {
	Items      []ClassView             `json:"items"`
	Pagination response.PaginationMeta `json:"pagination"`
}

// ListClasses handles GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	classType := c.Query("class_type", "")
	isFree := c.Query("is_free", "")
	status := c.Query("status", "")

	cacheKey := fmt.Sprintf("classes:list:%d:%d:%s:%s:%s:%s", page, limit, search, classType, isFree, status)
	if h.cache != nil {
		var cached cachedClassList
		if err := h.cache.GetJSON(c.Context(), cacheKey, &cached); err == nil {
			return response.Paginated(c, cached.Items, cached.Pagination)
		}
	}

	query := h.db.Model(&model.ArtistClass{})

	if search != "" {
		query = query.Where("name ILIKE ? OR category ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if classType == model.ClassTypeRealTime || classType == model.ClassTypeRecorded {
		query = query.Where("class_type = ?", classType)
	}
	if isFree != "" {
		query = query.Where("is_free = ?", isFree == "true")
	}

	now := time.Now()
	switch status {
	case model.ClassStatusScheduled:
		query = query.Where("start_date > ?", now)
	case model.ClassStatusOngoing:
		query = query.Where("start_date <= ? AND end_date >= ?", now, now)
	case model.ClassStatusCompleted:
		query = query.Where("end_date < ?", now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count classes")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var classes []model.ArtistClass
	if err := query.Order("start_date ASC NULLS LAST, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&classes).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch classes")
	}

	views := make([]ClassView, 0, len(classes))
	for _, class := range classes {
		views = append(views, newClassView(class, now))
	}

	if h.cache != nil {
		h.cache.SetJSON(c.Context(), cacheKey, cachedClassList{Items: views, Pagination: pagination}, listCacheTTL)
	}

	return response.Paginated(c, views, pagination)
}

// GetClass handles GET /api/v1/classes/:id. With a valid token the caller's
// signup and payment status are included, and the access URL is revealed for
// confirmed signups.
func (h *ClassHandler) GetClass(c *fiber.Ctx) error {
	id := c.Params("id")

	var class model.ArtistClass
	if err := h.db.First(&class, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Class not found")
		}
		return response.InternalServerError(c, "Failed to fetch class")
	}

	view := newClassView(class, time.Now())

	if member, ok := middleware.GetMember(c); ok && member != nil {
		var signup model.MemberClassSignup
		if err := h.db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).
			First(&signup).Error; err == nil {
			view.SignupStatus = signup.Status
			if signup.Status == model.SignupConfirmed {
				view.URL = class.URL
			}
		}

		var payment model.Payment
		if err := h.db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).
			Order("created_at DESC").
			First(&payment).Error; err == nil {
			view.PaymentStatus = payment.Status
		}
	}

	return response.Success(c, view)
}

// MyClasses handles GET /api/v1/classes/mine — classes the caller holds a
// confirmed signup for.
func (h *ClassHandler) MyClasses(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.MemberClassSignup{}).
		Where("member_id = ? AND status = ?", member.ID, model.SignupConfirmed)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count signups")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var signups []model.MemberClassSignup
	if err := query.Preload("ArtistClass").
		Order("signed_up_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&signups).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch signups")
	}

	now := time.Now()
	views := make([]ClassView, 0, len(signups))
	for _, signup := range signups {
		view := newClassView(signup.ArtistClass, now)
		view.SignupStatus = signup.Status
		// Confirmed callers see the access link
		view.URL = signup.ArtistClass.URL
		views = append(views, view)
	}

	return response.Paginated(c, views, pagination)
}
