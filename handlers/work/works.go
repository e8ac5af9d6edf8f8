package work

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/services/storage"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"github.com/museume/museume-backend/utils/ulid"
	"github.com/museume/museume-backend/utils/validation"
	"gorm.io/gorm"
)

// maxImageSize caps a single artwork image upload.
const maxImageSize = 10 << 20 // 10 MiB

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// WorkHandler handles artwork gallery requests
type WorkHandler struct {
	db        *gorm.DB
	uploader  storage.Uploader
	validator *validation.Validator
}

// NewWorkHandler creates a new work handler
func NewWorkHandler(db *gorm.DB, uploader storage.Uploader) *WorkHandler {
	return &WorkHandler{
		db:        db,
		uploader:  uploader,
		validator: validation.NewValidator(),
	}
}

// WorkView is a Work as shown to clients, with like information attached.
type WorkView struct {
	model.Work
	LikeCount int  `json:"like_count"`
	Liked     bool `json:"liked"`
}

func (h *WorkHandler) newWorkView(work model.Work, viewerID uint) WorkView {
	view := WorkView{Work: work, LikeCount: len(work.Likes)}
	for _, like := range work.Likes {
		if viewerID != 0 && like.MemberID == viewerID {
			view.Liked = true
			break
		}
	}
	view.Likes = nil
	return view
}

func viewerID(c *fiber.Ctx) uint {
	if id, ok := middleware.GetMemberID(c); ok {
		return id
	}
	return 0
}

// ListWorks handles GET /api/v1/works — the public gallery. Only public,
// approved works appear.
func (h *WorkHandler) ListWorks(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	category := c.Query("category", "")

	query := h.db.Model(&model.Work{}).
		Where("is_public = ? AND is_approved = ?", true, true)

	if search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count works")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var works []model.Work
	if err := query.Preload("Images").Preload("Likes").Preload("Member").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&works).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch works")
	}

	viewer := viewerID(c)
	views := make([]WorkView, 0, len(works))
	for _, work := range works {
		views = append(views, h.newWorkView(work, viewer))
	}

	return response.Paginated(c, views, pagination)
}

// GetWork handles GET /api/v1/works/:id. Private or unapproved works are
// visible only to their owner.
func (h *WorkHandler) GetWork(c *fiber.Ctx) error {
	id := c.Params("id")

	var work model.Work
	if err := h.db.Preload("Images").Preload("Likes").Preload("Member").
		First(&work, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Work not found")
		}
		return response.InternalServerError(c, "Failed to fetch work")
	}

	viewer := viewerID(c)
	if (!work.IsPublic || !work.IsApproved) && work.MemberID != viewer {
		return response.NotFound(c, "Work not found")
	}

	return response.Success(c, h.newWorkView(work, viewer))
}

// CreateWork handles POST /api/v1/works as multipart/form-data with one or
// more image files. The member's work count is checked against the free or
// paid limit before anything is stored.
func (h *WorkHandler) CreateWork(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	if h.uploader == nil {
		return response.InternalServerError(c, "Image storage is not configured")
	}

	limit, err := h.workLimit(member.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check work limit")
	}

	var count int64
	if err := h.db.Model(&model.Work{}).Where("member_id = ?", member.ID).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to count works")
	}
	if count >= int64(limit) {
		return response.BadRequest(c, fmt.Sprintf("Work limit of %d reached", limit))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Expected multipart form data")
	}

	title := validation.SanitizeString(formValue(form, "title"))
	if title == "" {
		return response.BadRequest(c, "Title is required")
	}

	work := model.Work{
		MemberID:    member.ID,
		Title:       title,
		Description: validation.SanitizeString(formValue(form, "description")),
		Category:    validation.SanitizeString(formValue(form, "category")),
		IsPublic:    formValue(form, "is_public") == "true",
	}

	if tags := formValue(form, "tags"); tags != "" {
		if !json.Valid([]byte(tags)) {
			return response.BadRequest(c, "Tags must be a JSON array")
		}
		work.Tags = []byte(tags)
	}

	if price := formValue(form, "price"); price != "" {
		p, err := strconv.ParseFloat(price, 64)
		if err != nil || p < 0 {
			return response.BadRequest(c, "Invalid price")
		}
		work.Price = &p
	}

	files := form.File["images"]
	if len(files) == 0 {
		return response.BadRequest(c, "At least one image is required")
	}

	images, err := h.storeImages(c, member.ID, files)
	if err != nil {
		return err // already a response
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&work).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].WorkID = work.ID
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		// Orphaned uploads are cleaned up best-effort
		for _, img := range images {
			h.uploader.DeleteFile(c.Context(), keyFromURL(img.URL))
		}
		return response.InternalServerError(c, "Failed to create work")
	}

	work.Images = images
	return response.Created(c, h.newWorkView(work, member.ID))
}

// storeImages validates, hashes and uploads each file. A hash collision with
// an existing image is rejected as a duplicate.
func (h *WorkHandler) storeImages(c *fiber.Ctx, memberID uint, files []*multipart.FileHeader) ([]model.WorkImage, error) {
	var images []model.WorkImage

	for _, fileHeader := range files {
		if fileHeader.Size > maxImageSize {
			return nil, response.BadRequest(c, fmt.Sprintf("Image %s exceeds the 10MB limit", fileHeader.Filename))
		}

		contentType := fileHeader.Header.Get("Content-Type")
		ext, allowed := allowedImageTypes[contentType]
		if !allowed {
			return nil, response.BadRequest(c, fmt.Sprintf("Unsupported image type %s", contentType))
		}

		file, err := fileHeader.Open()
		if err != nil {
			return nil, response.InternalServerError(c, "Failed to read uploaded file")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, response.InternalServerError(c, "Failed to read uploaded file")
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		var existing model.WorkImage
		if err := h.db.Where("hash = ?", hash).First(&existing).Error; err == nil {
			return nil, response.Conflict(c, fmt.Sprintf("Image %s has already been uploaded", fileHeader.Filename))
		}

		key := fmt.Sprintf("works/%d/%s%s", memberID, ulid.New(), ext)
		url, err := h.uploader.UploadBytes(c.Context(), key, data, contentType)
		if err != nil {
			log.Printf("[WORK] failed to upload image %s: %v", fileHeader.Filename, err)
			return nil, response.InternalServerError(c, "Failed to store image")
		}

		images = append(images, model.WorkImage{URL: url, Hash: hash})
	}

	return images, nil
}

// UpdateWorkRequest represents the request body for updating a work
type UpdateWorkRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags        *string  `json:"tags,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	IsPublic    *bool    `json:"is_public,omitempty"`
}

// UpdateWork handles PUT /api/v1/works/:id (owner only)
func (h *WorkHandler) UpdateWork(c *fiber.Ctx) error {
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

	if work.MemberID != member.ID {
		return response.Forbidden(c, "Not the owner of this work")
	}

	var req UpdateWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Title != nil {
		work.Title = validation.SanitizeString(*req.Title)
	}
	if req.Description != nil {
		work.Description = validation.SanitizeString(*req.Description)
	}
	if req.Category != nil {
		work.Category = validation.SanitizeString(*req.Category)
	}
	if req.Tags != nil {
		if !json.Valid([]byte(*req.Tags)) {
			return response.BadRequest(c, "Tags must be a JSON array")
		}
		work.Tags = []byte(*req.Tags)
	}
	if req.Price != nil {
		work.Price = req.Price
	}
	if req.IsPublic != nil {
		work.IsPublic = *req.IsPublic
	}

	if err := h.db.Save(&work).Error; err != nil {
		return response.InternalServerError(c, "Failed to update work")
	}

	return response.Success(c, h.newWorkView(work, member.ID))
}

// DeleteWork handles DELETE /api/v1/works/:id (owner only). Stored images
// are removed best-effort after the rows are gone.
func (h *WorkHandler) DeleteWork(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var work model.Work
	if err := h.db.Preload("Images").First(&work, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Work not found")
		}
		return response.InternalServerError(c, "Failed to fetch work")
	}

	if work.MemberID != member.ID {
		return response.Forbidden(c, "Not the owner of this work")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_id = ?", work.ID).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_id = ?", work.ID).Delete(&model.WorkImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&work).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to delete work")
	}

	if h.uploader != nil {
		for _, img := range work.Images {
			if err := h.uploader.DeleteFile(c.Context(), keyFromURL(img.URL)); err != nil {
				log.Printf("[WORK] failed to delete stored image %s: %v", img.URL, err)
			}
		}
	}

	return response.NoContent(c)
}

// MyWorks handles GET /api/v1/works/mine
func (h *WorkHandler) MyWorks(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.Work{}).Where("member_id = ?", member.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count works")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var works []model.Work
	if err := query.Preload("Images").Preload("Likes").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&works).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch works")
	}

	views := make([]WorkView, 0, len(works))
	for _, work := range works {
		views = append(views, h.newWorkView(work, member.ID))
	}

	return response.Paginated(c, views, pagination)
}

// workLimit returns how many works the member may hold. A succeeded payment
// with a non-zero amount unlocks the paid limit.
func (h *WorkHandler) workLimit(memberID uint) (int, error) {
	var paid int64
	err := h.db.Model(&model.Payment{}).
		Where("member_id = ? AND status = ? AND amount > 0", memberID, model.PaymentSucceeded).
		Count(&paid).Error
	if err != nil {
		return 0, err
	}
	if paid > 0 {
		return model.WorkLimitPaid, nil
	}
	return model.WorkLimitFree, nil
}

func formValue(form *multipart.Form, key string) string {
	if values, ok := form.Value[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// keyFromURL recovers the object key from a stored image URL.
func keyFromURL(url string) string {
	if i := strings.Index(url, "/works/"); i >= 0 {
		return url[i+1:]
	}
	return filepath.Base(url)
}
