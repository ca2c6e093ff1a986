package service

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/models"

	"github.com/google/uuid"
)

// ==========================
// Announcements
// ==========================

// AnnouncementInput is the text part of an announcement form. Empty fields
// are left unchanged on update.
type AnnouncementInput struct {
	Title             string   `json:"title"`
	Content           string   `json:"content"`
	Category          string   `json:"category"`
	RemoveAttachments []string `json:"removeAttachments,omitempty"`
}

func (s *Service) ListAnnouncements(ctx context.Context) ([]*models.Announcement, error) {
	list, err := cached(ctx, s, collectionAnnouncements, "all", s.store.ListAnnouncements)
	if err != nil {
		return nil, storeErr(err, "Announcement", "")
	}
	return list, nil
}

func (s *Service) GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error) {
	a, err := s.store.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Announcement", id)
	}
	return a, nil
}

func (s *Service) CreateAnnouncement(ctx context.Context, actor *models.Session, in AnnouncementInput, files []Upload) (*models.Announcement, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validation.NewChecker().Required("title", in.Title).Required("content", in.Content).Err(); err != nil {
		return nil, err
	}

	urls, err := s.saveAll(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &models.Announcement{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Category:    defaultString(strings.TrimSpace(in.Category), "general"),
		Attachments: urls,
		PostedBy:    actor.FullName(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAnnouncement(ctx, a); err != nil {
		s.discard(urls...)
		return nil, storeErr(err, "Announcement", a.ID)
	}
	s.invalidate(ctx, collectionAnnouncements)
	return a, nil
}

func (s *Service) UpdateAnnouncement(ctx context.Context, actor *models.Session, id string, in AnnouncementInput, files []Upload) (*models.Announcement, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	a, err := s.store.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Announcement", id)
	}

	urls, err := s.saveAll(ctx, files)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Title); v != "" {
		a.Title = v
	}
	if strings.TrimSpace(in.Content) != "" {
		a.Content = in.Content
	}
	if v := strings.TrimSpace(in.Category); v != "" {
		a.Category = v
	}

	remove := make(map[string]bool, len(in.RemoveAttachments))
	for _, r := range in.RemoveAttachments {
		remove[r] = true
	}
	kept := make([]string, 0, len(a.Attachments)+len(urls))
	var removed []string
	for _, att := range a.Attachments {
		if remove[att] {
			removed = append(removed, att)
			continue
		}
		kept = append(kept, att)
	}
	a.Attachments = append(kept, urls...)
	a.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateAnnouncement(ctx, a); err != nil {
		s.discard(urls...)
		return nil, storeErr(err, "Announcement", id)
	}
	s.discard(removed...)
	s.invalidate(ctx, collectionAnnouncements)
	return a, nil
}

func (s *Service) DeleteAnnouncement(ctx context.Context, actor *models.Session, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	a, err := s.store.GetAnnouncement(ctx, id)
	if err != nil {
		return storeErr(err, "Announcement", id)
	}
	if err := s.store.DeleteAnnouncement(ctx, id); err != nil {
		return storeErr(err, "Announcement", id)
	}
	s.discard(a.Attachments...)
	s.invalidate(ctx, collectionAnnouncements)
	return nil
}

func (s *Service) saveAll(ctx context.Context, files []Upload) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if f.Field == "" {
			f.Field = "attachments"
		}
		stored, err := s.save(ctx, "announcements", validation.KindMedia, f)
		if err != nil {
			s.discard(urls...)
			return nil, err
		}
		urls = append(urls, stored.URL)
	}
	return urls, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ==========================
// Homepage
// ==========================

var minOne = 1

var sectionSchemas = map[string]validation.JSONSchema{
	models.SectionHotlines: {
		Type:     "object",
		Required: []string{"hotlines"},
		Properties: map[string]validation.Property{
			"hotlines": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name", "number"},
					Properties: map[string]validation.Property{
						"name":   {Type: "string", MinLength: &minOne},
						"number": {Type: "string", MinLength: &minOne},
					},
				},
			},
		},
	},
	models.SectionOfficials: {
		Type:     "object",
		Required: []string{"officials"},
		Properties: map[string]validation.Property{
			"officials": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name", "position"},
					Properties: map[string]validation.Property{
						"name":     {Type: "string", MinLength: &minOne},
						"position": {Type: "string", MinLength: &minOne},
						"photo":    {Type: "string"},
					},
				},
			},
		},
	},
	models.SectionMap: {
		Type:     "object",
		Required: []string{"embedUrl"},
		Properties: map[string]validation.Property{
			"embedUrl": {Type: "string", MinLength: &minOne},
			"address":  {Type: "string"},
		},
	},
}

// Homepage returns the composite homepage document. A missing carousel
// section reads as an empty list.
func (s *Service) Homepage(ctx context.Context) (models.Homepage, error) {
	page, err := cached(ctx, s, collectionHomepage, "all", s.store.GetHomepage)
	if err != nil {
		return nil, storeErr(err, "Homepage", "")
	}
	if page == nil {
		page = models.Homepage{}
	}
	if _, ok := page[models.SectionCarousel]; !ok {
		page[models.SectionCarousel] = json.RawMessage("[]")
	}
	return page, nil
}

// PutHomepageSection replaces one editable section with content.
func (s *Service) PutHomepageSection(ctx context.Context, actor *models.Session, section string, content json.RawMessage) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if !models.IsEditableSection(section) {
		return apperrors.NewNotFoundError("Homepage section", section)
	}
	if !json.Valid(content) {
		return apperrors.NewValidationError("Section content must be JSON", map[string]string{section: "invalid JSON"})
	}
	if schema, ok := sectionSchemas[section]; ok {
		var doc map[string]interface{}
		if err := json.Unmarshal(content, &doc); err != nil {
			return apperrors.NewValidationError("Section content must be a JSON object", map[string]string{section: err.Error()})
		}
		if res := validation.ValidateInput(doc, schema); !res.Valid {
			return apperrors.NewValidationError("Please correct the highlighted fields", res.FieldMessages())
		}
	}

	if err := s.store.PutHomepageSection(ctx, section, content, actor.UserID, s.now().UTC()); err != nil {
		return storeErr(err, "Homepage section", section)
	}
	s.invalidate(ctx, collectionHomepage)
	return nil
}

func (s *Service) carousel(ctx context.Context) ([]models.CarouselSlide, error) {
	page, err := s.store.GetHomepage(ctx)
	if err != nil {
		return nil, storeErr(err, "Homepage", "")
	}
	var slides []models.CarouselSlide
	if raw, ok := page[models.SectionCarousel]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &slides); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	return slides, nil
}

func (s *Service) putCarousel(ctx context.Context, actor *models.Session, slides []models.CarouselSlide) error {
	if slides == nil {
		slides = []models.CarouselSlide{}
	}
	raw, err := json.Marshal(slides)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.store.PutHomepageSection(ctx, models.SectionCarousel, raw, actor.UserID, s.now().UTC()); err != nil {
		return storeErr(err, "Homepage section", models.SectionCarousel)
	}
	s.invalidate(ctx, collectionHomepage)
	return nil
}

// AddCarouselSlide stores an image and appends it, or replaces the slide
// at index when index is given and in range.
func (s *Service) AddCarouselSlide(ctx context.Context, actor *models.Session, img Upload, caption string, index *int) ([]models.CarouselSlide, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	slides, err := s.carousel(ctx)
	if err != nil {
		return nil, err
	}
	if index != nil && (*index < 0 || *index >= len(slides)) {
		return nil, apperrors.NewValidationError("Invalid slide index", map[string]string{"index": "out of range"})
	}

	if img.Field == "" {
		img.Field = "image"
	}
	stored, err := s.save(ctx, "carousel", validation.KindImage, img)
	if err != nil {
		return nil, err
	}
	slide := models.CarouselSlide{URL: stored.URL, Caption: caption, Filename: stored.Name}

	var replaced string
	if index != nil {
		replaced = slides[*index].URL
		slides[*index] = slide
	} else {
		slides = append(slides, slide)
	}

	if err := s.putCarousel(ctx, actor, slides); err != nil {
		s.discard(stored.URL)
		return nil, err
	}
	s.discard(replaced)
	return slides, nil
}

// RemoveCarouselSlide deletes the slide at index and its image.
func (s *Service) RemoveCarouselSlide(ctx context.Context, actor *models.Session, index int) ([]models.CarouselSlide, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	slides, err := s.carousel(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(slides) {
		return nil, apperrors.NewValidationError("Invalid slide index", map[string]string{"index": "out of range"})
	}
	removed := slides[index].URL
	slides = append(slides[:index], slides[index+1:]...)

	if err := s.putCarousel(ctx, actor, slides); err != nil {
		return nil, err
	}
	s.discard(removed)
	return slides, nil
}

// ==========================
// Contact
// ==========================

// SubmitContact stores a contact form message and forwards it to the
// barangay inbox through the notification worker.
func (s *Service) SubmitContact(ctx context.Context, in models.ContactMessage) (*models.ContactMessage, error) {
	c := validation.NewChecker().
		Required("name", in.Name).
		Email("email", in.Email).
		Required("message", in.Message)
	if in.Phone != "" {
		c.Phone("phone", in.Phone)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	in.ID = uuid.New().String()
	in.CreatedAt = s.now().UTC()
	if err := s.store.CreateContactMessage(ctx, &in); err != nil {
		return nil, storeErr(err, "Contact message", in.ID)
	}

	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventContactReceived,
		ResourceType: "contact",
		ResourceID:   in.ID,
		Metadata: map[string]interface{}{
			"name":    in.Name,
			"email":   in.Email,
			"phone":   in.Phone,
			"subject": in.Subject,
			"message": in.Message,
		},
	})
	return &in, nil
}
