package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func image(name string) Upload {
	return Upload{Filename: name, Size: 3, Body: strings.NewReader("img")}
}

func stored(t *testing.T, h *harness, url string) bool {
	t.Helper()
	ok, err := afero.Exists(h.fs, "uploads/"+strings.TrimPrefix(url, "/uploads/"))
	require.NoError(t, err)
	return ok
}

func TestAnnouncements(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateAnnouncement(ctx, resident, AnnouncementInput{Title: "x", Content: "y"}, nil)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))

	_, err = h.svc.CreateAnnouncement(ctx, admin, AnnouncementInput{Title: "Clean-up drive"}, nil)
	assert.Contains(t, fieldsOf(t, err), "content")

	a, err := h.svc.CreateAnnouncement(ctx, admin, AnnouncementInput{Title: "Clean-up drive", Content: "Saturday 6AM"},
		[]Upload{image("poster.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "general", a.Category)
	assert.Equal(t, "Kap Reyes", a.PostedBy)
	require.Len(t, a.Attachments, 1)
	poster := a.Attachments[0]
	assert.True(t, stored(t, h, poster))

	list, err := h.svc.ListAnnouncements(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := h.svc.UpdateAnnouncement(ctx, admin, a.ID, AnnouncementInput{
		Category: "events", RemoveAttachments: []string{poster},
	}, []Upload{image("map.png")})
	require.NoError(t, err)
	assert.Equal(t, "Clean-up drive", updated.Title)
	assert.Equal(t, "events", updated.Category)
	require.Len(t, updated.Attachments, 1)
	assert.NotEqual(t, poster, updated.Attachments[0])
	assert.False(t, stored(t, h, poster))

	require.NoError(t, h.svc.DeleteAnnouncement(ctx, admin, a.ID))
	assert.False(t, stored(t, h, updated.Attachments[0]))
	_, err = h.svc.GetAnnouncement(ctx, a.ID)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))

	list, err = h.svc.ListAnnouncements(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHomepage_DefaultsCarousel(t *testing.T) {
	h := newHarness(t)
	page, err := h.svc.Homepage(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(page[models.SectionCarousel]))
}

func TestPutHomepageSection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.PutHomepageSection(ctx, admin, models.SectionWelcome, json.RawMessage(`"Mabuhay!"`)))
	require.NoError(t, h.svc.PutHomepageSection(ctx, admin, models.SectionHotlines,
		json.RawMessage(`{"hotlines":[{"name":"Fire","number":"160"}]}`)))

	page, err := h.svc.Homepage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"Mabuhay!"`, string(page[models.SectionWelcome]))
	assert.JSONEq(t, `{"hotlines":[{"name":"Fire","number":"160"}]}`, string(page[models.SectionHotlines]))

	err = h.svc.PutHomepageSection(ctx, admin, models.SectionHotlines, json.RawMessage(`{"hotlines":[{"name":"Police"}]}`))
	assert.Contains(t, fieldsOf(t, err), "hotlines[0].number")

	err = h.svc.PutHomepageSection(ctx, admin, models.SectionCarousel, json.RawMessage(`[]`))
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))

	err = h.svc.PutHomepageSection(ctx, admin, models.SectionAbout, json.RawMessage(`{not json`))
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.CodeOf(err))

	err = h.svc.PutHomepageSection(ctx, resident, models.SectionAbout, json.RawMessage(`"x"`))
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func TestCarousel_AddReplaceRemove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	slides, err := h.svc.AddCarouselSlide(ctx, admin, image("one.jpg"), "Fiesta", nil)
	require.NoError(t, err)
	slides, err = h.svc.AddCarouselSlide(ctx, admin, image("two.jpg"), "", nil)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	first := slides[0].URL

	zero := 0
	slides, err = h.svc.AddCarouselSlide(ctx, admin, image("three.webp"), "Parade", &zero)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, "Parade", slides[0].Caption)
	assert.False(t, stored(t, h, first), "replaced image is removed")

	out := 5
	_, err = h.svc.AddCarouselSlide(ctx, admin, image("four.jpg"), "", &out)
	assert.Contains(t, fieldsOf(t, err), "index")

	_, err = h.svc.AddCarouselSlide(ctx, admin, image("clip.mp4"), "", nil)
	assert.Equal(t, apperrors.ErrCodeUnsupportedMedia, apperrors.CodeOf(err))

	second := slides[1].URL
	slides, err = h.svc.RemoveCarouselSlide(ctx, admin, 1)
	require.NoError(t, err)
	assert.Len(t, slides, 1)
	assert.False(t, stored(t, h, second))

	page, err := h.svc.Homepage(ctx)
	require.NoError(t, err)
	var saved []models.CarouselSlide
	require.NoError(t, json.Unmarshal(page[models.SectionCarousel], &saved))
	assert.Len(t, saved, 1)
}

func TestSubmitContact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SubmitContact(ctx, models.ContactMessage{Name: "Pedro", Email: "bad", Message: ""})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "message")

	msg, err := h.svc.SubmitContact(ctx, models.ContactMessage{
		Name: "Pedro", Email: "pedro@example.com", Subject: "Streetlight", Message: "The light on Rizal St. is out.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Len(t, h.store.Contacts(), 1)

	ev := h.publisher.last(t)
	assert.Equal(t, models.EventContactReceived, ev.EventType)
	assert.Equal(t, "contact", ev.ResourceType)
	assert.Equal(t, "Streetlight", ev.Metadata["subject"])
	assert.Equal(t, "pedro@example.com", ev.Metadata["email"])
}
