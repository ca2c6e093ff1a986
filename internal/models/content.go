package models

import (
	"encoding/json"
	"time"
)

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Attachments []string  `json:"attachments"`
	PostedBy    string    `json:"postedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Homepage sections.
const (
	SectionWelcome   = "welcome"
	SectionAbout     = "about"
	SectionSummary   = "summary"
	SectionFooter    = "footer"
	SectionHotlines  = "hotlines"
	SectionMap       = "map"
	SectionOfficials = "officials"
	SectionCarousel  = "carousel"
)

// EditableSections can be replaced with PUT /homepage/{section}.
var EditableSections = []string{
	SectionWelcome, SectionAbout, SectionSummary, SectionFooter,
	SectionHotlines, SectionMap, SectionOfficials,
}

func IsEditableSection(s string) bool {
	for _, v := range EditableSections {
		if v == s {
			return true
		}
	}
	return false
}

// Homepage is the composite document keyed by section name.
type Homepage map[string]json.RawMessage

type CarouselSlide struct {
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename"`
}

type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
