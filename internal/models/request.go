package models

import (
	"time"

	"barangay-portal/internal/lifecycle"
)

// RequestBase carries the attributes every service request shares.
type RequestBase struct {
	ID                 string                 `json:"id"`
	ServiceID          string                 `json:"serviceId"`
	UserID             string                 `json:"submittedBy"`
	Status             lifecycle.Status       `json:"status"`
	AdminComment       string                 `json:"adminComment,omitempty"`
	CancellationReason string                 `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
	Display            lifecycle.Presentation `json:"display"`
}

// ServiceRequest is implemented by every concrete request type.
type ServiceRequest interface {
	Base() *RequestBase
	Domain() lifecycle.Domain
	// Summary is a one-line description used by search and notifications.
	Summary() string
}

// Present fills the Display field from the status taxonomy.
func Present(r ServiceRequest) {
	b := r.Base()
	b.Display = lifecycle.Display(r.Domain(), b.Status)
}

type Proposal struct {
	RequestBase
	SubmitterName  string  `json:"submitterName"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Budget         float64 `json:"budget"`
	AttachmentPath string  `json:"attachmentPath,omitempty"`
	AttachmentName string  `json:"attachmentName,omitempty"`
}

func (p *Proposal) Base() *RequestBase        { return &p.RequestBase }
func (p *Proposal) Domain() lifecycle.Domain { return lifecycle.DomainProposal }
func (p *Proposal) Summary() string          { return p.Title }

type AmbulanceBooking struct {
	RequestBase
	PatientName   string    `json:"patientName"`
	ContactNumber string    `json:"contactNumber"`
	PickupAddress string    `json:"pickupAddress"`
	Destination   string    `json:"destination"`
	BookingDate   time.Time `json:"bookingDate"`
	Purpose       string    `json:"purpose,omitempty"`
	DieselCost    *float64  `json:"dieselCost,omitempty"`
	AdminID       string    `json:"adminId,omitempty"`
	AdminName     string    `json:"adminName,omitempty"`
}

func (a *AmbulanceBooking) Base() *RequestBase        { return &a.RequestBase }
func (a *AmbulanceBooking) Domain() lifecycle.Domain { return lifecycle.DomainAmbulance }
func (a *AmbulanceBooking) Summary() string {
	return "Ambulance for " + a.PatientName + " to " + a.Destination
}

type CourtReservation struct {
	RequestBase
	ReserverName  string    `json:"reserverName"`
	ContactNumber string    `json:"contactNumber"`
	Purpose       string    `json:"purpose"`
	Participants  int       `json:"participants"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
}

func (c *CourtReservation) Base() *RequestBase        { return &c.RequestBase }
func (c *CourtReservation) Domain() lifecycle.Domain { return lifecycle.DomainCourt }
func (c *CourtReservation) Summary() string {
	return "Court reservation: " + c.Purpose
}

// Overlaps reports whether [start, end) intersects the reservation.
func (c *CourtReservation) Overlaps(start, end time.Time) bool {
	return start.Before(c.EndTime) && end.After(c.StartTime)
}

// DocumentRequest covers every document type, objection certificates
// included; FormData is validated against the schema of DocumentType.
type DocumentRequest struct {
	RequestBase
	DocumentType string                 `json:"documentType"`
	Purpose      string                 `json:"purpose,omitempty"`
	FormData     map[string]interface{} `json:"formData"`
}

func (d *DocumentRequest) Base() *RequestBase        { return &d.RequestBase }
func (d *DocumentRequest) Domain() lifecycle.Domain { return lifecycle.DomainDocument }
func (d *DocumentRequest) Summary() string          { return "Document request: " + d.DocumentType }

// ListFilter narrows a request listing. An explicit Status wins over an
// ExcludeStatus of the same value.
type ListFilter struct {
	UserID        string
	Status        string
	ExcludeStatus string
	Query         string
	SortAsc       bool
	Limit         int
}

// EffectiveExclude returns the exclusion that still applies once Status is
// taken into account.
func (f ListFilter) EffectiveExclude() string {
	if f.ExcludeStatus == f.Status {
		return ""
	}
	return f.ExcludeStatus
}

// StatusUpdate is an admin transition.
type StatusUpdate struct {
	Status       string   `json:"status"`
	AdminComment string   `json:"adminComment"`
	AdminID      string   `json:"adminId,omitempty"`
	AdminName    string   `json:"adminName,omitempty"`
	DieselCost   *float64 `json:"dieselCost,omitempty"`
}

// CancelRequest is a resident cancel.
type CancelRequest struct {
	UserID             string `json:"userId"`
	CancellationReason string `json:"cancellationReason"`
}

// CalendarEvent is one reservation on the court calendar.
type CalendarEvent struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Status lifecycle.Status `json:"status"`
	Color  string           `json:"color"`
}
