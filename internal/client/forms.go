package client

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

// After a successful submission the resident is sent to their transactions
// after a short pause.
const (
	TransactionsPath = "/resident/transactions"
	RedirectDelay    = 2 * time.Second
)

// SubmitResult is what a form returns on 201.
type SubmitResult struct {
	Record        models.ServiceRequest
	Message       string
	RedirectTo    string
	RedirectAfter time.Duration
}

// Form is implemented by every request form. Submit validates first and
// does not reach the server when validation fails; on success the form is
// reset to its defaults.
type Form interface {
	Validate() error
	Submit(ctx context.Context, c *Client) (*SubmitResult, error)
	Reset()
}

var (
	_ Form = (*FencingPermitForm)(nil)
	_ Form = (*ObjectionForm)(nil)
	_ Form = (*ProposalForm)(nil)
	_ Form = (*CourtForm)(nil)
	_ Form = (*AmbulanceForm)(nil)
)

type documentPayload struct {
	DocumentType string                 `json:"documentType"`
	Purpose      string                 `json:"purpose,omitempty"`
	FormData     map[string]interface{} `json:"formData"`
}

// validateDocument runs the presence checks of the form and then the
// server's formData schema for docType.
func validateDocument(c *validation.Checker, docType string, formData map[string]interface{}) error {
	res, err := validation.ValidateFormData(docType, formData)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Merge("", res).Err()
}

// ==========================
// Fencing permit
// ==========================

const (
	AreaSquareMeters = "square_meters"
	AreaHectares     = "hectares"
)

type FencingPermitForm struct {
	TaxDeclarationNumber         string
	PropertyIdentificationNumber string
	PropertyArea                 float64
	AreaUnit                     string
	Purpose                      string
}

func NewFencingPermitForm() *FencingPermitForm {
	return &FencingPermitForm{AreaUnit: AreaSquareMeters}
}

func (f *FencingPermitForm) Reset() { *f = *NewFencingPermitForm() }

func (f *FencingPermitForm) formData() map[string]interface{} {
	return map[string]interface{}{
		"taxDeclarationNumber":         strings.TrimSpace(f.TaxDeclarationNumber),
		"propertyIdentificationNumber": strings.TrimSpace(f.PropertyIdentificationNumber),
		"propertyArea":                 f.PropertyArea,
		"areaUnit":                     f.AreaUnit,
	}
}

func (f *FencingPermitForm) Validate() error {
	c := validation.NewChecker().
		Required("taxDeclarationNumber", f.TaxDeclarationNumber).
		Required("propertyIdentificationNumber", f.PropertyIdentificationNumber).
		Check(f.PropertyArea > 0, "propertyArea", "Property area must be greater than zero").
		OneOf("areaUnit", f.AreaUnit, []string{AreaSquareMeters, AreaHectares})
	return validateDocument(c, validation.DocFencingPermit, f.formData())
}

func (f *FencingPermitForm) Submit(ctx context.Context, c *Client) (*SubmitResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := c.submit(lifecycle.DomainDocument, c.request(ctx).SetBody(documentPayload{
		DocumentType: validation.DocFencingPermit,
		Purpose:      strings.TrimSpace(f.Purpose),
		FormData:     f.formData(),
	}))
	if err != nil {
		return nil, err
	}
	f.Reset()
	return res, nil
}

// ==========================
// Objection certificate
// ==========================

type ObjectionForm struct {
	ObjectorName     string
	PropertyAddress  string
	RespondentName   string
	ObjectionDetails string
	Purpose          string
}

func NewObjectionForm() *ObjectionForm { return &ObjectionForm{} }

func (f *ObjectionForm) Reset() { *f = ObjectionForm{} }

func (f *ObjectionForm) formData() map[string]interface{} {
	return map[string]interface{}{
		"objectorName":     strings.TrimSpace(f.ObjectorName),
		"propertyAddress":  strings.TrimSpace(f.PropertyAddress),
		"respondentName":   strings.TrimSpace(f.RespondentName),
		"objectionDetails": strings.TrimSpace(f.ObjectionDetails),
	}
}

func (f *ObjectionForm) Validate() error {
	c := validation.NewChecker().
		Required("objectorName", f.ObjectorName).
		Required("propertyAddress", f.PropertyAddress).
		Required("objectionDetails", f.ObjectionDetails)
	return validateDocument(c, validation.DocObjectionCertificate, f.formData())
}

func (f *ObjectionForm) Submit(ctx context.Context, c *Client) (*SubmitResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := c.submit(lifecycle.DomainDocument, c.request(ctx).SetBody(documentPayload{
		DocumentType: validation.DocObjectionCertificate,
		Purpose:      strings.TrimSpace(f.Purpose),
		FormData:     f.formData(),
	}))
	if err != nil {
		return nil, err
	}
	f.Reset()
	return res, nil
}

// ==========================
// Project proposal
// ==========================

// ProposalForm submits as JSON, or as multipart when AttachmentPath names
// a local pdf or docx file.
type ProposalForm struct {
	Title          string
	Description    string
	Budget         float64
	SubmitterName  string
	AttachmentPath string
}

func NewProposalForm() *ProposalForm { return &ProposalForm{} }

func (f *ProposalForm) Reset() { *f = ProposalForm{} }

func (f *ProposalForm) Validate() error {
	c := validation.NewChecker().
		Required("title", f.Title).
		Required("description", f.Description).
		Check(f.Budget >= 0, "budget", "Budget cannot be negative")
	if err := c.Err(); err != nil {
		return err
	}
	if f.AttachmentPath == "" {
		return nil
	}
	info, err := os.Stat(f.AttachmentPath)
	if err != nil {
		return apperrors.NewValidationError("Attachment not readable", map[string]string{"attachment": err.Error()})
	}
	if info.IsDir() {
		return apperrors.NewValidationError("Attachment not readable", map[string]string{"attachment": "is a directory"})
	}
	return validation.ValidateAttachment("attachment", validation.KindDocument, info.Name(), info.Size(), 0)
}

func (f *ProposalForm) Submit(ctx context.Context, c *Client) (*SubmitResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	req := c.request(ctx)
	if f.AttachmentPath != "" {
		fields := map[string]string{
			"title":       strings.TrimSpace(f.Title),
			"description": strings.TrimSpace(f.Description),
			"budget":      strconv.FormatFloat(f.Budget, 'f', -1, 64),
		}
		if f.SubmitterName != "" {
			fields["submitterName"] = f.SubmitterName
		}
		req.SetFormData(fields).SetFile("attachment", f.AttachmentPath)
	} else {
		body := map[string]interface{}{
			"title":       strings.TrimSpace(f.Title),
			"description": strings.TrimSpace(f.Description),
			"budget":      f.Budget,
		}
		if f.SubmitterName != "" {
			body["submitterName"] = f.SubmitterName
		}
		req.SetBody(body)
	}
	res, err := c.submit(lifecycle.DomainProposal, req)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return res, nil
}

// ==========================
// Court reservation
// ==========================

type CourtForm struct {
	ReserverName  string
	ContactNumber string
	Purpose       string
	Participants  int
	StartTime     time.Time
	EndTime       time.Time
}

func NewCourtForm() *CourtForm { return &CourtForm{Participants: 1} }

func (f *CourtForm) Reset() { *f = *NewCourtForm() }

func (f *CourtForm) Validate() error {
	c := validation.NewChecker().
		Required("reserverName", f.ReserverName).
		Phone("contactNumber", f.ContactNumber).
		Required("purpose", f.Purpose).
		Check(f.Participants > 0, "participants", "At least one participant is required").
		Check(!f.StartTime.IsZero(), "startTime", "This field is required").
		Check(!f.EndTime.IsZero(), "endTime", "This field is required")
	if !f.StartTime.IsZero() && !f.EndTime.IsZero() {
		c.Check(f.EndTime.After(f.StartTime), "endTime", "End time must be after start time")
	}
	return c.Err()
}

// Submit checks availability before posting; the server repeats the check
// atomically.
func (f *CourtForm) Submit(ctx context.Context, c *Client) (*SubmitResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	conflict, err := c.CourtConflict(ctx, f.StartTime, f.EndTime)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, apperrors.NewCourtConflictError(f.StartTime.Format(time.RFC3339) + " - " + f.EndTime.Format(time.RFC3339))
	}
	res, err := c.submit(lifecycle.DomainCourt, c.request(ctx).SetBody(map[string]interface{}{
		"reserverName":  strings.TrimSpace(f.ReserverName),
		"contactNumber": strings.TrimSpace(f.ContactNumber),
		"purpose":       strings.TrimSpace(f.Purpose),
		"participants":  f.Participants,
		"startTime":     f.StartTime.UTC(),
		"endTime":       f.EndTime.UTC(),
	}))
	if err != nil {
		return nil, err
	}
	f.Reset()
	return res, nil
}

// ==========================
// Ambulance booking
// ==========================

type AmbulanceForm struct {
	PatientName   string
	ContactNumber string
	PickupAddress string
	Destination   string
	BookingDate   time.Time
	Purpose       string
}

func NewAmbulanceForm() *AmbulanceForm { return &AmbulanceForm{} }

func (f *AmbulanceForm) Reset() { *f = AmbulanceForm{} }

func (f *AmbulanceForm) Validate() error {
	return validation.NewChecker().
		Required("patientName", f.PatientName).
		Phone("contactNumber", f.ContactNumber).
		Required("pickupAddress", f.PickupAddress).
		Required("destination", f.Destination).
		Check(!f.BookingDate.IsZero(), "bookingDate", "This field is required").
		Err()
}

func (f *AmbulanceForm) Submit(ctx context.Context, c *Client) (*SubmitResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := c.submit(lifecycle.DomainAmbulance, c.request(ctx).SetBody(map[string]interface{}{
		"patientName":   strings.TrimSpace(f.PatientName),
		"contactNumber": strings.TrimSpace(f.ContactNumber),
		"pickupAddress": strings.TrimSpace(f.PickupAddress),
		"destination":   strings.TrimSpace(f.Destination),
		"bookingDate":   f.BookingDate.UTC(),
		"purpose":       strings.TrimSpace(f.Purpose),
	}))
	if err != nil {
		return nil, err
	}
	f.Reset()
	return res, nil
}
