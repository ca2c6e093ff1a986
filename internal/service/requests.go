package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/metrics"
	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"

	"github.com/google/uuid"
)

// Canned admin comments.
const (
	DieselConfirmationComment = "Please confirm the diesel cost for this trip before we can book the ambulance."
	AdminCancelComment        = "Cancelled by admin"
)

var serviceIDPrefix = map[lifecycle.Domain]string{
	lifecycle.DomainDocument:  "DOC",
	lifecycle.DomainAmbulance: "AMB",
	lifecycle.DomainCourt:     "CRT",
	lifecycle.DomainProposal:  "PRP",
}

// resourceNames are used in error messages.
var resourceNames = map[lifecycle.Domain]string{
	lifecycle.DomainDocument:  "Document request",
	lifecycle.DomainAmbulance: "Ambulance booking",
	lifecycle.DomainCourt:     "Court reservation",
	lifecycle.DomainProposal:  "Proposal",
}

func (s *Service) newServiceID(d lifecycle.Domain) string {
	u := uuid.New()
	return fmt.Sprintf("%s-%s-%s", serviceIDPrefix[d], s.now().UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(u[:3])))
}

// ==========================
// Submit
// ==========================

// Submit validates and stores a new request for actor. A proposal may carry
// one attachment.
func (s *Service) Submit(ctx context.Context, actor *models.Session, req models.ServiceRequest, attachment *Upload) (models.ServiceRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	d := req.Domain()
	now := s.now().UTC()
	b := req.Base()
	b.ID = uuid.New().String()
	b.ServiceID = s.newServiceID(d)
	b.UserID = actor.UserID
	b.Status = lifecycle.StatusPending
	b.AdminComment = ""
	b.CancellationReason = ""
	b.CreatedAt = now
	b.UpdatedAt = now

	if p, ok := req.(*models.Proposal); ok {
		if p.SubmitterName == "" {
			p.SubmitterName = actor.FullName()
		}
		if attachment != nil {
			f, err := s.save(ctx, "proposals", validation.KindDocument, *attachment)
			if err != nil {
				return nil, err
			}
			p.AttachmentPath = f.URL
			p.AttachmentName = f.Name
		}
	}

	var err error
	if c, ok := req.(*models.CourtReservation); ok {
		err = s.store.CreateCourtReservation(ctx, c)
	} else {
		err = s.store.CreateRequest(ctx, req)
	}
	if err != nil {
		if p, ok := req.(*models.Proposal); ok {
			s.discard(p.AttachmentPath)
		}
		return nil, storeErr(err, resourceNames[d], b.ID)
	}

	metrics.RequestsSubmitted.WithLabelValues(string(d)).Inc()
	s.invalidate(ctx, string(d))
	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventSubmitted,
		ResourceType: string(d),
		ResourceID:   b.ID,
		ServiceID:    b.ServiceID,
		UserID:       b.UserID,
		ActorID:      actor.UserID,
		ToStatus:     string(b.Status),
		Summary:      req.Summary(),
	})

	s.logger.Info("request submitted", map[string]interface{}{
		"domain":    d,
		"serviceId": b.ServiceID,
		"userId":    b.UserID,
	})
	models.Present(req)
	return req, nil
}

func validateRequest(req models.ServiceRequest) error {
	c := validation.NewChecker()
	switch r := req.(type) {
	case *models.Proposal:
		c.Required("title", r.Title).
			Required("description", r.Description).
			Check(r.Budget >= 0, "budget", "Budget cannot be negative")
	case *models.AmbulanceBooking:
		c.Required("patientName", r.PatientName).
			Phone("contactNumber", r.ContactNumber).
			Required("pickupAddress", r.PickupAddress).
			Required("destination", r.Destination).
			Check(!r.BookingDate.IsZero(), "bookingDate", "This field is required")
		if r.DieselCost != nil {
			c.Check(*r.DieselCost >= 0, "dieselCost", "Diesel cost cannot be negative")
		}
	case *models.CourtReservation:
		c.Required("reserverName", r.ReserverName).
			Phone("contactNumber", r.ContactNumber).
			Required("purpose", r.Purpose).
			Check(!r.StartTime.IsZero(), "startTime", "This field is required").
			Check(!r.EndTime.IsZero(), "endTime", "This field is required").
			Check(r.Participants >= 0, "participants", "Participants cannot be negative")
		if !r.StartTime.IsZero() && !r.EndTime.IsZero() {
			c.Check(r.EndTime.After(r.StartTime), "endTime", "End time must be after start time")
		}
	case *models.DocumentRequest:
		c.Required("documentType", r.DocumentType)
		if r.DocumentType != "" {
			res, err := validation.ValidateFormData(r.DocumentType, r.FormData)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			if !validation.IsDocumentType(r.DocumentType) {
				c.Merge("", res)
			} else {
				c.Merge("formData", res)
			}
		}
	default:
		return apperrors.NewValidationError("Unsupported request type", nil)
	}
	return c.Err()
}

// ==========================
// Read
// ==========================

// List returns requests of domain d. Residents only ever see their own.
func (s *Service) List(ctx context.Context, actor *models.Session, d lifecycle.Domain, f models.ListFilter) ([]models.ServiceRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if !lifecycle.IsDomain(d) {
		return nil, apperrors.NewNotFoundError("Collection", string(d))
	}
	if !actor.Role.IsStaff() {
		f.UserID = actor.UserID
	}
	m := lifecycle.For(d)
	for field, v := range map[string]string{"status": f.Status, "excludeStatus": f.ExcludeStatus} {
		if v == "" {
			continue
		}
		if _, err := m.Parse(v); err != nil {
			return nil, apperrors.NewValidationError("Unknown status", map[string]string{field: err.Error()})
		}
	}

	var (
		out []models.ServiceRequest
		err error
	)
	switch d {
	case lifecycle.DomainProposal:
		out, err = listTyped[*models.Proposal](ctx, s, d, f)
	case lifecycle.DomainAmbulance:
		out, err = listTyped[*models.AmbulanceBooking](ctx, s, d, f)
	case lifecycle.DomainCourt:
		out, err = listTyped[*models.CourtReservation](ctx, s, d, f)
	case lifecycle.DomainDocument:
		out, err = listTyped[*models.DocumentRequest](ctx, s, d, f)
	default:
		return nil, apperrors.NewNotFoundError("Collection", string(d))
	}
	if err != nil {
		return nil, storeErr(err, resourceNames[d], "")
	}
	for _, r := range out {
		models.Present(r)
	}
	return out, nil
}

// listTyped caches listings as concrete slices so they decode back into the
// right request type.
func listTyped[T models.ServiceRequest](ctx context.Context, s *Service, d lifecycle.Domain, f models.ListFilter) ([]models.ServiceRequest, error) {
	rows, err := cached(ctx, s, string(d), filterKey(f), func(ctx context.Context) ([]T, error) {
		reqs, err := s.store.ListRequests(ctx, d, f)
		if err != nil {
			return nil, err
		}
		typed := make([]T, 0, len(reqs))
		for _, r := range reqs {
			typed = append(typed, r.(T))
		}
		return typed, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.ServiceRequest, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func filterKey(f models.ListFilter) string {
	order := "desc"
	if f.SortAsc {
		order = "asc"
	}
	return fmt.Sprintf("u=%s|s=%s|x=%s|q=%s|o=%s|l=%d",
		f.UserID, f.Status, f.EffectiveExclude(), strings.ToLower(strings.TrimSpace(f.Query)), order, f.Limit)
}

// Get loads one request. A resident asking for someone else's request gets
// not found.
func (s *Service) Get(ctx context.Context, actor *models.Session, d lifecycle.Domain, id string) (models.ServiceRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, d, id)
	if err != nil {
		return nil, storeErr(err, resourceNames[d], id)
	}
	if !actor.Role.IsStaff() && req.Base().UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError(resourceNames[d], id)
	}
	models.Present(req)
	return req, nil
}

// ==========================
// Admin review
// ==========================

// UpdateStatus applies an admin transition. Of two admins racing from the
// same status only the first wins; the second gets INVALID_TRANSITION.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.Session, d lifecycle.Domain, id string, upd models.StatusUpdate) (models.ServiceRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	m := lifecycle.For(d)
	to, err := m.Parse(upd.Status)
	if err != nil {
		return nil, apperrors.NewValidationError("Unknown status", map[string]string{"status": err.Error()})
	}

	current, err := s.store.GetRequest(ctx, d, id)
	if err != nil {
		return nil, storeErr(err, resourceNames[d], id)
	}
	from := current.Base().Status
	if !m.CanTransition(from, to) {
		return nil, apperrors.NewInvalidTransitionError(string(from), string(to))
	}

	upd.Status = string(to)
	upd.AdminComment = strings.TrimSpace(upd.AdminComment)
	switch {
	case d == lifecycle.DomainAmbulance && to == lifecycle.StatusNeedsApproval && upd.AdminComment == "":
		upd.AdminComment = DieselConfirmationComment
	case to == lifecycle.StatusCancelled && upd.AdminComment == "":
		upd.AdminComment = AdminCancelComment
	}
	if d == lifecycle.DomainAmbulance {
		if upd.AdminID == "" {
			upd.AdminID = actor.UserID
		}
		if upd.AdminName == "" {
			upd.AdminName = actor.FullName()
		}
		if upd.DieselCost != nil && *upd.DieselCost < 0 {
			return nil, apperrors.NewValidationError("Invalid diesel cost",
				map[string]string{"dieselCost": "Diesel cost cannot be negative"})
		}
	} else {
		upd.DieselCost = nil
	}

	if err := s.store.UpdateStatus(ctx, d, id, from, upd, s.now().UTC()); err != nil {
		if isStale(err) {
			return nil, apperrors.NewInvalidTransitionError(string(from), string(to))
		}
		return nil, storeErr(err, resourceNames[d], id)
	}

	metrics.StatusTransitions.WithLabelValues(string(d), string(from), string(to)).Inc()
	s.invalidate(ctx, string(d))

	updated, err := s.store.GetRequest(ctx, d, id)
	if err != nil {
		return nil, storeErr(err, resourceNames[d], id)
	}
	b := updated.Base()

	meta := map[string]interface{}{}
	if upd.AdminName != "" {
		meta["adminName"] = upd.AdminName
	}
	if upd.DieselCost != nil {
		meta["dieselCost"] = *upd.DieselCost
	}
	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventStatusChanged,
		ResourceType: string(d),
		ResourceID:   id,
		ServiceID:    b.ServiceID,
		UserID:       b.UserID,
		ActorID:      actor.UserID,
		FromStatus:   string(from),
		ToStatus:     string(to),
		Comment:      upd.AdminComment,
		Summary:      updated.Summary(),
		Metadata:     meta,
	})

	models.Present(updated)
	return updated, nil
}

// Cancel is the resident cancel: only the submitter, only before a final
// status.
func (s *Service) Cancel(ctx context.Context, actor *models.Session, d lifecycle.Domain, id string, in models.CancelRequest) (models.ServiceRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if in.UserID != "" && in.UserID != actor.UserID {
		return nil, apperrors.NewForbiddenError("requests can only be cancelled by their submitter")
	}

	current, err := s.store.GetRequest(ctx, d, id)
	if err != nil {
		return nil, storeErr(err, resourceNames[d], id)
	}
	b := current.Base()
	if b.UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError(resourceNames[d], id)
	}
	from := b.Status
	if !lifecycle.For(d).CanResidentCancel(from) {
		return nil, apperrors.NewInvalidTransitionError(string(from), string(lifecycle.StatusCancelled))
	}

	reason := strings.TrimSpace(in.CancellationReason)
	if err := s.store.CancelRequest(ctx, d, id, actor.UserID, from, reason, s.now().UTC()); err != nil {
		if isStale(err) {
			return nil, apperrors.NewInvalidTransitionError(string(from), string(lifecycle.StatusCancelled))
		}
		return nil, storeErr(err, resourceNames[d], id)
	}

	metrics.StatusTransitions.WithLabelValues(string(d), string(from), string(lifecycle.StatusCancelled)).Inc()
	s.invalidate(ctx, string(d))
	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventCancelled,
		ResourceType: string(d),
		ResourceID:   id,
		ServiceID:    b.ServiceID,
		UserID:       b.UserID,
		ActorID:      actor.UserID,
		FromStatus:   string(from),
		ToStatus:     string(lifecycle.StatusCancelled),
		Comment:      reason,
		Summary:      current.Summary(),
	})

	b.Status = lifecycle.StatusCancelled
	b.CancellationReason = reason
	b.UpdatedAt = s.now().UTC()
	models.Present(current)
	return current, nil
}

// Delete hard-deletes a request and its attachment. Staff only.
func (s *Service) Delete(ctx context.Context, actor *models.Session, d lifecycle.Domain, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	current, err := s.store.GetRequest(ctx, d, id)
	if err != nil {
		return storeErr(err, resourceNames[d], id)
	}
	if err := s.store.DeleteRequest(ctx, d, id); err != nil {
		return storeErr(err, resourceNames[d], id)
	}
	if p, ok := current.(*models.Proposal); ok {
		s.discard(p.AttachmentPath)
	}

	s.invalidate(ctx, string(d))
	b := current.Base()
	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventDeleted,
		ResourceType: string(d),
		ResourceID:   id,
		ServiceID:    b.ServiceID,
		UserID:       b.UserID,
		ActorID:      actor.UserID,
		FromStatus:   string(b.Status),
	})
	return nil
}
