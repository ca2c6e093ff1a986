package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/search"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var collections = map[lifecycle.Domain]string{
	lifecycle.DomainProposal:  "proposals",
	lifecycle.DomainAmbulance: "ambulance",
	lifecycle.DomainCourt:     "court",
	lifecycle.DomainDocument:  "documents",
}

// Collection returns the URL collection of d.
func Collection(d lifecycle.Domain) string {
	if c, ok := collections[d]; ok {
		return c
	}
	return string(d)
}

// ParseCollection accepts a collection name or a domain name.
func ParseCollection(name string) (lifecycle.Domain, bool) {
	for d, c := range collections {
		if c == name || string(d) == name {
			return d, true
		}
	}
	return "", false
}

// ListOptions are the query parameters of a request listing.
type ListOptions struct {
	UserID        string
	Status        string
	ExcludeStatus string
	Query         string
	SortAsc       bool
	Limit         int
}

func (o ListOptions) Values() url.Values {
	v := url.Values{}
	if o.UserID != "" {
		v.Set("userId", o.UserID)
	}
	if o.Status != "" {
		v.Set("status", o.Status)
	}
	if o.ExcludeStatus != "" {
		v.Set("excludeStatus", o.ExcludeStatus)
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	if o.SortAsc {
		v.Set("sort", "asc")
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	return v
}

// ProposalQuery is the admin proposal screen's filter state.
type ProposalQuery struct {
	// StatusFilter is a proposal status, or "" / "all" for every status.
	StatusFilter string
	ShowArchived bool
	Search       string
}

// Values builds the listing query. Hiding the archive always appends
// excludeStatus=rejected, even next to statusFilter=rejected; the server
// lets the explicit status win in that case.
func (q ProposalQuery) Values() url.Values {
	v := url.Values{}
	if q.StatusFilter != "" && q.StatusFilter != "all" {
		v.Set("status", q.StatusFilter)
	}
	if !q.ShowArchived {
		v.Set("excludeStatus", string(lifecycle.StatusRejected))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	return v
}

func newRecord(d lifecycle.Domain) models.ServiceRequest {
	switch d {
	case lifecycle.DomainProposal:
		return &models.Proposal{}
	case lifecycle.DomainAmbulance:
		return &models.AmbulanceBooking{}
	case lifecycle.DomainCourt:
		return &models.CourtReservation{}
	default:
		return &models.DocumentRequest{}
	}
}

// List fetches requests of the collection T belongs to.
func List[T models.ServiceRequest](ctx context.Context, c *Client, d lifecycle.Domain, q url.Values) ([]T, error) {
	resp, err := c.do(c.request(ctx).SetQueryParamsFromValues(q), http.MethodGet, "/"+Collection(d))
	if err != nil {
		return nil, err
	}
	var out []T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProposals runs the admin proposal query.
func (c *Client) ListProposals(ctx context.Context, q ProposalQuery) ([]*models.Proposal, error) {
	return List[*models.Proposal](ctx, c, lifecycle.DomainProposal, q.Values())
}

// ListRequests lists any collection without knowing its concrete type.
func (c *Client) ListRequests(ctx context.Context, d lifecycle.Domain, o ListOptions) ([]models.ServiceRequest, error) {
	var (
		out []models.ServiceRequest
		err error
	)
	switch d {
	case lifecycle.DomainProposal:
		out, err = widen(List[*models.Proposal](ctx, c, d, o.Values()))
	case lifecycle.DomainAmbulance:
		out, err = widen(List[*models.AmbulanceBooking](ctx, c, d, o.Values()))
	case lifecycle.DomainCourt:
		out, err = widen(List[*models.CourtReservation](ctx, c, d, o.Values()))
	default:
		out, err = widen(List[*models.DocumentRequest](ctx, c, d, o.Values()))
	}
	return out, err
}

func widen[T models.ServiceRequest](rows []T, err error) ([]models.ServiceRequest, error) {
	if err != nil {
		return nil, err
	}
	out := make([]models.ServiceRequest, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func (c *Client) GetRequest(ctx context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error) {
	resp, err := c.do(c.request(ctx), http.MethodGet, "/"+Collection(d)+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	rec := newRecord(d)
	return rec, resp.Decode(rec)
}

// Cancel is the resident cancel of the current session's own request.
func (c *Client) Cancel(ctx context.Context, d lifecycle.Domain, id, reason string) (models.ServiceRequest, error) {
	body := models.CancelRequest{CancellationReason: reason}
	if s := c.Session(); s != nil && s.User != nil {
		body.UserID = s.User.ID
	}
	resp, err := c.do(c.request(ctx).SetBody(body), http.MethodPatch,
		"/"+Collection(d)+"/"+url.PathEscape(id)+"/cancel")
	if err != nil {
		return nil, err
	}
	rec := newRecord(d)
	return rec, resp.Decode(rec)
}

// UpdateStatus is the admin review action.
func (c *Client) UpdateStatus(ctx context.Context, d lifecycle.Domain, id string, upd models.StatusUpdate) (models.ServiceRequest, error) {
	resp, err := c.do(c.request(ctx).SetBody(upd), http.MethodPatch,
		"/"+Collection(d)+"/"+url.PathEscape(id)+"/status")
	if err != nil {
		return nil, err
	}
	rec := newRecord(d)
	return rec, resp.Decode(rec)
}

func (c *Client) DeleteRequest(ctx context.Context, d lifecycle.Domain, id string) error {
	_, err := c.do(c.request(ctx), http.MethodDelete, "/"+Collection(d)+"/"+url.PathEscape(id))
	return err
}

// submit posts a new request with a fresh idempotency key so transport
// retries cannot create duplicates.
func (c *Client) submit(d lifecycle.Domain, req *resty.Request) (*SubmitResult, error) {
	req.SetHeader("Idempotency-Key", uuid.New().String())
	resp, err := c.do(req, http.MethodPost, "/"+Collection(d))
	if err != nil {
		return nil, err
	}
	rec := newRecord(d)
	if err := resp.Decode(rec); err != nil {
		return nil, err
	}
	c.logger.Info("request submitted", map[string]interface{}{
		"domain":    d,
		"serviceId": rec.Base().ServiceID,
	})
	return &SubmitResult{
		Record:        rec,
		Message:       resp.Message,
		RedirectTo:    TransactionsPath,
		RedirectAfter: RedirectDelay,
	}, nil
}

// ==========================
// Court availability
// ==========================

// CourtConflict reports whether [start, end) overlaps an active reservation.
func (c *Client) CourtConflict(ctx context.Context, start, end time.Time) (bool, error) {
	resp, err := c.do(c.request(ctx).SetQueryParams(map[string]string{
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	}), http.MethodGet, "/court-conflict")
	if err != nil {
		return false, err
	}
	var out struct {
		Conflict bool `json:"conflict"`
	}
	return out.Conflict, resp.Decode(&out)
}

// CourtCalendar returns the reservations of month (YYYY-MM).
func (c *Client) CourtCalendar(ctx context.Context, month string) ([]models.CalendarEvent, error) {
	resp, err := c.do(c.request(ctx).SetQueryParam("month", month), http.MethodGet, "/court-calendar")
	if err != nil {
		return nil, err
	}
	var events []models.CalendarEvent
	return events, resp.Decode(&events)
}

// ==========================
// Admin reports
// ==========================

func (c *Client) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	params := map[string]string{"q": q.Text}
	if q.Domain != "" {
		params["type"] = q.Domain
	}
	if q.Status != "" {
		params["status"] = q.Status
	}
	if q.From > 0 {
		params["from"] = strconv.Itoa(q.From)
	}
	if q.Size > 0 {
		params["size"] = strconv.Itoa(q.Size)
	}
	resp, err := c.do(c.request(ctx).SetQueryParams(params), http.MethodGet, "/search")
	if err != nil {
		return nil, err
	}
	var res search.Result
	return &res, resp.Decode(&res)
}

// Export downloads the spreadsheet of collection d.
func (c *Client) Export(ctx context.Context, d lifecycle.Domain) ([]byte, error) {
	resp, err := c.request(ctx).Get("/export/" + Collection(d) + ".xlsx")
	if err != nil {
		return nil, apperrors.NewExternalServiceError("portal-api", err)
	}
	if resp.IsError() {
		_, perr := parseResponse(resp.StatusCode(), resp.Header(), resp.Body())
		return nil, perr
	}
	return resp.Body(), nil
}
