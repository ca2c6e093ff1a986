// Package export renders request collections as xlsx workbooks for staff.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"

	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04"

type column struct {
	header string
	width  float64
	value  func(models.ServiceRequest) interface{}
}

var common = []column{
	{"Service ID", 24, func(r models.ServiceRequest) interface{} { return r.Base().ServiceID }},
	{"Status", 16, func(r models.ServiceRequest) interface{} {
		return lifecycle.Display(r.Domain(), r.Base().Status).Label
	}},
	{"Submitted By", 38, func(r models.ServiceRequest) interface{} { return r.Base().UserID }},
	{"Created At", 18, func(r models.ServiceRequest) interface{} { return r.Base().CreatedAt.Format(timeLayout) }},
}

var trailing = []column{
	{"Admin Comment", 40, func(r models.ServiceRequest) interface{} { return r.Base().AdminComment }},
	{"Cancellation Reason", 30, func(r models.ServiceRequest) interface{} { return r.Base().CancellationReason }},
}

var domainColumns = map[lifecycle.Domain][]column{
	lifecycle.DomainProposal: {
		{"Submitter", 24, func(r models.ServiceRequest) interface{} { return r.(*models.Proposal).SubmitterName }},
		{"Title", 32, func(r models.ServiceRequest) interface{} { return r.(*models.Proposal).Title }},
		{"Budget", 14, func(r models.ServiceRequest) interface{} { return r.(*models.Proposal).Budget }},
		{"Attachment", 24, func(r models.ServiceRequest) interface{} { return r.(*models.Proposal).AttachmentName }},
	},
	lifecycle.DomainAmbulance: {
		{"Patient", 24, func(r models.ServiceRequest) interface{} { return r.(*models.AmbulanceBooking).PatientName }},
		{"Contact", 16, func(r models.ServiceRequest) interface{} { return r.(*models.AmbulanceBooking).ContactNumber }},
		{"Pickup", 28, func(r models.ServiceRequest) interface{} { return r.(*models.AmbulanceBooking).PickupAddress }},
		{"Destination", 28, func(r models.ServiceRequest) interface{} { return r.(*models.AmbulanceBooking).Destination }},
		{"Booking Date", 18, func(r models.ServiceRequest) interface{} {
			return r.(*models.AmbulanceBooking).BookingDate.Format(timeLayout)
		}},
		{"Diesel Cost", 12, func(r models.ServiceRequest) interface{} {
			if c := r.(*models.AmbulanceBooking).DieselCost; c != nil {
				return *c
			}
			return ""
		}},
		{"Handled By", 20, func(r models.ServiceRequest) interface{} { return r.(*models.AmbulanceBooking).AdminName }},
	},
	lifecycle.DomainCourt: {
		{"Reserver", 24, func(r models.ServiceRequest) interface{} { return r.(*models.CourtReservation).ReserverName }},
		{"Contact", 16, func(r models.ServiceRequest) interface{} { return r.(*models.CourtReservation).ContactNumber }},
		{"Purpose", 28, func(r models.ServiceRequest) interface{} { return r.(*models.CourtReservation).Purpose }},
		{"Participants", 12, func(r models.ServiceRequest) interface{} { return r.(*models.CourtReservation).Participants }},
		{"Start", 18, func(r models.ServiceRequest) interface{} {
			return r.(*models.CourtReservation).StartTime.Format(timeLayout)
		}},
		{"End", 18, func(r models.ServiceRequest) interface{} {
			return r.(*models.CourtReservation).EndTime.Format(timeLayout)
		}},
	},
	lifecycle.DomainDocument: {
		{"Document Type", 26, func(r models.ServiceRequest) interface{} {
			return strings.ReplaceAll(r.(*models.DocumentRequest).DocumentType, "_", " ")
		}},
		{"Purpose", 28, func(r models.ServiceRequest) interface{} { return r.(*models.DocumentRequest).Purpose }},
	},
}

// SheetName is the title of the single sheet of a domain export.
func SheetName(d lifecycle.Domain) string {
	switch d {
	case lifecycle.DomainAmbulance:
		return "Ambulance Bookings"
	case lifecycle.DomainCourt:
		return "Court Reservations"
	case lifecycle.DomainDocument:
		return "Document Requests"
	default:
		return "Proposals"
	}
}

// Workbook renders rows of domain d and returns the xlsx bytes.
func Workbook(d lifecycle.Domain, rows []models.ServiceRequest) ([]byte, error) {
	specific, ok := domainColumns[d]
	if !ok {
		return nil, fmt.Errorf("no export layout for domain %q", d)
	}
	cols := make([]column, 0, len(common)+len(specific)+len(trailing))
	cols = append(cols, common...)
	cols = append(cols, specific...)
	cols = append(cols, trailing...)

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(d)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		if r.Domain() != d {
			return nil, fmt.Errorf("row %d is a %s, expected %s", i, r.Domain(), d)
		}
		values := make([]interface{}, len(cols))
		for j, c := range cols {
			values[j] = c.value(r)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
