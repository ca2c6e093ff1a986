package export

import (
	"bytes"
	"testing"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWorkbook_Ambulance(t *testing.T) {
	at := time.Date(2026, 4, 2, 7, 30, 0, 0, time.UTC)
	cost := 900.0
	rows := []models.ServiceRequest{
		&models.AmbulanceBooking{
			RequestBase: models.RequestBase{
				ServiceID: "AMB-20260402-0A1B2C", Status: lifecycle.StatusNeedsApproval,
				UserID: "u-1", CreatedAt: at,
			},
			PatientName: "Lola Nena", Destination: "Provincial Hospital",
			BookingDate: at, DieselCost: &cost, AdminName: "Ana Admin",
		},
	}

	data, err := Workbook(lifecycle.DomainAmbulance, rows)
	require.NoError(t, err)

	got := readSheet(t, data, "Ambulance Bookings")
	require.Len(t, got, 2)
	assert.Equal(t, "Service ID", got[0][0])
	assert.Contains(t, got[0], "Diesel Cost")
	assert.Equal(t, "AMB-20260402-0A1B2C", got[1][0])
	assert.Equal(t, lifecycle.Display(lifecycle.DomainAmbulance, lifecycle.StatusNeedsApproval).Label, got[1][1])
	assert.Contains(t, got[1], "Lola Nena")
	assert.Contains(t, got[1], "900")
}

func TestWorkbook_HeaderOnlyWhenEmpty(t *testing.T) {
	data, err := Workbook(lifecycle.DomainDocument, nil)
	require.NoError(t, err)
	got := readSheet(t, data, "Document Requests")
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Document Type")
}

func TestWorkbook_RejectsMixedDomains(t *testing.T) {
	_, err := Workbook(lifecycle.DomainCourt, []models.ServiceRequest{&models.Proposal{}})
	assert.Error(t, err)
}
