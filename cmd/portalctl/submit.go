package main

import (
	"fmt"

	"barangay-portal/internal/client"
	"barangay-portal/internal/models"

	"github.com/spf13/cobra"
)

func submitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a service request",
	}
	cmd.AddCommand(fencingCmd(a))
	cmd.AddCommand(objectionCmd(a))
	cmd.AddCommand(proposalCmd(a))
	cmd.AddCommand(courtReserveCmd(a))
	cmd.AddCommand(ambulanceCmd(a))
	return cmd
}

// runForm submits f and prints the created record.
func (a *app) runForm(cmd *cobra.Command, f client.Form) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	res, err := f.Submit(cmd.Context(), c)
	if err != nil {
		return describe(err)
	}
	if a.output == "json" {
		return outputResult(a.out, a.output, res.Record, nil)
	}
	fmt.Fprintln(a.out, res.Message)
	return outputResult(a.out, a.output, res.Record, requestTable([]models.ServiceRequest{res.Record}))
}

func fencingCmd(a *app) *cobra.Command {
	f := client.NewFencingPermitForm()
	cmd := &cobra.Command{
		Use:   "fencing",
		Short: "Request a fencing permit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForm(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.TaxDeclarationNumber, "tax-dec", "", "Tax declaration number")
	fl.StringVar(&f.PropertyIdentificationNumber, "pin", "", "Property identification number")
	fl.Float64Var(&f.PropertyArea, "area", 0, "Property area")
	fl.StringVar(&f.AreaUnit, "unit", client.AreaSquareMeters, "Area unit: square_meters or hectares")
	fl.StringVar(&f.Purpose, "purpose", "", "Purpose of the permit")
	return cmd
}

func objectionCmd(a *app) *cobra.Command {
	f := client.NewObjectionForm()
	cmd := &cobra.Command{
		Use:   "objection",
		Short: "Request a certificate of objection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForm(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.ObjectorName, "objector", "", "Name of the objecting party")
	fl.StringVar(&f.PropertyAddress, "property-address", "", "Address of the property concerned")
	fl.StringVar(&f.RespondentName, "respondent", "", "Name of the respondent")
	fl.StringVar(&f.ObjectionDetails, "details", "", "Details of the objection")
	fl.StringVar(&f.Purpose, "purpose", "", "Purpose of the certificate")
	return cmd
}

func proposalCmd(a *app) *cobra.Command {
	f := client.NewProposalForm()
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Submit a project proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForm(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Title, "title", "", "Proposal title")
	fl.StringVar(&f.Description, "description", "", "Proposal description")
	fl.Float64Var(&f.Budget, "budget", 0, "Estimated budget in pesos")
	fl.StringVar(&f.SubmitterName, "submitter", "", "Submitter name shown to staff")
	fl.StringVarP(&f.AttachmentPath, "attachment", "a", "", "PDF or DOCX file to attach")
	return cmd
}

func courtReserveCmd(a *app) *cobra.Command {
	f := client.NewCourtForm()
	var start, end string
	cmd := &cobra.Command{
		Use:   "court",
		Short: "Reserve the barangay court",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.StartTime, err = parseTime(start); err != nil {
				return err
			}
			if f.EndTime, err = parseTime(end); err != nil {
				return err
			}
			return a.runForm(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.ReserverName, "name", "", "Name of the person reserving")
	fl.StringVar(&f.ContactNumber, "contact", "", "Contact number")
	fl.StringVar(&f.Purpose, "purpose", "", "Purpose of the reservation")
	fl.IntVar(&f.Participants, "participants", 1, "Expected number of participants")
	fl.StringVar(&start, "start", "", "Start time, e.g. 2026-10-20T08:00")
	fl.StringVar(&end, "end", "", "End time")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func ambulanceCmd(a *app) *cobra.Command {
	f := client.NewAmbulanceForm()
	var date string
	cmd := &cobra.Command{
		Use:   "ambulance",
		Short: "Book the barangay ambulance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.BookingDate, err = parseTime(date); err != nil {
				return err
			}
			return a.runForm(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.PatientName, "patient", "", "Patient name")
	fl.StringVar(&f.ContactNumber, "contact", "", "Contact number")
	fl.StringVar(&f.PickupAddress, "pickup", "", "Pickup address")
	fl.StringVar(&f.Destination, "destination", "", "Destination")
	fl.StringVar(&date, "date", "", "Booking date and time")
	fl.StringVar(&f.Purpose, "purpose", "", "Purpose of the trip")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
