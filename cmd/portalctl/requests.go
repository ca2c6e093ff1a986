package main

import (
	"fmt"
	"strconv"
	"strings"

	"barangay-portal/internal/client"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/search"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func parseDomain(name string) (lifecycle.Domain, error) {
	d, ok := client.ParseCollection(name)
	if !ok {
		return "", fmt.Errorf("unknown collection %q (proposals, ambulance, court, documents)", name)
	}
	return d, nil
}

func requestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"req"},
		Short:   "List, review and cancel service requests",
	}
	cmd.AddCommand(listRequestsCmd(a))
	cmd.AddCommand(getRequestCmd(a))
	cmd.AddCommand(cancelCmd(a))
	cmd.AddCommand(reviewCmd(a))
	cmd.AddCommand(deleteCmd(a))
	return cmd
}

func listRequestsCmd(a *app) *cobra.Command {
	var o client.ListOptions
	var mine bool
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List requests of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if mine {
				s := c.Session()
				if s == nil || s.User == nil {
					return fmt.Errorf("--mine needs a login session")
				}
				o.UserID = s.User.ID
			}
			rows, err := c.ListRequests(cmd.Context(), d, o)
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, rows, requestTable(rows))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.Status, "status", "", "Only this status")
	f.StringVar(&o.ExcludeStatus, "exclude-status", "", "Leave out this status")
	f.StringVarP(&o.Query, "query", "q", "", "Match service ID or description")
	f.BoolVar(&o.SortAsc, "asc", false, "Oldest first")
	f.IntVar(&o.Limit, "limit", 0, "Maximum rows")
	f.BoolVar(&mine, "mine", false, "Only requests submitted by the logged-in account")
	return cmd
}

func getRequestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			rec, err := c.GetRequest(cmd.Context(), d, args[1])
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, rec, requestTable([]models.ServiceRequest{rec}))
		},
	}
}

func cancelCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <collection> <id>",
		Short: "Cancel one of your own requests",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			rec, err := c.Cancel(cmd.Context(), d, args[1], reason)
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, rec, requestTable([]models.ServiceRequest{rec}))
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Cancellation reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func reviewCmd(a *app) *cobra.Command {
	var upd models.StatusUpdate
	var diesel float64
	cmd := &cobra.Command{
		Use:   "review <collection> <id>",
		Short: "Move a request to a new status (staff only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			if _, err := lifecycle.For(d).Parse(upd.Status); err != nil {
				return err
			}
			if cmd.Flags().Changed("diesel-cost") {
				upd.DieselCost = &diesel
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if s := c.Session(); s != nil && s.User != nil {
				upd.AdminID = s.User.ID
				upd.AdminName = strings.TrimSpace(s.User.FirstName + " " + s.User.LastName)
			}
			rec, err := c.UpdateStatus(cmd.Context(), d, args[1], upd)
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, rec, requestTable([]models.ServiceRequest{rec}))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&upd.Status, "status", "s", "", "New status")
	f.StringVarP(&upd.AdminComment, "comment", "m", "", "Comment shown to the resident")
	f.Float64Var(&diesel, "diesel-cost", 0, "Diesel cost for ambulance trips")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a request (staff only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteRequest(cmd.Context(), d, args[1]); err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Deleted %s %s\n", client.Collection(d), args[1])
			return nil
		},
	}
}

func proposalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "Browse project proposals",
	}
	var q client.ProposalQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List proposals the way the review screen shows them",
		Long: `List proposals. Rejected proposals are archived: they only show when
--show-archived is set or --status rejected is asked for explicitly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			props, err := c.ListProposals(cmd.Context(), q)
			if err != nil {
				return describe(err)
			}
			rows := make([]models.ServiceRequest, len(props))
			for i, p := range props {
				rows[i] = p
			}
			return outputResult(a.out, a.output, props, requestTable(rows))
		},
	}
	list.Flags().StringVar(&q.StatusFilter, "status", "all", "Status filter, or all")
	list.Flags().BoolVar(&q.ShowArchived, "show-archived", false, "Include rejected proposals")
	list.Flags().StringVarP(&q.Search, "query", "q", "", "Match service ID or title")
	cmd.AddCommand(list)
	return cmd
}

func courtCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "court",
		Short: "Court availability",
	}
	var month string
	calendar := &cobra.Command{
		Use:   "calendar",
		Short: "Show reservations on the calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			events, err := c.CourtCalendar(cmd.Context(), month)
			if err != nil {
				return describe(err)
			}
			t := &table{header: []string{"START", "END", "STATUS", "TITLE"}}
			for _, e := range events {
				t.add(formatTime(e.Start), formatTime(e.End), string(e.Status), e.Title)
			}
			return outputResult(a.out, a.output, events, t)
		},
	}
	calendar.Flags().StringVar(&month, "month", "", "Month as YYYY-MM")
	cmd.AddCommand(calendar)

	var start, end string
	check := &cobra.Command{
		Use:   "check",
		Short: "Check whether a time range is free",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(start)
			if err != nil {
				return err
			}
			to, err := parseTime(end)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			conflict, err := c.CourtConflict(cmd.Context(), from, to)
			if err != nil {
				return describe(err)
			}
			if a.output == "json" {
				return outputResult(a.out, a.output, map[string]bool{"hasConflict": conflict}, nil)
			}
			if conflict {
				fmt.Fprintln(a.out, "The court is already reserved in that range")
			} else {
				fmt.Fprintln(a.out, "The court is free")
			}
			return nil
		},
	}
	check.Flags().StringVar(&start, "start", "", "Range start")
	check.Flags().StringVar(&end, "end", "", "Range end")
	_ = check.MarkFlagRequired("start")
	_ = check.MarkFlagRequired("end")
	cmd.AddCommand(check)
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var q search.Query
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search across every request (staff only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = args[0]
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.Search(cmd.Context(), q)
			if err != nil {
				return describe(err)
			}
			t := &table{header: []string{"SERVICE ID", "TYPE", "STATUS", "TITLE", "SCORE"}}
			for _, h := range res.Hits {
				doc := h.Document
				t.add(doc.ServiceID, doc.Domain, doc.Status, doc.Title, strconv.FormatFloat(h.Score, 'f', 2, 64))
			}
			return outputResult(a.out, a.output, res, t)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Domain, "type", "", "Restrict to one request type")
	f.StringVar(&q.Status, "status", "", "Restrict to one status")
	f.IntVar(&q.From, "from", 0, "Offset of the first hit")
	f.IntVar(&q.Size, "size", 0, "Number of hits")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Download a collection as an Excel workbook (staff only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			data, err := c.Export(cmd.Context(), d)
			if err != nil {
				return describe(err)
			}
			if file == "" {
				file = client.Collection(d) + ".xlsx"
			}
			if err := afero.WriteFile(a.fs, file, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			fmt.Fprintf(a.out, "Wrote %s (%d bytes)\n", file, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (defaults to <collection>.xlsx)")
	return cmd
}

func statusesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "statuses <collection>",
		Short: "Show the statuses of a request type and where each can move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			type row struct {
				Status lifecycle.Status `json:"status"`
				lifecycle.Presentation
				Next []lifecycle.Status `json:"next"`
			}
			m := lifecycle.For(d)
			var rows []row
			t := &table{header: []string{"STATUS", "LABEL", "COLOR", "NEXT"}}
			for _, s := range m.Statuses() {
				r := row{Status: s, Presentation: lifecycle.Display(d, s), Next: m.Next(s)}
				rows = append(rows, r)
				next := make([]string, len(r.Next))
				for i, n := range r.Next {
					next[i] = string(n)
				}
				if len(next) == 0 {
					next = []string{"-"}
				}
				t.add(string(s), r.Label, r.Color, strings.Join(next, ","))
			}
			return outputResult(a.out, a.output, rows, t)
		},
	}
}
