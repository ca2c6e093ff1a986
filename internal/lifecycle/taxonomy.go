package lifecycle

// Presentation is how a status is shown: a color token, an icon name and a
// human label.
type Presentation struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

var unknownPresentation = Presentation{Color: "default", Icon: "HelpOutline", Label: "Unknown"}

var basePresentation = map[Status]Presentation{
	StatusPending:       {Color: "warning", Icon: "HourglassEmpty", Label: "Pending"},
	StatusInReview:      {Color: "info", Icon: "RateReview", Label: "In Review"},
	StatusConsidered:    {Color: "secondary", Icon: "Lightbulb", Label: "Considered"},
	StatusNeedsApproval: {Color: "warning", Icon: "LocalGasStation", Label: "Needs Approval"},
	StatusBooked:        {Color: "primary", Icon: "EventAvailable", Label: "Booked"},
	StatusApproved:      {Color: "success", Icon: "CheckCircle", Label: "Approved"},
	StatusRejected:      {Color: "error", Icon: "Cancel", Label: "Rejected"},
	StatusCompleted:     {Color: "success", Icon: "TaskAlt", Label: "Completed"},
	StatusCancelled:     {Color: "default", Icon: "Block", Label: "Cancelled"},
}

var domainPresentation = map[Domain]map[Status]Presentation{
	DomainAmbulance: {
		StatusNeedsApproval: {Color: "warning", Icon: "LocalGasStation", Label: "Awaiting Diesel Confirmation"},
	},
	DomainCourt: {
		StatusApproved: {Color: "success", Icon: "SportsBasketball", Label: "Reserved"},
	},
	DomainDocument: {
		StatusCompleted: {Color: "success", Icon: "Description", Label: "Ready for Pickup"},
	},
}

// Display maps a status of domain d to its presentation. A status that is
// not part of d's machine, or a domain that is not registered, gets the
// neutral "Unknown" entry, so the function is total.
func Display(d Domain, s Status) Presentation {
	m, ok := machines[d]
	if !ok {
		return unknownPresentation
	}
	if _, ok := m.transitions[s]; !ok {
		return unknownPresentation
	}
	if p, ok := domainPresentation[d][s]; ok {
		return p
	}
	if p, ok := basePresentation[s]; ok {
		return p
	}
	return unknownPresentation
}

// IsKnown reports whether s belongs to d and Display has a real entry for it.
func IsKnown(d Domain, s Status) bool {
	return Display(d, s) != unknownPresentation
}
