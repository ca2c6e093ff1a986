// Package lifecycle holds the status machines shared by every service
// request type: which statuses exist per domain, which transitions are
// allowed, and how each status is presented.
package lifecycle

import "fmt"

type Domain string

const (
	DomainProposal  Domain = "proposal"
	DomainAmbulance Domain = "ambulance"
	DomainCourt     Domain = "court"
	DomainDocument  Domain = "document"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusInReview      Status = "in_review"
	StatusConsidered    Status = "considered"
	StatusNeedsApproval Status = "needs_approval"
	StatusBooked        Status = "booked"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// residentFinal are the statuses after which a resident can no longer
// cancel, whatever the domain.
var residentFinal = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Machine is the status machine of one domain.
type Machine struct {
	domain      Domain
	statuses    []Status
	transitions map[Status]map[Status]bool
}

var machines = map[Domain]*Machine{
	DomainProposal: {
		domain:   DomainProposal,
		statuses: []Status{StatusPending, StatusInReview, StatusConsidered, StatusApproved, StatusRejected, StatusCancelled},
		transitions: map[Status]map[Status]bool{
			StatusPending:    {StatusInReview: true, StatusConsidered: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusInReview:   {StatusConsidered: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusConsidered: {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusApproved:   {},
			StatusRejected:   {},
			StatusCancelled:  {},
		},
	},
	DomainAmbulance: {
		domain:   DomainAmbulance,
		statuses: []Status{StatusPending, StatusNeedsApproval, StatusBooked, StatusCompleted, StatusCancelled},
		transitions: map[Status]map[Status]bool{
			StatusPending:       {StatusBooked: true, StatusNeedsApproval: true, StatusCancelled: true},
			StatusNeedsApproval: {StatusBooked: true, StatusCancelled: true},
			StatusBooked:        {StatusCompleted: true, StatusCancelled: true},
			StatusCompleted:     {},
			StatusCancelled:     {},
		},
	},
	DomainCourt: {
		domain:   DomainCourt,
		statuses: []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled},
		transitions: map[Status]map[Status]bool{
			StatusPending:   {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusApproved:  {StatusCancelled: true},
			StatusRejected:  {},
			StatusCancelled: {},
		},
	},
	DomainDocument: {
		domain:   DomainDocument,
		statuses: []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled},
		transitions: map[Status]map[Status]bool{
			StatusPending:   {StatusInReview: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusInReview:  {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
			StatusApproved:  {StatusCompleted: true},
			StatusRejected:  {},
			StatusCompleted: {},
			StatusCancelled: {},
		},
	},
}

// For returns the machine of d. It panics on an unknown domain since
// domains are compile-time constants.
func For(d Domain) *Machine {
	m, ok := machines[d]
	if !ok {
		panic(fmt.Sprintf("lifecycle: unknown domain %q", d))
	}
	return m
}

// Domains lists every registered domain.
func Domains() []Domain {
	return []Domain{DomainProposal, DomainAmbulance, DomainCourt, DomainDocument}
}

// IsDomain reports whether d is registered.
func IsDomain(d Domain) bool {
	_, ok := machines[d]
	return ok
}

func (m *Machine) Domain() Domain { return m.domain }

// Statuses returns the closed status set in display order.
func (m *Machine) Statuses() []Status {
	out := make([]Status, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// Parse validates s against the domain's status set.
func (m *Machine) Parse(s string) (Status, error) {
	st := Status(s)
	if _, ok := m.transitions[st]; !ok {
		return "", fmt.Errorf("unknown %s status: %q", m.domain, s)
	}
	return st, nil
}

func (m *Machine) CanTransition(from, to Status) bool {
	next, ok := m.transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Next lists the statuses reachable from from in display order.
func (m *Machine) Next(from Status) []Status {
	var out []Status
	for _, s := range m.statuses {
		if m.CanTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves s.
func (m *Machine) IsTerminal(s Status) bool {
	return len(m.transitions[s]) == 0
}

// CanResidentCancel reports whether the submitting resident may cancel a
// request currently in s.
func (m *Machine) CanResidentCancel(s Status) bool {
	if residentFinal[s] {
		return false
	}
	return m.CanTransition(s, StatusCancelled)
}

// CanCancelProposal gates the resident cancel action on proposals.
func CanCancelProposal(s Status) bool {
	return For(DomainProposal).CanResidentCancel(s)
}
