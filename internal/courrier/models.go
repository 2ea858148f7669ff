package courrier

import "time"

// Type classifies a courrier by direction and origin. The string values are the
// labels operators already use in the register.
type Type string

const (
	TypeReceivedExternal Type = "received(Extr)"
	TypeSentExternal     Type = "sent(Extr)"
	TypeReceivedInternal Type = "received(Inter)"
	TypeSentInternal     Type = "sent(Inter)"
	TypeMinisterial      Type = "Ministre"
)

// Types lists every known type in display order.
var Types = []Type{TypeReceivedExternal, TypeSentExternal, TypeSentInternal, TypeReceivedInternal, TypeMinisterial}

func (t Type) Valid() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusInProgress Status = "En cours"
	StatusArchived   Status = "archivé"
	StatusPending    Status = "En attente"
)

var Statuses = []Status{StatusInProgress, StatusArchived, StatusPending}

func (s Status) Valid() bool {
	for _, k := range Statuses {
		if k == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// HierarchyRef points at a sub-directorate through its full path.
type HierarchyRef struct {
	Directorate    string `json:"directorate" bson:"directorate" yaml:"directorate"`
	Division       string `json:"division" bson:"division" yaml:"division"`
	SubDirectorate string `json:"subDirectorate" bson:"subDirectorate" yaml:"subDirectorate"`
}

func (h HierarchyRef) String() string {
	return h.Directorate + " / " + h.Division + " / " + h.SubDirectorate
}

// Endpoint is the sender or recipient of a courrier: either an external entity
// name or an internal hierarchy path, never both.
type Endpoint struct {
	External  string        `json:"external,omitempty" bson:"external,omitempty"`
	Hierarchy *HierarchyRef `json:"hierarchy,omitempty" bson:"hierarchy,omitempty"`
}

func ExternalEndpoint(name string) Endpoint { return Endpoint{External: name} }

func InternalEndpoint(directorate, division, sub string) Endpoint {
	return Endpoint{Hierarchy: &HierarchyRef{Directorate: directorate, Division: division, SubDirectorate: sub}}
}

// Kind reports which form the endpoint carries; KindAny means it is empty or
// ambiguous (both forms set).
func (e Endpoint) Kind() EndpointKind {
	switch {
	case e.External != "" && e.Hierarchy == nil:
		return KindExternal
	case e.External == "" && e.Hierarchy != nil:
		return KindHierarchy
	}
	return KindAny
}

func (e Endpoint) IsZero() bool { return e.External == "" && e.Hierarchy == nil }

func (e Endpoint) String() string {
	if e.Hierarchy != nil {
		return e.Hierarchy.String()
	}
	return e.External
}

// Document is a registered courrier. Dates are calendar days (YYYY-MM-DD) so
// they compare lexically and survive JSON/BSON round trips unchanged.
type Document struct {
	ID              string    `json:"id" bson:"id"`
	Num             int64     `json:"num" bson:"num"`
	Subject         string    `json:"subject" bson:"subject"`
	Type            Type      `json:"type" bson:"type"`
	DateArrive      string    `json:"dateArrive" bson:"dateArrive"`
	DateEnregistrer string    `json:"dateEnregistrer" bson:"dateEnregistrer"`
	DateRetour      string    `json:"dateRetour,omitempty" bson:"dateRetour,omitempty"`
	Status          Status    `json:"status" bson:"status"`
	Priority        Priority  `json:"priority" bson:"priority"`
	From            Endpoint  `json:"from" bson:"from"`
	To              Endpoint  `json:"to" bson:"to"`
	Attachment      string    `json:"attachment,omitempty" bson:"attachment,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy so callers never share Hierarchy pointers with a store.
func (d *Document) Clone() *Document {
	c := *d
	if d.From.Hierarchy != nil {
		h := *d.From.Hierarchy
		c.From.Hierarchy = &h
	}
	if d.To.Hierarchy != nil {
		h := *d.To.Hierarchy
		c.To.Hierarchy = &h
	}
	return &c
}

// Stats backs the dashboard summary cards.
type Stats struct {
	Total    int            `json:"total"`
	ByType   map[Type]int   `json:"byType"`
	ByStatus map[Status]int `json:"byStatus"`
}
