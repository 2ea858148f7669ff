package courrier

// Selector tells a client which control to render for an endpoint and what it
// may choose from. Entities is set for external (or any) selectors, Directorates
// for hierarchy (or any) selectors.
type Selector struct {
	Kind         EndpointKind  `json:"kind"`
	Entities     []string      `json:"entities,omitempty"`
	Directorates []Directorate `json:"directorates,omitempty"`
}

// Form describes the add/edit dialog for one courrier type.
type Form struct {
	Type     Type     `json:"type"`
	From     Selector `json:"from"`
	To       Selector `json:"to"`
	Statuses []Status `json:"statuses"`
}

func selectorFor(kind EndpointKind, cat *Catalog) Selector {
	s := Selector{Kind: kind}
	if kind == KindExternal || kind == KindAny {
		s.Entities = cat.ExternalEntities
	}
	if kind == KindHierarchy || kind == KindAny {
		s.Directorates = cat.Directorates
	}
	return s
}

// FormFor builds the dialog description for type t.
func FormFor(t Type, cat *Catalog) Form {
	from, to := EndpointKinds(t)
	return Form{
		Type:     t,
		From:     selectorFor(from, cat),
		To:       selectorFor(to, cat),
		Statuses: AllowedStatuses(t),
	}
}
