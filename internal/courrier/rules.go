package courrier

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for every courrier date.
const DateLayout = "2006-01-02"

// EndpointKind is the category an endpoint must draw from.
type EndpointKind string

const (
	KindExternal  EndpointKind = "external"
	KindHierarchy EndpointKind = "hierarchy"
	KindAny       EndpointKind = "any"
)

// Direction reports whether the type is a received or sent courrier ("" otherwise).
func (t Type) Direction() string {
	s := strings.ToLower(string(t))
	switch {
	case strings.HasPrefix(s, "received"):
		return "received"
	case strings.HasPrefix(s, "sent"):
		return "sent"
	}
	return ""
}

func (t Type) IsSent() bool     { return t.Direction() == "sent" }
func (t Type) IsReceived() bool { return t.Direction() == "received" }

// EndpointKinds returns the required kinds for (from, to). Received courriers
// come from an external entity into the hierarchy; sent ones go the other way.
func EndpointKinds(t Type) (from, to EndpointKind) {
	switch t.Direction() {
	case "received":
		return KindExternal, KindHierarchy
	case "sent":
		return KindHierarchy, KindExternal
	}
	return KindAny, KindAny
}

// AllowedStatuses lists the statuses a courrier of type t may hold.
func AllowedStatuses(t Type) []Status {
	if t.IsSent() {
		return []Status{StatusArchived, StatusPending}
	}
	return append([]Status(nil), Statuses...)
}

func statusAllowed(t Type, s Status) bool {
	for _, a := range AllowedStatuses(t) {
		if a == s {
			return true
		}
	}
	return false
}

// NormalizeStatus remaps a status the type cannot hold. Sent courriers are never
// "En cours": they are archived as soon as they leave.
func NormalizeStatus(t Type, s Status) Status {
	if t.IsSent() && s == StatusInProgress {
		return StatusArchived
	}
	return s
}

// Indicator is the priority badge shown next to a courrier.
type Indicator struct {
	Level string `json:"level"`
	Icon  string `json:"icon"`
}

// PriorityIndicator resolves the badge. Sent courriers and courriers in progress
// are always urgent; otherwise the stored priority decides.
func PriorityIndicator(t Type, s Status, p Priority) Indicator {
	if t.IsSent() || s == StatusInProgress {
		return Indicator{Level: "urgent", Icon: "arrow-up"}
	}
	switch p {
	case PriorityHigh:
		return Indicator{Level: string(PriorityHigh), Icon: "chevron-up"}
	case PriorityLow:
		return Indicator{Level: string(PriorityLow), Icon: "chevron-down"}
	}
	return Indicator{Level: string(PriorityMedium), Icon: "minus"}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// FieldError is one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a courrier. Nothing is stored
// when one is returned.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "invalid courrier: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

func parseDay(ve *ValidationError, field, v string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		ve.add(field, "expected a date in YYYY-MM-DD form, got %q", v)
		return time.Time{}, false
	}
	return d, true
}

// ValidateDates enforces dateArrive < dateEnregistrer < dateRetour and that
// neither the registration nor the return date is after today.
func ValidateDates(arrive, enregistrer, retour, today string) error {
	ve := &ValidationError{}
	validateDates(ve, arrive, enregistrer, retour, today)
	return ve.err()
}

func validateDates(ve *ValidationError, arrive, enregistrer, retour, today string) {
	if arrive == "" {
		ve.add("dateArrive", "is required")
	}
	if enregistrer == "" {
		ve.add("dateEnregistrer", "is required")
	}
	if arrive == "" || enregistrer == "" {
		return
	}
	a, okA := parseDay(ve, "dateArrive", arrive)
	e, okE := parseDay(ve, "dateEnregistrer", enregistrer)
	t, okT := parseDay(ve, "today", today)
	if !okT {
		return
	}
	if okE && e.After(t) {
		ve.add("dateEnregistrer", "cannot be in the future")
	}
	if okA && okE && !a.Before(e) {
		ve.add("dateArrive", "must be strictly before dateEnregistrer")
	}
	if retour == "" {
		return
	}
	r, okR := parseDay(ve, "dateRetour", retour)
	if !okR {
		return
	}
	if r.After(t) {
		ve.add("dateRetour", "cannot be in the future")
	}
	if okE && !r.After(e) {
		ve.add("dateRetour", "must be strictly after dateEnregistrer")
	}
}

func validateEndpoint(ve *ValidationError, field string, ep Endpoint, want EndpointKind, cat *Catalog) {
	if ep.IsZero() {
		ve.add(field, "is required")
		return
	}
	got := ep.Kind()
	if got == KindAny {
		ve.add(field, "must be either an external entity or a hierarchy path, not both")
		return
	}
	if want != KindAny && got != want {
		ve.add(field, "must be an %s endpoint for this type", want)
		return
	}
	if cat == nil {
		return
	}
	switch got {
	case KindExternal:
		if !cat.HasEntity(ep.External) {
			ve.add(field, "unknown external entity %q", ep.External)
		}
	case KindHierarchy:
		if !cat.HasPath(*ep.Hierarchy) {
			ve.add(field, "unknown hierarchy path %q", ep.Hierarchy.String())
		}
	}
}

// Validate checks a courrier against the classification rules, the catalog and
// the date ordering. The status must already be normalized.
func Validate(d *Document, cat *Catalog, today string) error {
	ve := &ValidationError{}
	if strings.TrimSpace(d.Subject) == "" {
		ve.add("subject", "is required")
	}
	typeOK := d.Type.Valid()
	if !typeOK {
		ve.add("type", "unknown type %q", d.Type)
	}
	switch {
	case !d.Status.Valid():
		ve.add("status", "unknown status %q", d.Status)
	case typeOK && !statusAllowed(d.Type, d.Status):
		ve.add("status", "%q is not allowed for type %q", d.Status, d.Type)
	}
	if !d.Priority.Valid() {
		ve.add("priority", "unknown priority %q", d.Priority)
	}
	if typeOK {
		from, to := EndpointKinds(d.Type)
		validateEndpoint(ve, "from", d.From, from, cat)
		validateEndpoint(ve, "to", d.To, to, cat)
	}
	validateDates(ve, d.DateArrive, d.DateEnregistrer, d.DateRetour, today)
	return ve.err()
}

// Prepare applies the defaults and remaps every save goes through.
func Prepare(d *Document) {
	d.Subject = strings.TrimSpace(d.Subject)
	if d.Status == "" {
		d.Status = StatusInProgress
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	d.Status = NormalizeStatus(d.Type, d.Status)
}
