package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/courrier-mf/courrier/internal/courrier"
	"github.com/courrier-mf/courrier/internal/courrier/repository"
	"github.com/courrier-mf/courrier/internal/storage"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoAttachment = errors.New("courrier has no attachment")
	ErrUnknownType  = errors.New("unknown courrier type")
	ErrUnknownDraft = errors.New("unknown or already used draft")
)

// DownloadTTL bounds presigned attachment links.
const DownloadTTL = 15 * time.Minute

// Service defines the courrier operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, d *courrier.Document) (*courrier.Document, error)
	CreateFromDraft(ctx context.Context, d *courrier.Document, draftID string) (*courrier.Document, error)
	Get(ctx context.Context, id string) (*courrier.Document, error)
	List(ctx context.Context, f courrier.Filter) ([]*courrier.Document, error)
	Update(ctx context.Context, id string, d *courrier.Document) (*courrier.Document, error)
	ChangeType(ctx context.Context, id string, t courrier.Type) (*courrier.Document, error)
	Archive(ctx context.Context, id string) (*courrier.Document, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (courrier.Stats, error)

	Catalog() *courrier.Catalog
	Form(t courrier.Type) (courrier.Form, error)

	DraftFromUpload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*Draft, error)
	DraftFromScan(ctx context.Context) (*Draft, error)
	Attach(ctx context.Context, id, draftID string) (*courrier.Document, error)
	Detach(ctx context.Context, id string) (*courrier.Document, error)
	Download(ctx context.Context, id string) (*Download, error)
}

// Draft pre-fills the add dialog after a file was picked or scanned. DraftID
// is the only way to link the stored file to a courrier.
type Draft struct {
	DraftID         string          `json:"draftId"`
	Subject         string          `json:"subject"`
	Type            courrier.Type   `json:"type"`
	Status          courrier.Status `json:"status"`
	DateEnregistrer string          `json:"dateEnregistrer"`
	Attachment      string          `json:"attachment"`
}

// Download describes how to fetch a courrier's attachment. URL is empty when
// the attachment store only records names.
type Download struct {
	Name       string `json:"name"`
	Attachment string `json:"attachment"`
	URL        string `json:"url,omitempty"`
}

type Option func(*service)

func WithCatalog(c *courrier.Catalog) Option { return func(s *service) { s.catalog = c } }

func WithStore(st storage.AttachmentStore) Option { return func(s *service) { s.store = st } }

func WithScanner(sc Scanner) Option { return func(s *service) { s.scanner = sc } }

func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func WithLocation(loc *time.Location) Option { return func(s *service) { s.loc = loc } }

// New returns a Service over repo. Unset options default to the built-in
// catalog, the name-only attachment store and the unsupported scanner.
func New(repo repository.Repository, opts ...Option) Service {
	s := &service{
		repo:    repo,
		catalog: courrier.DefaultCatalog(),
		store:   storage.NameOnlyStore{},
		scanner: UnsupportedScanner{},
		now:     time.Now,
		loc:     time.UTC,
		drafts:  map[string]string{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// NewMongoService returns a Service backed by the courriers collection of db.
func NewMongoService(ctx context.Context, db *mongo.Database, opts ...Option) (Service, error) {
	repo, err := repository.NewMongoRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	return New(repo, opts...), nil
}

type service struct {
	repo    repository.Repository
	catalog *courrier.Catalog
	store   storage.AttachmentStore
	scanner Scanner
	now     func() time.Time
	loc     *time.Location

	mu     sync.Mutex
	drafts map[string]string // draft id -> attachment key
}

func (s *service) today() string { return courrier.Today(s.now(), s.loc) }

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// check runs the save pipeline: defaults and status remap, then validation.
func (s *service) check(d *courrier.Document) error {
	courrier.Prepare(d)
	err := courrier.Validate(d, s.catalog, s.today())
	var ve *courrier.ValidationError
	if errors.As(err, &ve) {
		for _, p := range ve.Problems {
			metrics.ValidationRejected.WithLabelValues(p.Field).Inc()
		}
	}
	return err
}

// Create registers a courrier. Attachments are server-owned: any key on d is
// dropped and only CreateFromDraft or Attach can set one.
func (s *service) Create(ctx context.Context, d *courrier.Document) (*courrier.Document, error) {
	doc := d.Clone()
	doc.Attachment = ""
	return s.create(ctx, doc)
}

// CreateFromDraft registers d with the file stored by an upload or scan draft.
// The draft is consumed only when the courrier is saved.
func (s *service) CreateFromDraft(ctx context.Context, d *courrier.Document, draftID string) (*courrier.Document, error) {
	key, ok := s.takeDraft(draftID)
	if !ok {
		return nil, ErrUnknownDraft
	}
	doc := d.Clone()
	doc.Attachment = key
	out, err := s.create(ctx, doc)
	if err != nil {
		s.putDraft(draftID, key)
		return nil, err
	}
	return out, nil
}

func (s *service) create(ctx context.Context, doc *courrier.Document) (*courrier.Document, error) {
	doc.ID = ""
	if err := s.check(doc); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("store courrier: %w", err)
	}
	metrics.CourriersCreated.WithLabelValues(string(doc.Type)).Inc()
	logger.Infof("courrier %d registered: type=%s subject=%q", doc.Num, doc.Type, doc.Subject)
	return doc, nil
}

func (s *service) Get(ctx context.Context, id string) (*courrier.Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

func (s *service) List(ctx context.Context, f courrier.Filter) ([]*courrier.Document, error) {
	if err := f.Check(); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

func (s *service) Update(ctx context.Context, id string, d *courrier.Document) (*courrier.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := d.Clone()
	next.ID = cur.ID
	next.Attachment = cur.Attachment
	if err := s.check(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, mapErr(err)
	}
	return next, nil
}

// ChangeType switches the type and remaps the status the new type cannot hold.
// The endpoints must already match the new type's kinds.
func (s *service) ChangeType(ctx context.Context, id string, t courrier.Type) (*courrier.Document, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cur.Type = t
	if err := s.check(cur); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, mapErr(err)
	}
	return cur, nil
}

func (s *service) Archive(ctx context.Context, id string) (*courrier.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cur.Status = courrier.StatusArchived
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, mapErr(err)
	}
	logger.Infof("courrier %d archived", cur.Num)
	return cur, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	logger.Infof("courrier %s deleted", id)
	return nil
}

func (s *service) Stats(ctx context.Context) (courrier.Stats, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return courrier.Stats{}, err
	}
	return courrier.Summarize(all), nil
}

func (s *service) Catalog() *courrier.Catalog { return s.catalog }

func (s *service) Form(t courrier.Type) (courrier.Form, error) {
	if !t.Valid() {
		return courrier.Form{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return courrier.FormFor(t, s.catalog), nil
}

// Attach links the file of a draft to an existing courrier, replacing any
// previous attachment.
func (s *service) Attach(ctx context.Context, id, draftID string) (*courrier.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key, ok := s.takeDraft(draftID)
	if !ok {
		return nil, ErrUnknownDraft
	}
	cur.Attachment = key
	if err := s.repo.Update(ctx, cur); err != nil {
		s.putDraft(draftID, key)
		return nil, mapErr(err)
	}
	return cur, nil
}

// Detach clears the attachment of a courrier. The stored object is kept.
func (s *service) Detach(ctx context.Context, id string) (*courrier.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Attachment == "" {
		return cur, nil
	}
	cur.Attachment = ""
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, mapErr(err)
	}
	return cur, nil
}

func (s *service) takeDraft(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.drafts[id]
	if ok {
		delete(s.drafts, id)
	}
	return key, ok
}

func (s *service) putDraft(id, key string) {
	s.mu.Lock()
	s.drafts[id] = key
	s.mu.Unlock()
}

func (s *service) newDraft(subject, attachment string) *Draft {
	id := uuid.NewString()
	s.putDraft(id, attachment)
	return &Draft{
		DraftID:         id,
		Subject:         subject,
		Type:            courrier.TypeReceivedExternal,
		Status:          courrier.StatusInProgress,
		DateEnregistrer: s.today(),
		Attachment:      attachment,
	}
}

// DraftFromUpload stores the picked file and pre-fills a draft named after it.
// The arrival date is left to the operator: it must precede registration.
func (s *service) DraftFromUpload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*Draft, error) {
	key, err := s.store.Put(ctx, name, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	return s.newDraft(storage.CleanName(name), key), nil
}

func (s *service) DraftFromScan(ctx context.Context) (*Draft, error) {
	scan, err := s.scanner.Scan(ctx)
	if err != nil {
		logger.Warnf("scan failed: %v", err)
		return nil, err
	}
	name := fmt.Sprintf("Scanned_Document_%s.pdf", s.today())
	key, err := s.store.Put(ctx, name, scan.Body, scan.Size, scan.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store scan: %w", err)
	}
	return s.newDraft(name, key), nil
}

func (s *service) Download(ctx context.Context, id string) (*Download, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Attachment == "" {
		return nil, ErrNoAttachment
	}
	out := &Download{Name: d.Subject, Attachment: d.Attachment}
	u, err := s.store.URL(ctx, d.Attachment, DownloadTTL)
	switch {
	case errors.Is(err, storage.ErrNoObjectStore):
	case err != nil:
		return nil, fmt.Errorf("presign attachment: %w", err)
	default:
		out.URL = u
	}
	return out, nil
}
