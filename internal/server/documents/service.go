package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/google/uuid"
)

// Publisher announces that a collection changed.
type Publisher interface {
	Publish(ctx context.Context, collection string) error
}

// Service implements document CRUD and emits one change event per
// successful mutation.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(repo Repository, publisher Publisher, logger logging.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("module", "documents"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

func (s *Service) List(ctx context.Context, collection string) ([]*Document, error) {
	if err := common.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, collection)
}

func (s *Service) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := common.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, collection, id)
}

// Create stores data under a fresh server-assigned id. An "id" key in data
// is ignored.
func (s *Service) Create(ctx context.Context, collection string, data map[string]any) (*Document, error) {
	if err := common.ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	now := s.now()
	doc := &Document{
		ID:         s.newID(),
		Collection: collection,
		Data:       map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyPatch(doc.Data, data)

	if err := s.repo.Insert(ctx, doc); err != nil {
		return nil, err
	}
	s.publish(ctx, collection)
	return doc, nil
}

// Update merges patch into the stored document. Nil values remove keys.
func (s *Service) Update(ctx context.Context, collection, id string, patch map[string]any) (*Document, error) {
	if err := common.ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	doc, err := s.repo.Modify(ctx, collection, id, func(d *Document) error {
		applyPatch(d.Data, patch)
		d.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, collection)
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if err := common.ValidateCollectionName(collection); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.publish(ctx, collection)
	return nil
}

// publish failures only delay subscribers until the next change, so they
// are logged and not returned.
func (s *Service) publish(ctx context.Context, collection string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, collection); err != nil {
		s.logger.Warn(ctx, "change notification failed", "collection", collection, "error", err)
	}
}
