// Package event publishes catalog domain events. The events are outbound
// notifications only; indexing never depends on them.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	pkgkafka "github.com/NurulloMahmud/tafakkur/pkg/kafka"
	"github.com/NurulloMahmud/tafakkur/pkg/logger"
)

// Topics written by this service.
var (
	TopicProductCreated  = pkgkafka.Topic("product", "created")
	TopicCategoryCreated = pkgkafka.Topic("category", "created")
	TopicUserRegistered  = pkgkafka.Topic("user", "registered")
)

// Source identifies this service in event envelopes.
const Source = "catalog-search"

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// ProductCreatedData is the payload of catalog.product.created.
type ProductCreatedData struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// CategoryCreatedData is the payload of catalog.category.created.
type CategoryCreatedData struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserRegisteredData is the payload of catalog.user.registered.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Producer publishes domain events. A Producer built with a nil Publisher
// drops every event, which is how KAFKA_ENABLED=false is honoured.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a producer over pub.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.pub != nil
}

// ProductCreated publishes catalog.product.created.
func (p *Producer) ProductCreated(ctx context.Context, prod *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, prod.ID, "product", ProductCreatedData{
		ID:    prod.ID,
		Title: prod.Title,
		Price: prod.Price.StringFixed(2),
	})
}

// CategoryCreated publishes catalog.category.created.
func (p *Producer) CategoryCreated(ctx context.Context, c *domain.Category) error {
	return p.publish(ctx, TopicCategoryCreated, c.ID, "category", CategoryCreatedData{
		ID:    c.ID,
		Title: c.Title,
	})
}

// UserRegistered publishes catalog.user.registered.
func (p *Producer) UserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, "user", UserRegisteredData{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

func (p *Producer) publish(ctx context.Context, topic, id, aggregate string, data any) error {
	if !p.Enabled() {
		return nil
	}

	ev, err := pkgkafka.NewEvent(topic, id, aggregate, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		ev.WithCorrelationID(cid)
	}

	if err := p.pub.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
