package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/livechat"
	"github.com/aretw0/surface/pkg/publisher"
)

// Publisher is the part of publisher.Publisher the ingestor needs.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) (publisher.Result, error)
}

// IngestResult reports what a live-chat message became.
type IngestResult struct {
	// Ignored is set for transcript events.
	Ignored bool `json:"ignored,omitempty"`
	// User is set when the message echoed the customer's own input.
	User *domain.UserMessage `json:"user,omitempty"`
	// Response is the normalized turn for agent and system messages.
	Response *domain.AssistantResponse `json:"response,omitempty"`
	// Published counts the components delivered to a live connection.
	Published int `json:"published"`
}

// Ingestor feeds foreign live-chat messages into conversations.
type Ingestor struct {
	mgr        *Manager
	pub        Publisher
	normalizer *livechat.Normalizer
	catalog    *catalog.Catalog
	logger     *slog.Logger
}

// IngestOption configures the Ingestor.
type IngestOption func(*Ingestor)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *livechat.Normalizer) IngestOption {
	return func(in *Ingestor) {
		in.normalizer = n
	}
}

// WithIngestCatalog resolves componentUrl and version of normalized components.
func WithIngestCatalog(c *catalog.Catalog) IngestOption {
	return func(in *Ingestor) {
		in.catalog = c
	}
}

// WithIngestLogger sets the logger.
func WithIngestLogger(logger *slog.Logger) IngestOption {
	return func(in *Ingestor) {
		in.logger = logger
	}
}

// NewIngestor creates an ingestor delivering through pub to sessions of mgr.
func NewIngestor(mgr *Manager, pub Publisher, opts ...IngestOption) *Ingestor {
	in := &Ingestor{
		mgr:        mgr,
		pub:        pub,
		normalizer: livechat.NewNormalizer(),
		catalog:    catalog.New(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest normalizes msg and delivers it to the conversation.
//
// Agent and system messages become a complete turn that is recorded in the live
// session (if any) and published component by component, so the client sees the
// same shapes it gets from workflow nodes. Customer echoes are recorded as user
// messages. Events are ignored.
func (in *Ingestor) Ingest(ctx context.Context, userID, conversationID string, msg livechat.Message) (IngestResult, error) {
	if livechat.IsEvent(msg) {
		return IngestResult{Ignored: true}, nil
	}

	s, live := in.mgr.Session(userID, conversationID)

	if livechat.IsCustomer(msg) {
		um := in.normalizer.ToUserMessage(msg)
		if live {
			err := in.mgr.WithLock(ctx, s.Key(), func(context.Context) error {
				um = s.History().AddUserMessageWithChat(um.Content, um.ChatID)
				return nil
			})
			if err != nil {
				return IngestResult{}, err
			}
		}
		return IngestResult{User: &um}, nil
	}

	resp := in.normalizer.Normalize(msg)
	if live {
		err := in.mgr.WithLock(ctx, s.Key(), func(context.Context) error {
			resp = s.History().AddResponse(resp)
			return nil
		})
		if err != nil {
			return IngestResult{}, err
		}
	}

	result := IngestResult{Response: &resp}
	for i, c := range resp.Components {
		payload := domain.ComponentPayload{
			Type:     c.ComponentType,
			Props:    c.Props,
			Metadata: domain.CloneMap(c.Metadata),
		}
		if i == len(resp.Components)-1 {
			payload.Metadata[domain.MetaStreamingState] = string(domain.StreamingComplete)
		}
		payload, err := in.catalog.ResolveUpdate(payload)
		if err != nil {
			return result, fmt.Errorf("resolve %s: %w", c.ComponentType, err)
		}

		res, err := in.pub.Publish(ctx, domain.PublishRequest{
			Component:      payload,
			ChatID:         c.ChatID,
			ConversationID: conversationID,
			UserID:         userID,
			ProviderID:     in.normalizer.System(),
			NodeID:         c.NodeID,
		})
		if err != nil {
			return result, err
		}
		if res.Success {
			result.Published++
		}
	}

	in.logger.Debug("Live-chat message ingested",
		"connection", domain.ConnectionKey(userID, conversationID),
		"components", len(resp.Components),
		"published", result.Published,
		"agent", livechat.AgentNameOf(resp),
	)
	return result, nil
}
