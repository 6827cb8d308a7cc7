package processor

import (
	"context"
	"fmt"

	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/tom"
	"github.com/warp-contracts/tom-indexer/src/utxo"

	"github.com/sirupsen/logrus"
)

// Downloads documents published through anchorUrl
type AnchorFetcher interface {
	Fetch(ctx context.Context, url, dataHash string) ([]byte, error)
}

// Applies TOM events to the normalized treasury model, one at a time.
// All writes caused by one event are done in a single repository transaction.
type Processor struct {
	log     *logrus.Entry
	config  *config.Config
	repo    store.Repository
	source  ledger.Source
	pattern ledger.AddressPattern

	resolver *utxo.Resolver
	anchors  AnchorFetcher
}

func NewProcessor(config *config.Config) (self *Processor) {
	self = new(Processor)
	self.config = config
	self.log = logger.NewSublogger("processor")
	self.pattern = ledger.AddressPattern(config.Ledger.ScriptAddressPrefix)
	return
}

func (self *Processor) WithRepository(repo store.Repository) *Processor {
	self.repo = repo
	return self
}

func (self *Processor) WithSource(source ledger.Source) *Processor {
	self.source = source
	self.resolver = utxo.NewResolver(self.config).WithSource(source)
	return self
}

// Optional, documents referenced by anchors are ignored without it
func (self *Processor) WithAnchorFetcher(anchors AnchorFetcher) *Processor {
	self.anchors = anchors
	return self
}

// Applies the event. An error means nothing was stored and the event may be retried
func (self *Processor) Process(ctx context.Context, event *ledger.RawEvent) (out *Outcome, err error) {
	log := self.log.WithField("tx_hash", event.TxHash).WithField("slot", event.Slot)

	payload, err := tom.Parse(event.Body)
	if err != nil {
		log.WithError(err).Debug("Malformed metadata, skipping")
		return &Outcome{Kind: OutcomeNoBody}, nil
	}
	if payload == nil {
		log.Debug("No metadata body, skipping")
		return &Outcome{Kind: OutcomeNoBody}, nil
	}

	payload, err = self.anchored(ctx, payload)
	if err != nil {
		return nil, err
	}

	eventType, ok := payload.EventType()
	if !ok {
		log.WithField("event", payload.Event).Debug("Unknown event type, skipping")
		return &Outcome{Kind: OutcomeUnknownType, EventType: eventType}, nil
	}

	err = self.repo.Transaction(ctx, func(repo store.Repository) error {
		a := &application{
			Processor: self,
			ctx:       ctx,
			log:       log.WithField("event", eventType),
			repo:      repo,
			event:     event,
			payload:   payload,
			outcome:   &Outcome{Kind: OutcomeApplied, EventType: eventType.Canonical()},
		}
		err := a.apply(eventType)
		out = a.outcome
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s event %s: %w", eventType, event.TxHash, err)
	}

	return
}

// Replaces an anchor-only payload with the referenced document
func (self *Processor) anchored(ctx context.Context, payload *tom.Payload) (*tom.Payload, error) {
	if self.anchors == nil {
		return payload, nil
	}
	if _, ok := payload.EventType(); ok {
		return payload, nil
	}

	documentUrl, dataHash, ok := payload.Anchor()
	if !ok {
		return payload, nil
	}

	content, err := self.anchors.Fetch(ctx, documentUrl, dataHash)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve anchor: %w", err)
	}

	doc, err := tom.Parse(content)
	if err != nil || doc == nil {
		self.log.WithField("url", documentUrl).Warn("Anchor document is not a JSON object, ignoring")
		return payload, nil
	}

	return payload.WithAnchored(doc), nil
}
