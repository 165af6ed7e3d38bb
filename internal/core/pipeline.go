package core

import (
	"context"

	"go.uber.org/zap"
)

// Pipeline classifies, indexes and fans out each synced message
type Pipeline struct {
	classifier *ClassificationService
	index      IndexStore
	dispatcher Dispatcher
	triggers   LabelSet
	retrier    Retrier
	logger     *zap.Logger
}

// NewPipeline creates the per-message handler used by the sync orchestrator
func NewPipeline(
	classifier *ClassificationService,
	index IndexStore,
	dispatcher Dispatcher,
	triggers LabelSet,
	retrier Retrier,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		index:      index,
		dispatcher: dispatcher,
		triggers:   triggers,
		retrier:    retrier,
		logger:     logger,
	}
}

// Handle processes one message. It never fails: every error is logged and the
// message stays in the index in whatever state it last reached.
func (p *Pipeline) Handle(ctx context.Context, msg Message) {
	log := p.logger.With(
		zap.String("account", msg.Account),
		zap.String("subject", msg.Subject))

	label, err := p.classifier.Classify(ctx, msg)
	if err != nil {
		log.Error("Classification failed, leaving message unlabeled",
			zap.String("op", "classify"),
			zap.Error(err))
		return
	}

	labeled := msg.WithLabel(label)
	if err := UpsertWithRetry(ctx, p.index, p.retrier, labeled); err != nil {
		log.Error("Failed to index labeled message",
			zap.String("op", "index"),
			zap.String("label", string(label)),
			zap.Error(err))
		return
	}

	log.Info("Message classified", zap.String("label", string(label)))

	if p.dispatcher == nil || !p.triggers.Has(label) {
		return
	}

	// Claim before dispatch so a message is alerted at most once, even when
	// later syncs fetch it again.
	first, err := p.index.MarkNotified(ctx, labeled.Key())
	if err != nil {
		log.Error("Failed to record notification, skipping fanout",
			zap.String("op", "notify"),
			zap.Error(err))
		return
	}
	if !first {
		log.Debug("Message already notified", zap.String("label", string(label)))
		return
	}

	res := p.dispatcher.Dispatch(ctx, labeled)
	log.Info("Notifications dispatched",
		zap.Strings("delivered", res.Delivered),
		zap.Strings("skipped", res.Skipped),
		zap.Strings("failed", res.Failed))
}

// Handler adapts the pipeline to the orchestrator's handler type
func (p *Pipeline) Handler() MessageHandler {
	return p.Handle
}

// UpsertWithRetry writes msg through retrier when one is configured
func UpsertWithRetry(ctx context.Context, index IndexStore, retrier Retrier, msg Message) error {
	if retrier == nil {
		return index.Upsert(ctx, msg)
	}
	return retrier.Do(ctx, "index_upsert", func(ctx context.Context) error {
		return index.Upsert(ctx, msg)
	})
}
