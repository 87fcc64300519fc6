package service

import (
	"context"
	"encoding/json"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/specification"
	"studyforge-be/internal/repository/unitofwork"
	"studyforge-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService embeds a module's context chunks in the background so
// transcript ingestion stays fast. Chunks keep a nil embedding until this
// consumer fills them in; retrieval degrades to time order in the meantime.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	sysLogger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		logger:            sysLogger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedChunksMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed, retrying will never help
		return
	}

	cs.logger.Info("CONSUMER", "embedding module chunks", map[string]interface{}{
		"module_id": payload.ModuleId,
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.ChunkRepository().FindAll(ctx, specification.ByModuleID{ModuleID: payload.ModuleId})
	if err != nil {
		cs.logger.Error("CONSUMER", "failed to load chunks", map[string]interface{}{
			"module_id": payload.ModuleId,
			"error":     err.Error(),
		})
		msg.Nack()
		return
	}
	if len(chunks) == 0 {
		cs.logger.Warn("CONSUMER", "no chunks for module", map[string]interface{}{
			"module_id": payload.ModuleId,
		})
		msg.Ack()
		return
	}

	embedded, failed := 0, 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) > 0 {
			continue // already embedded on a previous delivery
		}

		resp, err := cs.embeddingProvider.Generate(chunk.Text, embedding.TaskRetrievalDocument)
		if err != nil {
			cs.logger.Error("CONSUMER", "embedding call failed", map[string]interface{}{
				"chunk_id": chunk.ChunkID,
				"error":    err.Error(),
			})
			failed++
			continue
		}

		if err := uow.ChunkRepository().UpdateEmbedding(ctx, chunk.Id, resp.Embedding.Values); err != nil {
			cs.logger.Error("CONSUMER", "failed to store embedding", map[string]interface{}{
				"chunk_id": chunk.ChunkID,
				"error":    err.Error(),
			})
			failed++
			continue
		}
		embedded++
	}

	cs.logger.Info("CONSUMER", "module embedding pass finished", map[string]interface{}{
		"module_id": payload.ModuleId,
		"embedded":  embedded,
		"failed":    failed,
	})

	if failed > 0 {
		// Redeliver so the remaining chunks get another pass. Chunks that
		// succeeded are skipped on the retry.
		msg.Nack()
		return
	}
	msg.Ack()
}
