package recon

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
)

type PubSubPushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageId string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ChangeFeedPayload is the batch shape the external filter-change feed
// publishes. Each record lands independently.
type ChangeFeedPayload struct {
	Source  string                         `json:"source"`
	Records []models.NewFilterChangeRecord `json:"records"`
}

type ReconcileDonePayload struct {
	Requested int  `json:"requested"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Deadline  bool `json:"deadline_hit"`
}

func feedTopicName() string {
	name := strings.TrimSpace(os.Getenv("FILTER_SYNC_TOPIC"))
	if name == "" {
		name = "filter-change-sync"
	}
	return name
}

// PublishReconcileDone tells downstream listeners a bulk confirm
// finished. Failure to publish is the caller's to log, not fatal.
func PublishReconcileDone(ctx context.Context, report *BulkReconcileReport) error {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}

	topicName := feedTopicName()
	topic := client.Topic(topicName)
	if utils.EnvBoolDefault("FILTER_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := ReconcileDonePayload{
		Requested: report.Requested,
		Succeeded: len(report.Succeeded),
		Failed:    len(report.Failed),
		Deadline:  report.Deadline,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler ingests change-record batches pushed by the feed
// subscription. Always acks: a malformed envelope would otherwise
// redeliver forever, and per-record failures are logged rather than
// failing the batch.
func PubSubPushHandler() gin.HandlerFunc {
	logger := config.GetLogger()
	return func(c *gin.Context) {
		if !utils.EnvBoolDefault("ENABLE_FEED_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload ChangeFeedPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}

		ctx := c.Request.Context()
		for i := range payload.Records {
			input := payload.Records[i]
			if input.SourceRef == "" && envelope.Message.MessageId != "" {
				input.SourceRef = payload.Source + ":" + envelope.Message.MessageId
			}
			if _, err := models.CreateFilterChangeRecord(ctx, &input); err != nil {
				config.LogError(logger, "recon", "PubSubPushHandler", "ingest record", input, err)
			}
		}
		c.Status(204)
	}
}
