package redpanda

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// errCodeTopicAlreadyExists is TOPIC_ALREADY_EXISTS in the Kafka protocol.
const errCodeTopicAlreadyExists = 36

func topicBackoff() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 5 * time.Second
	expo.MaxElapsedTime = 30 * time.Second
	return expo
}

// ensureTopic creates topic unless it already exists. Transport errors are
// retried with bo; a broker rejecting the topic is not.
func ensureTopic(ctx context.Context, client kafkaClient, topic string, partitions int32, replicationFactor int16, bo backoff.BackOff) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 {
		return fmt.Errorf("partitions must be greater than 0")
	}
	if replicationFactor <= 0 {
		return fmt.Errorf("replication factor must be greater than 0")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000
	t := kmsg.NewCreateTopicsRequestTopic()
	t.Topic = topic
	t.NumPartitions = partitions
	t.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, t)

	op := func() error {
		resp, err := client.Request(ctx, &req)
		if err != nil {
			slog.Warn("create topic request failed", slog.String("topic", topic), slog.Any("error", err))
			return fmt.Errorf("request failed: %w", err)
		}
		ctr, ok := resp.(*kmsg.CreateTopicsResponse)
		if !ok {
			return backoff.Permanent(fmt.Errorf("unexpected response type: %T", resp))
		}
		for _, tr := range ctr.Topics {
			switch tr.ErrorCode {
			case 0:
				slog.Info("topic created", slog.String("topic", tr.Topic), slog.Int("partitions", int(partitions)))
			case errCodeTopicAlreadyExists:
				slog.Info("topic already exists", slog.String("topic", tr.Topic))
			default:
				msg := ""
				if tr.ErrorMessage != nil {
					msg = *tr.ErrorMessage
				}
				return backoff.Permanent(fmt.Errorf("create topic error: %s (code %d)", msg, tr.ErrorCode))
			}
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
