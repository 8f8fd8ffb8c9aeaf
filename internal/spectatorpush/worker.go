package spectatorpush

import (
	"context"
	"time"

	"ludo-arena/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case job := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.deliver(ctx, job)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, job pushJob) {
	adapter, ok := m.adapters[job.Target.Platform]
	if !ok {
		metricPushDroppedTotal.Add(1)
		return
	}
	key := job.key()
	if err := m.breakers.allow(key, time.Now()); err != nil {
		metricPushCircuitOpenTotal.Add(1)
		m.requeue(job, err)
		return
	}
	err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, job.Message.platform())
	if err != nil {
		metricPushFailedTotal.Add(1)
		m.breakers.fail(key, time.Now())
		m.requeue(job, err)
		return
	}
	metricPushSentTotal.Add(1)
	m.breakers.reset(key)
}

// requeue schedules job again with exponential backoff, or gives up once
// RetryMax retries have been spent.
func (m *Manager) requeue(job pushJob, cause error) {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().Err(cause).
			Str("room_code", job.RoomCode).
			Str("event", job.EventType).
			Str("platform", job.Target.Platform).
			Int("attempts", job.Attempt+1).
			Msg("push dropped")
		return
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	m.retryQ.Enqueue(job, m.cfg.RetryBase<<(job.Attempt-1))
}

func (msg FormattedMessage) platform() platforms.Message {
	out := platforms.Message{
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Footer:      msg.Footer,
		Fields:      make([]platforms.Field, len(msg.Fields)),
	}
	for i, f := range msg.Fields {
		out.Fields[i] = platforms.Field{Name: f.Name, Value: f.Value, Inline: f.Inline}
	}
	return out
}
