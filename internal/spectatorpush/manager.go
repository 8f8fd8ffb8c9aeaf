package spectatorpush

import (
	"context"
	"sync"
	"time"

	"ludo-arena/internal/gateway/stream"
	"ludo-arena/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

// Manager formats hub broadcasts and delivers them to webhook targets on a
// small worker pool. Observe never blocks: a full queue drops the message.
type Manager struct {
	cfg      Config
	router   Router
	adapters map[string]platforms.Adapter

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	breakers *breakers

	mu      sync.Mutex
	started bool
}

func NewManager(cfg Config) *Manager {
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	m := &Manager{
		cfg:    cfg,
		router: Router{},
		adapters: map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		},
		dispatchCh: make(chan pushJob, cfg.DispatchBuffer),
		done:       make(chan struct{}),
		breakers:   newBreakers(cfg.FailureThreshold, cfg.CircuitOpenDuration),
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done)
	return m
}

func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("targets", len(m.cfg.Targets)).Int("workers", m.cfg.Workers).Msg("spectator push started")
}

// Observe is registered as a hub observer.
func (m *Manager) Observe(ev stream.Event) {
	if !m.cfg.Enabled {
		return
	}
	targets := m.router.MatchTargets(m.cfg.Targets, ev.RoomCode, ev.Type)
	if len(targets) == 0 {
		return
	}
	msg, ok := FormatMessage(ev)
	if !ok {
		return
	}
	for _, target := range targets {
		m.enqueue(pushJob{Target: target, RoomCode: ev.RoomCode, EventType: ev.Type, Message: msg})
	}
}

func (m *Manager) enqueue(job pushJob) {
	select {
	case <-m.done:
		metricPushDroppedTotal.Add(1)
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
	default:
		metricPushDroppedTotal.Add(1)
	}
}
