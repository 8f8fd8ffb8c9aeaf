package spectatorpush

import "expvar"

var (
	metricPushQueuedTotal       = expvar.NewInt("push_queued_total")
	metricPushDroppedTotal      = expvar.NewInt("push_dropped_total")
	metricPushRetryTotal        = expvar.NewInt("push_retry_total")
	metricPushRetryDroppedTotal = expvar.NewInt("push_retry_dropped_total")
	metricPushSentTotal         = expvar.NewInt("push_sent_total")
	metricPushFailedTotal       = expvar.NewInt("push_failed_total")
	metricPushCircuitOpenTotal  = expvar.NewInt("push_circuit_open_total")
	metricPushQueueLen          = expvar.NewInt("push_queue_len")
)
