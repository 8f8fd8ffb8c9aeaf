package httptransport

import "expvar"

var (
	metricSSEConnectionsTotal  = expvar.NewInt("room_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("room_sse_connections_active")
	metricSweepRequestsTotal   = expvar.NewInt("admin_sweep_requests_total")
)
