package gateway

import "expvar"

var (
	metricIntentsTotal        = expvar.NewInt("intents_total")
	metricIntentErrorsTotal   = expvar.NewInt("intent_errors_total")
	metricMatchesTotal        = expvar.NewInt("matches_total")
	metricPlayersRemovedTotal = expvar.NewInt("players_removed_total")
	metricRoomsSweptTotal     = expvar.NewInt("rooms_swept_total")
	metricLogsReleasedTotal   = expvar.NewInt("room_logs_released_total")
)
