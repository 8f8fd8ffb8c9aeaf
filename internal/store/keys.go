package store

const (
	RoomPrefix    = "room:"
	GamePrefix    = "game:"
	SessionPrefix = "session:"

	MatchmakingQueueKey    = "mm:queue"
	MatchmakingEntryPrefix = "mm:player:"
)

func RoomKey(code string) string {
	return RoomPrefix + code
}

func GameKey(code string) string {
	return GamePrefix + code
}

func SessionKey(playerID string) string {
	return SessionPrefix + playerID
}

func MatchmakingEntryKey(playerID string) string {
	return MatchmakingEntryPrefix + playerID
}
