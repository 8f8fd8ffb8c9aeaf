package spectatorpush

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ludo-arena/internal/gateway"
	"ludo-arena/internal/gateway/stream"
)

const (
	colorStart    = 0x5865F2
	colorCapture  = 0xED4245
	colorProgress = 0x3BA55D
	colorFinish   = 0xFEE75C
	colorWarn     = 0x99AAB5

	defaultFooter = "ludo-arena"
)

// FormatMessage renders the events worth a chat message. Routine traffic
// such as dice rolls and state snapshots reports false.
func FormatMessage(ev stream.Event) (FormattedMessage, bool) {
	msg := FormattedMessage{
		Timestamp: eventTimestamp(ev.ServerTS),
		Footer:    defaultFooter,
	}
	switch data := ev.Data.(type) {
	case gateway.GameStarted:
		names := make([]string, 0)
		if data.GameState != nil {
			for _, p := range data.GameState.Players {
				names = append(names, fmt.Sprintf("%s (%s)", fallback(p.PlayerName, p.PlayerID), p.Color))
			}
		}
		msg.Title = "Game started · " + ev.RoomCode
		msg.Content = fmt.Sprintf("room %s started with %d players", ev.RoomCode, len(names))
		msg.Description = strings.Join(names, ", ")
		msg.Color = colorStart
		msg.Fields = []MessageField{{Name: "Players", Value: strconv.Itoa(len(names)), Inline: true}}
	case gateway.TokenMoved:
		switch {
		case data.Won:
			msg.Title = "Player finished · " + ev.RoomCode
			msg.Content = fmt.Sprintf("%s brought every token home", data.PlayerID)
			msg.Color = colorProgress
		case len(data.CapturedTokens) > 0:
			captured := make([]string, 0, len(data.CapturedTokens))
			for _, c := range data.CapturedTokens {
				captured = append(captured, c.TokenID)
			}
			msg.Title = "Capture · " + ev.RoomCode
			msg.Content = fmt.Sprintf("%s captured %s on %s", data.PlayerID, strings.Join(captured, ", "), data.ToPosition)
			msg.Color = colorCapture
		default:
			return FormattedMessage{}, false
		}
		msg.Description = msg.Content
		msg.Fields = []MessageField{
			{Name: "Token", Value: data.TokenID, Inline: true},
			{Name: "From", Value: data.FromPosition, Inline: true},
			{Name: "To", Value: data.ToPosition, Inline: true},
		}
	case gateway.PlayerRemoved:
		msg.Title = "Player removed · " + ev.RoomCode
		msg.Content = fmt.Sprintf("%s removed (%s)", data.PlayerID, fallback(data.Reason, "unknown"))
		msg.Description = msg.Content
		msg.Color = colorWarn
	case gateway.GameFinished:
		lines := make([]string, 0, len(data.Rankings))
		for _, r := range data.Rankings {
			lines = append(lines, fmt.Sprintf("%d. %s", r.Rank, r.PlayerID))
		}
		msg.Title = "Game finished · " + ev.RoomCode
		msg.Content = fmt.Sprintf("room %s finished", ev.RoomCode)
		msg.Description = fallback(strings.Join(lines, "\n"), "no rankings")
		msg.Color = colorFinish
		if len(data.Rankings) > 0 {
			msg.Fields = []MessageField{{Name: "Winner", Value: data.Rankings[0].PlayerID, Inline: true}}
		}
	default:
		return FormattedMessage{}, false
	}
	return msg, true
}

func eventTimestamp(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.UnixMilli(ts).UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
