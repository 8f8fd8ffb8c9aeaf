package viewmodel

import (
	"ludo-arena/internal/board"
	"ludo-arena/internal/game"
)

type SeatView struct {
	PlayerID         string `json:"playerId"`
	PlayerName       string `json:"playerName"`
	Color            string `json:"color"`
	ConnectionStatus string `json:"connectionStatus"`
	Rank             int    `json:"rank"`
	TokensHome       int    `json:"tokensHome"`
	TokensInBase     int    `json:"tokensInBase"`
	IsCurrent        bool   `json:"isCurrent"`
}

type LegalMove struct {
	TokenID          string `json:"tokenId"`
	FromPosition     string `json:"fromPosition"`
	TargetPositionID string `json:"targetPositionId"`
}

type PublicStateView struct {
	RoomCode        string     `json:"roomCode"`
	Phase           string     `json:"phase"`
	CurrentPlayerID string     `json:"currentPlayerId"`
	DiceValue       *int       `json:"diceValue"`
	Seats           []SeatView `json:"seats"`
}

// PlayerStateView is what one seated player needs to act: whose turn it is
// and, while they hold the dice, every move the server would accept.
type PlayerStateView struct {
	PublicStateView
	MyColor    string      `json:"myColor"`
	MyTurn     bool        `json:"myTurn"`
	LegalMoves []LegalMove `json:"legalMoves"`
}

func BuildPublicState(st *game.State) PublicStateView {
	seats := make([]SeatView, 0, len(st.Players))
	for i, p := range st.Players {
		home := board.HomeCell(p.Color)
		var atHome, inBase int
		for _, tok := range st.TokenPositions[p.Color] {
			switch {
			case tok.PositionID == home:
				atHome++
			case board.IsBase(p.Color, tok.PositionID):
				inBase++
			}
		}
		seats = append(seats, SeatView{
			PlayerID:         p.PlayerID,
			PlayerName:       p.PlayerName,
			Color:            string(p.Color),
			ConnectionStatus: string(p.ConnectionStatus),
			Rank:             p.Rank,
			TokensHome:       atHome,
			TokensInBase:     inBase,
			IsCurrent:        i == st.CurrentPlayerIndex && st.Phase != game.PhaseFinished,
		})
	}
	view := PublicStateView{
		RoomCode:  st.RoomCode,
		Phase:     string(st.Phase),
		DiceValue: st.DiceValue,
		Seats:     seats,
	}
	if cur, ok := st.CurrentPlayer(); ok && st.Phase != game.PhaseFinished {
		view.CurrentPlayerID = cur.PlayerID
	}
	return view
}

func BuildPlayerState(st *game.State, playerID string) PlayerStateView {
	view := PlayerStateView{PublicStateView: BuildPublicState(st), LegalMoves: []LegalMove{}}
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return view
	}
	me := st.Players[idx]
	view.MyColor = string(me.Color)
	view.MyTurn = idx == st.CurrentPlayerIndex && st.Phase != game.PhaseFinished
	if !view.MyTurn || st.Phase != game.PhaseMoving || st.DiceValue == nil {
		return view
	}
	for _, tok := range st.TokenPositions[me.Color] {
		check := board.CanMove(tok.PositionID, *st.DiceValue, me.Color)
		if !check.Valid {
			continue
		}
		view.LegalMoves = append(view.LegalMoves, LegalMove{
			TokenID:          tok.TokenID,
			FromPosition:     tok.PositionID,
			TargetPositionID: check.Target,
		})
	}
	return view
}
