package validate

import (
	"testing"

	"ludo-arena/internal/apperr"

	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestCheckNormalises(t *testing.T) {
	got, err := Check(Intent{
		Type:             MoveToken,
		RoomCode:         " abc123 ",
		PlayerID:         "p-1",
		TokenID:          "rt2",
		TargetPositionID: "c05",
	})
	require.NoError(t, err)
	require.Equal(t, "ABC123", got.RoomCode)
	require.Equal(t, "RT2", got.TokenID)
	require.Equal(t, "C05", got.TargetPositionID)
}

func TestCheckDefaultsGroupSizes(t *testing.T) {
	got, err := Check(Intent{Type: CreateRoom, PlayerID: "p1", PlayerName: "Ann"})
	require.NoError(t, err)
	require.Equal(t, 4, *got.MaxPlayers)

	got, err = Check(Intent{Type: JoinMatchmaking, PlayerID: "p1", PlayerName: "Ann", PreferredPlayers: intp(3)})
	require.NoError(t, err)
	require.Equal(t, 3, *got.PreferredPlayers)

	_, err = Check(Intent{Type: CreateRoom, PlayerID: "p1", PlayerName: "Ann", MaxPlayers: intp(5)})
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestCheckRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   Intent
		want error
	}{
		{"unknown type", Intent{Type: "fly", PlayerID: "p1"}, ErrUnknownIntent},
		{"missing player", Intent{Type: RollDice, RoomCode: "ABC123"}, ErrMissingField},
		{"bad player id", Intent{Type: RollDice, RoomCode: "ABC123", PlayerID: "p 1"}, ErrInvalidField},
		{"missing room", Intent{Type: RollDice, PlayerID: "p1"}, ErrMissingField},
		{"short room", Intent{Type: RollDice, PlayerID: "p1", RoomCode: "ABC"}, ErrInvalidField},
		{"missing name", Intent{Type: JoinRoom, PlayerID: "p1", RoomCode: "ABC123", PlayerName: " \t"}, ErrMissingField},
		{"bad token", Intent{Type: MoveToken, PlayerID: "p1", RoomCode: "ABC123", TokenID: "RT5", TargetPositionID: "C01"}, ErrInvalidField},
		{"bad target", Intent{Type: MoveToken, PlayerID: "p1", RoomCode: "ABC123", TokenID: "RT1", TargetPositionID: "C53"}, ErrInvalidField},
		{"missing target", Intent{Type: MoveToken, PlayerID: "p1", RoomCode: "ABC123", TokenID: "RT1"}, ErrMissingField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Check(tc.in)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestCleanName(t *testing.T) {
	require.Equal(t, "Ann Lee", cleanName("  Ann\x00   Lee\n"))
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	require.Len(t, []rune(cleanName(long)), maxPlayerNameLen)
}

func TestCheckAcceptsEveryPositionKind(t *testing.T) {
	for _, pos := range []string{"C01", "C52", "RH3", "Y4", "GF"} {
		_, err := Check(Intent{Type: MoveToken, PlayerID: "p1", RoomCode: "ABC123", TokenID: "RT1", TargetPositionID: pos})
		require.NoError(t, err, pos)
	}
}
