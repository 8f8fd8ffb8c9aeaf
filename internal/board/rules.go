package board

type Token struct {
	TokenID    string `json:"tokenId"`
	PositionID string `json:"positionId"`
}

// Positions is every active color's token list, always four per color.
type Positions map[Color][]Token

const (
	ReasonInvalidDice   = "invalid dice value"
	ReasonNeedsSix      = "a six is required to leave base"
	ReasonOvershoot     = "move would overshoot home"
	ReasonUnknownSquare = "unknown position for this color"
)

type MoveCheck struct {
	Valid  bool
	Target string
	Reason string
}

type CapturedToken struct {
	Color      Color  `json:"color"`
	TokenID    string `json:"tokenId"`
	PositionID string `json:"positionId"`
}

type Collision struct {
	Captured       bool
	CapturedTokens []CapturedToken
}

func InitialTokens(c Color) []Token {
	out := make([]Token, 0, TokensPerColor)
	for n := 1; n <= TokensPerColor; n++ {
		out = append(out, Token{TokenID: TokenID(c, n), PositionID: BaseSlots(c)[n-1]})
	}
	return out
}

// CanMove computes where a token of color c standing on position lands with
// dice. Overshooting home is illegal; there is no bounce back.
func CanMove(position string, dice int, c Color) MoveCheck {
	if dice < MinDice || dice > MaxDice {
		return MoveCheck{Reason: ReasonInvalidDice}
	}
	if IsBase(c, position) {
		if dice != ExitRoll {
			return MoveCheck{Reason: ReasonNeedsSix}
		}
		return MoveCheck{Valid: true, Target: StartCell(c)}
	}
	idx, ok := PathIndex(c, position)
	if !ok {
		return MoveCheck{Reason: ReasonUnknownSquare}
	}
	target := idx + dice
	if target >= PathLength {
		return MoveCheck{Reason: ReasonOvershoot}
	}
	return MoveCheck{Valid: true, Target: paths[c][target]}
}

// DetectCollision returns every opposing token standing exactly on target.
// Safe spots never capture.
func DetectCollision(target string, attacker Color, positions Positions) Collision {
	if IsSafe(target) {
		return Collision{}
	}
	var captured []CapturedToken
	for _, c := range Colors {
		if c == attacker {
			continue
		}
		for _, tok := range positions[c] {
			if tok.PositionID == target {
				captured = append(captured, CapturedToken{Color: c, TokenID: tok.TokenID, PositionID: tok.PositionID})
			}
		}
	}
	return Collision{Captured: len(captured) > 0, CapturedTokens: captured}
}

// SendToBase returns captured tokens to their own base slots in place.
func SendToBase(positions Positions, captured []CapturedToken) {
	for _, ct := range captured {
		slot, ok := BaseSlot(ct.TokenID)
		if !ok {
			continue
		}
		toks := positions[ct.Color]
		for i := range toks {
			if toks[i].TokenID == ct.TokenID {
				toks[i].PositionID = slot
			}
		}
	}
}

func CheckWin(c Color, tokens []Token) bool {
	if len(tokens) != TokensPerColor {
		return false
	}
	home := HomeCell(c)
	for _, tok := range tokens {
		if tok.PositionID != home {
			return false
		}
	}
	return true
}

func HasLegalMove(c Color, tokens []Token, dice int) bool {
	for _, tok := range tokens {
		if CanMove(tok.PositionID, dice, c).Valid {
			return true
		}
	}
	return false
}

// Clone deep-copies positions so callers can mutate without aliasing.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for c, toks := range p {
		cp := make([]Token, len(toks))
		copy(cp, toks)
		out[c] = cp
	}
	return out
}

func (p Positions) Find(tokenID string) (Color, int, bool) {
	for c, toks := range p {
		for i, tok := range toks {
			if tok.TokenID == tokenID {
				return c, i, true
			}
		}
	}
	return "", 0, false
}
