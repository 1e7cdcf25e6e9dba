// Package chessboard is the sole caller of github.com/notnil/chess in this
// service. Every other package talks to a Board, a Color, a PieceType and a
// Snapshot — plain domain types that do not leak the underlying rules
// library, so it can be swapped without touching insight, analyzer or
// session logic.
package chessboard

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

type PieceType int

const (
	NoPiece PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Piece is a colored piece occupying a square.
type Piece struct {
	Type  PieceType
	Color Color
}

// Snapshot is an immutable, library-free view of a position used by the
// insight builder's geometric theme detection.
type Snapshot struct {
	Squares map[string]Piece // algebraic square ("e4") -> occupant
	Turn    Color
	InCheck bool
}

// Board wraps a single in-progress game. It is not safe for concurrent use;
// callers serialize access the same way the session state machine
// serializes moves on a session.
type Board struct {
	game *chess.Game
}

// NewDefault starts a board at the standard opening position.
func NewDefault() *Board {
	return &Board{game: chess.NewGame()}
}

// NewFromFEN starts a board at an arbitrary position, used for the
// "custom starting position" session variant.
func NewFromFEN(fen string) (*Board, error) {
	fenFunc, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("chessboard: invalid fen %q: %w", fen, err)
	}
	return &Board{game: chess.NewGame(fenFunc)}, nil
}

// FEN renders the current position.
func (b *Board) FEN() string {
	return b.game.Position().String()
}

// Turn reports the color to move.
func (b *Board) Turn() Color {
	return fromChessColor(b.game.Position().Turn())
}

// LegalUCIMoves lists every legal move from the current position in UCI
// notation (e.g. "e2e4", "e7e8q").
func (b *Board) LegalUCIMoves() []string {
	moves := b.game.ValidMoves()
	out := make([]string, 0, len(moves))
	enc := chess.UCINotation{}
	for _, m := range moves {
		out = append(out, enc.Encode(b.game.Position(), m))
	}
	return out
}

// IsLegalUCI reports whether uci is a legal move in the current position.
func (b *Board) IsLegalUCI(uci string) bool {
	for _, m := range b.LegalUCIMoves() {
		if strings.EqualFold(m, uci) {
			return true
		}
	}
	return false
}

// SAN renders uci in standard algebraic notation relative to the current
// position, without applying it.
func (b *Board) SAN(uci string) (string, error) {
	mv, err := b.decode(uci)
	if err != nil {
		return "", err
	}
	return chess.AlgebraicNotation{}.Encode(b.game.Position(), mv), nil
}

// ApplyUCI validates and applies a move. It returns an error if uci is
// malformed or illegal in the current position; the board is left
// unmodified on error.
func (b *Board) ApplyUCI(uci string) error {
	mv, err := b.decode(uci)
	if err != nil {
		return err
	}
	return b.game.Move(mv)
}

func (b *Board) decode(uci string) (*chess.Move, error) {
	mv, err := chess.UCINotation{}.Decode(b.game.Position(), uci)
	if err != nil {
		return nil, fmt.Errorf("chessboard: %w", err)
	}
	return mv, nil
}

// IsCheck reports whether the side to move is in check.
func (b *Board) IsCheck() bool {
	return b.game.Position().Status() == chess.Check
}

// IsCheckmate reports whether the game has ended in checkmate.
func (b *Board) IsCheckmate() bool {
	return b.game.Method() == chess.Checkmate
}

// IsStalemate reports whether the game has ended in stalemate.
func (b *Board) IsStalemate() bool {
	return b.game.Method() == chess.Stalemate
}

// IsDrawn reports whether the game has ended in any automatic draw (not
// counting an explicit resignation/agreement, which callers apply
// themselves).
func (b *Board) IsDrawn() bool {
	switch b.game.Method() {
	case chess.Stalemate, chess.ThreefoldRepetition, chess.FivefoldRepetition,
		chess.FiftyMoveRule, chess.SeventyFiveMoveRule, chess.InsufficientMaterial:
		return true
	}
	return false
}

// IsGameOver reports whether the position is terminal (checkmate or any
// automatic draw).
func (b *Board) IsGameOver() bool {
	return b.game.Outcome() != chess.NoOutcome
}

// Winner reports the color that won, or false if the game has no winner
// (still in progress, or drawn).
func (b *Board) Winner() (Color, bool) {
	switch b.game.Outcome() {
	case chess.WhiteWon:
		return White, true
	case chess.BlackWon:
		return Black, true
	}
	return White, false
}

// Clone returns an independent board at the same position, so callers can
// speculatively apply a move (e.g. to compute a "before/after" insight pair)
// without mutating the session's live board.
func (b *Board) Clone() (*Board, error) {
	return NewFromFEN(b.FEN())
}

// Snapshot takes a library-free picture of the current position for the
// insight builder's geometric rules.
func (b *Board) Snapshot() Snapshot {
	pos := b.game.Position()
	board := pos.Board()
	squares := make(map[string]Piece)
	for sq, p := range board.SquareMap() {
		if p == chess.NoPiece {
			continue
		}
		squares[strings.ToLower(sq.String())] = toDomainPiece(p)
	}
	return Snapshot{
		Squares: squares,
		Turn:    fromChessColor(pos.Turn()),
		InCheck: pos.Status() == chess.Check,
	}
}

func fromChessColor(c chess.Color) Color {
	if c == chess.White {
		return White
	}
	return Black
}

func toDomainPiece(p chess.Piece) Piece {
	var col Color
	if p.Color() == chess.White {
		col = White
	} else {
		col = Black
	}
	var t PieceType
	switch p.Type() {
	case chess.Pawn:
		t = Pawn
	case chess.Knight:
		t = Knight
	case chess.Bishop:
		t = Bishop
	case chess.Rook:
		t = Rook
	case chess.Queen:
		t = Queen
	case chess.King:
		t = King
	}
	return Piece{Type: t, Color: col}
}
