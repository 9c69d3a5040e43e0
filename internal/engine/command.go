package engine

import "github.com/google/uuid"

type CommandType int

const (
	CmdPlace CommandType = iota
	CmdCancel
	CmdSnapshot
)

type Command struct {
	Type  CommandType
	Order Order     // used when Type == CmdPlace
	ID    uuid.UUID // used when Type == CmdCancel
	Resp  chan any  // buffered; the loop never blocks answering
}

// PlaceResult is what a placement did to the book.
type PlaceResult struct {
	Transactions []Transaction
	Filled       bool   // incoming order fully consumed
	Remainder    *Order // resting remainder when not filled
}

type cancelResult struct {
	ok bool
}
