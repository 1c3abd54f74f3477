package domain

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Transaction is a single movement extracted from a chat message. Amount is
// already scaled by any multiplier keyword.
type Transaction struct {
	Asset        string    `json:"asset"`
	Amount       int64     `json:"amount"`
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty"`
	Raw          string    `json:"raw"`
}
