package testutil

import (
	"github.com/josh-kwaku/chatledger/internal/domain"
)

const (
	Dollar = "دلار"
	Emami  = "امامی"
	Euro   = "یورو"
)

func In(asset string, amount int64) domain.Transaction {
	return domain.Transaction{
		Asset:        asset,
		Amount:       amount,
		Direction:    domain.DirectionIn,
		Counterparty: "علی",
		Raw:          "fixture",
	}
}

func Out(asset string, amount int64) domain.Transaction {
	return domain.Transaction{
		Asset:        asset,
		Amount:       amount,
		Direction:    domain.DirectionOut,
		Counterparty: "احمد",
		Raw:          "fixture",
	}
}
