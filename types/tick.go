package types

import (
	"code.tickex.io/tickex/num"
)

// TickStage is the stage of a pair's batch auction cycle.
type TickStage int8

const (
	// TickStageReceiving is the idle stage, orders go straight into the
	// main book.
	TickStageReceiving TickStage = iota
	// TickStageSimulating walks both books looking for the emergent price.
	TickStageSimulating
	// TickStageMatching settles matches at the emergent price.
	TickStageMatching
	// TickStageMovingPending splices orders received mid tick into the
	// main book.
	TickStageMovingPending
)

func (s TickStage) String() string {
	switch s {
	case TickStageReceiving:
		return "receiving"
	case TickStageSimulating:
		return "simulating"
	case TickStageMatching:
		return "matching"
	case TickStageMovingPending:
		return "moving-pending"
	}
	return "unknown"
}

// PageMemory is the resumable cursor of an in flight auction. It is
// plain data persisted between paginated invocations, zeroed whenever
// the stage returns to receiving.
type PageMemory struct {
	EmergentPrice      *num.Uint
	LastBuyMatchID     uint64
	LastSellMatchID    uint64
	LastBuyMatchAmount *num.Uint
	LastSellMatchAmount *num.Uint
	MatchesAmount      uint64
}

func NewPageMemory() PageMemory {
	return PageMemory{
		EmergentPrice:       num.Zero(),
		LastBuyMatchAmount:  num.Zero(),
		LastSellMatchAmount: num.Zero(),
	}
}

// Reset zeroes every field, ready for the next cycle.
func (pm *PageMemory) Reset() {
	*pm = NewPageMemory()
}

// TickState is the per pair auction cycle state.
type TickState struct {
	Stage  TickStage
	Number uint64
	// LastTickBlock is the block at which the previous cycle closed,
	// NextTickBlock the block at which the current receiving stage ends.
	LastTickBlock uint64
	NextTickBlock uint64
	// BlocksForTick is the duration, in blocks, used to schedule the
	// last tick. The next duration is derived from it.
	BlocksForTick uint64
	Page          PageMemory
}

func NewTickState(blocksForTick, currentBlock uint64) TickState {
	return TickState{
		Stage:         TickStageReceiving,
		Number:        1,
		LastTickBlock: currentBlock,
		NextTickBlock: currentBlock + blocksForTick,
		BlocksForTick: blocksForTick,
		Page:          NewPageMemory(),
	}
}
