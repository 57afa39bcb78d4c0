package main

import (
	"context"
	"fmt"

	"code.tickex.io/tickex/broker"
	"code.tickex.io/tickex/commission"
	"code.tickex.io/tickex/config"
	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/execution"
	"code.tickex.io/tickex/ledger"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/metrics"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

type demoCmd struct {
	ctx context.Context

	Home string `long:"home" default:"." description:"Directory holding the configuration"`
}

// blockClock stands in for the host chain in the demo: the height only
// moves when the script advances it.
type blockClock struct {
	height uint64
}

func (c *blockClock) Height() uint64 { return c.height }

func (c *demoCmd) Execute(_ []string) error {
	log := logging.NewLoggerFromEnv("dev")
	defer log.AtExit()

	cfg, err := config.Read(c.Home)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		go metrics.Start(cfg.Metrics)
	}

	comm, err := commission.New(log, cfg.Commission)
	if err != nil {
		return err
	}
	ldgr := ledger.New(log, cfg.Ledger)
	bkr := broker.New(log, cfg.Broker)
	bkr.SubscribeFn(func(e events.Event) {
		fmt.Printf("event: %s\n", e.Type())
	}, events.All)

	clock := &blockClock{height: 1}
	eng, err := execution.New(log, cfg.Execution, clock, ldgr, nil, bkr, comm)
	if err != nil {
		return err
	}

	pair := types.Pair{Base: "USDT", Secondary: "BTC"}
	ldgr.EnableAsset(pair.Base)
	ldgr.EnableAsset(pair.Secondary)
	price := num.NewUint(5)
	price.Mul(price, num.Wad()) // 5 USDT per BTC
	if err := eng.AddPair(c.ctx, pair.Base, pair.Secondary, num.Wad(), price); err != nil {
		return err
	}

	buyAmount := num.NewUint(15)
	buyAmount.Mul(buyAmount, num.Wad())
	if _, err := eng.InsertLimitOrder(c.ctx, pair, "alice", buyAmount, price, 0, types.SideBuy, types.NoOrder); err != nil {
		return err
	}
	sellAmount := num.NewUint(1)
	sellAmount.Mul(sellAmount, num.Wad())
	if _, err := eng.InsertLimitOrder(c.ctx, pair, "bob", sellAmount, price, 0, types.SideSell, types.NoOrder); err != nil {
		return err
	}

	clock.height += cfg.Execution.InitialBlocksForTick
	for {
		if err := eng.RunMatching(c.ctx, pair, 16); err != nil {
			return err
		}
		stage, err := eng.TickStage(pair)
		if err != nil {
			return err
		}
		if stage == types.TickStageReceiving {
			break
		}
	}

	closing, err := eng.LastClosingPrice(pair)
	if err != nil {
		return err
	}
	fmt.Printf("closing price: %s\n", closing)
	fmt.Printf("alice BTC: %s\n", ldgr.Balance(pair.Secondary, "alice"))
	fmt.Printf("bob USDT: %s\n", ldgr.Balance(pair.Base, "bob"))
	fmt.Printf("commission USDT: %s\n", eng.CommissionBalance(pair, pair.Base))
	fmt.Printf("commission BTC: %s\n", eng.CommissionBalance(pair, pair.Secondary))
	return nil
}
