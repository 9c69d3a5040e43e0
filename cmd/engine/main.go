package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hakimelghazi/orbital-market/internal/engine"
	"github.com/hakimelghazi/orbital-market/internal/inventory"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := engine.NewExchange(16, engine.WithLogger(logger))
	ceres := engine.Market{Name: "Ceres", Location: uuid.New(), Position: engine.Position{X: 0, Y: 0}}
	vesta := engine.Market{Name: "Vesta", Location: uuid.New(), Position: engine.Position{X: 120, Y: 40}}
	for _, m := range []engine.Market{ceres, vesta} {
		if _, err := ex.Open(m); err != nil {
			logger.Fatal().Err(err).Msg("open market")
		}
	}
	go ex.Run(ctx)

	colony, farm, hauler := uuid.New(), uuid.New(), uuid.New()
	ledger := inventory.NewLedger()
	ledger.Open(colony, 1000, 5000)
	ledger.Open(farm, 1000, 0)
	ledger.Open(hauler, 200, 1500)
	if _, err := ledger.Deposit(farm, engine.Food, 300); err != nil {
		logger.Fatal().Err(err).Msg("deposit")
	}

	place := func(o engine.Order) {
		res, err := ex.Place(ctx, o)
		if err != nil {
			logger.Fatal().Err(err).Msg("place")
		}
		if err := ledger.ApplyAll(res.Transactions); err != nil {
			logger.Fatal().Err(err).Msg("settle")
		}
		for _, tx := range res.Transactions {
			logger.Info().
				Stringer("commodity", tx.Commodity).
				Int64("amount", tx.Amount).
				Int64("price", tx.Price).
				Msg("transaction")
		}
	}

	// makers: the farm sells at Ceres, the colony buys at Vesta
	place(engine.NewSellOrder(engine.Food, farm, ceres.Location, ceres.Position, 80, 10))
	place(engine.NewSellOrder(engine.Food, farm, ceres.Location, ceres.Position, 80, 12))
	place(engine.NewBuyOrder(engine.Food, colony, vesta.Location, vesta.Position, 150, 25))

	// the hauler looks for the cheapest food, buys at the marginal price, then sells
	book, err := ex.Orders(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("snapshot")
	}
	pos := engine.Position{X: 50, Y: 50}
	src, ok := engine.BestLocationToBuy(pos, engine.Filter(book, engine.SideSell, engine.Food))
	if !ok {
		logger.Fatal().Msg("nobody sells food")
	}
	srcEng, _ := ex.Engine(src)
	local, _ := srcEng.Snapshot(ctx)
	if buy, ok := engine.QuoteBuyOrder(100, engine.Food, hauler, src, srcEng.Position(), local); ok {
		place(buy)
	}

	_, cargo, _ := ledger.Balance(hauler, engine.Food)
	if cargo == 0 {
		logger.Fatal().Msg("hauler bought nothing")
	}
	book, _ = ex.Orders(ctx)
	dst, ok := engine.BestLocationToSell(pos, cargo, engine.Filter(book, engine.SideBuy, engine.Food))
	if !ok {
		logger.Fatal().Msg("nobody buys food")
	}
	dstEng, _ := ex.Engine(dst)
	local, _ = dstEng.Snapshot(ctx)
	if sell, ok := engine.QuoteSellOrder(cargo, engine.Food, hauler, dst, dstEng.Position(), local); ok {
		place(sell)
	}

	credits, cargo, _ := ledger.Balance(hauler, engine.Food)
	logger.Info().Int64("credits", credits).Int64("cargo", cargo).Msg("hauler done")
}
