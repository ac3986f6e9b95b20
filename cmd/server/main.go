// Wallet finder API server entry point.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wallet-finder/internal/adapter"
	"github.com/wallet-finder/internal/api"
	"github.com/wallet-finder/internal/config"
	"github.com/wallet-finder/internal/logging"
	"github.com/wallet-finder/internal/plans"
	"github.com/wallet-finder/internal/scanner"
	"github.com/wallet-finder/internal/storage"
	"github.com/wallet-finder/internal/types"
	"github.com/wallet-finder/internal/wallet"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.Info("Starting wallet finder backend")

	// Postgres
	pg, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer pg.Close()

	// ClickHouse for scan history
	ch, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer ch.Close() // nolint:errcheck // shutdown path

	// Redis cache
	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close() // nolint:errcheck // shutdown path

	cacheService := storage.NewCacheService(redisCache, cfg.Cache.TTL)

	// Repositories
	userRepo := storage.NewUserRepository(pg)
	keyRepo := storage.NewKeyRepository(pg)
	redeemKeyRepo := storage.NewRedeemKeyRepository(pg)
	historyRepo := storage.NewHistoryRepository(ch)

	// Chain adapters
	adapters, closeAdapters, err := buildAdapters(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize chain adapters")
	}
	defer closeAdapters()

	// Scanner manager
	var history scanner.HistoryWriter
	if cfg.Scanner.HistoryEnabled {
		history = historyRepo
	}
	manager := scanner.NewManager(adapters, wallet.NewRandomGenerator(), history, cacheService, logger)
	defer manager.StopAll()

	// HTTP server
	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			AdminToken:      cfg.Admin.Token,
			MaxScanSpeed:    cfg.Scanner.MaxSpeed,
		},
		userRepo,
		keyRepo,
		redeemKeyRepo,
		historyRepo,
		manager,
		cacheService,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("Server failed")
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// buildAdapters wires one balance lookup per chain the top plan covers
func buildAdapters(cfg *config.Config) (map[types.ChainID]scanner.BalanceLookup, func(), error) {
	premium, _ := plans.ByName(types.PlanPremium)

	adapters := make(map[types.ChainID]scanner.BalanceLookup, len(premium.Chains))
	var evmAdapters []*adapter.EVMAdapter

	closeAll := func() {
		for _, a := range evmAdapters {
			a.Close()
		}
	}

	for _, chain := range premium.Chains {
		chainCfg := cfg.Chains.Chains[chain]
		provider, err := adapter.NewRPCProvider(chainCfg.RPCPrimary, chainCfg.RPCSecondary)
		if err != nil {
			closeAll()
			return nil, nil, err
		}

		if chain == types.ChainSOL {
			sol, err := adapter.NewSolanaAdapter(provider)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			adapters[chain] = sol
			continue
		}

		evm, err := adapter.NewEVMAdapter(chain, provider)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		evmAdapters = append(evmAdapters, evm)
		adapters[chain] = evm
	}

	return adapters, closeAll, nil
}
