package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-chain/internal/api"
	"github.com/contactkeval/option-chain/internal/cache"
	"github.com/contactkeval/option-chain/internal/chain"
	"github.com/contactkeval/option-chain/internal/config"
	"github.com/contactkeval/option-chain/internal/data"
	"github.com/contactkeval/option-chain/internal/logger"
	"github.com/contactkeval/option-chain/internal/market"
	"github.com/contactkeval/option-chain/internal/metrics"
	"github.com/contactkeval/option-chain/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (built-in defaults when empty)")
	envFile := flag.String("env", ".env", "path to .env file")
	serve := flag.Bool("serve", false, "run the HTTP server")
	symbol := flag.String("symbol", "NIFTY", "index symbol for a one-shot chain")
	gap := flag.Int("gap", 0, "strike gap for a one-shot chain (0 = config default)")
	dte := flag.Int("dte", 0, "days to expiry for a one-shot chain (0 = config default)")
	outDir := flag.String("out", "./out", "output directory for chain.json and chain.csv")
	verbosity := flag.Int("v", -1, "verbosity 0=error 1=info 2=debug 3=trace (overrides logging.level)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fatalf("%v", err)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		fatalf("configuring logger: %v", err)
	}
	if *verbosity >= 0 {
		logger.SetVerbosity(*verbosity)
	}

	m := metrics.New("optionchain")

	fallback, err := buildFallback(cfg)
	if err != nil {
		fatalf("loading fallback prices: %v", err)
	}
	source := buildSource(cfg, fallback)

	spot := data.NewSpotClient(source, fallback,
		data.WithBreaker(data.BreakerSettings{
			FailureThreshold: uint32(cfg.Quote.Breaker.FailureThreshold),
			OpenTimeout:      cfg.Quote.Breaker.RecoveryTimeout,
		}),
		data.WithRateLimit(cfg.Quote.RateLimit.RequestsPerSecond, cfg.Quote.RateLimit.BurstSize),
		data.WithMetrics(m),
	)

	genOpts := []chain.Option{chain.WithNoise(chain.SeededNoise(cfg.Chain.Seed))}
	if cfg.Chain.StrikeGapRule != "" {
		rule, err := chain.ParseGapRule(cfg.Chain.StrikeGapRule)
		if err != nil {
			fatalf("chain.strike_gap_rule: %v", err)
		}
		logger.Infof("strike gap rule: %s", rule.String())
		genOpts = append(genOpts, chain.WithGapRule(rule))
	}

	gen := chain.NewGenerator(spot, chain.Config{
		StrikeGap:    cfg.Chain.StrikeGap,
		DaysToExpiry: cfg.Chain.DaysToExpiry,
		LegCount:     cfg.Chain.LegCount,
		VolMin:       cfg.Chain.VolMin,
		VolMax:       cfg.Chain.VolMax,
		SpotTimeout:  cfg.Quote.Timeout,
	}, genOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := runServer(ctx, cfg, gen, m); err != nil {
			fatalf("server: %v", err)
		}
		return
	}

	start := time.Now()
	snap, err := gen.Generate(ctx, chain.Request{Symbol: *symbol, StrikeGap: *gap, DaysToExpiry: *dte})
	if err != nil {
		fatalf("generating chain: %v", err)
	}
	printChain(snap)
	if err := report.Write(snap, *outDir); err != nil {
		fatalf("%v", err)
	}
	logger.Infof("finished in %v, wrote %d strikes to %s", time.Since(start), len(snap.Strikes), *outDir)
}

func buildFallback(cfg *config.Config) (data.FallbackTable, error) {
	table := data.NewFallbackTable(cfg.Fallback.Prices)
	if cfg.Fallback.File == "" {
		return table, nil
	}
	rows, err := data.LoadFallbackCSV(cfg.Fallback.File)
	if err != nil {
		return data.FallbackTable{}, err
	}
	return table.Merge(rows), nil
}

func buildSource(cfg *config.Config, fallback data.FallbackTable) data.QuoteSource {
	switch provider := cfg.ResolvedProvider(); provider {
	case config.ProviderMassive:
		logger.Infof("quote source: massive")
		return data.NewMassiveSource(cfg.Quote.APIKey, cfg.Quote.Tickers)
	case config.ProviderHTTP:
		logger.Infof("quote source: http %s", cfg.Quote.BaseURL)
		return data.NewHTTPSource(cfg.Quote.BaseURL, cfg.Quote.RequestTimeout)
	case config.ProviderSynthetic:
		logger.Infof("quote source: synthetic (%d symbols)", fallback.Len())
		return data.NewSyntheticSource(fallback, cfg.Quote.SyntheticSeed)
	default:
		logger.Infof("quote source: none, fallback table only")
		return nil
	}
}

func runServer(ctx context.Context, cfg *config.Config, gen *chain.Generator, m *metrics.Metrics) error {
	gin.SetMode(cfg.Server.Mode)

	c, err := cache.New(ctx, cache.Settings{
		Backend:   cfg.Cache.Backend,
		TTL:       cfg.Cache.TTL,
		RedisAddr: cfg.Cache.RedisAddr,
	})
	if err != nil {
		logger.Warnf("response cache disabled: %v", err)
		c = cache.Noop{}
	}
	defer c.Close()

	handler := api.NewChainHandler(gen, c, m, market.SystemClock)
	router := api.NewRouter(handler, m, api.Info{Name: cfg.Service.Name, Version: cfg.Service.Version})
	server := api.NewServer(cfg.Server.Addr, router,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)

	logger.Infof("%s %s starting", cfg.Service.Name, cfg.Service.Version)
	return server.Run(ctx)
}

func printChain(snap *chain.Snapshot) {
	fmt.Printf("%s spot=%.2f (%s) market=%s expiry=%s\n",
		snap.Index, snap.SpotPrice, snap.SpotSource, snap.MarketStatus, snap.Expiry)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CE OI\tCE IV\tCE CHG\tCE LTP\tSTRIKE\tPE LTP\tPE CHG\tPE IV\tPE OI\t")
	for _, leg := range snap.Strikes {
		mark := ""
		if leg.IsATM {
			mark = "*"
		}
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%s%.0f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			leg.CEOI, leg.CEIV, leg.CEChange, leg.CEPrice, mark, leg.Strike,
			leg.PEPrice, leg.PEChange, leg.PEIV, leg.PEOI)
	}
	_ = w.Flush()

	if atm, ok := snap.ATM(); ok {
		fmt.Printf("ATM %.0f straddle=%.2f\n", atm.Strike, atm.CEPrice+atm.PEPrice)
	}
}

func fatalf(format string, args ...any) {
	logger.Errorf(format, args...)
	os.Exit(1)
}
