package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	MainCurrency      string
	CurrentOracles    []string
	HistoricalOracles []string
	CacheTTL          time.Duration
	CacheSize         int
	PollPriceInterval time.Duration
	WarmupPairs       []Pair
	WebAddr           string
	TLSDomains        []string
	CertCacheDir      string
	EthRPC            string
	FiatAPIURL        string
	BisqAPIURL        string
	ManualPricesDir   string
	// Pools maps "FROM_TO" pair keys to pool contract addresses.
	Pools map[string]string
}

// Pair names a from/to asset pair for background refresh.
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string { return p.From + "_" + p.To }

type configTmp struct {
	MainCurrency      string            `yaml:"main_currency"`
	CurrentOracles    []string          `yaml:"current_oracles"`
	HistoricalOracles []string          `yaml:"historical_oracles"`
	CacheTTL          time.Duration     `yaml:"cache_ttl"`
	CacheSize         int               `yaml:"cache_size"`
	PollPriceInterval time.Duration     `yaml:"poll_price_interval"`
	WarmupPairs       []string          `yaml:"warmup_pairs"`
	WebAddr           string            `yaml:"web_addr"`
	TLSDomains        []string          `yaml:"tls_domains"`
	CertCacheDir      string            `yaml:"cert_cache_dir"`
	EthRPC            string            `yaml:"eth_rpc"`
	FiatAPIURL        string            `yaml:"fiat_api_url"`
	BisqAPIURL        string            `yaml:"bisq_api_url"`
	ManualPricesDir   string            `yaml:"manual_prices_dir"`
	Pools             map[string]string `yaml:"pools"`
}

const (
	defaultMainCurrency   = "USD"
	defaultCacheTTL       = 300 * time.Second
	defaultCacheSize      = 4096
	defaultPollInterval   = 5 * time.Minute
	defaultWebAddr        = ":8085"
	defaultCurrentOracles = "binance,bybit,hyperliquid,uniswapv2,manual"
	defaultHistOracles    = "binance,bybit,manual,fiat"
)

// Get reads configuration from the yaml file given with --config, or
// from CLI flags when no file is provided.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	mainCurrency := flag.String("maincurrency", defaultMainCurrency, "main fiat currency, example: EUR")
	currentOracles := flag.String("oracles", defaultCurrentOracles, "comma-separated current price oracle order")
	historicalOracles := flag.String("historicaloracles", defaultHistOracles, "comma-separated historical price oracle order")
	cacheTTL := flag.Duration("cachettl", defaultCacheTTL, "price cache entry lifetime")
	pollInterval := flag.Duration("pollpriceinterval", defaultPollInterval, "background price refresh interval")
	warmupPairs := flag.String("pairs", "", "comma-separated pairs to keep warm, example: BTC_USD,ETH_EUR")
	webAddr := flag.String("webaddr", defaultWebAddr, "address of the HTTP API")
	ethRPC := flag.String("ethrpc", "", "ethereum JSON-RPC endpoint for on-chain pricing")
	manualDir := flag.String("manualpricesdir", "", "directory for the manual prices WAL")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		MainCurrency:      *mainCurrency,
		CurrentOracles:    splitList(*currentOracles),
		HistoricalOracles: splitList(*historicalOracles),
		CacheTTL:          *cacheTTL,
		CacheSize:         defaultCacheSize,
		PollPriceInterval: *pollInterval,
		WebAddr:           *webAddr,
		EthRPC:            *ethRPC,
		ManualPricesDir:   *manualDir,
	}

	pairs, err := parsePairs(splitList(*warmupPairs))
	if err != nil {
		return Config{}, err
	}
	cfg.WarmupPairs = pairs

	return withDefaults(cfg), nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	pairs, err := parsePairs(tmp.WarmupPairs)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'warmup_pairs' param in yaml config: %w", err)
	}

	cfg := Config{
		MainCurrency:      tmp.MainCurrency,
		CurrentOracles:    tmp.CurrentOracles,
		HistoricalOracles: tmp.HistoricalOracles,
		CacheTTL:          tmp.CacheTTL,
		CacheSize:         tmp.CacheSize,
		PollPriceInterval: tmp.PollPriceInterval,
		WarmupPairs:       pairs,
		WebAddr:           tmp.WebAddr,
		TLSDomains:        tmp.TLSDomains,
		CertCacheDir:      tmp.CertCacheDir,
		EthRPC:            tmp.EthRPC,
		FiatAPIURL:        tmp.FiatAPIURL,
		BisqAPIURL:        tmp.BisqAPIURL,
		ManualPricesDir:   tmp.ManualPricesDir,
		Pools:             tmp.Pools,
	}
	return withDefaults(cfg), nil
}

func withDefaults(cfg Config) Config {
	if cfg.MainCurrency == "" {
		cfg.MainCurrency = defaultMainCurrency
	}
	if len(cfg.CurrentOracles) == 0 {
		cfg.CurrentOracles = splitList(defaultCurrentOracles)
	}
	if len(cfg.HistoricalOracles) == 0 {
		cfg.HistoricalOracles = splitList(defaultHistOracles)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.PollPriceInterval <= 0 {
		cfg.PollPriceInterval = defaultPollInterval
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = defaultWebAddr
	}
	return cfg
}

func parsePairs(raw []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(raw))
	for _, s := range raw {
		elems := strings.Split(s, "_")
		if len(elems) != 2 || elems[0] == "" || elems[1] == "" {
			return nil, fmt.Errorf("invalid pair %q, correct format is FROM_TO", s)
		}
		pairs = append(pairs, Pair{From: elems[0], To: elems[1]})
	}
	return pairs, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
