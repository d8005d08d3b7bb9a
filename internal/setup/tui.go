package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

var knownOracles = map[string]struct{}{
	"binance":     {},
	"bybit":       {},
	"hyperliquid": {},
	"uniswapv2":   {},
	"manual":      {},
}

var knownHistoricalOracles = map[string]struct{}{
	"binance": {},
	"bybit":   {},
	"manual":  {},
	"fiat":    {},
}

type yamlConfig struct {
	MainCurrency      string   `yaml:"main_currency"`
	CurrentOracles    []string `yaml:"current_oracles"`
	HistoricalOracles []string `yaml:"historical_oracles"`
	CacheTTL          string   `yaml:"cache_ttl"`
	PollPriceInterval string   `yaml:"poll_price_interval"`
	WarmupPairs       []string `yaml:"warmup_pairs,omitempty"`
	WebAddr           string   `yaml:"web_addr"`
	EthRPC            string   `yaml:"eth_rpc,omitempty"`
	ManualPricesDir   string   `yaml:"manual_prices_dir,omitempty"`
}

// RunTUI launches the terminal configuration wizard and writes the
// resulting yaml config to kurs.yaml.
func RunTUI() error {
	var (
		mainCurrency    string
		oracleOrderStr  string
		histOrderStr    string
		cacheTTLStr     string
		pollIntervalStr string
		pairsStr        string
		webAddr         string
		ethRPC          string
		confirm         bool
	)

	// defaults
	oracleOrderStr = "binance,bybit,hyperliquid,uniswapv2,manual"
	histOrderStr = "binance,bybit,manual,fiat"
	cacheTTLStr = "5m"
	pollIntervalStr = "5m"
	webAddr = ":8085"

	// step 1: main currency
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("KURS CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's wire up your price sources.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MAIN CURRENCY"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which fiat currency should prices default to?").
				Options(
					huh.NewOption("US Dollar (USD)", "USD"),
					huh.NewOption("Euro (EUR)", "EUR"),
					huh.NewOption("Pound Sterling (GBP)", "GBP"),
					huh.NewOption("Swiss Franc (CHF)", "CHF"),
					huh.NewOption("Japanese Yen (JPY)", "JPY"),
				).
				Value(&mainCurrency),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: oracle order
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KURS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ORACLE ORDER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current price oracles").
				Description("Comma-separated, tried in order (binance, bybit, hyperliquid, uniswapv2, manual)").
				Value(&oracleOrderStr).
				Validate(validateOrder(knownOracles)),
			huh.NewInput().
				Title("Historical price oracles").
				Description("Comma-separated, tried in order (binance, bybit, manual, fiat)").
				Value(&histOrderStr).
				Validate(validateOrder(knownHistoricalOracles)),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: caching and refresh
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KURS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: CACHING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cache TTL").
				Description("How long a resolved price stays fresh (e.g. 5m)").
				Value(&cacheTTLStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Poll interval").
				Description("Background refresh interval for warm pairs (e.g. 5m)").
				Value(&pollIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Warm pairs").
				Description("Optional comma-separated pairs to keep warm (e.g. BTC_USD,ETH_EUR)").
				Value(&pairsStr).
				Validate(validatePairs),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 4: endpoints
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KURS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: ENDPOINTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP API address").
				Value(&webAddr),
			huh.NewInput().
				Title("Ethereum JSON-RPC endpoint").
				Description("Needed for on-chain pool pricing, leave empty to disable").
				Value(&ethRPC),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 5: confirm
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KURS CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: CONFIRM"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write configuration to kurs.yaml?").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Aborted, nothing written."))
		return nil
	}

	cfg := yamlConfig{
		MainCurrency:      mainCurrency,
		CurrentOracles:    splitTrimmed(oracleOrderStr),
		HistoricalOracles: splitTrimmed(histOrderStr),
		CacheTTL:          cacheTTLStr,
		PollPriceInterval: pollIntervalStr,
		WarmupPairs:       splitTrimmed(pairsStr),
		WebAddr:           webAddr,
		EthRPC:            ethRPC,
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile("kurs.yaml", out, 0o644); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("\nConfiguration written to kurs.yaml"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Run: kurs --config kurs.yaml"))
	return nil
}

func validateOrder(known map[string]struct{}) func(string) error {
	return func(s string) error {
		ids := splitTrimmed(s)
		if len(ids) == 0 {
			return fmt.Errorf("at least one oracle is required")
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("unknown oracle %q", id)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("oracle %q listed twice", id)
			}
			seen[id] = struct{}{}
		}
		return nil
	}
}

func validateDuration(s string) error {
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("invalid duration (e.g. 5m, 1h)")
	}
	return nil
}

func validatePairs(s string) error {
	for _, p := range splitTrimmed(s) {
		elems := strings.Split(p, "_")
		if len(elems) != 2 || elems[0] == "" || elems[1] == "" {
			return fmt.Errorf("invalid pair %q, format is FROM_TO", p)
		}
	}
	return nil
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
