// Command analyzer runs one campaign-performance analysis and writes the
// compacted report as JSON to stdout, where the presentation layer picks
// it up.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/analysis"
	"github.com/ignite/ppc-analyzer/internal/config"
	"github.com/ignite/ppc-analyzer/internal/pkg/logger"
	"github.com/ignite/ppc-analyzer/internal/quota"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	customerID := flag.String("customer", "", "customer/account id (overrides config)")
	startDate := flag.String("start", "", "period start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "period end date (YYYY-MM-DD)")
	campaigns := flag.String("campaigns", "", "optional comma-separated campaign id filter")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}

	scope, err := buildScope(cfg, *customerID, *startDate, *endDate, *campaigns)
	if err != nil {
		fatal("%v", err)
	}

	limiter, err := buildLimiter(cfg, scope.CustomerID)
	if err != nil {
		fatal("failed to set up quota limiter: %v", err)
	}

	client := ads.NewClient(ads.ClientConfig{
		BaseURL:          cfg.Provider.BaseURL,
		DeveloperToken:   cfg.Provider.DeveloperToken,
		CustomerID:       cfg.Provider.CustomerID,
		MaxIDsPerRequest: cfg.Fetch.MaxIDsPerRequest,
	})
	fetcher := ads.NewFetcher(client, limiter, cfg.Fetch)
	pipeline := analysis.NewPipeline(fetcher, cfg)

	report, err := pipeline.Run(context.Background(), scope)
	if err != nil {
		fatal("analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fatal("failed to serialize report: %v", err)
	}
	fmt.Println(string(out))
}

func buildScope(cfg *config.Config, customerID, start, end, campaigns string) (ads.Scope, error) {
	if customerID == "" {
		customerID = cfg.Provider.CustomerID
	}
	if customerID == "" {
		return ads.Scope{}, fmt.Errorf("no customer id given (flag -customer or config provider.customer_id)")
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	startDate := endDate.AddDate(0, 0, -30)
	var err error
	if start != "" {
		if startDate, err = time.Parse("2006-01-02", start); err != nil {
			return ads.Scope{}, fmt.Errorf("invalid -start date: %w", err)
		}
	}
	if end != "" {
		if endDate, err = time.Parse("2006-01-02", end); err != nil {
			return ads.Scope{}, fmt.Errorf("invalid -end date: %w", err)
		}
	}
	if endDate.Before(startDate) {
		return ads.Scope{}, fmt.Errorf("period end %s precedes start %s", endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	scope := ads.Scope{CustomerID: customerID, StartDate: startDate, EndDate: endDate}
	if campaigns != "" {
		for _, id := range strings.Split(campaigns, ",") {
			if id = strings.TrimSpace(id); id != "" {
				scope.CampaignIDs = append(scope.CampaignIDs, id)
			}
		}
	}
	return scope, nil
}

func buildLimiter(cfg *config.Config, customerID string) (quota.Limiter, error) {
	if cfg.Quota.RedisURL != "" {
		return quota.NewRedisLimiterFromURL(cfg.Quota.RedisURL, customerID, cfg.Quota.RequestsPerSecond)
	}
	return quota.NewTokenBucket(cfg.Quota.RequestsPerSecond, cfg.Quota.Burst), nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "analyzer: "+format+"\n", args...)
	os.Exit(1)
}
