package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/config"
	"github.com/whiskylabs/whisky-protocol-core/httpclient"
	"github.com/whiskylabs/whisky-protocol-core/pkg/custody"
)

// CustodyProvider implements custody.Service over the external custody
// service's HTTP API. Amounts travel as decimal strings so 64-bit values
// survive JSON intact.
type CustodyProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewCustodyProvider creates a custody provider from configuration.
func NewCustodyProvider(cfg *config.Config, logger zerolog.Logger) *CustodyProvider {
	return &CustodyProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.ExternalServices.CustodyService.BaseURL,
			Timeout: cfg.ExternalServices.CustodyService.Timeout,
			Logger:  logger,
		}),
		logger: logger.With().Str("component", "custody_provider").Logger(),
	}
}

type balanceResponse struct {
	Data struct {
		Balance uint64 `json:"balance,string"`
	} `json:"data"`
}

type transferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount,string"`
}

// Balance retrieves the balance of an account in the given asset.
func (p *CustodyProvider) Balance(ctx context.Context, account, asset string) (uint64, error) {
	path := fmt.Sprintf("/accounts/%s/balance?asset=%s",
		url.PathEscape(account), url.QueryEscape(asset))

	var result balanceResponse
	if err := p.client.GetJSON(ctx, path, nil, &result); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Data.Balance, nil
}

// Transfer moves amount between accounts atomically on the custody side.
func (p *CustodyProvider) Transfer(ctx context.Context, from, to, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	req := transferRequest{From: from, To: to, Asset: asset, Amount: amount}
	if err := p.client.PostJSON(ctx, "/transfers", req, nil, nil); err != nil {
		return fmt.Errorf("failed to transfer: %w", err)
	}
	return nil
}

// Mint creates amount of asset in the target account.
func (p *CustodyProvider) Mint(ctx context.Context, to, asset string, amount uint64) error {
	req := transferRequest{To: to, Asset: asset, Amount: amount}
	if err := p.client.PostJSON(ctx, "/mint", req, nil, nil); err != nil {
		return fmt.Errorf("failed to mint: %w", err)
	}
	return nil
}

// Burn destroys amount of asset held by the account.
func (p *CustodyProvider) Burn(ctx context.Context, from, asset string, amount uint64) error {
	req := transferRequest{From: from, Asset: asset, Amount: amount}
	if err := p.client.PostJSON(ctx, "/burn", req, nil, nil); err != nil {
		return fmt.Errorf("failed to burn: %w", err)
	}
	return nil
}

var _ custody.Service = (*CustodyProvider)(nil)
