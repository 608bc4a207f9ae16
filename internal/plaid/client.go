// Package plaid reads account balances and recent cash flow from the
// Plaid API.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

const (
	dateLayout = "2006-01-02"
	// maxPage is the largest count TransactionsGet accepts.
	maxPage = int32(500)
)

// environments lists the hosts Plaid still serves.
var environments = map[string]plaid.Environment{
	"sandbox":    plaid.Sandbox,
	"production": plaid.Production,
}

// Config holds Plaid API credentials for one linked item.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("plaid client ID is required")
	case c.Secret == "":
		return errors.New("plaid secret is required")
	case c.AccessToken == "":
		return errors.New("plaid access token is required")
	case c.Environment == "":
		return errors.New("plaid environment is required")
	}
	if _, ok := environments[c.Environment]; !ok {
		return fmt.Errorf("invalid Plaid environment %q: must be sandbox or production", c.Environment)
	}
	return nil
}

// Balance is one account's current balance.
type Balance struct {
	AccountID string
	Type      string // depository, credit, loan, investment, ...
	Current   float64
}

// Flow is one posted transaction. Amount follows Plaid's sign: positive
// for money leaving the account.
type Flow struct {
	Date      time.Time
	ID        string
	AccountID string
	Amount    float64
	Pending   bool
}

// Client implements Fetcher against the Plaid API.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	accessToken string
}

var _ Fetcher = (*Client)(nil)

// NewClient validates cfg and builds an API client for its environment.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	apiCfg := plaid.NewConfiguration()
	apiCfg.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	apiCfg.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	apiCfg.UseEnvironment(environments[cfg.Environment])

	opts := common.DefaultRetryOptions()
	opts.InitialDelay = time.Second

	return &Client{
		client:      plaid.NewAPIClient(apiCfg),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts:   &opts,
	}, nil
}

// call runs one API request under the client's retry policy.
func (c *Client) call(ctx context.Context, what string, do func() error) error {
	return common.WithRetry(ctx, func() error {
		if err := do(); err != nil {
			return c.classify(err, "failed to fetch "+what)
		}
		return nil
	}, *c.retryOpts)
}

// GetBalances fetches the current balance of every linked account.
func (c *Client) GetBalances(ctx context.Context) ([]Balance, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	err := c.call(ctx, "accounts", func() error {
		req := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
		accounts = resp.GetAccounts()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Balance, len(accounts))
	for i, a := range accounts {
		bal := a.GetBalances()
		out[i] = Balance{AccountID: a.GetAccountId(), Type: string(a.GetType()), Current: bal.GetCurrent()}
	}
	c.logger.Info("Fetched account balances", "accounts", len(out))
	return out, nil
}

// GetCashFlow pages through posted transactions between the two dates.
func (c *Client) GetCashFlow(ctx context.Context, startDate, endDate time.Time) ([]Flow, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, errors.New("start date must be before end date")
	}
	start, end := startDate.Format(dateLayout), endDate.Format(dateLayout)

	var flows []Flow
	for offset := int32(0); ; offset += maxPage {
		var page []plaid.Transaction
		err := c.call(ctx, "transactions", func() error {
			req := plaid.NewTransactionsGetRequest(c.accessToken, start, end)
			req.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(maxPage),
				Offset: plaid.PtrInt32(offset),
			})
			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
			page = resp.GetTransactions()
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, t := range page {
			flows = append(flows, c.toFlow(t))
		}
		if int32(len(page)) < maxPage {
			break
		}
	}

	c.logger.Info("Fetched cash flow", "start", start, "end", end, "transactions", len(flows))
	return flows, nil
}

func (c *Client) toFlow(t plaid.Transaction) Flow {
	date, err := time.Parse(dateLayout, t.GetDate())
	if err != nil {
		c.logger.Warn("Unparseable transaction date, using today", "date", t.GetDate(), "error", err)
		date = time.Now()
	}
	return Flow{
		Date:      date,
		ID:        t.GetTransactionId(),
		AccountID: t.GetAccountId(),
		Amount:    t.GetAmount(),
		Pending:   t.GetPending(),
	}
}

// classify makes Plaid rate limiting retryable and every other API error
// permanent.
func (c *Client) classify(err error, msg string) error {
	apiErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if apiErr.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Plaid rate limit hit", "error", apiErr.ErrorMessage)
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrRateLimit, apiErr.ErrorMessage), Retryable: true}
	}
	return common.Permanent(fmt.Errorf("plaid API error: %s - %s", apiErr.ErrorCode, apiErr.ErrorMessage))
}
