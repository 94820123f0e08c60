package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"azcost/internal/cli"
	"azcost/internal/logging"
)

const (
	// Binary is the az CLI executable name
	Binary = "az"

	defaultTimeout    = 60 * time.Second
	loginCheckTimeout = 10 * time.Second
	dateFormat        = "2006-01-02"
)

// ErrNotLoggedIn is returned when `az account show` fails
var ErrNotLoggedIn = errors.New("not logged into Azure CLI, run: az login")

// ErrMalformedOutput is returned when az output cannot be decoded
var ErrMalformedOutput = errors.New("malformed az CLI output")

// Account is the signed-in subscription reported by `az account show`
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TenantID  string `json:"tenantId"`
	State     string `json:"state"`
	IsDefault bool   `json:"isDefault"`
}

// Column describes one column of a cost query result
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the tabular result of a cost query
type QueryResult struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the index of the first column matching one of names, or -1
func (q *QueryResult) ColumnIndex(names ...string) int {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for i, col := range q.Columns {
			if strings.EqualFold(col.Name, name) {
				return i
			}
		}
	}
	return -1
}

// QueryOptions controls the cost query
type QueryOptions struct {
	From time.Time
	To   time.Time
	// CostColumn is the column aggregated with Sum, e.g. PreTaxCost
	CostColumn string
	// GroupBy lists the dimensions to group on
	GroupBy []string
}

// Client runs az CLI commands
type Client struct {
	runner       cli.Runner
	subscription string
	timeout      time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithSubscription scopes queries to a subscription ID
func WithSubscription(id string) Option {
	return func(c *Client) {
		c.subscription = id
	}
}

// WithTimeout bounds each az invocation
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client that executes az through runner
func NewClient(runner cli.Runner, opts ...Option) *Client {
	c := &Client{
		runner:  runner,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Debug("Running az command", map[string]interface{}{
		"args": strings.Join(args, " "),
	})
	return c.runner.Run(ctx, nil, Binary, args...)
}

// CheckLogin verifies the az CLI is signed in and returns the active account
func (c *Client) CheckLogin(ctx context.Context) (Account, error) {
	timeout := loginCheckTimeout
	if c.timeout < timeout {
		timeout = c.timeout
	}

	out, err := c.run(ctx, timeout, "account", "show", "--output", "json")
	if err != nil {
		if errors.Is(err, cli.ErrNotFound) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
	}

	var account Account
	if err := json.Unmarshal(out, &account); err != nil {
		return Account{}, fmt.Errorf("%w: account show: %v", ErrMalformedOutput, err)
	}
	return account, nil
}

// ListSubscriptions returns the subscriptions visible to the signed-in user
func (c *Client) ListSubscriptions(ctx context.Context) ([]Account, error) {
	out, err := c.run(ctx, c.timeout, "account", "list", "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var accounts []Account
	if err := json.Unmarshal(out, &accounts); err != nil {
		return nil, fmt.Errorf("%w: account list: %v", ErrMalformedOutput, err)
	}
	return accounts, nil
}

// Scope returns the query scope, resolving the signed-in subscription when
// none was configured
func (c *Client) Scope(ctx context.Context) (string, error) {
	account, err := c.CheckLogin(ctx)
	if err != nil {
		return "", err
	}
	id := c.subscription
	if id == "" {
		id = account.ID
	}
	if id == "" {
		return "", fmt.Errorf("%w: no subscription id", ErrMalformedOutput)
	}
	return "/subscriptions/" + id, nil
}

// QueryArgs builds the az costmanagement query arguments
func QueryArgs(scope string, opts QueryOptions) ([]string, error) {
	aggregation, err := json.Marshal(map[string]map[string]string{
		"totalCost": {"name": opts.CostColumn, "function": "Sum"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregation: %w", err)
	}

	args := []string{
		"costmanagement", "query",
		"--type", "ActualCost",
		"--scope", scope,
		"--timeframe", "Custom",
		"--time-period",
		"from=" + opts.From.Format(dateFormat) + "T00:00:00Z",
		"to=" + opts.To.Format(dateFormat) + "T23:59:59Z",
		"--dataset-aggregation", string(aggregation),
	}
	for _, dim := range opts.GroupBy {
		args = append(args, "--dataset-grouping", "name="+dim, "type=Dimension")
	}
	return append(args, "--output", "json"), nil
}

// queryEnvelope accepts both the flattened az CLI output and the REST shape
// with a properties object
type queryEnvelope struct {
	QueryResult
	Properties *QueryResult `json:"properties"`
}

// DecodeQueryResult parses the JSON emitted by az costmanagement query
func DecodeQueryResult(data []byte) (*QueryResult, error) {
	var env queryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	result := &env.QueryResult
	if len(result.Columns) == 0 && env.Properties != nil {
		result = env.Properties
	}
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns in cost query result", ErrMalformedOutput)
	}
	return result, nil
}

// QueryCosts checks the login, then runs the cost query for the given period
func (c *Client) QueryCosts(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	if opts.To.Before(opts.From) {
		return nil, fmt.Errorf("invalid query period %s..%s", opts.From.Format(dateFormat), opts.To.Format(dateFormat))
	}
	if opts.CostColumn == "" {
		opts.CostColumn = "PreTaxCost"
	}
	if len(opts.GroupBy) == 0 {
		opts.GroupBy = []string{"ResourceId"}
	}

	scope, err := c.Scope(ctx)
	if err != nil {
		return nil, err
	}

	args, err := QueryArgs(scope, opts)
	if err != nil {
		return nil, err
	}

	out, err := c.run(ctx, c.timeout, args...)
	if err != nil {
		return nil, fmt.Errorf("cost query failed: %w", err)
	}

	return DecodeQueryResult(out)
}
