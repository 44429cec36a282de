// backend/src/services/interbanking_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/username/vertex/backend/src/config"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	civilDateLayout     = "2006-01-02"
	maxMovementPages    = 100
	maxErrorBodyPreview = 256
)

var movementDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	civilDateLayout,
}

// InterBankingConfig holds the provider endpoints and credentials.
type InterBankingConfig struct {
	AuthURL           string
	APIURL            string
	BalancesURL       string
	ClientID          string
	ClientSecret      string
	CustomerID        string
	ServiceHeader     string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// InterBankingConfigFromApp extracts the provider settings from the app config.
func InterBankingConfigFromApp(cfg *config.AppConfig) InterBankingConfig {
	return InterBankingConfig{
		AuthURL:           cfg.InterBankingAuthURL,
		APIURL:            cfg.InterBankingAPIURL,
		BalancesURL:       cfg.InterBankingBalancesURL,
		ClientID:          cfg.InterBankingClientID,
		ClientSecret:      cfg.InterBankingClientSecret,
		CustomerID:        cfg.InterBankingCustomerID,
		ServiceHeader:     cfg.InterBankingServiceHeader,
		Timeout:           cfg.ProviderTimeout,
		RequestsPerSecond: cfg.ProviderRequestsPerSecond,
	}
}

// --- API Response Structs ---

// flexString accepts both JSON strings and numbers; the provider is not consistent
// about account and bank numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type ibBalancesResponse struct {
	Accounts []struct {
		AccountNumber flexString `json:"account_number"`
		BankNumber    flexString `json:"bank_number"`
		AccountType   string     `json:"account_type"`
		CBU           flexString `json:"cbu"`
		Currency      string     `json:"currency"`
		Balances      struct {
			CountableBalance decimal.NullDecimal `json:"countable_balance"`
		} `json:"balances"`
	} `json:"accounts"`
}

type ibMovementsResponse struct {
	MovementsDetail []struct {
		Amount        decimal.Decimal `json:"amount"`
		MovementDate  string          `json:"movement_date"`
		DepositorCode flexString      `json:"depositor_code"`
		Description   string          `json:"description"`
	} `json:"movements_detail"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// --- Service Implementation ---

// InterBankingGateway talks to the Inter Banking balances and movements APIs.
type InterBankingGateway struct {
	cfg        InterBankingConfig
	httpClient *http.Client
	tokens     *TokenCache
	limiter    *rate.Limiter
}

// headerTransport sets the headers every provider call carries, the token
// exchange included.
type headerTransport struct {
	base    http.RoundTripper
	service string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", "application/json")
	if t.service != "" {
		req.Header.Set("service", t.service)
	}
	return t.base.RoundTrip(req)
}

func NewInterBankingGateway(cfg InterBankingConfig) *InterBankingGateway {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := &http.Client{
		Jar:       jar,
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{base: http.DefaultTransport, service: cfg.ServiceHeader},
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	g := &InterBankingGateway{
		cfg:        cfg,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	g.tokens = NewTokenCache(func(ctx context.Context) (*oauth2.Token, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
		return credentials.Token(ctx)
	})
	return g
}

// EnsureToken makes sure a valid provider token is cached.
func (g *InterBankingGateway) EnsureToken(ctx context.Context) error {
	_, err := g.tokens.Token(ctx)
	return err
}

// ListAccounts returns the tenant bank accounts reported by the balances API.
func (g *InterBankingGateway) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	q := url.Values{}
	q.Set("customer-id", g.cfg.CustomerID)

	var resp ibBalancesResponse
	if err := g.getJSON(ctx, g.cfg.BalancesURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	accounts := make([]models.BankAccount, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		account := models.BankAccount{
			AccountNumber:    string(a.AccountNumber),
			BankNumber:       string(a.BankNumber),
			BankName:         BankName(string(a.BankNumber)),
			AccountType:      a.AccountType,
			CBU:              string(a.CBU),
			CountableBalance: a.Balances.CountableBalance.Decimal,
			Currency:         a.Currency,
		}
		if account.CBU == "" {
			account.CBU = account.AccountNumber
		}
		accounts = append(accounts, account)
	}
	logger.FromContext(ctx).Info("Fetched bank accounts", "count", len(accounts))
	return accounts, nil
}

// ListMovements returns the account's movements in [since, until], following the
// provider's pagination.
func (g *InterBankingGateway) ListMovements(ctx context.Context, accountNumber, bankNumber string, since, until civil.Date) ([]models.BankMovement, error) {
	var movements []models.BankMovement

	for page := 1; page <= maxMovementPages; page++ {
		q := url.Values{}
		q.Set("bank-number", bankNumber)
		q.Set("customer-id", g.cfg.CustomerID)
		q.Set("date-since", since.String())
		q.Set("date-until", until.String())
		q.Set("page", strconv.Itoa(page))
		endpoint := fmt.Sprintf("%s%s/movements/anteriores?%s", g.cfg.APIURL, url.PathEscape(accountNumber), q.Encode())

		var resp ibMovementsResponse
		if err := g.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, err
		}

		for _, m := range resp.MovementsDetail {
			at, err := parseMovementDate(m.MovementDate)
			if err != nil {
				return nil, fmt.Errorf("%w: account %s: %v", ErrGateway, accountNumber, err)
			}
			movements = append(movements, models.BankMovement{
				Amount:        m.Amount,
				MovementDate:  at,
				DepositorCode: string(m.DepositorCode),
				Description:   m.Description,
			})
		}

		if resp.TotalPages <= page || len(resp.MovementsDetail) == 0 {
			break
		}
	}
	return movements, nil
}

func parseMovementDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range movementDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized movement_date %q", raw)
}

// getJSON performs an authenticated GET and decodes the JSON body into out. A 401
// drops the cached token and the request is retried once with a fresh one.
func (g *InterBankingGateway) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := g.get(ctx, endpoint)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			logger.FromContext(ctx).Warn("Bank provider rejected token, refreshing", "endpoint", redactQuery(endpoint))
			g.tokens.Invalidate()
			continue
		}
		if status < 200 || status > 299 {
			return fmt.Errorf("%w: GET %s returned %d: %s", ErrGateway, redactQuery(endpoint), status, preview(body))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: malformed response from %s: %v", ErrGateway, redactQuery(endpoint), err)
		}
		return nil
	}
	return fmt.Errorf("%w: GET %s unauthorized", ErrGateway, redactQuery(endpoint))
}

func (g *InterBankingGateway) get(ctx context.Context, endpoint string) (int, []byte, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return 0, nil, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid request: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("client_id", g.cfg.ClientID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: GET %s: %v", ErrGateway, redactQuery(endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", ErrGateway, err)
	}
	return resp.StatusCode, body, nil
}

func redactQuery(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyPreview {
		return s[:maxErrorBodyPreview] + "..."
	}
	return s
}
