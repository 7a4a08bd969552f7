package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
)

const maxBodyBytes = 1 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration

	ReadAttempts uint
	ReadDelay    time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Client struct {
	baseURL      string
	http         *http.Client
	breaker      *gobreaker.CircuitBreaker
	readAttempts uint
	readDelay    time.Duration
}

func NewClient(cfg Config) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	attempts := cfg.ReadAttempts
	if attempts == 0 {
		attempts = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bank-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !breakerFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("circuit breaker %s changed state from %s to %s", name, from, to)
		},
	})

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		http:         &http.Client{Timeout: cfg.Timeout},
		breaker:      breaker,
		readAttempts: attempts,
		readDelay:    cfg.ReadDelay,
	}
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, Auth{}, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Register creates a user on the remote side. It needs no session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var user User
	if err := c.do(ctx, Auth{}, http.MethodPost, "/auth/register", req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) Profile(ctx context.Context, auth Auth) (User, error) {
	var user User
	if err := c.read(ctx, auth, fmt.Sprintf("/user/%d", auth.UserID), &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, auth Auth, p ProfileUpdate) (User, error) {
	var user User
	if err := c.do(ctx, auth, http.MethodPut, fmt.Sprintf("/user/%d", auth.UserID), p, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) CreateAddress(ctx context.Context, auth Auth, req AddressRequest) (Address, error) {
	var addr Address
	if err := c.do(ctx, auth, http.MethodPost, fmt.Sprintf("/user/%d/address", auth.UserID), req, &addr); err != nil {
		return Address{}, err
	}
	return addr, nil
}

func (c *Client) Address(ctx context.Context, auth Auth) (Address, error) {
	var addr Address
	if err := c.read(ctx, auth, fmt.Sprintf("/user/%d/address", auth.UserID), &addr); err != nil {
		return Address{}, err
	}
	return addr, nil
}

func (c *Client) Categories(ctx context.Context, auth Auth) ([]Category, error) {
	var categories []Category
	if err := c.read(ctx, auth, "/transaction-categories", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = make([]Category, 0)
	}
	return categories, nil
}

func (c *Client) Accounts(ctx context.Context, auth Auth) ([]account.Account, error) {
	var accounts []account.Account
	if err := c.read(ctx, auth, fmt.Sprintf("/accounts/user/%d", auth.UserID), &accounts); err != nil {
		return nil, err
	}
	return account.Normalize(accounts), nil
}

// AccountBalance always goes to the remote side and is never retried.
func (c *Client) AccountBalance(ctx context.Context, auth Auth, accountID int64) (amount.Amount, error) {
	var resp balanceResponse
	path := fmt.Sprintf("/accounts/%d/%d/balance", auth.UserID, accountID)
	if err := c.do(ctx, auth, http.MethodGet, path, nil, &resp); err != nil {
		return amount.Amount{}, err
	}
	return resp.Balance, nil
}

func (c *Client) UpdateAccountStatus(ctx context.Context, auth Auth, accountID int64, status account.Status) (account.Account, error) {
	var acc account.Account
	path := fmt.Sprintf("/accounts/%d/%d/status", auth.UserID, accountID)
	if err := c.do(ctx, auth, http.MethodPatch, path, statusRequest{Status: string(status)}, &acc); err != nil {
		return account.Account{}, err
	}

	normalized := account.Normalize([]account.Account{acc})
	return normalized[0], nil
}

func (c *Client) CreateAccount(ctx context.Context, auth Auth, t account.Type) (account.Account, error) {
	var acc account.Account
	path := fmt.Sprintf("/accounts/%d", auth.UserID)
	if err := c.do(ctx, auth, http.MethodPost, path, accountTypeRequest{AccountType: string(t)}, &acc); err != nil {
		return account.Account{}, err
	}
	return account.Normalize([]account.Account{acc})[0], nil
}

func (c *Client) UpdateAccountType(ctx context.Context, auth Auth, accountID int64, t account.Type) (account.Account, error) {
	var acc account.Account
	path := fmt.Sprintf("/accounts/%d/%d", auth.UserID, accountID)
	if err := c.do(ctx, auth, http.MethodPatch, path, accountTypeRequest{AccountType: string(t)}, &acc); err != nil {
		return account.Account{}, err
	}
	return account.Normalize([]account.Account{acc})[0], nil
}

func (c *Client) Deposit(ctx context.Context, auth Auth, p DepositPayload) (Transaction, error) {
	return c.post(ctx, auth, fmt.Sprintf("/transactions/%d/deposit", auth.UserID), p)
}

func (c *Client) Withdraw(ctx context.Context, auth Auth, p WithdrawPayload) (Transaction, error) {
	return c.post(ctx, auth, fmt.Sprintf("/transactions/%d/withdraw", auth.UserID), p)
}

func (c *Client) Transfer(ctx context.Context, auth Auth, p TransferPayload) (Transaction, error) {
	return c.post(ctx, auth, fmt.Sprintf("/transactions/%d/transfer", auth.UserID), p)
}

func (c *Client) Transactions(ctx context.Context, auth Auth, accountNumber string) ([]Transaction, error) {
	q := url.Values{}
	q.Set("accountNumber", accountNumber)

	var txs []Transaction
	path := fmt.Sprintf("/transactions/%d/account?%s", auth.UserID, q.Encode())
	if err := c.read(ctx, auth, path, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = make([]Transaction, 0)
	}
	return txs, nil
}

// post sends a mutation exactly once.
func (c *Client) post(ctx context.Context, auth Auth, path string, payload interface{}) (Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, auth, http.MethodPost, path, payload, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// read is used for idempotent list calls only, these are retried when the
// remote side is unreachable or failing.
func (c *Client) read(ctx context.Context, auth Auth, path string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.do(ctx, auth, http.MethodGet, path, nil, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.readAttempts),
		retry.Delay(c.readDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *Error
			return errors.As(err, &apiErr) && apiErr.retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("retrying GET %s, attempt %d: %v", path, n+1, err)
		}),
	)
}

func (c *Client) do(ctx context.Context, auth Auth, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, auth, method, path, body, out)
	})

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		log.Warnf("circuit breaker rejected %s %s: %v", method, path, err)
		return &Error{Status: http.StatusServiceUnavailable, Message: unavailableMessage, cause: err, circuitOpen: true}
	}

	return err
}

func (c *Client) roundTrip(ctx context.Context, auth Auth, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build remote request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Message: unavailableMessage, cause: err}
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(errors.Wrap(err, "close response body")).Info(path)
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Status: resp.StatusCode, Message: unavailableMessage, cause: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{Status: resp.StatusCode, Message: messageFrom(b, resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}

	if err := json.Unmarshal(b, out); err != nil {
		return &MalformedResponseError{Method: method, Path: path, Status: resp.StatusCode, cause: err}
	}

	return nil
}

// breakerFailure reports whether err says something about the health of the
// remote side. Declined requests, undecodable 2xx replies and callers that
// gave up do not.
func breakerFailure(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Unavailable()
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return false
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
