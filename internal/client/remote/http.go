package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/common"
)

// Config holds connection settings for the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration // per-request; defaults to 15s
}

// HTTPClient implements Service over the record service's JSON API, plus
// the account endpoints (register / salt / login) the CLI needs.
type HTTPClient struct {
	cfg         Config
	hc          *http.Client
	accessToken string
}

func NewHTTPClient(cfg Config) *HTTPClient {
	to := cfg.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	return &HTTPClient{
		cfg: cfg,
		hc:  &http.Client{Timeout: to},
	}
}

// SetAccessToken installs the bearer token used on subsequent requests.
func (c *HTTPClient) SetAccessToken(token string) { c.accessToken = token }

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s %s: %s", common.ErrNetwork, method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", common.ErrNetwork, err)
	}
	return nil
}

type fetchResponse struct {
	Records []models.SyncRecord `json:"records"`
}

func (c *HTTPClient) Fetch(ctx context.Context, owner, collection string, since int64) ([]models.SyncRecord, error) {
	q := url.Values{}
	q.Set("collection", collection)
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}

	var out fetchResponse
	if err := c.do(ctx, http.MethodGet, "/api/records?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

type pushRequest struct {
	Records []models.SyncRecord `json:"records"`
}

type pushResponse struct {
	Ack []string `json:"ack"`
}

func (c *HTTPClient) Push(ctx context.Context, recs []models.SyncRecord) ([]string, error) {
	var out pushResponse
	if err := c.do(ctx, http.MethodPost, "/api/records", pushRequest{Records: recs}, &out); err != nil {
		return nil, err
	}
	return out.Ack, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

// Register creates an account. The salt is stored server-side so other
// devices can derive the same master key; the verifier lets the server
// check a login without ever seeing the key.
func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return c.do(ctx, http.MethodPost, "/api/user/register", registerRequest{
		Username: username, Salt: salt, Verifier: verifier,
	}, nil)
}

type saltResponse struct {
	Salt []byte `json:"salt"`
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var out saltResponse
	err := c.do(ctx, http.MethodGet, "/api/user/salt?username="+url.QueryEscape(username), nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Salt, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges the verifier for a bearer token and installs it on the
// client.
func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) (string, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/api/user/login", loginRequest{Username: username, Verifier: verifier}, &out)
	if err != nil {
		return "", err
	}
	c.accessToken = out.AccessToken
	return out.AccessToken, nil
}
