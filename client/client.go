package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"

	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/jwt"
)

const (
	defaultTimeout = 3 * time.Second
	tokenLifetime  = 5 * time.Minute
)

// Client is a typed client for a cadastre node. Reads go through a local
// cache; mutations invalidate the touched record.
type Client struct {
	client     *http.Client
	cache      *cache.Cache
	host       string
	privatekey string
	address    string
	userAgent  string
}

// New builds a client for host. privatekey may be empty for a read-only
// client limited to the public endpoints.
func New(host string, privatekey string) (*Client, error) {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:     &httpClient,
		cache:      cache.New(10*time.Minute, 15*time.Minute),
		host:       host,
		privatekey: privatekey,
		userAgent:  "cadastre-client",
	}
	httpClient.Transport = c

	if privatekey != "" {
		address, err := cadastre.PrivKeyToAddr(privatekey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %v", err)
		}
		c.address = address
	}

	return c, nil
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Address returns the caller identity this client signs as.
func (c *Client) Address() string {
	return c.address
}

func (c *Client) token() (string, error) {
	now := time.Now()
	return jwt.Create(jwt.Claims{
		Issuer:         c.address,
		Subject:        "cadastre",
		Audience:       c.host,
		IssuedAt:       strconv.FormatInt(now.Unix(), 10),
		ExpirationTime: strconv.FormatInt(now.Add(tokenLifetime).Unix(), 10),
	}, c.privatekey)
}

func (c *Client) request(ctx context.Context, method, path string, body any, response any) error {

	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	url := "https://" + c.host + path
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.privatekey != "" {
		token, err := c.token()
		if err != nil {
			return fmt.Errorf("failed to create token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return fmt.Errorf("request failed (%d): %s", resp.StatusCode, failure.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	return nil
}

func (c *Client) recordCacheKey(id uint64) string {
	sum := xxh3.HashString(fmt.Sprintf("%s:%s:record:%d", c.host, c.address, id))
	return strconv.FormatUint(sum, 16)
}

func (c *Client) invalidate(id uint64) {
	c.cache.Delete(c.recordCacheKey(id))
}

// Register creates a record held by this client's identity.
func (c *Client) Register(ctx context.Context, input cadastre.RecordInput) (uint64, error) {
	var resp cadastre.RegisterResponse
	err := c.request(ctx, http.MethodPost, "/api/v1/records", input, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// GetRecord reads a record, serving repeated reads from the local cache.
func (c *Client) GetRecord(ctx context.Context, id uint64) (cadastre.RecordView, error) {
	cacheKey := c.recordCacheKey(id)
	if x, found := c.cache.Get(cacheKey); found {
		return x.(cadastre.RecordView), nil
	}

	var view cadastre.RecordView
	err := c.request(ctx, http.MethodGet, "/api/v1/records/"+strconv.FormatUint(id, 10), nil, &view)
	if err != nil {
		return cadastre.RecordView{}, err
	}

	c.cache.Set(cacheKey, view, cache.DefaultExpiration)
	return view, nil
}

func (c *Client) Modify(ctx context.Context, id uint64, input cadastre.RecordInput) error {
	err := c.request(ctx, http.MethodPut, "/api/v1/records/"+strconv.FormatUint(id, 10), input, nil)
	if err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *Client) ReassignHolder(ctx context.Context, id uint64, newHolder string) error {
	path := "/api/v1/records/" + strconv.FormatUint(id, 10) + "/holder"
	err := c.request(ctx, http.MethodPost, path, cadastre.ReassignRequest{NewHolder: newHolder}, nil)
	if err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *Client) Delete(ctx context.Context, id uint64) error {
	err := c.request(ctx, http.MethodDelete, "/api/v1/records/"+strconv.FormatUint(id, 10), nil, nil)
	if err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *Client) GrantAccess(ctx context.Context, id uint64, accessor string) error {
	path := "/api/v1/records/" + strconv.FormatUint(id, 10) + "/grants"
	return c.request(ctx, http.MethodPost, path, cadastre.GrantRequest{Accessor: accessor}, nil)
}

func (c *Client) RevokeAccess(ctx context.Context, id uint64, accessor string) error {
	path := "/api/v1/records/" + strconv.FormatUint(id, 10) + "/grants/" + accessor
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) Attest(ctx context.Context, id uint64, notes string) error {
	path := "/api/v1/records/" + strconv.FormatUint(id, 10) + "/attestation"
	err := c.request(ctx, http.MethodPost, path, cadastre.AttestRequest{Notes: notes}, nil)
	if err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *Client) AuthenticatorStatus(ctx context.Context, identity string) (bool, error) {
	var status cadastre.AuthenticatorStatus
	err := c.request(ctx, http.MethodGet, "/api/v1/authenticators/"+identity, nil, &status)
	if err != nil {
		return false, err
	}
	return status.Present, nil
}

func (c *Client) AuthorizeAuthenticator(ctx context.Context, identity string) error {
	return c.request(ctx, http.MethodPut, "/api/v1/authenticators/"+identity, nil, nil)
}

func (c *Client) RevokeAuthenticator(ctx context.Context, identity string) error {
	return c.request(ctx, http.MethodDelete, "/api/v1/authenticators/"+identity, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (cadastre.Stats, error) {
	var stats cadastre.Stats
	err := c.request(ctx, http.MethodGet, "/api/v1/stats", nil, &stats)
	return stats, err
}

func (c *Client) WellKnown(ctx context.Context) (cadastre.WellKnownCadastre, error) {
	var wellknown cadastre.WellKnownCadastre
	err := c.request(ctx, http.MethodGet, "/.well-known/cadastre", nil, &wellknown)
	return wellknown, err
}
