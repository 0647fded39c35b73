package jd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the public relay API endpoint.
const DefaultEndpoint = "https://api.jdownloader.org"

// apiVersion is the device protocol version sent with every call.
const apiVersion = 1

// Config carries the settings needed to build a Client.
type Config struct {
	// Endpoint is the relay base URL. Defaults to DefaultEndpoint.
	Endpoint string
	// Email and Password are the relay account credentials.
	Email    string
	Password string
	// AppKey identifies this client to the relay. Defaults to "myjdapi".
	AppKey string
	// DeviceName selects which device to bind after connecting.
	// Empty picks the first device in list order.
	DeviceName string
	// HTTPClient is used for all relay requests. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

// Client talks to a remote download manager through the cloud relay.
// One Client owns at most one authenticated Session and one bound
// device at a time; both may be replaced by reconnecting. Calls from
// multiple goroutines are safe: the session tokens are read-only after
// the handshake and every call carries its own request id.
type Client struct {
	endpoint   string
	email      string
	password   string
	appKey     string
	deviceName string
	httpc      *http.Client
	log        *zap.Logger

	mu      sync.RWMutex
	session *Session
	device  *Device

	// lastRID enforces non-decreasing request ids within the session.
	lastRID atomic.Int64
}

// NewClient builds a Client from cfg. The logger must not be nil.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.AppKey == "" {
		cfg.AppKey = "myjdapi"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		email:      cfg.Email,
		password:   cfg.Password,
		appKey:     cfg.AppKey,
		deviceName: cfg.DeviceName,
		httpc:      cfg.HTTPClient,
		log:        log,
	}
}

// requestID returns a millisecond timestamp that never decreases
// across calls on this client.
func (c *Client) requestID() int64 {
	now := time.Now().UnixMilli()
	for {
		last := c.lastRID.Load()
		if now < last {
			now = last
		}
		if c.lastRID.CompareAndSwap(last, now) {
			return now
		}
	}
}

// Connect performs the authentication handshake and installs a fresh
// Session. Any previous session is discarded.
func (c *Client) Connect(ctx context.Context) error {
	loginSecret := LoginSecret(c.email, c.password)
	deviceSecret := DeviceSecret(c.email, c.password)

	rid := c.requestID()
	query := fmt.Sprintf("/my/connect?email=%s&appkey=%s&rid=%d",
		url.QueryEscape(strings.ToLower(c.email)), url.QueryEscape(c.appKey), rid)
	signature := Sign(query, loginSecret)

	body, err := c.get(ctx, query+"&signature="+signature, loginSecret, SourceRelay)
	if err != nil {
		return err
	}

	var resp connectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &CryptoError{Op: "parse connect response", Err: err}
	}

	serverToken, err := UpdateToken(loginSecret, resp.SessionToken)
	if err != nil {
		return err
	}
	deviceToken, err := UpdateToken(deviceSecret, resp.SessionToken)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = &Session{
		SessionToken: resp.SessionToken,
		RegainToken:  resp.RegainToken,
		ServerToken:  serverToken,
		DeviceToken:  deviceToken,
	}
	c.device = nil
	c.mu.Unlock()

	c.log.Info("connected to relay")
	return nil
}

// Disconnect ends the session on the relay and discards it locally.
// A new handshake is required to resume.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.RLock()
	connected := c.session != nil
	c.mu.RUnlock()
	if !connected {
		return nil
	}

	_, err := c.callServer(ctx, "/my/disconnect", true, nil)

	c.mu.Lock()
	c.session = nil
	c.device = nil
	c.mu.Unlock()

	return err
}

// Connected reports whether an authenticated session exists.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// CurrentDevice returns the device bound to the session, or nil.
func (c *Client) CurrentDevice() *Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.device
}

// callServer makes a signed control-plane call. The signed query is
// path?rid=N, plus &sessiontoken=... when withSession is set and
// &params=... when params are given; the signature is appended last.
func (c *Client) callServer(ctx context.Context, path string, withSession bool, params []any) (json.RawMessage, error) {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return nil, ErrNotConnected
	}

	query := fmt.Sprintf("%s?rid=%d", path, c.requestID())
	if withSession {
		query += "&sessiontoken=" + url.QueryEscape(sess.SessionToken)
	}
	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		query += "&params=" + url.QueryEscape(string(encoded))
	}
	signature := Sign(query, sess.ServerToken)

	return c.get(ctx, query+"&signature="+signature, sess.ServerToken, SourceRelay)
}

// get issues a GET against the relay and decodes the response body as
// JSON, decrypting it with token first and falling back to plain JSON
// when decryption fails. Unencrypted error bodies do occur.
func (c *Client) get(ctx context.Context, query string, token []byte, source RemoteSource) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+query, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + source.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseRemoteError(body, token, source, resp.StatusCode)
	}
	return decodeBody(body, token)
}

// deviceRequest is the plaintext of an encrypted device call body.
type deviceRequest struct {
	URL    string `json:"url"`
	Params []any  `json:"params"`
	RID    int64  `json:"rid"`
	APIVer int    `json:"apiVer"`
}

// deviceResponse is the decrypted envelope of a device reply.
type deviceResponse struct {
	RID  int64           `json:"rid"`
	Data json.RawMessage `json:"data"`
}

// callDevice makes an encrypted, signed call against the bound device
// and unmarshals the response data into out (which may be nil for
// calls whose result is discarded).
//
// The path signed with the device token must reappear inside the
// encrypted body's url field; the device cross-checks the two and
// silently rejects requests where they disagree.
func (c *Client) callDevice(ctx context.Context, action string, params []any, out any) error {
	c.mu.RLock()
	sess, dev := c.session, c.device
	c.mu.RUnlock()
	if sess == nil {
		return ErrNotConnected
	}
	if dev == nil {
		return ErrNoDeviceSelected
	}

	rid := c.requestID()
	devicePath := "/t_" + sess.SessionToken + "_" + dev.ID + action
	signature := Sign(devicePath, sess.DeviceToken)

	if params == nil {
		params = []any{}
	}
	plaintext, err := json.Marshal(deviceRequest{
		URL:    action + "?signature=" + signature,
		Params: params,
		RID:    rid,
		APIVer: apiVersion,
	})
	if err != nil {
		return fmt.Errorf("marshal device request: %w", err)
	}
	encrypted, err := Encrypt(string(plaintext), sess.DeviceToken)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+devicePath+"?signature="+signature, strings.NewReader(encrypted))
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: "POST " + action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseRemoteError(body, sess.DeviceToken, SourceDevice, resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	plain, err := Decrypt(string(bytes.TrimSpace(body)), sess.DeviceToken)
	if err != nil {
		// Some device responses arrive unencrypted.
		if json.Valid(body) {
			if out == nil {
				return nil
			}
			return json.Unmarshal(body, out)
		}
		return err
	}

	var envelope deviceResponse
	if err := json.Unmarshal([]byte(plain), &envelope); err != nil {
		return &CryptoError{Op: "parse device response", Err: err}
	}
	if envelope.RID != rid {
		// Flagged, not rejected: the payload is still usable.
		c.log.Warn("device response rid mismatch",
			zap.Int64("sent", rid), zap.Int64("received", envelope.RID))
	}
	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

// decodeBody decrypts a 2xx body with token, falling back to treating
// it as plain JSON when decryption fails.
func decodeBody(body []byte, token []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if plain, err := Decrypt(string(trimmed), token); err == nil {
		return json.RawMessage(plain), nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed), nil
	}
	return nil, &CryptoError{Op: "decode response", Err: fmt.Errorf("body is neither ciphertext nor JSON")}
}

// parseRemoteError extracts the machine-readable rejection from a
// non-2xx body. Plain JSON is tried before decryption: the relay
// returns some error bodies unencrypted, and reversing the order
// breaks parsing for exactly those.
func parseRemoteError(body []byte, token []byte, source RemoteSource, status int) error {
	trimmed := bytes.TrimSpace(body)

	var e apiError
	if json.Unmarshal(trimmed, &e) == nil && e.Type != "" {
		return &RemoteError{Source: source, Type: e.Type}
	}
	if plain, err := Decrypt(string(trimmed), token); err == nil {
		if json.Unmarshal([]byte(plain), &e) == nil && e.Type != "" {
			return &RemoteError{Source: source, Type: e.Type}
		}
	}
	return &RemoteError{Source: source, Type: fmt.Sprintf("HTTP_%d", status)}
}

// String returns the source name for log and error text.
func (s RemoteSource) String() string { return string(s) }
