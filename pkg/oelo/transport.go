// Package oelo implements the wire protocol spoken by Oelo light-pattern
// controllers: a plain HTTP interface with GET /getController returning a JSON
// array of zone statuses and GET /setPattern applying a pattern to a zone.
package oelo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/oelohome/oelod/internal/errors"
)

// Transport owns request/response framing to one controller at a fixed
// address. Connections are not assumed to persist between calls; every
// operation must tolerate a fresh handshake or a mid-session drop.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTransport creates a transport for a controller at the given address
// (host or host:port). Every call is bounded by the given timeout; device
// silence is an expected failure mode, not an exceptional one.
func NewTransport(address string, timeout time.Duration, logger *slog.Logger, httpClient ...*http.Client) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	var hc *http.Client
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	} else {
		hc = &http.Client{Timeout: timeout}
	}
	return &Transport{
		baseURL:    "http://" + address,
		httpClient: hc,
		logger:     logger,
	}
}

// GetController fetches the live per-zone status array from the controller.
func (t *Transport) GetController(ctx context.Context) ([]ZoneState, error) {
	reqURL := t.baseURL + "/getController"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.InvalidInputf("building /getController request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		err = classify(err)
		t.logger.Debug("oelo: /getController request failed", "url", reqURL, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := apperrors.Protocolf("unexpected status %d from /getController", resp.StatusCode)
		t.logger.Debug("oelo: /getController request failed", "url", reqURL, "error", err)
		return nil, err
	}

	var zones []ZoneState
	if err := json.NewDecoder(resp.Body).Decode(&zones); err != nil {
		t.logger.Debug("oelo: /getController decode failed", "url", reqURL, "error", err)
		return nil, apperrors.Protocolf("decoding /getController response: %w", err)
	}
	if zones == nil {
		// The firmware replies with a JSON array even when no zones are
		// configured; anything else is not an Oelo controller.
		return nil, apperrors.Protocolf("/getController returned no zone array")
	}

	t.logger.Debug("oelo: /getController response", "url", reqURL, "zones", len(zones))
	return zones, nil
}

// SetPattern applies a single zone's pattern via /setPattern. The query string
// fully encodes the target state, so re-sending the same request is safe: the
// controller ends up in the same visible state whether it is applied once or
// again after a dropped acknowledgment.
func (t *Transport) SetPattern(ctx context.Context, zone ZoneState) error {
	q := url.Values{}
	q.Set("zones", strconv.Itoa(zone.Zone))
	q.Set("patternType", zone.PatternType)
	q.Set("colors", strings.Join(zone.Colors, ","))
	q.Set("brightness", strconv.Itoa(zone.Brightness))
	q.Set("speed", strconv.Itoa(zone.Speed))
	q.Set("power", strconv.Itoa(zone.On))

	reqURL := t.baseURL + "/setPattern?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperrors.InvalidInputf("building /setPattern request: %w", err)
	}

	t.logger.Debug("oelo: applying zone pattern",
		"url", reqURL,
		"zone", zone.Zone,
		"patternType", zone.PatternType,
		"brightness", zone.Brightness,
	)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		err = classify(err)
		t.logger.Debug("oelo: /setPattern request failed", "url", reqURL, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.Protocolf("unexpected status %d from /setPattern, body: %s", resp.StatusCode, string(body))
	}

	// Drain so the connection can be reused when the firmware allows it.
	io.Copy(io.Discard, resp.Body)
	return nil
}

// classify maps a net/http error onto the transport taxonomy. "No response in
// budget" and "could not connect" are distinct kinds so callers can apply
// different retry policy to each.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeoutf("%s", err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Timeoutf("request canceled: %s", err.Error())
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return apperrors.Timeoutf("%s", err.Error())
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return apperrors.Timeoutf("%s", err.Error())
	}
	return apperrors.Unreachablef("%s", err.Error())
}

// Addr returns the controller address the transport talks to, for logging.
func (t *Transport) Addr() string {
	return strings.TrimPrefix(t.baseURL, "http://")
}
