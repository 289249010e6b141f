package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RelayHoldTimeout is how long the relay may hold a request open, in
// milliseconds, before answering with a timeout.
const RelayHoldTimeout = 85000
const RelayRequestTimeout = 90 * time.Second
const DefaultRetryInterval = time.Minute

type subscriptionRequest struct {
	Timeout   int      `json:"timeout"`
	DeviceIDs []string `json:"deviceIds"`
}

type subscriptionResponse struct {
	Timeout bool               `json:"timeout"`
	Events  []model.ShortEvent `json:"events"`
}

// Subscription long-polls a relay for events on the bridge's devices,
// reconnecting after a fixed interval when the relay cannot be reached.
type Subscription struct {
	relayURL   string
	token      string
	deviceIDs  func() []string
	router     cda.EventRouter
	logger     logwrap.Logger
	retry      time.Duration
	httpClient *http.Client
}

func NewSubscription(relayURL string, token string, deviceIDs func() []string, router cda.EventRouter, logger logwrap.Logger) (*Subscription, error) {
	if relayURL == "" {
		return nil, fmt.Errorf("%w: relay url required", cda.ErrConfiguration)
	}

	if !strings.HasSuffix(relayURL, "/") {
		relayURL += "/"
	}

	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("%w: relay url: %w", cda.ErrConfiguration, err)
	}

	return &Subscription{
		relayURL:  u.JoinPath("clientrequest").String(),
		token:     token,
		deviceIDs: deviceIDs,
		router:    router,
		logger:    logger,
		retry:     DefaultRetryInterval,
		httpClient: &http.Client{
			Timeout: RelayRequestTimeout,
		},
	}, nil
}

func (s *Subscription) WithRetryInterval(d time.Duration) {
	if d > 0 {
		s.retry = d
	}
}

// Run requests events until the context is done.
func (s *Subscription) Run(ctx context.Context) {
	s.logger.LogInfo(ctx, "Starting relay subscription.", logwrap.Datum("RelayURL", s.relayURL))

	for ctx.Err() == nil {
		if err := s.poll(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}

			s.logger.LogError(ctx, "Could not connect to relay, will retry.", logwrap.Err(err), logwrap.Datum("RetryIn", s.retry.String()))

			select {
			case <-ctx.Done():
			case <-time.After(s.retry):
			}
		}
	}

	s.logger.LogInfo(ctx, "Relay subscription stopped.")
}

func (s *Subscription) poll(ctx context.Context) error {
	data, err := json.Marshal(subscriptionRequest{Timeout: RelayHoldTimeout, DeviceIDs: s.deviceIDs()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.relayURL, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer: "+s.token)
	req.Header.Set("Keep-Alive", "timeout=120, max=1000")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var body subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %w", cda.ErrMalformedResponse, err)
	}

	s.logger.LogDebug(ctx, "Received relay response.", logwrap.Datum("Timeout", body.Timeout), logwrap.Datum("Count", len(body.Events)))

	for _, e := range body.Events {
		s.router.Route(ctx, e)
	}

	return nil
}
