package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/model"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.smartthings.com/v1/"
const DefaultTimeout = 10 * time.Second

// AuthorizationPrefix precedes the access token on every request.
const AuthorizationPrefix = "Bearer: "

type CommandBody int

const (
	// CommandBodyWrapped posts {"commands": [...]} with component ids.
	CommandBodyWrapped CommandBody = iota
	// CommandBodyBare posts a bare array of commands without component ids.
	CommandBodyBare
)

func ParseCommandBody(s string) (CommandBody, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrapped":
		return CommandBodyWrapped, nil
	case "bare":
		return CommandBodyBare, nil
	default:
		return CommandBodyWrapped, fmt.Errorf("%w: unknown command body %q", cda.ErrConfiguration, s)
	}
}

type StatusError struct {
	Status int
	Body   string
}

func (e StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.Status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

func IsAuthFailure(err error) bool {
	var se StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

// Client is the REST transport to the remote device API.
type Client struct {
	baseURL     *url.URL
	token       string
	commandBody CommandBody
	httpClient  *http.Client
}

func New(baseURL string, token string, body CommandBody) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", cda.ErrConfiguration, err)
	}

	return &Client{
		baseURL:     u,
		token:       token,
		commandBody: body,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

func (c *Client) resolve(elem ...string) string {
	return c.baseURL.JoinPath(elem...).String()
}

func (c *Client) do(ctx context.Context, method string, target string, body any, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", AuthorizationPrefix+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", cda.ErrMalformedResponse, err)
	}

	return nil
}

func (c *Client) Health(ctx context.Context, id string) (model.Health, error) {
	var h model.Health
	err := c.do(ctx, http.MethodGet, c.resolve("devices", id, "health"), nil, &h)
	return h, err
}

func (c *Client) Status(ctx context.Context, id string) (model.DeviceStatus, error) {
	var body struct {
		Components model.DeviceStatus `json:"components"`
	}

	if err := c.do(ctx, http.MethodGet, c.resolve("devices", id, "status"), nil, &body); err != nil {
		return nil, err
	}

	if body.Components == nil {
		return nil, fmt.Errorf("%w: status without components", cda.ErrMalformedResponse)
	}

	return body.Components, nil
}

func (c *Client) SendCommands(ctx context.Context, id string, commands []model.Command) error {
	var body any

	switch c.commandBody {
	case CommandBodyBare:
		bare := make([]model.Command, len(commands))
		for i, cmd := range commands {
			cmd.Component = ""
			bare[i] = cmd
		}
		body = bare
	default:
		wrapped := make([]model.Command, len(commands))
		for i, cmd := range commands {
			if cmd.Component == "" {
				cmd.Component = "main"
			}
			wrapped[i] = cmd
		}
		body = struct {
			Commands []model.Command `json:"commands"`
		}{Commands: wrapped}
	}

	return c.do(ctx, http.MethodPost, c.resolve("devices", id, "commands"), body, nil)
}

type deviceList struct {
	Items []struct {
		DeviceID         string `json:"deviceId"`
		Label            string `json:"label"`
		Name             string `json:"name"`
		ManufacturerName string `json:"manufacturerName"`
		Components       []struct {
			ID           string `json:"id"`
			Capabilities []struct {
				ID string `json:"id"`
			} `json:"capabilities"`
		} `json:"components"`
	} `json:"items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

// ListDevices returns every device on the account, following pagination.
func (c *Client) ListDevices(ctx context.Context) ([]model.DeviceDescription, error) {
	var devices []model.DeviceDescription

	target := c.resolve("devices")

	for target != "" {
		var page deviceList
		if err := c.do(ctx, http.MethodGet, target, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			d := model.DeviceDescription{
				ID:           item.DeviceID,
				Label:        item.Label,
				Name:         item.Name,
				Manufacturer: item.ManufacturerName,
			}

			for _, ic := range item.Components {
				comp := model.Component{ID: ic.ID}
				for _, capability := range ic.Capabilities {
					comp.Capabilities = append(comp.Capabilities, capability.ID)
				}
				d.Components = append(d.Components, comp)
			}

			devices = append(devices, d)
		}

		target = ""
		if page.Links.Next != nil {
			target = page.Links.Next.Href
		}
	}

	return devices, nil
}

var _ cda.Transport = (*Client)(nil)
var _ cda.DeviceLister = (*Client)(nil)
