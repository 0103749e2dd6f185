package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	config "github.com/anjiri1684/tutor_marketplace/configs"
)

const (
	OrderCreated   = "CREATED"
	OrderCompleted = "COMPLETED"
)

type Order struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureID returns the first capture id PayPal reported, if any.
func (o *Order) CaptureID() string {
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type PayPal struct {
	cfg  config.PayPalConfig
	http *http.Client
}

func NewPayPal(cfg config.PayPalConfig) *PayPal {
	return &PayPal{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}}
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "paypal: token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("paypal: failed to get access token, status: %s", resp.Status)
	}
	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.Wrap(err, "paypal: decode token")
	}
	return tokenResp.AccessToken, nil
}

func (p *PayPal) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*Order, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         amount.StringFixed(2),
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return p.do(ctx, "/v2/checkout/orders", body, http.StatusCreated)
}

func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	return p.do(ctx, fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), nil, http.StatusCreated)
}

func (p *PayPal) do(ctx context.Context, path string, body []byte, wantStatus int) (*Order, error) {
	accessToken, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "paypal: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("paypal: %s: status %d: %s", path, resp.StatusCode, respBody)
	}
	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.Wrap(err, "paypal: decode order")
	}
	return &order, nil
}
