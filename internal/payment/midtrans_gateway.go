package payment

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tokosnap-be/internal/logger"

	"go.uber.org/zap"
)

const (
	snapProductionURL = "https://app.midtrans.com/snap/v1"
	snapSandboxURL    = "https://app.sandbox.midtrans.com/snap/v1"
)

var ErrInvalidSignature = errors.New("invalid notification signature")

type snapGateway struct {
	serverKey  string
	baseURL    string
	httpClient *http.Client
}

func NewSnapGateway(serverKey string, isProd bool) Gateway {
	if serverKey == "" {
		logger.L().Warn("Midtrans server key is empty; signature checks disabled")
	}

	baseURL := snapSandboxURL
	if isProd {
		baseURL = snapProductionURL
	}

	return &snapGateway{
		serverKey: serverKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type snapTransactionBody struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails     []LineItem `json:"item_details"`
	CustomerDetails struct {
		FirstName      string `json:"first_name"`
		Email          string `json:"email"`
		BillingAddress struct {
			Address string `json:"address"`
		} `json:"billing_address"`
	} `json:"customer_details"`
}

func (g *snapGateway) CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionToken, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", req.OrderID),
		zap.Int64("gross_amount", req.GrossAmount),
	)

	var body snapTransactionBody
	body.TransactionDetails.OrderID = req.OrderID
	body.TransactionDetails.GrossAmount = req.GrossAmount
	body.ItemDetails = req.Items
	body.CustomerDetails.FirstName = req.Buyer.Name
	body.CustomerDetails.Email = req.Buyer.Email
	body.CustomerDetails.BillingAddress.Address = req.Buyer.Address

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/transactions", bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("failed creating snap request", zap.Error(err))
		return nil, err
	}

	httpReq.SetBasicAuth(g.serverKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.Info("creating snap transaction")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Error("snap request failed", zap.Error(err))
		return nil, fmt.Errorf("snap request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Error("snap returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return nil, fmt.Errorf("snap error: %s", string(respBody))
	}

	var token TransactionToken
	if err := json.Unmarshal(respBody, &token); err != nil {
		log.Error("failed decoding snap response", zap.Error(err))
		return nil, err
	}

	if token.Token == "" {
		return nil, fmt.Errorf("snap response missing token: %s", string(respBody))
	}

	log.Info("snap transaction created", zap.String("token", token.Token))

	return &token, nil
}

// VerifySignature checks the SHA-512 integrity signature Midtrans attaches to
// every notification: sha512(order_id + status_code + gross_amount + server_key).
func (g *snapGateway) VerifySignature(n *Notification) error {
	if g.serverKey == "" {
		return nil // skip in dev
	}

	payload := n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return ErrInvalidSignature
	}

	n.SignatureValid = true
	return nil
}
