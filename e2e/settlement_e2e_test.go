package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"petcare_settlement/internal/testutil"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type SettlementSuite struct {
	suite.Suite
	stack    compose.ComposeStack
	frontend string
	console  string
	client   *http.Client

	userID     string
	operatorID string
}

func TestSettlementSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skip e2e test in short mode")
	}
	suite.Run(t, new(SettlementSuite))
}

func (s *SettlementSuite) SetupSuite() {
	testutil.ConfigureDockerDesktop(s.T())

	stack, err := compose.NewDockerCompose("resources/docker-compose.yaml")
	s.Require().NoError(err)
	s.stack = stack

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	err = stack.
		WaitForService("frontend", wait.ForHTTP("/healthz").WithPort("8080/tcp").WithStartupTimeout(3*time.Minute)).
		WaitForService("console", wait.ForHTTP("/healthz").WithPort("8081/tcp").WithStartupTimeout(3*time.Minute)).
		Up(ctx, compose.Wait(true))
	s.Require().NoError(err)

	frontend, err := stack.ServiceContainer(ctx, "frontend")
	s.Require().NoError(err)
	s.frontend, err = frontend.PortEndpoint(ctx, "8080/tcp", "http")
	s.Require().NoError(err)

	console, err := stack.ServiceContainer(ctx, "console")
	s.Require().NoError(err)
	s.console, err = console.PortEndpoint(ctx, "8081/tcp", "http")
	s.Require().NoError(err)

	s.client = &http.Client{Timeout: 15 * time.Second}
	s.userID = primitive.NewObjectID().Hex()
	s.operatorID = primitive.NewObjectID().Hex()
}

func (s *SettlementSuite) TearDownSuite() {
	if s.stack != nil {
		_ = s.stack.Down(context.Background(), compose.RemoveOrphans(true), compose.RemoveVolumes(true))
	}
}

func (s *SettlementSuite) do(method, url, userID string, body any) (int, envelope) {
	t := s.T()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-User-Name", "e2e")

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *SettlementSuite) TestOfflinePaymentLifecycle() {
	// Console opens an invoice for 100.00 plus 8% tax.
	code, env := s.do(http.MethodPost, s.console+"/console/invoice", s.operatorID, map[string]any{
		"userId":   s.userID,
		"source":   "booking-e2e-1",
		"currency": "usd",
		"lineItems": []map[string]any{
			{"description": "Grooming", "quantity": 1, "unitPrice": "100.00"},
		},
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	var invoice struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &invoice))
	s.Require().NotEmpty(invoice.ID)

	// Same booking reference is rejected.
	code, _ = s.do(http.MethodPost, s.console+"/console/invoice", s.operatorID, map[string]any{
		"userId":    s.userID,
		"source":    "booking-e2e-1",
		"lineItems": []map[string]any{{"description": "Grooming", "quantity": 1, "unitPrice": "100.00"}},
	})
	s.Equal(http.StatusConflict, code)

	code, env = s.do(http.MethodPost, s.console+"/console/coupon", s.operatorID, map[string]any{
		"kind":          "public",
		"code":          "E2E10",
		"discountType":  "percent",
		"discountValue": "10",
		"expiryDate":    time.Now().Add(24 * time.Hour).UTC(),
		"usageLimit":    5,
	})
	s.Require().Equal(http.StatusOK, code, env.Message)

	code, env = s.do(http.MethodPost, s.frontend+"/coupon/validate", s.userID, map[string]any{
		"code":         "E2E10",
		"invoiceTotal": "108.00",
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	var quote struct {
		Discount  string `json:"discount"`
		AmountDue string `json:"amountDue"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &quote))
	s.Equal("10.80", quote.Discount)
	s.Equal("97.20", quote.AmountDue)

	// Another user cannot pay this invoice.
	code, _ = s.do(http.MethodPost, s.frontend+"/payment/offline", primitive.NewObjectID().Hex(), map[string]any{
		"invoiceID": invoice.ID,
		"method":    "cash",
	})
	s.Equal(http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, s.frontend+"/payment/offline", s.userID, map[string]any{
		"invoiceID":  invoice.ID,
		"method":     "cash",
		"couponCode": "E2E10",
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	var offline struct {
		Payment struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payment"`
		Voucher string `json:"voucher"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &offline))
	s.Equal("pending", offline.Payment.Status)
	s.Require().NotEmpty(offline.Voucher)

	code, env = s.do(http.MethodPost, s.console+"/console/payment/voucher/redeem", s.operatorID, map[string]any{
		"voucher": offline.Voucher,
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	var redeemed struct {
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &redeemed))
	s.Equal("succeeded", redeemed.Status)

	// Redeeming twice returns the settled payment again.
	code, env = s.do(http.MethodPost, s.console+"/console/payment/voucher/redeem", s.operatorID, map[string]any{
		"voucher": offline.Voucher,
	})
	s.Require().Equal(http.StatusOK, code, env.Message)

	s.Equal("paid", s.invoiceStatus(invoice.ID))

	code, env = s.do(http.MethodPost, s.console+"/console/invoice/"+invoice.ID+"/refund", s.operatorID, map[string]any{
		"reason": "customer cancelled",
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	s.Equal("refunded", s.invoiceStatus(invoice.ID))

	code, env = s.do(http.MethodGet, s.console+"/console/payments?invoiceId="+invoice.ID, s.operatorID, nil)
	s.Require().Equal(http.StatusOK, code, env.Message)
}

func (s *SettlementSuite) TestCancelDraftInvoice() {
	issue := false
	code, env := s.do(http.MethodPost, s.console+"/console/invoice", s.operatorID, map[string]any{
		"userId":    s.userID,
		"source":    "booking-e2e-2",
		"lineItems": []map[string]any{{"description": "Vaccination", "quantity": 2, "unitPrice": "35.50"}},
		"issue":     &issue,
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	var invoice struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &invoice))
	s.Equal("draft", invoice.Status)

	// Drafts are not payable.
	code, _ = s.do(http.MethodPost, s.frontend+"/payment/offline", s.userID, map[string]any{
		"invoiceID": invoice.ID,
		"method":    "cash",
	})
	s.Equal(http.StatusConflict, code)

	code, env = s.do(http.MethodPost, s.console+"/console/invoice/"+invoice.ID+"/cancel", s.operatorID, map[string]any{
		"reason": "duplicate booking",
	})
	s.Require().Equal(http.StatusOK, code, env.Message)
	s.Equal("cancelled", s.invoiceStatus(invoice.ID))
}

func (s *SettlementSuite) invoiceStatus(id string) string {
	code, env := s.do(http.MethodGet, s.frontend+"/invoice/"+id, s.userID, nil)
	s.Require().Equal(http.StatusOK, code, env.Message)
	var view struct {
		Invoice struct {
			Status string `json:"status"`
		} `json:"invoice"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &view))
	return view.Invoice.Status
}
