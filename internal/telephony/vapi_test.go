package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func validRequest() OutboundCallRequest {
	return OutboundCallRequest{
		AssistantID:   "asst_out",
		PhoneNumberID: "pn_vapi_1",
		Customer:      Customer{Number: "+15551234567", Name: "Joe's Plumbing"},
		Variables:     map[string]any{"businessName": "Acme"},
		Metadata:      CallMetadata{OrganizationID: "org1", CampaignContactID: "cc1", PhoneNumberID: "pn1"},
	}
}

func TestVapiProvider_CreateOutboundCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/call" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k1" {
			t.Fatalf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"call_123","status":"queued"}`))
	}))
	defer srv.Close()

	p := NewVapiProvider("k1", srv.URL+"/")
	res, err := p.CreateOutboundCall(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.ProviderCallID != "call_123" {
		t.Fatalf("expected provider call id, got %q", res.ProviderCallID)
	}
	if len(res.Raw) == 0 {
		t.Fatalf("expected raw body")
	}

	if got["assistantId"] != "asst_out" || got["phoneNumberId"] != "pn_vapi_1" {
		t.Fatalf("unexpected body: %v", got)
	}
	customer, _ := got["customer"].(map[string]any)
	if customer["number"] != "+15551234567" || customer["name"] != "Joe's Plumbing" {
		t.Fatalf("unexpected customer: %v", customer)
	}
	meta, _ := got["metadata"].(map[string]any)
	if meta["organizationId"] != "org1" || meta["campaignContactId"] != "cc1" || meta["phoneNumberId"] != "pn1" {
		t.Fatalf("unexpected metadata: %v", meta)
	}
}

func TestVapiProvider_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"assistant not found"}`))
	}))
	defer srv.Close()

	_, err := NewVapiProvider("k1", srv.URL).CreateOutboundCall(context.Background(), validRequest())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Status != http.StatusBadRequest || pe.Body == "" {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
}

func TestVapiProvider_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	_, err := NewVapiProvider("k1", srv.URL).CreateOutboundCall(context.Background(), validRequest())
	if !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestVapiProvider_NotConfigured(t *testing.T) {
	_, err := NewVapiProvider("", "").CreateOutboundCall(context.Background(), validRequest())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestVapiProvider_InvalidRequest(t *testing.T) {
	req := validRequest()
	req.Customer.Number = ""
	_, err := NewVapiProvider("k1", "http://unused").CreateOutboundCall(context.Background(), req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
