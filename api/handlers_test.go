/*
handlers_test.go - HTTP tests against the real router

Tests for:
- Schedule generation round-trip (records in, rows out)
- Run persistence and retrieval
- Error statuses for malformed input
*/
package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/warp/instalment-engine/api"
	"github.com/warp/instalment-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(api.NewRouter(api.NewHandler(store)))
	t.Cleanup(server.Close)
	return server
}

func monthlyPolicyRequest() api.GenerateRequest {
	return api.GenerateRequest{
		Records: []api.PolicyEventDTO{{
			RecordID:           "rec-1",
			PolicyID:           "POL-9001",
			TransactionType:    "New",
			PolicyStartDate:    "2024-01-01",
			PolicyEndDate:      "2024-12-31",
			EventEffectiveDate: "2024-01-01",
			PaymentFrequency:   "monthly",
			Annual:             map[string]string{"premium_a": "1200", "tax_a": "100"},
		}},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

func TestGenerate_ReturnsScheduleRows(t *testing.T) {
	// GIVEN: A monthly policy posted to the pure generation endpoint
	// THEN: 12 rows come back with per-component base instalments

	server := newTestServer(t)
	resp := postJSON(t, server.URL+"/api/schedule/generate", monthlyPolicyRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[api.GenerateResponse](t, resp)
	if len(body.Rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(body.Rows))
	}
	first := body.Rows[0]
	if first.PayDate != "2024-01-01" {
		t.Errorf("expected first pay date 2024-01-01, got %s", first.PayDate)
	}
	if first.PaymentMonthKey != 202401 || first.UnderwrittenMonthKey != 202401 {
		t.Errorf("unexpected month keys: %d / %d", first.PaymentMonthKey, first.UnderwrittenMonthKey)
	}
	if got := first.Base["premium_a"]; got != "100" {
		t.Errorf("expected premium_a 100, got %q", got)
	}
	if len(body.Rejects) != 0 {
		t.Errorf("expected no rejects, got %d", len(body.Rejects))
	}
}

func TestGenerate_RejectsBadRecordsWithoutFailing(t *testing.T) {
	// GIVEN: One valid and one contract-violating record
	// THEN: The run succeeds for the valid record and the bad one is
	//       reported as a reject

	req := monthlyPolicyRequest()
	req.Records = append(req.Records, api.PolicyEventDTO{
		RecordID:           "rec-2",
		PolicyID:           "POL-9001",
		TransactionType:    "New",
		PolicyStartDate:    "2024-01-01",
		PolicyEndDate:      "not-a-date",
		EventEffectiveDate: "2024-01-01",
		PaymentFrequency:   "monthly",
	})

	server := newTestServer(t)
	resp := postJSON(t, server.URL+"/api/schedule/generate", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[api.GenerateResponse](t, resp)
	if len(body.Rows) != 12 {
		t.Errorf("expected 12 rows from the valid record, got %d", len(body.Rows))
	}
	if len(body.Rejects) != 1 || body.Rejects[0].RecordID != "rec-2" {
		t.Fatalf("expected rec-2 rejected, got %+v", body.Rejects)
	}
}

func TestGenerate_MalformedJSONIs400(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Post(server.URL+"/api/schedule/generate", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateRun_PersistsAndServesRows(t *testing.T) {
	// GIVEN: A run created through the persisting endpoint
	// WHEN: Fetching its summary and rows back
	// THEN: Both round-trip with the expected counts

	server := newTestServer(t)
	resp := postJSON(t, server.URL+"/api/runs", monthlyPolicyRequest())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[api.CreateRunResponse](t, resp)
	if created.Run == nil || created.Run.RowCount != 12 {
		t.Fatalf("expected a 12-row run summary, got %+v", created.Run)
	}

	runURL := server.URL + "/api/runs/" + created.Run.ID.String()

	summaryResp, err := http.Get(runURL)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer summaryResp.Body.Close()
	if summaryResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", summaryResp.StatusCode)
	}

	rowsResp, err := http.Get(runURL + "/rows?policyId=POL-9001")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer rowsResp.Body.Close()
	rows := decodeBody[api.RowsResponse](t, rowsResp)
	if len(rows.Rows) != 12 {
		t.Errorf("expected 12 persisted rows, got %d", len(rows.Rows))
	}
}

func TestGetRun_UnknownIs404(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/runs/00000000-0000-0000-0000-000000000001")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetRun_InvalidIDIs400(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/runs/not-a-uuid")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
