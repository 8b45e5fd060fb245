package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/leozw/ssl-verifier/internal/core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	persisted int
}

func (f *fakeVerifier) Process(_ context.Context, records []core.DomainRecord) *core.BatchResult {
	b := core.NewBatchResult(time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC))
	days := 45
	for _, r := range records {
		if r.Domain == "" {
			b.Add(core.VerificationOutcome{Record: r, Status: core.StatusInvalidDomain, Error: "empty domain"})
			continue
		}
		b.Add(core.VerificationOutcome{
			Record:      r,
			Domain:      r.Domain,
			Status:      core.StatusSuccess,
			Certificate: core.CertificateInfo{DaysRemaining: &days},
		})
	}
	return b
}

func (f *fakeVerifier) Persist(context.Context, *core.BatchResult) error {
	f.persisted++
	return nil
}

type fakeSource struct {
	batch *core.BatchResult
	err   error
}

func (f fakeSource) Last(context.Context) (*core.BatchResult, error) { return f.batch, f.err }

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, method jwt.SigningMethod, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerifyEndpoint(t *testing.T) {
	v := &fakeVerifier{}
	s := NewServer(v, nil, Options{}, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/verify",
		`{"domains":[{"id":"1","domain":"example.com"},{"id":"2","domain":""}]}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}

	var got core.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Valid) != 1 || got.Valid[0].ID != "1" || len(got.Errored) != 1 || got.Errored[0].Status != core.StatusInvalidDomain {
		t.Fatalf("result = %+v", got)
	}
	if v.persisted != 1 {
		t.Errorf("persisted %d times", v.persisted)
	}
}

func TestVerifyEndpointBadRequest(t *testing.T) {
	s := NewServer(&fakeVerifier{}, nil, Options{}, nil)
	for _, body := range []string{`{}`, `not json`, `{"domains":"x"}`} {
		if rec := do(t, s, http.MethodPost, "/api/v1/verify", body, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	const secret = "s3cret"
	s := NewServer(&fakeVerifier{}, nil, Options{JWTSecret: secret}, nil)
	body := `{"domains":[{"id":"1","domain":"example.com"}]}`

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, "other"), http.StatusUnauthorized},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, secret), http.StatusUnauthorized},
		{"valid", sign(t, jwt.SigningMethodHS256, secret), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, "/api/v1/verify", body, tt.token); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	if rec := do(t, s, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestLastReport(t *testing.T) {
	batch := core.NewBatchResult(time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC))
	batch.Valid = append(batch.Valid, core.ResultRow{ID: "7", Domain: "ok.com", DaysRemaining: 20})

	tests := []struct {
		name    string
		reports Reports
		want    int
	}{
		{"none", Reports{fakeSource{err: core.ErrNoReport}}, http.StatusNotFound},
		{"empty chain", Reports{}, http.StatusNotFound},
		{"fallback", Reports{fakeSource{err: core.ErrNoReport}, fakeSource{batch: batch}}, http.StatusOK},
		{"broken first", Reports{fakeSource{err: errors.New("redis down")}, fakeSource{batch: batch}}, http.StatusOK},
		{"broken only", Reports{fakeSource{err: errors.New("redis down")}}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeVerifier{}, tt.reports, Options{}, nil)
			rec := do(t, s, http.MethodGet, "/api/v1/reports/last", "", "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && !strings.Contains(rec.Body.String(), `"ok.com"`) {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("sslverify_checks_total 0\n"))
	})
	s := NewServer(&fakeVerifier{}, nil, Options{Metrics: metrics}, nil)
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sslverify_checks_total") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body)
	}

	bare := NewServer(&fakeVerifier{}, nil, Options{}, nil)
	if rec := do(t, bare, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without handler = %d", rec.Code)
	}
}
