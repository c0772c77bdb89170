// internal/delivery/delivery_test.go
//
// Unit-tests for the delivery drivers using httptest and sqlmock.
//
// Run: go test ./internal/delivery -v

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/contact"
	"github.com/yanizio/folio/internal/metrics"
)

var samplePayload = contact.Payload{
	FromName:  "Jane",
	ToName:    "Vlad",
	FromEmail: "jane@x.com",
	ToEmail:   "owner@example.com",
	Message:   "Hello",
}

// ----------------------------------------------------------------------------
// EmailJS
// ----------------------------------------------------------------------------

func TestEmailJSSend(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	e := NewEmailJS(config.EmailJS{
		Endpoint:   srv.URL,
		ServiceID:  "svc",
		TemplateID: "tpl",
		PublicKey:  "pub",
	})
	if err := e.Send(context.Background(), samplePayload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.ServiceID != "svc" || got.TemplateID != "tpl" || got.UserID != "pub" {
		t.Errorf("ids = %+v", got)
	}
	if got.AccessToken != "" {
		t.Errorf("accessToken should be omitted, got %q", got.AccessToken)
	}
	want := samplePayload.Params()
	for k, v := range want {
		if got.Params[k] != v {
			t.Errorf("template_params[%s] = %q, want %q", k, got.Params[k], v)
		}
	}
}

func TestEmailJSRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("The service ID is invalid"))
	}))
	defer srv.Close()

	e := NewEmailJS(config.EmailJS{Endpoint: srv.URL, ServiceID: "bad"})
	err := e.Send(context.Background(), samplePayload)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "service ID") {
		t.Errorf("error lacks status or body: %v", err)
	}
}

func TestEmailJSTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	e := NewEmailJS(config.EmailJS{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})
	if err := e.Send(context.Background(), samplePayload); err == nil {
		t.Fatal("expected timeout error")
	}
}

// ----------------------------------------------------------------------------
// Archive
// ----------------------------------------------------------------------------

func TestArchiveSend(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "mysql")

	a, err := NewArchive(db, "contact_submission")
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO `contact_submission` (submitted_at, from_name, from_email, to_email, message) VALUES (?, ?, ?, ?, ?)",
	)).
		WithArgs(sqlmock.AnyArg(), "Jane", "jane@x.com", "owner@example.com", "Hello").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := a.Send(context.Background(), samplePayload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestArchiveSendError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	a, _ := NewArchive(sqlx.NewDb(raw, "mysql"), "inbox")
	mock.ExpectExec("INSERT INTO `inbox`").WillReturnError(errors.New("disk full"))

	if err := a.Send(context.Background(), samplePayload); err == nil {
		t.Fatal("expected insert error")
	}
}

func TestNewArchiveRejectsBadTable(t *testing.T) {
	for _, tbl := range []string{"", "x; DROP TABLE y", "a-b", "`t`", "1abc"} {
		if _, err := NewArchive(nil, tbl); !errors.Is(err, ErrBadTable) {
			t.Errorf("NewArchive(%q) err = %v", tbl, err)
		}
	}
}

// ----------------------------------------------------------------------------
// Chain / Instrument / Build
// ----------------------------------------------------------------------------

func TestChainStopsAtFirstError(t *testing.T) {
	var order []string
	step := func(name string, err error) contact.Delivery {
		return contact.DeliveryFunc(func(context.Context, contact.Payload) error {
			order = append(order, name)
			return err
		})
	}
	boom := errors.New("boom")

	err := Chain(step("a", nil), step("b", boom), step("c", nil)).Send(context.Background(), samplePayload)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want a,b", order)
	}
}

func TestArchiveThenMailFailureArchivesEachAttempt(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	a, _ := NewArchive(sqlx.NewDb(raw, "mysql"), "contact_submission")
	mailErr := errors.New("emailjs down")
	mail := contact.DeliveryFunc(func(context.Context, contact.Payload) error { return mailErr })
	d := Chain(a, mail)

	for i := 1; i <= 2; i++ {
		mock.ExpectExec("INSERT INTO `contact_submission`").WillReturnResult(sqlmock.NewResult(int64(i), 1))
		if err := d.Send(context.Background(), samplePayload); !errors.Is(err, mailErr) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("want one row per attempt: %v", err)
	}
}

func TestInstrumentObserves(t *testing.T) {
	ok := contact.DeliveryFunc(func(context.Context, contact.Payload) error { return nil })
	if err := Instrument("stub", ok, nil).Send(context.Background(), samplePayload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := testutil.CollectAndCount(metrics.DeliveryDuration); n == 0 {
		t.Error("no duration series recorded")
	}
}

func TestBuild(t *testing.T) {
	d, err := Build(config.Delivery{Drivers: []string{"log"}}, nil, nil)
	if err != nil || d == nil {
		t.Fatalf("Build(log) = %v, %v", d, err)
	}
	if err := d.Send(context.Background(), samplePayload); err != nil {
		t.Errorf("log delivery failed: %v", err)
	}

	if _, err := Build(config.Delivery{Drivers: []string{"archive"}}, nil, nil); !errors.Is(err, ErrNoDB) {
		t.Errorf("archive without db: err = %v", err)
	}
	if _, err := Build(config.Delivery{Drivers: []string{"fax"}}, nil, nil); err == nil {
		t.Error("unknown driver should fail")
	}
	if _, err := Build(config.Delivery{}, nil, nil); err == nil {
		t.Error("empty driver list should fail")
	}
}
