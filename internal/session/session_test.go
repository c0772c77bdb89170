// internal/session/session_test.go
//
// Unit-tests for visitor tokens, cookies, and the controller store.
//
// Run: go test ./internal/session -v

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yanizio/folio/internal/contact"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// ----------------------------------------------------------------------------
// Tokens and cookies
// ----------------------------------------------------------------------------

func TestSignVerify(t *testing.T) {
	s := NewSigner(testSecret)
	id := NewID()

	got, ok := s.Verify(s.Sign(id))
	if !ok || got != id {
		t.Fatalf("Verify(Sign(id)) = %q, %v", got, ok)
	}

	other := NewSigner("ffffffffffffffffffffffffffffffff")
	if _, ok := other.Verify(s.Sign(id)); ok {
		t.Error("token verified under a different key")
	}

	for _, bad := range []string{"", "abc", id, id + ".", "not-a-uuid." + "AAAA", s.Sign(id) + "x"} {
		if _, ok := s.Verify(bad); ok {
			t.Errorf("Verify(%q) accepted", bad)
		}
	}
}

func TestCookiesVisitor(t *testing.T) {
	c := Cookies{Name: "folio_contact", Signer: NewSigner(testSecret)}

	// First visit issues a cookie.
	rec := httptest.NewRecorder()
	id := c.Visitor(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "folio_contact" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	// Second visit reuses it.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	if got := c.Visitor(rec2, req); got != id {
		t.Errorf("second visit id = %q, want %q", got, id)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("cookie re-issued for a valid visitor")
	}

	// Tampered cookie gets a new id.
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(&http.Cookie{Name: "folio_contact", Value: NewID() + ".forged"})
	if got := c.Visitor(httptest.NewRecorder(), req3); got == id {
		t.Error("tampered cookie kept the old id")
	}
}

// ----------------------------------------------------------------------------
// Store
// ----------------------------------------------------------------------------

type gate struct{ release chan struct{} }

func (g gate) Send(ctx context.Context, _ contact.Payload) error {
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return nil
}

func newTestStore(t *testing.T, d contact.Delivery, idle time.Duration, max int) (*Store, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	s := newStore(func(string) *contact.Controller {
		return contact.New(d, contact.WithClock(clk))
	}, idle, max, 24*time.Hour, clk)
	t.Cleanup(s.Close)
	return s, clk
}

func TestStoreGetReuses(t *testing.T) {
	s, _ := newTestStore(t, gate{}, time.Minute, 0)

	var wg sync.WaitGroup
	got := make([]*contact.Controller, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = s.Get("a")
		}(i)
	}
	wg.Wait()
	for i := range got {
		if got[i] != got[0] {
			t.Fatal("concurrent Get returned different controllers")
		}
	}
	if s.Get("b") == got[0] {
		t.Error("distinct ids share a controller")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestStoreIdleEviction(t *testing.T) {
	s, clk := newTestStore(t, gate{}, 30*time.Minute, 0)

	old := s.Get("old")
	clk.Add(20 * time.Minute)
	s.Get("fresh")
	clk.Add(15 * time.Minute)

	if n := s.evictPass(clk.Now()); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if err := old.ChangeField(contact.FieldName, "x"); err != contact.ErrClosed {
		t.Errorf("evicted controller still open: %v", err)
	}
	if s.Get("old") == old {
		t.Error("Get after eviction returned the closed controller")
	}
}

func TestStoreLRUEviction(t *testing.T) {
	s, clk := newTestStore(t, gate{}, 0, 2)

	for _, id := range []string{"a", "b", "c"} {
		s.Get(id)
		clk.Add(time.Second)
	}
	s.Get("a") // a is now the most recent

	if n := s.evictPass(clk.Now()); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, ok := s.m.Load("b"); ok {
		t.Error("least recently used entry b survived")
	}
	if _, ok := s.m.Load("a"); !ok {
		t.Error("recently used entry a was evicted")
	}
}

func TestStoreKeepsBusyController(t *testing.T) {
	g := gate{release: make(chan struct{})}
	s, clk := newTestStore(t, g, time.Minute, 0)

	c := s.Get("busy")
	_ = c.ChangeField(contact.FieldName, "Jane")
	_ = c.ChangeField(contact.FieldEmail, "jane@x.com")
	_ = c.ChangeField(contact.FieldMessage, "Hi")
	out, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	clk.Add(time.Hour)
	if n := s.evictPass(clk.Now()); n != 0 {
		t.Fatalf("busy controller evicted")
	}

	close(g.release)
	select {
	case o := <-out:
		if o.Result != contact.ResultDelivered {
			t.Errorf("result = %s", o.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outcome never arrived")
	}
	if n := s.evictPass(clk.Now()); n != 1 {
		t.Errorf("idle controller not evicted after delivery, n=%d", n)
	}
}

func TestStoreUsePinsAgainstEviction(t *testing.T) {
	s, clk := newTestStore(t, gate{}, time.Minute, 0)

	err := s.Use("v", func(c *contact.Controller) error {
		clk.Add(time.Hour)
		if n := s.evictPass(clk.Now()); n != 0 {
			t.Errorf("pinned controller evicted")
		}
		return c.ChangeField(contact.FieldName, "Jane")
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if got := s.Get("v").Snapshot().Fields.Name; got != "Jane" {
		t.Errorf("edit lost, name = %q", got)
	}
}

func TestStoreEvictionDuringSubmitKeepsOutcome(t *testing.T) {
	g := gate{release: make(chan struct{})}
	s, clk := newTestStore(t, g, time.Minute, 0)

	var out <-chan contact.Outcome
	err := s.Use("v", func(c *contact.Controller) error {
		for f, v := range map[contact.Field]string{
			contact.FieldName: "Jane", contact.FieldEmail: "jane@x.com", contact.FieldMessage: "Hi",
		} {
			if err := c.ChangeField(f, v); err != nil {
				return err
			}
		}
		var err error
		out, err = c.Submit(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}

	// Unpinned and idle past the TTL, but sending.
	clk.Add(time.Hour)
	if n := s.evictPass(clk.Now()); n != 0 {
		t.Fatal("sending controller evicted")
	}

	close(g.release)
	select {
	case o := <-out:
		if o.Result != contact.ResultDelivered || o.State.Alert.Kind != contact.KindSuccess {
			t.Errorf("outcome = %+v", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outcome never arrived")
	}
}

func TestStoreConcurrentEvictionNeverLosesDelivery(t *testing.T) {
	g := gate{release: make(chan struct{})}
	close(g.release)
	s, clk := newTestStore(t, g, time.Nanosecond, 0)

	stop := make(chan struct{})
	evictorDone := make(chan struct{})
	go func() {
		defer close(evictorDone)
		for {
			select {
			case <-stop:
				return
			default:
				s.evictPass(clk.Now().Add(time.Hour))
			}
		}
	}()

	for i := 0; i < 200; i++ {
		var out <-chan contact.Outcome
		err := s.Use("v", func(c *contact.Controller) error {
			for f, v := range map[contact.Field]string{
				contact.FieldName: "Jane", contact.FieldEmail: "jane@x.com", contact.FieldMessage: "Hi",
			} {
				if err := c.ChangeField(f, v); err != nil {
					return err
				}
			}
			var err error
			out, err = c.Submit(context.Background())
			return err
		})
		if err != nil {
			t.Fatalf("round %d: Use: %v", i, err)
		}
		select {
		case o := <-out:
			if o.Result != contact.ResultDelivered {
				t.Fatalf("round %d: outcome = %+v", i, o)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: outcome never arrived", i)
		}
	}
	close(stop)
	<-evictorDone
}

func TestStoreCloseWaitsForDelivery(t *testing.T) {
	release := make(chan struct{})
	var sent atomic.Bool
	d := contact.DeliveryFunc(func(context.Context, contact.Payload) error {
		<-release
		sent.Store(true)
		return nil
	})
	s, _ := newTestStore(t, d, 0, 0)

	err := s.Use("v", func(c *contact.Controller) error {
		for f, v := range map[contact.Field]string{
			contact.FieldName: "Jane", contact.FieldEmail: "jane@x.com", contact.FieldMessage: "Hi",
		} {
			if err := c.ChangeField(f, v); err != nil {
				return err
			}
		}
		_, err := c.Submit(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}

	closed := make(chan struct{})
	go func() { s.Close(); close(closed) }()
	time.AfterFunc(50*time.Millisecond, func() { close(release) })

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned")
	}
	if !sent.Load() {
		t.Error("Close returned before the delivery finished")
	}
}
