package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/glassline-erp/glassline-erp/internal/shared"
	_ "github.com/glassline-erp/glassline-erp/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "glassline_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser(42)
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cookies := res.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].Value != sess.ID {
		t.Fatalf("cookie must carry the session id")
	}

	// A follow-up request with the cookie sees the committed state.
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	restored, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if restored.User() != 42 {
		t.Fatalf("expected user 42, got %d", restored.User())
	}
	if restored.Get("theme") != "dark" {
		t.Fatalf("expected stored value to survive the round trip")
	}
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser(7)

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := res.Result().Cookies()[0]

	sm.Destroy(sess)
	destroyRes := httptest.NewRecorder()
	if err := sm.Commit(ctx, destroyRes, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	expired := destroyRes.Result().Cookies()[0]
	if expired.MaxAge != -1 {
		t.Fatalf("expected cookie expiry, got MaxAge=%d", expired.MaxAge)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	restored, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if restored.User() != 0 {
		t.Fatalf("destroyed session must be anonymous, got user %d", restored.User())
	}
}

func TestSessionFlashIsOneShot(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "quote saved"})
	flash := sess.PopFlash()
	if flash == nil || flash.Message != "quote saved" {
		t.Fatalf("expected queued flash, got %+v", flash)
	}
	if sess.PopFlash() != nil {
		t.Fatalf("flash must only pop once")
	}
}
