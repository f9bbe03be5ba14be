package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/services"
)

func TestGetQueue(t *testing.T) {
	f := newFixture(t)
	f.queue.items = []domain.QueuedTransaction{{LocalID: "offline_001"}, {LocalID: "offline_002", RetryCount: 1}}
	f.sync.draining = true

	w := f.do(http.MethodGet, "/queue", "")
	var got QueueResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 2 || !got.Draining || got.Items[1].RetryCount != 1 {
		t.Fatalf("body = %+v", got)
	}
}

func TestPostSync_ReportsResultAndPending(t *testing.T) {
	f := newFixture(t)
	f.queue.items = []domain.QueuedTransaction{{LocalID: "a"}, {LocalID: "b"}}
	f.sync.res = domain.SyncResult{Synced: 1, Failed: 1}
	f.sync.after = func() { f.queue.items = f.queue.items[1:] }

	w := f.do(http.MethodPost, "/sync", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Synced != 1 || got.Failed != 1 || got.Pending != 1 {
		t.Fatalf("body = %+v", got)
	}
}

func TestPostSync_BusyIsConflict(t *testing.T) {
	f := newFixture(t)
	// Draining() still says idle: the pass started after any earlier check.
	f.sync.busy = true

	w := f.do(http.MethodPost, "/sync", "")
	if w.Code != http.StatusConflict || decodeError(t, w).Code != ErrCodeSyncBusy {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.sync.calls != 1 {
		t.Fatalf("calls=%d; want one attempt", f.sync.calls)
	}
}

func TestConnectivity(t *testing.T) {
	f := newFixture(t)

	if w := f.do(http.MethodGet, "/connectivity", ""); w.Body.String() != `{"online":true}` {
		t.Fatalf("get: %s", w.Body.String())
	}
	w := f.do(http.MethodPost, "/connectivity", `{"online":false}`)
	if w.Code != http.StatusOK || f.conn.online || w.Body.String() != `{"online":false}` {
		t.Fatalf("post: %d %s online=%v", w.Code, w.Body.String(), f.conn.online)
	}
	for _, bad := range []string{`{}`, `{"online":"yes"}`, `nope`} {
		if w := f.do(http.MethodPost, "/connectivity", bad); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", bad, w.Code)
		}
	}
}

func TestPostMutation(t *testing.T) {
	f := newFixture(t)
	f.mut.applyFn = func(kind string) error {
		if kind == "sale" {
			return nil
		}
		return fmt.Errorf("%w: %q", services.ErrUnknownMutation, kind)
	}

	if w := f.do(http.MethodPost, "/mutations/SALE", ""); w.Code != http.StatusNoContent {
		t.Fatalf("sale: %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/mutations/weather", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown: %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/mutations/organization", ""); w.Code != http.StatusNoContent || f.mut.orgs != 1 {
		t.Fatalf("organization: %d orgs=%d", w.Code, f.mut.orgs)
	}
	if len(f.mut.kinds) != 2 || f.mut.kinds[0] != "sale" {
		t.Fatalf("kinds = %v", f.mut.kinds)
	}
}

func TestDeleteCache(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodDelete, "/cache", ""); w.Code != http.StatusNoContent || f.cache.cleared != 1 {
		t.Fatalf("status=%d cleared=%d", w.Code, f.cache.cleared)
	}
}
