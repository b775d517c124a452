// Copyright 2025 Certen Protocol

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainmgr"
	"github.com/certen/poj-chain/pkg/chainstore"
	"github.com/certen/poj-chain/pkg/registry"
)

func TestMetrics_SampleAndServe(t *testing.T) {
	reg := registry.New(nil)
	if _, err := reg.InitializeSelf(registry.SelfOptions{Name: "self"}); err != nil {
		t.Fatalf("InitializeSelf: %v", err)
	}

	store := chainstore.NewMemoryStore(0, 0)
	mgr := chainmgr.New(store, &chainmgr.Config{BatchSize: 1, Registry: reg})
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := mgr.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}

	m := New()
	m.Sample(reg, mgr, store)
	m.Sample(reg, mgr, store) // idempotent re-sample must not double-count

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "poj_manager_blocks_created_total 1") {
		t.Fatalf("expected blocks_created_total == 1 in output, got:\n%s", body)
	}
	if !strings.Contains(body, "poj_store_head_slot 1") {
		t.Fatalf("expected head_slot gauge == 1 in output, got:\n%s", body)
	}
}
