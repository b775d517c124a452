// Copyright 2025 Certen Protocol
//
// poj-node wires configuration, the operator registry, a chain store, the
// chain manager, metrics and an optional anchor queue into one process, then
// serves the node's HTTP surface until a shutdown signal arrives. Grounded
// on the component-construction order, health-status bookkeeping and
// signal-driven graceful shutdown of the root main.go this binary replaces.

package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/certen/poj-chain/pkg/anchorqueue"
	"github.com/certen/poj-chain/pkg/anchorqueue/ethanchor"
	"github.com/certen/poj-chain/pkg/anchorqueue/noop"
	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainmgr"
	"github.com/certen/poj-chain/pkg/chainstore"
	"github.com/certen/poj-chain/pkg/config"
	"github.com/certen/poj-chain/pkg/metrics"
	"github.com/certen/poj-chain/pkg/pojcrypto"
	"github.com/certen/poj-chain/pkg/registry"
)

// HealthStatus tracks component health for the /health endpoint.
type HealthStatus struct {
	Store   string `json:"store"`
	Anchor  string `json:"anchor"`
	Overall string `json:"status"`
}

func (h *HealthStatus) refresh() {
	if h.Store != "ok" {
		h.Overall = "unavailable"
		return
	}
	if h.Anchor == "degraded" {
		h.Overall = "degraded"
		return
	}
	h.Overall = "ok"
}

func (h *HealthStatus) ToJSON() []byte {
	h.refresh()
	b, _ := json.Marshal(h)
	return b
}

func main() {
	log.Printf("🔗 Starting PoJ chain node...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	health := &HealthStatus{Store: "initializing", Anchor: "none"}

	log.Printf("🔑 Preparing operator identity...")
	priv, err := loadOrGenerateEd25519Key(cfg)
	if err != nil {
		log.Fatalf("operator key: %v", err)
	}
	pub := priv.Public().(ed25519.PublicKey)

	reg := registry.New(&registry.Config{
		MinOperators: cfg.MinOperators,
		MaxOperators: cfg.MaxOperators,
	})
	if _, err := reg.InitializeSelf(registry.SelfOptions{
		PublicKey:  pub,
		PrivateKey: priv,
		Name:       cfg.OperatorName,
	}); err != nil {
		log.Fatalf("initialize self operator: %v", err)
	}
	log.Printf("✅ Operator %q ready, pubkey=%s", cfg.OperatorName, hex.EncodeToString(pub))

	if cfg.OperatorsFile != "" {
		if n, err := reg.ImportOperatorsYAML(cfg.OperatorsFile); err != nil {
			log.Printf("⚠️  could not import operators from %s: %v", cfg.OperatorsFile, err)
		} else {
			log.Printf("✅ imported %d operators from %s", n.Imported, cfg.OperatorsFile)
		}
	}

	log.Printf("💾 Opening chain store (%s)...", cfg.Store)
	store, err := openStore(cfg)
	if err != nil {
		health.Store = "disconnected"
		log.Fatalf("open chain store: %v", err)
	}
	health.Store = "ok"
	log.Printf("✅ Chain store ready")

	var queue anchorqueue.Queue
	switch cfg.Anchor {
	case config.AnchorNone:
		queue = noop.New()
	case config.AnchorEth:
		log.Printf("🔗 Connecting anchor queue to Ethereum (%s)...", cfg.EthRPCURL)
		q, err := ethanchor.New(&ethanchor.Config{
			RPCURL:        cfg.EthRPCURL,
			ChainID:       cfg.EthChainID,
			PrivateKeyHex: cfg.EthPrivateKey,
			AnchorAddress: cfg.EthAnchorAddress,
		})
		if err != nil {
			health.Anchor = "degraded"
			log.Fatalf("connect ethereum anchor queue: %v", err)
		}
		queue = q
		log.Printf("✅ Connected anchor queue to Ethereum")
	}

	mgr := chainmgr.New(store, &chainmgr.Config{
		BatchSize:         cfg.BatchSize,
		BatchTimeout:      cfg.BatchTimeout,
		RequireSignatures: cfg.RequireSignatures,
		VerifyReceived:    cfg.VerifyReceived,
		AutoAnchor:        cfg.AutoAnchor,
		Registry:          reg,
		AnchorQueue:       queue,
	})
	if err := mgr.Initialize(); err != nil {
		log.Fatalf("initialize chain manager: %v", err)
	}
	head := mgr.Head()
	log.Printf("✅ Chain manager ready at slot %d (head=%s)", head.Slot, head.Hash.Hex())

	m := metrics.New()
	sampleStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sample(reg, mgr, store)
			case <-sampleStop:
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health.Overall == "unavailable" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		w.Write(health.ToJSON())
	})
	mux.Handle("/metrics", m.Handler())

	mux.HandleFunc("/chain/head", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, mgr.Head())
	})
	mux.HandleFunc("/chain/block/", func(w http.ResponseWriter, r *http.Request) {
		slotStr := strings.TrimPrefix(r.URL.Path, "/chain/block/")
		slot, err := strconv.ParseUint(slotStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid slot", http.StatusBadRequest)
			return
		}
		b, err := store.BySlot(slot)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if b == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, b)
	})
	mux.HandleFunc("/chain/recent", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		blocks, err := store.Recent(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, blocks)
	})
	mux.HandleFunc("/chain/verify", func(w http.ResponseWriter, r *http.Request) {
		report, err := store.VerifyIntegrity()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, report)
	})
	mux.HandleFunc("/operators", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reg.Stats())
	})
	mux.HandleFunc("/judgments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
			return
		}
		j, err := blockcodec.DecodeJudgmentRef(body)
		if err != nil {
			http.Error(w, fmt.Sprintf("decode judgment: %v", err), http.StatusBadRequest)
			return
		}
		b, err := mgr.AddJudgment(j)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if b == nil {
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
			return
		}
		writeJSON(w, b)
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("🌐 PoJ node API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 Shutting down PoJ node...")
	close(sampleStop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
	if err := mgr.Close(); err != nil {
		log.Printf("chain manager close: %v", err)
	}
	log.Printf("✅ PoJ node stopped")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func openStore(cfg *config.Config) (chainstore.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return chainstore.NewMemoryStore(cfg.FileCapacity, cfg.FileTrimTo), nil
	case config.StoreFile:
		path := filepath.Join(cfg.DataDir, "chain.json")
		return chainstore.NewFileStore(path, cfg.FileCapacity, cfg.FileTrimTo)
	case config.StorePostgres:
		return chainstore.NewPostgresStore(chainstore.PostgresConfig{DSN: cfg.PostgresDSN})
	case config.StoreLevelDB:
		return chainstore.NewLevelDBStore(cfg.LevelDBName, cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown chain store kind %q", cfg.Store)
	}
}

// loadOrGenerateEd25519Key loads the operator's signing key from
// Ed25519KeyPath, generating and persisting a new one if absent. Grounded
// on the root main.go function of the same name this binary replaces.
func loadOrGenerateEd25519Key(cfg *config.Config) (ed25519.PrivateKey, error) {
	keyPath := cfg.Ed25519KeyPath
	if keyPath == "" {
		keyPath = filepath.Join(cfg.DataDir, "operator_ed25519.hex")
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		log.Printf("🔑 Generating new Ed25519 operator key at %s...", keyPath)
		kp, err := pojcrypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(kp.PrivateKey)), 0600); err != nil {
			return nil, fmt.Errorf("save ed25519 key: %w", err)
		}
		return kp.PrivateKey, nil
	}

	log.Printf("🔑 Loading existing Ed25519 operator key from %s...", keyPath)
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ed25519 key: %w", err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 key size: expected %d, got %d", ed25519.PrivateKeySize, len(keyBytes))
	}
	return ed25519.PrivateKey(keyBytes), nil
}
