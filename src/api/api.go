package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/api/config"
	"github.com/gigboard/gigboard/src/api/data"
	"github.com/gigboard/gigboard/src/api/discord"
	"github.com/gigboard/gigboard/src/api/types"
	"github.com/gigboard/gigboard/src/api/webserver"
	"github.com/gigboard/gigboard/src/gigs/arbitration"
	"github.com/gigboard/gigboard/src/gigs/blob"
	"github.com/gigboard/gigboard/src/gigs/catalog"
	"github.com/gigboard/gigboard/src/gigs/chat"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/ledger"
	"github.com/gigboard/gigboard/src/gigs/metrics"
	"github.com/gigboard/gigboard/src/gigs/store"
)

func migrate(db *gorm.DB, s *store.Store) {
	if err := s.Migrate(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := db.AutoMigrate(&types.Setting{}); err != nil {
		log.Fatalf("migrate settings: %v", err)
	}
}

// countedPublisher records chat events before handing them to the stream.
type countedPublisher struct {
	next chat.Publisher
	m    *metrics.Core
}

func (p countedPublisher) Publish(ctx context.Context, ev chat.Event) error {
	p.m.ChatEvent(ev.Kind)
	return p.next.Publish(ctx, ev)
}

func main() {
	driver, dsn := config.Database()
	db := data.MustConnect(driver, dsn)

	retry := store.DefaultRetry
	st := store.New(db, retry)
	migrate(db, st)

	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}
	cfg, err := config.Load(data.GetSetting)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StoreRetries != retry.Attempts {
		retry.Attempts = cfg.StoreRetries
		st = store.New(db, retry)
	}

	rdb := data.MustRedis(cfg.RedisURL)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	core, err := metrics.New(reg)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	blobs, err := blob.NewResolver(cfg.BlobBaseURL, cfg.BlobBucket)
	if err != nil {
		log.Fatalf("blob: %v", err)
	}

	arbOpts := arbitration.Options{AllowPartial: cfg.WinnersAllowPartial, Recorder: core}
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		sess, err := discord.Open(cfg.DiscordToken)
		if err != nil {
			log.Printf("Discord disabled: %v", err)
		} else {
			defer sess.Close()
			arbOpts.Announcer = discord.NewAnnouncer(sess, cfg.DiscordChannelID, cfg.FrontendURL)
			log.Printf("Announcing winners to Discord channel %s", cfg.DiscordChannelID)
		}
	}

	revocations := data.NewRevocations(rdb)
	router := webserver.New(cfg, webserver.Deps{
		Store:    st,
		Catalog:  catalog.New(st, nil),
		Ledger:   ledger.New(st, nil, core),
		Arbiter:  arbitration.New(st, arbOpts),
		Chat:     chat.New(st, countedPublisher{next: data.NewChatStream(rdb), m: core}, nil),
		Blobs:    blobs,
		Resolver: identity.NewJWTResolver([]byte(cfg.JWTSecret), cfg.JWTIssuer, revocations),
		Revoker:  revocations,
		Metrics:  core,
		Gatherer: reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		var err error
		if cfg.EnableSSL {
			tlsReloader, terr := webserver.NewTLSReloader(ctx, cfg.SSLCert, cfg.SSLKey, 5*time.Minute)
			if terr != nil {
				log.Printf("Failed to load TLS certificates: %v. Falling back to HTTP", terr)
				err = httpSrv.ListenAndServe()
			} else {
				httpSrv.TLSConfig = tlsReloader.Config()
				err = httpSrv.ListenAndServeTLS("", "")
			}
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("gigboard API listening on %s (db: %s, SSL: %v)", cfg.Port, cfg.DBDriver, cfg.EnableSSL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
