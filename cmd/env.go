package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/db"
	"github.com/sells-group/leadsnap/internal/monitoring"
	"github.com/sells-group/leadsnap/internal/queue"
	"github.com/sells-group/leadsnap/internal/resilience"
	"github.com/sells-group/leadsnap/internal/storage"
	"github.com/sells-group/leadsnap/pkg/hmacsign"
	sfpkg "github.com/sells-group/leadsnap/pkg/salesforce"
)

// dbPool opens the shared pgx pool every database-backed command runs on.
// Callers should defer pool.Close().
func dbPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, eris.New("database url is required (LEADSNAP_DATABASE_URL)")
	}
	return db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
}

// objectStore connects to the photo bucket.
func objectStore() (storage.ObjectStore, error) {
	if cfg.Storage.Endpoint == "" {
		return nil, eris.New("storage endpoint is required (LEADSNAP_STORAGE_ENDPOINT)")
	}
	return storage.NewMinioStore(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL,
	)
}

// newSigner builds the shared-secret signer the gateway and relay agree on.
func newSigner() (*hmacsign.Signer, error) {
	if cfg.Gateway.HMACSecret == "" {
		return nil, eris.New("hmac secret is required (LEADSNAP_GATEWAY_HMAC_SECRET)")
	}
	return hmacsign.New(cfg.Gateway.HMACSecret), nil
}

// queueNames lists every pipeline queue for provisioning and monitoring.
func queueNames() []string {
	return []string{cfg.Queues.PhotoProc, cfg.Queues.ContactEnrich, cfg.Queues.MsgGen}
}

// newCollector assembles the status snapshot collector over the shared pool.
func newCollector(pool db.Pool) *monitoring.Collector {
	return monitoring.NewCollector(pool, queue.New(pool), resilience.NewJournal(pool), queueNames())
}

// initSalesforce builds a JWT-authenticated Salesforce client.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADSNAP_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}
