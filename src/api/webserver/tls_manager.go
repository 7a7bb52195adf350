package webserver

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"sync"
	"time"
)

// TLSReloader serves a certificate pair from disk and picks up renewals
// without a restart.
type TLSReloader struct {
	certFile string
	keyFile  string

	mu      sync.RWMutex
	cert    *tls.Certificate
	modCert time.Time
	modKey  time.Time
}

// NewTLSReloader loads the pair and polls it every interval until ctx ends.
func NewTLSReloader(ctx context.Context, certFile, keyFile string, interval time.Duration) (*TLSReloader, error) {
	r := &TLSReloader{certFile: certFile, keyFile: keyFile}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if interval > 0 {
		go r.watch(ctx, interval)
	}
	return r, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	certInfo, _ := os.Stat(r.certFile)
	keyInfo, _ := os.Stat(r.keyFile)

	r.mu.Lock()
	r.cert = &cert
	if certInfo != nil {
		r.modCert = certInfo.ModTime()
	}
	if keyInfo != nil {
		r.modKey = keyInfo.ModTime()
	}
	r.mu.Unlock()

	log.Printf("TLS certificates loaded from %s", r.certFile)
	return nil
}

// changed reports whether either file is newer than the loaded pair.
func (r *TLSReloader) changed() (bool, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false, err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return certInfo.ModTime().After(r.modCert) || keyInfo.ModTime().After(r.modKey), nil
}

func (r *TLSReloader) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		changed, err := r.changed()
		if err != nil {
			log.Printf("TLS: stat certificate files: %v", err)
			continue
		}
		if changed {
			if err := r.reload(); err != nil {
				log.Printf("TLS: reload certificates: %v", err)
			}
		}
	}
}

func (r *TLSReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *TLSReloader) Config() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}
