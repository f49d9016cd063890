package mysql

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds MySQL-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// SSLDir is scanned for certificate material by file extension.
	SSLDir string `mapstructure:"ssl_dir"`

	// Explicit files take precedence over SSLDir matches.
	SSLCA   string `mapstructure:"ssl_ca"`
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	TLSSkipVerify bool `mapstructure:"tls_skip_verify"`
}

// ParseParams decodes the raw params map into Params.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid mysql params: %w", err)
	}
	return p, nil
}

// TLSEnabled reports whether any TLS material was configured.
func (p *Params) TLSEnabled() bool {
	return p.SSLDir != "" || p.SSLCA != ""
}

// SSLFiles is the certificate material used for a TLS connection.
type SSLFiles struct {
	CA   string
	Cert string
	Key  string
}

// ErrMissingSSLFiles is returned when no CA or key file can be found.
var ErrMissingSSLFiles = errors.New("missing required SSL files: CA or key file not found")

// MatchSSLFiles picks certificate material from dir by extension.
// Files are considered in name order. The first .crt/.pem is the CA, the next
// .crt/.pem is the client certificate (falling back to the CA), and the first
// .key (or a remaining .pem) is the client key.
func MatchSSLFiles(dir string) (SSLFiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return SSLFiles{}, fmt.Errorf("failed to read SSL directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var files SSLFiles
	for _, n := range names {
		full := filepath.Join(dir, n)
		switch ext := strings.ToLower(filepath.Ext(n)); {
		case ext == ".crt" || ext == ".pem":
			if files.CA == "" {
				files.CA = full
			} else if files.Cert == "" {
				files.Cert = full
			}
		case ext == ".key" && files.Key == "":
			files.Key = full
		}
	}

	// A .pem that was not used as a certificate may hold the key.
	if files.Key == "" && files.Cert != "" && strings.EqualFold(filepath.Ext(files.Cert), ".pem") {
		files.Key, files.Cert = files.Cert, ""
	}
	if files.CA == "" || files.Key == "" {
		return SSLFiles{}, ErrMissingSSLFiles
	}
	if files.Cert == "" {
		files.Cert = files.CA
	}
	return files, nil
}

// BuildTLSConfig loads the configured certificate material.
func BuildTLSConfig(p *Params) (*tls.Config, error) {
	files := SSLFiles{CA: p.SSLCA, Cert: p.SSLCert, Key: p.SSLKey}
	if files.CA == "" && p.SSLDir != "" {
		matched, err := MatchSSLFiles(p.SSLDir)
		if err != nil {
			return nil, err
		}
		files = matched
	}

	caPEM, err := os.ReadFile(files.CA)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in %s", files.CA)
	}

	cfg := &tls.Config{
		RootCAs:            pool,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: p.TLSSkipVerify, //nolint:gosec // opt-in for self-signed servers
	}

	if files.Cert != "" && files.Key != "" {
		pair, err := tls.LoadX509KeyPair(files.Cert, files.Key)
		switch {
		case err == nil:
			cfg.Certificates = []tls.Certificate{pair}
		case files.Cert != files.CA:
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
	}
	return cfg, nil
}
