package httpclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
)

var errPinMismatch = errors.New("httpclient: TLS certificate pinning check failed")

func loadCertificate(certPath string) ([]byte, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", certPath)
	}
	return block.Bytes, nil
}

// pinTo installs a transport that only accepts chains containing der.
func (c *ModelClient) pinTo(der []byte) {
	c.pinnedCert = der
	c.pinEnabled = true
	c.httpClient.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:            tls.VersionTLS12,
			VerifyPeerCertificate: c.verifyServerCertificate,
		},
	}
}

func (c *ModelClient) verifyServerCertificate(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
	c.configLock.Lock()
	enabled := c.pinEnabled
	pinned := c.pinnedCert
	c.configLock.Unlock()

	if !enabled {
		return nil
	}
	for _, chain := range verifiedChains {
		for _, cert := range chain {
			if bytes.Equal(cert.Raw, pinned) {
				return nil
			}
		}
	}
	return errPinMismatch
}
