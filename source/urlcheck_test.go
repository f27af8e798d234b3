package source

import (
	"net"
	"testing"
)

func TestValidateRemoteURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "public https", url: "https://example.com/essay"},
		{name: "public http", url: "http://example.com"},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "localhost", url: "http://localhost:8080/", wantErr: true},
		{name: "loopback ip", url: "http://127.0.0.1/admin", wantErr: true},
		{name: "private ip", url: "https://10.0.0.5/", wantErr: true},
		{name: "link local", url: "http://169.254.169.254/metadata", wantErr: true},
		{name: "internal domain", url: "https://db.internal/", wantErr: true},
		{name: "mdns domain", url: "https://printer.local/", wantErr: true},
		{name: "no host", url: "https:///path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRemoteURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateRemoteURL(%q): expected error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateRemoteURL(%q): %v", tt.url, err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1", "100.64.0.1", "169.254.1.1", "::1", "fc00::1", "fe80::1", "::ffff:192.168.0.1", "0.0.0.0"}
	for _, s := range private {
		if !IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("%s should be private", s)
		}
	}

	public := []string{"8.8.8.8", "93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"}
	for _, s := range public {
		if IsPrivateIP(net.ParseIP(s)) {
			t.Errorf("%s should be public", s)
		}
	}
}
