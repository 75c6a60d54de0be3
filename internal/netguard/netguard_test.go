package netguard

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrivateIP(t *testing.T) {
	cases := []struct {
		ip      string
		private bool
	}{
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"::1", true},
		{"fe80::1", true},
		{"fc00::1", true},
		{"fd12:3456::1", true},
		{"::", true},
		{"2001:db8::1", true},
		{"2001:4860:4860::8888", false},
	}

	for _, c := range cases {
		ip := net.ParseIP(c.ip)
		assert.Equal(t, c.private, IsPrivateIP(ip), "IsPrivateIP(%s)", c.ip)
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost("localhost"))
	assert.True(t, IsLocalhost("LOCALHOST"))
	assert.True(t, IsLocalhost("foo.localhost"))
	assert.True(t, IsLocalhost("localhost.localdomain"))
	assert.False(t, IsLocalhost("example.com"))
}
