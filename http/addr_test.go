package http_test

import (
	"net/netip"
	"testing"

	pshttp "github.com/fwojciec/pagesignal/http"
	"github.com/stretchr/testify/assert"
)

func TestPublicOnly(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"8.8.8.8", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"172.15.255.255", true},
		{"172.32.0.1", true},
		{"127.0.0.1", false},
		{"127.8.8.8", false},
		{"10.0.0.5", false},
		{"172.16.0.1", false},
		{"172.31.255.255", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"224.0.0.1", false},
		{"198.18.0.1", false},
		{"203.0.113.7", false},
		{"255.255.255.255", false},
		{"64:ff9b::a00:1", false},
		{"2002:a00:1::1", false},
		{"2001:db8::1", false},
		{"::1", false},
		{"::", false},
		{"fc00::1", false},
		{"fd12:3456::1", false},
		{"fe80::1", false},
		{"fe80::1%eth0", false},
		{"ff02::1", false},
		{"::ffff:127.0.0.1", false},
		{"::ffff:10.1.2.3", false},
		{"::ffff:93.184.216.34", true},
	} {
		t.Run(tc.addr, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, pshttp.PublicOnly(netip.MustParseAddr(tc.addr)))
		})
	}

	t.Run("rejects the zero address", func(t *testing.T) {
		t.Parallel()

		assert.False(t, pshttp.PublicOnly(netip.Addr{}))
	})
}
