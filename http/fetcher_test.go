package http_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/pagesignal"
	pshttp "github.com/fwojciec/pagesignal/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackOnly lets tests reach httptest servers while still blocking every
// other non-public address.
func loopbackOnly(addr netip.Addr) bool {
	return addr.Unmap().IsLoopback()
}

type fakeResolver map[string][]netip.Addr

func (r fakeResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	addrs, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML body from server", func(t *testing.T) {
		t.Parallel()

		server := htmlServer(t, "<html><body>Hello World</body></html>")
		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		res, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", res.Body)
		assert.Equal(t, server.URL, res.FinalURL)
	})

	t.Run("sends GET with user agent and accept headers", func(t *testing.T) {
		t.Parallel()

		var method, ua, accept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, ua, accept = r.Method, r.Header.Get("User-Agent"), r.Header.Get("Accept")
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithUserAgent("test-agent/1.0"),
		)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, method)
		assert.Equal(t, "test-agent/1.0", ua)
		assert.Equal(t, "text/html", accept)
	})

	t.Run("returns status error for non-2xx responses", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.EHTTPSTATUS, pagesignal.ErrorCode(err))
		assert.Equal(t, http.StatusNotFound, pagesignal.ErrorStatus(err))
		assert.Contains(t, pagesignal.ErrorMessage(err), "404")
	})

	t.Run("rejects non-HTML content types", func(t *testing.T) {
		t.Parallel()

		for _, ct := range []string{"application/json", "application/pdf", ""} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = []string{ct}
				_, _ = w.Write([]byte("{}"))
			}))

			fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))
			_, err := fetcher.Fetch(context.Background(), server.URL)
			server.Close()

			assert.Equal(t, pagesignal.ECONTENTTYPE, pagesignal.ErrorCode(err), "content type %q", ct)
		}
	})

	t.Run("rejects declared oversize bodies", func(t *testing.T) {
		t.Parallel()

		server := htmlServer(t, strings.Repeat("a", 100))
		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithMaxBodyBytes(10),
		)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.ETOOLARGE, pagesignal.ErrorCode(err))
	})

	t.Run("rejects streamed oversize bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			flusher := w.(http.Flusher)
			for range 64 {
				if _, err := w.Write([]byte(strings.Repeat("x", 1024))); err != nil {
					return
				}
				flusher.Flush()
			}
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithMaxBodyBytes(4096),
		)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.ETOOLARGE, pagesignal.ErrorCode(err))
	})

	t.Run("accepts a body exactly at the limit", func(t *testing.T) {
		t.Parallel()

		server := htmlServer(t, strings.Repeat("a", 10))
		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithMaxBodyBytes(10),
		)

		res, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Len(t, res.Body, 10)
	})

	t.Run("times out slow origins", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithTimeout(50*time.Millisecond),
		)

		start := time.Now()
		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.ETIMEOUT, pagesignal.ErrorCode(err))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("times out bodies that stall mid-stream", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>"))
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithTimeout(50*time.Millisecond),
		)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.ETIMEOUT, pagesignal.ErrorCode(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := fetcher.Fetch(ctx, server.URL)

		require.Error(t, err)
		assert.Equal(t, pagesignal.ETIMEOUT, pagesignal.ErrorCode(err))
	})

	t.Run("reports refused connections as network errors", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		target := server.URL
		server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		_, err := fetcher.Fetch(context.Background(), target)

		assert.Equal(t, pagesignal.ENETWORK, pagesignal.ErrorCode(err))
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher()

		for _, raw := range []string{"ftp://files.example/x", "file:///etc/passwd", "gopher://a.example"} {
			_, err := fetcher.Fetch(context.Background(), raw)
			assert.Equal(t, pagesignal.EINVALIDSCHEME, pagesignal.ErrorCode(err), raw)
		}
	})

	t.Run("decodes declared charsets", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<p>caf\xe9</p>"))
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		res, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<p>café</p>", res.Body)
	})

	t.Run("decodes charsets declared in meta", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><meta charset="iso-8859-1"></head><body><p>caf` + "\xe9" + `</p></body></html>`))
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		res, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Contains(t, res.Body, "<p>café</p>")
		assert.NotContains(t, res.Body, "\uFFFD")
	})
}

func TestFetcher_Fetch_PrivateNetworks(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port := u.Port()

	fetcher := pshttp.NewFetcher(pshttp.WithTimeout(500 * time.Millisecond))

	for _, host := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.1", "[::1]", "172.16.4.4", "169.254.169.254"} {
		t.Run(host, func(t *testing.T) {
			t.Parallel()

			_, err := fetcher.Fetch(context.Background(), fmt.Sprintf("http://%s:%s/", host, port))

			assert.Equal(t, pagesignal.EPRIVATE, pagesignal.ErrorCode(err))
			assert.Contains(t, pagesignal.ErrorMessage(err), "private network")
		})
	}

	t.Cleanup(func() {
		assert.Zero(t, hits.Load(), "blocked hosts must not be contacted")
	})
}

func TestFetcher_Fetch_Resolution(t *testing.T) {
	t.Parallel()

	t.Run("dials the resolved address while keeping the host header", func(t *testing.T) {
		t.Parallel()

		var host string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host = r.Host
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("pinned"))
		}))
		defer server.Close()

		u, err := url.Parse(server.URL)
		require.NoError(t, err)

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithResolver(fakeResolver{"pinned.test": {netip.MustParseAddr("127.0.0.1")}}),
		)

		res, err := fetcher.Fetch(context.Background(), "http://pinned.test:"+u.Port()+"/")

		require.NoError(t, err)
		assert.Equal(t, "pinned", res.Body)
		assert.Equal(t, "pinned.test:"+u.Port(), host)
	})

	t.Run("blocks hosts resolving to a private address", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher(pshttp.WithResolver(fakeResolver{
			"internal.test": {netip.MustParseAddr("10.1.2.3")},
		}))

		_, err := fetcher.Fetch(context.Background(), "http://internal.test/")

		assert.Equal(t, pagesignal.EPRIVATE, pagesignal.ErrorCode(err))
	})

	t.Run("blocks hosts when any resolved address is private", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher(pshttp.WithResolver(fakeResolver{
			"mixed.test": {netip.MustParseAddr("93.184.216.34"), netip.MustParseAddr("192.168.0.10")},
		}))

		_, err := fetcher.Fetch(context.Background(), "https://mixed.test/")

		assert.Equal(t, pagesignal.EPRIVATE, pagesignal.ErrorCode(err))
	})

	t.Run("reports lookup failures as DNS errors", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher(pshttp.WithResolver(fakeResolver{}))

		_, err := fetcher.Fetch(context.Background(), "https://missing.test/")

		assert.Equal(t, pagesignal.EDNS, pagesignal.ErrorCode(err))
	})

	t.Run("reports empty answers as DNS errors", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher(pshttp.WithResolver(fakeResolver{"empty.test": nil}))

		_, err := fetcher.Fetch(context.Background(), "https://empty.test/")

		assert.Equal(t, pagesignal.EDNS, pagesignal.ErrorCode(err))
	})
}

func TestFetcher_Fetch_Redirects(t *testing.T) {
	t.Parallel()

	t.Run("follows redirects and reports the final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/end", http.StatusFound)
		})
		mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("arrived"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		res, err := fetcher.Fetch(context.Background(), server.URL+"/start")

		require.NoError(t, err)
		assert.Equal(t, "arrived", res.Body)
		assert.Equal(t, server.URL+"/end", res.FinalURL)
	})

	t.Run("re-validates the host of every hop", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://10.0.0.5/admin", http.StatusMovedPermanently)
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.EPRIVATE, pagesignal.ErrorCode(err))
	})

	t.Run("re-resolves redirect hosts", func(t *testing.T) {
		t.Parallel()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithResolver(fakeResolver{"metadata.test": {netip.MustParseAddr("169.254.169.254")}}),
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://metadata.test/latest", http.StatusTemporaryRedirect)
		}))
		defer server.Close()

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.EPRIVATE, pagesignal.ErrorCode(err))
	})

	t.Run("stops after the redirect limit", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(
			pshttp.WithAddressPolicy(loopbackOnly),
			pshttp.WithMaxRedirects(2),
		)

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.ENETWORK, pagesignal.ErrorCode(err))
		assert.Contains(t, pagesignal.ErrorMessage(err), "redirects")
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("rejects redirects to other schemes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.EINVALIDSCHEME, pagesignal.ErrorCode(err))
	})

	t.Run("treats a redirect without location as a status error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		fetcher := pshttp.NewFetcher(pshttp.WithAddressPolicy(loopbackOnly))

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, pagesignal.EHTTPSTATUS, pagesignal.ErrorCode(err))
		assert.Equal(t, http.StatusFound, pagesignal.ErrorStatus(err))
	})
}

type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestReadCapped(t *testing.T) {
	t.Parallel()

	t.Run("stops reading an endless stream at the limit", func(t *testing.T) {
		t.Parallel()

		body, err := pshttp.ReadCapped(endlessReader{}, 1<<20)

		assert.Nil(t, body)
		assert.Equal(t, pagesignal.ETOOLARGE, pagesignal.ErrorCode(err))
	})

	t.Run("returns bodies within the limit", func(t *testing.T) {
		t.Parallel()

		body, err := pshttp.ReadCapped(strings.NewReader("hello"), 5)

		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("propagates read errors", func(t *testing.T) {
		t.Parallel()

		_, err := pshttp.ReadCapped(failingReader{}, 5)

		assert.EqualError(t, err, "connection reset")
	})
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "café", pshttp.DecodeBody([]byte("caf\xe9"), "text/html; charset=windows-1252"))
	assert.Equal(t, "café", pshttp.DecodeBody([]byte("café"), "text/html; charset=UTF-8"))
	assert.Equal(t, "a�b", pshttp.DecodeBody([]byte("a\xffb"), "text/html"))
	assert.Equal(t, "plain", pshttp.DecodeBody([]byte("plain"), "text/html; charset=unknown-thing"))
	assert.Equal(t, `<meta http-equiv="Content-Type" content="text/html; charset=windows-1252"><p>café</p>`,
		pshttp.DecodeBody([]byte(`<meta http-equiv="Content-Type" content="text/html; charset=windows-1252"><p>caf`+"\xe9</p>"), "text/html"))
	assert.Equal(t, "<meta charset=\"utf-8\">a\uFFFDb", pshttp.DecodeBody([]byte("<meta charset=\"utf-8\">a\xffb"), "text/html"))
}
