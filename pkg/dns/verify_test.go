package dns

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func startServer(t *testing.T, zones map[string]bool) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		hasMX, known := zones[q.Name]
		switch {
		case !known:
			m.Rcode = dns.RcodeNameError
		case hasMX && q.Qtype == dns.TypeMX:
			rr, _ := dns.NewRR(q.Name + " 300 IN MX 10 mail." + q.Name)
			m.Answer = append(m.Answer, rr)
		}
		_ = w.WriteMsg(m)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestHasMX(t *testing.T) {
	addr := startServer(t, map[string]bool{
		"roofing.test.": true,
		"nomail.test.":  false,
	})

	r := &resolver{servers: []string{addr}, client: &dns.Client{Timeout: time.Second}}
	ctx := context.Background()

	ok, err := r.HasMX(ctx, "Roofing.test")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.HasMX(ctx, "nomail.test")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = r.HasMX(ctx, "unknown.test")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasMXEmptyDomain(t *testing.T) {
	_, err := NewResolver().HasMX(context.Background(), " ")
	require.Error(t, err)
}
