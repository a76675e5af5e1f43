package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/crypto"
	"github.com/backkem/aram/pkg/discovery"
	"github.com/backkem/aram/pkg/transport"
)

func startServer(t *testing.T) string {
	t.Helper()
	a, err := aram.New(aram.Config{Random: crypto.NewSeededRandom([]byte(t.Name()))})
	if err != nil {
		t.Fatalf("aram.New() error = %v", err)
	}
	s, err := transport.NewServer(transport.ServerConfig{ListenAddr: "127.0.0.1:0", Handler: a.Process})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s.Addr().String()
}

func aramctl(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"--addr", addr, "--timeout", "5s"}, args...), &out)
	return out.String(), err
}

func TestAramctl_Commands(t *testing.T) {
	addr := startServer(t)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"select"}, ""},
		{[]string{"list"}, ""},
		{[]string{"tag"}, "0000000000000000\n"},
		{[]string{"store", "A0:00:00:00:01", "-", "D0 01 01"}, ""},
		{[]string{"store", "A000000002", "1111111111111111111111111111111111111111", "-"}, ""},
		{[]string{"list"}, "aid=A000000002 hash=1111111111111111111111111111111111111111 rule=\naid=A000000001 hash= rule=D00101\n"},
		{[]string{"get", "A000000001", "-"}, "aid=A000000001 hash= rule=D00101\n"},
		{[]string{"delete", "A000000002"}, ""},
		{[]string{"list"}, "aid=A000000001 hash= rule=D00101\n"},
		{[]string{"delete"}, ""},
		{[]string{"list"}, ""},
		{[]string{"update-tag"}, ""},
	}
	for _, s := range steps {
		got, err := aramctl(t, addr, s.args...)
		if err != nil {
			t.Fatalf("aramctl %v error = %v", s.args, err)
		}
		if got != s.want {
			t.Errorf("aramctl %v = %q, want %q", s.args, got, s.want)
		}
	}

	tag, err := aramctl(t, addr, "tag")
	if err != nil {
		t.Fatalf("aramctl tag error = %v", err)
	}
	if tag == "0000000000000000\n" {
		t.Error("refresh tag unchanged after update-tag")
	}
}

func TestAramctl_Errors(t *testing.T) {
	addr := startServer(t)

	if _, err := aramctl(t, addr, "get", "A000000001", "-"); !errors.Is(err, apdu.SWNotFound) {
		t.Errorf("get missing error = %v, want %v", err, apdu.SWNotFound)
	}
	if _, err := aramctl(t, addr, "store", "A0"); err != errUsage {
		t.Errorf("store with one argument error = %v, want usage", err)
	}
	if _, err := aramctl(t, addr, "frobnicate"); err != errUsage {
		t.Errorf("unknown command error = %v, want usage", err)
	}
	if _, err := aramctl(t, addr, "store", "XYZ", "-", "-"); err == nil {
		t.Error("store with bad hex succeeded")
	}
	if _, err := aramctl(t, addr); err != errUsage {
		t.Errorf("no command error = %v, want usage", err)
	}
}

func TestAramctl_Discover(t *testing.T) {
	addr := startServer(t)
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		t.Fatalf("ResolveTCPAddr() error = %v", err)
	}

	mock := discovery.NewMockMDNSResolver()
	mock.RegisterService(discovery.ServiceType, discovery.MockRuleStoreService("card-1", tcp.Port, tcp.IP, discovery.ServiceTXT{AID: aram.AID, ChunkSize: 255}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	opts := options{discover: true, logLevel: "warn", resolver: mock}
	if err := execute(ctx, opts, []string{"browse"}, &out); err != nil {
		t.Fatalf("browse error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "card-1\t"+addr+"\taid=A00000015141434C00 chunk=255") {
		t.Errorf("browse = %q", out.String())
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out.Reset()
	if err := execute(ctx, opts, []string{"tag"}, &out); err != nil {
		t.Fatalf("tag via discovery error = %v", err)
	}
	if out.String() != "0000000000000000\n" {
		t.Errorf("tag = %q", out.String())
	}
}
