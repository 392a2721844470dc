package testharness

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestEchoServerEchoes(t *testing.T) {
	server := NewEchoServer(t)

	conn, err := net.Dial("tcp", server.AddrString())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	msg := []byte("hello")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf := make([]byte, len(msg))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("echo = %q, want %q", buf, "hello")
	}
}

func TestEchoServerDropConns(t *testing.T) {
	server := NewEchoServer(t)

	conn, err := net.Dial("tcp", server.AddrString())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Wait for the server to accept
	deadline := time.Now().Add(2 * time.Second)
	for server.ActiveConns() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("server never accepted the connection")
		}
		time.Sleep(time.Millisecond)
	}

	server.DropConns()

	// The dropped connection should stop delivering data
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected read error after DropConns")
	}

	// The listener should still accept new connections
	conn2, err := net.Dial("tcp", server.AddrString())
	if err != nil {
		t.Fatalf("redial after DropConns failed: %v", err)
	}
	conn2.Close()
}

func TestFlakyServerLimitsBytes(t *testing.T) {
	server := NewFlakyServer(t, 4)

	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("abcdef")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Only the first 4 bytes come back, then the connection closes
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "abcd" {
		t.Errorf("echoed %q, want %q", got, "abcd")
	}
}

func TestUnusedAddrRefusesConnections(t *testing.T) {
	addr := UnusedAddr(t)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial to an unused address to fail")
	}
}
