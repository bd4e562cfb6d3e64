package core

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestLiveReloader_ClientConnectsAndReceivesReload(t *testing.T) {
	lr := NewLiveReloader()

	server := httptest.NewServer(http.HandlerFunc(lr.Handler))
	defer server.Close()

	url := "ws" + server.URL[len("http"):]

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to WebSocket: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	if n := lr.(*LiveReloader).Clients(); n != 1 {
		t.Fatalf("expected 1 connected client, got %d", n)
	}

	lr.BroadcastReload()

	ws.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read reload message: %v", err)
	}
	if string(msg) != "reload" {
		t.Errorf("expected 'reload' message, got %q", msg)
	}
}

func TestLiveReloader_RemovesDisconnectedClients(t *testing.T) {
	lr := NewLiveReloader()

	server := httptest.NewServer(http.HandlerFunc(lr.Handler))
	defer server.Close()

	url := "ws" + server.URL[len("http"):]
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_ = ws.Close()

	time.Sleep(100 * time.Millisecond)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("BroadcastReload panicked after client disconnect: %v", r)
		}
	}()

	lr.BroadcastReload()
}

func TestLiveReloader_IgnoreUpgradeError(t *testing.T) {
	lr := NewLiveReloader()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	lr.Handler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("expected HTTP 400 or 101 on upgrade failure, got %d", resp.StatusCode)
	}
}

func TestLiveReloader_BroadcastHandlesWriteFailure(t *testing.T) {
	lr := NewLiveReloader()

	server := httptest.NewServer(http.HandlerFunc(lr.Handler))
	defer server.Close()

	url := "ws" + server.URL[len("http"):]

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_ = ws.Close()

	time.Sleep(100 * time.Millisecond)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("BroadcastReload panicked after closed connection: %v", r)
		}
	}()

	lr.BroadcastReload()
}

func TestLiveReloader_BroadcastRemovesDeadConnection(t *testing.T) {
	lr := NewLiveReloader()

	server := httptest.NewServer(http.HandlerFunc(lr.Handler))
	defer server.Close()

	url := "ws" + server.URL[len("http"):]
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_ = ws.Close()

	time.Sleep(100 * time.Millisecond)

	lr.(*LiveReloader).lock.Lock()
	lr.(*LiveReloader).clients[ws] = true
	lr.(*LiveReloader).lock.Unlock()

	lr.BroadcastReload()

	lr.(*LiveReloader).lock.Lock()
	_, exists := lr.(*LiveReloader).clients[ws]
	lr.(*LiveReloader).lock.Unlock()

	if exists {
		t.Errorf("expected closed connection to be removed from clients map")
	}
}

func TestWatch_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.js", "one")

	var calls atomic.Int32
	changed := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), func() {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		_ = os.WriteFile(filepath.Join(dir, "main.js"), []byte{byte('a' + i)}, 0644)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called")
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one debounced call, got %d", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Watch did not stop after cancel")
	}
}

func TestWatch_NewDirectoriesAreWatched(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = Watch(ctx, dir, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), func() {
			changed <- struct{}{}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	_ = os.Mkdir(filepath.Join(dir, "Pages"), 0755)
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported for new directory")
	}
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "Pages", "about.js"), []byte("x"), 0644)
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported inside new directory")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Millisecond, slog.Default(), func() {})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
