package core

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
)

const ReloadPath = "/__reload"

type LiveReloaderInterface interface {
	BroadcastReload()
	Handler(http.ResponseWriter, *http.Request)
}

type LiveReloader struct {
	clients  map[*websocket.Conn]bool
	lock     sync.Mutex
	upgrader websocket.Upgrader
}

var NewLiveReloader = func() LiveReloaderInterface {
	return &LiveReloader{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (lr *LiveReloader) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := lr.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	lr.lock.Lock()
	lr.clients[conn] = true
	lr.lock.Unlock()

	go func() {
		defer func() {
			lr.lock.Lock()
			delete(lr.clients, conn)
			lr.lock.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.NextReader(); err != nil {
				break
			}
		}
	}()
}

func (lr *LiveReloader) BroadcastReload() {
	lr.lock.Lock()
	defer lr.lock.Unlock()

	for conn := range lr.clients {
		err := conn.WriteMessage(websocket.TextMessage, []byte("reload"))
		if err != nil {
			conn.Close()
			delete(lr.clients, conn)
		}
	}
}

func (lr *LiveReloader) Clients() int {
	lr.lock.Lock()
	defer lr.lock.Unlock()
	return len(lr.clients)
}

// Watch calls onChange, debounced, whenever a file below dir is written,
// created, removed or renamed. New directories are watched as they
// appear. It blocks until ctx is done.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addTree(watcher, dir); err != nil {
		return err
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(watcher, event.Name)
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("asset changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(debounce, onChange)
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
