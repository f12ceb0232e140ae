package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/store"
	"github.com/gorilla/websocket"
)

const (
	feedMinBackoff = time.Second
	feedMaxBackoff = 30 * time.Second
)

func (c *Client) feedURL() string {
	u := c.baseURL + "/api/v1/feed"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Client) dialFeed(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("X-Api-Key", c.apiKey)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.feedURL(), header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &APIError{Status: resp.StatusCode, Message: "feed handshake rejected"}
		}
		return nil, errors.Join(store.ErrUnavailable, err)
	}
	return conn, nil
}

// Subscribe attaches the change feed. Events are dispatched on a background
// goroutine; a dropped connection is redialled with backoff until Cancel.
func (c *Client) Subscribe(ctx context.Context, h store.Handlers) (store.Subscription, error) {
	conn, err := c.dialFeed(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go c.feedLoop(ctx, conn, h)

	return store.NewCancelFunc(cancel), nil
}

func (c *Client) feedLoop(ctx context.Context, conn *websocket.Conn, h store.Handlers) {
	log := logger.WithFields(logger.F("component", "feed"), logger.F("url", c.feedURL()))
	backoff := feedMinBackoff

	for {
		// Closing the connection unblocks ReadJSON on cancel
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		for {
			var ev store.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					log.Warn("Feed connection lost", logger.Err(err))
				}
				break
			}
			backoff = feedMinBackoff
			h.Dispatch(ev)
		}
		stop()
		_ = conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			var err error
			conn, err = c.dialFeed(ctx)
			if err == nil {
				log.Info("Feed reconnected")
				break
			}
			backoff = min(backoff*2, feedMaxBackoff)
			log.Debug("Feed redial failed", logger.Err(err), logger.F("retry_in", backoff.String()))
		}
	}
}
