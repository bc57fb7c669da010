package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"foodconnect/realtime"

	"github.com/gin-contrib/sse"
)

var errStreamClosed = errors.New("event stream closed")

// Subscribe opens the server's change stream for table and calls cb for every
// change until the subscription is released. It returns once the server has
// confirmed the subscription. ctx only bounds that handshake.
func (c *Client) Subscribe(ctx context.Context, table string, event realtime.EventType, filter string, cb func(realtime.Change)) (realtime.Subscription, error) {
	q := url.Values{"event": {string(event)}}
	if filter != "" {
		q.Set("filter", filter)
	}
	path := "/realtime/v1/" + url.PathEscape(table) + "?" + q.Encode()

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopHandshake := context.AfterFunc(ctx, cancel)

	req, err := c.newRequest(streamCtx, http.MethodGet, path, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, readAPIError(resp)
	}

	events := newEventReader(resp.Body)
	first, err := events.next()
	if err == nil && first.Event != "subscribed" {
		err = fmt.Errorf("unexpected first event %q", first.Event)
	}
	if !stopHandshake() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	sub := &streamSubscription{body: resp.Body, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			ev, err := events.next()
			if err != nil {
				if streamCtx.Err() == nil {
					c.log.Warn("change stream ended", "table", table, "error", err)
				}
				return
			}
			if ev.Event != "change" {
				continue
			}
			data, _ := ev.Data.(string)
			var change realtime.Change
			if err := json.Unmarshal([]byte(data), &change); err != nil {
				c.log.Warn("dropping undecodable change", "table", table, "error", err)
				continue
			}
			cb(change)
		}
	}()
	return sub, nil
}

type streamSubscription struct {
	body   io.Closer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe closes the stream and waits for in-flight callbacks
func (s *streamSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.body.Close()
		<-s.done
	})
	return nil
}

// eventReader splits a text/event-stream into blank-line separated blocks and
// decodes each one on its own, since sse.Decode consumes its reader to EOF.
type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

func (e *eventReader) next() (sse.Event, error) {
	for {
		var block bytes.Buffer
		for {
			line, err := e.r.ReadBytes('\n')
			block.Write(line)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return sse.Event{}, errStreamClosed
				}
				return sse.Event{}, err
			}
			if len(bytes.TrimRight(line, "\r\n")) == 0 {
				break
			}
		}
		decoded, err := sse.Decode(&block)
		if err != nil {
			return sse.Event{}, err
		}
		if len(decoded) > 0 {
			return decoded[0], nil
		}
	}
}
