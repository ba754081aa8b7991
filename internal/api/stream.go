package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

// maxEventSize bounds a single SSE line; large template messages fit well
// within this.
const maxEventSize = 1 << 20

// SubscribeMessages opens the push stream for a conversation. The returned
// stop function tears the stream down. Dropped connections reconnect with
// exponential backoff, indefinitely, until stopped; the backoff resets after
// each successful connect. onStatus fires with true on every accepted
// connection and with false on every drop that will be retried.
func (c *Client) SubscribeMessages(ctx context.Context, conversationID string, onMessage func(engine.Message), onStatus func(connected bool)) (func(), error) {
	sctx, cancel := context.WithCancel(ctx)
	go c.streamLoop(sctx, conversationID, onMessage, onStatus)
	return cancel, nil
}

func (c *Client) streamLoop(ctx context.Context, conversationID string, onMessage func(engine.Message), onStatus func(bool)) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = constants.StreamInitialBackoff
	bo.MaxInterval = constants.StreamMaxBackoff
	bo.MaxElapsedTime = 0

	for {
		err := c.consumeStream(ctx, conversationID, onMessage, func() {
			bo.Reset()
			onStatus(true)
		})
		if ctx.Err() != nil {
			return
		}
		onStatus(false)

		wait := bo.NextBackOff()
		log.Warn().Err(err).
			Str("conversation", conversationID).
			Dur("retry_in", wait).
			Msg("stream disconnected")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// consumeStream runs one stream connection until it drops. connected is
// called once the server accepts the stream.
func (c *Client) consumeStream(ctx context.Context, conversationID string, onMessage func(engine.Message), connected func()) error {
	url := fmt.Sprintf("%s/api/conversations/%s/stream", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// The stream outlives any request timeout; rely on ctx for teardown.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stream status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	connected()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var dto messageDTO
		if err := json.Unmarshal([]byte(data), &dto); err != nil {
			log.Warn().Err(err).
				Str("conversation", conversationID).
				Msg("dropping undecodable stream event")
			continue
		}
		onMessage(dto.toEngine())
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
