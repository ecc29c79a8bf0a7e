package main

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/land-relay-go/internal/game"
	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/internal/network/connector"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
)

type probeOptions struct {
	URL      string
	Identity string
	Username string
	Message  string
	Count    int
	Retry    time.Duration
}

// probe 连接 relay，依次发送 Identify 与可选的 Message，
// 并把收到的每一帧以 JSON 行写到 out。
func probe(ctx context.Context, opts probeOptions, out io.Writer) error {
	client, err := connector.Dial(ctx, opts.URL, connector.Config{MaxElapsedTime: opts.Retry}, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(event.Identify, game.Identification{Username: opts.Username, Identity: opts.Identity}); err != nil {
		return errors.Wrap(err, "send identify")
	}
	if opts.Message != "" {
		if err := client.Send(event.Message, opts.Message); err != nil {
			return errors.Wrap(err, "send message")
		}
	}

	enc := json.NewEncoder(out)
	for received := 0; opts.Count <= 0 || received < opts.Count; received++ {
		select {
		case ev, ok := <-client.Recv():
			if !ok {
				return client.Err()
			}
			if err := enc.Encode(ev); err != nil {
				return errors.Wrap(err, "print frame")
			}
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
