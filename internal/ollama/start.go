// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama runtime.
package ollama

import (
	"context"
	"fmt"
	"os"
	"time"
)

// waitUntilReady polls the server until it answers or the timeout elapses.
// Progress goes to stderr: this runs before the TUI takes over the terminal.
func (c *Client) waitUntilReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	startTime := time.Now()
	var lastErr error

	fmt.Fprintf(os.Stderr, "Starting Ollama service...\n")

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return &ClientError{
				Type:    ErrTypeConnection,
				Message: "Ollama startup cancelled",
				Cause:   ctx.Err(),
			}
		default:
		}

		checkCtx, cancel := context.WithTimeout(ctx, time.Second)
		lastErr = c.CheckRunning(checkCtx)
		cancel()

		if lastErr == nil {
			fmt.Fprintf(os.Stderr, "Ollama service started (%.1fs)\n", time.Since(startTime).Seconds())
			return nil
		}

		fmt.Fprintf(os.Stderr, "\rStarting Ollama service... %.1fs elapsed", time.Since(startTime).Seconds())
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Fprintf(os.Stderr, "\n")

	return &ClientError{
		Type:    ErrTypeConnection,
		Message: fmt.Sprintf("Ollama started but not responding after %s", timeout),
		Cause:   lastErr,
	}
}
