package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ErrNoServer means nothing is listening on the socket.
var ErrNoServer = errors.New("dj server is not running")

// Call sends one request to the server at socketPath and returns its result.
func Call(ctx context.Context, socketPath, tool string, args map[string]any) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return "", fmt.Errorf("%w at %s: %v", ErrNoServer, socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(Request{Tool: tool, Args: args}); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.Result, nil
}
