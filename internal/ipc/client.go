package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Histoflow.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Histoflow.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Histoflow.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunStart launches a processing run described by the request.
func (c *Client) RunStart(req RunStartRequest) (*RunStartResponse, error) {
	var resp RunStartResponse
	if err := c.client.Call("Histoflow.RunStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunAbort aborts the active run.
func (c *Client) RunAbort() (*RunAbortResponse, error) {
	var resp RunAbortResponse
	if err := c.client.Call("Histoflow.RunAbort", RunAbortRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunDescribe returns a run and its slide passes. Empty id means the
// most recent run.
func (c *Client) RunDescribe(runID string) (*RunDescribeResponse, error) {
	var resp RunDescribeResponse
	req := RunDescribeRequest{RunID: runID}
	if err := c.client.Call("Histoflow.RunDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SlideList returns slide passes optionally filtered by phases.
func (c *Client) SlideList(runID string, phases []string) (*SlideListResponse, error) {
	var resp SlideListResponse
	req := SlideListRequest{RunID: runID, Phases: phases}
	if err := c.client.Call("Histoflow.SlideList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventTail returns ledger events after the given sequence cursor.
func (c *Client) EventTail(req EventTailRequest) (*EventTailResponse, error) {
	var resp EventTailResponse
	if err := c.client.Call("Histoflow.EventTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Histoflow.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed ledger database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Histoflow.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Histoflow.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
