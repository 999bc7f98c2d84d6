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

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Build queues a talk build and returns its job id.
func (c *Client) Build(req BuildRequest) (*BuildResponse, error) {
	var resp BuildResponse
	if err := c.call("Build", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ingest queues a single-file ingest and returns its job id.
func (c *Client) Ingest(req IngestRequest) (*IngestResponse, error) {
	var resp IngestResponse
	if err := c.call("Ingest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WatchStart starts monitoring the named watch folder.
func (c *Client) WatchStart(name string) (*WatchStartResponse, error) {
	var resp WatchStartResponse
	if err := c.call("WatchStart", WatchRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WatchStop stops monitoring the named watch folder.
func (c *Client) WatchStop(name string) (*WatchStopResponse, error) {
	var resp WatchStopResponse
	if err := c.call("WatchStop", WatchRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watches lists the configured watch folders and their monitor state.
func (c *Client) Watches() (*WatchListResponse, error) {
	var resp WatchListResponse
	if err := c.call("Watches", WatchListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tasks lists active and scheduled builds.
func (c *Client) Tasks() (*TaskListResponse, error) {
	var resp TaskListResponse
	if err := c.call("Tasks", TaskListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ingests lists active and scheduled ingests.
func (c *Client) Ingests() (*IngestListResponse, error) {
	var resp IngestListResponse
	if err := c.call("Ingests", IngestListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel revokes a job.
func (c *Client) Cancel(id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.call("Cancel", JobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns details for a single job.
func (c *Client) Describe(id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.call("Describe", JobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns the last lines of a job log.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call("LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.call("DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Maintenance runs one reclaim and purge pass immediately.
func (c *Client) Maintenance() (*MaintenanceResponse, error) {
	var resp MaintenanceResponse
	if err := c.call("Maintenance", MaintenanceRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
