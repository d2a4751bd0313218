// Package remote is the HTTP client for the point-of-sale REST server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnreachable wraps transport failures: the server could not be reached
// or did not answer.
var ErrUnreachable = errors.New("remote server unreachable")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", "", nil, nil)
}

func (c *Client) Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BulkSales(ctx context.Context, req BulkSalesRequest) (*BulkSalesResponse, error) {
	var resp BulkSalesResponse
	if err := c.do(ctx, http.MethodPost, "/api/sales/bulk", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ClockIn(ctx context.Context, req ClockRequest) (*TimesheetRecord, error) {
	var ts TimesheetRecord
	if err := c.do(ctx, http.MethodPost, "/api/timesheets/clock-in", "", req, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (c *Client) ClockOut(ctx context.Context, id int64, req ClockRequest) (*TimesheetRecord, error) {
	var ts TimesheetRecord
	path := fmt.Sprintf("/api/timesheets/clock-out/%d", id)
	if err := c.do(ctx, http.MethodPut, path, "", req, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// Timesheets lists the server's timesheets, optionally for one employee.
func (c *Client) Timesheets(ctx context.Context, employee string) ([]TimesheetRecord, error) {
	path := "/api/timesheets"
	if employee != "" {
		path += "?employee=" + url.QueryEscape(employee)
	}
	var out []TimesheetRecord
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Employees returns the employee names known to the server.
func (c *Client) Employees(ctx context.Context) ([]string, error) {
	var emps []Employee
	if err := c.do(ctx, http.MethodGet, "/api/employees", "", nil, &emps); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(emps))
	for _, e := range emps {
		names = append(names, e.Name)
	}
	return names, nil
}

func (c *Client) CreateEmployee(ctx context.Context, token, name string) error {
	return c.do(ctx, http.MethodPost, "/api/employees", token, Employee{Name: name}, nil)
}

func (c *Client) RenameEmployee(ctx context.Context, token, oldName, newName string) error {
	return c.do(ctx, http.MethodPut, "/api/employees/"+url.PathEscape(oldName), token, Employee{Name: newName}, nil)
}

func (c *Client) DeleteEmployee(ctx context.Context, token, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/employees/"+url.PathEscape(name), token, nil, nil)
}

// Login exchanges admin credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var er ErrorResponse
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
			if json.Unmarshal(data, &er) == nil && er.Error != "" {
				se.Message = er.Error
			} else {
				se.Message = strings.TrimSpace(string(data))
			}
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
