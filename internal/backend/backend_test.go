package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vbonduro/washpos/internal/config"
	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/remote"
)

const testPassword = "correct horse"

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db, err := OpenTestDB()
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.ServerConfig{
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	}
	return New(db, cfg, nil), db
}

func call(t *testing.T, s *Server, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	code, data := call(t, s, http.MethodPost, "/api/auth/login", "", remote.LoginRequest{Username: "admin", Password: testPassword})
	require.Equal(t, http.StatusOK, code, string(data))
	return decode[remote.LoginResponse](t, data).Token
}

func addEmployee(t *testing.T, s *Server, token, name string) {
	t.Helper()
	code, data := call(t, s, http.MethodPost, "/api/employees", token, remote.Employee{Name: name})
	require.Equal(t, http.StatusCreated, code, string(data))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	code, _ := call(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLogin(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		req      remote.LoginRequest
		wantCode int
	}{
		{"valid", remote.LoginRequest{Username: "admin", Password: testPassword}, http.StatusOK},
		{"wrong password", remote.LoginRequest{Username: "admin", Password: "nope"}, http.StatusUnauthorized},
		{"wrong user", remote.LoginRequest{Username: "root", Password: testPassword}, http.StatusUnauthorized},
		{"missing fields", remote.LoginRequest{}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, data := call(t, s, http.MethodPost, "/api/auth/login", "", tc.req)
			assert.Equal(t, tc.wantCode, code, string(data))
			if tc.wantCode != http.StatusOK {
				assert.NotEmpty(t, decode[remote.ErrorResponse](t, data).Error)
			}
		})
	}
}

func TestEmployeeMutationsRequireToken(t *testing.T) {
	s, _ := newTestServer(t)

	code, _ := call(t, s, http.MethodPost, "/api/employees", "", remote.Employee{Name: "Maria"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call(t, s, http.MethodPost, "/api/employees", "garbage", remote.Employee{Name: "Maria"})
	assert.Equal(t, http.StatusUnauthorized, code)

	// Listing stays public.
	code, data := call(t, s, http.MethodGet, "/api/employees", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]remote.Employee](t, data))
}

func TestExpiredTokenRejected(t *testing.T) {
	s, _ := newTestServer(t)
	s.now = func() time.Time { return time.Now().Add(-2 * tokenTTL) }
	token, err := s.issueToken("admin")
	require.NoError(t, err)
	s.now = time.Now

	code, _ := call(t, s, http.MethodPost, "/api/employees", token, remote.Employee{Name: "Maria"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestEmployeeLifecycle(t *testing.T) {
	s, db := newTestServer(t)
	token := login(t, s)

	addEmployee(t, s, token, "Ana Maria")
	addEmployee(t, s, token, "Luis")

	code, _ := call(t, s, http.MethodPost, "/api/employees", token, remote.Employee{Name: "Luis"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = call(t, s, http.MethodPost, "/api/employees", token, remote.Employee{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	require.NoError(t, db.Create(&Timesheet{EmployeeName: "Ana Maria", Date: "2024-03-01", ClockIn: "09:00:00"}).Error)

	code, data := call(t, s, http.MethodPut, "/api/employees/Ana%20Maria", token, remote.Employee{Name: "Ana"})
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, "Ana", decode[remote.Employee](t, data).Name)

	var ts Timesheet
	require.NoError(t, db.First(&ts).Error)
	assert.Equal(t, "Ana", ts.EmployeeName)

	code, _ = call(t, s, http.MethodPut, "/api/employees/Ana", token, remote.Employee{Name: "Luis"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, s, http.MethodDelete, "/api/employees/Luis", token, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = call(t, s, http.MethodDelete, "/api/employees/Luis", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, data = call(t, s, http.MethodGet, "/api/employees", "", nil)
	require.Equal(t, http.StatusOK, code)
	emps := decode[[]remote.Employee](t, data)
	require.Len(t, emps, 1)
	assert.Equal(t, "Ana", emps[0].Name)
}

func TestClockInAndOut(t *testing.T) {
	s, _ := newTestServer(t)
	addEmployee(t, s, login(t, s), "Maria")

	in := remote.ClockRequest{IdempotencyKey: "k-in", EmployeeName: "Maria", Date: "2024-03-01", Time: "09:00:00"}

	code, _ := call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", remote.ClockRequest{EmployeeName: "Nobody", Date: "2024-03-01", Time: "09:00:00"})
	assert.Equal(t, http.StatusNotFound, code)

	code, data := call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", in)
	require.Equal(t, http.StatusCreated, code, string(data))
	rec := decode[remote.TimesheetRecord](t, data)
	assert.NotZero(t, rec.ID)

	code, data = call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", in)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, rec.ID, decode[remote.TimesheetRecord](t, data).ID)

	in.IdempotencyKey = "k-other"
	code, data = call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", in)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Maria is already clocked in", decode[remote.ErrorResponse](t, data).Error)

	path := "/api/timesheets/clock-out/" + strconv.FormatInt(rec.ID, 10)
	out := remote.ClockRequest{Date: "2024-03-01", Time: "17:00:00"}
	code, data = call(t, s, http.MethodPut, path, "", out)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, "17:00:00", decode[remote.TimesheetRecord](t, data).ClockOut)

	code, _ = call(t, s, http.MethodPut, path, "", out)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, s, http.MethodPut, path, "", remote.ClockRequest{Date: "2024-03-01", Time: "18:00:00"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = call(t, s, http.MethodPut, "/api/timesheets/clock-out/999", "", out)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, s, http.MethodPut, "/api/timesheets/clock-out/abc", "", out)
	assert.Equal(t, http.StatusBadRequest, code)

	code, data = call(t, s, http.MethodGet, "/api/timesheets?employee=Maria", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]remote.TimesheetRecord](t, data), 1)
}

func TestClockInIsPerDate(t *testing.T) {
	s, _ := newTestServer(t)
	addEmployee(t, s, login(t, s), "Maria")

	day1 := remote.ClockRequest{IdempotencyKey: "k-day1", EmployeeName: "Maria", Date: "2024-03-01", Time: "22:00:00"}
	code, data := call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", day1)
	require.Equal(t, http.StatusCreated, code, string(data))

	// An open shift on an earlier day does not block the next day.
	day2 := remote.ClockRequest{IdempotencyKey: "k-day2", EmployeeName: "Maria", Date: "2024-03-02", Time: "08:00:00"}
	code, data = call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", day2)
	require.Equal(t, http.StatusCreated, code, string(data))

	day2.IdempotencyKey = "k-day2-again"
	code, _ = call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", day2)
	assert.Equal(t, http.StatusConflict, code)
}

func TestClockOutRepeatedKeyReturnsClosedRow(t *testing.T) {
	s, db := newTestServer(t)
	addEmployee(t, s, login(t, s), "Maria")

	code, data := call(t, s, http.MethodPost, "/api/timesheets/clock-in", "", remote.ClockRequest{IdempotencyKey: "k-in", EmployeeName: "Maria", Date: "2024-03-01", Time: "09:00:00"})
	require.Equal(t, http.StatusCreated, code, string(data))
	rec := decode[remote.TimesheetRecord](t, data)
	path := "/api/timesheets/clock-out/" + strconv.FormatInt(rec.ID, 10)

	out := remote.ClockRequest{IdempotencyKey: "k-out", Date: "2024-03-01", Time: "17:00:00"}
	code, data = call(t, s, http.MethodPut, path, "", out)
	require.Equal(t, http.StatusOK, code, string(data))

	// The retry is stamped later but carries the same key.
	out.Time = "17:02:00"
	code, data = call(t, s, http.MethodPut, path, "", out)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, "17:00:00", decode[remote.TimesheetRecord](t, data).ClockOut)

	// A sync of the same clock-out is a duplicate.
	serverID := rec.ID
	req := remote.SyncRequest{Timesheets: []remote.Timesheet{{
		IdempotencyKey: "k-out", EntryIDs: []string{"e2"}, ServerID: &serverID,
		EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00", ClockOut: "17:00:00",
	}}}
	code, data = call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.True(t, decode[remote.SyncResponse](t, data).Timesheets[0].Duplicate)

	var n int64
	require.NoError(t, db.Model(&Timesheet{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func sale(key, id string, washer int64, at time.Time) remote.Sale {
	return remote.Sale{
		IdempotencyKey: key,
		SalesRecord: domain.SalesRecord{
			ID:          id,
			Date:        "2024-03-01",
			WasherSales: decimal.NewFromInt(washer),
			UpdatedAt:   at,
		},
	}
}

func TestBulkSalesResendIsDuplicate(t *testing.T) {
	s, db := newTestServer(t)
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	req := remote.BulkSalesRequest{Sales: []remote.Sale{sale("k1", "s1", 100, at), sale("k2", "s2", 50, at)}}

	code, data := call(t, s, http.MethodPost, "/api/sales/bulk", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	first := decode[remote.BulkSalesResponse](t, data)
	require.Len(t, first.Sales, 2)
	assert.False(t, first.Sales[0].Duplicate)

	code, data = call(t, s, http.MethodPost, "/api/sales/bulk", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	second := decode[remote.BulkSalesResponse](t, data)
	require.Len(t, second.Sales, 2)
	for i := range second.Sales {
		assert.True(t, second.Sales[i].Duplicate)
		assert.Equal(t, first.Sales[i].ServerID, second.Sales[i].ServerID)
	}

	var n int64
	require.NoError(t, db.Model(&Sale{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestBulkSalesLastWriteWins(t *testing.T) {
	s, db := newTestServer(t)
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	send := func(key string, washer int64, when time.Time) {
		code, data := call(t, s, http.MethodPost, "/api/sales/bulk", "", remote.BulkSalesRequest{Sales: []remote.Sale{sale(key, "s1", washer, when)}})
		require.Equal(t, http.StatusOK, code, string(data))
	}
	send("k1", 100, at)
	send("k2", 120, at.Add(time.Minute))
	send("k3", 90, at.Add(-time.Minute))

	var stored Sale
	require.NoError(t, db.Where("client_id = ?", "s1").Take(&stored).Error)
	assert.True(t, decimal.NewFromInt(120).Equal(stored.WasherSales))
}

func TestSyncTimesheetResendFillsClockOut(t *testing.T) {
	s, db := newTestServer(t)

	open := remote.SyncRequest{Timesheets: []remote.Timesheet{{
		IdempotencyKey: "k1", EntryIDs: []string{"e1"}, EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00",
	}}}
	code, data := call(t, s, http.MethodPost, "/api/sync", "", open)
	require.Equal(t, http.StatusOK, code, string(data))
	id := decode[remote.SyncResponse](t, data).Timesheets[0].ServerID

	closed := open
	closed.Timesheets = []remote.Timesheet{open.Timesheets[0]}
	closed.Timesheets[0].ClockOut = "17:00:00"
	code, data = call(t, s, http.MethodPost, "/api/sync", "", closed)
	require.Equal(t, http.StatusOK, code, string(data))
	ack := decode[remote.SyncResponse](t, data).Timesheets[0]
	assert.True(t, ack.Duplicate)
	assert.Equal(t, id, ack.ServerID)

	var ts Timesheet
	require.NoError(t, db.First(&ts, id).Error)
	assert.Equal(t, "17:00:00", ts.ClockOut)
}

func TestSyncTimesheetClosesKnownShift(t *testing.T) {
	s, db := newTestServer(t)
	ts := Timesheet{EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00"}
	require.NoError(t, db.Create(&ts).Error)

	serverID := int64(ts.ID)
	req := remote.SyncRequest{Timesheets: []remote.Timesheet{{
		IdempotencyKey: "k-out", EntryIDs: []string{"e2"}, ServerID: &serverID,
		EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00", ClockOut: "17:00:00",
	}}}
	code, data := call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, serverID, decode[remote.SyncResponse](t, data).Timesheets[0].ServerID)

	var n int64
	require.NoError(t, db.Model(&Timesheet{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, db.First(&ts, ts.ID).Error)
	assert.Equal(t, "17:00:00", ts.ClockOut)
}

func TestSyncTimesheetMergesIntoOpenShift(t *testing.T) {
	s, db := newTestServer(t)
	open := Timesheet{EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00"}
	require.NoError(t, db.Create(&open).Error)

	req := remote.SyncRequest{Timesheets: []remote.Timesheet{{
		IdempotencyKey: "k-new", EntryIDs: []string{"e1"}, EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:03:00",
	}}}
	code, data := call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	ack := decode[remote.SyncResponse](t, data).Timesheets[0]
	assert.True(t, ack.Duplicate)
	assert.Equal(t, int64(open.ID), ack.ServerID)

	var n int64
	require.NoError(t, db.Model(&Timesheet{}).Where("employee_name = ?", "Maria").Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// A shift on another date is stored separately.
	req.Timesheets[0].IdempotencyKey = "k-next-day"
	req.Timesheets[0].Date = "2024-03-02"
	code, data = call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.False(t, decode[remote.SyncResponse](t, data).Timesheets[0].Duplicate)
	require.NoError(t, db.Model(&Timesheet{}).Where("employee_name = ?", "Maria").Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestSyncInventorySoftDeletes(t *testing.T) {
	s, db := newTestServer(t)
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	item := domain.InventoryItem{ID: "i1", Name: "Detergent", MaxStock: 50, MinStock: 10, Unit: "L", LastUpdated: at}
	logEntry := domain.InventoryUpdateLog{ID: "l1", ItemID: "i1", NewStock: 5, UpdateType: domain.UpdateUsage, Timestamp: at}

	req := remote.SyncRequest{
		Inventory:     []remote.InventoryItem{{IdempotencyKey: "k1", InventoryItem: item}},
		InventoryLogs: []remote.InventoryLog{{IdempotencyKey: "k2", InventoryUpdateLog: logEntry}},
	}
	code, data := call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))

	item.IsDeleted = true
	item.LastUpdated = at.Add(time.Minute)
	req = remote.SyncRequest{
		Inventory: []remote.InventoryItem{{IdempotencyKey: "k3", InventoryItem: item}},
		// Same log under a new key is still one row.
		InventoryLogs: []remote.InventoryLog{{IdempotencyKey: "k4", InventoryUpdateLog: logEntry}},
	}
	code, data = call(t, s, http.MethodPost, "/api/sync", "", req)
	require.Equal(t, http.StatusOK, code, string(data))
	resp := decode[remote.SyncResponse](t, data)
	assert.True(t, resp.InventoryLogs[0].Duplicate)

	var visible int64
	require.NoError(t, db.Model(&InventoryItem{}).Count(&visible).Error)
	assert.Zero(t, visible)
	var all int64
	require.NoError(t, db.Unscoped().Model(&InventoryItem{}).Count(&all).Error)
	assert.Equal(t, int64(1), all)
	var logs int64
	require.NoError(t, db.Model(&InventoryLog{}).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestSyncInvalidRowRejectsBatch(t *testing.T) {
	s, db := newTestServer(t)
	req := remote.SyncRequest{
		Timesheets: []remote.Timesheet{{IdempotencyKey: "k1", EmployeeName: "Maria", Date: "2024-03-01", ClockIn: "09:00:00"}},
		InventoryLogs: []remote.InventoryLog{{IdempotencyKey: "k2", InventoryUpdateLog: domain.InventoryUpdateLog{
			ID: "l1", ItemID: "i1", UpdateType: "spill",
		}}},
	}
	code, data := call(t, s, http.MethodPost, "/api/sync", "", req)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, decode[remote.ErrorResponse](t, data).Error, "inventory log 0")

	var n int64
	require.NoError(t, db.Model(&Timesheet{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&ReceivedKey{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sync", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
