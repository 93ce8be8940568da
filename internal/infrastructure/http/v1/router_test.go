package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/auth"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/pkg/logger"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	editor string
	viewer string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	services, err := app.Build(app.MemoryBackend(memory.New()), app.Options{})
	require.NoError(t, err)

	jwt := auth.NewJWTService(auth.DefaultJWTConfig("test-secret-0123456789"))
	editor, _, err := jwt.IssueToken("u-editor", "Editor", []string{appctx.RoleEditor}, false)
	require.NoError(t, err)
	viewer, _, err := jwt.IssueToken("u-viewer", "Viewer", []string{appctx.RoleViewer}, false)
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Services:     services,
		Logger:       logger.Nop(),
		JWTValidator: jwt,
		Version:      "test",
	})
	return &testAPI{t: t, router: router, editor: editor, viewer: viewer}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// create posts body and returns the "id" of the created resource.
func (a *testAPI) create(path string, body any) string {
	a.t.Helper()
	w := a.do(http.MethodPost, path, a.editor, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(a.t, out.ID)
	return out.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// seedCatalogs creates a group, two warehouses, a supplier and an item, and
// opens the 2024-25 financial year.
func (a *testAPI) seedCatalogs() (itemID, mainWH, shopWH, supplierID string) {
	a.t.Helper()

	w := a.do(http.MethodPut, "/api/v1/period", a.editor, map[string]string{
		"startDate": "2024-04-01",
		"endDate":   "2025-03-31",
	})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	groupID := a.create("/api/v1/groups", map[string]any{"code": "RAW", "name": "Raw"})
	mainWH = a.create("/api/v1/warehouses", map[string]any{"code": "MAIN", "name": "Main"})
	shopWH = a.create("/api/v1/warehouses", map[string]any{"code": "SHOP", "name": "Shop"})
	supplierID = a.create("/api/v1/contacts", map[string]any{"code": "SUP", "name": "Supplier", "type": "supplier"})
	itemID = a.create("/api/v1/items", map[string]any{
		"code":     "BOLT",
		"name":     "Bolt M8",
		"unit":     "pcs",
		"groupId":  groupID,
		"barcodes": []string{"4006381333931"},
	})
	return itemID, mainWH, shopWH, supplierID
}

func TestHealth_NoAuth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	info := decode[map[string]any](t, api.do(http.MethodGet, "/health/info", "", nil))
	assert.Equal(t, "memory", info["storage"])
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/v1/items", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ViewerCannotWrite(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/groups", api.viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/v1/groups", api.viewer, map[string]any{"code": "X", "name": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPut, "/api/v1/period", api.viewer, map[string]string{"startDate": "2024-04-01", "endDate": "2025-03-31"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPeriod_EmptyThenSet(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/period", api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"period":null}`, w.Body.String())

	w = api.do(http.MethodPut, "/api/v1/period", api.editor, map[string]string{"startDate": "2025-03-31", "endDate": "2024-04-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPut, "/api/v1/period", api.editor, map[string]string{"startDate": "2024-04-01", "endDate": "2025-03-31"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[struct {
		Period struct {
			StartDate string `json:"startDate"`
			UpdatedBy string `json:"updatedBy"`
		} `json:"period"`
	}](t, api.do(http.MethodGet, "/api/v1/period", api.viewer, nil))
	assert.Contains(t, got.Period.StartDate, "2024-04-01")
	assert.Equal(t, "u-editor", got.Period.UpdatedBy)
}

func TestCatalogs_CRUDAndLookups(t *testing.T) {
	api := newTestAPI(t)
	itemID, _, _, _ := api.seedCatalogs()

	w := api.do(http.MethodGet, "/api/v1/items/"+itemID, api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/items/barcode/4006381333931", api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, itemID, decode[map[string]any](t, w)["id"])

	found := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, api.do(http.MethodGet, "/api/v1/items/search?q=bolt", api.viewer, nil))
	require.Len(t, found.Items, 1)

	w = api.do(http.MethodGet, "/api/v1/items/search", api.viewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := decode[struct {
		Items      []map[string]any `json:"items"`
		TotalCount int              `json:"totalCount"`
	}](t, api.do(http.MethodGet, "/api/v1/warehouses?limit=1", api.viewer, nil))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 2, list.TotalCount)

	w = api.do(http.MethodGet, "/api/v1/items/not-an-id", api.viewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedger_InwardStockAndConflicts(t *testing.T) {
	api := newTestAPI(t)
	itemID, mainWH, _, supplierID := api.seedCatalogs()

	inwardID := api.create("/api/v1/inward", map[string]any{
		"date":      "2024-05-10",
		"type":      "purchase",
		"invoiceNo": "INV-1",
		"contactId": supplierID,
		"lines": []map[string]any{
			{"itemId": itemID, "warehouseId": mainWH, "quantity": 100},
		},
	})

	stock := decode[struct {
		Quantity types.Quantity `json:"quantity"`
	}](t, api.do(http.MethodGet, "/api/v1/stock?item_id="+itemID+"&warehouse_id="+mainWH, api.viewer, nil))
	assert.Equal(t, types.Units(100), stock.Quantity)

	// out of period
	w := api.do(http.MethodPost, "/api/v1/inward", api.editor, map[string]any{
		"date":      "2023-05-10",
		"type":      "purchase",
		"invoiceNo": "INV-2",
		"lines":     []map[string]any{{"itemId": itemID, "warehouseId": mainWH, "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OUT_OF_PERIOD", decode[errorBody](t, w).Code)

	// stale version
	update := map[string]any{
		"version":   99,
		"date":      "2024-05-10",
		"type":      "purchase",
		"invoiceNo": "INV-1",
		"lines":     []map[string]any{{"itemId": itemID, "warehouseId": mainWH, "quantity": 80}},
	}
	w = api.do(http.MethodPut, "/api/v1/inward/"+inwardID, api.editor, update)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// without a version the stored one is used
	delete(update, "version")
	w = api.do(http.MethodPut, "/api/v1/inward/"+inwardID, api.editor, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ledger := decode[struct {
		Entries []struct {
			Balance types.Quantity `json:"balance"`
		} `json:"entries"`
	}](t, api.do(http.MethodGet, "/api/v1/stock/ledger?item_id="+itemID+"&warehouse_id="+mainWH, api.viewer, nil))
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, types.Units(80), ledger.Entries[0].Balance)

	w = api.do(http.MethodGet, "/api/v1/inward?from=2024-05-01&to=2024-05-31", api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Items []map[string]any `json:"items"`
	}](t, w).Items, 1)

	w = api.do(http.MethodDelete, "/api/v1/inward/"+inwardID, api.editor, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodGet, "/api/v1/inward/"+inwardID, api.viewer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedger_ClientCannotChooseID(t *testing.T) {
	api := newTestAPI(t)
	itemID, mainWH, _, _ := api.seedCatalogs()

	const chosen = "01890000-0000-7000-8000-000000000001"
	id := api.create("/api/v1/opening", map[string]any{
		"id":    chosen,
		"date":  "2024-04-01",
		"lines": []map[string]any{{"itemId": itemID, "warehouseId": mainWH, "quantity": 10}},
	})
	assert.NotEqual(t, chosen, id)
}

func TestDelivery_PendingAndReturn(t *testing.T) {
	api := newTestAPI(t)
	itemID, mainWH, _, _ := api.seedCatalogs()
	customerID := api.create("/api/v1/contacts", map[string]any{"code": "CUS", "name": "Customer", "type": "customer"})

	api.create("/api/v1/delivery/issues", map[string]any{
		"date":      "2024-06-01",
		"contactId": customerID,
		"toPerson":  "Driver",
		"lines":     []map[string]any{{"itemId": itemID, "warehouseId": mainWH, "quantity": 10}},
	})

	type pending struct {
		Items []struct {
			LineID          string         `json:"lineId"`
			PendingQuantity types.Quantity `json:"pendingQuantity"`
		} `json:"items"`
	}
	got := decode[pending](t, api.do(http.MethodGet, "/api/v1/delivery/pending?contact_id="+customerID, api.viewer, nil))
	require.Len(t, got.Items, 1)
	assert.Equal(t, types.Units(10), got.Items[0].PendingQuantity)

	byCode := decode[pending](t, api.do(http.MethodGet, "/api/v1/delivery/pending/barcode/4006381333931", api.viewer, nil))
	require.Len(t, byCode.Items, 1)

	lineID := got.Items[0].LineID
	w := api.do(http.MethodPost, "/api/v1/delivery/pending/"+lineID+"/return", api.editor, map[string]any{
		"quantity": 4, "warehouseId": mainWH, "date": "2024-06-05",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/delivery/pending/"+lineID+"/return", api.editor, map[string]any{
		"quantity": 7, "warehouseId": mainWH, "date": "2024-06-06",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OVER_RETURN", decode[errorBody](t, w).Code)

	got = decode[pending](t, api.do(http.MethodGet, "/api/v1/delivery/pending?contact_id="+customerID, api.viewer, nil))
	require.Len(t, got.Items, 1)
	assert.Equal(t, types.Units(6), got.Items[0].PendingQuantity)
}

func TestReports_TurnoverAndSummary(t *testing.T) {
	api := newTestAPI(t)
	itemID, mainWH, shopWH, _ := api.seedCatalogs()

	api.create("/api/v1/opening", map[string]any{
		"date":  "2024-04-01",
		"lines": []map[string]any{{"itemId": itemID, "warehouseId": mainWH, "quantity": 50}},
	})
	api.create("/api/v1/transfers", map[string]any{
		"date":  "2024-04-10",
		"lines": []map[string]any{{"itemId": itemID, "fromWarehouseId": mainWH, "toWarehouseId": shopWH, "quantity": 20}},
	})

	summary := decode[struct {
		Rows  []map[string]any `json:"rows"`
		Total types.Quantity   `json:"total"`
	}](t, api.do(http.MethodGet, "/api/v1/reports/stock-summary", api.viewer, nil))
	assert.Len(t, summary.Rows, 2)
	assert.Equal(t, types.Units(50), summary.Total)

	w := api.do(http.MethodGet, "/api/v1/reports/turnover?from=2024-04-01&to=2024-04-30&kind=transfer", api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turnover := decode[struct {
		TotalReceipt types.Quantity `json:"totalReceipt"`
		TotalExpense types.Quantity `json:"totalExpense"`
	}](t, w)
	assert.Equal(t, types.Units(20), turnover.TotalReceipt)
	assert.Equal(t, types.Units(20), turnover.TotalExpense)

	w = api.do(http.MethodGet, "/api/v1/reports/turnover?from=2024-04-01", api.viewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	items := decode[struct {
		Total types.Quantity `json:"total"`
	}](t, api.do(http.MethodGet, "/api/v1/stock/items/"+itemID, api.viewer, nil))
	assert.Equal(t, types.Units(50), items.Total)

	dash := decode[struct {
		TotalStock types.Quantity `json:"totalStock"`
	}](t, api.do(http.MethodGet, "/api/v1/reports/dashboard", api.viewer, nil))
	assert.Equal(t, types.Units(50), dash.TotalStock)
}

func TestAudit_History(t *testing.T) {
	api := newTestAPI(t)
	itemID, _, _, _ := api.seedCatalogs()

	w := api.do(http.MethodGet, "/api/v1/audit/item/"+itemID, api.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[struct {
		Items []map[string]any `json:"items"`
	}](t, w).Items)
}
