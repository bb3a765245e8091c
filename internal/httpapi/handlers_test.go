package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func TestHandleHealthzReturnsOK(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	s.handleHealthz(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHandleVersionReturnsConfiguredValues(t *testing.T) {
	s := &Server{cfg: Config{ServiceName: "txindexd", ServiceVersion: "1.2.3"}}
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()

	s.handleVersion(w, req)

	require.Contains(t, w.Body.String(), `"name":"txindexd"`)
	require.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestParseListQueryDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	lq, apiErr := parseListQuery(req)
	require.Nil(t, apiErr)
	require.Equal(t, 50, lq.limit)
	require.Equal(t, 0, lq.offset)
}

func TestParseListQueryRejectsOutOfRangeLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?limit=500", nil)
	_, apiErr := parseListQuery(req)
	require.NotNil(t, apiErr)
}

func TestParseListQueryRejectsBadSortBy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?sort_by=nonsense", nil)
	_, apiErr := parseListQuery(req)
	require.NotNil(t, apiErr)
}

func TestParseListQueryRejectsInvertedSlotRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?slot_from=100&slot_to=1", nil)
	_, apiErr := parseListQuery(req)
	require.NotNil(t, apiErr)
}

func TestComputeETagIsStableForSameInputs(t *testing.T) {
	lq, _ := parseListQuery(httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	summary := txmodel.Summary{Total: 5, MaxSlot: 10, MaxCreatedAt: 999}

	a := computeETag(lq, summary, "salt")
	b := computeETag(lq, summary, "salt")
	require.Equal(t, a, b)
}

func TestComputeETagChangesWhenSummaryChanges(t *testing.T) {
	lq, _ := parseListQuery(httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	a := computeETag(lq, txmodel.Summary{Total: 5, MaxSlot: 10}, "salt")
	b := computeETag(lq, txmodel.Summary{Total: 6, MaxSlot: 10}, "salt")
	require.NotEqual(t, a, b)
}

func TestComputeETagChangesWithSalt(t *testing.T) {
	lq, _ := parseListQuery(httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	summary := txmodel.Summary{Total: 5, MaxSlot: 10}

	a := computeETag(lq, summary, "salt-a")
	b := computeETag(lq, summary, "salt-b")
	require.NotEqual(t, a, b)
}
