package httpapi

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/txindexd/txindexd/internal/apierror"
	"github.com/txindexd/txindexd/internal/cache"
	"github.com/txindexd/txindexd/internal/metrics"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txmodel"
	"github.com/txindexd/txindexd/internal/txstore"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		txlog.HTTPLog.Errorf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, apiErr *apierror.Error) {
	writeJSON(w, apiErr.Status(), apiErr.ToBody())
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type checkResult struct {
	Enabled bool   `json:"enabled"`
	OK      bool   `json:"ok"`
	Details string `json:"details"`
}

type readyResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]checkResult `json:"checks"`
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]checkResult)
	ready := true

	if s.store != nil {
		if err := s.store.Healthy(ctx); err != nil {
			ready = false
			checks["postgres"] = checkResult{Enabled: true, OK: false, Details: err.Error()}
		} else {
			checks["postgres"] = checkResult{Enabled: true, OK: true, Details: "healthy"}
		}
	} else {
		checks["postgres"] = checkResult{Enabled: false, OK: true, Details: "disabled"}
	}

	if s.kvStore != nil {
		if err := s.kvStore.Healthy(ctx); err != nil {
			ready = false
			checks["redis"] = checkResult{Enabled: true, OK: false, Details: err.Error()}
		} else {
			checks["redis"] = checkResult{Enabled: true, OK: true, Details: "healthy"}
		}
	} else {
		checks["redis"] = checkResult{Enabled: false, OK: true, Details: "disabled"}
	}

	if s.brokerChecker != nil {
		if err := s.brokerChecker(ctx); err != nil {
			ready = false
			checks["broker"] = checkResult{Enabled: true, OK: false, Details: err.Error()}
		} else {
			checks["broker"] = checkResult{Enabled: true, OK: true, Details: "healthy"}
		}
	} else {
		checks["broker"] = checkResult{Enabled: false, OK: true, Details: "disabled"}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readyResponse{Ready: ready, Checks: checks})
}

type versionResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{Name: s.cfg.ServiceName, Version: s.cfg.ServiceVersion})
}

type nonceRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (s *Server) handleIssueNonce(w http.ResponseWriter, r *http.Request) {
	var req nonceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, apierror.BadRequest("invalid request body"))
		return
	}

	resp, apiErr := s.gate.IssueNonce(r.Context(), req.WalletAddress)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type listQuery struct {
	filter  txmodel.Filter
	sortBy  txstore.SortBy
	order   txstore.Order
	limit   int
	offset  int
}

func parseListQuery(r *http.Request) (listQuery, *apierror.Error) {
	q := r.URL.Query()

	lq := listQuery{
		sortBy: txstore.SortBySlot,
		order:  txstore.OrderDesc,
		limit:  50,
	}

	if v := q.Get("signature"); v != "" {
		lq.filter.Signature = &v
	}
	if v := q.Get("from"); v != "" {
		lq.filter.From = &v
	}
	if v := q.Get("to"); v != "" {
		lq.filter.To = &v
	}
	if v := q.Get("program_id"); v != "" {
		lq.filter.ProgramID = &v
	}
	if v := q.Get("slot_from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return lq, apierror.BadRequest("slot_from must be an integer")
		}
		lq.filter.SlotFrom = &n
	}
	if v := q.Get("slot_to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return lq, apierror.BadRequest("slot_to must be an integer")
		}
		lq.filter.SlotTo = &n
	}
	if lq.filter.SlotFrom != nil && lq.filter.SlotTo != nil && *lq.filter.SlotFrom > *lq.filter.SlotTo {
		return lq, apierror.BadRequest("slot_from must be <= slot_to")
	}

	if v := q.Get("sort_by"); v != "" {
		switch txstore.SortBy(v) {
		case txstore.SortBySlot, txstore.SortBySignature, txstore.SortByBlockTime:
			lq.sortBy = txstore.SortBy(v)
		default:
			return lq, apierror.BadRequest("sort_by must be one of: slot, signature, block_time")
		}
	}

	if v := q.Get("order"); v != "" {
		switch txstore.Order(v) {
		case txstore.OrderAsc, txstore.OrderDesc:
			lq.order = txstore.Order(v)
		default:
			return lq, apierror.BadRequest("order must be one of: asc, desc")
		}
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return lq, apierror.BadRequest("limit must be between 1 and 200")
		}
		lq.limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return lq, apierror.BadRequest("offset must be non-negative")
		}
		lq.offset = n
	}

	return lq, nil
}

// computeETag derives a weak validator from the query shape and the
// filtered summary, salted per deployment.
func computeETag(lq listQuery, summary txmodel.Summary, salt string) string {
	h := sha1.New()
	fmt.Fprintf(h, "sig=%v|from=%v|to=%v|prog=%v|slot_from=%v|slot_to=%v|sort=%s|order=%s|limit=%d|offset=%d",
		strPtr(lq.filter.Signature), strPtr(lq.filter.From), strPtr(lq.filter.To), strPtr(lq.filter.ProgramID),
		i64Ptr(lq.filter.SlotFrom), i64Ptr(lq.filter.SlotTo), lq.sortBy, lq.order, lq.limit, lq.offset)
	fmt.Fprintf(h, "|%d|%d|%d|%s", summary.Total, summary.MaxSlot, summary.MaxCreatedAt, salt)
	return fmt.Sprintf(`W/"%x"`, h.Sum(nil))
}

func strPtr(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func i64Ptr(p *int64) string {
	if p == nil {
		return "<nil>"
	}
	return strconv.FormatInt(*p, 10)
}

type pageInfo struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

type sortInfo struct {
	By    string `json:"by"`
	Order string `json:"order"`
}

type listResponse struct {
	Items []txmodel.Transaction `json:"items"`
	Page  pageInfo              `json:"page"`
	Sort  sortInfo              `json:"sort"`
}

// handleListTransactions serves GET /api/transactions with conditional
// requests (If-None-Match) and a response cache keyed by the derived
// ETag, so repeated identical queries within the cache TTL skip the list
// query; the summary query that derives the ETag runs on every request.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	lq, apiErr := parseListQuery(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	if s.store == nil {
		writeError(w, apierror.Unavailable("database not available"))
		return
	}

	summary, err := s.store.Summary(r.Context(), lq.filter)
	if err != nil {
		txlog.HTTPLog.Errorf("summary query: %v", err)
		writeError(w, apierror.Internal("database query failed"))
		return
	}

	etag := computeETag(lq, summary, s.cfg.CacheETagSalt)

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	cacheKey := "tx:list:" + etag
	if s.cfg.CacheEnabled && s.cache != nil {
		if entry, ok := s.cache.Get(cacheKey); ok && entry.ETag == etag {
			metrics.CacheHitsTotal.Inc()
			w.Header().Set("ETag", etag)
			w.Header().Set("Content-Type", "application/json")
			w.Write(entry.Payload)
			return
		}
	}
	metrics.CacheMissesTotal.Inc()

	items, err := s.store.List(r.Context(), lq.filter, lq.sortBy, lq.order, txstore.Pagination{Limit: lq.limit, Offset: lq.offset})
	if err != nil {
		txlog.HTTPLog.Errorf("list query: %v", err)
		writeError(w, apierror.Internal("database query failed"))
		return
	}
	if items == nil {
		items = []txmodel.Transaction{}
	}

	resp := listResponse{
		Items: items,
		Page:  pageInfo{Limit: lq.limit, Offset: lq.offset, Total: summary.Total},
		Sort:  sortInfo{By: string(lq.sortBy), Order: string(lq.order)},
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		txlog.HTTPLog.Errorf("marshaling list response: %v", err)
		writeError(w, apierror.Internal("serialization failed"))
		return
	}

	if s.cfg.CacheEnabled && s.cache != nil {
		s.cache.Set(cacheKey, cache.Entry{Payload: payload, ETag: etag, CachedAt: time.Now()}, s.cfg.CacheTTL)
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleGetTransaction serves GET /api/transactions/{signature}.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	signature := mux.Vars(r)["signature"]

	if s.store == nil {
		writeError(w, apierror.Unavailable("database not available"))
		return
	}

	tx, err := s.store.GetBySignature(r.Context(), signature)
	if err != nil {
		if errors.Is(err, txstore.ErrNotFound) {
			writeError(w, apierror.NotFound("transaction not found"))
			return
		}
		txlog.HTTPLog.Errorf("get by signature %s: %v", signature, err)
		writeError(w, apierror.Internal("database query failed"))
		return
	}

	writeJSON(w, http.StatusOK, tx)
}
