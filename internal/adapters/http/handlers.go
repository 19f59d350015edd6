package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/logging"
)

type handlers struct {
	Deps
}

type storeInfo struct {
	Name    string   `json:"name"`
	Scope   string   `json:"scope"`
	Events  []string `json:"events"`
	Actions []string `json:"actions"`
	Keys    []string `json:"keys"`
}

func (h *handlers) health(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"bridge":   h.Bridge.Stats(),
		"sessions": h.Orch.Registry.Count(),
	}
	if h.Native != nil {
		body["native"] = h.Native.Stats()
	}
	respond(c, http.StatusOK, body)
}

func (h *handlers) listStores(c *gin.Context) {
	modules := h.Orch.Hub.Modules()
	out := make([]storeInfo, 0, len(modules))
	for _, m := range modules {
		out = append(out, storeInfo{
			Name:    m.Name(),
			Scope:   m.Scope().String(),
			Events:  m.Events(),
			Actions: m.Actions(),
			Keys:    m.Keys(),
		})
	}
	respond(c, http.StatusOK, out)
}

func (h *handlers) snapshot(c *gin.Context) {
	m, err := h.Orch.Hub.Get(c.Param("store"))
	if err != nil {
		fail(c, err)
		return
	}
	key := m.Partition(c.Query("room"))
	if key == "" {
		fail(c, app.ErrMissingLiveID)
		return
	}
	respond(c, http.StatusOK, m.Snapshot(key))
}

func (h *handlers) clear(c *gin.Context) {
	if err := h.Orch.Hub.ClearPartition(c.Param("store"), c.Query("room")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) action(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abort(c, http.StatusBadRequest, app.CodeInvalidParams, "unreadable body")
		return
	}
	if len(raw) > 0 && !json.Valid(raw) {
		abort(c, http.StatusBadRequest, app.CodeInvalidParams, "body is not valid json")
		return
	}

	store, action := c.Param("store"), c.Param("action")
	data, err := h.Orch.Action(c.Request.Context(), c.GetString("client_token"), store, c.Query("room"), action, raw)
	if err != nil {
		fail(c, err)
		return
	}
	logging.Ctx(c.Request.Context()).Info().Str("store", store).Str("action", action).Msg("action ok")
	respond(c, http.StatusOK, data)
}

func (h *handlers) summaries(c *gin.Context) {
	if h.Summaries == nil {
		abort(c, http.StatusNotFound, app.CodeNotFound, "archive disabled")
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, app.CodeInvalidParams, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	var (
		out any
		err error
	)
	if liveID := c.Query("live_id"); liveID != "" {
		out, err = h.Summaries.ListByLive(ctx, liveID, limit)
	} else {
		out, err = h.Summaries.Recent(ctx, limit)
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}
