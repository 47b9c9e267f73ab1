package charts

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pocketbase/pocketbase/core"
)

const cborContentType = "application/cbor"

// HandleChartData serves a normalized chart series
// (GET /api/beszel/chart-data?system=&chart=&kind=&keys=&smooth=&format=).
// The body is JSON unless format=cbor or the Accept header asks for CBOR.
func (m *Manager) HandleChartData(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	systemId := query.Get("system")
	if systemId == "" {
		return e.BadRequestError("Missing system", nil)
	}

	systemRecord, err := e.App.FindRecordById("systems", systemId)
	if err != nil {
		return e.NotFoundError("System not found", err)
	}
	info, err := e.RequestInfo()
	if err != nil {
		return e.BadRequestError("", err)
	}
	canAccess, err := e.App.CanAccessRecord(systemRecord, info, systemRecord.Collection().ViewRule)
	if err != nil || !canAccess {
		return e.ForbiddenError("", err)
	}

	req := Request{
		System: systemId,
		Chart:  query.Get("chart"),
		Kind:   Kind(query.Get("kind")),
		Smooth: query.Get("smooth") == "1" || query.Get("smooth") == "true",
	}
	if keys := query.Get("keys"); keys != "" {
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" && !slices.Contains(req.Keys, k) {
				req.Keys = append(req.Keys, k)
			}
		}
	}

	resp, err := m.Series(req)
	switch {
	case errors.Is(err, ErrUnknownChart), errors.Is(err, ErrUnknownKind), errors.Is(err, ErrTooManyPoints):
		return e.BadRequestError(err.Error(), nil)
	case err != nil:
		e.App.Logger().Error("Failed to build chart data", "system", systemId, "chart", req.Chart, "err", err)
		return e.InternalServerError("", err)
	}
	if wantsCBOR(e.Request) {
		data, err := cbor.Marshal(resp)
		if err != nil {
			return e.InternalServerError("", err)
		}
		return e.Blob(http.StatusOK, cborContentType, data)
	}
	return e.JSON(http.StatusOK, resp)
}

func wantsCBOR(r *http.Request) bool {
	if format := r.URL.Query().Get("format"); format != "" {
		return format == "cbor"
	}
	return strings.Contains(r.Header.Get("Accept"), cborContentType)
}
