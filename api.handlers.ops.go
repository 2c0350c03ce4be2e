package main

import (
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// MaintenanceInfos describes the maintenance mode state.
type MaintenanceInfos struct {
	Enabled bool   `json:"enabled"`
	Started string `json:"started"`
	Message string `json:"message"`
}

// StatisticsResponse is sent by the ops stats endpoint.
type StatisticsResponse struct {
	RequestID   string           `json:"requestid"`
	Version     string           `json:"app.version"`
	Container   bool             `json:"app.container"`
	Platform    string           `json:"app.platform"`
	GoVersion   string           `json:"go.version"`
	Called      uint64           `json:"called"`
	Started     string           `json:"started"`
	Uptime      string           `json:"uptime"`
	Maintenance MaintenanceInfos `json:"maintenance"`
	Status      map[int]uint64   `json:"status"`
}

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := StatusResponse{
		RequestID: requestID,
		Status:    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		Message:   "Hello. Books api is available. Enjoy :)",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Maintenance enables, disables or shows the maintenance mode.
//
//	enable : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
//	disable: /ops/maintenance?status=disable
//	show   : /ops/maintenance
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	q := r.URL.Query()
	var response map[string]interface{}

	switch q.Get("status") {
	case "enable":
		started := api.clock.Now().UTC()
		api.mode.mu.Lock()
		api.mode.message = q.Get("msg")
		api.mode.started = started
		api.mode.enabled.Store(true)
		api.mode.mu.Unlock()
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": started.Format(time.RFC1123),
			"maintenance.message": q.Get("msg"),
			"message":             "Maintenance mode enabled successfully.",
		}
	case "disable":
		api.mode.mu.Lock()
		api.mode.enabled.Store(false)
		api.mode.started = time.Time{}
		api.mode.message = ""
		api.mode.mu.Unlock()
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		}
	default:
		response = map[string]interface{}{
			"requestid":   requestID,
			"maintenance": api.maintenanceInfos(),
		}
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		api.logger.Error("failed to send maintenance response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) maintenanceInfos() MaintenanceInfos {
	api.mode.mu.RLock()
	defer api.mode.mu.RUnlock()
	infos := MaintenanceInfos{Enabled: api.mode.enabled.Load(), Message: api.mode.message}
	if !api.mode.started.IsZero() {
		infos.Started = api.mode.started.Format(time.RFC1123)
	}
	return infos
}

// GetStatistics provides useful details about the application to the internal ops users.
// The request which triggered it is not counted.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[code] = count
	}
	api.stats.mu.RUnlock()

	resp := StatisticsResponse{
		RequestID:   requestID,
		Version:     api.stats.version,
		Container:   api.stats.container,
		Platform:    api.stats.platform,
		GoVersion:   api.stats.runtime,
		Called:      called,
		Started:     api.stats.started.Format(time.RFC1123),
		Uptime:      fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		Maintenance: api.maintenanceInfos(),
		Status:      status,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		api.logger.Error("failed to send statistics response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations. Secrets are not exported.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := writeJSON(w, http.StatusOK, map[string]interface{}{"requestid": requestID, "configs": api.config}); err != nil {
		api.logger.Error("failed to send configs response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// OpsHandlerWrapper adapts a standard http.Handler to httprouter.
func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

func (api *APIHandler) GetCPUProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Profile(w, r)
}

func (api *APIHandler) GetTraceProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Trace(w, r)
}
