package controllers

import (
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/services"
	"github.com/spf13/cast"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.MonitorServiceInterface
	limiter services.RateLimiterInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.MonitorServiceInterface, limiter services.RateLimiterInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		limiter: limiter,
		cache:   cache,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type textResponse struct {
	Text string `json:"text"`
}

type monitorResponse struct {
	Name        string `json:"name"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"depart_date"`
	ReturnDate  string `json:"return_date"`
	Restricted  int    `json:"restricted"`
	Overall     int    `json:"overall"`
	StartTime   string `json:"start_time"`
	LastFetch   string `json:"last_fetch"`
}

type createResponse struct {
	Monitor monitorResponse `json:"monitor"`
	Text    string          `json:"text"`
}

type statusResponse struct {
	Monitors []monitorResponse `json:"monitors"`
	Text     string            `json:"text"`
}

type settingsResponse struct {
	Preference *models.UserPreference `json:"preference"`
	Text       string                 `json:"text"`
}

type cancelRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	All    bool   `json:"all"`
}

type cancelResponse struct {
	Cancelled int `json:"cancelled"`
}

type timeRequest struct {
	UserID    int64    `json:"user_id"`
	Direction string   `json:"direction"`
	ExactHour *int     `json:"exact_hour"`
	Periods   []string `json:"periods"`
}

type notificationRequest struct {
	UserID int64                   `json:"user_id"`
	Mode   models.NotificationMode `json:"mode"`
	Amount *int                    `json:"amount"`
}

type intervalRequest struct {
	UserID  int64 `json:"user_id"`
	Minutes int   `json:"minutes"`
}

type scopeRequest struct {
	UserID int64              `json:"user_id"`
	Scope  models.NotifyScope `json:"scope"`
}

type adminRequest struct {
	AdminID int64 `json:"admin_id"`
}

func toMonitorResponse(key models.MonitorKey, st *models.MonitorState) monitorResponse {
	return monitorResponse{
		Name:        key.Name(),
		Origin:      key.Origin,
		Destination: key.Destination,
		DepartDate:  key.DepartDate,
		ReturnDate:  key.ReturnDate,
		Restricted:  st.Restricted,
		Overall:     st.Overall,
		StartTime:   st.StartTime,
		LastFetch:   st.LastFetch,
	}
}

func statusCacheKey(userID int64) string {
	return fmt.Sprintf("status:%d", userID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrMonitorNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMaxMonitors), errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, fetch.ErrNoFlightData), errors.Is(err, fetch.ErrNoMatchingFlights):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fetch.ErrRetriesExhausted):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (ac *ApiController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v and applies the per-user rate limit to
// the id it carries.
func (ac *ApiController) decode(w http.ResponseWriter, r *http.Request, v any, userID func() int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request"})
		return false
	}
	return ac.admit(w, r, userID())
}

func (ac *ApiController) admit(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if userID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user id is required"})
		return false
	}
	if !ac.limiter.Allow(userID) {
		ac.fail(w, r, services.ErrRateLimited)
		return false
	}
	return true
}

func (ac *ApiController) queryUser(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := cast.ToInt64E(r.URL.Query().Get(param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: param + " must be a number"})
		return 0, false
	}
	return id, ac.admit(w, r, id)
}

func (ac *ApiController) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	res, err := ac.service.CreateMonitor(r.Context(), req)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Del(statusCacheKey(req.UserID))
	writeJSON(w, http.StatusCreated, createResponse{Monitor: toMonitorResponse(res.Key, res.State), Text: res.Message})
}

func (ac *ApiController) ListStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := ac.queryUser(w, r, "user_id")
	if !ok {
		return
	}
	cacheKey := statusCacheKey(userID)
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	text, entries, err := ac.service.ListStatus(r.Context(), userID)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	resp := statusResponse{Monitors: make([]monitorResponse, 0, len(entries)), Text: text}
	for _, e := range entries {
		resp.Monitors = append(resp.Monitors, toMonitorResponse(e.Key, e.State))
	}
	gson, err := json.Marshal(resp)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	defer ac.cache.Del(statusCacheKey(req.UserID))

	if req.All {
		n, err := ac.service.CancelAll(r.Context(), req.UserID)
		if err != nil {
			ac.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cancelResponse{Cancelled: n})
		return
	}
	if err := ac.service.Cancel(r.Context(), req.UserID, req.Name); err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: 1})
}

func (ac *ApiController) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := ac.queryUser(w, r, "user_id")
	if !ok {
		return
	}
	pref, err := ac.service.GetSettings(r.Context(), userID)
	ac.settings(w, r, pref, err)
}

func (ac *ApiController) settings(w http.ResponseWriter, r *http.Request, pref *models.UserPreference, err error) {
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Preference: pref, Text: notify.Settings(pref)})
}

func (ac *ApiController) SetTimeConstraint(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	var dir models.Direction
	switch req.Direction {
	case "outbound":
		dir = models.Outbound
	case "inbound":
		dir = models.Inbound
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "direction must be outbound or inbound"})
		return
	}
	pref, err := ac.service.SetTimeConstraint(r.Context(), req.UserID, services.TimeConstraint{
		Direction: dir,
		ExactHour: req.ExactHour,
		Periods:   req.Periods,
	})
	ac.settings(w, r, pref, err)
}

func (ac *ApiController) SetNotificationPreference(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	pref, err := ac.service.SetNotificationPreference(r.Context(), req.UserID, req.Mode, req.Amount)
	ac.settings(w, r, pref, err)
}

func (ac *ApiController) SetNotificationInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	pref, err := ac.service.SetNotificationInterval(r.Context(), req.UserID, req.Minutes)
	ac.settings(w, r, pref, err)
}

func (ac *ApiController) SetNotificationScope(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if !ac.decode(w, r, &req, func() int64 { return req.UserID }) {
		return
	}
	pref, err := ac.service.SetNotificationScope(r.Context(), req.UserID, req.Scope)
	ac.settings(w, r, pref, err)
}

func (ac *ApiController) AllStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := ac.queryUser(w, r, "admin_id")
	if !ok {
		return
	}
	text, err := ac.service.AllStatus(r.Context(), adminID)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (ac *ApiController) AllCancel(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ac.decode(w, r, &req, func() int64 { return req.AdminID }) {
		return
	}
	n, err := ac.service.AllCancel(r.Context(), req.AdminID)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: n})
}
