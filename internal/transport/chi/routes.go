package chi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the set of HTTP operations the API exposes.
type ServerInterface interface {
	// (POST /search)
	Search(w http.ResponseWriter, r *http.Request)
	// (GET /filter-options)
	GetFilterOptions(w http.ResponseWriter, r *http.Request)
	// (GET /history)
	ListHistory(w http.ResponseWriter, r *http.Request, params ListHistoryParams)
	// (DELETE /history)
	DeleteAllHistory(w http.ResponseWriter, r *http.Request, params UserParams)
	// (GET /history/saved)
	ListSavedHistory(w http.ResponseWriter, r *http.Request, params SavedHistoryParams)
	// (GET /history/stats)
	GetHistoryStats(w http.ResponseWriter, r *http.Request, params UserParams)
	// (GET /history/suggestions)
	GetHistorySuggestions(w http.ResponseWriter, r *http.Request, params SuggestionsParams)
	// (PUT /history/{id})
	UpdateHistory(w http.ResponseWriter, r *http.Request, id int64, params UserParams)
	// (PUT /history/{id}/use)
	UseHistory(w http.ResponseWriter, r *http.Request, id int64, params UserParams)
	// (DELETE /history/{id})
	DeleteHistory(w http.ResponseWriter, r *http.Request, id int64, params UserParams)
	// (GET /usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// UserParams identifies the requester of a history operation.
type UserParams struct {
	UserID string `form:"user_id" json:"user_id"`
}

// ListHistoryParams defines parameters for ListHistory.
type ListHistoryParams struct {
	UserID    string `form:"user_id" json:"user_id"`
	Limit     *int   `form:"limit,omitempty" json:"limit,omitempty"`
	SavedOnly *bool  `form:"saved_only,omitempty" json:"saved_only,omitempty"`
}

// SavedHistoryParams defines parameters for ListSavedHistory.
type SavedHistoryParams struct {
	UserID string `form:"user_id" json:"user_id"`
	Limit  *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// SuggestionsParams defines parameters for GetHistorySuggestions.
type SuggestionsParams struct {
	UserID string `form:"user_id" json:"user_id"`
	Q      string `form:"q" json:"q"`
	Limit  *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// GetUsageParams defines parameters for GetUsage.
type GetUsageParams struct {
	Period *string `form:"period,omitempty" json:"period,omitempty"`
}

// ParamError reports a query or path parameter that failed to bind.
type ParamError struct {
	ParamName string
	Err       error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *ParamError) Unwrap() error { return e.Err }

// RouterOptions configures route registration.
type RouterOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions registers every route of si on options.BaseRouter and returns it.
func HandlerWithOptions(si ServerInterface, options RouterOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, r, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := &serverWrapper{handler: si, errorHandler: options.ErrorHandlerFunc}

	r.Post("/search", si.Search)
	r.Get("/filter-options", si.GetFilterOptions)
	r.Route("/history", func(r chi.Router) {
		r.Get("/", wrapper.ListHistory)
		r.Delete("/", wrapper.DeleteAllHistory)
		r.Get("/saved", wrapper.ListSavedHistory)
		r.Get("/stats", wrapper.GetHistoryStats)
		r.Get("/suggestions", wrapper.GetHistorySuggestions)
		r.Put("/{id}", wrapper.UpdateHistory)
		r.Put("/{id}/use", wrapper.UseHistory)
		r.Delete("/{id}", wrapper.DeleteHistory)
	})
	r.Get("/usage", wrapper.GetUsage)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

// serverWrapper binds path and query parameters before calling the handler.
type serverWrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *serverWrapper) ListHistory(w http.ResponseWriter, r *http.Request) {
	var params ListHistoryParams
	q := r.URL.Query()
	if !sw.bindQuery(w, r, q, "user_id", true, &params.UserID) ||
		!sw.bindQuery(w, r, q, "limit", false, &params.Limit) ||
		!sw.bindQuery(w, r, q, "saved_only", false, &params.SavedOnly) {
		return
	}
	sw.handler.ListHistory(w, r, params)
}

func (sw *serverWrapper) DeleteAllHistory(w http.ResponseWriter, r *http.Request) {
	params, ok := sw.userParams(w, r)
	if !ok {
		return
	}
	sw.handler.DeleteAllHistory(w, r, params)
}

func (sw *serverWrapper) ListSavedHistory(w http.ResponseWriter, r *http.Request) {
	var params SavedHistoryParams
	q := r.URL.Query()
	if !sw.bindQuery(w, r, q, "user_id", true, &params.UserID) ||
		!sw.bindQuery(w, r, q, "limit", false, &params.Limit) {
		return
	}
	sw.handler.ListSavedHistory(w, r, params)
}

func (sw *serverWrapper) GetHistoryStats(w http.ResponseWriter, r *http.Request) {
	params, ok := sw.userParams(w, r)
	if !ok {
		return
	}
	sw.handler.GetHistoryStats(w, r, params)
}

func (sw *serverWrapper) GetHistorySuggestions(w http.ResponseWriter, r *http.Request) {
	var params SuggestionsParams
	q := r.URL.Query()
	if !sw.bindQuery(w, r, q, "user_id", true, &params.UserID) ||
		!sw.bindQuery(w, r, q, "q", true, &params.Q) ||
		!sw.bindQuery(w, r, q, "limit", false, &params.Limit) {
		return
	}
	sw.handler.GetHistorySuggestions(w, r, params)
}

func (sw *serverWrapper) UpdateHistory(w http.ResponseWriter, r *http.Request) {
	id, params, ok := sw.historyTarget(w, r)
	if !ok {
		return
	}
	sw.handler.UpdateHistory(w, r, id, params)
}

func (sw *serverWrapper) UseHistory(w http.ResponseWriter, r *http.Request) {
	id, params, ok := sw.historyTarget(w, r)
	if !ok {
		return
	}
	sw.handler.UseHistory(w, r, id, params)
}

func (sw *serverWrapper) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, params, ok := sw.historyTarget(w, r)
	if !ok {
		return
	}
	sw.handler.DeleteHistory(w, r, id, params)
}

func (sw *serverWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	if !sw.bindQuery(w, r, r.URL.Query(), "period", false, &params.Period) {
		return
	}
	sw.handler.GetUsage(w, r, params)
}

func (sw *serverWrapper) userParams(w http.ResponseWriter, r *http.Request) (UserParams, bool) {
	var params UserParams
	ok := sw.bindQuery(w, r, r.URL.Query(), "user_id", true, &params.UserID)
	return params, ok
}

func (sw *serverWrapper) historyTarget(w http.ResponseWriter, r *http.Request) (int64, UserParams, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		sw.errorHandler(w, r, &ParamError{ParamName: "id", Err: err})
		return 0, UserParams{}, false
	}
	params, ok := sw.userParams(w, r)
	return id, params, ok
}

func (sw *serverWrapper) bindQuery(
	w http.ResponseWriter, r *http.Request, q url.Values, name string, required bool, dest any,
) bool {
	if err := runtime.BindQueryParameter("form", true, required, name, q, dest); err != nil {
		sw.errorHandler(w, r, &ParamError{ParamName: name, Err: err})
		return false
	}
	return true
}
