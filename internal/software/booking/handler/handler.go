package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"carpool/internal/domain/apperr"
	"carpool/internal/domain/user"
	"carpool/internal/general/jwt"
	"carpool/internal/general/logger"
	"carpool/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	maxBodySize    = 1 << 20 // 1 MiB
	requestTimeout = 5 * time.Second
)

// BookingHTTPHandler adapts HTTP requests to the ReservationService.
type BookingHTTPHandler struct {
	svc      ports.ReservationService
	logger   *logger.Logger
	auth     *jwt.Manager
	validate *validator.Validate
}

// NewBookingHTTPHandler wires an HTTP handler around the ReservationService.
func NewBookingHTTPHandler(svc ports.ReservationService, logger *logger.Logger, auth *jwt.Manager) *BookingHTTPHandler {
	return &BookingHTTPHandler{svc: svc, logger: logger, auth: auth, validate: validator.New()}
}

// RegisterRoutes mounts ride, booking and user endpoints on the provided mux.
func (handler *BookingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	anyone := jwt.AuthMiddlewareFunc(handler.auth)
	drivers := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleAdmin)
	passengers := jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger)

	// rides
	mux.HandleFunc("POST /rides", drivers(handler.handleCreateRide))
	mux.HandleFunc("GET /rides", handler.handleListActiveRides)
	mux.HandleFunc("GET /rides/search", handler.handleSearchRides)
	mux.HandleFunc("GET /rides/{ride_id}", handler.handleGetRide)
	mux.HandleFunc("PUT /rides/{ride_id}/status", anyone(handler.handleUpdateRideStatus))
	mux.HandleFunc("DELETE /rides/{ride_id}", anyone(handler.handleDeleteRide))
	mux.HandleFunc("GET /rides/{ride_id}/bookings", anyone(handler.handleListRideBookings))
	mux.HandleFunc("GET /drivers/{driver_id}/rides", anyone(handler.handleListDriverRides))

	// bookings
	mux.HandleFunc("POST /bookings", passengers(handler.handleCreateBooking))
	mux.HandleFunc("GET /bookings/{booking_id}", anyone(handler.handleGetBooking))
	mux.HandleFunc("PUT /bookings/{booking_id}/status", anyone(handler.handleUpdateBookingStatus))
	mux.HandleFunc("GET /passengers/{passenger_id}/bookings", anyone(handler.handleListPassengerBookings))
	mux.HandleFunc("GET /drivers/{driver_id}/bookings", anyone(handler.handleListDriverBookings))

	// users
	mux.HandleFunc("POST /users", handler.handleRegisterUser)
	mux.HandleFunc("GET /users/{user_id}", anyone(handler.handleGetUser))
	mux.HandleFunc("POST /users/{user_id}/ratings", anyone(handler.handleRecordRating))
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)

	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- general helpers -----

type errorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Details []errorDetail `json:"details,omitempty"`
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *BookingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *BookingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	handler.writeError(ctx, w, status, errorBody{Error: msg}, err)
}

func (handler *BookingHTTPHandler) writeError(ctx context.Context, w http.ResponseWriter, status int, body errorBody, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}

	if status >= 500 {
		handler.logger.Error(ctx, action, body.Error, err, nil)
	} else {
		handler.logger.Debug(ctx, action, body.Error, map[string]any{"status": status})
	}
	handler.jsonResponse(ctx, w, status, body)
}

// serviceError renders a service failure. Domain errors keep their message and kind;
// anything else is an internal error and its text is not leaked.
func (handler *BookingHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	kind, ok := apperr.KindOf(err)
	switch {
	case ok:
		handler.writeError(ctx, w, kind.HTTPStatus(), errorBody{Error: err.Error(), Code: string(kind)}, err)
	case errors.Is(err, context.DeadlineExceeded):
		handler.httpError(ctx, w, http.StatusGatewayTimeout, "request timed out", err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

// decodeJSON reads one strict JSON object into dst and runs its validate tags.
// It writes the error response itself and reports whether the handler may continue.
func (handler *BookingHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
		case errors.Is(err, io.EOF):
			handler.httpError(ctx, w, http.StatusBadRequest, "request body is empty", err)
		default:
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		}
		return false
	}
	if dec.More() {
		handler.httpError(ctx, w, http.StatusBadRequest, "body must contain a single JSON object", nil)
		return false
	}

	if err := handler.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]errorDetail, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, errorDetail{Field: fe.Field(), Message: validationMessage(fe)})
			}
			handler.writeError(ctx, w, http.StatusBadRequest, errorBody{
				Error:   "validation failed",
				Code:    string(apperr.KindValidation),
				Details: details,
			}, err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// pathID returns a trimmed path parameter or writes a 400.
func (handler *BookingHTTPHandler) pathID(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, name+" is required", nil)
		return "", false
	}
	return id, true
}

// requireSelf rejects callers acting on another user's resources.
func (handler *BookingHTTPHandler) requireSelf(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) bool {
	if c := jwt.RequireClaims(r); c != nil && (c.Subject == userID || c.Role == user.RoleAdmin) {
		return true
	}
	handler.httpError(ctx, w, http.StatusForbidden, "cannot access another user's data", nil)
	return false
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *BookingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// ----- Handler: GET /health -----

func (handler *BookingHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
