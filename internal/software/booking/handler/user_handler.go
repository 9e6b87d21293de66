package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/general/jwt"
	"carpool/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type registerUserRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

type recordRatingRequest struct {
	Rating float64 `json:"rating"`
}

type tokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

// ----- Handler: POST /users -----

func (handler *BookingHTTPHandler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req registerUserRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "role must be one of: PASSENGER, DRIVER, ADMIN", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.RegisterUser(ctx, ports.RegisterUserInput{Name: req.Name, Email: req.Email, Role: role})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, toUserResponse(res))
}

// ----- Handler: GET /users/{user_id} -----

func (handler *BookingHTTPHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	userID, ok := handler.pathID(ctx, w, r, "user_id")
	if !ok {
		return
	}

	res, err := handler.svc.GetUser(ctx, userID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toUserResponse(res))
}

// ----- Handler: POST /users/{user_id}/ratings -----

func (handler *BookingHTTPHandler) handleRecordRating(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	userID, ok := handler.pathID(ctx, w, r, "user_id")
	if !ok {
		return
	}
	if userID == jwt.ActorID(r) {
		handler.httpError(ctx, w, http.StatusForbidden, "users cannot rate themselves", nil)
		return
	}

	var req recordRatingRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.RecordRating(ctx, userID, req.Rating)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toUserResponse(res))
}

// ----- Handler: POST /tokens -----

// handleCreateToken mints a token for an existing user carrying the role stored for that user.
func (handler *BookingHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req tokenRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	u, err := handler.svc.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			handler.httpError(ctx, w, http.StatusNotFound, "user not found", err)
			return
		}
		handler.serviceError(ctx, w, err)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(u.ID, u.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": u.ID, "role": u.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    u.ID,
		Role:      u.Role,
	})
}
