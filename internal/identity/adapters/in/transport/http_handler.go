package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/httpserver"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/validate"
)

const maxBodySize = 64 << 10 // 64KB

// UseCases — входящие порты identity сервиса
type UseCases struct {
	Register       in.RegisterUseCase
	Login          in.LoginUseCase
	VerifyOTP      in.VerifyOTPUseCase
	ResendOTP      in.ResendOTPUseCase
	ForgotPassword in.ForgotPasswordUseCase
	ResetPassword  in.ResetPasswordUseCase
	ChangePassword in.ChangePasswordUseCase
	UpdateProfile  in.UpdateProfileUseCase
}

// HTTPHandler обрабатывает HTTP запросы identity сервиса
type HTTPHandler struct {
	uc  UseCases
	log *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(uc UseCases, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{uc: uc, log: log}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("POST /users/register", h.handleRegister)
	mux.HandleFunc("POST /users/login", h.handleLogin)
	mux.HandleFunc("POST /users/verify-otp", h.handleVerifyOTP)
	mux.HandleFunc("POST /users/resend-otp", h.handleResendOTP)
	mux.HandleFunc("POST /users/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("POST /users/reset-password", h.handleResetPassword)
	mux.HandleFunc("POST /users/change-password", authMiddleware(h.handleChangePassword))
	mux.HandleFunc("PATCH /users/me", authMiddleware(h.handleUpdateProfile))

	h.log.Info(logger.Entry{
		Action:  "http_routes_registered",
		Message: "identity routes registered",
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	reg, err := req.registration()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "dateofbirth must be a valid date", "validation")
		return
	}

	res, err := h.uc.Register.Execute(r.Context(), in.RegisterInput{Registration: reg, Password: req.Password})
	if err != nil {
		h.handleUseCaseError(w, r, "register", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, res)
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.uc.Login.Execute(r.Context(), in.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.handleUseCaseError(w, r, "login", err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.uc.VerifyOTP.Execute(r.Context(), in.VerifyOTPInput{Email: req.Email, OTP: req.OTP})
	if err != nil {
		h.handleUseCaseError(w, r, "verify_otp", err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	h.handleEmailOnly(w, r, "resend_otp", h.uc.ResendOTP.Execute)
}

func (h *HTTPHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.handleEmailOnly(w, r, "forgot_password", h.uc.ForgotPassword.Execute)
}

func (h *HTTPHandler) handleEmailOnly(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	execute func(context.Context, in.EmailInput) (*in.StatusOutput, error),
) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := execute(r.Context(), in.EmailInput{Email: req.Email})
	if err != nil {
		h.handleUseCaseError(w, r, action, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.uc.ResetPassword.Execute(r.Context(), in.ResetPasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "reset_password", err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.uc.ChangePassword.Execute(r.Context(), in.ChangePasswordInput{
		Principal:   p,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "change_password", err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "dateofbirth must be a valid date", "validation")
		return
	}
	res, err := h.uc.UpdateProfile.Execute(r.Context(), in.UpdateProfileInput{Principal: p, Patch: patch})
	if err != nil {
		h.handleUseCaseError(w, r, "update_profile", err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// principal достает principal, положенный auth middleware
func (h *HTTPHandler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthorized", "unauthenticated")
		return auth.Principal{}, false
	}
	return p, true
}

// decode читает JSON тело и проверяет его тегами validate
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, "empty request body", "")
			return false
		}
		h.log.Warn(logger.Entry{
			Action:    "parse_request_failed",
			Message:   err.Error(),
			RequestID: httpserver.RequestID(r.Context()),
		})
		h.respondError(w, http.StatusBadRequest, "invalid request format", "")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
		return false
	}
	return true
}

// handleUseCaseError переводит ошибки домена в HTTP статусы.
// Ошибки входа и OTP здесь означают провал аутентификации, поэтому 401.
func (h *HTTPHandler) handleUseCaseError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrExpired):
		h.respondError(w, http.StatusUnauthorized, err.Error(), "unauthenticated")
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, http.StatusUnauthorized, err.Error(), "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, domain.ErrConflict):
		h.respondError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, domain.ErrInvalidState):
		h.respondError(w, http.StatusConflict, err.Error(), "invalid_state")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, validate.ErrInvalid):
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
	default:
		h.log.Error(logger.Entry{
			Action:    action + "_failed",
			Message:   err.Error(),
			RequestID: httpserver.RequestID(r.Context()),
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		h.respondError(w, http.StatusInternalServerError, "internal server error", "internal")
	}
}

// respondJSON отправляет JSON ответ
func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(logger.Entry{
			Action:  "encode_response_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
