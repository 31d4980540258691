package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aktivo-app/aktivo-backend/internal/service"
	"github.com/aktivo-app/aktivo-backend/internal/util"
)

type ResetHandler struct {
	resets *service.ResetService
}

func RegisterPasswordReset(e *echo.Echo, resets *service.ResetService) {
	handler := &ResetHandler{resets: resets}

	group := e.Group("/api/v1/auth/password-reset")
	group.POST("/request", handler.requestReset)
	group.POST("/verify", handler.verifyCode)
	group.POST("/confirm", handler.confirmReset)
}

func (h *ResetHandler) requestReset(c echo.Context) error {
	var req ResetRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email is required"))
	}

	result, err := h.resets.RequestReset(c.Request().Context(), req.Email)
	if err != nil {
		var rateLimited *service.RateLimitedError
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, util.Error("a valid email is required"))
		case errors.As(err, &rateLimited):
			return c.JSON(http.StatusTooManyRequests, util.Envelope{
				"error":       "a reset code was sent recently, please wait before requesting another",
				"retry_after": int(rateLimited.RetryAfter.Round(time.Second).Seconds()),
			})
		case errors.Is(err, service.ErrResetRateLimited):
			return c.JSON(http.StatusTooManyRequests, util.Error("a reset code was sent recently, please wait before requesting another"))
		case errors.Is(err, service.ErrDeliveryFailed):
			return c.JSON(http.StatusServiceUnavailable, util.Error("could not send the reset code, please try again"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not start password reset"))
		}
	}

	return c.JSON(http.StatusOK, ResetRequestResponse{
		OTPID:     result.OTPID.String(),
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *ResetHandler) verifyCode(c echo.Context) error {
	var req ResetVerifyBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.OTPID) == "" || strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("otp_id, code and email are required"))
	}

	result, err := h.resets.VerifyCode(c.Request().Context(), req.OTPID, req.Code, req.Email)
	if err != nil {
		var mismatch *service.OTPMismatchError
		switch {
		case errors.As(err, &mismatch):
			return c.JSON(http.StatusBadRequest, util.Envelope{
				"error":         "invalid or expired code",
				"attempts_left": mismatch.AttemptsLeft,
			})
		case errors.Is(err, service.ErrTooManyAttempts):
			return c.JSON(http.StatusTooManyRequests, util.Error("too many incorrect attempts, request a new code"))
		case errors.Is(err, service.ErrOTPInvalidOrExpired):
			return c.JSON(http.StatusBadRequest, util.Error("invalid or expired code"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not verify the code"))
		}
	}

	return c.JSON(http.StatusOK, ResetVerifyResponse{
		ResetToken:     result.ResetToken,
		TokenExpiresAt: result.TokenExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *ResetHandler) confirmReset(c echo.Context) error {
	var req ResetConfirmBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Token) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email, token and password are required"))
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return c.JSON(http.StatusBadRequest, util.Error("passwords do not match"))
	}

	if err := h.resets.ResetPassword(c.Request().Context(), req.Email, req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordPolicy):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrInvalidOrExpiredToken):
			return c.JSON(http.StatusBadRequest, util.Error("invalid or expired reset token"))
		case errors.Is(err, service.ErrCredentialUpdateFailed):
			return c.JSON(http.StatusInternalServerError, util.Error("could not update the password, please try again"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not update the password"))
		}
	}

	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
