package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/api/transport"
	"github.com/fastygo/accounts/pkg/httpcontext"
	authUC "github.com/fastygo/accounts/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc       *authUC.UseCase
	tokenTTL time.Duration
}

func NewAuthHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		tokenTTL:    tokenTTL,
	}
}

type registerResponse struct {
	User    transport.UserResponse    `json:"user"`
	Session transport.SessionResponse `json:"session"`
}

// @Summary Register a user
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterRequest
	if !h.decode(ctx, &req) {
		return
	}
	input, err := req.ToDomain()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, session, err := h.uc.Register(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, registerResponse{
		User:    transport.NewUserResponse(user),
		Session: h.session(session),
	})
}

// @Summary Issue a session token
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Login(stdCtx, req.NationalID, req.Password)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.session(session))
}

func (h *AuthHandler) session(s *authUC.Session) transport.SessionResponse {
	return transport.SessionResponse{
		Token:     s.Token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
		User:      s.User,
	}
}
