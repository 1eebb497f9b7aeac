package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/api/transport"
	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/httpcontext"
	usersUC "github.com/fastygo/accounts/usecase/users"
)

type UserHandler struct {
	baseHandler
	svc *usersUC.Service
}

func NewUserHandler(svc *usersUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
	}
}

// @Summary List users
// @Tags users
// @Success 200 {object} transport.Envelope
// @Router /api/v1/users [get]
func (h *UserHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	users, err := h.svc.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(
		transport.NewUserList(users),
		transport.ListMeta{Count: len(users)},
	))
}

// @Summary Create user on behalf of the caller
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} transport.Envelope
// @Router /api/v1/users [post]
func (h *UserHandler) Create(ctx *fasthttp.RequestCtx) {
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

	created, err := h.svc.Create(stdCtx, input, actor(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewUserResponse(created))
}

// @Summary Get user
// @Tags users
// @Success 200 {object} transport.Envelope
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.svc.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewUserResponse(user))
}

// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) Update(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}
	var req transport.UpdateRequest
	if !h.decode(ctx, &req) {
		return
	}
	patch, err := req.ToDomain()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.svc.Update(stdCtx, id, patch, actor(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewUserResponse(updated))
}

// @Summary Delete user
// @Tags users
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.svc.Delete(stdCtx, id, actor(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !removed {
		h.respondError(ctx, domain.ErrUserNotFound)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

func actor(ctx *fasthttp.RequestCtx) string {
	if id, ok := httpcontext.UserID(ctx); ok {
		return id
	}
	return domain.SystemActor
}
