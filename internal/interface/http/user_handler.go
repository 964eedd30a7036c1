package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/pkg/response"
	"github.com/oksasatya/go-ddd-user-management/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,username"`
	Password string `json:"password" binding:"required,pwd"`
}

type updateUserRequest struct {
	Email  *string `json:"email" binding:"omitempty,email"`
	Name   *string `json:"name" binding:"omitempty,username"`
	Status *string `json:"status" binding:"omitempty,userstatus"`
}

type changePasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

type listUsersQuery struct {
	Page   int    `form:"page" binding:"gte=0"`
	Size   int    `form:"size" binding:"gte=0"`
	Status string `form:"status" binding:"omitempty,userstatus"`
	Search string `form:"search" binding:"max=100"`
}

type searchUsersQuery struct {
	Q    string `form:"q" binding:"required,max=100"`
	Size int    `form:"size" binding:"gte=0"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:        u.ID().String(),
		Email:     u.Email().String(),
		Name:      u.Name(),
		Status:    u.Status().String(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func toUserResponses(users []*entity.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), userapp.CreateUserInput{Email: req.Email, Name: req.Name, Password: req.Password})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.ListUsers(c.Request.Context(), userapp.ListUsersInput{Page: q.Page, Size: q.Size, Status: q.Status, Search: q.Search})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(res.Items), "users", response.NewPageMeta(res.Page, res.Size, res.Total))
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	users, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(users), "users", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.Email == nil && req.Name == nil && req.Status == nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"payload": "nothing to update"})
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), userapp.UpdateUserInput{Email: req.Email, Name: req.Name, Status: req.Status})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Activate(c *gin.Context) {
	u, err := h.Svc.ActivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user activated", nil)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	u, err := h.Svc.DeactivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user deactivated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	u, err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user deleted", nil)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if _, err := h.Svc.ChangePassword(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"password_changed": true}, "password changed", nil)
}

func (h *UserHandler) Purge(c *gin.Context) {
	if err := h.Svc.PurgeUser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps domain errors onto HTTP statuses. Anything unrecognised is a 500
// and its text is not sent to the client.
func (h *UserHandler) fail(c *gin.Context, err error) {
	var (
		verr *domainerr.ValidationError
		serr *domainerr.IllegalStateError
	)
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{verr.Field: verr.Reason})
	case errors.Is(err, domainerr.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.As(err, &serr):
		response.Error[any](c, http.StatusConflict, "illegal state transition", serr.Error())
	case errors.Is(err, domainerr.ErrConflict):
		response.Error[any](c, http.StatusConflict, "email already in use", nil)
	default:
		h.Logger.WithError(err).WithField("request_id", c.GetString(response.RequestIDKey)).Error("user request failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
