package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/utils"
)

// InviteHandler serves invite routes for every resource type. Routes for a
// resource are built with the resource type bound.
type InviteHandler struct {
	inviteService *services.InviteService
}

func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

type inviteTargetRequest struct {
	UserID         uint64                `json:"user_id"`
	Email          string                `json:"email" binding:"omitempty,max=320"`
	Role           models.Role           `json:"role"`
	SecondaryRoles models.SecondaryRoles `json:"secondary_roles"`
	Message        *string               `json:"message" binding:"omitempty,max=1024"`
}

func (r inviteTargetRequest) target() services.InviteTarget {
	return services.InviteTarget{
		UserID:         r.UserID,
		Email:          r.Email,
		Role:           r.Role,
		SecondaryRoles: r.SecondaryRoles,
		Message:        r.Message,
	}
}

// resourceID reads the :id parameter; server invites have none.
func resourceID(c *gin.Context, resourceType models.ResourceType) (uint64, bool) {
	if resourceType == models.ResourceServer {
		return 0, true
	}
	return paramID(c, "id")
}

// Create invites one target to the resource
func (h *InviteHandler) Create(resourceType models.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := resourceID(c, resourceType)
		if !ok {
			return
		}

		var req inviteTargetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.inviteService.Create(c.Request.Context(), services.CreateInviteInput{
			ResourceType: resourceType,
			ResourceID:   id,
			InviterID:    userID,
			Target:       req.target(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, dto.ToInviteDTO(*result.Invite, result.EmailQueued))
	}
}

// BatchCreate invites several targets to the resource
func (h *InviteHandler) BatchCreate(resourceType models.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := resourceID(c, resourceType)
		if !ok {
			return
		}

		type BatchRequest struct {
			Targets []inviteTargetRequest `json:"targets" binding:"required,min=1,dive"`
		}

		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}

		results, err := h.inviteService.BatchCreate(c.Request.Context(), services.BatchCreateInput{
			ResourceType: resourceType,
			ResourceID:   id,
			InviterID:    userID,
			Targets:      lo.Map(req.Targets, func(t inviteTargetRequest, _ int) services.InviteTarget { return t.target() }),
		})
		invites := lo.Map(results, func(r services.CreateInviteResult, _ int) dto.InviteDTO {
			return dto.ToInviteDTO(*r.Invite, r.EmailQueued)
		})
		if err != nil {
			if len(invites) == 0 {
				respondError(c, err)
				return
			}
			// Some invites were committed before the failure.
			_ = c.Error(err)
			c.JSON(apierrors.StatusFor(err), gin.H{
				"invites": invites,
				"error":   apierrors.NewAPIError(apierrors.ErrCodeOperationFailed, errorMessage(err)),
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"invites": invites})
	}
}

// Resend sends an invite's email again
func (h *InviteHandler) Resend(resourceType models.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := resourceID(c, resourceType)
		if !ok {
			return
		}
		inviteID, ok := paramID(c, "invite_id")
		if !ok {
			return
		}

		queued, err := h.inviteService.Resend(c.Request.Context(), services.ResendInviteInput{
			InviteID:     inviteID,
			ResourceType: resourceType,
			ResourceID:   id,
			ActorID:      userID,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"email_queued": queued})
	}
}

// Cancel withdraws a pending invite
func (h *InviteHandler) Cancel(resourceType models.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := resourceID(c, resourceType)
		if !ok {
			return
		}
		inviteID, ok := paramID(c, "invite_id")
		if !ok {
			return
		}

		err := h.inviteService.Cancel(c.Request.Context(), services.CancelInviteInput{
			InviteID:     inviteID,
			ResourceType: resourceType,
			ResourceID:   id,
			ActorID:      userID,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Invite canceled successfully"})
	}
}

// Finalize accepts or declines an invite by token
func (h *InviteHandler) Finalize(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type FinalizeRequest struct {
		ResourceType           models.ResourceType `json:"resource_type" binding:"required,oneof=server project workspace"`
		Token                  string              `json:"token" binding:"required"`
		Accept                 *bool               `json:"accept" binding:"required"`
		AllowAttachingNewEmail bool                `json:"add_new_email"`
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	err := h.inviteService.Finalize(c.Request.Context(), services.FinalizeInviteInput{
		Token:                  req.Token,
		UserID:                 userID,
		Accept:                 *req.Accept,
		ResourceType:           req.ResourceType,
		AllowAttachingNewEmail: req.AllowAttachingNewEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Invite declined"
	if *req.Accept {
		message = "Invite accepted"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// ListPendingWorkspaceInvites returns a page of a workspace's pending invites
func (h *InviteHandler) ListPendingWorkspaceInvites(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	pagination := utils.GetPaginationParams(c)
	invites, total, err := h.inviteService.PendingWorkspaceCollaborators(c.Request.Context(), workspaceID, services.PendingInviteQuery{
		Search:     c.Query("search"),
		Pagination: pagination,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PendingInviteListResponse[services.PendingWorkspaceCollaborator]{
		Invites:    invites,
		Pagination: pagination.Response(total),
	})
}

// ListMyWorkspaceInvites returns the caller's pending workspace invites
func (h *InviteHandler) ListMyWorkspaceInvites(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	invites, err := h.inviteService.UserPendingWorkspaceInvites(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// GetMyWorkspaceInvite returns the caller's invite to one workspace, or the
// invite matching the token query parameter
func (h *InviteHandler) GetMyWorkspaceInvite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	invite, err := h.inviteService.UserPendingWorkspaceInvite(c.Request.Context(), userID, workspaceID, c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invite)
}

// errorMessage hides infrastructure errors from clients.
func errorMessage(err error) string {
	var domainErr *apierrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	return "Internal server error"
}
