package fakebackend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/internal/errors"
	"github.com/rs/zerolog/log"
)

// writeError maps store errors onto the status codes and detail strings of
// the real backend.
func writeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, errors.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		abortDetail(c, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, errors.ErrInactiveUser):
		abortDetail(c, http.StatusForbidden, "Inactive user")
	case errors.Is(err, errors.ErrNoActiveMembership):
		abortDetail(c, http.StatusForbidden, "User has no active organization memberships")
	case errors.Is(err, errors.ErrEmailTaken):
		abortDetail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, errors.ErrSlugTaken):
		abortDetail(c, http.StatusBadRequest, "Organization slug already taken")
	case errors.Is(err, errors.ErrInvalidRefreshToken):
		abortDetail(c, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, errors.ErrRefreshTokenExpired):
		abortDetail(c, http.StatusUnauthorized, "Refresh token expired")
	case errors.Is(err, errors.ErrUserNotFound):
		abortDetail(c, http.StatusUnauthorized, "User not found")
	case errors.Is(err, errors.ErrForbidden):
		abortDetail(c, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, errors.ErrAlreadyMember):
		abortDetail(c, http.StatusBadRequest, "User is already a member")
	case errors.Is(err, errors.ErrUnavailable):
		abortDetail(c, http.StatusBadRequest, "Space is not available")
	case errors.Is(err, errors.ErrValidation):
		abortDetail(c, http.StatusUnprocessableEntity, strings.TrimSuffix(err.Error(), ": "+errors.ErrValidation.Error()))
	case errors.Is(err, errors.ErrNotFound):
		abortDetail(c, http.StatusNotFound, notFound)
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("fakebackend: unhandled error")
		abortDetail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bind decodes the JSON body, answering 422 like a schema validation failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "id must be an integer")
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (skip, limit int, ok bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		abortDetail(c, http.StatusUnprocessableEntity, "skip must be a non-negative integer")
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		abortDetail(c, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
		return 0, 0, false
	}
	return skip, limit, true
}

func caller(c *gin.Context) (userID, tenantID int64) {
	return c.GetInt64(ctxUserID), c.GetInt64(ctxTenantID)
}

func (b *Backend) register(c *gin.Context) {
	var req apimodel.RegisterRequest
	if !bind(c, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.OrganizationName == "" || req.OrganizationSlug == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "email, password, organization_name and organization_slug are required")
		return
	}

	u, orgID, err := b.store.register(req)
	if err != nil {
		writeError(c, err, "")
		return
	}
	tokens, err := b.issue(u.ID, orgID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, tokens)
}

func (b *Backend) login(c *gin.Context) {
	var req apimodel.LoginRequest
	if !bind(c, &req) {
		return
	}

	u, orgID, err := b.store.authenticate(req.Email, req.Password)
	if err != nil {
		writeError(c, err, "")
		return
	}
	tokens, err := b.issue(u.ID, orgID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// refresh rotates the refresh token: the presented one is revoked.
func (b *Backend) refresh(c *gin.Context) {
	var req apimodel.RefreshRequest
	if !bind(c, &req) {
		return
	}

	userID, orgID, err := b.store.rotateRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(c, err, "")
		return
	}
	tokens, err := b.issue(userID, orgID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (b *Backend) me(c *gin.Context) {
	userID, _ := caller(c)
	u, err := b.store.user(userID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (b *Backend) listOrgs(c *gin.Context) {
	userID, _ := caller(c)
	c.JSON(http.StatusOK, b.store.membershipsOf(userID))
}

func (b *Backend) createOrg(c *gin.Context) {
	var req apimodel.CreateOrganizationRequest
	if !bind(c, &req) {
		return
	}
	userID, _ := caller(c)
	m, err := b.store.createOrg(userID, req)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (b *Backend) getOrgBySlug(c *gin.Context) {
	userID, _ := caller(c)
	org, err := b.store.memberOrgBySlug(userID, c.Param("slug"))
	if err != nil {
		writeError(c, err, "Organization not found")
		return
	}
	c.JSON(http.StatusOK, org)
}

// inviteUser is mounted on /orgs/:slug/invite because gin cannot hold two
// different wildcard names at one level; the segment is the numeric org id.
func (b *Backend) inviteUser(c *gin.Context) {
	orgID, err := strconv.ParseInt(c.Param("slug"), 10, 64)
	if err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "org_id must be an integer")
		return
	}
	var req apimodel.InviteRequest
	if !bind(c, &req) {
		return
	}
	userID, _ := caller(c)
	added, err := b.store.invite(userID, orgID, req)
	if err != nil {
		writeError(c, err, "Organization not found")
		return
	}
	msg := "Invitation sent (simulated)"
	if added {
		msg = "User added to organization"
	}
	c.JSON(http.StatusOK, apimodel.InviteResponse{Message: msg})
}

func (b *Backend) listSpaces(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	_, tenantID := caller(c)
	c.JSON(http.StatusOK, b.store.listSpaces(tenantID, skip, limit))
}

func (b *Backend) createSpace(c *gin.Context) {
	var req apimodel.CreateSpaceRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "name is required")
		return
	}
	_, tenantID := caller(c)
	c.JSON(http.StatusCreated, b.store.createSpace(tenantID, req))
}

func (b *Backend) getSpace(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	_, tenantID := caller(c)
	sp, err := b.store.space(tenantID, id)
	if err != nil {
		writeError(c, err, "Space not found")
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (b *Backend) updateSpace(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req apimodel.UpdateSpaceRequest
	if !bind(c, &req) {
		return
	}
	_, tenantID := caller(c)
	sp, err := b.store.updateSpace(tenantID, id, req)
	if err != nil {
		writeError(c, err, "Space not found")
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (b *Backend) deleteSpace(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	_, tenantID := caller(c)
	if err := b.store.deleteSpace(tenantID, id); err != nil {
		writeError(c, err, "Space not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (b *Backend) listReservations(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	userID, tenantID := caller(c)
	c.JSON(http.StatusOK, b.store.listReservations(tenantID, userID, skip, limit))
}

func (b *Backend) createReservation(c *gin.Context) {
	var req apimodel.CreateReservationRequest
	if !bind(c, &req) {
		return
	}
	userID, tenantID := caller(c)
	r, err := b.store.createReservation(tenantID, userID, req)
	if err != nil {
		writeError(c, err, "Space not found")
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (b *Backend) getReservation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, tenantID := caller(c)
	r, err := b.store.reservation(tenantID, userID, id)
	if err != nil {
		writeError(c, err, "Reservation not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (b *Backend) updateReservation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req apimodel.UpdateReservationRequest
	if !bind(c, &req) {
		return
	}
	userID, tenantID := caller(c)
	r, err := b.store.updateReservation(tenantID, userID, id, req)
	if err != nil {
		writeError(c, err, "Reservation not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (b *Backend) cancelReservation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, tenantID := caller(c)
	if err := b.store.cancelReservation(tenantID, userID, id); err != nil {
		writeError(c, err, "Reservation not found")
		return
	}
	c.Status(http.StatusNoContent)
}
