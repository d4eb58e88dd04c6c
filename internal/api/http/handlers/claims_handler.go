package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bongitrade/policy-service/internal/api/dto"
	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/service"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// ClaimsHandler manages claim submission and review.
type ClaimsHandler struct {
	service          *service.ClaimService
	maxDocumentBytes int64
}

// NewClaimsHandler constructs handler.
func NewClaimsHandler(claimService *service.ClaimService, maxDocumentBytes int64) *ClaimsHandler {
	return &ClaimsHandler{service: claimService, maxDocumentBytes: maxDocumentBytes}
}

// SubmitClaim POST /claims. Multipart fields: policy_id, reason, documents.
func (h *ClaimsHandler) SubmitClaim(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	uploads, closeUploads, err := readDocuments(c, h.maxDocumentBytes)
	if err != nil {
		return err
	}
	defer closeUploads()

	claim, err := h.service.SubmitClaim(c.UserContext(), identity, service.SubmitClaimInput{
		PolicyID:  strings.TrimSpace(c.FormValue("policy_id")),
		Reason:    c.FormValue("reason"),
		Documents: uploads,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": claimResponse(claim)})
}

// ReviewClaim POST /claims/:id/review.
func (h *ClaimsHandler) ReviewClaim(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	var req dto.ReviewClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Approve == nil {
		return apperrors.NewValidationError("approve is required", map[string]any{"field": "approve"})
	}

	claim, err := h.service.ReviewClaim(c.UserContext(), identity, c.Params("id"), *req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponse(claim)})
}
