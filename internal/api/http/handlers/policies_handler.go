package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bongitrade/policy-service/internal/api/dto"
	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/service"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// PoliciesHandler manages policy endpoints.
type PoliciesHandler struct {
	service          *service.PolicyService
	maxDocumentBytes int64
}

// NewPoliciesHandler constructs handler.
func NewPoliciesHandler(policyService *service.PolicyService, maxDocumentBytes int64) *PoliciesHandler {
	return &PoliciesHandler{service: policyService, maxDocumentBytes: maxDocumentBytes}
}

// CreatePolicy POST /policies and /public-policy. Authentication is optional.
func (h *PoliciesHandler) CreatePolicy(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	var req dto.CreatePolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input, err := createPolicyInput(req)
	if err != nil {
		return err
	}
	policy, beneficiaries, err := h.service.CreatePolicy(c.UserContext(), identity, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreatePolicyResponse{
		ID:            policy.ID,
		PolicyNumber:  policy.PolicyNumber,
		Status:        policy.Status,
		Beneficiaries: beneficiaryResponses(beneficiaries),
	}})
}

// ListPolicies GET /policies.
func (h *PoliciesHandler) ListPolicies(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	policies, err := h.service.ListPolicies(c.UserContext(), identity, parsePolicyQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetPolicy GET /policies/:id.
func (h *PoliciesHandler) GetPolicy(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	detail, err := h.service.GetPolicyDetail(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	claims := make([]dto.ClaimResponse, 0, len(detail.Claims))
	for i := range detail.Claims {
		claims = append(claims, claimResponse(&detail.Claims[i]))
	}
	return c.JSON(fiber.Map{"data": dto.PolicyDetailResponse{
		Policy:        policyResponse(&detail.Policy),
		Beneficiaries: beneficiaryResponses(detail.Beneficiaries),
		Claims:        claims,
	}})
}

// ActivatePolicy POST /policies/:id/activate.
func (h *PoliciesHandler) ActivatePolicy(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	policy, err := h.service.ActivatePolicy(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// DeactivatePolicy POST /deactivate-policy and /policies/:id/deactivate.
// Multipart fields: policy_id (unless in the path), reason, documents.
func (h *PoliciesHandler) DeactivatePolicy(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	uploads, closeUploads, err := readDocuments(c, h.maxDocumentBytes)
	if err != nil {
		return err
	}
	defer closeUploads()

	policyID := c.Params("id")
	if policyID == "" {
		policyID = c.FormValue("policy_id")
	}
	policy, claim, err := h.service.DeactivatePolicy(c.UserContext(), identity, service.DeactivateInput{
		PolicyID:  strings.TrimSpace(policyID),
		Reason:    c.FormValue("reason"),
		Documents: uploads,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeactivationResponse{
		Policy: policyResponse(policy),
		Claim:  claimResponse(claim),
	}})
}

// SendReminders POST /reminders.
func (h *PoliciesHandler) SendReminders(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	var req dto.ReminderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.PolicyID != nil && strings.TrimSpace(*req.PolicyID) == "" {
		req.PolicyID = nil
	}

	queued, err := h.service.SendPaymentReminders(c.UserContext(), identity, req.PolicyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReminderResponse{Queued: queued}})
}

func createPolicyInput(req dto.CreatePolicyRequest) (service.CreatePolicyInput, error) {
	input := service.CreatePolicyInput{
		OwnerID:      req.OwnerID,
		PolicyType:   req.PolicyType,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
	}
	if req.PremiumAmount != nil {
		cents := int64(math.Round(*req.PremiumAmount * 100))
		input.PremiumCents = &cents
	}
	if req.StartDate != nil && strings.TrimSpace(*req.StartDate) != "" {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			return input, apperrors.NewValidationError("invalid start_date", map[string]any{"start_date": "expected YYYY-MM-DD"})
		}
		input.StartDate = &start
	}
	for _, b := range req.Beneficiaries {
		input.Beneficiaries = append(input.Beneficiaries, service.BeneficiaryInput{
			Name:     b.Name,
			Relation: b.Relation,
			IDNumber: b.IDNumber,
		})
	}
	return input, nil
}

func parseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if t, err := time.Parse(dateLayout, val); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, val)
}

func parsePolicyQuery(c *fiber.Ctx) service.ListPoliciesInput {
	input := service.ListPoliciesInput{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 20),
	}
	if status := c.Query("status"); status != "" {
		s := domain.PolicyStatus(strings.ToLower(status))
		input.Status = &s
	}
	if policyType := c.Query("policy_type"); policyType != "" {
		input.PolicyType = &policyType
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		input.OwnerID = &ownerID
	}
	return input
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
