package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	DeleteAccount(c fiber.Ctx) error
	ListAccounts(c fiber.Ctx) error
	ExportAccounts(c fiber.Ctx) error
}

type ProfileHandler struct {
	flow      businessflow.ProfileFlow
	validator *validator.Validate
}

func NewProfileHandler(flow businessflow.ProfileFlow) *ProfileHandler {
	handler := &ProfileHandler{
		flow:      flow,
		validator: validator.New(),
	}

	registerCustomValidations(handler.validator)

	return handler
}

func (h *ProfileHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProfileHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetProfile returns one account identified by kind and business email,
// both taken from query parameters
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	accountType := c.Query("type")
	businessEmail := c.Query("business_email")

	if accountType == "" || businessEmail == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "type and business_email query parameters are required", "MISSING_PARAMETERS", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/user/profile")
	defer cancel()

	res, err := h.flow.GetProfile(ctx, accountType, businessEmail)
	if err != nil {
		if businessflow.IsInvalidAccountType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account type", "INVALID_ACCOUNT_TYPE", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, notFoundMessage(err), "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Get profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get profile", "GET_PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, fiber.Map{
		"account": res.Account,
	})
}

// UpdateProfile merges submitted profile fields into the stored payload
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	ctx, cancel := h.createRequestContext(c, "/api/user/update")
	defer cancel()

	res, err := h.flow.UpdateProfile(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidAccountType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account type", "INVALID_ACCOUNT_TYPE", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, notFoundMessage(err), "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Update profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profile update failed", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, fiber.Map{
		"account": res.Account,
	})
}

// DeleteAccount permanently removes the account named in the request body
func (h *ProfileHandler) DeleteAccount(c fiber.Ctx) error {
	var req dto.DeleteAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	ctx, cancel := h.createRequestContext(c, "/api/user/delete")
	defer cancel()

	err := h.flow.DeleteAccount(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidAccountType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account type", "INVALID_ACCOUNT_TYPE", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, notFoundMessage(err), "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Delete account failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account deletion failed", "ACCOUNT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account deleted", nil)
}

// ListAccounts returns every account, partitioned by kind
func (h *ProfileHandler) ListAccounts(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/users")
	defer cancel()

	res, err := h.flow.ListAccounts(ctx)
	if err != nil {
		log.Println("List accounts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list accounts", "ACCOUNT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, fiber.Map{
		"companies":     res.Companies,
		"self_employed": res.SelfEmployed,
	})
}

// ExportAccounts streams an XLSX workbook of every account
func (h *ProfileHandler) ExportAccounts(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/users/export")
	defer cancel()

	data, err := h.flow.ExportAccounts(ctx)
	if err != nil {
		log.Println("Export accounts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export accounts", "ACCOUNT_EXPORT_FAILED", nil)
	}

	filename := fmt.Sprintf("accounts_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// notFoundMessage surfaces the flow's kind-specific message when present
func notFoundMessage(err error) string {
	var businessErr *businessflow.BusinessError
	if errors.As(err, &businessErr) && businessErr.Message != "" {
		return businessErr.Message
	}
	return "Account not found"
}

func (h *ProfileHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
