package controllers

import (
	"time"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

type CredentialsController struct {
	manager domain.CredentialManager
}

type CredentialsControllerDependencies struct {
	CredentialManager domain.CredentialManager
}

func NewCredentialsController(deps CredentialsControllerDependencies) *CredentialsController {
	return &CredentialsController{
		manager: deps.CredentialManager,
	}
}

type CredentialRequest struct {
	Credential *domain.CredentialInput `json:"credential"`
}

type CredentialResponse struct {
	ID          string                 `json:"id"`
	Type        domain.CredentialType  `json:"type"`
	Username    string                 `json:"username"`
	Password    string                 `json:"password"`
	RegistryURL string                 `json:"registry_url"`
	State       domain.CredentialState `json:"state"`
	Errors      map[string][]string    `json:"errors,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func newCredentialResponse(c domain.Credential) CredentialResponse {
	var errs map[string][]string
	if len(c.Errors) > 0 {
		errs = fieldErrorBody(c.Errors).Errors
	}

	return CredentialResponse{
		ID:          c.ID,
		Type:        c.Type,
		Username:    c.Username,
		Password:    c.MaskedPassword(),
		RegistryURL: c.RegistryURL,
		State:       c.State,
		Errors:      errs,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type CredentialTypesResponse struct {
	Credentials []domain.CredentialType `json:"credentials"`
}

type CheckCredentialResponse struct {
	Type   domain.CredentialType `json:"type"`
	Exists bool                  `json:"exists"`
}

func accountID(c fiber.Ctx) string {
	if accountContext, ok := domain.GetAccountContext(c.Context()); ok {
		return accountContext.AccountID
	}

	return c.Params("accountID")
}

func bindCredential(c fiber.Ctx) (domain.CredentialInput, error) {
	var req CredentialRequest

	if err := c.Bind().Body(&req); err != nil {
		return domain.CredentialInput{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Credential == nil {
		return domain.CredentialInput{}, fiber.NewError(fiber.StatusBadRequest, "param is missing or the value is empty: credential")
	}

	return *req.Credential, nil
}

// Index lists the credential types the account has configured.
func (ctl *CredentialsController) Index(c fiber.Ctx) error {
	credentialTypes, err := ctl.manager.ListTypes(c.Context(), accountID(c))
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(CredentialTypesResponse{Credentials: credentialTypes})
}

func (ctl *CredentialsController) Create(c fiber.Ctx) error {
	input, err := bindCredential(c)
	if err != nil {
		return RenderError(c, err)
	}

	credential, err := ctl.manager.Create(c.Context(), accountID(c), input)
	if err != nil {
		return RenderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newCredentialResponse(credential))
}

func (ctl *CredentialsController) Update(c fiber.Ctx) error {
	credentialType, err := domain.ParseCredentialType(c.Params("type"))
	if err != nil {
		return RenderError(c, err)
	}

	input, err := bindCredential(c)
	if err != nil {
		return RenderError(c, err)
	}

	credential, err := ctl.manager.Update(c.Context(), accountID(c), credentialType, input)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(newCredentialResponse(credential))
}

func (ctl *CredentialsController) CheckCredential(c fiber.Ctx) error {
	credentialType, err := domain.ParseCredentialType(c.Params("type"))
	if err != nil {
		return RenderError(c, err)
	}

	exists, err := ctl.manager.CheckSingle(c.Context(), accountID(c), credentialType)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(CheckCredentialResponse{Type: credentialType, Exists: exists})
}

func (ctl *CredentialsController) Activate(c fiber.Ctx) error {
	credentialType, err := domain.ParseCredentialType(c.Params("type"))
	if err != nil {
		return RenderError(c, err)
	}

	credential, err := ctl.manager.Activate(c.Context(), accountID(c), credentialType)
	if err != nil {
		return RenderError(c, err)
	}

	status := fiber.StatusOK
	if credential.State == domain.CredentialStateInvalid {
		status = fiber.StatusUnprocessableEntity
	}

	return c.Status(status).JSON(newCredentialResponse(credential))
}

func (ctl *CredentialsController) Destroy(c fiber.Ctx) error {
	credentialType, err := domain.ParseCredentialType(c.Params("type"))
	if err != nil {
		return RenderError(c, err)
	}

	if err := ctl.manager.Delete(c.Context(), accountID(c), credentialType); err != nil {
		return RenderError(c, err)
	}

	log.Debug().Str("type", credentialType.String()).Msg("Credential removed")

	return c.SendStatus(fiber.StatusNoContent)
}
