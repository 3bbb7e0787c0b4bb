package controllers

import (
	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/gofiber/fiber/v3"
)

type ComposeController struct {
	validator domain.ComposeCredentialValidator
}

type ComposeControllerDependencies struct {
	Validator domain.ComposeCredentialValidator
}

func NewComposeController(deps ComposeControllerDependencies) *ComposeController {
	return &ComposeController{
		validator: deps.Validator,
	}
}

type ComposeFile struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Path     string `json:"path"`
}

type CheckCredentialsRequest struct {
	ComposeFile *ComposeFile      `json:"compose_file"`
	Env         map[string]string `json:"env"`
}

type CheckCredentialsResponse struct {
	Valid        bool                        `json:"valid"`
	Requirements []domain.ServiceRequirement `json:"requirements"`
	Unmet        []domain.UnmetRequirement   `json:"unmet,omitempty"`
	Errors       map[string][]string         `json:"errors,omitempty"`
}

// CheckCredentials reports whether the account can pull every image of the
// uploaded compose file. Content is base64 unless another encoding is given.
func (ctl *ComposeController) CheckCredentials(c fiber.Ctx) error {
	var req CheckCredentialsRequest

	if err := c.Bind().Body(&req); err != nil {
		return RenderError(c, fiber.NewError(fiber.StatusBadRequest, "Invalid request body"))
	}

	if req.ComposeFile == nil {
		return RenderError(c, fiber.NewError(fiber.StatusBadRequest, "param is missing or the value is empty: compose_file"))
	}

	encoding := domain.DescriptorEncoding(req.ComposeFile.Encoding)
	if encoding == "" {
		encoding = domain.DescriptorEncodingBase64
	}

	result, err := ctl.validator.Validate(c.Context(), accountID(c), domain.ComposeDescriptor{
		Content:  req.ComposeFile.Content,
		Encoding: encoding,
		Path:     req.ComposeFile.Path,
		Env:      req.Env,
	})
	if err != nil {
		return RenderError(c, err)
	}

	if !result.Satisfied() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(CheckCredentialsResponse{
			Valid:        false,
			Requirements: result.Requirements,
			Unmet:        result.Unmet,
			Errors:       map[string][]string{"credentials": result.Messages()},
		})
	}

	return c.JSON(CheckCredentialsResponse{
		Valid:        true,
		Requirements: result.Requirements,
	})
}
