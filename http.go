package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultClaimsKey is the fiber locals key validated claims are stored under.
const DefaultClaimsKey = "claims"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type adminProfileRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthController exposes the authentication service's register and login
// endpoints.
type AuthController struct {
	auth   *CredentialAuthenticator
	logger Logger
}

// NewAuthController returns a controller over the given authenticator.
func NewAuthController(auth *CredentialAuthenticator) *AuthController {
	return &AuthController{auth: auth, logger: defLogger{}}
}

func (ct *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		ct.logger = logger
	}
	return ct
}

// RegisterRoutes mounts POST /register and POST /login.
func (ct *AuthController) RegisterRoutes(app *fiber.App) {
	app.Post("/register", ct.Register)
	app.Post("/login", ct.Login)
}

func (ct *AuthController) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	outcome, err := ct.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	if !outcome.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": outcome.FieldErrors,
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (ct *AuthController) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	token, err := ct.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	return c.SendString(token)
}

// RequireAuth validates the bearer token on every request and stashes the
// claims under claimsKey. Every failure renders the single invalid-token
// response.
func RequireAuth(signer *TokenSigner, claimsKey string) fiber.Handler {
	if claimsKey == "" {
		claimsKey = DefaultClaimsKey
	}

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return renderError(c, defLogger{}, ErrInvalidToken)
		}

		claims, err := signer.Validate(raw)
		if err != nil {
			return renderError(c, defLogger{}, err)
		}

		c.Locals(claimsKey, claims)
		c.SetUserContext(WithClaims(c.UserContext(), claims))
		return c.Next()
	}
}

// RequireAdminRole demands the administrative role claim after RequireAuth
// has run.
func RequireAdminRole(claimsKey string) fiber.Handler {
	if claimsKey == "" {
		claimsKey = DefaultClaimsKey
	}

	return func(c *fiber.Ctx) error {
		claims, _ := c.Locals(claimsKey).(*TokenClaims)
		if err := RequireAdmin(claims); err != nil {
			return renderError(c, defLogger{}, err)
		}
		return c.Next()
	}
}

// ProfileController exposes the user-management service's self-service and
// administrative endpoints.
type ProfileController struct {
	profiles  Profiles
	claimsKey string
	logger    Logger
}

// NewProfileController returns a controller over the given profile store.
func NewProfileController(profiles Profiles) *ProfileController {
	return &ProfileController{
		profiles:  profiles,
		claimsKey: DefaultClaimsKey,
		logger:    defLogger{},
	}
}

func (ct *ProfileController) WithLogger(logger Logger) *ProfileController {
	if logger != nil {
		ct.logger = logger
	}
	return ct
}

func (ct *ProfileController) WithClaimsKey(key string) *ProfileController {
	if key != "" {
		ct.claimsKey = key
	}
	return ct
}

// RegisterRoutes mounts the self-service /user endpoints and the /admin/users
// endpoints behind the given signer.
func (ct *ProfileController) RegisterRoutes(app *fiber.App, signer *TokenSigner) {
	user := app.Group("/user", RequireAuth(signer, ct.claimsKey))
	user.Get("/", ct.Me)
	user.Post("/", ct.CreateMe)
	user.Put("/", ct.UpdateMe)
	user.Delete("/", ct.DeleteMe)

	admin := app.Group("/admin/users", RequireAuth(signer, ct.claimsKey), RequireAdminRole(ct.claimsKey))
	admin.Get("/", ct.AdminList)
	admin.Post("/", ct.AdminCreate)
	admin.Put("/", ct.AdminUpdate)
	admin.Get("/:id", ct.AdminGet)
	admin.Delete("/:id", ct.AdminDelete)
}

func (ct *ProfileController) subject(c *fiber.Ctx) (uuid.UUID, error) {
	claims, _ := c.Locals(ct.claimsKey).(*TokenClaims)
	return SubjectFromClaims(claims)
}

func (ct *ProfileController) Me(c *fiber.Ctx) error {
	id, err := ct.subject(c)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	profile, err := ct.profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.JSON(profile)
}

func (ct *ProfileController) CreateMe(c *fiber.Ctx) error {
	id, err := ct.subject(c)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	created, err := ct.profiles.CreateWithID(c.UserContext(), id, req.Name, req.Email)
	if err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.JSON(created)
}

func (ct *ProfileController) UpdateMe(c *fiber.Ctx) error {
	id, err := ct.subject(c)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	if _, err := ct.profiles.Update(c.UserContext(), id, req.Name, req.Email); err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *ProfileController) DeleteMe(c *fiber.Ctx) error {
	id, err := ct.subject(c)
	if err != nil {
		return renderError(c, ct.logger, err)
	}

	if err := ct.profiles.Delete(c.UserContext(), id); err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *ProfileController) AdminList(c *fiber.Ctx) error {
	records, err := ct.profiles.List(c.UserContext())
	if err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.JSON(records)
}

func (ct *ProfileController) AdminGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return renderError(c, ct.logger, newBadInput("id must be a valid identifier"))
	}

	profile, err := ct.profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.JSON(profile)
}

func (ct *ProfileController) AdminCreate(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	created, err := ct.profiles.Create(c.UserContext(), req.Name, req.Email)
	if err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.JSON(created)
}

func (ct *ProfileController) AdminUpdate(c *fiber.Ctx) error {
	var req adminProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, ct.logger, newBadInput("request body must be valid JSON"))
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return renderError(c, ct.logger, newBadInput("id must be a valid identifier"))
	}

	if _, err := ct.profiles.AdminUpdate(c.UserContext(), id, req.Name, req.Email); err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *ProfileController) AdminDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return renderError(c, ct.logger, newBadInput("id must be a valid identifier"))
	}

	if err := ct.profiles.Delete(c.UserContext(), id); err != nil {
		return renderError(c, ct.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// renderError translates the error taxonomy into a client response exactly
// once, at this boundary. Unclassified failures are logged in full and
// surfaced opaquely.
func renderError(c *fiber.Ctx, logger Logger, err error) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		logger.Error("unclassified handler error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	var status int
	switch rich.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		status = fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		status = fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		status = fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		status = fiber.StatusNotFound
	case goerrors.CategoryConflict:
		status = fiber.StatusConflict
	default:
		logger.Error("unclassified handler error [%s]: %s", rich.Category, rich.Message)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(status).JSON(fiber.Map{"error": rich.Message})
}

func bearerToken(header string) string {
	const scheme = "Bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}
