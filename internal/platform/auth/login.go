package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/abaworks/aba/internal/platform/audit"
)

// ActionLoginFailed is the audit action the breach detector counts.
const ActionLoginFailed = "login_failed"

const defaultTokenTTL = 8 * time.Hour

// AuditSink is the swallowing audit logger. Satisfied by *audit.Logger.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (uuid.UUID, bool)
}

// BreachChecker runs the failed-login threshold check. Satisfied by
// *audit.Detector.
type BreachChecker interface {
	CheckFailedLogins(ctx context.Context, orgID, userID uuid.UUID) *audit.Breach
}

// LoginHandler issues HS256 tokens for the built-in password login. In jwks
// mode the identity provider owns login and this handler is not mounted.
type LoginHandler struct {
	creds      CredentialStore
	audit      AuditSink
	breach     BreachChecker
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	log        zerolog.Logger
}

func NewLoginHandler(creds CredentialStore, sink AuditSink, breach BreachChecker, signingKey []byte, issuer, audience string, log zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		creds:      creds,
		audit:      sink,
		breach:     breach,
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   defaultTokenTTL,
		log:        log,
	}
}

func (h *LoginHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *LoginHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	id, err := h.creds.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.recordFailure(ctx, c, id)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	token, expiresAt, err := h.issueToken(id)
	if err != nil {
		h.log.Error().Err(err).Msg("token signing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	h.audit.Record(ctx, audit.Entry{
		OrganizationID: &id.OrgID,
		UserID:         &id.UserID,
		Action:         "login",
		ResourceType:   "session",
		IPAddress:      c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	})

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

// recordFailure writes the failed attempt to the audit log and runs the
// breach check. Neither can turn a 401 into anything else: the detector is
// an observer.
func (h *LoginHandler) recordFailure(ctx context.Context, c echo.Context, id Identity) {
	e := audit.Entry{
		Action:       ActionLoginFailed,
		ResourceType: "session",
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
	}
	// Unknown account: the failure is still logged, just unattributed.
	if id.UserID != uuid.Nil {
		e.OrganizationID = &id.OrgID
		e.UserID = &id.UserID
	}
	h.audit.Record(ctx, e)

	if id.UserID != uuid.Nil && h.breach != nil {
		h.breach.CheckFailedLogins(ctx, id.OrgID, id.UserID)
	}
}

func (h *LoginHandler) issueToken(id Identity) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(h.tokenTTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    h.issuer,
			Audience:  jwt.ClaimStrings{h.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OrgID: id.OrgID.String(),
		Role:  string(id.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signingKey)
	return token, expiresAt, err
}
