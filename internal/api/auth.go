// auth.go: login, token issuance and the bearer-token middleware.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/errors"
)

const userContextKey = "obralens_user"

func (c *Controller) initAuthRoutes() {
	c.Group.POST("/auth/login", c.Login)
	c.Group.GET("/auth/me", c.Me, c.authMiddleware)
}

// LoginRequest is the login credentials payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the account it belongs to.
type LoginResponse struct {
	Token   string            `json:"token"`
	Usuario datastore.Usuario `json:"usuario"`
}

// Login verifies credentials and issues a signed bearer token.
func (c *Controller) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Email == "" || req.Password == "" {
		return c.HandleError(ctx, errors.ValidationError("email y password son obligatorios"),
			"email y password son obligatorios", http.StatusBadRequest)
	}

	user, err := c.DS.GetUsuarioByEmail(req.Email)
	if err != nil || !user.Activo {
		// Same response for unknown account and bad password.
		return c.HandleError(ctx, nil, "credenciales inválidas", http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.HandleError(ctx, nil, "credenciales inválidas", http.StatusUnauthorized)
	}

	ttl := c.Settings.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"rol":   user.Rol,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(c.Settings.Auth.JWTSecret))
	if err != nil {
		return c.HandleError(ctx, err, "no se pudo emitir el token", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Usuario: user})
}

// Me returns the account behind the presented token.
func (c *Controller) Me(ctx echo.Context) error {
	user, ok := ctx.Get(userContextKey).(datastore.Usuario)
	if !ok {
		return c.HandleError(ctx, nil, "no autenticado", http.StatusUnauthorized)
	}
	return ctx.JSON(http.StatusOK, user)
}

// jwtMiddleware validates the Authorization bearer token and loads the
// account into the request context.
func (c *Controller) jwtMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenStr == "" {
				return c.HandleError(ctx, nil, "token requerido", http.StatusUnauthorized)
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.Newf("unexpected signing method %v", t.Header["alg"]).
						Category(errors.CategoryAuth).Build()
				}
				return []byte(c.Settings.Auth.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				return c.HandleError(ctx, err, "token inválido", http.StatusUnauthorized)
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.HandleError(ctx, nil, "token inválido", http.StatusUnauthorized)
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return c.HandleError(ctx, nil, "token inválido", http.StatusUnauthorized)
			}

			user, err := c.DS.GetUsuario(uint(sub))
			if err != nil || !user.Activo {
				return c.HandleError(ctx, nil, "cuenta no disponible", http.StatusUnauthorized)
			}

			ctx.Set(userContextKey, user)
			return next(ctx)
		}
	}
}

// currentUserID returns the authenticated account id, or 0 when the route
// runs without the auth middleware (tests).
func currentUserID(ctx echo.Context) uint {
	if user, ok := ctx.Get(userContextKey).(datastore.Usuario); ok {
		return user.ID
	}
	return 0
}

// HashPassword derives the stored bcrypt hash for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
