package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/auth"
	"arremate-backend/internal/models"
	"arremate-backend/pkg/utils"
)

type contextKey string

const UserKey contextKey = "user"

// UserLookup loads the current user row for a token
type UserLookup interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token and puts the user in the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.userFromRequest(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole authenticates and then restricts access to the given roles
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			for _, role := range allowedRoles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, apperr.Forbidden("acesso restrito"))
		}))
	}
}

func (m *AuthMiddleware) userFromRequest(r *http.Request) (*models.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		// browsers cannot set headers on websocket upgrades
		if token := r.URL.Query().Get("token"); token != "" && isWebSocket(r) {
			header = "Bearer " + token
		}
	}
	if header == "" {
		return nil, apperr.Unauthorized("cabeçalho Authorization obrigatório")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperr.Unauthorized("formato de autorização inválido")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, apperr.Unauthorized("token inválido ou expirado")
	}

	// permissions and active flag come from the database, not the token
	user, err := m.users.Get(r.Context(), claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("usuário não encontrado")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("conta suspensa, contate o administrador")
	}
	return user, nil
}

func isWebSocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// UserFromContext returns the authenticated user
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return 0, false
	}
	return user.ID, true
}

// ActorFromContext is the authenticated user as recorded on ledger rows
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{UserID: user.ID, Name: user.Name}, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
