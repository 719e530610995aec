package oauth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// platformParam lee {platform} de la ruta. Un nombre desconocido es
// UnsupportedPlatform, igual que uno conocido pero sin configurar.
func platformParam(r *http.Request) (platform.Platform, error) {
	raw := chi.URLParam(r, "platform")
	p, err := platform.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", oauth.ErrUnsupportedPlatform, raw)
	}
	return p, nil
}

// bearerToken devuelve el token de "Authorization: Bearer x" o "".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
