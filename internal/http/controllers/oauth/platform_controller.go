package oauth

import (
	"net/http"

	dto "github.com/dropDatabas3/socialconnect/internal/http/dto/oauth"
	"github.com/dropDatabas3/socialconnect/internal/http/helpers"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// PlatformController lista las plataformas configuradas.
type PlatformController struct {
	registry *platform.Registry
}

func NewPlatformController(reg *platform.Registry) *PlatformController {
	return &PlatformController{registry: reg}
}

// List maneja GET /oauth/platforms
func (c *PlatformController) List(w http.ResponseWriter, r *http.Request) {
	items := make([]dto.PlatformItem, 0)
	for _, p := range c.registry.Platforms() {
		cfg, err := c.registry.Lookup(p)
		if err != nil {
			continue
		}
		items = append(items, dto.PlatformItem{
			Platform:    string(p),
			RedirectURI: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Quirks:      cfg.Quirks.Names(),
		})
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"platforms": items})
}
