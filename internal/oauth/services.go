package oauth

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Deps contiene las dependencias para crear los services OAuth.
type Deps struct {
	Registry *platform.Registry
	Cache    cache.Client
	// HTTPClient se comparte entre token endpoints y validación (default: timeout 10s).
	HTTPClient *http.Client
	StateTTL   time.Duration
	// ValidateCacheTTL en cero desactiva el cache de validaciones.
	ValidateCacheTTL  time.Duration
	ValidateCacheSize int
	Clock             func() time.Time
}

// Services agrupa los services del flujo OAuth.
type Services struct {
	Registry  *platform.Registry
	AuthURL   *AuthURLBuilder
	Exchange  *ExchangeHandler
	Refresh   *RefreshHandler
	Validator *Validator
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if d.ValidateCacheSize == 0 {
		d.ValidateCacheSize = 1024
	}
	pending := NewCachePendingStore(d.Cache, d.Clock)
	return Services{
		Registry: d.Registry,
		AuthURL:  NewAuthURLBuilder(d.Registry, pending, d.StateTTL, d.Clock),
		Exchange: NewExchangeHandler(d.Registry, pending, d.HTTPClient, d.Clock),
		Refresh:  NewRefreshHandler(d.Registry, d.HTTPClient, d.Clock),
		Validator: NewValidator(d.Registry, ValidatorOptions{
			HTTPClient: d.HTTPClient,
			CacheSize:  d.ValidateCacheSize,
			CacheTTL:   d.ValidateCacheTTL,
		}),
	}
}
