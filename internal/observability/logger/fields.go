package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// =================================================================================
// DOMAIN
// =================================================================================

// Platform is the social platform a flow or credential belongs to.
func Platform(v string) zap.Field { return zap.String("platform", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }

// StateKey logs a shortened state value. The full state is a single-use
// secret until consumed, so only its first characters are written.
func StateKey(v string) zap.Field {
	if len(v) > 12 {
		v = v[:12] + "…"
	}
	return zap.String("state", v)
}

// CredentialStatus is the derived status of a stored credential.
func CredentialStatus(v string) zap.Field { return zap.String("credential_status", v) }

// UpstreamStatus is the HTTP status returned by a provider endpoint.
func UpstreamStatus(v int) zap.Field { return zap.Int("upstream_status", v) }

// =================================================================================
// SYSTEM
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

// Layer is controller, service or store.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
