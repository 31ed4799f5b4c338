package ports

import (
	"context"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// Mailer envía correos transaccionales.
type Mailer interface {
	SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// CodeStore guarda códigos OTP con expiración. Los Get devuelven (nil, nil) si no existe o venció.
type CodeStore interface {
	Save(ctx context.Context, code *entity.ResetCode) error
	Latest(ctx context.Context, email string) (*entity.ResetCode, error)
	Get(ctx context.Context, id string) (*entity.ResetCode, error)
	// Consume marca el código como usado. Devuelve false si ya estaba consumido o no existe.
	Consume(ctx context.Context, id string) (bool, error)
	// Release revierte un Consume cuando la operación que protegía no se pudo completar.
	Release(ctx context.Context, id string) error
}

// RateLimiter limita operaciones por clave en una ventana deslizante.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}
