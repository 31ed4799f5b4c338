package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

var _ ports.CodeStore = (*CodeStore)(nil)

const (
	codeKey     = "otp:code:%s"
	latestKey   = "otp:latest:%s"
	consumedKey = "otp:consumed:%s"
)

// CodeStore códigos OTP en Redis. La expiración la aplica el TTL de la clave.
type CodeStore struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

// NewCodeStore construye el almacén sobre un cliente ya conectado.
func NewCodeStore(rdb goredis.UniversalClient) *CodeStore {
	return &CodeStore{rdb: rdb, now: time.Now}
}

type storedCode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *CodeStore) Save(ctx context.Context, c *entity.ResetCode) error {
	ttl := c.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("otp: código ya vencido")
	}
	raw, err := json.Marshal(storedCode{
		ID: c.ID, UserID: c.UserID, Email: c.Email, CodeHash: c.CodeHash,
		ExpiresAt: c.ExpiresAt, CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("otp: serializar: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(codeKey, c.ID), raw, ttl)
	pipe.Set(ctx, fmt.Sprintf(latestKey, strings.ToLower(c.Email)), c.ID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("otp: guardar: %w", err)
	}
	return nil
}

func (s *CodeStore) Latest(ctx context.Context, email string) (*entity.ResetCode, error) {
	id, err := s.rdb.Get(ctx, fmt.Sprintf(latestKey, strings.ToLower(email))).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("otp: último código: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *CodeStore) Get(ctx context.Context, id string) (*entity.ResetCode, error) {
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(ctx, fmt.Sprintf(codeKey, id))
	usedCmd := pipe.Exists(ctx, fmt.Sprintf(consumedKey, id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("otp: leer código: %w", err)
	}
	raw, err := getCmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("otp: leer código: %w", err)
	}
	var sc storedCode
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("otp: deserializar: %w", err)
	}
	c := &entity.ResetCode{
		ID: sc.ID, UserID: sc.UserID, Email: sc.Email, CodeHash: sc.CodeHash,
		ExpiresAt: sc.ExpiresAt, CreatedAt: sc.CreatedAt,
		Consumed: usedCmd.Val() > 0,
	}
	if c.Expired(s.now()) {
		return nil, nil
	}
	return c, nil
}

// Consume usa SETNX sobre una marca por código: solo la primera llamada gana.
func (s *CodeStore) Consume(ctx context.Context, id string) (bool, error) {
	ttl, err := s.rdb.PTTL(ctx, fmt.Sprintf(codeKey, id)).Result()
	if err != nil {
		return false, fmt.Errorf("otp: ttl: %w", err)
	}
	if ttl <= 0 {
		// -2: la clave no existe; -1 no ocurre porque siempre se guarda con TTL.
		return false, nil
	}
	ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(consumedKey, id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("otp: consumir: %w", err)
	}
	return ok, nil
}

func (s *CodeStore) Release(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, fmt.Sprintf(consumedKey, id)).Err(); err != nil {
		return fmt.Errorf("otp: liberar: %w", err)
	}
	return nil
}
