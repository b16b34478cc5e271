package captcha

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/mgastelum/freshmart-backend/pkg/config"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

// Challenge text avoids glyphs that render ambiguously (0/O, 1/I/l).
const challengeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type keyer interface {
	CaptchaKey(challengeID string) string
}

// Challenge is handed to the client; rendering the text as an image is
// the caller's concern.
type Challenge struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// Service issues and verifies single-use captcha challenges.
type Service interface {
	New(ctx context.Context) (*Challenge, error)
	Verify(ctx context.Context, id uuid.UUID, answer string) error
}

type service struct {
	store store
	keyer keyer
	cfg   config.CaptchaConfig
}

// NewService builds a captcha service backed by Redis.
func NewService(st store, keyer keyer, cfg config.CaptchaConfig) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("captcha store required")
	}
	if keyer == nil {
		return nil, fmt.Errorf("key builder required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("captcha ttl must be positive")
	}
	if cfg.ChallengeLen < 4 || cfg.ChallengeLen > 12 {
		return nil, fmt.Errorf("captcha challenge length must be between 4 and 12")
	}
	return &service{store: st, keyer: keyer, cfg: cfg}, nil
}

// New issues a fresh challenge. Only the answer hash hits Redis.
func (s *service) New(ctx context.Context) (*Challenge, error) {
	text, err := randomChallenge(s.cfg.ChallengeLen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate captcha")
	}

	id := uuid.New()
	if err := s.store.Set(ctx, s.keyer.CaptchaKey(id.String()), hashAnswer(text), s.cfg.TTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store captcha")
	}
	return &Challenge{ID: id, Text: text}, nil
}

// Verify consumes the challenge: pass or fail, the stored answer is
// deleted so it cannot be replayed.
func (s *service) Verify(ctx context.Context, id uuid.UUID, answer string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "captcha id required")
	}

	key := s.keyer.CaptchaKey(id.String())
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "captcha expired or unknown")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load captcha")
	}

	if err := s.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume captcha")
	}

	provided := hashAnswer(normalizeAnswer(answer))
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "captcha answer incorrect")
	}
	return nil
}

func randomChallenge(length int) (string, error) {
	max := big.NewInt(int64(len(challengeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = challengeAlphabet[n.Int64()]
	}
	return string(out), nil
}

func hashAnswer(answer string) string {
	sum := sha256.Sum256([]byte(answer))
	return hex.EncodeToString(sum[:])
}

func normalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}
