package captcha

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/mgastelum/freshmart-backend/pkg/config"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

type testKeyer struct{}

func (testKeyer) CaptchaKey(id string) string { return "captcha:" + id }

func testConfig() config.CaptchaConfig {
	return config.CaptchaConfig{TTL: 5 * time.Minute, ChallengeLen: 6}
}

func TestNewIssuesChallenge(t *testing.T) {
	store := newMemoryStore()
	svc, err := NewService(store, testKeyer{}, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	challenge, err := svc.New(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(challenge.Text) != 6 {
		t.Fatalf("expected 6-char challenge, got %q", challenge.Text)
	}
	for _, r := range challenge.Text {
		if !strings.ContainsRune(challengeAlphabet, r) {
			t.Fatalf("challenge %q contains character outside the alphabet", challenge.Text)
		}
	}
	if _, ok := store.values["captcha:"+challenge.ID.String()]; !ok {
		t.Fatal("expected answer hash stored in redis")
	}
	if store.values["captcha:"+challenge.ID.String()] == challenge.Text {
		t.Fatal("raw answer must not be stored")
	}
}

func TestVerifyAcceptsCorrectAnswerOnce(t *testing.T) {
	store := newMemoryStore()
	svc, _ := NewService(store, testKeyer{}, testConfig())

	challenge, err := svc.New(context.Background())
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}

	if err := svc.Verify(context.Background(), challenge.ID, challenge.Text); err != nil {
		t.Fatalf("expected correct answer to verify: %v", err)
	}

	// Second use must fail: challenge is consumed.
	err = svc.Verify(context.Background(), challenge.ID, challenge.Text)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error on replay, got %v", err)
	}
}

func TestVerifyNormalizesCaseAndWhitespace(t *testing.T) {
	store := newMemoryStore()
	svc, _ := NewService(store, testKeyer{}, testConfig())

	challenge, _ := svc.New(context.Background())
	answer := "  " + strings.ToLower(challenge.Text) + " "
	if err := svc.Verify(context.Background(), challenge.ID, answer); err != nil {
		t.Fatalf("expected normalized answer to verify: %v", err)
	}
}

func TestVerifyWrongAnswerConsumesChallenge(t *testing.T) {
	store := newMemoryStore()
	svc, _ := NewService(store, testKeyer{}, testConfig())

	challenge, _ := svc.New(context.Background())

	err := svc.Verify(context.Background(), challenge.ID, "WRONG!")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Even the correct answer fails now.
	err = svc.Verify(context.Background(), challenge.ID, challenge.Text)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected challenge consumed, got %v", err)
	}
}

func TestVerifyUnknownID(t *testing.T) {
	svc, _ := NewService(newMemoryStore(), testKeyer{}, testConfig())

	err := svc.Verify(context.Background(), uuid.New(), "ANY")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
