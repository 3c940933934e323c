package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cartscout/internal/domain"
	"cartscout/internal/repos"
	"cartscout/internal/validate"
)

const maxPushToken = 4096

type PushService struct {
	Push *repos.PushRepo
}

func NewPushService(p *repos.PushRepo) *PushService { return &PushService{Push: p} }

type PushRegistration struct {
	Registered bool   `json:"registered"`
	Platform   string `json:"platform"`
}

func (s *PushService) RegisterToken(userID, token, platform string) (PushRegistration, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PushRegistration{}, Validation("token is required")
	}
	if len(token) > maxPushToken {
		return PushRegistration{}, Validation("token too long")
	}
	p := validate.Platform(platform)
	err := s.Push.Upsert(domain.PushToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Platform:  p,
		CreatedAt: domain.Now(),
	})
	if err != nil {
		return PushRegistration{}, fmt.Errorf("register push token: %w", err)
	}
	return PushRegistration{Registered: true, Platform: p}, nil
}
