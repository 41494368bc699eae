package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"github.com/xela07ax/restguard/internal/protection"
)

// NonceAction: действие, к которому привязан nonce диагностики.
const NonceAction = "restguard_test_protection"

var ErrUnknownScenario = errors.New("unknown scenario")

type SettingsReader interface {
	Get(ctx context.Context) (domain.Settings, error)
}

// DiagnosticsService отвечает на вопрос "что шлюз сделает с таким вызывающим",
// не обращаясь к WordPress.
type DiagnosticsService struct {
	settings SettingsReader
	nonces   *auth.NonceManager
}

func NewDiagnosticsService(settings SettingsReader, nonces *auth.NonceManager) *DiagnosticsService {
	return &DiagnosticsService{settings: settings, nonces: nonces}
}

func (s *DiagnosticsService) Nonce(id *domain.Identity) string {
	return s.nonces.Create(userOf(id), NonceAction)
}

func (s *DiagnosticsService) Test(ctx context.Context, id *domain.Identity, nonce string, scenario domain.Scenario) (domain.TestResult, error) {
	if err := s.nonces.Verify(nonce, userOf(id), NonceAction); err != nil {
		return domain.TestResult{}, err
	}
	if scenario == "" {
		scenario = domain.ScenarioCurrent
	}
	if !scenario.Valid() {
		return domain.TestResult{}, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return domain.TestResult{}, fmt.Errorf("diagnostics: load settings: %w", err)
	}
	return protection.Simulate(st.Protection(), scenario, id), nil
}

func userOf(id *domain.Identity) string {
	if id == nil {
		return ""
	}
	return id.UserID
}
