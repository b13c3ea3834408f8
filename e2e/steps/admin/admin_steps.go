package admin

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	AdminEmail() string
	AdminPassword() string
	SetToken(token string)
	GetToken() string
}

// RegisterSteps registers admin session step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I am logged in as the administrator$`, steps.loginAsAdministrator)
	ctx.Step(`^I attempt to log in with email "([^"]*)" and password "([^"]*)"$`, steps.attemptLogin)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I create an admin user with email "([^"]*)"$`, steps.createUser)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) loginAsAdministrator(ctx context.Context) error {
	if err := s.attemptLogin(ctx, s.tc.AdminEmail(), s.tc.AdminPassword()); err != nil {
		return err
	}
	token, err := s.tc.GetResponseField("data.token")
	if err != nil {
		return fmt.Errorf("login did not return a token: %w", err)
	}
	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return fmt.Errorf("login returned an empty token")
	}
	s.tc.SetToken(tokenStr)
	return nil
}

func (s *adminSteps) attemptLogin(ctx context.Context, email, password string) error {
	return s.tc.POST("/admin/login", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

func (s *adminSteps) logout(ctx context.Context) error {
	return s.tc.POST("/admin/logout", nil)
}

func (s *adminSteps) createUser(ctx context.Context, email string) error {
	return s.tc.POST("/admin/users", map[string]interface{}{
		"email":     email,
		"password":  "e2e-password-1",
		"firstname": "E2E",
		"lastname":  "User",
	})
}
