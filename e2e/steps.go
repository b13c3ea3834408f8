package e2e

import (
	"github.com/cucumber/godog"

	"chronicle/e2e/steps/admin"
	"chronicle/e2e/steps/audit"
	"chronicle/e2e/steps/common"
	"chronicle/e2e/steps/content"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register admin session steps (login, logout, user management)
	admin.RegisterSteps(ctx, tc)

	// Register content steps (entries, publishing, uploads)
	content.RegisterSteps(ctx, tc)

	// Register audit log steps (listing, filtering, cleanup)
	audit.RegisterSteps(ctx, tc)
}
