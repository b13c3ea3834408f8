package audit

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	LastStatus() int
}

// RegisterSteps registers audit log step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &auditSteps{tc: tc}

	ctx.Step(`^an audit record with action "([^"]*)" should appear$`, steps.recordShouldAppear)
	ctx.Step(`^the latest "([^"]*)" record field "([^"]*)" should be "([^"]*)"$`, steps.latestRecordFieldShouldBe)
	ctx.Step(`^I list audit records filtered by action "([^"]*)"$`, steps.listByAction)
	ctx.Step(`^I count the audit records$`, steps.count)
	ctx.Step(`^I trigger an audit cleanup$`, steps.triggerCleanup)
}

type auditSteps struct {
	tc TestContext
}

// recordShouldAppear polls the listing because records travel through the
// dispatch queue and land a moment after the mutating response returns.
func (s *auditSteps) recordShouldAppear(ctx context.Context, action string) error {
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := s.listByAction(ctx, action); err != nil {
			return err
		}
		if total, err := s.tc.GetResponseField("meta.pagination.total"); err == nil {
			if n, ok := total.(float64); ok && n > 0 {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no audit record with action %q appeared within 5s", action)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (s *auditSteps) latestRecordFieldShouldBe(ctx context.Context, action, field, expected string) error {
	if err := s.recordShouldAppear(ctx, action); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("data.0." + field)
	if err != nil {
		return err
	}
	actual := fmt.Sprintf("%v", value)
	if actual != expected {
		return fmt.Errorf("expected latest %q record field %q to be %q, got %q", action, field, expected, actual)
	}
	return nil
}

func (s *auditSteps) listByAction(ctx context.Context, action string) error {
	return s.tc.GET("/admin/audit-logs?action="+url.QueryEscape(action), nil)
}

func (s *auditSteps) count(ctx context.Context) error {
	return s.tc.GET("/admin/audit-logs/count", nil)
}

func (s *auditSteps) triggerCleanup(ctx context.Context) error {
	return s.tc.POST("/admin/audit-logs/cleanup", nil)
}
