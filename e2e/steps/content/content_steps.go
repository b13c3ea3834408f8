package content

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	PUT(path string, body interface{}) error
	DELETE(path string) error
	GetResponseField(field string) (interface{}, error)
	SetDocumentID(id string)
	GetDocumentID() string
}

// RegisterSteps registers content-manager step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &contentSteps{tc: tc}

	ctx.Step(`^I create an entry of type "([^"]*)" with title "([^"]*)"$`, steps.createEntry)
	ctx.Step(`^I create an entry of type "([^"]*)" with title "([^"]*)" and password "([^"]*)"$`, steps.createEntryWithPassword)
	ctx.Step(`^I update the entry of type "([^"]*)" with title "([^"]*)"$`, steps.updateEntry)
	ctx.Step(`^I publish the entry of type "([^"]*)"$`, steps.publishEntry)
	ctx.Step(`^I unpublish the entry of type "([^"]*)"$`, steps.unpublishEntry)
	ctx.Step(`^I delete the entry of type "([^"]*)"$`, steps.deleteEntry)
	ctx.Step(`^I upload a media file named "([^"]*)"$`, steps.uploadFile)
}

type contentSteps struct {
	tc TestContext
}

func (s *contentSteps) createEntry(ctx context.Context, uid, title string) error {
	return s.create(uid, map[string]interface{}{"title": title})
}

func (s *contentSteps) createEntryWithPassword(ctx context.Context, uid, title, password string) error {
	return s.create(uid, map[string]interface{}{"title": title, "password": password})
}

func (s *contentSteps) create(uid string, data map[string]interface{}) error {
	if err := s.tc.POST("/content-manager/collection-types/"+uid, map[string]interface{}{"data": data}); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("data.documentId")
	if err != nil {
		return fmt.Errorf("create did not return a document id: %w", err)
	}
	s.tc.SetDocumentID(fmt.Sprintf("%v", id))
	return nil
}

func (s *contentSteps) updateEntry(ctx context.Context, uid, title string) error {
	return s.tc.PUT(
		fmt.Sprintf("/content-manager/collection-types/%s/%s", uid, s.tc.GetDocumentID()),
		map[string]interface{}{"data": map[string]interface{}{"title": title}},
	)
}

func (s *contentSteps) publishEntry(ctx context.Context, uid string) error {
	return s.tc.POST(
		fmt.Sprintf("/content-manager/collection-types/%s/%s/actions/publish", uid, s.tc.GetDocumentID()),
		nil,
	)
}

func (s *contentSteps) unpublishEntry(ctx context.Context, uid string) error {
	return s.tc.POST(
		fmt.Sprintf("/content-manager/collection-types/%s/%s/actions/unpublish", uid, s.tc.GetDocumentID()),
		nil,
	)
}

func (s *contentSteps) deleteEntry(ctx context.Context, uid string) error {
	return s.tc.DELETE(fmt.Sprintf("/content-manager/collection-types/%s/%s", uid, s.tc.GetDocumentID()))
}

func (s *contentSteps) uploadFile(ctx context.Context, name string) error {
	return s.tc.POST("/content-manager/upload", map[string]interface{}{
		"name": name,
		"mime": "image/png",
		"size": 1024,
	})
}
