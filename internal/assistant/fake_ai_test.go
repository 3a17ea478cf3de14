package assistant

import (
	"context"
	"errors"

	"github.com/shopmind/shopmind-backend/internal/logger"
)

// fakeAI is a scripted stand-in for the completion client.
type fakeAI struct {
	textReply string
	textErr   error
	jsonReply map[string]any
	jsonErr   error

	textCalls int
	jsonCalls int
	lastUser  string
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.textCalls++
	f.lastUser = user
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textReply, nil
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.jsonCalls++
	f.lastUser = user
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonReply, nil
}

var errFakeDown = errors.New("collaborator unavailable")

func testLogger() *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		panic(err)
	}
	return log
}
