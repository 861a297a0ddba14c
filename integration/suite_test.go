//go:build integration
// +build integration

// Package integration_test exercises the client against a live deployment.
//
// Run with:
//
//	go test -tags integration ./integration/...
//
// IVK_API_KEY and IVK_BASE_URL select the deployment. Tests that need an
// interview in progress additionally read IVK_INTEGRATION_SESSION_ID and
// skip when it is unset, so the suite is safe to run against any account.
package integration_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	ivk "github.com/vetra-ai/interviewkit/sdk"
)

func testClient(t *testing.T) *ivk.Client {
	t.Helper()
	if strings.TrimSpace(os.Getenv("IVK_API_KEY")) == "" {
		t.Skip("IVK_API_KEY not set")
	}
	opts := []ivk.ClientOption{
		ivk.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ivk.WithTimeout(60 * time.Second),
	}
	if base := strings.TrimSpace(os.Getenv("IVK_BASE_URL")); base != "" {
		opts = append(opts, ivk.WithBaseURL(base))
	}
	return ivk.NewClient(opts...)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// sessionUnderTest returns the interview session the suite may mutate.
// Turn submissions are destructive to a real interview, so they never run
// against a session the operator did not explicitly volunteer.
func sessionUnderTest(t *testing.T) string {
	t.Helper()
	id := strings.TrimSpace(os.Getenv("IVK_INTEGRATION_SESSION_ID"))
	if id == "" {
		t.Skip("IVK_INTEGRATION_SESSION_ID not set")
	}
	return id
}
