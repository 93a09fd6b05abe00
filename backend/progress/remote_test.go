package progress_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"selfpaced/backend/config"
	"selfpaced/backend/progress"
	"selfpaced/backend/routes"
	"selfpaced/backend/utils"
)

const serverURL = "http://progress.test"

// fiberDoer routes client requests straight into an in-process fiber app.
type fiberDoer struct {
	app *fiber.App
}

func (d fiberDoer) Do(req *http.Request) (*http.Response, error) {
	return d.app.Test(req, -1)
}

// stubDoer answers every request with a fixed status and body, or err.
type stubDoer struct {
	status int
	body   string
	err    error
}

func (d stubDoer) Do(*http.Request) (*http.Response, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     make(http.Header),
	}, nil
}

func newServer(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:         "testsecret",
		UnlockCadenceDays: 7,
		ModuleCount:       8,
		AdminEmails:       []string{"boss@academy.test"},
	}
	db, err := utils.InitSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return routes.NewApp(db, cfg, zap.NewNop())
}

func register(t *testing.T, app *fiber.App, email string) {
	t.Helper()

	body := `{"email":"` + email + `","password":"password123"}`
	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/auth/register", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func login(t *testing.T, app *fiber.App, email string) *progress.RemoteClient {
	t.Helper()

	anon := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(fiberDoer{app}))
	token, err := anon.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	return progress.NewRemoteClient(serverURL,
		progress.WithHTTPClient(fiberDoer{app}),
		progress.WithToken(token),
	)
}

func TestRemoteClientEndToEnd(t *testing.T) {
	app := newServer(t)
	ctx := context.Background()
	register(t, app, "student@academy.test")
	register(t, app, "boss@academy.test")

	student := login(t, app, "Student@Academy.test")

	id, err := student.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.Identity{Authenticated: true, Email: "student@academy.test"}, id)

	// Another device already synced one lesson.
	require.True(t, student.Push(ctx, id.Email, progress.CompletionMap{"lesson2": true}))

	store := progress.NewLocalStore(progress.NewMemoryBackend(), "course")
	store.SetCompletion(progress.CompletionMap{"lesson1": true})
	engine := progress.NewEngine(store, student)

	merged, err := engine.Bootstrap(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, progress.CompletionMap{"lesson1": true, "lesson2": true}, merged)
	assert.Equal(t, progress.StatusSynced, engine.Status())

	remote, err := student.Fetch(ctx, id.Email)
	require.NoError(t, err)
	assert.Equal(t, progress.CompletionMap{"lesson1": true, "lesson2": true}, remote)

	facade := progress.NewFacade(engine, []string{"lesson1", "lesson2", "lesson3", "lesson4"})
	facade.Toggle(ctx, "lesson3")
	engine.Wait()
	assert.Equal(t, progress.StatusSynced, facade.SyncStatus())
	assert.Equal(t, 75, facade.Percentage())

	remote, err = student.Fetch(ctx, id.Email)
	require.NoError(t, err)
	assert.True(t, remote.Done("lesson3"))

	schedule, err := student.UnlockStatus(ctx, id.Email)
	require.NoError(t, err)
	require.Len(t, schedule, 8)
	assert.True(t, schedule[0].Unlocked)
	assert.False(t, schedule[1].Unlocked)
	assert.Equal(t, 7, schedule[1].DaysRemaining)

	// Only admins may override.
	err = student.SetOverride(ctx, id.Email, 1, true)
	var se *progress.ResponseError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)

	admin := login(t, app, "boss@academy.test")
	require.NoError(t, admin.SetOverride(ctx, id.Email, 1, true))

	schedule, err = student.UnlockStatus(ctx, id.Email)
	require.NoError(t, err)
	assert.True(t, schedule[1].Unlocked)
	assert.Equal(t, 0, schedule[1].DaysRemaining)
}

func TestRemoteClientTokenForOtherEmail(t *testing.T) {
	app := newServer(t)
	register(t, app, "student@academy.test")
	student := login(t, app, "student@academy.test")

	_, err := student.Fetch(context.Background(), "other@academy.test")
	require.Error(t, err)
	assert.False(t, student.Push(context.Background(), "other@academy.test", progress.CompletionMap{"a": true}))
}

func TestRemoteClientAnonymousIdentity(t *testing.T) {
	app := newServer(t)
	client := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(fiberDoer{app}))

	id, err := client.Identity(context.Background())
	require.NoError(t, err)
	assert.False(t, id.Known())
}

func TestRemoteClientNotFoundIsEmptyMap(t *testing.T) {
	client := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(stubDoer{status: http.StatusNotFound}))

	m, err := client.Fetch(context.Background(), "student@academy.test")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestRemoteClientFailures(t *testing.T) {
	ctx := context.Background()

	broken := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(stubDoer{status: http.StatusInternalServerError, body: "boom"}))
	_, err := broken.Fetch(ctx, "student@academy.test")
	var se *progress.ResponseError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Body)
	assert.False(t, broken.Push(ctx, "student@academy.test", progress.CompletionMap{"a": true}))

	offline := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(stubDoer{err: errors.New("connection refused")}))
	_, err = offline.Fetch(ctx, "student@academy.test")
	assert.Error(t, err)
	assert.False(t, offline.Push(ctx, "student@academy.test", progress.CompletionMap{"a": true}))

	rejected := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(stubDoer{status: http.StatusOK, body: `{"success":false}`}))
	assert.False(t, rejected.Push(ctx, "student@academy.test", progress.CompletionMap{"a": true}))

	garbled := progress.NewRemoteClient(serverURL, progress.WithHTTPClient(stubDoer{status: http.StatusOK, body: "<html>"}))
	_, err = garbled.Fetch(ctx, "student@academy.test")
	assert.Error(t, err)
}
