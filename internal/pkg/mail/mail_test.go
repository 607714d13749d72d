package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hellorun/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReviewDecision(t *testing.T) {
	subject, html, err := RenderReviewDecision(ReviewDecisionData{
		AuthorName: "Eliud",
		Title:      "Sub-2 <dreams>",
		Approved:   true,
		LinkURL:    "https://hellorun.test/blog/sub-2-dreams",
	})
	require.NoError(t, err)
	assert.Equal(t, `Your post "Sub-2 <dreams>" is live`, subject)
	assert.Contains(t, html, "Sub-2 &lt;dreams&gt;")
	assert.Contains(t, html, "https://hellorun.test/blog/sub-2-dreams")
	assert.NotContains(t, html, "Reviewer notes")

	subject, html, err = RenderReviewDecision(ReviewDecisionData{
		Title:  "Hill work",
		Reason: "Please add more detail about your race splits.",
	})
	require.NoError(t, err)
	assert.Equal(t, `Your post "Hill work" needs changes`, subject)
	assert.Contains(t, html, "Hi runner,")
	assert.Contains(t, html, "Reviewer notes")
	assert.Contains(t, html, "race splits")
	assert.NotContains(t, html, "Edit your post")
}

func TestSender_Resend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := BuildMailConfig(config.MailConfig{Provider: "resend", From: "helloRun <no-reply@hellorun.test>"})
	cfg.UseResend, cfg.ResendKey = true, "re_123"
	s := New(cfg)
	s.resendEndpoint = srv.URL

	require.NoError(t, s.SendReviewDecision(context.Background(), "kip@example.com", ReviewDecisionData{Title: "Hill work", Approved: true}))
	assert.Equal(t, "helloRun <no-reply@hellorun.test>", got["from"])
	assert.Equal(t, []interface{}{"kip@example.com"}, got["to"])
	assert.Equal(t, `Your post "Hill work" is live`, got["subject"])
}

func TestSender_ResendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	s := New(Config{Enable: true, UseResend: true, ResendKey: "k"})
	s.resendEndpoint = srv.URL
	err := s.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "x"})
	assert.EqualError(t, err, "resend error 422: invalid from")
}

func TestSender_DisabledIsNoop(t *testing.T) {
	s := New(BuildMailConfig(config.MailConfig{}))
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Send(context.Background(), Message{}))
}

func TestBuildMailConfig(t *testing.T) {
	cfg := BuildMailConfig(config.MailConfig{
		Provider: "smtp",
		SMTP:     config.SMTPConfig{Host: "smtp.test", Port: 2525, User: "u", Password: "p"},
	})
	assert.True(t, cfg.Enable)
	assert.False(t, cfg.UseResend)
	assert.Equal(t, "smtp.test", cfg.Host)
	assert.Equal(t, 2525, cfg.Port)
}
