package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ip-tracking-api/models"
	"ip-tracking-api/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, notice Notice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

func TestNotificationFailureNeverFailsTheAction(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notice) bool {
		return n.Action == string(ActionSubmit) && n.Submission.Status == models.SubmissionStatusSubmitted
	})).Return(errors.New("smtp: connection refused")).Once()

	f := newPatentFixture(t, notifier)
	sub, err := f.engine.Workflow.ProcessAction(context.Background(), f.draft(t), string(ActionSubmit), ActionOptions{Processor: "applicant-1"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)

	f.engine.Bus.Wait()
	notifier.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationFailuresTotal.WithLabelValues("custom")))
	assert.Len(t, f.history(t, sub.SubmissionID), 1)
}

func TestNotificationsSkipFactsWithoutStatusChange(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	f := newPatentFixture(t, notifier)
	f.submitted(t)
	f.engine.Bus.Wait()

	// Document uploads and reviews are not submission facts.
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestMailNotifierRendersNotice(t *testing.T) {
	var gotTo []string
	var gotSubject, gotBody string
	notifier := NewMailNotifier(func(to []string, subject, html string) error {
		gotTo, gotSubject, gotBody = to, subject, html
		return nil
	}, "https://ip.example.com/")

	cert := "IPC-PT-2026-ABCDEF123456"
	err := notifier.Notify(context.Background(), Notice{
		Submission: models.Submission{
			SubmissionID:     12,
			SubmissionNumber: "PT-2026-0000AAAA",
			Title:            "Solar <dryer>",
			ApplicantEmail:   "applicant@example.com",
			Status:           models.SubmissionStatusCompleted,
			Certificate:      &cert,
		},
		Action: string(ActionAdvanceStage),
		Notes:  "granted",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"applicant@example.com"}, gotTo)
	assert.Equal(t, "[PT-2026-0000AAAA] Submission completed", gotSubject)
	assert.Contains(t, gotBody, "https://ip.example.com/submissions/12")
	assert.Contains(t, gotBody, cert)
	assert.Contains(t, gotBody, "Solar &lt;dryer&gt;")
	assert.True(t, strings.Contains(gotBody, "granted"))
}

func TestMailNotifierSkipsMissingAddress(t *testing.T) {
	called := false
	notifier := NewMailNotifier(func([]string, string, string) error {
		called = true
		return nil
	}, "")
	require.NoError(t, notifier.Notify(context.Background(), Notice{Submission: models.Submission{Status: models.SubmissionStatusSubmitted}}))
	assert.False(t, called)
}

func TestInAppNotifierWritesNotification(t *testing.T) {
	store := repository.NewMemoryStore()
	notifier := NewInAppNotifier(store)

	err := notifier.Notify(context.Background(), Notice{
		Submission: models.Submission{
			SubmissionID:     3,
			SubmissionNumber: "PT-2026-0000BBBB",
			ApplicantID:      "applicant-1",
			Status:           models.SubmissionStatusRevisionNeeded,
		},
		Notes: "add drawings",
	})
	require.NoError(t, err)

	rows := store.Notifications()
	require.Len(t, rows, 1)
	assert.Equal(t, "applicant-1", rows[0].UserID)
	assert.Equal(t, models.NotificationTypeWarning, rows[0].Type)
	assert.Contains(t, rows[0].Message, "add drawings")
	require.NotNil(t, rows[0].RelatedSubmissionID)
	assert.Equal(t, 3, *rows[0].RelatedSubmissionID)
}

func TestMultiNotifierReturnsFirstFailure(t *testing.T) {
	ok := &mockNotifier{}
	ok.On("Notify", mock.Anything, mock.Anything).Return(nil)
	broken := &mockNotifier{}
	broken.On("Notify", mock.Anything, mock.Anything).Return(errors.New("boom"))

	err := NewMultiNotifier(ok, broken).Notify(context.Background(), Notice{})
	assert.EqualError(t, err, "boom")
	ok.AssertNumberOfCalls(t, "Notify", 1)
	broken.AssertNumberOfCalls(t, "Notify", 1)
}

func TestParseLogoList(t *testing.T) {
	assert.Equal(t, []string{"https://a/logo.png", "https://b/logo.png"}, parseLogoList(" https://a/logo.png ;\nhttps://b/logo.png, "))
	assert.Empty(t, parseLogoList(""))
}
