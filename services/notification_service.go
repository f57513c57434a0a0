package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ip-tracking-api/events"
	"ip-tracking-api/metrics"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"
	"ip-tracking-api/utils"

	"golang.org/x/sync/errgroup"
)

// Notice is what a notification channel is asked to deliver.
type Notice struct {
	Submission models.Submission
	Action     string
	Notes      string
}

// Notifier delivers a notice. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// MailSender matches (*config.Mailer).Send.
type MailSender func(to []string, subject, html string) error

// MailNotifier mails the applicant.
type MailNotifier struct {
	send    MailSender
	baseURL string
}

func NewMailNotifier(send MailSender, baseURL string) *MailNotifier {
	return &MailNotifier{send: send, baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *MailNotifier) Notify(_ context.Context, notice Notice) error {
	sub := notice.Submission
	if strings.TrimSpace(sub.ApplicantEmail) == "" {
		return nil
	}
	subject := fmt.Sprintf("[%s] %s", sub.SubmissionNumber, noticeHeadline(sub.Status))
	meta := []emailMetaItem{
		{Label: "Submission", Value: sub.SubmissionNumber},
		{Label: "Title", Value: sub.Title},
		{Label: "Status", Value: fmt.Sprintf("%s (%s)", sub.Status, utils.SubmissionStatusLabelTH(sub.Status))},
		{Label: "Updated", Value: utils.FormatThaiDateTime(sub.UpdatedAt)},
	}
	if sub.CompletedAt != nil {
		meta = append(meta, emailMetaItem{Label: "Completed", Value: utils.FormatThaiDatePtr(sub.CompletedAt)})
	}
	if sub.Certificate != nil {
		meta = append(meta, emailMetaItem{Label: "Certificate", Value: *sub.Certificate})
	}
	paragraphs := []string{noticeBody(sub.Status)}
	if strings.TrimSpace(notice.Notes) != "" {
		paragraphs = append(paragraphs, "Reviewer notes:\n"+notice.Notes)
	}
	buttonURL := ""
	if n.baseURL != "" {
		buttonURL = fmt.Sprintf("%s/submissions/%d", n.baseURL, sub.SubmissionID)
	}
	html := buildEmailTemplate(subject, paragraphs, meta, "View submission", buttonURL)
	return n.send([]string{sub.ApplicantEmail}, subject, html)
}

// InAppNotifier writes a row to the notifications table.
type InAppNotifier struct {
	store repository.Store
}

func NewInAppNotifier(store repository.Store) *InAppNotifier {
	return &InAppNotifier{store: store}
}

func (n *InAppNotifier) Notify(ctx context.Context, notice Notice) error {
	sub := notice.Submission
	id := sub.SubmissionID
	message := noticeBody(sub.Status)
	if strings.TrimSpace(notice.Notes) != "" {
		message += " " + notice.Notes
	}
	return n.store.CreateNotification(ctx, &models.Notification{
		UserID:              sub.ApplicantID,
		Title:               fmt.Sprintf("%s: %s", sub.SubmissionNumber, noticeHeadline(sub.Status)),
		Message:             message,
		Type:                noticeType(sub.Status),
		RelatedSubmissionID: &id,
	})
}

// MultiNotifier fans a notice out to every channel concurrently and returns
// the first failure.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (n *MultiNotifier) Notify(ctx context.Context, notice Notice) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, notifier := range n.notifiers {
		notifier := notifier
		g.Go(func() error {
			return notifier.Notify(gctx, notice)
		})
	}
	return g.Wait()
}

// NotificationDispatcher is the after-commit listener on submission facts.
// Failures are logged and counted, never returned to the workflow.
type NotificationDispatcher struct {
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewNotificationDispatcher(notifier Notifier, m *metrics.Metrics) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier, metrics: m}
}

func (d *NotificationDispatcher) Handle(ctx context.Context, fact events.ChangeFact) error {
	if d.notifier == nil || fact.Submission == nil || !fact.Has(events.FieldStatus) {
		return nil
	}
	notice := Notice{Submission: *fact.Submission, Action: fact.Action, Notes: fact.Comment}
	if err := d.notifier.Notify(ctx, notice); err != nil {
		d.metrics.IncrementNotificationFailure(notifierName(d.notifier))
		log.Printf("notification failed for submission %d (%s): %v", fact.SubmissionID, fact.Action, err)
	}
	return nil
}

func notifierName(n Notifier) string {
	switch n.(type) {
	case *MailNotifier:
		return "mail"
	case *InAppNotifier:
		return "in_app"
	case *MultiNotifier:
		return "multi"
	}
	return "custom"
}

func noticeHeadline(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionStatusSubmitted:
		return "Submission received"
	case models.SubmissionStatusInReview:
		return "Submission in review"
	case models.SubmissionStatusRevisionNeeded:
		return "Revision requested"
	case models.SubmissionStatusCompleted:
		return "Submission completed"
	case models.SubmissionStatusRejected:
		return "Submission rejected"
	}
	return "Submission updated"
}

func noticeBody(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionStatusSubmitted:
		return "Your submission has been received and entered the first review stage."
	case models.SubmissionStatusInReview:
		return "Your submission has moved to the next review stage."
	case models.SubmissionStatusRevisionNeeded:
		return "The reviewers asked for changes to your submission."
	case models.SubmissionStatusCompleted:
		return "Your submission has completed every stage and a certificate was issued."
	case models.SubmissionStatusRejected:
		return "Your submission was rejected."
	}
	return "Your submission was updated."
}

func noticeType(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionStatusCompleted:
		return models.NotificationTypeSuccess
	case models.SubmissionStatusRejected:
		return models.NotificationTypeError
	case models.SubmissionStatusRevisionNeeded:
		return models.NotificationTypeWarning
	}
	return models.NotificationTypeInfo
}
